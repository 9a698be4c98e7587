package reasoning

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/neo/personasim/internal/persona"
)

// MemoryWindow is how many previous turns are shown to the model.
const MemoryWindow = 3

// maxKnowledgeArticles limits the persona's already-read articles in prompts.
const maxKnowledgeArticles = 2

// MemoryEntry is one earlier turn shown to the model for context
type MemoryEntry struct {
	Article  string
	Reaction string
	Rating   float64
}

// Request carries everything a prompt needs. Memory should already be the
// trailing window; prompts still pass it through Window.
type Request struct {
	SessionID     string
	Persona       *persona.Persona
	Article       string
	CurrentRating float64
	Memory        []MemoryEntry
}

// Window returns the last MemoryWindow entries.
func Window(memory []MemoryEntry) []MemoryEntry {
	if len(memory) <= MemoryWindow {
		return memory
	}
	return memory[len(memory)-MemoryWindow:]
}

type promptData struct {
	SessionID     string
	PersonaName   string
	PersonaJSON   string
	Knowledge     []string
	Memory        []MemoryEntry
	Article       string
	CurrentRating string
}

func newPromptData(req Request) promptData {
	data := promptData{
		SessionID:     req.SessionID,
		Article:       req.Article,
		Memory:        Window(req.Memory),
		CurrentRating: fmt.Sprintf("%g", req.CurrentRating),
	}
	if req.Persona != nil {
		data.PersonaName = req.Persona.Name
		data.PersonaJSON = req.Persona.JSON()
		data.Knowledge = req.Persona.ArticlesRead
		if len(data.Knowledge) > maxKnowledgeArticles {
			data.Knowledge = data.Knowledge[:maxKnowledgeArticles]
		}
	}
	return data
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

var judgeTemplate = template.Must(template.New("judge").Funcs(funcs).Parse(
	`Take on the persona provided in the JSON object and react to a new news article related to COVID-19. This involves reading and analyzing the article, then formulating a response based on the persona's traits and prior beliefs, especially regarding vaccinations.

You will receive:
1. A JSON object detailing a persona.
2. A set of articles already in the persona's knowledge base.
3. A new article for analysis.

Your task is to:
- Read the provided news article carefully.
- Based on the persona's details, react either positively or negatively to the article.
- Update the persona's vaccination acceptance score accordingly.
- Provide a detailed reasoning for your reaction (5-10 sentences within 1 paragraph), considering the persona's educational background, personality traits, socioeconomic status, marital status, prior beliefs/experiences, and vaccination acceptance score.

Current Session ID: {{.SessionID}}
Current Rating: {{.CurrentRating}}/4

Your persona details:
{{.PersonaJSON}}
{{if .Knowledge}}
Articles already in persona's knowledge base:
{{range $i, $a := .Knowledge}}
Article {{inc $i}}: {{$a}}
{{end}}{{end}}{{if .Memory}}
Previous interactions:
{{range $i, $m := .Memory}}
Interaction {{inc $i}}:
Article: {{$m.Article}}
Reaction: {{$m.Reaction}}
Rating: {{$m.Rating}}
{{end}}{{end}}
Please read the following article and provide your reaction:

Article:
{{.Article}}

Format your response EXACTLY as follows:
REACTION: [Positive/Negative]
RATING: [number between 1 and 4]
REASONING: [5-10 sentences explaining your reaction based on your persona]`))

var editorTemplate = template.Must(template.New("editor").Funcs(funcs).Parse(
	`Improve the article by reacting to a user's response to an article by incorporating details from the user persona and the article to create an enhanced version that achieves a higher score.

Current Session ID: {{.SessionID}}
Current User Rating: {{.CurrentRating}}/4

User Persona:
{{.PersonaJSON}}
{{if .Memory}}
Previous article versions and user reactions:
{{range $i, $m := .Memory}}
Version {{inc $i}}:
Article: {{$m.Article}}
User Reaction: {{$m.Reaction}}
Rating: {{$m.Rating}}
{{end}}{{end}}
Previous article:
{{.Article}}

Your task is to:
1. Understand the User Persona: Focus on {{.PersonaName}}'s perspective on vaccines, concerns, trusted sources, and core values.
2. Analyze the Existing Response: The current article hasn't resonated well with the user.
3. Extract Key Points from the Article: Keep factual information but present it differently.
4. Reformulate the Response: Rewrite the article to better appeal to this user, considering their specific trust levels, concerns, and values.
5. Ensure Consistency and Coherence: The article should still be factual but framed to better align with their worldview and information preferences.

Return TWO distinct sections as follows:

CHANGES_SUMMARY: [A brief 2-3 sentence summary of what specific changes you are making to the article and why]

ARTICLE: [The full improved article text]

The goal is to increase the user's vaccine acceptance rating above their current level of {{.CurrentRating}}/4.`))

var recommendationTemplate = template.Must(template.New("recommendation").Funcs(funcs).Parse(
	`Take on the persona provided in the JSON object and determine how likely you would be to recommend COVID-19 vaccination to friends and family with similar backgrounds and values.

Based on all the articles you've read and your persona's evolution throughout this experience, provide a recommendation rating.

Your persona details:
{{.PersonaJSON}}
{{if .Memory}}
Your previous interactions with articles:
{{range $i, $m := .Memory}}
Interaction {{inc $i}}:
Article: {{$m.Article}}
Your Reaction: {{$m.Reaction}}
Your Rating: {{$m.Rating}}
{{end}}{{end}}
Your current vaccination acceptance rating is: {{.CurrentRating}}/4

Format your response EXACTLY as follows:
RECOMMENDATION_RATING: [number between 1 and 4]
REASONING: [5-10 sentences explaining your recommendation likelihood based on your persona]

Where on the scale from 1 to 4:
1 = Would strongly advise against vaccination
2 = Would probably not recommend vaccination
3 = Would cautiously recommend vaccination
4 = Would strongly recommend vaccination
`))

func render(t *template.Template, req Request) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, newPromptData(req)); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// JudgePrompt asks the persona to react to req.Article.
func JudgePrompt(req Request) (string, error) {
	return render(judgeTemplate, req)
}

// EditorPrompt asks the editor to rewrite req.Article for the persona.
func EditorPrompt(req Request) (string, error) {
	return render(editorTemplate, req)
}

// RecommendationPrompt asks the persona for a closing recommendation rating.
func RecommendationPrompt(req Request) (string, error) {
	return render(recommendationTemplate, req)
}
