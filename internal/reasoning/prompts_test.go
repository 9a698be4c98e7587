package reasoning

import (
	"strings"
	"testing"

	"github.com/neo/personasim/internal/persona"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() Request {
	p := persona.Default()
	p.ArticlesRead = []string{"first read", "second read", "third read"}
	return Request{
		SessionID:     "session-1",
		Persona:       p,
		Article:       "Vaccines reduce hospitalisation.",
		CurrentRating: 2.5,
		Memory: []MemoryEntry{
			{Article: "a1", Reaction: "Negative", Rating: 1},
			{Article: "a2", Reaction: "Negative", Rating: 1.5},
			{Article: "a3", Reaction: "Negative", Rating: 2},
			{Article: "a4", Reaction: "Positive", Rating: 2.5},
		},
	}
}

func TestWindow(t *testing.T) {
	mem := testRequest().Memory
	w := Window(mem)
	require.Len(t, w, MemoryWindow)
	assert.Equal(t, "a2", w[0].Article)
	assert.Equal(t, "a4", w[2].Article)
	assert.Len(t, Window(mem[:2]), 2)
}

func TestJudgePrompt(t *testing.T) {
	prompt, err := JudgePrompt(testRequest())
	require.NoError(t, err)

	assert.Contains(t, prompt, "Current Session ID: session-1")
	assert.Contains(t, prompt, "Current Rating: 2.5/4")
	assert.Contains(t, prompt, `"persona_name": "Brian"`)
	assert.Contains(t, prompt, "Article 2: second read")
	assert.NotContains(t, prompt, "third read")
	assert.NotContains(t, prompt, "Article: a1")
	assert.Contains(t, prompt, "Interaction 3:\nArticle: a4")
	assert.Contains(t, prompt, "Vaccines reduce hospitalisation.")
	assert.True(t, strings.HasSuffix(prompt, "REASONING: [5-10 sentences explaining your reaction based on your persona]"))
}

func TestEditorPrompt(t *testing.T) {
	prompt, err := EditorPrompt(testRequest())
	require.NoError(t, err)

	assert.Contains(t, prompt, "Focus on Brian's perspective")
	assert.Contains(t, prompt, "Version 1:\nArticle: a2")
	assert.Contains(t, prompt, LabelChangesSummary)
	assert.Contains(t, prompt, LabelArticle)
	assert.Contains(t, prompt, "above their current level of 2.5/4")
}

func TestRecommendationPromptWithoutMemory(t *testing.T) {
	req := testRequest()
	req.Memory = nil

	prompt, err := RecommendationPrompt(req)
	require.NoError(t, err)
	assert.NotContains(t, prompt, "Your previous interactions")
	assert.Contains(t, prompt, "Your current vaccination acceptance rating is: 2.5/4")
	assert.Contains(t, prompt, LabelRecommendationRating)
}
