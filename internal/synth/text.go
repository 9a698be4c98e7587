package synth

import (
	"math/rand"
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

var articleTemplates = []string{
	"Recent studies have shown that COVID-19 vaccines {effectiveness} against {variant}. Research from {institution} indicates that {protection} for {population}, particularly {specific_group}.",
	"Health officials from {agency} announced today that {announcement} regarding COVID-19 vaccinations. The data suggests {implication} for vaccinated individuals compared to {comparison_group}.",
	"A new report by {researchers} explores the {aspect} of COVID-19 vaccines. Their findings demonstrate {result}, which could impact {impact_area} moving forward.",
	"Researchers at {university} have published a study on {study_topic} related to COVID-19 vaccines. The study {study_finding}, adding to our understanding of {knowledge_area}.",
	"According to {expert}, the latest data on vaccine {metric} shows {trend}. This information is particularly relevant for {relevance_group} when considering {consideration}.",
}

var articleVariables = map[string][]string{
	"effectiveness":    {"provide strong protection", "show mixed results", "demonstrate high efficacy", "show declining effectiveness", "maintain robust protection"},
	"variant":          {"the Delta variant", "Omicron subvariants", "emerging variants", "all known variants", "recent virus mutations"},
	"institution":      {"Johns Hopkins University", "the CDC", "WHO researchers", "Oxford University", "Imperial College London", "Mayo Clinic"},
	"protection":       {"protection remains strong", "immunity may wane over time", "booster shots significantly increase protection", "protection varies by age group", "antibody levels remain high"},
	"population":       {"the general population", "high-risk individuals", "previously infected people", "children and adolescents", "elderly populations"},
	"specific_group":   {"those with underlying conditions", "healthcare workers", "immunocompromised individuals", "pregnant women", "essential workers"},
	"agency":           {"the CDC", "WHO", "FDA", "local health departments", "European Medicines Agency", "Health Canada"},
	"announcement":     {"new guidelines have been issued", "booster recommendations have changed", "vaccine eligibility has expanded", "safety monitoring has shown positive results", "combination vaccines are being developed"},
	"implication":      {"reduced hospitalization rates", "fewer severe cases", "lower transmission rates", "more durable immunity", "reduced long-COVID symptoms"},
	"comparison_group": {"unvaccinated populations", "those with natural immunity only", "previously reported data", "different age demographics", "other vaccine types"},
	"researchers":      {"an international team of scientists", "epidemiologists", "immunologists", "public health experts", "vaccine developers"},
	"aspect":           {"long-term immunity", "cross-variant protection", "cellular immune response", "real-world effectiveness", "safety profile"},
	"result":           {"strong T-cell responses", "durable antibody production", "reduced viral shedding", "lower breakthrough infection rates", "minimal side effects"},
	"impact_area":      {"public health policy", "booster recommendations", "vaccine mandates", "travel restrictions", "vulnerable populations"},
	"university":       {"Stanford University", "Harvard Medical School", "University of Oxford", "MIT", "University of Washington"},
	"study_topic":      {"antibody longevity", "breakthrough infections", "vaccine mixing strategies", "demographic response differences", "side effect profiles"},
	"study_finding":    {"confirms previous results", "challenges conventional wisdom", "provides new insights", "reveals unexpected patterns", "supports current recommendations"},
	"knowledge_area":   {"vaccine efficacy", "immune response mechanisms", "public health strategies", "personalized vaccination approaches", "herd immunity thresholds"},
	"expert":           {"Dr. Anthony Fauci", "WHO officials", "leading epidemiologists", "vaccine researchers", "the Surgeon General"},
	"metric":           {"effectiveness", "safety", "uptake", "distribution", "development"},
	"trend":            {"encouraging improvements", "concerning patterns", "steady performance", "geographic variations", "demographic differences"},
	"relevance_group":  {"parents", "travelers", "medical professionals", "policymakers", "educators"},
	"consideration":    {"future vaccination decisions", "public health messaging", "institutional policies", "personal risk assessment", "community protection"},
}

var reasoningTemplates = []string{
	"Based on my {background} and {values}, I {sentiment} the information in this article. The claims about {topic} {alignment} with my understanding of {belief_area}. I particularly {reaction_type} the mention of {mentioned_aspect}, which {impact} my {decision_area}.",
	"As someone with {trait}, I find this article {credibility}. The {evidence_type} presented {evidence_quality} and {evidence_impact} my views on vaccination. Given my {personal_factor}, I remain {stance} about getting {vaccine_action}.",
	"This article {article_quality} because it {article_reason}. I {trust_level} trust the {source_type} mentioned, and the {data_type} {data_quality}. Coming from my {perspective} background, I {conclusion} about the vaccine recommendations.",
	"The information about {vaccine_aspect} {agreement_level} with what I've heard from {trusted_source}. As someone who values {personal_value}, I find the article's emphasis on {emphasis} to be {evaluation}. This {change_level} my thinking about vaccination.",
	"Reading about the {research_aspect} makes me feel {emotion} because of my {personal_history}. I {stance_verb} with the article's position on {position_topic} and {likelihood} consider this information when making decisions about {decision_topic}.",
}

var reasoningVariables = map[string][]string{
	"background":       {"healthcare", "scientific", "educational", "technical", "religious", "cultural", "community-oriented"},
	"values":           {"personal freedom", "community safety", "scientific evidence", "traditional wisdom", "family wellbeing", "individual choice"},
	"sentiment":        {"agree with", "am skeptical of", "trust", "question", "appreciate", "have reservations about"},
	"topic":            {"vaccine efficacy", "safety concerns", "long-term effects", "breakthrough infections", "immunity duration", "protection levels"},
	"alignment":        {"aligns closely", "somewhat aligns", "conflicts", "contradicts", "partially supports", "reinforces"},
	"belief_area":      {"medical science", "public health", "personal health choices", "risk assessment", "institutional trustworthiness"},
	"reaction_type":    {"appreciate", "question", "trust", "doubt", "support", "disagree with"},
	"mentioned_aspect": {"vulnerable populations", "side effect rates", "protection duration", "specific variants", "research methodology"},
	"impact":           {"strengthens", "challenges", "confirms", "undermines", "informs", "complicates"},
	"decision_area":    {"vaccination decisions", "risk assessment", "information sharing", "healthcare choices", "family recommendations"},
	"trait":            {"a healthcare background", "concerns about novel technologies", "experience in research", "community health involvement", "personal health conditions"},
	"credibility":      {"highly credible", "somewhat reliable", "questionable", "concerning", "informative", "reassuring"},
	"evidence_type":    {"statistical data", "expert opinions", "research findings", "anecdotal examples", "comparative analysis"},
	"evidence_quality": {"seems robust", "lacks context", "appears comprehensive", "raises questions", "provides clarity"},
	"evidence_impact":  {"reinforces", "challenges", "slightly shifts", "significantly changes", "has little effect on"},
	"personal_factor":  {"health history", "professional expertise", "family situation", "risk tolerance", "information sources"},
	"stance":           {"confident", "cautious", "skeptical", "reassured", "uncertain", "convinced"},
	"vaccine_action":   {"vaccinated", "boosters", "additional doses", "alternative protections"},
	"article_quality":  {"seems trustworthy", "raises red flags", "provides valuable insights", "appears biased", "presents balanced information"},
	"article_reason":   {"cites credible sources", "oversimplifies complex issues", "addresses common concerns", "ignores important factors", "presents diverse perspectives"},
	"trust_level":      {"fully", "somewhat", "barely", "don't", "conditionally"},
	"source_type":      {"institutions", "experts", "research groups", "government agencies", "medical professionals"},
	"data_type":        {"statistics", "research findings", "case studies", "clinical trials", "population data"},
	"data_quality":     {"appears solid", "seems limited", "lacks context", "is compelling", "raises questions"},
	"perspective":      {"medical", "scientific", "community-focused", "family-oriented", "individual rights", "public health"},
	"conclusion":       {"feel more confident", "remain uncertain", "have increased concerns", "am more positively inclined", "have mixed feelings"},
	"vaccine_aspect":   {"efficacy rates", "safety profiles", "development process", "distribution priorities", "booster recommendations"},
	"agreement_level":  {"strongly agrees", "somewhat aligns", "partially conflicts", "directly contradicts", "adds nuance"},
	"trusted_source":   {"my doctor", "family members in healthcare", "community leaders", "personal research", "trusted news sources"},
	"personal_value":   {"scientific evidence", "personal autonomy", "community wellbeing", "traditional wisdom", "family safety"},
	"emphasis":         {"individual protection", "community benefit", "specific demographics", "risk-benefit analysis", "ongoing research"},
	"evaluation":       {"compelling", "concerning", "reassuring", "questionable", "thought-provoking"},
	"change_level":     {"significantly changes", "somewhat shifts", "slightly influences", "reinforces", "has little impact on"},
	"research_aspect":  {"clinical trial data", "real-world effectiveness", "demographic variations", "side effect profiles", "protection duration"},
	"emotion":          {"reassured", "concerned", "conflicted", "validated", "skeptical", "hopeful"},
	"personal_history": {"medical background", "previous vaccination experiences", "family health history", "information sources", "risk tolerance"},
	"stance_verb":      {"strongly agree", "somewhat agree", "neither agree nor disagree", "somewhat disagree", "strongly disagree"},
	"position_topic":   {"vaccine safety", "effectiveness claims", "population recommendations", "booster timing", "risk groups"},
	"likelihood":       {"will definitely", "probably will", "might", "probably won't", "definitely won't"},
	"decision_topic":   {"vaccination", "boosters", "discussing with others", "seeking more information", "health precautions"},
}

var editorChanges = []string{
	"Adjusted tone to better align with the reader's values",
	"Added more specific data points from trusted sources",
	"Emphasized community protection benefits",
	"Included more information about safety monitoring",
	"Acknowledged concerns while providing factual context",
	"Added perspectives from diverse experts",
	"Clarified the risk-benefit analysis",
	"Included more detail about the research methodology",
	"Focused more on long-term data",
	"Addressed specific concerns mentioned in previous feedback",
}

func pick(r *rand.Rand, options []string) string {
	return options[r.Intn(len(options))]
}

// fill replaces each {name} in tmpl with a random option for that name.
// Unknown names are left as they are.
func fill(r *rand.Rand, tmpl string, vars map[string][]string) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		options, ok := vars[m[1:len(m)-1]]
		if !ok || len(options) == 0 {
			return m
		}
		return pick(r, options)
	})
}

// Article composes one templated article followed by one to three more
// templated sentences.
func Article(r *rand.Rand) string {
	parts := []string{fill(r, pick(r, articleTemplates), articleVariables)}
	extra := 1 + r.Intn(3)
	for i := 0; i < extra; i++ {
		parts = append(parts, fill(r, pick(r, articleTemplates), articleVariables))
	}
	return strings.Join(parts, " ")
}

// Reasoning composes a persona's templated reasoning.
func Reasoning(r *rand.Rand) string {
	return fill(r, pick(r, reasoningTemplates), reasoningVariables)
}

// ChangesSummary picks one to three distinct editor changes.
func ChangesSummary(r *rand.Rand) string {
	n := 1 + r.Intn(3)
	idx := r.Perm(len(editorChanges))[:n]
	picked := make([]string, n)
	for i, j := range idx {
		picked[i] = editorChanges[j]
	}
	return strings.Join(picked, ". ")
}
