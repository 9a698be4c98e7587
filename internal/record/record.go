// Package record defines the iteration record, the atomic unit written to
// every sink.
package record

import (
	"strconv"

	"github.com/neo/personasim/internal/rating"
	"github.com/neo/personasim/internal/types"
)

// MaxIteration is the largest iteration index the remote table accepts.
const MaxIteration = 10

// IterationRecord captures a session's state at one point in its run
type IterationRecord struct {
	SessionID                      string         `json:"session_id"`
	Iteration                      int            `json:"iteration"`
	PersonaID                      int            `json:"persona_id"`
	PersonaName                    string         `json:"persona_name"`
	CurrentRating                  float64        `json:"current_rating"`
	NormalizedCurrentRating        float64        `json:"normalized_current_rating"`
	Reaction                       types.Reaction `json:"reaction"`
	Article                        string         `json:"article"`
	RecommendationRating           *float64       `json:"recommendation_rating,omitempty"`
	NormalizedRecommendationRating *float64       `json:"normalized_recommendation_rating,omitempty"`
	Reason                         string         `json:"reason"`
	IsFact                         bool           `json:"is_fact"`
	IsReal                         bool           `json:"is_real"`
	EditorChanges                  string         `json:"editor_changes"`
}

// New builds a record whose normalized rating and reaction are derived from
// the raw rating, so the two can never disagree.
func New(sessionID string, iteration, personaID int, personaName string, raw float64) IterationRecord {
	raw, _ = rating.Clamp(raw)
	return IterationRecord{
		SessionID:               sessionID,
		Iteration:               iteration,
		PersonaID:               personaID,
		PersonaName:             personaName,
		CurrentRating:           raw,
		NormalizedCurrentRating: rating.Normalize(raw),
		Reaction:                rating.ReactionFor(raw),
		IsFact:                  true,
		IsReal:                  true,
	}
}

// WithRecommendation attaches a recommendation rating and its normalized pair.
func (r IterationRecord) WithRecommendation(raw float64) IterationRecord {
	raw, _ = rating.Clamp(raw)
	n := rating.Normalize(raw)
	r.RecommendationRating = &raw
	r.NormalizedRecommendationRating = &n
	return r
}

// HasRecommendation reports whether the record carries a recommendation pair.
func (r IterationRecord) HasRecommendation() bool {
	return r.RecommendationRating != nil
}

// ClampIteration keeps an iteration index inside [1, max].
func ClampIteration(i, max int) int {
	if i < 1 {
		return 1
	}
	if max > 0 && i > max {
		return max
	}
	return i
}

// Columns is the canonical column order shared by the CSV and sqlite sinks.
var Columns = []string{
	"session_id",
	"iteration",
	"persona_id",
	"persona_name",
	"current_rating",
	"normalized_current_rating",
	"reaction",
	"article",
	"recommendation_rating",
	"normalized_recommendation_rating",
	"reason",
	"is_fact",
	"is_real",
	"editor_changes",
}

// LegacyColumns matches the remote persona_responses table, whose
// recommendation columns are spelt "recommened". Do not correct them.
var LegacyColumns = []string{
	"session_id",
	"iteration",
	"persona_id",
	"persona_name",
	"current_rating",
	"normalized_current_rating",
	"reaction",
	"article",
	"recommened_rating",
	"normalized_recommened_rating",
	"reason",
	"is_fact",
	"is_real",
	"editor_changes",
}

// Row renders the record in column order as strings. Missing recommendation
// values are empty cells.
func (r IterationRecord) Row() []string {
	return []string{
		r.SessionID,
		strconv.Itoa(r.Iteration),
		strconv.Itoa(r.PersonaID),
		r.PersonaName,
		formatFloat(r.CurrentRating),
		formatFloat(r.NormalizedCurrentRating),
		r.Reaction.String(),
		r.Article,
		formatOptional(r.RecommendationRating),
		formatOptional(r.NormalizedRecommendationRating),
		r.Reason,
		strconv.FormatBool(r.IsFact),
		strconv.FormatBool(r.IsReal),
		r.EditorChanges,
	}
}

// LegacyPayload maps the record onto the remote table's JSON columns.
func (r IterationRecord) LegacyPayload(maxIteration int) map[string]interface{} {
	payload := map[string]interface{}{
		"session_id":                   r.SessionID,
		"iteration":                    ClampIteration(r.Iteration, maxIteration),
		"persona_id":                   r.PersonaID,
		"persona_name":                 r.PersonaName,
		"current_rating":               r.CurrentRating,
		"normalized_current_rating":    r.NormalizedCurrentRating,
		"reaction":                     r.Reaction.String(),
		"article":                      r.Article,
		"recommened_rating":            nil,
		"normalized_recommened_rating": nil,
		"reason":                       r.Reason,
		"is_fact":                      r.IsFact,
		"is_real":                      r.IsReal,
		"editor_changes":               r.EditorChanges,
	}
	if r.RecommendationRating != nil {
		payload["recommened_rating"] = *r.RecommendationRating
	}
	if r.NormalizedRecommendationRating != nil {
		payload["normalized_recommened_rating"] = *r.NormalizedRecommendationRating
	}
	return payload
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
