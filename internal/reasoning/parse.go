package reasoning

import (
	"errors"
	"fmt"
	"strings"

	"github.com/neo/personasim/internal/rating"
)

// Section labels the prompt templates ask the model to emit, in order.
const (
	LabelReaction             = "REACTION:"
	LabelRating               = "RATING:"
	LabelReasoning            = "REASONING:"
	LabelChangesSummary       = "CHANGES_SUMMARY:"
	LabelArticle              = "ARTICLE:"
	LabelRecommendationRating = "RECOMMENDATION_RATING:"
)

// Fallback values substituted when a response does not follow the format.
const (
	ErrorReaction       = "Error processing response"
	ErrorReasoning      = "Error in response format"
	ErrorChangesSummary = "Error extracting changes summary"
)

var ErrMalformedResponse = errors.New("malformed response")

// Judgment is the persona's reaction to one article
type Judgment struct {
	Reaction  string
	Rating    float64
	Reasoning string
	// RawRating is the value before clamping.
	RawRating float64
	Clamped   bool
	Malformed bool
}

// Edit is the editor's rewrite of an article
type Edit struct {
	Summary   string
	Article   string
	Malformed bool
}

// Recommendation is the persona's closing likelihood to endorse vaccination
type Recommendation struct {
	Rating    float64
	Reasoning string
	RawRating float64
	Clamped   bool
	Malformed bool
}

// sections splits resp on labels, which must all be present in the given
// order. The text after the last label runs to the end of the response.
func sections(resp string, labels ...string) ([]string, error) {
	labelStarts := make([]int, len(labels))
	contentStarts := make([]int, len(labels))
	pos := 0
	for i, label := range labels {
		idx := strings.Index(resp[pos:], label)
		if idx < 0 {
			return nil, fmt.Errorf("%w: missing %s", ErrMalformedResponse, label)
		}
		labelStarts[i] = pos + idx
		contentStarts[i] = labelStarts[i] + len(label)
		pos = contentStarts[i]
	}

	out := make([]string, len(labels))
	for i := range labels {
		end := len(resp)
		if i+1 < len(labels) {
			end = labelStarts[i+1]
		}
		out[i] = strings.TrimSpace(resp[contentStarts[i]:end])
	}
	return out, nil
}

func parseRating(s string) (value, raw float64, clamped bool, err error) {
	raw, err = rating.ParseScore(s)
	if err != nil {
		return 0, 0, false, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	value, clamped = rating.Clamp(raw)
	return value, raw, clamped, nil
}

// ParseJudgment reads a REACTION / RATING / REASONING response.
func ParseJudgment(resp string) (Judgment, error) {
	parts, err := sections(resp, LabelReaction, LabelRating, LabelReasoning)
	if err != nil {
		return Judgment{}, err
	}

	value, raw, clamped, err := parseRating(parts[1])
	if err != nil {
		return Judgment{}, err
	}

	return Judgment{
		Reaction:  parts[0],
		Rating:    value,
		RawRating: raw,
		Clamped:   clamped,
		Reasoning: parts[2],
	}, nil
}

// ParseEdit reads a CHANGES_SUMMARY / ARTICLE response.
func ParseEdit(resp string) (Edit, error) {
	parts, err := sections(resp, LabelChangesSummary, LabelArticle)
	if err != nil {
		return Edit{}, err
	}
	if parts[1] == "" {
		return Edit{}, fmt.Errorf("%w: empty %s", ErrMalformedResponse, LabelArticle)
	}
	return Edit{Summary: parts[0], Article: parts[1]}, nil
}

// ParseRecommendation reads a RECOMMENDATION_RATING / REASONING response.
func ParseRecommendation(resp string) (Recommendation, error) {
	parts, err := sections(resp, LabelRecommendationRating, LabelReasoning)
	if err != nil {
		return Recommendation{}, err
	}

	value, raw, clamped, err := parseRating(parts[0])
	if err != nil {
		return Recommendation{}, err
	}

	return Recommendation{
		Rating:    value,
		RawRating: raw,
		Clamped:   clamped,
		Reasoning: parts[1],
	}, nil
}
