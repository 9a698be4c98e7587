package reasoning

import (
	"context"
	"fmt"
	"time"

	"github.com/neo/personasim/internal/logging"
	"github.com/neo/personasim/internal/metrics"
	"golang.org/x/time/rate"
)

// Agent turns prompts into typed results. Malformed responses never produce
// an error: they are replaced with fixed fallback values and logged. Only
// transport failures from the Completer are returned.
type Agent struct {
	judge       Completer
	editor      Completer
	recommender Completer
	metrics     *metrics.Metrics
	limiter     *rate.Limiter
}

// AgentOption customises an Agent
type AgentOption func(*Agent)

// WithEditor uses a separate completer for article rewrites.
func WithEditor(c Completer) AgentOption {
	return func(a *Agent) { a.editor = c }
}

// WithRecommender uses a separate completer for the closing recommendation.
func WithRecommender(c Completer) AgentOption {
	return func(a *Agent) { a.recommender = c }
}

// WithMetrics records malformed responses and call latency.
func WithMetrics(m *metrics.Metrics) AgentOption {
	return func(a *Agent) { a.metrics = m }
}

// WithRateLimit spaces completion calls to stay under the endpoint's quota.
func WithRateLimit(l *rate.Limiter) AgentOption {
	return func(a *Agent) { a.limiter = l }
}

// NewAgent creates an agent that sends every prompt to c unless overridden.
func NewAgent(c Completer, opts ...AgentOption) *Agent {
	a := &Agent{judge: c, editor: c, recommender: c}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) complete(ctx context.Context, c Completer, prompt string) (string, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}
	start := time.Now()
	resp, err := c.Complete(ctx, prompt)
	a.metrics.ObserveCompletion(time.Since(start).Seconds())
	return resp, err
}

// Judge asks the persona to react to the article. On a malformed response
// the current rating is kept and the fixed error reaction/reasoning returned.
func (a *Agent) Judge(ctx context.Context, req Request) (Judgment, error) {
	prompt, err := JudgePrompt(req)
	if err != nil {
		return Judgment{}, err
	}

	resp, err := a.complete(ctx, a.judge, prompt)
	if err != nil {
		return Judgment{}, fmt.Errorf("judge request failed: %w", err)
	}

	j, err := ParseJudgment(resp)
	if err != nil {
		a.metrics.ObserveMalformed("judge")
		logging.Warn("Error processing response", map[string]interface{}{
			"session_id":   req.SessionID,
			"error":        err.Error(),
			"raw_response": resp,
		})
		return Judgment{
			Reaction:  ErrorReaction,
			Rating:    req.CurrentRating,
			RawRating: req.CurrentRating,
			Reasoning: ErrorReasoning,
			Malformed: true,
		}, nil
	}

	if j.Clamped {
		a.metrics.ObserveClamped()
		logging.Warn("Rating out of bounds, clamping to valid range", map[string]interface{}{
			"session_id": req.SessionID,
			"rating":     j.RawRating,
			"clamped":    j.Rating,
		})
	}
	return j, nil
}

// Edit asks the editor for a rewritten article. On a malformed response the
// whole raw response becomes the article.
func (a *Agent) Edit(ctx context.Context, req Request) (Edit, error) {
	prompt, err := EditorPrompt(req)
	if err != nil {
		return Edit{}, err
	}

	resp, err := a.complete(ctx, a.editor, prompt)
	if err != nil {
		return Edit{}, fmt.Errorf("editor request failed: %w", err)
	}

	e, err := ParseEdit(resp)
	if err != nil {
		a.metrics.ObserveMalformed("edit")
		logging.Warn("Error processing editor response", map[string]interface{}{
			"session_id":   req.SessionID,
			"error":        err.Error(),
			"raw_response": resp,
		})
		return Edit{
			Summary:   ErrorChangesSummary,
			Article:   resp,
			Malformed: true,
		}, nil
	}
	return e, nil
}

// Recommend asks for the closing recommendation rating.
func (a *Agent) Recommend(ctx context.Context, req Request) (Recommendation, error) {
	prompt, err := RecommendationPrompt(req)
	if err != nil {
		return Recommendation{}, err
	}

	resp, err := a.complete(ctx, a.recommender, prompt)
	if err != nil {
		return Recommendation{}, fmt.Errorf("recommendation request failed: %w", err)
	}

	r, err := ParseRecommendation(resp)
	if err != nil {
		a.metrics.ObserveMalformed("recommendation")
		logging.Warn("Error processing recommendation response", map[string]interface{}{
			"session_id":   req.SessionID,
			"error":        err.Error(),
			"raw_response": resp,
		})
		return Recommendation{
			Rating:    req.CurrentRating,
			RawRating: req.CurrentRating,
			Reasoning: ErrorReasoning,
			Malformed: true,
		}, nil
	}

	if r.Clamped {
		a.metrics.ObserveClamped()
		logging.Warn("Recommendation rating out of bounds, clamping to valid range", map[string]interface{}{
			"session_id": req.SessionID,
			"rating":     r.RawRating,
			"clamped":    r.Rating,
		})
	}
	return r, nil
}
