// Package simulation runs the persona/editor convergence loop: the persona
// judges an article, the editor rewrites it, until the persona's rating
// reaches the target or the iteration cap is hit.
package simulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo/personasim/internal/logging"
	"github.com/neo/personasim/internal/metrics"
	"github.com/neo/personasim/internal/persona"
	"github.com/neo/personasim/internal/rating"
	"github.com/neo/personasim/internal/reasoning"
	"github.com/neo/personasim/internal/record"
	"github.com/neo/personasim/internal/types"
)

// DefaultArticle is the first article every session starts from.
const DefaultArticle = "Recent studies have shown that COVID-19 vaccines continue to provide strong protection against severe illness and hospitalization. The latest data from health authorities indicates that vaccinated individuals are significantly less likely to experience severe symptoms or require hospitalization compared to unvaccinated individuals. This protection is particularly important for older adults and those with underlying health conditions."

var (
	ErrInvalidConfig = errors.New("invalid simulation config")
	ErrNoReasoner    = errors.New("reasoner is required")
)

// Reasoner produces the persona's judgments, the editor's rewrites and the
// closing recommendation. Errors mean the endpoint itself failed; malformed
// output is recovered inside the reasoner.
type Reasoner interface {
	Judge(ctx context.Context, req reasoning.Request) (reasoning.Judgment, error)
	Edit(ctx context.Context, req reasoning.Request) (reasoning.Edit, error)
	Recommend(ctx context.Context, req reasoning.Request) (reasoning.Recommendation, error)
}

// Sink receives every iteration record as it is produced
type Sink interface {
	Insert(ctx context.Context, rec record.IterationRecord) error
}

// Config holds configuration for a simulation run
type Config struct {
	MaxIterations  int
	TargetRating   float64 // normalized, 0-1
	InitialArticle string
	IsFact         bool
	IsReal         bool
	Metrics        *metrics.Metrics
}

// DefaultConfig returns the default configuration for a simulation
func DefaultConfig() Config {
	return Config{
		MaxIterations:  10,
		TargetRating:   rating.DefaultTarget,
		InitialArticle: DefaultArticle,
		IsFact:         true,
		IsReal:         true,
	}
}

// Validate checks the iteration cap and target range.
func (c Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations must be at least 1, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	if c.TargetRating <= 0 || c.TargetRating > 1 {
		return fmt.Errorf("%w: target rating must be in (0, 1], got %g", ErrInvalidConfig, c.TargetRating)
	}
	return nil
}

// Result summarises one finished session
type Result struct {
	SessionID            string             `json:"session_id"`
	PersonaID            int                `json:"persona_id"`
	PersonaName          string             `json:"persona_name"`
	InitialRating        float64            `json:"initial_rating"`
	FinalRating          float64            `json:"final_rating"`
	RecommendationRating float64            `json:"recommendation_rating"`
	Reasoning            string             `json:"recommendation_reasoning"`
	State                types.SessionState `json:"state"`
	Iterations           int                `json:"iterations"`
	History              []Turn             `json:"history"`
	Err                  error              `json:"-"`
}

// Simulation drives sessions through the convergence loop
type Simulation struct {
	config   Config
	reasoner Reasoner
	sink     Sink
}

// New creates a simulation. A nil sink discards records.
func New(config Config, reasoner Reasoner, sink Sink) (*Simulation, error) {
	if reasoner == nil {
		return nil, ErrNoReasoner
	}
	if config.InitialArticle == "" {
		config.InitialArticle = DefaultArticle
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Simulation{config: config, reasoner: reasoner, sink: sink}, nil
}

// Run takes one persona through the loop and returns the finished session's
// result. Only endpoint failures return an error.
func (s *Simulation) Run(ctx context.Context, p *persona.Persona) (*Result, error) {
	sess := NewSession(p, s.config.InitialArticle)
	logging.LogSessionEvent("started", sess.ID, map[string]interface{}{
		"persona_id":     p.ID,
		"persona_name":   p.Name,
		"initial_rating": p.InitialRating,
		"max_iterations": s.config.MaxIterations,
		"target_rating":  s.config.TargetRating,
	})

	var (
		iteration     int
		editorChanges string
	)

	for sess.GetState() == types.StateRunning {
		iteration++

		judgment, err := s.reasoner.Judge(ctx, sess.Request())
		if err != nil {
			return s.abort(sess, iteration, err)
		}
		s.config.Metrics.ObserveIteration()

		current, clamped := rating.Clamp(judgment.Rating)
		if clamped {
			logging.Warn("Rating out of bounds, clamping to valid range", map[string]interface{}{
				"session_id": sess.ID,
				"rating":     judgment.Rating,
				"clamped":    current,
			})
		}

		article := sess.Request().Article
		sess.AddTurn(Turn{
			Iteration:     iteration,
			Article:       article,
			Reaction:      judgment.Reaction,
			Rating:        current,
			Reasoning:     judgment.Reasoning,
			EditorChanges: editorChanges,
		})

		rec := s.newRecord(sess, iteration, current)
		rec.Article = article
		rec.Reason = judgment.Reasoning
		rec.EditorChanges = editorChanges
		s.write(ctx, rec)

		logging.LogIterationEvent(sess.ID, iteration, map[string]interface{}{
			"reaction":   judgment.Reaction,
			"rating":     current,
			"normalized": rec.NormalizedCurrentRating,
			"malformed":  judgment.Malformed,
		})

		if rating.MeetsTarget(rating.Normalize(current), s.config.TargetRating) {
			sess.SetState(types.StateTargetReached)
			break
		}

		edit, err := s.reasoner.Edit(ctx, sess.Request())
		if err != nil {
			return s.abort(sess, iteration, err)
		}
		logging.Debug("Article edited", map[string]interface{}{
			"session_id": sess.ID,
			"iteration":  iteration,
			"summary":    edit.Summary,
			"diff":       reasoning.DiffSummary(article, edit.Article),
		})
		sess.SetArticle(edit.Article)
		editorChanges = edit.Summary

		if iteration >= s.config.MaxIterations {
			sess.SetState(types.StateExhausted)
		}
	}

	rec, err := s.reasoner.Recommend(ctx, sess.Request())
	if err != nil {
		return s.abort(sess, iteration, err)
	}
	if err := sess.Finalize(rec.Rating, rec.Reasoning); err != nil {
		return s.abort(sess, iteration, err)
	}

	final := s.newRecord(sess, iteration, sess.Request().CurrentRating).WithRecommendation(rec.Rating)
	final.Article = sess.Request().Article
	final.Reason = rec.Reasoning
	s.write(ctx, final)

	result := s.result(sess)
	s.config.Metrics.ObserveSession(result.State.String())
	logging.LogSessionEvent("finished", sess.ID, map[string]interface{}{
		"state":                 result.State.String(),
		"iterations":            result.Iterations,
		"final_rating":          result.FinalRating,
		"recommendation_rating": result.RecommendationRating,
	})
	return result, nil
}

func (s *Simulation) newRecord(sess *Session, iteration int, current float64) record.IterationRecord {
	rec := record.New(sess.ID, iteration, sess.Persona.ID, sess.Persona.Name, current)
	rec.IsFact = s.config.IsFact
	rec.IsReal = s.config.IsReal
	return rec
}

// write never fails the run; sinks are expected to handle their own fallback.
func (s *Simulation) write(ctx context.Context, rec record.IterationRecord) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Insert(ctx, rec); err != nil {
		logging.Error("Failed to persist iteration record", map[string]interface{}{
			"session_id": rec.SessionID,
			"iteration":  rec.Iteration,
			"error":      err.Error(),
		})
	}
}

func (s *Simulation) abort(sess *Session, iteration int, err error) (*Result, error) {
	logging.LogSessionEvent("aborted", sess.ID, map[string]interface{}{
		"iteration": iteration,
		"error":     err.Error(),
	})
	s.config.Metrics.ObserveSession("aborted")
	result := s.result(sess)
	result.Err = err
	return result, fmt.Errorf("session %s aborted at iteration %d: %w", sess.ID, iteration, err)
}

func (s *Simulation) result(sess *Session) *Result {
	sess.mu.RLock()
	history := make([]Turn, len(sess.History))
	copy(history, sess.History)
	res := &Result{
		SessionID:     sess.ID,
		PersonaID:     sess.Persona.ID,
		PersonaName:   sess.Persona.Name,
		InitialRating: sess.Persona.InitialRating,
		FinalRating:   sess.CurrentRating,
		State:         sess.State,
		Iterations:    len(sess.History),
		History:       history,
	}
	sess.mu.RUnlock()

	if rec, ok := sess.Recommendation(); ok {
		res.RecommendationRating = rec.Rating
		res.Reasoning = rec.Reasoning
	}
	return res
}
