package synth

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/neo/personasim/internal/logging"
	"github.com/neo/personasim/internal/metrics"
	"github.com/neo/personasim/internal/rating"
	"github.com/neo/personasim/internal/record"
)

const (
	// recommendationChance is how often a non-final entry carries a
	// recommendation.
	recommendationChance = 0.1
	recommendationSpread = 0.2

	factChance = 0.7
	realChance = 0.6

	// failureTargetGap keeps failure targets a step below the threshold.
	failureTargetGap = 0.1
)

var ErrNoSink = errors.New("sink is required")

// Sink receives every synthesized iteration record
type Sink interface {
	Insert(ctx context.Context, rec record.IterationRecord) error
}

// RosterEntry is a fixed synthetic persona
type RosterEntry struct {
	ID   int    `json:"persona_id"`
	Name string `json:"persona_name"`
}

// DefaultRoster keeps id and name paired across generated files.
var DefaultRoster = []RosterEntry{
	{ID: 1, Name: "Michael"},
	{ID: 2, Name: "Emily"},
	{ID: 3, Name: "David"},
	{ID: 4, Name: "Sarah"},
	{ID: 5, Name: "James"},
	{ID: 6, Name: "Jennifer"},
	{ID: 7, Name: "Robert"},
}

// BatchConfig holds configuration for a synthetic batch
type BatchConfig struct {
	NumEntries    int // global budget across all personas
	SuccessCount  int // personas that should reach the target
	MinIterations int
	MaxIterations int
	Seed          int64 // 0 picks a time-based seed
	Roster        []RosterEntry
	Metrics       *metrics.Metrics
}

// DefaultBatchConfig returns the default configuration for a synthetic batch
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		NumEntries:    550,
		SuccessCount:  5,
		MinIterations: 1,
		MaxIterations: 7,
		Roster:        DefaultRoster,
	}
}

// Validate checks the budgets and success split.
func (c BatchConfig) Validate() error {
	if c.NumEntries < 1 {
		return fmt.Errorf("%w: entry budget must be positive, got %d", ErrInvalidBounds, c.NumEntries)
	}
	if len(c.Roster) == 0 {
		return fmt.Errorf("%w: roster is empty", ErrInvalidBounds)
	}
	if c.SuccessCount < 0 || c.SuccessCount > len(c.Roster) {
		return fmt.Errorf("%w: success count %d outside [0, %d]", ErrInvalidBounds, c.SuccessCount, len(c.Roster))
	}
	if c.MinIterations < 1 || c.MinIterations > c.MaxIterations || c.MaxIterations < 2 {
		return fmt.Errorf("%w: iterations [%d, %d]", ErrInvalidBounds, c.MinIterations, c.MaxIterations)
	}
	return nil
}

// Summary reports what a batch produced
type Summary struct {
	Entries     int     `json:"entries"`
	Personas    int     `json:"personas"`
	Reached     int     `json:"reached"`
	SuccessRate float64 `json:"success_rate"` // percent of the roster
	Failed      int     `json:"failed"`
}

func (s *Summary) setSuccessRate() {
	if s.Personas == 0 {
		return
	}
	s.SuccessRate = float64(s.Reached) / float64(s.Personas) * 100
}

// Assignment is one persona's outcome and ratings for a batch
type Assignment struct {
	RosterEntry
	ShouldReach   bool
	InitialRating float64
	TargetRating  float64
}

// Generator writes synthetic sessions for a roster to a sink
type Generator struct {
	config BatchConfig
	rng    *rand.Rand
	sink   Sink
}

// NewGenerator creates a generator. Seed 0 uses the current time.
func NewGenerator(config BatchConfig, sink Sink) (*Generator, error) {
	if sink == nil {
		return nil, ErrNoSink
	}
	if config.Roster == nil {
		config.Roster = DefaultRoster
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
		sink:   sink,
	}, nil
}

// Assign shuffles the roster; the first SuccessCount personas should reach
// the target. Targets agree with the assigned outcome.
func (g *Generator) Assign() []Assignment {
	roster := make([]RosterEntry, len(g.config.Roster))
	copy(roster, g.config.Roster)
	g.rng.Shuffle(len(roster), func(i, j int) { roster[i], roster[j] = roster[j], roster[i] })

	maxInitial := rating.Denormalize(rating.MaxInitialNormalized)
	maxFinal := rating.Denormalize(rating.MaxFinalNormalized)
	threshold := rating.Round1(rating.TargetRaw(rating.DefaultTarget))

	out := make([]Assignment, len(roster))
	for i, entry := range roster {
		a := Assignment{
			RosterEntry:   entry,
			ShouldReach:   i < g.config.SuccessCount,
			InitialRating: rating.Round1(uniform(g.rng, rating.Min, maxInitial)),
		}
		if a.ShouldReach {
			a.TargetRating = rating.Round1(uniform(g.rng, threshold, maxFinal))
		} else {
			a.TargetRating = rating.Round1(uniform(g.rng, a.InitialRating, threshold-failureTargetGap))
		}
		out[i] = a
	}
	return out
}

// Run synthesizes one session per persona until the entry budget is spent.
// A persona whose progression or writes fail is logged and skipped.
func (g *Generator) Run(ctx context.Context) (Summary, error) {
	assignments := g.Assign()
	summary := Summary{Personas: len(assignments)}

	logging.LogSynthEvent("batch_started", map[string]interface{}{
		"personas":      len(assignments),
		"success_count": g.config.SuccessCount,
		"entry_budget":  g.config.NumEntries,
	})

	for _, a := range assignments {
		if summary.Entries >= g.config.NumEntries {
			break
		}
		if err := ctx.Err(); err != nil {
			summary.setSuccessRate()
			return summary, err
		}

		written, reached, err := g.runPersona(ctx, a, g.config.NumEntries-summary.Entries)
		summary.Entries += written
		if err != nil {
			summary.Failed++
			logging.Error("Synthetic session failed", map[string]interface{}{
				"persona_id":   a.ID,
				"persona_name": a.Name,
				"error":        err.Error(),
			})
			continue
		}
		if reached {
			summary.Reached++
		}
	}

	summary.setSuccessRate()
	logging.LogSynthEvent("batch_finished", map[string]interface{}{
		"entries":      summary.Entries,
		"reached":      summary.Reached,
		"personas":     summary.Personas,
		"success_rate": fmt.Sprintf("%.1f%%", summary.SuccessRate),
	})
	return summary, nil
}

// runPersona writes at most budget records for one persona and reports
// whether any written entry reached the target.
func (g *Generator) runPersona(ctx context.Context, a Assignment, budget int) (int, bool, error) {
	progression, err := Synthesize(g.rng, a.InitialRating, a.TargetRating, a.ShouldReach,
		g.config.MinIterations, g.config.MaxIterations)
	if err != nil {
		return 0, false, err
	}

	sessionID := uuid.New().String()
	article := Article(g.rng)
	maxFinal := rating.Denormalize(rating.MaxFinalNormalized)

	written := 0
	reached := false
	for i, current := range progression {
		if written >= budget {
			break
		}
		iteration := i + 1
		last := iteration == len(progression)

		rec := record.New(sessionID, iteration, a.ID, a.Name, current)
		rec.NormalizedCurrentRating = rating.Round2(rec.NormalizedCurrentRating)
		rec.Article = article
		rec.IsFact = g.rng.Float64() < factChance
		rec.IsReal = g.rng.Float64() < realChance
		if iteration > 1 {
			rec.EditorChanges = ChangesSummary(g.rng)
		}

		if last || g.rng.Float64() < recommendationChance {
			variation := uniform(g.rng, -recommendationSpread, recommendationSpread)
			recommended := rating.Round1(clamp(current+variation, rating.Min, maxFinal))
			rec = rec.WithRecommendation(recommended)
			normalized := rating.Round2(*rec.NormalizedRecommendationRating)
			rec.NormalizedRecommendationRating = &normalized
			rec.Reason = Reasoning(g.rng)
		}

		if err := g.sink.Insert(ctx, rec); err != nil {
			return written, false, fmt.Errorf("failed to write iteration %d: %w", iteration, err)
		}
		written++
		g.config.Metrics.ObserveSyntheticEntry()

		if rating.MeetsTarget(rec.NormalizedCurrentRating, rating.DefaultTarget) {
			reached = true
		}
		if !last {
			article = Article(g.rng)
		}
	}

	logging.LogSynthEvent("session_written", map[string]interface{}{
		"session_id":   sessionID,
		"persona_id":   a.ID,
		"persona_name": a.Name,
		"entries":      written,
		"reached":      reached,
		"final_rating": progression.Final(),
	})
	return written, reached, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
