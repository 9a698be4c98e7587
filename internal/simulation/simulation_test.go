package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/neo/personasim/internal/persona"
	"github.com/neo/personasim/internal/reasoning"
	"github.com/neo/personasim/internal/record"
	"github.com/neo/personasim/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReasoner returns ratings in order and repeats the last one.
type scriptedReasoner struct {
	ratings   []float64
	recommend float64
	judgeErr  error
	edits     int
	requests  []reasoning.Request
}

func (r *scriptedReasoner) Judge(ctx context.Context, req reasoning.Request) (reasoning.Judgment, error) {
	r.requests = append(r.requests, req)
	if r.judgeErr != nil {
		return reasoning.Judgment{}, r.judgeErr
	}
	i := len(r.requests) - 1
	if i >= len(r.ratings) {
		i = len(r.ratings) - 1
	}
	return reasoning.Judgment{
		Reaction:  "Positive",
		Rating:    r.ratings[i],
		RawRating: r.ratings[i],
		Reasoning: fmt.Sprintf("reasoning %d", i+1),
	}, nil
}

func (r *scriptedReasoner) Edit(ctx context.Context, req reasoning.Request) (reasoning.Edit, error) {
	r.edits++
	return reasoning.Edit{
		Summary: fmt.Sprintf("edit %d", r.edits),
		Article: fmt.Sprintf("article v%d", r.edits+1),
	}, nil
}

func (r *scriptedReasoner) Recommend(ctx context.Context, req reasoning.Request) (reasoning.Recommendation, error) {
	return reasoning.Recommendation{Rating: r.recommend, Reasoning: "would recommend"}, nil
}

type memorySink struct {
	mu      sync.Mutex
	records []record.IterationRecord
	err     error
}

func (m *memorySink) Insert(ctx context.Context, rec record.IterationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func testPersona(id int, name string, initial float64) *persona.Persona {
	return &persona.Persona{
		ID:            id,
		Name:          name,
		InitialRating: initial,
		Attributes:    map[string]interface{}{"persona_name": name},
	}
}

func newTestSimulation(t *testing.T, cfg Config, r Reasoner, sink Sink) *Simulation {
	t.Helper()
	sim, err := New(cfg, r, sink)
	require.NoError(t, err)
	return sim
}

func TestRunReachesTarget(t *testing.T) {
	r := &scriptedReasoner{ratings: []float64{2, 2.5, 3.4}, recommend: 3.5}
	sink := &memorySink{}
	sim := newTestSimulation(t, DefaultConfig(), r, sink)

	res, err := sim.Run(context.Background(), testPersona(1, "Alice", 2))
	require.NoError(t, err)

	assert.Equal(t, types.StateTargetReached, res.State)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 3.4, res.FinalRating)
	assert.Equal(t, 3.5, res.RecommendationRating)
	assert.Equal(t, 2, r.edits)

	require.Len(t, sink.records, 4)
	for i, rec := range sink.records[:3] {
		assert.Equal(t, i+1, rec.Iteration)
		assert.False(t, rec.HasRecommendation())
		assert.Equal(t, res.SessionID, rec.SessionID)
	}
	assert.Equal(t, DefaultArticle, sink.records[0].Article)
	assert.Equal(t, "article v2", sink.records[1].Article)
	assert.Equal(t, "", sink.records[0].EditorChanges)
	assert.Equal(t, "edit 1", sink.records[1].EditorChanges)
	assert.Equal(t, types.ReactionNegative, sink.records[0].Reaction)
	assert.Equal(t, types.ReactionPositive, sink.records[1].Reaction)

	final := sink.records[3]
	assert.Equal(t, 3, final.Iteration)
	require.True(t, final.HasRecommendation())
	assert.Equal(t, 3.5, *final.RecommendationRating)
	assert.InDelta(t, 2.5/3, *final.NormalizedRecommendationRating, 1e-9)
	assert.Equal(t, "would recommend", final.Reason)
}

func TestRunExhaustsAtCap(t *testing.T) {
	r := &scriptedReasoner{ratings: []float64{2}, recommend: 2}
	sink := &memorySink{}
	cfg := DefaultConfig()
	cfg.MaxIterations = 3
	sim := newTestSimulation(t, cfg, r, sink)

	res, err := sim.Run(context.Background(), testPersona(1, "Bob", 2))
	require.NoError(t, err)

	assert.Equal(t, types.StateExhausted, res.State)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 3, r.edits)
	require.Len(t, sink.records, 4)
	assert.Equal(t, 3, sink.records[3].Iteration)
	assert.Equal(t, "article v4", sink.records[3].Article)
}

func TestRunInitialAboveTargetStopsAfterOneJudgment(t *testing.T) {
	r := &scriptedReasoner{ratings: []float64{4}, recommend: 4}
	sink := &memorySink{}
	sim := newTestSimulation(t, DefaultConfig(), r, sink)

	res, err := sim.Run(context.Background(), testPersona(1, "Carol", 3.8))
	require.NoError(t, err)
	assert.Equal(t, types.StateTargetReached, res.State)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, 0, r.edits)
	assert.Len(t, sink.records, 2)
}

func TestRunMemoryWindow(t *testing.T) {
	r := &scriptedReasoner{ratings: []float64{1, 1.5, 2, 2.2, 2.4}, recommend: 2}
	cfg := DefaultConfig()
	cfg.MaxIterations = 5
	sim := newTestSimulation(t, cfg, r, nil)

	_, err := sim.Run(context.Background(), testPersona(1, "Dan", 1))
	require.NoError(t, err)

	require.Len(t, r.requests, 5)
	assert.Empty(t, r.requests[0].Memory)
	assert.Len(t, r.requests[1].Memory, 1)
	assert.Len(t, r.requests[4].Memory, reasoning.MemoryWindow)
	assert.Equal(t, 1.5, r.requests[4].Memory[0].Rating)
	assert.Equal(t, 2.2, r.requests[4].CurrentRating)
}

func TestRunMalformedResponsesRecover(t *testing.T) {
	calls := 0
	completer := reasoning.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "Sorry, I cannot follow that format.", nil
	})
	agent := reasoning.NewAgent(completer)
	sink := &memorySink{}
	cfg := DefaultConfig()
	cfg.MaxIterations = 2
	sim := newTestSimulation(t, cfg, agent, sink)

	res, err := sim.Run(context.Background(), testPersona(7, "Eve", 2))
	require.NoError(t, err)

	assert.Equal(t, types.StateExhausted, res.State)
	assert.Equal(t, 2.0, res.FinalRating)
	assert.Equal(t, 2.0, res.RecommendationRating)
	assert.Equal(t, reasoning.ErrorReasoning, res.Reasoning)
	assert.Equal(t, reasoning.ErrorReaction, res.History[0].Reaction)
	assert.Equal(t, "Sorry, I cannot follow that format.", res.History[1].Article)
	assert.Equal(t, reasoning.ErrorChangesSummary, res.History[1].EditorChanges)
	assert.Equal(t, 5, calls)

	require.Len(t, sink.records, 3)
	assert.Equal(t, types.ReactionNegative, sink.records[0].Reaction)
}

func TestRunTransportErrorAborts(t *testing.T) {
	boom := errors.New("endpoint unavailable")
	r := &scriptedReasoner{ratings: []float64{2}, judgeErr: boom}
	sink := &memorySink{}
	sim := newTestSimulation(t, DefaultConfig(), r, sink)

	res, err := sim.Run(context.Background(), testPersona(1, "Frank", 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	assert.ErrorIs(t, res.Err, boom)
	assert.Empty(t, sink.records)
}

func TestRunSinkFailureDoesNotAbort(t *testing.T) {
	r := &scriptedReasoner{ratings: []float64{3.5}, recommend: 3}
	sink := &memorySink{err: errors.New("disk full")}
	sim := newTestSimulation(t, DefaultConfig(), r, sink)

	res, err := sim.Run(context.Background(), testPersona(1, "Gina", 2))
	require.NoError(t, err)
	assert.Equal(t, types.StateTargetReached, res.State)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(DefaultConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrNoReasoner)

	cfg := DefaultConfig()
	cfg.MaxIterations = 0
	_, err = New(cfg, &scriptedReasoner{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.TargetRating = 1.5
	_, err = New(cfg, &scriptedReasoner{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSessionFinalizeOnce(t *testing.T) {
	sess := NewSession(testPersona(1, "Hal", 2), "article")
	require.NoError(t, sess.Finalize(3, "yes"))
	assert.ErrorIs(t, sess.Finalize(4, "changed my mind"), ErrSessionFinalized)

	rec, ok := sess.Recommendation()
	require.True(t, ok)
	assert.Equal(t, 3.0, rec.Rating)
}

func TestSessionIDsAreUnique(t *testing.T) {
	p := testPersona(1, "Ivy", 2)
	assert.NotEqual(t, NewSession(p, "a").ID, NewSession(p, "a").ID)
}
