package simulation

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/neo/personasim/internal/persona"
	"github.com/neo/personasim/internal/reasoning"
	"github.com/neo/personasim/internal/types"
)

var ErrSessionFinalized = errors.New("session already finalized")

// Turn is one judged article in a session's history
type Turn struct {
	Iteration     int     `json:"iteration"`
	Article       string  `json:"article"`
	Reaction      string  `json:"reaction"` // as returned by the model
	Rating        float64 `json:"rating"`
	Reasoning     string  `json:"reasoning"`
	EditorChanges string  `json:"editor_changes,omitempty"`
}

// FinalRecommendation is set once when the session ends
type FinalRecommendation struct {
	Rating    float64 `json:"rating"`
	Reasoning string  `json:"reasoning"`
}

// Session holds the state of one persona's run through the convergence loop
type Session struct {
	ID            string             `json:"session_id"`
	Persona       *persona.Persona   `json:"-"`
	State         types.SessionState `json:"state"`
	CurrentRating float64            `json:"current_rating"`
	Article       string             `json:"article"`
	History       []Turn             `json:"history"`

	recommendation *FinalRecommendation
	mu             sync.RWMutex
}

// NewSession starts a running session at the persona's initial rating
func NewSession(p *persona.Persona, article string) *Session {
	return &Session{
		ID:            uuid.New().String(),
		Persona:       p,
		State:         types.StateRunning,
		CurrentRating: p.InitialRating,
		Article:       article,
		History:       make([]Turn, 0),
	}
}

// AddTurn appends to the history and moves the current rating.
func (s *Session) AddTurn(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = append(s.History, t)
	s.CurrentRating = t.Rating
}

// Memory returns the trailing window of turns in prompt form.
func (s *Session) Memory() []reasoning.MemoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.History) - reasoning.MemoryWindow
	if start < 0 {
		start = 0
	}
	mem := make([]reasoning.MemoryEntry, 0, len(s.History)-start)
	for _, t := range s.History[start:] {
		mem = append(mem, reasoning.MemoryEntry{
			Article:  t.Article,
			Reaction: t.Reaction,
			Rating:   t.Rating,
		})
	}
	return mem
}

// Request builds the prompt input for the session's current article.
func (s *Session) Request() reasoning.Request {
	mem := s.Memory()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return reasoning.Request{
		SessionID:     s.ID,
		Persona:       s.Persona,
		Article:       s.Article,
		CurrentRating: s.CurrentRating,
		Memory:        mem,
	}
}

// SetArticle replaces the working article
func (s *Session) SetArticle(article string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Article = article
}

// SetState moves the state machine
func (s *Session) SetState(state types.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = state
}

// GetState returns the current state
func (s *Session) GetState() types.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State
}

// Finalize records the closing recommendation. It can only be set once.
func (s *Session) Finalize(rating float64, reasoning string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recommendation != nil {
		return ErrSessionFinalized
	}
	s.recommendation = &FinalRecommendation{Rating: rating, Reasoning: reasoning}
	return nil
}

// Recommendation returns the closing recommendation if the session is finalized.
func (s *Session) Recommendation() (FinalRecommendation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.recommendation == nil {
		return FinalRecommendation{}, false
	}
	return *s.recommendation, true
}

// Iterations returns how many articles were judged
func (s *Session) Iterations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.History)
}
