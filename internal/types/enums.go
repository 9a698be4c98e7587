package types

import (
	"fmt"
)

// Reaction is the binary reaction label stored on every iteration record
type Reaction string

const (
	ReactionPositive Reaction = "Positive"
	ReactionNegative Reaction = "Negative"
)

// SessionState represents where a convergence loop currently is
type SessionState string

const (
	// StateRunning - the loop is still iterating
	StateRunning SessionState = "running"

	// StateTargetReached - the normalized rating met the target
	StateTargetReached SessionState = "target_reached"

	// StateExhausted - the iteration cap was hit before the target. Not an error.
	StateExhausted SessionState = "exhausted"
)

// ReasoningBackend selects the client used to talk to the text-generation endpoint
type ReasoningBackend string

const (
	BackendOpenAI    ReasoningBackend = "openai"    // sashabaranov/go-openai chat completions
	BackendLangChain ReasoningBackend = "langchain" // tmc/langchaingo llms.LLM
)

// SinkKind names a persistence target for iteration records
type SinkKind string

const (
	SinkAuto   SinkKind = "auto"   // remote if configured, otherwise sqlite, CSV as last resort
	SinkREST   SinkKind = "rest"   // PostgREST / Supabase table
	SinkSQLite SinkKind = "sqlite" // local datastore
	SinkCSV    SinkKind = "csv"    // flat file
)

var (
	// AllSessionStates contains all valid session states
	AllSessionStates = []SessionState{
		StateRunning,
		StateTargetReached,
		StateExhausted,
	}

	// AllSinkKinds contains all valid sink kinds
	AllSinkKinds = []SinkKind{
		SinkAuto,
		SinkREST,
		SinkSQLite,
		SinkCSV,
	}

	reactionMap = map[string]Reaction{
		string(ReactionPositive): ReactionPositive,
		string(ReactionNegative): ReactionNegative,
	}

	backendMap = map[string]ReasoningBackend{
		string(BackendOpenAI):    BackendOpenAI,
		string(BackendLangChain): BackendLangChain,
	}

	sinkKindMap = map[string]SinkKind{
		string(SinkAuto):   SinkAuto,
		string(SinkREST):   SinkREST,
		string(SinkSQLite): SinkSQLite,
		string(SinkCSV):    SinkCSV,
	}
)

// Error types for invalid values
var (
	ErrInvalidReaction = fmt.Errorf("invalid reaction")
	ErrInvalidBackend  = fmt.Errorf("invalid reasoning backend")
	ErrInvalidSinkKind = fmt.Errorf("invalid sink kind")
)

// IsValid checks if the Reaction is valid
func (r Reaction) IsValid() bool {
	_, ok := reactionMap[string(r)]
	return ok
}

// String converts the enum to string
func (r Reaction) String() string {
	return string(r)
}

// ParseReaction parses a string into a Reaction
func ParseReaction(s string) (Reaction, error) {
	if r, ok := reactionMap[s]; ok {
		return r, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidReaction, s)
}

// IsTerminal reports whether the loop has stopped iterating
func (s SessionState) IsTerminal() bool {
	return s == StateTargetReached || s == StateExhausted
}

// String converts the enum to string
func (s SessionState) String() string {
	return string(s)
}

// Description returns a human-readable description of the session state
func (s SessionState) Description() string {
	switch s {
	case StateRunning:
		return "Persona is still reading edited articles"
	case StateTargetReached:
		return "Persona rating reached the target"
	case StateExhausted:
		return "Iteration cap reached before the target"
	default:
		return "Unknown session state"
	}
}

// IsValid checks if the ReasoningBackend is valid
func (b ReasoningBackend) IsValid() bool {
	_, ok := backendMap[string(b)]
	return ok
}

// String converts the enum to string
func (b ReasoningBackend) String() string {
	return string(b)
}

// ParseBackend parses a string into a ReasoningBackend
func ParseBackend(s string) (ReasoningBackend, error) {
	if b, ok := backendMap[s]; ok {
		return b, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidBackend, s)
}

// IsValid checks if the SinkKind is valid
func (k SinkKind) IsValid() bool {
	_, ok := sinkKindMap[string(k)]
	return ok
}

// String converts the enum to string
func (k SinkKind) String() string {
	return string(k)
}

// ParseSinkKind parses a string into a SinkKind
func ParseSinkKind(s string) (SinkKind, error) {
	if k, ok := sinkKindMap[s]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidSinkKind, s)
}

// GetAllSinkKinds returns all valid sink kinds
func GetAllSinkKinds() []SinkKind {
	return AllSinkKinds
}
