// Package rating holds the 1–4 acceptance scale shared by the convergence loop
// and the progression synthesizer.
package rating

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/neo/personasim/internal/types"
)

const (
	Min = 1.0
	Max = 4.0

	// Midpoint splits Positive from Negative reactions.
	Midpoint = 2.5

	// DefaultTarget is the normalized rating at which a session has converged.
	DefaultTarget = 0.8

	// MaxStep bounds the raw change between consecutive synthesized ratings.
	MaxStep = 0.1

	// MaxInitialNormalized caps synthetic starting ratings (raw 2.5).
	MaxInitialNormalized = 0.5

	// MaxFinalNormalized caps synthetic recommendation ratings (raw 3.43).
	MaxFinalNormalized = 0.81

	epsilon = 1e-9
)

var ErrInvalidScore = errors.New("invalid score")

// Normalize maps a raw rating onto [0,1].
func Normalize(raw float64) float64 {
	n := (raw - Min) / (Max - Min)
	return math.Max(0, math.Min(1, n))
}

// Denormalize maps a normalized rating back onto the raw scale.
func Denormalize(n float64) float64 {
	return n*(Max-Min) + Min
}

// Clamp forces raw into [Min, Max] and reports whether it had to.
func Clamp(raw float64) (float64, bool) {
	switch {
	case raw < Min:
		return Min, true
	case raw > Max:
		return Max, true
	default:
		return raw, false
	}
}

// MeetsTarget compares with a small tolerance: raw 3.4 normalizes to
// 0.7999999999999999 in float64 and must still count as 0.8.
func MeetsTarget(normalized, target float64) bool {
	return normalized >= target-epsilon
}

// TargetRaw is the raw-scale equivalent of a normalized target.
func TargetRaw(target float64) float64 {
	return Denormalize(target)
}

// ReactionFor labels a raw rating by the midpoint threshold.
func ReactionFor(raw float64) types.Reaction {
	if raw >= Midpoint {
		return types.ReactionPositive
	}
	return types.ReactionNegative
}

// Round1 rounds to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Round2 rounds to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ParseScore accepts "3", "3.5", "4/4" or "3.5 / 4" and returns the leading
// number. The scale after the slash is ignored.
func ParseScore(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "/"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidScore, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidScore, s)
	}
	return v, nil
}
