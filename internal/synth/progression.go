// Package synth manufactures rating progressions and whole synthetic
// sessions without calling a text-generation endpoint.
package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/neo/personasim/internal/rating"
)

var (
	ErrInvalidBounds      = errors.New("invalid progression bounds")
	ErrInconsistentTarget = errors.New("target inconsistent with requested outcome")
)

const (
	// minSuccessSteps and maxSuccessSteps bound the success branch's step budget.
	minSuccessSteps = 4
	maxSuccessSteps = 6

	jitter = 0.01

	// slowHeadroom is where the failure branch switches to small steps.
	slowHeadroom = 0.3
	maxDecrease  = 0.05
	maxSlowRise  = 0.03

	eps = 1e-9
)

// Progression is the sequence of raw ratings of one synthesized session.
// The first entry is the initial rating.
type Progression []float64

// Final returns the last rating.
func (p Progression) Final() float64 {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1]
}

// Reached reports whether the final rating meets the global target.
func (p Progression) Reached() bool {
	return len(p) > 0 && rating.MeetsTarget(rating.Normalize(p.Final()), rating.DefaultTarget)
}

// Steps returns the differences between consecutive ratings.
func (p Progression) Steps() []float64 {
	if len(p) < 2 {
		return nil
	}
	steps := make([]float64, len(p)-1)
	for i := 1; i < len(p); i++ {
		steps[i-1] = p[i] - p[i-1]
	}
	return steps
}

// Synthesize builds a progression starting at initial. With shouldReach the
// progression approaches the global target in bounded steps and ends on or
// above it; otherwise it has exactly maxIter entries that all stay below it.
// target is checked against the requested outcome.
func Synthesize(r *rand.Rand, initial, target float64, shouldReach bool, minIter, maxIter int) (Progression, error) {
	if err := validate(initial, target, shouldReach, minIter, maxIter); err != nil {
		return nil, err
	}
	if shouldReach {
		return succeed(r, initial, maxIter), nil
	}
	return fail(r, initial, maxIter), nil
}

func validate(initial, target float64, shouldReach bool, minIter, maxIter int) error {
	if initial < rating.Min || initial > rating.Max || math.IsNaN(initial) {
		return fmt.Errorf("%w: initial rating %g outside [%g, %g]", ErrInvalidBounds, initial, rating.Min, rating.Max)
	}
	if minIter < 1 || minIter > maxIter {
		return fmt.Errorf("%w: iterations [%d, %d]", ErrInvalidBounds, minIter, maxIter)
	}
	if maxIter < 2 {
		return fmt.Errorf("%w: max iterations must be at least 2, got %d", ErrInvalidBounds, maxIter)
	}

	meets := rating.MeetsTarget(rating.Normalize(target), rating.DefaultTarget)
	if shouldReach && !meets {
		return fmt.Errorf("%w: success target %g is below the threshold", ErrInconsistentTarget, target)
	}
	if !shouldReach {
		if meets {
			return fmt.Errorf("%w: failure target %g reaches the threshold", ErrInconsistentTarget, target)
		}
		if rating.MeetsTarget(rating.Normalize(initial), rating.DefaultTarget) {
			return fmt.Errorf("%w: initial rating %g already reaches the threshold", ErrInconsistentTarget, initial)
		}
	}
	return nil
}

// targetStop is the raw rating of the global target on the one decimal grid.
func targetStop() float64 {
	return rating.Round1(rating.TargetRaw(rating.DefaultTarget))
}

func succeed(r *rand.Rand, initial float64, maxIter int) Progression {
	stop := targetStop()
	p := Progression{initial}
	if rating.MeetsTarget(rating.Normalize(initial), rating.DefaultTarget) {
		return p
	}

	hi := maxSuccessSteps
	if maxIter-1 < hi {
		hi = maxIter - 1
	}
	lo := minSuccessSteps
	if lo > hi {
		lo = hi
	}
	k := lo + r.Intn(hi-lo+1)

	step := math.Min(rating.MaxStep, (stop-initial)/float64(k))
	if step <= 0 {
		step = rating.MaxStep
	}

	cur := initial
	for i := 0; i < k; i++ {
		change := math.Min(rating.MaxStep, step+uniform(r, -jitter, jitter))
		next := rating.Round1(math.Min(stop, cur+change))
		cur = limitStep(cur, next)
		p = append(p, cur)
		if rating.MeetsTarget(rating.Normalize(cur), rating.DefaultTarget) {
			return p
		}
	}

	// Snap to the target. When the length budget is spent the last step
	// becomes the snap instead of adding one.
	if len(p) < maxIter {
		return append(p, stop)
	}
	p[len(p)-1] = stop
	return p
}

func fail(r *rand.Rand, initial float64, maxIter int) Progression {
	ceiling := rating.Round1(targetStop() - rating.MaxStep)
	p := Progression{initial}

	cur := initial
	for len(p) < maxIter {
		headroom := ceiling - cur

		var change float64
		if headroom < slowHeadroom {
			change = uniform(r, -maxDecrease, math.Min(maxSlowRise, headroom*0.3))
		} else {
			change = uniform(r, -maxDecrease, math.Min(rating.MaxStep, headroom*0.2))
		}
		change = math.Max(-rating.MaxStep, math.Min(rating.MaxStep, change))

		next := rating.Round1(math.Max(rating.Min, math.Min(ceiling, cur+change)))
		next = limitStep(cur, next)
		if rating.MeetsTarget(rating.Normalize(next), rating.DefaultTarget) {
			next = ceiling
		}
		cur = next
		p = append(p, cur)
	}
	return p
}

// limitStep keeps next within MaxStep of prev while staying on the one
// decimal grid. Rounding an off-grid prev can otherwise overshoot.
func limitStep(prev, next float64) float64 {
	if next-prev > rating.MaxStep+eps {
		return math.Floor((prev+rating.MaxStep)*10+eps) / 10
	}
	if prev-next > rating.MaxStep+eps {
		return math.Ceil((prev-rating.MaxStep)*10-eps) / 10
	}
	return next
}

// uniform returns a value in [lo, hi]; hi below lo collapses to lo.
func uniform(r *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + r.Float64()*(hi-lo)
}
