package simulation

import (
	"context"
	"fmt"

	"github.com/neo/personasim/internal/logging"
	"github.com/neo/personasim/internal/persona"
)

// RunBatch runs each persona in turn. A failing or panicking persona is
// logged and recorded in its Result; the rest of the batch continues.
func (s *Simulation) RunBatch(ctx context.Context, personas []*persona.Persona) []*Result {
	results := make([]*Result, 0, len(personas))
	for i, p := range personas {
		logging.Info("Simulating persona", map[string]interface{}{
			"index":        i + 1,
			"total":        len(personas),
			"persona_id":   p.ID,
			"persona_name": p.Name,
		})

		res := s.runIsolated(ctx, p)
		results = append(results, res)

		if res.Err != nil {
			logging.Error("Persona simulation failed", map[string]interface{}{
				"persona_id":   p.ID,
				"persona_name": p.Name,
				"error":        res.Err.Error(),
			})
			continue
		}
		logging.Info("Persona simulation complete", map[string]interface{}{
			"persona_id":            p.ID,
			"persona_name":          p.Name,
			"state":                 res.State.String(),
			"iterations":            res.Iterations,
			"final_rating":          res.FinalRating,
			"recommendation_rating": res.RecommendationRating,
			"reasoning":             truncate(res.Reasoning, 150),
		})
	}
	return results
}

func (s *Simulation) runIsolated(ctx context.Context, p *persona.Persona) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			res = &Result{
				PersonaID:   p.ID,
				PersonaName: p.Name,
				Err:         fmt.Errorf("panic during simulation: %v", r),
			}
		}
	}()

	res, err := s.Run(ctx, p)
	if err != nil {
		if res == nil {
			res = &Result{PersonaID: p.ID, PersonaName: p.Name}
		}
		res.Err = err
	}
	return res
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
