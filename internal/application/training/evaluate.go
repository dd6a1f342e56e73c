package training

import (
	"context"

	"github.com/vishalbelsare/cherry-go/internal/application/agent"
	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/env"
)

// Evaluate plays episodes greedily without learning and returns their
// scores.
func Evaluate[S rl.Element](ctx context.Context, a *agent.Agent[S], e env.Environment[S], episodes, maxSteps int) ([]float64, error) {
	scores := make([]float64, 0, episodes)
	for i := 0; i < episodes; i++ {
		a.Reset()
		obs, err := e.Reset()
		if err != nil {
			return scores, err
		}

		var score float64
		for step := 0; step < maxSteps; step++ {
			if err := ctx.Err(); err != nil {
				return scores, err
			}
			if err := a.AppendState(obs); err != nil {
				return scores, err
			}
			d, err := a.Act(false)
			if err != nil {
				return scores, err
			}

			var reward float64
			var done bool
			obs, reward, done, err = e.Step(d.Action)
			if err != nil {
				return scores, err
			}
			score += reward
			if done {
				break
			}
		}
		scores = append(scores, score)
	}
	return scores, nil
}
