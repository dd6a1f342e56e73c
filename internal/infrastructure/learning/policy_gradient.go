package learning

import (
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/vishalbelsare/cherry-go/internal/domain/rl"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/nn"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/optim"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/returns"
	"github.com/vishalbelsare/cherry-go/internal/infrastructure/schedule"
)

// PolicyGradientLearner implements REINFORCE and, with a critic network,
// actor-critic. The critic has its own optimiser and is updated
// independently of the policy.
type PolicyGradientLearner struct {
	algorithm rl.Algorithm
	policy    *nn.MLP
	critic    *nn.MLP
	policyOpt optim.Optimizer
	criticOpt optim.Optimizer
	rng       *rand.Rand

	gamma float64
	clip  float64

	trajectory Trajectory
	stats
}

// NewPolicyGradient creates a policy-gradient learner.
func NewPolicyGradient(cfg rl.AgentConfig, rng *rand.Rand) (*PolicyGradientLearner, error) {
	if cfg.Algorithm != rl.AlgorithmReinforce && cfg.Algorithm != rl.AlgorithmActorCritic {
		return nil, fmt.Errorf("%w: %s is not a policy-gradient algorithm", rl.ErrInvalidConfig, cfg.Algorithm)
	}
	if rng == nil {
		rng = newRand(cfg.Seed)
	}

	inputs := cfg.FrameSize() * cfg.StateSize
	policy, err := nn.NewMLP(inputs, cfg.ActionSize, cfg.HiddenSizes, rng)
	if err != nil {
		return nil, err
	}
	policyOpt, err := optim.New(cfg.Optimizer, cfg.LearningRate)
	if err != nil {
		return nil, err
	}

	l := &PolicyGradientLearner{
		algorithm: cfg.Algorithm,
		policy:    policy,
		policyOpt: policyOpt,
		rng:       rng,
		gamma:     cfg.Gamma,
		clip:      cfg.GradClip,
	}

	if cfg.Algorithm == rl.AlgorithmActorCritic {
		if l.critic, err = nn.NewMLP(inputs, 1, cfg.HiddenSizes, rng); err != nil {
			return nil, err
		}
		if l.criticOpt, err = optim.New(cfg.Optimizer, cfg.LearningRate); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Algorithm implements Learner.
func (l *PolicyGradientLearner) Algorithm() rl.Algorithm { return l.algorithm }

func (l *PolicyGradientLearner) learner() {}

// Act samples an action from softmax(logits) when exploring and takes the
// argmax otherwise.
func (l *PolicyGradientLearner) Act(features []float64, explore bool) (rl.Decision, error) {
	if want := l.policy.Inputs(); len(features) != want {
		return rl.Decision{}, rl.ShapeError("state features", want, len(features))
	}

	logits, _ := l.policy.Forward(mat.NewDense(1, len(features), append([]float64(nil), features...)))
	values := mat.Row(nil, 0, logits)

	if !explore {
		return rl.Decision{Action: schedule.Argmax(values), Greedy: true, Values: values}, nil
	}

	probs := nn.Softmax(values)
	u := l.rng.Float64()
	action := len(probs) - 1
	var cum float64
	for i, p := range probs {
		cum += p
		if u < cum {
			action = i
			break
		}
	}
	return rl.Decision{Action: action, Values: values}, nil
}

// Trajectory returns the experience recorder consumed by Learn.
func (l *PolicyGradientLearner) Trajectory() *Trajectory {
	return &l.trajectory
}

// Learn optimises over every finished episode in the trajectory and then
// clears it. Each episode's returns are normalised on their own.
func (l *PolicyGradientLearner) Learn() (rl.UpdateResult, error) {
	if l.trajectory.Pending() == 0 {
		return rl.UpdateResult{}, rl.ErrEmptyTrajectory
	}
	if err := l.validate(l.trajectory.finished); err != nil {
		return rl.UpdateResult{}, err
	}
	start := time.Now()
	episodes := l.trajectory.Drain()

	l.policy.ZeroGrad()
	if l.critic != nil {
		l.critic.ZeroGrad()
	}

	var policyLoss, valueLoss float64
	steps := 0
	for _, ep := range episodes {
		pl, vl, err := l.accumulate(ep)
		if err != nil {
			l.trajectory.finished = append(episodes, l.trajectory.finished...)
			l.policy.ZeroGrad()
			if l.critic != nil {
				l.critic.ZeroGrad()
			}
			return rl.UpdateResult{}, err
		}
		policyLoss += pl
		valueLoss += vl
		steps += ep.Len()
	}

	l.step(l.policy, l.policyOpt)
	if l.critic != nil {
		l.step(l.critic, l.criticOpt)
	}

	loss := policyLoss + valueLoss
	return rl.UpdateResult{
		Loss:       loss,
		PolicyLoss: policyLoss,
		ValueLoss:  valueLoss,
		BatchSize:  steps,
		Episodes:   len(episodes),
		LatencyMs:  l.record(loss, start),
	}, nil
}

// accumulate backpropagates one episode's losses into the policy and
// critic gradients.
func (l *PolicyGradientLearner) accumulate(ep Episode) (policyLoss, valueLoss float64, err error) {
	n := ep.Len()
	g := returns.NormalizedReturns(ep.Rewards, l.gamma)

	x := mat.NewDense(n, l.policy.Inputs(), nil)
	for t, row := range ep.Features {
		x.SetRow(t, row)
	}

	advantage := g
	if l.critic != nil {
		_, values := l.critic.Forward(x)
		advantage = make([]float64, n)
		dV := mat.NewVecDense(n, nil)
		for t := 0; t < n; t++ {
			v := values.AtVec(t)
			advantage[t] = g[t] - v
			li, gi := nn.SmoothL1(v - g[t])
			valueLoss += li / float64(n)
			dV.SetVec(t, gi/float64(n))
		}
		l.critic.Backward(nil, dV)
	}

	actions := l.policy.Outputs()
	logits, _ := l.policy.Forward(x)
	dLogits := mat.NewDense(n, actions, nil)
	for t := 0; t < n; t++ {
		a := ep.Actions[t]
		row := mat.Row(nil, t, logits)
		logProbs := nn.LogSoftmax(row)
		probs := nn.Softmax(row)

		policyLoss -= logProbs[a] * advantage[t]
		// d(-log pi(a) * A)/dlogits = A * (softmax - onehot(a))
		for j := 0; j < actions; j++ {
			grad := probs[j]
			if j == a {
				grad -= 1
			}
			dLogits.Set(t, j, advantage[t]*grad)
		}
	}
	l.policy.Backward(dLogits, nil)

	return policyLoss, valueLoss, nil
}

// validate checks feature widths and actions of every pending episode so
// that a malformed episode is rejected before anything is consumed.
func (l *PolicyGradientLearner) validate(episodes []Episode) error {
	inputs, actions := l.policy.Inputs(), l.policy.Outputs()
	for i, ep := range episodes {
		if len(ep.Features) != ep.Len() || len(ep.Rewards) != ep.Len() {
			return fmt.Errorf("%w: episode %d has %d feature rows, %d actions and %d rewards",
				rl.ErrShapeMismatch, i, len(ep.Features), ep.Len(), len(ep.Rewards))
		}
		for _, row := range ep.Features {
			if len(row) != inputs {
				return rl.ShapeError("state features", inputs, len(row))
			}
		}
		for _, a := range ep.Actions {
			if a < 0 || a >= actions {
				return fmt.Errorf("%w: action %d outside [0, %d)", rl.ErrShapeMismatch, a, actions)
			}
		}
	}
	return nil
}

func (l *PolicyGradientLearner) step(net *nn.MLP, opt optim.Optimizer) {
	params := net.Params()
	if l.clip > 0 {
		nn.ClampGrads(params, -l.clip, l.clip)
	}
	opt.Step(params)
}

// Params implements Learner: policy parameters followed by critic
// parameters when present.
func (l *PolicyGradientLearner) Params() []*nn.Param {
	params := l.policy.Params()
	if l.critic != nil {
		params = append(params, l.critic.Params()...)
	}
	return params
}

// Policy returns the policy network.
func (l *PolicyGradientLearner) Policy() *nn.MLP { return l.policy }

// Critic returns the critic network, nil for REINFORCE.
func (l *PolicyGradientLearner) Critic() *nn.MLP { return l.critic }

// Stats implements Learner.
func (l *PolicyGradientLearner) Stats() rl.Stats {
	return rl.Stats{
		Algorithm:   l.algorithm,
		UpdateCount: l.updateCount,
		BufferSize:  l.trajectory.Steps(),
		AvgLoss:     l.avgLoss,
		LastUpdate:  l.lastUpdate,
	}
}
