package agogo

import (
	"context"
	"sync"

	dual "github.com/alphabeth/dqn/dualnet"
	"github.com/alphabeth/dqn/game"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// An Agent pairs the board encoder with a network.
// Inference calls may run concurrently with each other; Learn excludes them.
type Agent struct {
	sync.RWMutex

	name   string
	conf   Config
	params *dual.Params
}

var _ Inferer = (*Agent)(nil)

// New creates an agent with freshly initialised parameters.
func New(conf Config) (*Agent, error) {
	if !conf.IsValid() {
		return nil, errors.Errorf("invalid config %+v", conf)
	}
	params, err := dual.NewParams(conf.NNConf, conf.Seed)
	if err != nil {
		return nil, err
	}
	name := conf.Name
	if name == "" {
		name = "UNKNOWN AGENT"
	}
	return &Agent{name: name, conf: conf, params: params}, nil
}

// Name of the agent.
func (a *Agent) Name() string { return a.name }

// Config returns the configuration the agent was made with.
func (a *Agent) Config() Config { return a.conf }

// Params returns a copy of the current parameters.
func (a *Agent) Params() *dual.Params {
	a.RLock()
	defer a.RUnlock()
	return a.params.Clone()
}

// Infer returns the raw policy over all 4096 (from, to) pairs and the value of the position.
func (a *Agent) Infer(p game.Position) (policy []float32, value float32, err error) {
	input, err := game.EncodeBoard(p)
	if err != nil {
		return nil, 0, err
	}
	a.RLock()
	defer a.RUnlock()
	return dual.Infer(a.conf.NNConf, a.params, input)
}

// Evaluate is Infer with the policy restricted to the legal moves of the position.
func (a *Agent) Evaluate(p game.Position) (policy []float32, value float32, err error) {
	mask, err := game.EncodeLegalMoves(p)
	if err != nil {
		return nil, 0, err
	}
	raw, value, err := a.Infer(p)
	if err != nil {
		return nil, 0, err
	}
	if policy, err = game.MaskPolicy(raw, mask); err != nil {
		return nil, 0, err
	}
	return policy, value, nil
}

// InferBatch evaluates several positions in one forward pass.
func (a *Agent) InferBatch(ctx context.Context, ps []game.Position) (policies [][]float32, values []float32, err error) {
	xs, err := game.EncodeBatch(ctx, ps)
	if err != nil {
		return nil, nil, err
	}

	var policy, value *tensor.Dense
	a.RLock()
	policy, value, err = dual.Forward(a.conf.NNConf, a.params, xs)
	a.RUnlock()
	if err != nil {
		return nil, nil, err
	}

	pd := policy.Data().([]float32)
	policies = make([][]float32, len(ps))
	for i := range policies {
		policies[i] = pd[i*game.ActionSpace : (i+1)*game.ActionSpace : (i+1)*game.ActionSpace]
	}
	return policies, value.Data().([]float32), nil
}
