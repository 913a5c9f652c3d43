package agogo

import (
	"encoding/json"
	"io"

	dual "github.com/alphabeth/dqn/dualnet"
	"github.com/alphabeth/dqn/game"
	"github.com/pkg/errors"
)

// Config for the Agent.
// It holds the network configuration as well as the knobs of a training run.
type Config struct {
	Name      string      `json:"name"`
	NNConf    dual.Config `json:"nn_conf"`
	BatchSize int         `json:"batch_size"`
	Epochs    int         `json:"epochs"`
	Seed      uint64      `json:"seed"` // parameter initialisation seed
	CUDA      bool        `json:"cuda"`

	// maximum number of examples used by one Learn call, 0 for no limit
	MaxExamples int `json:"max_examples"`
}

// DefaultConfig is the full size network trained for 10 epochs in batches of 64.
func DefaultConfig() Config {
	return Config{
		Name:      "dqn",
		NNConf:    dual.DefaultConf(),
		BatchSize: 64,
		Epochs:    10,
		Seed:      1,
	}
}

// LoadConfig reads a JSON config. Missing fields keep their DefaultConfig values.
func LoadConfig(r io.Reader) (Config, error) {
	conf := DefaultConfig()
	if err := json.NewDecoder(r).Decode(&conf); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if !conf.IsValid() {
		return Config{}, errors.Errorf("invalid config %+v", conf)
	}
	return conf, nil
}

func (c Config) IsValid() bool {
	return c.NNConf.IsValid() &&
		c.NNConf.Features == game.FeatureSize &&
		c.NNConf.ActionSpace == game.ActionSpace &&
		c.BatchSize >= 1 &&
		c.Epochs >= 0 &&
		c.MaxExamples >= 0
}

// Example is a representation of an example.
type Example = dual.Example

// Inferer is anything that can evaluate a position. The search consumes this.
type Inferer interface {
	Infer(p game.Position) (policy []float32, value float32, err error)
}
