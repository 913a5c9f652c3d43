package agogo

import (
	"log"

	dual "github.com/alphabeth/dqn/dualnet"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// Learn trains the agent's network on self play examples for Config.Epochs epochs.
// Examples with NaN or infinite values are dropped first, and if more than Config.MaxExamples
// remain a random subset of that size is used. The examples themselves are never modified.
//
// Learn holds the agent exclusively: inference calls wait until it returns.
func (a *Agent) Learn(examples []Example, rng *rand.Rand, opts ...dual.TrainOption) error {
	if rng == nil {
		return errors.New("nil random source")
	}
	ex := ValidExamples(examples)
	if dropped := len(examples) - len(ex); dropped > 0 {
		log.Printf("%s: dropped %d examples with non-finite values", a.name, dropped)
	}

	if a.conf.MaxExamples > 0 && len(ex) > a.conf.MaxExamples {
		rng.Shuffle(len(ex), func(i, j int) { ex[i], ex[j] = ex[j], ex[i] })
		ex = ex[:a.conf.MaxExamples]
	}

	if len(ex) < a.conf.BatchSize {
		log.Printf("%s: %d examples is less than a batch of %d, nothing to train", a.name, len(ex), a.conf.BatchSize)
		return nil
	}
	if a.conf.CUDA {
		opts = append([]dual.TrainOption{dual.WithCUDA(true)}, opts...)
	}

	a.Lock()
	defer a.Unlock()
	log.Printf("%s: begin training on %d examples", a.name, len(ex))
	if err := dual.Train(a.conf.NNConf, a.params, ex, a.conf.BatchSize, a.conf.Epochs, rng, opts...); err != nil {
		return errors.WithMessage(err, "Train fail")
	}
	return nil
}

// ValidExamples returns the examples whose board, policy and value are all finite.
// The returned slice is newly allocated.
func ValidExamples(examples []Example) []Example {
	retVal := make([]Example, 0, len(examples))
	for _, ex := range examples {
		if validFloats(ex.Board) && validFloats(ex.Policy) && validFloats([]float32{ex.Value}) {
			retVal = append(retVal, ex)
		}
	}
	return retVal
}

func validFloats(a []float32) bool {
	for _, v := range a {
		if math32.IsInf(v, 0) {
			return false
		}
		if math32.IsNaN(v) {
			return false
		}
	}
	return true
}
