package dual

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gorgonia.org/tensor"
)

func makeExamples(r *rand.Rand, conf Config, n int) []Example {
	xs := randomBoards(r, n, conf.Features).Data().([]float32)
	examples := make([]Example, n)
	for i := range examples {
		policy := make([]float32, conf.ActionSpace)
		for j := 0; j < 4; j++ {
			policy[r.Intn(conf.ActionSpace)] += 0.25
		}
		examples[i] = Example{
			Board:  xs[i*conf.Features : (i+1)*conf.Features],
			Policy: policy,
			Value:  float32(r.Intn(3) - 1),
		}
	}
	return examples
}

func TestTrainZeroEpochs(t *testing.T) {
	conf := smallConf()
	p, err := NewParams(conf, 1)
	require.NoError(t, err)
	before := p.Clone()

	var calls int
	examples := makeExamples(rand.New(rand.NewSource(1)), conf, 8)
	err = Train(conf, p, examples, 4, 0, rand.New(rand.NewSource(2)), WithObserver(func(Progress) { calls++ }))
	require.NoError(t, err)
	assert.True(t, p.Equal(before))
	assert.Zero(t, calls)
}

func TestTrainBatchLargerThanExamples(t *testing.T) {
	conf := smallConf()
	p, err := NewParams(conf, 1)
	require.NoError(t, err)
	before := p.Clone()

	var calls int
	examples := makeExamples(rand.New(rand.NewSource(1)), conf, 3)
	err = Train(conf, p, examples, 4, 5, rand.New(rand.NewSource(2)), WithObserver(func(Progress) { calls++ }))
	require.NoError(t, err)
	assert.True(t, p.Equal(before))
	assert.Zero(t, calls)

	require.NoError(t, Train(conf, p, nil, 4, 5, rand.New(rand.NewSource(2))))
	assert.True(t, p.Equal(before))
}

func TestTrainSteps(t *testing.T) {
	conf := smallConf()
	p, err := NewParams(conf, 1)
	require.NoError(t, err)
	before := p.Clone()

	var got []Progress
	examples := makeExamples(rand.New(rand.NewSource(1)), conf, 11)
	err = Train(conf, p, examples, 4, 3, rand.New(rand.NewSource(2)), WithObserver(func(pr Progress) { got = append(got, pr) }))
	require.NoError(t, err)

	// floor(11/4) = 2 steps per epoch
	require.Len(t, got, 6)
	for i, pr := range got {
		assert.Equal(t, i/2, pr.Epoch)
		assert.Equal(t, 3, pr.Epochs)
		assert.Equal(t, i%2+1, pr.Step)
		assert.Equal(t, 2, pr.Steps)
		assert.True(t, pr.BatchTime >= pr.DataTime)
	}
	assert.False(t, p.Equal(before), "parameters should move")
}

func TestTrainDeterministic(t *testing.T) {
	conf := smallConf()
	examples := makeExamples(rand.New(rand.NewSource(1)), conf, 12)

	run := func() *Params {
		p, err := NewParams(conf, 9)
		require.NoError(t, err)
		require.NoError(t, Train(conf, p, examples, 4, 2, rand.New(rand.NewSource(5))))
		return p
	}
	assert.True(t, run().Equal(run()))
}

func TestTrainDoesNotMutateExamples(t *testing.T) {
	conf := smallConf()
	examples := makeExamples(rand.New(rand.NewSource(1)), conf, 8)
	snapshot := make([]Example, len(examples))
	for i, ex := range examples {
		snapshot[i] = Example{
			Board:  append([]float32(nil), ex.Board...),
			Policy: append([]float32(nil), ex.Policy...),
			Value:  ex.Value,
		}
	}

	p, err := NewParams(conf, 1)
	require.NoError(t, err)
	require.NoError(t, Train(conf, p, examples, 4, 1, rand.New(rand.NewSource(2))))
	assert.Equal(t, snapshot, examples)
}

func TestTrainFirstStepLosses(t *testing.T) {
	conf := smallConf()
	p, err := NewParams(conf, 1)
	require.NoError(t, err)
	examples := makeExamples(rand.New(rand.NewSource(1)), conf, 6)

	const batch = 3
	const seed = 77

	// replay the sampling of the first step
	r := rand.New(rand.NewSource(seed))
	backing := make([]float32, 0, batch*conf.Features)
	var sampled []Example
	for i := 0; i < batch; i++ {
		ex := examples[r.Intn(len(examples))]
		sampled = append(sampled, ex)
		backing = append(backing, ex.Board...)
	}
	policy, value, err := Forward(conf, p, tensor.New(tensor.WithBacking(backing), tensor.WithShape(batch, conf.Features)))
	require.NoError(t, err)

	var wantPi, wantV float64
	pd, vd := policy.Data().([]float32), value.Data().([]float32)
	for i, ex := range sampled {
		for j, target := range ex.Policy {
			wantPi += float64(target * pd[i*conf.ActionSpace+j])
		}
		diff := float64(ex.Value - vd[i])
		wantV += diff * diff
	}
	wantPi = -wantPi / batch
	wantV = -wantV / batch

	var first *Progress
	err = Train(conf, p, examples, batch, 1, rand.New(rand.NewSource(seed)), WithObserver(func(pr Progress) {
		if first == nil {
			first = &pr
		}
	}))
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.InDelta(t, wantPi, first.PolicyLoss, 1e-4)
	assert.InDelta(t, wantV, first.ValueLoss, 1e-4)
	assert.True(t, first.ValueLoss <= 0, "value loss is a negated square")
}

func TestTrainMalformedExample(t *testing.T) {
	conf := smallConf()
	p, err := NewParams(conf, 1)
	require.NoError(t, err)
	before := p.Clone()

	examples := makeExamples(rand.New(rand.NewSource(1)), conf, 4)
	for i := range examples {
		examples[i].Board = examples[i].Board[:100]
	}
	err = Train(conf, p, examples, 2, 1, rand.New(rand.NewSource(2)))
	require.Error(t, err)
	var shapeErr *ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, []int{100}, shapeErr.Got)
	assert.True(t, p.Equal(before), "the failing first step must not update")
}

func TestTrainBadArguments(t *testing.T) {
	conf := smallConf()
	p, err := NewParams(conf, 1)
	require.NoError(t, err)
	examples := makeExamples(rand.New(rand.NewSource(1)), conf, 4)
	r := rand.New(rand.NewSource(2))

	assert.Error(t, Train(conf, p, examples, 0, 1, r))
	assert.Error(t, Train(conf, p, examples, 2, -1, r))
	assert.Error(t, Train(conf, p, examples, 2, 1, nil))
	assert.Error(t, Train(conf, nil, examples, 2, 1, r))

	other := conf
	other.HiddenLayers = 2
	var shapeErr *ShapeError
	assert.True(t, errors.As(Train(other, p, examples, 2, 1, r), &shapeErr))
}

func TestTrainObserverLog(t *testing.T) {
	conf := smallConf()
	p, err := NewParams(conf, 1)
	require.NoError(t, err)
	examples := makeExamples(rand.New(rand.NewSource(1)), conf, 4)

	var buf bytes.Buffer
	l := log.New(&buf, "", 0)
	err = Train(conf, p, examples, 2, 1, rand.New(rand.NewSource(2)), WithObserver(LogObserver(l)), WithCUDA(true))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Epoch 0 ...")
	assert.Contains(t, buf.String(), "(2/2)")
	assert.Contains(t, buf.String(), "Loss_pi:")
}
