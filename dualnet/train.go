package dual

import (
	"fmt"
	"log"
	"time"

	"github.com/chewxy/math32"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Example is a training example produced by self play.
type Example struct {
	Board  []float32 // encoded position, Features wide
	Policy []float32 // search visit distribution, ActionSpace wide
	Value  float32   // game outcome from the point of view of the side to move
}

// Progress is reported to the Observer after every training step.
// Losses and timings are running averages over the current epoch.
type Progress struct {
	Epoch, Epochs int
	Step, Steps   int

	PolicyLoss float32
	ValueLoss  float32

	DataTime  time.Duration // time spent sampling and gathering a batch
	BatchTime time.Duration // time spent on a whole step
	Elapsed   time.Duration // since the epoch began
}

// Observer receives training progress. It must not retain the Params.
type Observer func(Progress)

type trainOpts struct {
	observer Observer
	cuda     bool
}

// TrainOption configures Train.
type TrainOption func(*trainOpts)

// WithObserver sets the progress observer.
func WithObserver(o Observer) TrainOption {
	return func(opts *trainOpts) { opts.observer = o }
}

// WithCUDA requests that batches are placed on a CUDA device. The CPU engine ignores it;
// the numbers computed are the same either way.
func WithCUDA(use bool) TrainOption {
	return func(opts *trainOpts) { opts.cuda = use }
}

// LogObserver logs an epoch header and one progress line per step.
func LogObserver(l *log.Logger) Observer {
	return func(p Progress) {
		if p.Step == 1 {
			l.Printf("Epoch %d ...", p.Epoch)
		}
		l.Printf("(%d/%d) Data: %.3fs | Batch: %.3fs | Total: %v | Loss_pi: %.4f | Loss_v: %.3f",
			p.Step, p.Steps, p.DataTime.Seconds(), p.BatchTime.Seconds(),
			p.Elapsed.Round(time.Second), p.PolicyLoss, p.ValueLoss)
	}
}

// Train trains p on examples for the given number of epochs.
//
// Every epoch runs len(examples)/batchSize steps. A step draws batchSize example indices
// uniformly with replacement from rng, so an example may be seen several times or not at all
// in an epoch. With zero epochs, or fewer examples than batchSize, nothing happens.
//
// If a sampled batch has a malformed example the step fails and Train returns every problem
// found in that batch; the updates of the previous steps are kept.
func Train(conf Config, p *Params, examples []Example, batchSize, epochs int, rng *rand.Rand, opts ...TrainOption) (err error) {
	if !conf.IsValid() {
		return errors.Errorf("invalid config %+v", conf)
	}
	if err = p.fits(conf); err != nil {
		return err
	}
	if batchSize < 1 {
		return errors.Errorf("batch size %d, expected at least 1", batchSize)
	}
	if epochs < 0 {
		return errors.Errorf("epochs %d, expected at least 0", epochs)
	}
	if rng == nil {
		return errors.New("nil random source")
	}

	var o trainOpts
	for _, opt := range opts {
		opt(&o)
	}
	if o.cuda {
		log.Printf("CUDA requested; this build runs on the CPU engine")
	}

	steps := len(examples) / batchSize
	if steps == 0 || epochs == 0 {
		return nil
	}

	t, err := newTrainer(conf, p, batchSize)
	if err != nil {
		return err
	}
	defer func() {
		t.writeBack(p)
		if cerr := t.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for epoch := 0; epoch < epochs; epoch++ {
		var dataTime, batchTime, piLosses, vLosses meter
		start := time.Now()
		end := start

		for step := 1; step <= steps; step++ {
			ids := make([]int, batchSize)
			for i := range ids {
				ids[i] = rng.Intn(len(examples))
			}
			if err = t.gather(examples, ids); err != nil {
				return errors.WithMessagef(err, "epoch %d step %d", epoch, step)
			}
			dataTime.update(time.Since(end).Seconds(), 1)

			lpi, lv, err := t.step()
			if err != nil {
				return errors.WithMessagef(err, "epoch %d step %d", epoch, step)
			}
			piLosses.update(float64(lpi), batchSize)
			vLosses.update(float64(lv), batchSize)

			batchTime.update(time.Since(end).Seconds(), 1)
			end = time.Now()

			if o.observer != nil {
				o.observer(Progress{
					Epoch:      epoch,
					Epochs:     epochs,
					Step:       step,
					Steps:      steps,
					PolicyLoss: float32(piLosses.avg),
					ValueLoss:  float32(vLosses.avg),
					DataTime:   seconds(dataTime.avg),
					BatchTime:  seconds(batchTime.avg),
					Elapsed:    end.Sub(start),
				})
			}
		}
	}
	return nil
}

// trainer owns the training graph, its machine and the optimiser for one Train call.
type trainer struct {
	conf   Config
	d      *dualnet
	vm     G.VM
	solver G.Solver

	xs, pis, vs *tensor.Dense
}

func newTrainer(conf Config, p *Params, batch int) (*trainer, error) {
	// the graph trains private copies that are written back when training ends
	params := p.Clone().tensors()
	d, err := build(conf, params, batch)
	if err != nil {
		return nil, err
	}
	if err = d.losses(conf); err != nil {
		return nil, err
	}
	return &trainer{
		conf:   conf,
		d:      d,
		vm:     G.NewTapeMachine(d.g, G.BindDualValues(d.learnables...)),
		solver: G.NewAdamSolver(G.WithLearnRate(conf.LearnRate)),
		xs:     tensor.New(tensor.Of(Float), tensor.WithShape(batch, conf.Features)),
		pis:    tensor.New(tensor.Of(Float), tensor.WithShape(batch, conf.ActionSpace)),
		vs:     tensor.New(tensor.Of(Float), tensor.WithShape(batch)),
	}, nil
}

// gather copies the sampled examples into the batch tensors.
func (t *trainer) gather(examples []Example, ids []int) error {
	xs := t.xs.Data().([]float32)
	pis := t.pis.Data().([]float32)
	vs := t.vs.Data().([]float32)

	var errs *multierror.Error
	seen := make(map[int]bool)
	for row, id := range ids {
		ex := examples[id]
		if err := checkExample(t.conf, ex); err != nil {
			if !seen[id] {
				errs = multierror.Append(errs, errors.WithMessage(err, fmt.Sprintf("example %d", id)))
				seen[id] = true
			}
			continue
		}
		copy(xs[row*t.conf.Features:], ex.Board)
		copy(pis[row*t.conf.ActionSpace:], ex.Policy)
		vs[row] = ex.Value
	}
	return errs.ErrorOrNil()
}

// step runs one forward and backward pass and applies the optimiser.
func (t *trainer) step() (lpi, lv float32, err error) {
	t.vm.Reset()
	if err = G.Let(t.d.x, t.xs); err != nil {
		return 0, 0, errors.WithStack(err)
	}
	if err = G.Let(t.d.pis, t.pis); err != nil {
		return 0, 0, errors.WithStack(err)
	}
	if err = G.Let(t.d.vs, t.vs); err != nil {
		return 0, 0, errors.WithStack(err)
	}
	if err = t.vm.RunAll(); err != nil {
		return 0, 0, errors.WithMessage(err, "forward/backward")
	}
	if err = t.solver.Step(G.NodesToValueGrads(t.d.learnables)); err != nil {
		return 0, 0, errors.WithMessage(err, "optimiser step")
	}
	return scalar(t.d.lpi), scalar(t.d.lv), nil
}

// writeBack copies the trained values into p.
func (t *trainer) writeBack(p *Params) {
	dst := p.tensors()
	for i, n := range t.d.learnables {
		copy(dst[i].Data().([]float32), n.Value().Data().([]float32))
	}
}

func (t *trainer) close() error {
	return t.vm.Close()
}

func checkExample(conf Config, ex Example) error {
	var errs *multierror.Error
	if len(ex.Board) != conf.Features {
		errs = multierror.Append(errs, &ShapeError{What: "board", Want: []int{conf.Features}, Got: []int{len(ex.Board)}})
	}
	if len(ex.Policy) != conf.ActionSpace {
		errs = multierror.Append(errs, &ShapeError{What: "policy", Want: []int{conf.ActionSpace}, Got: []int{len(ex.Policy)}})
	}
	if !finite(ex.Board) || !finite(ex.Policy) || !finite([]float32{ex.Value}) {
		errs = multierror.Append(errs, errors.New("non-finite value"))
	}
	return errs.ErrorOrNil()
}

func finite(a []float32) bool {
	for _, v := range a {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// meter keeps a running average.
type meter struct {
	sum   float64
	count int
	avg   float64
}

func (m *meter) update(val float64, n int) {
	m.sum += val * float64(n)
	m.count += n
	m.avg = m.sum / float64(m.count)
}

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }
