package dual

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/tensor"
)

// layer is a fully connected layer: out = in x w + b.
type layer struct {
	name string
	w    *tensor.Dense // (in, out)
	b    *tensor.Dense // (1, out)
}

// Params holds the learnable parameters of a network. It is only ever mutated by Train.
type Params struct {
	layers []layer
}

// NewParams creates the parameters for conf. Weights are Glorot uniform and biases are zero.
// The same seed always yields the same parameters.
func NewParams(conf Config, seed uint64) (*Params, error) {
	if !conf.IsValid() {
		return nil, errors.Errorf("invalid config %+v", conf)
	}
	src := rand.NewSource(seed)
	shapes := conf.layerShapes()
	p := &Params{layers: make([]layer, len(shapes))}
	for i, s := range shapes {
		in, out := s[0], s[1]
		limit := math.Sqrt(6 / float64(in+out))
		dist := distuv.Uniform{Min: -limit, Max: limit, Src: src}

		backing := make([]float32, in*out)
		for j := range backing {
			backing[j] = float32(dist.Rand())
		}
		p.layers[i] = layer{
			name: layerName(conf, i),
			w:    tensor.New(tensor.WithBacking(backing), tensor.WithShape(in, out)),
			b:    tensor.New(tensor.Of(tensor.Float32), tensor.WithShape(1, out)),
		}
	}
	return p, nil
}

func layerName(conf Config, i int) string {
	switch i {
	case conf.HiddenLayers:
		return "policy"
	case conf.HiddenLayers + 1:
		return "value"
	}
	return fmt.Sprintf("fc%d", i+1)
}

// Clone returns a deep copy.
func (p *Params) Clone() *Params {
	retVal := &Params{layers: make([]layer, len(p.layers))}
	for i, l := range p.layers {
		retVal.layers[i] = layer{
			name: l.name,
			w:    l.w.Clone().(*tensor.Dense),
			b:    l.b.Clone().(*tensor.Dense),
		}
	}
	return retVal
}

// Equal reports whether both parameter sets are exactly the same.
func (p *Params) Equal(other *Params) bool {
	if len(p.layers) != len(other.layers) {
		return false
	}
	for i := range p.layers {
		if !equalF32(p.layers[i].w, other.layers[i].w) || !equalF32(p.layers[i].b, other.layers[i].b) {
			return false
		}
	}
	return true
}

// NumParams is the number of learnable scalars.
func (p *Params) NumParams() int {
	var n int
	for _, l := range p.layers {
		n += l.w.Size() + l.b.Size()
	}
	return n
}

// fits checks that the parameters were made for conf.
func (p *Params) fits(conf Config) error {
	if p == nil {
		return errors.New("nil params")
	}
	shapes := conf.layerShapes()
	if len(shapes) != len(p.layers) {
		return &ShapeError{What: "layers", Want: []int{len(shapes)}, Got: []int{len(p.layers)}}
	}
	for i, s := range shapes {
		want := []int{s[0], s[1]}
		if got := []int(p.layers[i].w.Shape()); !p.layers[i].w.Shape().Eq(tensor.Shape(want)) {
			return &ShapeError{What: p.layers[i].name + " weights", Want: want, Got: got}
		}
	}
	return nil
}

// tensors returns the weights and bias of every layer, in graph order.
func (p *Params) tensors() []*tensor.Dense {
	retVal := make([]*tensor.Dense, 0, 2*len(p.layers))
	for _, l := range p.layers {
		retVal = append(retVal, l.w, l.b)
	}
	return retVal
}

// views returns fresh headers over the parameter data. A machine sets engine fields on the
// tensors bound to its graph, so concurrent graphs must not share headers.
func (p *Params) views() []*tensor.Dense {
	ts := p.tensors()
	for i, t := range ts {
		ts[i] = t.ShallowClone()
	}
	return ts
}

func equalF32(a, b *tensor.Dense) bool {
	if !a.Shape().Eq(b.Shape()) {
		return false
	}
	x, y := a.Data().([]float32), b.Data().([]float32)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
