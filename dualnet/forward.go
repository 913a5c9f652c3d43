package dual

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Forward runs a batch of feature vectors through the network.
// xs is (N, Features); a vector of Features values is treated as a batch of one.
// It returns the policy, (N, ActionSpace) with each row summing to 1, and the value, (N, 1).
//
// Forward does not modify p. Calls on the same p may run concurrently with each other,
// but not with Train.
func Forward(conf Config, p *Params, xs *tensor.Dense) (policy, value *tensor.Dense, err error) {
	if !conf.IsValid() {
		return nil, nil, errors.Errorf("invalid config %+v", conf)
	}
	if err = p.fits(conf); err != nil {
		return nil, nil, err
	}
	if xs == nil {
		return nil, nil, errors.New("nil input")
	}
	if xs.Dtype() != Float {
		return nil, nil, errors.Errorf("input dtype %v, expected %v", xs.Dtype(), Float)
	}

	shp := xs.Shape()
	switch {
	case shp.Dims() == 1 && shp[0] == conf.Features:
		xs = xs.ShallowClone()
		if err = xs.Reshape(1, conf.Features); err != nil {
			return nil, nil, errors.WithStack(err)
		}
	case shp.Dims() == 2 && shp[0] >= 1 && shp[1] == conf.Features:
	default:
		return nil, nil, &ShapeError{What: "input", Want: []int{-1, conf.Features}, Got: []int(shp.Clone())}
	}

	d, err := build(conf, p.views(), xs.Shape()[0])
	if err != nil {
		return nil, nil, err
	}
	vm := G.NewTapeMachine(d.g)
	defer vm.Close()

	if err = G.Let(d.x, xs); err != nil {
		return nil, nil, errors.WithStack(err)
	}
	if err = vm.RunAll(); err != nil {
		return nil, nil, errors.WithMessage(err, "forward")
	}
	policy = d.policy.Value().(*tensor.Dense).Clone().(*tensor.Dense)
	value = d.value.Value().(*tensor.Dense).Clone().(*tensor.Dense)
	return policy, value, nil
}

// Infer evaluates a single encoded board.
func Infer(conf Config, p *Params, board []float32) (policy []float32, value float32, err error) {
	if len(board) != conf.Features {
		return nil, 0, &ShapeError{What: "input", Want: []int{conf.Features}, Got: []int{len(board)}}
	}
	backing := make([]float32, len(board))
	copy(backing, board)
	xs := tensor.New(tensor.WithBacking(backing), tensor.WithShape(1, conf.Features))

	pt, vt, err := Forward(conf, p, xs)
	if err != nil {
		return nil, 0, err
	}
	return pt.Data().([]float32), vt.Data().([]float32)[0], nil
}
