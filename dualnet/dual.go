package dual

import (
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Float is the dtype of every tensor in the network.
var Float = tensor.Float32

// dualnet is the expression graph of the network for a fixed batch size.
//
//	x -> [fc -> relu] x HiddenLayers -> fc -> relu -> softmax = policy
//	                                 \-> fc -> relu -> tanh    = value
//
// The relu in front of tanh means the value head never goes below zero.
type dualnet struct {
	g          *G.ExprGraph
	batch      int
	x          *G.Node
	learnables G.Nodes

	policy, value *G.Node

	// training only
	pis, vs *G.Node
	cost    *G.Node
	lpi, lv G.Value
}

// build constructs the forward graph. The learnables are bound to the given tensors,
// so callers that intend to update them must pass copies.
func build(conf Config, ts []*tensor.Dense, batch int) (*dualnet, error) {
	g := G.NewGraph()
	d := &dualnet{
		g:     g,
		batch: batch,
		x:     G.NewMatrix(g, Float, G.WithShape(batch, conf.Features), G.WithName("x")),
	}

	var err error
	h := d.x
	for i := 0; i < conf.HiddenLayers; i++ {
		if h, err = d.fc(h, layerName(conf, i), ts[2*i], ts[2*i+1]); err != nil {
			return nil, err
		}
	}

	pi, err := d.fc(h, "policy", ts[2*conf.HiddenLayers], ts[2*conf.HiddenLayers+1])
	if err != nil {
		return nil, err
	}
	if d.policy, err = G.SoftMax(pi, 1); err != nil {
		return nil, errors.Wrap(err, "policy softmax")
	}

	v, err := d.fc(h, "value", ts[2*conf.HiddenLayers+2], ts[2*conf.HiddenLayers+3])
	if err != nil {
		return nil, err
	}
	if d.value, err = G.Tanh(v); err != nil {
		return nil, errors.Wrap(err, "value tanh")
	}
	return d, nil
}

// fc is a rectified fully connected layer.
func (d *dualnet) fc(in *G.Node, name string, w, b *tensor.Dense) (*G.Node, error) {
	wn := G.NewMatrix(d.g, Float, G.WithShape(w.Shape()...), G.WithName(name+"_w"), G.WithValue(w))
	bn := G.NewMatrix(d.g, Float, G.WithShape(b.Shape()...), G.WithName(name+"_b"), G.WithValue(b))
	d.learnables = append(d.learnables, wn, bn)

	xw, err := G.Mul(in, wn)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: x·w", name)
	}
	xwb, err := G.BroadcastAdd(xw, bn, nil, []byte{0})
	if err != nil {
		return nil, errors.Wrapf(err, "%s: +b", name)
	}
	out, err := G.Rectify(xwb)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: relu", name)
	}
	return out, nil
}

// losses adds the training targets and the two loss terms to the graph.
//
//	loss_pi = -Σ(pis ⊙ policy) / N
//	loss_v  = -Σ(vs - value)² / N
//
// loss_pi is a similarity, not a log likelihood.
// TODO: the sign of loss_v rewards a larger squared error; flip it once trained models
// no longer need to match the existing numbers.
func (d *dualnet) losses(conf Config) (err error) {
	d.pis = G.NewMatrix(d.g, Float, G.WithShape(d.batch, conf.ActionSpace), G.WithName("pis"))
	d.vs = G.NewVector(d.g, Float, G.WithShape(d.batch), G.WithName("vs"))
	n := G.NewConstant(float32(d.batch), G.WithName("N"))

	var prod, sum, mean, lpi *G.Node
	if prod, err = G.HadamardProd(d.pis, d.policy); err != nil {
		return errors.Wrap(err, "policy loss")
	}
	if sum, err = G.Sum(prod); err != nil {
		return errors.Wrap(err, "policy loss")
	}
	if mean, err = G.Div(sum, n); err != nil {
		return errors.Wrap(err, "policy loss")
	}
	if lpi, err = G.Neg(mean); err != nil {
		return errors.Wrap(err, "policy loss")
	}

	var flat, diff, sq, lv *G.Node
	if flat, err = G.Reshape(d.value, tensor.Shape{d.batch}); err != nil {
		return errors.Wrap(err, "value loss")
	}
	if diff, err = G.Sub(d.vs, flat); err != nil {
		return errors.Wrap(err, "value loss")
	}
	if sq, err = G.Square(diff); err != nil {
		return errors.Wrap(err, "value loss")
	}
	if sum, err = G.Sum(sq); err != nil {
		return errors.Wrap(err, "value loss")
	}
	if mean, err = G.Div(sum, n); err != nil {
		return errors.Wrap(err, "value loss")
	}
	if lv, err = G.Neg(mean); err != nil {
		return errors.Wrap(err, "value loss")
	}

	if d.cost, err = G.Add(lpi, lv); err != nil {
		return errors.Wrap(err, "total loss")
	}
	G.Read(lpi, &d.lpi)
	G.Read(lv, &d.lv)

	if _, err = G.Grad(d.cost, d.learnables...); err != nil {
		return errors.Wrap(err, "symbolic differentiation")
	}
	return nil
}

// scalar extracts a float32 from a scalar Value.
func scalar(v G.Value) float32 {
	if v == nil {
		return 0
	}
	switch data := v.Data().(type) {
	case float32:
		return data
	case []float32:
		if len(data) > 0 {
			return data[0]
		}
	}
	return 0
}
