// Package network composes layers into a feed-forward network and
// assembles its whole-network parameter Jacobian by reverse
// chain-rule accumulation, without ever materializing an intermediate
// of the full network width.
package network

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"secondorder/layer"
)

// ErrShapeMismatch is returned when layer dimensions don't chain, or
// a supplied parameter/input vector has the wrong length.
var ErrShapeMismatch = errors.New("network: shape mismatch")

// ErrProtocol is returned when Jacobian is requested without a prior
// matched Forward/Backward pass.
var ErrProtocol = errors.New("network: protocol violation")

// Network is an ordered, immutable composition of layers. It owns
// its layers exclusively: Forward/Backward mutate their per-layer
// caches, so a Network is not safe for concurrent use and must not be
// shared between trainers.
type Network struct {
	layers      []layer.Layer
	offsets     []int
	paramsCount int
	neuronsIn   int
	neuronsOut  int

	// layerInputs[k] is the signal that was actually fed into
	// layers[k] during the last Forward call: layerInputs[0] is the
	// network input x, layerInputs[k] is layers[k-1]'s output.
	layerInputs [][]float64
	forwarded   bool
	backed      bool
}

// New composes layers into a Network. It fails with ErrShapeMismatch
// if consecutive layers' widths don't match, or if no layers are
// supplied.
func New(layers ...layer.Layer) (*Network, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("network.New: %w: at least one layer is required", ErrShapeMismatch)
	}
	offsets := make([]int, len(layers))
	acc := 0
	for k, l := range layers {
		if k > 0 && layers[k-1].NeuronsOut() != l.NeuronsIn() {
			return nil, fmt.Errorf("network.New: %w: layer %d output %d != layer %d input %d",
				ErrShapeMismatch, k-1, layers[k-1].NeuronsOut(), k, l.NeuronsIn())
		}
		offsets[k] = acc
		acc += l.ParamsCount()
	}
	return &Network{
		layers:      layers,
		offsets:     offsets,
		paramsCount: acc,
		neuronsIn:   layers[0].NeuronsIn(),
		neuronsOut:  layers[len(layers)-1].NeuronsOut(),
	}, nil
}

// ParamsCount is the total parameter count across all layers.
func (n *Network) ParamsCount() int { return n.paramsCount }

// NeuronsIn is the first layer's input width.
func (n *Network) NeuronsIn() int { return n.neuronsIn }

// NeuronsOut is the last layer's output width.
func (n *Network) NeuronsOut() int { return n.neuronsOut }

// Layers returns the network's layers in composition order.
func (n *Network) Layers() []layer.Layer { return n.layers }

// Offset returns the parameter-vector offset of layer k.
func (n *Network) Offset(k int) int { return n.offsets[k] }

func (n *Network) slice(p []float64, k int) []float64 {
	return p[n.offsets[k] : n.offsets[k]+n.layers[k].ParamsCount()]
}

func (n *Network) checkParams(p []float64) error {
	if len(p) != n.paramsCount {
		return fmt.Errorf("%w: expected %d params, got %d", ErrShapeMismatch, n.paramsCount, len(p))
	}
	return nil
}

// Eval is the pure, stateless prediction path: it chains every
// layer's Eval and does not mutate p or any layer cache.
func (n *Network) Eval(p, x []float64) ([]float64, error) {
	if err := n.checkParams(p); err != nil {
		return nil, fmt.Errorf("network.Eval: %w", err)
	}
	cur := x
	for k, l := range n.layers {
		y, err := l.Eval(n.slice(p, k), cur)
		if err != nil {
			return nil, fmt.Errorf("network.Eval: layer %d: %w", k, err)
		}
		cur = y
	}
	return cur, nil
}

// Forward chains every layer's stateful Forward, recording the
// signal fed into each layer so a later Jacobian call can assemble
// chain_end contributions without re-running the network.
func (n *Network) Forward(p, x []float64) ([]float64, error) {
	if err := n.checkParams(p); err != nil {
		return nil, fmt.Errorf("network.Forward: %w", err)
	}
	n.layerInputs = make([][]float64, len(n.layers))
	cur := x
	for k, l := range n.layers {
		n.layerInputs[k] = cur
		y, err := l.Forward(n.slice(p, k), cur)
		if err != nil {
			return nil, fmt.Errorf("network.Forward: layer %d: %w", k, err)
		}
		cur = y
	}
	n.forwarded = true
	n.backed = false
	return cur, nil
}

// Backward runs each layer's Backward on its parameter slice. It
// must follow a matching Forward call.
func (n *Network) Backward(p []float64) error {
	if !n.forwarded {
		return fmt.Errorf("network.Backward: %w: no prior Forward", ErrProtocol)
	}
	if err := n.checkParams(p); err != nil {
		return fmt.Errorf("network.Backward: %w", err)
	}
	for k, l := range n.layers {
		if err := l.Backward(n.slice(p, k)); err != nil {
			return fmt.Errorf("network.Backward: layer %d: %w", k, err)
		}
	}
	n.backed = true
	return nil
}

// Jacobian assembles the whole-network NEURONS_OUT x PARAMS_CNT
// parameter Jacobian by reverse chain accumulation: it walks layers
// from last to first, carrying an accumulated downstream chain
// matrix M (never wider than NEURONS_OUT x layer_k.NEURONS_OUT) and
// writes each layer's chain_end contribution, pre-multiplied by M,
// into the matching column block of J. x must be the same network
// input that drove the last Forward/Backward pass.
func (n *Network) Jacobian(x []float64) (*mat.Dense, error) {
	if !n.backed {
		return nil, fmt.Errorf("network.Jacobian: %w: no prior Forward/Backward", ErrProtocol)
	}
	if len(x) != n.neuronsIn {
		return nil, fmt.Errorf("network.Jacobian: %w: expected input of length %d, got %d", ErrShapeMismatch, n.neuronsIn, len(x))
	}

	j := mat.NewDense(n.neuronsOut, n.paramsCount, nil)
	m := identity(n.neuronsOut)

	for k := len(n.layers) - 1; k >= 1; k-- {
		ce, err := n.layers[k].ChainEnd(n.layerInputs[k])
		if err != nil {
			return nil, fmt.Errorf("network.Jacobian: layer %d: %w", k, err)
		}
		if pc := n.layers[k].ParamsCount(); pc > 0 {
			var f mat.Dense
			f.Mul(m, ce)
			setBlock(j, 0, n.offsets[k], &f)
		}
		chainEl, err := n.layers[k].ChainElement()
		if err != nil {
			return nil, fmt.Errorf("network.Jacobian: layer %d: %w", k, err)
		}
		var next mat.Dense
		next.Mul(m, chainEl)
		m = &next
	}

	ce0, err := n.layers[0].ChainEnd(x)
	if err != nil {
		return nil, fmt.Errorf("network.Jacobian: layer 0: %w", err)
	}
	if n.layers[0].ParamsCount() > 0 {
		var f mat.Dense
		f.Mul(m, ce0)
		setBlock(j, 0, 0, &f)
	}

	return j, nil
}

// LayersInfo returns a human-readable listing of layer kinds in
// composition order, one line per layer.
func (n *Network) LayersInfo() string {
	var b strings.Builder
	for k, l := range n.layers {
		fmt.Fprintf(&b, "%d: %s (in=%d out=%d params=%d)\n", k, l.Kind(), l.NeuronsIn(), l.NeuronsOut(), l.ParamsCount())
	}
	return b.String()
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1.0)
	}
	return m
}

func setBlock(dst *mat.Dense, rowOff, colOff int, src *mat.Dense) {
	r, c := src.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(rowOff+i, colOff+j, src.At(i, j))
		}
	}
}
