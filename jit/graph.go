package jit

import (
	"math"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/afairless/grayscale-bench/convert"
)

// GraphCompiler lowers the vectorized formula into a gorgonia expression
// graph and compiles it to a tape-machine program. The graph treats the
// image as an (H·W)×3 pixel matrix multiplied by the 3-vector of luminance
// weights — the same arithmetic as convert.Vectorized, and like it the
// compiled program still allocates array-scale temporaries on every run:
// compiling a vectorized formulation does not remove the temporaries the
// vectorized style forces.
type GraphCompiler struct{}

// Name implements Compiler.
func (GraphCompiler) Name() string { return "graph" }

// Compile implements Compiler. Graph construction and tape compilation
// happen once per signature; the cost lands on whichever measurement
// triggers it.
func (GraphCompiler) Compile(sig Signature) (Program, error) {
	if err := validateSignature(sig); err != nil {
		return nil, err
	}
	h, w := sig.Shape[0], sig.Shape[1]

	g := G.NewGraph()
	pixels := G.NewMatrix(g, tensor.Float64, G.WithShape(h*w, 3), G.WithName("pixels"))
	weights := G.NewConstant(tensor.New(
		tensor.WithShape(3),
		tensor.WithBacking([]float64{convert.WeightR, convert.WeightG, convert.WeightB}),
	), G.WithName("weights"))

	lum, err := G.Mul(pixels, weights)
	if err != nil {
		return nil, errors.Wrap(err, "building luminance node")
	}

	return &graphProgram{
		h:   h,
		w:   w,
		vm:  G.NewTapeMachine(g),
		in:  pixels,
		out: lum,
	}, nil
}

// graphProgram is a compiled tape-machine artifact specialized to one input
// shape. Programs are run sequentially by a single caller; there is no
// concurrent access to the machine.
type graphProgram struct {
	h, w int
	vm   G.VM
	in   *G.Node
	out  *G.Node
}

func (p *graphProgram) Run(img *tensor.Dense) (*tensor.Dense, error) {
	src := img.Data().([]uint8)
	backing := make([]float64, len(src))
	for i, v := range src {
		backing[i] = float64(v)
	}
	pixels := tensor.New(tensor.WithShape(p.h*p.w, 3), tensor.WithBacking(backing))

	if err := G.Let(p.in, pixels); err != nil {
		return nil, errors.Wrap(err, "binding image to compiled graph")
	}
	if err := p.vm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "running compiled graph")
	}

	lum := p.out.Value().Data().([]float64)
	out := make([]uint8, len(lum))
	for i, v := range lum {
		out[i] = uint8(math.Round(v))
	}

	// Rewind the tape so the machine can be run again for the next image
	// with this signature.
	p.vm.Reset()

	return tensor.New(tensor.WithShape(p.h, p.w), tensor.WithBacking(out)), nil
}

func validateSignature(sig Signature) error {
	if len(sig.Shape) != 3 || sig.Shape[2] != 3 {
		return errors.Errorf("cannot compile for shape %v: want height × width × 3", sig.Shape)
	}
	if sig.Dtype != tensor.Uint8 {
		return errors.Errorf("cannot compile for dtype %v: want uint8", sig.Dtype)
	}
	return nil
}
