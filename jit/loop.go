package jit

import (
	"math"

	"gorgonia.org/tensor"

	"github.com/afairless/grayscale-bench/convert"
)

// LoopCompiler lowers the per-pixel loop formulation: two nested loops over
// height and width, each output byte computed directly from the three input
// bytes at that pixel. Compilation specializes the kernel to the input
// signature — fixed loop bounds plus one 256-entry weight table per channel
// — and the resulting program allocates nothing beyond the output plane.
type LoopCompiler struct{}

// Name implements Compiler.
func (LoopCompiler) Name() string { return "loop" }

// Compile implements Compiler.
func (LoopCompiler) Compile(sig Signature) (Program, error) {
	if err := validateSignature(sig); err != nil {
		return nil, err
	}

	p := &loopProgram{h: sig.Shape[0], w: sig.Shape[1]}
	for i := 0; i < 256; i++ {
		p.rt[i] = convert.WeightR * float64(i)
		p.gt[i] = convert.WeightG * float64(i)
		p.bt[i] = convert.WeightB * float64(i)
	}
	return p, nil
}

type loopProgram struct {
	h, w       int
	rt, gt, bt [256]float64
}

func (p *loopProgram) Run(img *tensor.Dense) (*tensor.Dense, error) {
	src := img.Data().([]uint8)
	out := make([]uint8, p.h*p.w)

	for y := 0; y < p.h; y++ {
		row := y * p.w
		for x := 0; x < p.w; x++ {
			i := (row + x) * 3
			out[row+x] = uint8(math.Round(p.rt[src[i]] + p.gt[src[i+1]] + p.bt[src[i+2]]))
		}
	}

	return tensor.New(tensor.WithShape(p.h, p.w), tensor.WithBacking(out)), nil
}
