// Package convert implements the grayscale conversion variants under test.
//
// All variants share one contract: an H×W×3 uint8 tensor in, an H×W uint8
// tensor out, each output pixel the luminance-weighted combination of the
// three input channels. The vectorized formulation lives here; the two
// compiled formulations are built on top of it by the jit package.
package convert

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Luminance weights for the red, green, and blue channels (Rec. 601
// perceptual weighting).
const (
	WeightR = 0.2989
	WeightG = 0.5870
	WeightB = 0.1140
)

// Func is the contract shared by every conversion variant.
type Func func(img *tensor.Dense) (*tensor.Dense, error)

// ValidateImage rejects inputs that are not H×W×3 uint8 tensors. Shape
// problems fail here, before any arithmetic, rather than as a confusing
// downstream fault.
func ValidateImage(img *tensor.Dense) error {
	if img == nil {
		return errors.New("image is nil")
	}
	shp := img.Shape()
	if len(shp) != 3 {
		return errors.Errorf("image must be 3-dimensional (height × width × channel), got shape %v", shp)
	}
	if shp[2] != 3 {
		return errors.Errorf("image must have exactly 3 channels, got %d", shp[2])
	}
	if img.Dtype() != tensor.Uint8 {
		return errors.Errorf("image must be uint8, got %v", img.Dtype())
	}
	return nil
}

// Vectorized converts an image to grayscale with whole-array arithmetic:
// each channel is widened to a float64 plane, scaled by its luminance
// weight, and the planes are summed and rounded. Every step allocates an
// array-sized temporary. That allocation profile is deliberate — it is the
// behavior the benchmark exists to expose.
func Vectorized(img *tensor.Dense) (*tensor.Dense, error) {
	if err := ValidateImage(img); err != nil {
		return nil, err
	}
	shp := img.Shape()
	h, w := shp[0], shp[1]

	r, err := channelPlane(img, 0)
	if err != nil {
		return nil, err
	}
	g, err := channelPlane(img, 1)
	if err != nil {
		return nil, err
	}
	b, err := channelPlane(img, 2)
	if err != nil {
		return nil, err
	}

	rw, err := r.MulScalar(WeightR, true)
	if err != nil {
		return nil, errors.Wrap(err, "weighting red channel")
	}
	gw, err := g.MulScalar(WeightG, true)
	if err != nil {
		return nil, errors.Wrap(err, "weighting green channel")
	}
	bw, err := b.MulScalar(WeightB, true)
	if err != nil {
		return nil, errors.Wrap(err, "weighting blue channel")
	}

	sum, err := rw.Add(gw)
	if err != nil {
		return nil, errors.Wrap(err, "summing weighted channels")
	}
	sum, err = sum.Add(bw)
	if err != nil {
		return nil, errors.Wrap(err, "summing weighted channels")
	}

	rounded, err := sum.Apply(math.Round)
	if err != nil {
		return nil, errors.Wrap(err, "rounding luminance values")
	}

	return narrow(rounded.(*tensor.Dense), h, w), nil
}

// channelPlane extracts channel c as a contiguous H×W float64 tensor.
// The slice-materialize-widen sequence mirrors what image[:, :, c] costs in
// a float expression: one full-plane temporary per channel.
func channelPlane(img *tensor.Dense, c int) (*tensor.Dense, error) {
	view, err := img.Slice(nil, nil, tensor.S(c))
	if err != nil {
		return nil, errors.Wrapf(err, "slicing channel %d", c)
	}
	plane := view.Materialize().(*tensor.Dense)

	src := plane.Data().([]uint8)
	backing := make([]float64, len(src))
	for i, v := range src {
		backing[i] = float64(v)
	}

	shp := img.Shape()
	return tensor.New(tensor.WithShape(shp[0], shp[1]), tensor.WithBacking(backing)), nil
}

// narrow converts an H×W float64 tensor of already-rounded luminance values
// into the uint8 grayscale result. The weights sum below 1.0, so values stay
// inside [0, 255] and no clamping is needed.
func narrow(t *tensor.Dense, h, w int) *tensor.Dense {
	src := t.Data().([]float64)
	out := make([]uint8, len(src))
	for i, v := range src {
		out[i] = uint8(v)
	}
	return tensor.New(tensor.WithShape(h, w), tensor.WithBacking(out))
}
