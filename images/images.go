// Package images - loading and saving images as numeric tensors for the
// conversion benchmark.
package images

import (
	"image"
	"image/jpeg"
	_ "image/png" // registers the PNG decoder for image.Decode
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// jpegQuality is used when encoding grayscale results.
const jpegQuality = 90

// Load decodes the image file at path into an H×W×3 uint8 tensor with
// row-major, channel-last layout. JPEG and PNG inputs are supported.
func Load(path string) (*tensor.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening image %s", path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding image %s", path)
	}

	return FromImage(img), nil
}

// FromImage converts a decoded image into an H×W×3 uint8 tensor. Alpha is
// dropped; the conversion formula only consumes the color channels.
func FromImage(img image.Image) *tensor.Dense {
	bounds := img.Bounds()
	h, w := bounds.Dy(), bounds.Dx()

	backing := make([]uint8, h*w*3)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			backing[i] = uint8(r >> 8)
			backing[i+1] = uint8(g >> 8)
			backing[i+2] = uint8(b >> 8)
			i += 3
		}
	}

	return tensor.New(tensor.WithShape(h, w, 3), tensor.WithBacking(backing))
}

// SaveGray encodes an H×W uint8 grayscale tensor as a JPEG file.
func SaveGray(path string, gray *tensor.Dense) error {
	if gray == nil {
		return errors.New("grayscale tensor is nil")
	}
	shp := gray.Shape()
	if len(shp) != 2 {
		return errors.Errorf("grayscale tensor must be 2-dimensional, got shape %v", shp)
	}
	if gray.Dtype() != tensor.Uint8 {
		return errors.Errorf("grayscale tensor must be uint8, got %v", gray.Dtype())
	}
	h, w := shp[0], shp[1]

	out := &image.Gray{
		Pix:    gray.Data().([]uint8),
		Stride: w,
		Rect:   image.Rect(0, 0, w, h),
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()

	if err := jpeg.Encode(f, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	return nil
}
