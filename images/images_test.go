package images

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"gorgonia.org/tensor"
)

func TestFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 255, B: 0, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{R: 0, G: 0, B: 255, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 130, B: 250, A: 255})

	got := FromImage(img)

	if !got.Shape().Eq(tensor.Shape{2, 2, 3}) {
		t.Fatalf("shape = %v, want [2 2 3]", got.Shape())
	}

	want := []uint8{
		255, 0, 0,
		0, 255, 0,
		0, 0, 255,
		10, 130, 250,
	}
	data := got.Data().([]uint8)
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("value %d = %d, want %d", i, data[i], want[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatal("Load() succeeded on a missing file")
	}
}

func TestLoadUndecodableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() decoded garbage")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	const h, w = 5, 7

	src := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 30),
				G: uint8(y * 40),
				B: uint8((x + y) * 10),
				A: 255,
			})
		}
	}

	path := filepath.Join(t.TempDir(), "gradient.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !got.Shape().Eq(tensor.Shape{h, w, 3}) {
		t.Fatalf("shape = %v, want [%d %d 3]", got.Shape(), h, w)
	}

	// PNG is lossless, so every decoded channel value must be exact.
	data := got.Data().([]uint8)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			c := src.NRGBAAt(x, y)
			if data[i] != c.R || data[i+1] != c.G || data[i+2] != c.B {
				t.Fatalf("pixel (%d,%d) = [%d %d %d], want [%d %d %d]",
					y, x, data[i], data[i+1], data[i+2], c.R, c.G, c.B)
			}
		}
	}
}

func TestSaveGray(t *testing.T) {
	gray := tensor.New(tensor.WithShape(4, 6), tensor.WithBacking(func() []uint8 {
		b := make([]uint8, 24)
		for i := range b {
			b[i] = uint8(i * 10)
		}
		return b
	}()))

	path := filepath.Join(t.TempDir(), "gray_bw.jpg")
	if err := SaveGray(path, gray); err != nil {
		t.Fatalf("SaveGray() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	decoded, format, err := image.Decode(f)
	if err != nil {
		t.Fatalf("decoding saved file: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("saved format = %s, want jpeg", format)
	}
	if decoded.Bounds().Dx() != 6 || decoded.Bounds().Dy() != 4 {
		t.Errorf("saved dimensions = %v, want 6×4", decoded.Bounds())
	}
}

func TestSaveGrayRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad_bw.jpg")

	if err := SaveGray(path, nil); err == nil {
		t.Error("SaveGray() accepted nil tensor")
	}

	threeDim := tensor.New(tensor.WithShape(2, 2, 3), tensor.Of(tensor.Uint8))
	if err := SaveGray(path, threeDim); err == nil {
		t.Error("SaveGray() accepted a 3-dimensional tensor")
	}

	floats := tensor.New(tensor.WithShape(2, 2), tensor.Of(tensor.Float64))
	if err := SaveGray(path, floats); err == nil {
		t.Error("SaveGray() accepted a float64 tensor")
	}
}
