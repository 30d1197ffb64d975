package pixel

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
)

// Image converts the frame to an opaque RGBA image, one image pixel per
// cell.
func (f *Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			c := f.At(x, y)
			img.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return img
}

// EncodePNG writes the frame to w as a PNG image.
func (f *Frame) EncodePNG(w io.Writer) error {
	return png.Encode(w, f.Image())
}

// WritePNG writes the frame to a PNG file at path.
func (f *Frame) WritePNG(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, f.Image()); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return file.Close()
}
