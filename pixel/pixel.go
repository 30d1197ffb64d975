// Package pixel implements the in-memory frame buffer behind a sky display:
// RGB cells, whole frames stamped with the instant they depict, and the
// row-major diff used to push minimal updates to a remote matrix.
package pixel

import (
	"fmt"
	"time"
)

// RGB is one display cell. Channel values are additive light levels,
// not premultiplied colour.
type RGB struct {
	R, G, B uint8
}

// Add returns the per-channel sum of c and o, saturating at 255.
func (c RGB) Add(o RGB) RGB {
	return RGB{
		R: addClamp(c.R, o.R),
		G: addClamp(c.G, o.G),
		B: addClamp(c.B, o.B),
	}
}

// IsBlack reports whether all three channels are zero.
func (c RGB) IsBlack() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

// Hex returns the colour as a lowercase #rrggbb string.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func addClamp(a, b uint8) uint8 {
	sum := uint16(a) + uint16(b)
	if sum > 255 {
		return 255
	}
	return uint8(sum)
}

// Frame is a fixed-size buffer of cells together with the instant the
// frame depicts. Cells are stored row-major; (0,0) is the top-left
// corner, x grows rightwards and y grows downwards.
type Frame struct {
	width   int
	height  int
	takenAt time.Time
	cells   []RGB
}

// NewFrame returns an all-black frame of the given dimensions.
func NewFrame(width, height int, takenAt time.Time) *Frame {
	if width < 1 || height < 1 {
		panic(fmt.Sprintf("pixel: invalid frame dimensions %dx%d", width, height))
	}
	return &Frame{
		width:   width,
		height:  height,
		takenAt: takenAt,
		cells:   make([]RGB, width*height),
	}
}

// Width returns the frame width in cells.
func (f *Frame) Width() int { return f.width }

// Height returns the frame height in cells.
func (f *Frame) Height() int { return f.height }

// TakenAt returns the instant the frame depicts.
func (f *Frame) TakenAt() time.Time { return f.takenAt }

// At returns the cell at (x, y). Coordinates must be in range.
func (f *Frame) At(x, y int) RGB {
	return f.cells[f.index(x, y)]
}

// Set replaces the cell at (x, y). Coordinates must be in range.
func (f *Frame) Set(x, y int, c RGB) {
	f.cells[f.index(x, y)] = c
}

// Blend adds c onto the cell at (x, y) with saturating channels.
func (f *Frame) Blend(x, y int, c RGB) {
	i := f.index(x, y)
	f.cells[i] = f.cells[i].Add(c)
}

func (f *Frame) index(x, y int) int {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		panic(fmt.Sprintf("pixel: cell (%d,%d) outside %dx%d frame", x, y, f.width, f.height))
	}
	return y*f.width + x
}

// Change is one cell that differs between two frames, carrying the new
// colour for that cell.
type Change struct {
	X, Y  int
	Color RGB
}

// Diff returns the cells of next that differ from prev, in row-major
// order. A nil prev (or one whose dimensions do not match) stands for
// an unknown display state: every non-black cell of next is returned,
// and the caller is expected to clear the display before applying the
// changes.
func Diff(prev, next *Frame) []Change {
	var changes []Change
	fresh := prev == nil || prev.width != next.width || prev.height != next.height
	for y := 0; y < next.height; y++ {
		for x := 0; x < next.width; x++ {
			c := next.At(x, y)
			if fresh {
				if c.IsBlack() {
					continue
				}
			} else if prev.At(x, y) == c {
				continue
			}
			changes = append(changes, Change{X: x, Y: y, Color: c})
		}
	}
	return changes
}
