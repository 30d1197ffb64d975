package pixel

import (
	"bytes"
	"image/png"
	"testing"
	"time"
)

var frameTime = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func TestNewFrameStartsBlack(t *testing.T) {
	f := NewFrame(4, 3, frameTime)
	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			if !f.At(x, y).IsBlack() {
				t.Fatalf("cell (%d,%d) = %v, want black", x, y, f.At(x, y))
			}
		}
	}
	if got := f.TakenAt(); !got.Equal(frameTime) {
		t.Errorf("TakenAt() = %v, want %v", got, frameTime)
	}
}

func TestAddSaturatesPerChannel(t *testing.T) {
	got := RGB{R: 200, G: 10, B: 255}.Add(RGB{R: 100, G: 20, B: 1})
	want := RGB{R: 255, G: 30, B: 255}
	if got != want {
		t.Errorf("Add = %v, want %v", got, want)
	}
}

func TestBlendAccumulates(t *testing.T) {
	f := NewFrame(2, 2, frameTime)
	f.Blend(1, 0, RGB{R: 10, G: 20, B: 30})
	f.Blend(1, 0, RGB{R: 250, G: 1, B: 2})
	want := RGB{R: 255, G: 21, B: 32}
	if got := f.At(1, 0); got != want {
		t.Errorf("cell (1,0) = %v, want %v", got, want)
	}
}

func TestDiffOfIdenticalFramesIsEmpty(t *testing.T) {
	f := NewFrame(3, 3, frameTime)
	f.Set(0, 0, RGB{R: 1})
	f.Set(2, 2, RGB{B: 9})
	if changes := Diff(f, f); len(changes) != 0 {
		t.Errorf("Diff(f, f) = %v, want no changes", changes)
	}
}

func TestDiffAgainstNilListsNonBlackCellsOnly(t *testing.T) {
	f := NewFrame(3, 2, frameTime)
	f.Set(1, 0, RGB{G: 40})
	f.Set(0, 1, RGB{R: 7, B: 7})

	changes := Diff(nil, f)
	want := []Change{
		{X: 1, Y: 0, Color: RGB{G: 40}},
		{X: 0, Y: 1, Color: RGB{R: 7, B: 7}},
	}
	if len(changes) != len(want) {
		t.Fatalf("Diff(nil, f) returned %d changes, want %d", len(changes), len(want))
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("change[%d] = %v, want %v", i, changes[i], want[i])
		}
	}
}

func TestDiffReportsChangesInRowMajorOrder(t *testing.T) {
	prev := NewFrame(3, 3, frameTime)
	next := NewFrame(3, 3, frameTime.Add(time.Second))
	next.Set(2, 0, RGB{R: 1})
	next.Set(0, 1, RGB{G: 1})
	next.Set(1, 2, RGB{B: 1})

	changes := Diff(prev, next)
	if len(changes) != 3 {
		t.Fatalf("got %d changes, want 3", len(changes))
	}
	order := [][2]int{{2, 0}, {0, 1}, {1, 2}}
	for i, xy := range order {
		if changes[i].X != xy[0] || changes[i].Y != xy[1] {
			t.Errorf("change[%d] at (%d,%d), want (%d,%d)",
				i, changes[i].X, changes[i].Y, xy[0], xy[1])
		}
	}
}

func TestDiffIncludesCellsGoingBlack(t *testing.T) {
	prev := NewFrame(2, 1, frameTime)
	prev.Set(0, 0, RGB{R: 255})
	next := NewFrame(2, 1, frameTime.Add(time.Second))

	changes := Diff(prev, next)
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	if changes[0].X != 0 || changes[0].Y != 0 || !changes[0].Color.IsBlack() {
		t.Errorf("change = %+v, want black at (0,0)", changes[0])
	}
}

func TestDiffAcrossMismatchedDimensionsIsFullRedraw(t *testing.T) {
	prev := NewFrame(2, 2, frameTime)
	prev.Set(0, 0, RGB{R: 5})
	next := NewFrame(3, 2, frameTime.Add(time.Second))
	next.Set(0, 0, RGB{R: 5})
	next.Set(2, 1, RGB{G: 5})

	changes := Diff(prev, next)
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want full redraw of 2 lit cells", len(changes))
	}
}

func TestEncodePNGRoundTripsCellColours(t *testing.T) {
	f := NewFrame(2, 2, frameTime)
	f.Set(0, 0, RGB{R: 255})
	f.Set(1, 1, RGB{G: 128, B: 64})

	var buf bytes.Buffer
	if err := f.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decoding produced PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Fatalf("decoded bounds %v, want 2x2", b)
	}
	r, g, b, _ := img.At(1, 1).RGBA()
	if r>>8 != 0 || g>>8 != 128 || b>>8 != 64 {
		t.Errorf("decoded (1,1) = (%d,%d,%d), want (0,128,64)", r>>8, g>>8, b>>8)
	}
}
