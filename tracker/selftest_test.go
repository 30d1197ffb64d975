package tracker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func runSelftest(t *testing.T, s *Selftest) *captureSink {
	t.Helper()
	sink := &captureSink{}
	s.Sink = sink
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return sink
}

func TestSelftestPushesRequestedFrameCount(t *testing.T) {
	s := &Selftest{Width: 6, Height: 4, Interval: time.Millisecond, Frames: 3, Seed: 42}
	sink := runSelftest(t, s)

	if len(sink.frames) != 3 {
		t.Fatalf("pushed %d frames, want 3", len(sink.frames))
	}
	for i, f := range sink.frames {
		if f.Width() != 6 || f.Height() != 4 {
			t.Errorf("frame %d is %dx%d, want 6x4", i, f.Width(), f.Height())
		}
	}
}

func TestSelftestPaintsEveryCell(t *testing.T) {
	s := &Selftest{Width: 5, Height: 5, Interval: time.Millisecond, Frames: 1, Seed: 42}
	sink := runSelftest(t, s)

	frame := sink.frames[0]
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			if frame.At(x, y).IsBlack() {
				t.Errorf("cell (%d,%d) is black, want colour", x, y)
			}
		}
	}
}

func TestSelftestAnimatesBetweenFrames(t *testing.T) {
	s := &Selftest{Width: 8, Height: 8, Interval: time.Millisecond, Frames: 2, Seed: 42}
	sink := runSelftest(t, s)

	same := true
	for y := 0; y < 8 && same; y++ {
		for x := 0; x < 8; x++ {
			if sink.frames[0].At(x, y) != sink.frames[1].At(x, y) {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("consecutive frames are identical, want the field to move")
	}
}

func TestSelftestIsDeterministicForSeed(t *testing.T) {
	first := runSelftest(t, &Selftest{Width: 4, Height: 4, Interval: time.Millisecond, Frames: 1, Seed: 7})
	second := runSelftest(t, &Selftest{Width: 4, Height: 4, Interval: time.Millisecond, Frames: 1, Seed: 7})

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			a, b := first.frames[0].At(x, y), second.frames[0].At(x, y)
			if a != b {
				t.Fatalf("cell (%d,%d) differs across seeded runs: %v vs %v", x, y, a, b)
			}
		}
	}
}

func TestSelftestValidatesConfiguration(t *testing.T) {
	cases := []struct {
		name string
		s    Selftest
	}{
		{"zero width", Selftest{Height: 4, Interval: time.Second, Sink: &captureSink{}}},
		{"zero height", Selftest{Width: 4, Interval: time.Second, Sink: &captureSink{}}},
		{"no sink", Selftest{Width: 4, Height: 4, Interval: time.Second}},
		{"zero interval", Selftest{Width: 4, Height: 4, Sink: &captureSink{}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.s.Run(context.Background()); err == nil {
				t.Error("Run succeeded, want configuration error")
			}
		})
	}
}

func TestSelftestStopsWhenSinkFails(t *testing.T) {
	sink := &captureSink{err: errors.New("port gone")}
	s := &Selftest{Width: 4, Height: 4, Interval: time.Millisecond, Sink: sink, Seed: 1}

	if err := s.Run(context.Background()); err == nil {
		t.Fatal("Run succeeded with failing sink, want error")
	}
	if len(sink.frames) != 1 {
		t.Errorf("pushed %d frames, want 1", len(sink.frames))
	}
}

func TestSelftestStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := &captureSink{onPush: cancel}
	s := &Selftest{Width: 4, Height: 4, Interval: time.Hour, Sink: sink, Seed: 1}

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sink.frames) != 1 {
		t.Errorf("pushed %d frames, want 1", len(sink.frames))
	}
}

func TestClockStampsSelftestFrames(t *testing.T) {
	at := time.Unix(1700000000, 0).UTC()
	s := &Selftest{Width: 4, Height: 4, Interval: time.Millisecond, Frames: 1, Seed: 1, Clock: fixedClock{at: at}}
	sink := runSelftest(t, s)

	if got := sink.frames[0].TakenAt(); !got.Equal(at) {
		t.Errorf("frame taken at %v, want %v", got, at)
	}
}
