// Package tracker runs the per-tick pipeline that keeps a display in
// step with the sky: read the clock, project the catalog, composite the
// placed records into a frame and push it to the configured sinks.
package tracker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/signalsfoundry/skymatrix/pixel"
)

// Sink receives finished frames from the loop. device.Display satisfies
// it directly; PNGDir and MultiSink cover file output and fan-out.
type Sink interface {
	Push(frame *pixel.Frame) error
}

// PNGDir writes every pushed frame into a directory as
// <unix-timestamp>.png, the layout the untethered replay mode expects.
type PNGDir struct {
	dir string
}

// NewPNGDir creates the directory if needed and returns a sink writing
// into it.
func NewPNGDir(dir string) (*PNGDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame directory %s: %w", dir, err)
	}
	return &PNGDir{dir: dir}, nil
}

// Dir returns the directory frames are written to.
func (s *PNGDir) Dir() string { return s.dir }

// Push implements Sink.
func (s *PNGDir) Push(frame *pixel.Frame) error {
	name := fmt.Sprintf("%d.png", frame.TakenAt().Unix())
	return frame.WritePNG(filepath.Join(s.dir, name))
}

// MultiSink pushes each frame to every sink in order, stopping at the
// first failure.
type MultiSink []Sink

// Push implements Sink.
func (m MultiSink) Push(frame *pixel.Frame) error {
	for i, sink := range m {
		if err := sink.Push(frame); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}
