package device

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/skymatrix/pixel"
)

// DiffRecorder receives the size of every frame diff written to the
// device.
type DiffRecorder interface {
	ObserveDiff(changed, total int)
}

// Display drives a remote LED matrix over a line-based instruction
// stream, usually a serial port. It remembers the frame last pushed so
// each update writes only the cells that changed, which matters when
// the link is a slow serial line.
//
// Writes are fire-and-forget with no timeout; a wedged link blocks the
// caller until the process is interrupted.
type Display struct {
	rw io.ReadWriter
	r  *bufio.Reader
	w  *bufio.Writer

	last     *pixel.Frame
	preload  *pixel.Frame
	recorder DiffRecorder
}

// DisplayOption customises a Display.
type DisplayOption func(*Display)

// WithDiffRecorder wires diff size observations to a metrics collector.
func WithDiffRecorder(rec DiffRecorder) DisplayOption {
	return func(d *Display) { d.recorder = rec }
}

// NewDisplay wraps an open device link.
func NewDisplay(rw io.ReadWriter, opts ...DisplayOption) *Display {
	d := &Display{
		rw: rw,
		r:  bufio.NewReader(rw),
		w:  bufio.NewWriter(rw),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Display) send(in Instruction) error {
	if _, err := d.w.Write(in.Marshal()); err != nil {
		return err
	}
	return d.w.Flush()
}

// SetPixel sets one cell immediately.
func (d *Display) SetPixel(x, y int, c pixel.RGB) error {
	return d.send(setPixelInstruction(x, y, c))
}

// Clear blanks the display and forgets the last pushed frame.
func (d *Display) Clear() error {
	if err := d.send(Instruction{Op: OpClear}); err != nil {
		return err
	}
	d.last = nil
	return nil
}

// Dimensions asks the device for its grid size. The response is one
// line whose first two comma-separated fields are width and height;
// extra fields are ignored. Blank lines, which some firmware emits
// while booting, are skipped.
func (d *Display) Dimensions() (int, int, error) {
	if err := d.send(Instruction{Op: OpDimensions}); err != nil {
		return 0, 0, err
	}
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			return 0, 0, fmt.Errorf("read dimensions: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			return 0, 0, fmt.Errorf("dimensions response %q: want at least width,height", line)
		}
		width, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return 0, 0, fmt.Errorf("dimensions response %q: %w", line, err)
		}
		height, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return 0, 0, fmt.Errorf("dimensions response %q: %w", line, err)
		}
		return width, height, nil
	}
}

// SetClock sets the device real-time clock, truncated to whole seconds.
// Microcontrollers keep poor time across power cycles, so do this
// before scheduling anything.
func (d *Display) SetClock(t time.Time) error {
	return d.send(Instruction{Op: OpSetClock, Args: []int64{t.Unix()}})
}

// Schedule queues in for execution on the device at the given instant.
func (d *Display) Schedule(at time.Time, in Instruction) error {
	return d.send(Delayed(at, in))
}

// Push updates the display to show frame, writing only cells that
// differ from the previous push. The first push after connect, or after
// a grid size change, clears the device and paints every non-black
// cell. The remembered frame advances only once the write has flushed.
func (d *Display) Push(frame *pixel.Frame) error {
	fresh := d.last == nil || d.last.Width() != frame.Width() || d.last.Height() != frame.Height()
	changes := pixel.Diff(d.last, frame)

	if fresh {
		if _, err := d.w.Write(Instruction{Op: OpClear}.Marshal()); err != nil {
			return err
		}
	}
	for _, ch := range changes {
		if _, err := d.w.Write(setPixelInstruction(ch.X, ch.Y, ch.Color).Marshal()); err != nil {
			return err
		}
	}
	if err := d.w.Flush(); err != nil {
		return err
	}

	d.last = frame
	if d.recorder != nil {
		d.recorder.ObserveDiff(len(changes), frame.Width()*frame.Height())
	}
	return nil
}

// Preload schedules frame for display at the given instant using
// delayed instructions, letting the device replay a time window with no
// host attached. Consecutive preloads diff against the previously
// preloaded frame, so supply them in display order. Live pushes are
// unaffected.
func (d *Display) Preload(at time.Time, frame *pixel.Frame) error {
	fresh := d.preload == nil || d.preload.Width() != frame.Width() || d.preload.Height() != frame.Height()
	changes := pixel.Diff(d.preload, frame)

	if fresh {
		if _, err := d.w.Write(Delayed(at, Instruction{Op: OpClear}).Marshal()); err != nil {
			return err
		}
	}
	for _, ch := range changes {
		in := Delayed(at, setPixelInstruction(ch.X, ch.Y, ch.Color))
		if _, err := d.w.Write(in.Marshal()); err != nil {
			return err
		}
	}
	if err := d.w.Flush(); err != nil {
		return err
	}

	d.preload = frame
	if d.recorder != nil {
		d.recorder.ObserveDiff(len(changes), frame.Width()*frame.Height())
	}
	return nil
}

// Close flushes buffered instructions and closes the underlying link
// when it supports closing.
func (d *Display) Close() error {
	if err := d.w.Flush(); err != nil {
		return err
	}
	if c, ok := d.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func setPixelInstruction(x, y int, c pixel.RGB) Instruction {
	return Instruction{
		Op:   OpSetPixel,
		Args: []int64{int64(x), int64(y), int64(c.R), int64(c.G), int64(c.B)},
	}
}
