package tracker

import (
	"context"
	"fmt"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/signalsfoundry/skymatrix/internal/logging"
	"github.com/signalsfoundry/skymatrix/pixel"
	"github.com/signalsfoundry/skymatrix/timectrl"
)

// Selftest drives the sink with a smooth simplex-noise colour field
// instead of sky data. It exercises the full write path, so a matrix
// that renders the animation cleanly will render frames too; use it to
// verify wiring, orientation and colour order before pointing the
// tracker at a real catalog.
type Selftest struct {
	Width, Height int
	Sink          Sink

	// Interval paces the animation; Frames caps it, zero runs until ctx
	// is cancelled.
	Interval time.Duration
	Frames   int

	// Seed fixes the noise field. Zero seeds from the clock.
	Seed int64

	Clock timectrl.Clock
	Log   logging.Logger
}

const (
	// selftestScale spreads the noise so neighbouring cells differ
	// visibly on small matrices.
	selftestScale = 0.18
	// selftestSpeed advances the field's third axis per frame.
	selftestSpeed = 0.05
)

// Run pushes animation frames until ctx is cancelled or the frame cap
// is reached. A cancelled run returns nil.
func (s *Selftest) Run(ctx context.Context) error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("tracker: selftest grid %dx%d is not positive", s.Width, s.Height)
	}
	if s.Sink == nil {
		return fmt.Errorf("tracker: selftest needs a sink")
	}
	if s.Interval <= 0 {
		return fmt.Errorf("tracker: selftest interval must be positive, got %s", s.Interval)
	}
	log := s.Log
	if log == nil {
		log = logging.Noop()
	}
	clock := s.Clock
	if clock == nil {
		clock = timectrl.SystemClock{}
	}
	seed := s.Seed
	if seed == 0 {
		seed = clock.Now().UnixNano()
	}
	noise := opensimplex.NewNormalized(seed)

	log.Info(ctx, "selftest starting",
		logging.String("grid", fmt.Sprintf("%dx%d", s.Width, s.Height)),
		logging.Duration("interval", s.Interval),
		logging.Int("frames", s.Frames),
	)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for n := 0; ; n++ {
		if s.Frames > 0 && n >= s.Frames {
			return nil
		}
		if err := s.Sink.Push(s.frame(noise, n, clock.Now())); err != nil {
			return fmt.Errorf("selftest frame %d: %w", n, err)
		}
		select {
		case <-ctx.Done():
			log.Info(ctx, "selftest stopped", logging.Int("frames_pushed", n+1))
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Selftest) frame(noise opensimplex.Noise, n int, at time.Time) *pixel.Frame {
	frame := pixel.NewFrame(s.Width, s.Height, at)
	z := float64(n) * selftestSpeed
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			v := noise.Eval3(float64(x)*selftestScale, float64(y)*selftestScale, z)
			r, g, b := colorful.Hsv(v*360.0, 1.0, 0.6).RGB255()
			frame.Set(x, y, pixel.RGB{R: r, G: g, B: b})
		}
	}
	return frame
}
