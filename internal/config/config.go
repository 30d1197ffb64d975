// Package config loads service-level settings from the environment.
// Geometry for a particular run (grid size, field of view, observer
// position) stays on command-line flags; everything about where the
// process finds data and peers lives here.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the environment-driven settings shared by the
// tracker daemon and the one-shot tools.
type Config struct {
	// DataDir is the root for cached element sets and SATCAT files.
	DataDir string `env:"SKYMATRIX_DATA_DIR" envDefault:"./data"`

	// CelestrakURL is the GP query endpoint; the group and format query
	// parameters are appended per request.
	CelestrakURL string `env:"SKYMATRIX_CELESTRAK_URL" envDefault:"https://celestrak.org/NORAD/elements/gp.php"`

	// SatcatURL points at the full satellite catalogue CSV.
	SatcatURL string `env:"SKYMATRIX_SATCAT_URL" envDefault:"https://celestrak.org/pub/satcat.csv"`

	// CacheTTL bounds how old a cached download may be before it is
	// refreshed. Element sets drift, so a week is already generous.
	CacheTTL time.Duration `env:"SKYMATRIX_CACHE_TTL" envDefault:"168h"`

	// HTTPTimeout bounds each upstream request.
	HTTPTimeout time.Duration `env:"SKYMATRIX_HTTP_TIMEOUT" envDefault:"30s"`

	// MetricsAddr is the listen address of the Prometheus endpoint.
	MetricsAddr string `env:"SKYMATRIX_METRICS_ADDR" envDefault:":9090"`

	// DevicePort names the serial port of the LED matrix. Empty means
	// autodetect the first available port.
	DevicePort string `env:"SKYMATRIX_DEVICE_PORT"`

	// DeviceBaud is the serial line rate used when opening DevicePort.
	DeviceBaud int `env:"SKYMATRIX_DEVICE_BAUD" envDefault:"115200"`
}

// Load parses the process environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.CacheTTL < 0 {
		return Config{}, fmt.Errorf("cache TTL must not be negative, got %s", cfg.CacheTTL)
	}
	if cfg.DeviceBaud <= 0 {
		return Config{}, fmt.Errorf("device baud rate must be positive, got %d", cfg.DeviceBaud)
	}
	return cfg, nil
}
