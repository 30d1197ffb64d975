package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/skymatrix/pixel"
)

// ErrAttributeUnavailable reports a rule that needs a derived attribute
// the projection in use does not provide. This is a configuration
// error; rendering stops rather than painting a partial frame.
var ErrAttributeUnavailable = errors.New("derived attribute not provided by projection")

// Rule contributes colour to the cell of a placed record. Apply sees
// the colour accumulated so far for the cell and returns the updated
// one.
type Rule interface {
	Apply(p PlacedRecord, current pixel.RGB) (pixel.RGB, error)
}

// AlwaysRule adds its colour for every placed record.
type AlwaysRule struct {
	Color pixel.RGB
}

// Apply implements Rule.
func (r AlwaysRule) Apply(_ PlacedRecord, current pixel.RGB) (pixel.RGB, error) {
	return current.Add(r.Color), nil
}

// TagRule adds its colour for records carrying the tag.
type TagRule struct {
	Tag   string
	Color pixel.RGB
}

// Apply implements Rule.
func (r TagRule) Apply(p PlacedRecord, current pixel.RGB) (pixel.RGB, error) {
	if p.Record.Tags.Has(r.Tag) {
		return current.Add(r.Color), nil
	}
	return current, nil
}

// NotTagRule adds its colour for records not carrying the tag.
type NotTagRule struct {
	Tag   string
	Color pixel.RGB
}

// Apply implements Rule.
func (r NotTagRule) Apply(p PlacedRecord, current pixel.RGB) (pixel.RGB, error) {
	if !p.Record.Tags.Has(r.Tag) {
		return current.Add(r.Color), nil
	}
	return current, nil
}

// LaunchWindowRule adds its colour for records launched inside
// [After, Before). A zero bound leaves that side open. Records with an
// unknown launch date never match; that is missing data, not a
// configuration error, so they pass through unchanged.
type LaunchWindowRule struct {
	After  time.Time
	Before time.Time
	Color  pixel.RGB
}

// Apply implements Rule.
func (r LaunchWindowRule) Apply(p PlacedRecord, current pixel.RGB) (pixel.RGB, error) {
	if !p.Record.HasLaunchDate() {
		return current, nil
	}
	launch := p.Record.LaunchDate
	if !r.After.IsZero() && launch.Before(r.After) {
		return current, nil
	}
	if !r.Before.IsZero() && !launch.Before(r.Before) {
		return current, nil
	}
	return current.Add(r.Color), nil
}

// AltitudeBandRule adds its colour for records whose derived altitude
// lies in [MinKm, MaxKm). A placement without an altitude means the
// rule set does not fit the projection; Apply returns
// ErrAttributeUnavailable.
type AltitudeBandRule struct {
	MinKm, MaxKm float64
	Color        pixel.RGB
}

// Apply implements Rule.
func (r AltitudeBandRule) Apply(p PlacedRecord, current pixel.RGB) (pixel.RGB, error) {
	if !p.HasAltitude() {
		return current, fmt.Errorf("altitude band: %w", ErrAttributeUnavailable)
	}
	if p.AltitudeKm >= r.MinKm && p.AltitudeKm < r.MaxKm {
		return current.Add(r.Color), nil
	}
	return current, nil
}

// RangeBandRule adds its colour for records whose derived observer
// distance lies in [MinKm, MaxKm), with the same contract as
// AltitudeBandRule.
type RangeBandRule struct {
	MinKm, MaxKm float64
	Color        pixel.RGB
}

// Apply implements Rule.
func (r RangeBandRule) Apply(p PlacedRecord, current pixel.RGB) (pixel.RGB, error) {
	if !p.HasRange() {
		return current, fmt.Errorf("range band: %w", ErrAttributeUnavailable)
	}
	if p.RangeKm >= r.MinKm && p.RangeKm < r.MaxKm {
		return current.Add(r.Color), nil
	}
	return current, nil
}

// Render composites the frame's placed records into a pixel frame. The
// output starts black; for each placed record in order, every rule is
// applied in order to the record's cell. Channels saturate, so the
// placed order is part of the observable result when several records
// share a cell.
func (f *SkyFrame) Render(rules []Rule) (*pixel.Frame, error) {
	out := pixel.NewFrame(f.Grid.Width, f.Grid.Height, f.At)
	for _, p := range f.Placed {
		c := out.At(p.X, p.Y)
		for _, rule := range rules {
			var err error
			c, err = rule.Apply(p, c)
			if err != nil {
				return nil, fmt.Errorf("rendering %q at (%d,%d): %w", p.Record.Name, p.X, p.Y, err)
			}
		}
		out.Set(p.X, p.Y, c)
	}
	return out, nil
}
