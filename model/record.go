// Package model holds the domain types shared across the tracker: orbital
// records, geodetic positions, look angles and the ephemeris contract that
// projections consume.
package model

import (
	"strings"
	"time"
)

// Tags is an insertion-ordered set of lowercase labels attached to an
// orbital record. Lookups are case-insensitive; Add keeps the first
// occurrence and drops later duplicates.
type Tags []string

// NewTags builds a tag set from the given labels.
func NewTags(labels ...string) Tags {
	var t Tags
	t.Add(labels...)
	return t
}

// Add appends labels that are not yet present. Labels are lowercased
// before comparison and storage.
func (t *Tags) Add(labels ...string) {
	for _, label := range labels {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" || t.Has(label) {
			continue
		}
		*t = append(*t, label)
	}
}

// Has reports whether the set contains the label, ignoring case.
func (t Tags) Has(label string) bool {
	label = strings.ToLower(label)
	for _, existing := range t {
		if existing == label {
			return true
		}
	}
	return false
}

// AnyContains reports whether any label contains substr, ignoring case.
func (t Tags) AnyContains(substr string) bool {
	substr = strings.ToLower(substr)
	for _, existing := range t {
		if strings.Contains(existing, substr) {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the set.
func (t Tags) Clone() Tags {
	if t == nil {
		return nil
	}
	out := make(Tags, len(t))
	copy(out, t)
	return out
}

// OrbitalRecord is one tracked object: a display name (the catalog
// identity), its labels, launch metadata and the ephemeris that places
// it in the sky.
type OrbitalRecord struct {
	Name       string
	Tags       Tags
	LaunchDate time.Time // zero when unknown
	Epoch      time.Time // element-set epoch, drives staleness filtering
	Orbit      Ephemeris
}

// HasLaunchDate reports whether the launch date is known.
func (r OrbitalRecord) HasLaunchDate() bool {
	return !r.LaunchDate.IsZero()
}

// ElementAgeDays returns the age of the record's element set at the
// given instant, in fractional days.
func (r OrbitalRecord) ElementAgeDays(now time.Time) float64 {
	return now.Sub(r.Epoch).Hours() / 24
}
