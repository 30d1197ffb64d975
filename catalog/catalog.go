// Package catalog maintains the set of orbital records a tracker works
// from: deduplicated on load, enriched from external metadata, and
// narrowed through derived views that never touch their parent.
package catalog

import (
	"strings"
	"time"

	"github.com/signalsfoundry/skymatrix/model"
)

// TagDebris marks records recognised as debris. Any record whose name
// or tags contain the substring "deb" receives it on load.
const TagDebris = "debris"

const debrisSubstring = "deb"

// Metadata is supplementary per-object information merged into matching
// records, keyed by record name (see EnrichFromMetadata).
type Metadata struct {
	Tags       []string
	LaunchDate time.Time
}

// Catalog is an ordered collection of orbital records, unique by name.
// Loading dedupes: the first record seen under a name is canonical and
// later duplicates only contribute their tags. Filter, Limit and Merge
// derive new catalogs and leave the receiver untouched.
type Catalog struct {
	records []model.OrbitalRecord
	index   map[string]int
}

// New builds a catalog from records, applying deduplication and debris
// tagging.
func New(records ...model.OrbitalRecord) *Catalog {
	c := &Catalog{index: make(map[string]int, len(records))}
	c.load(records)
	return c
}

func (c *Catalog) load(records []model.OrbitalRecord) {
	for _, rec := range records {
		if i, ok := c.index[rec.Name]; ok {
			canonical := &c.records[i]
			tags := canonical.Tags.Clone()
			tags.Add(rec.Tags...)
			if isDebris(canonical.Name, tags) {
				tags.Add(TagDebris)
			}
			canonical.Tags = tags
			continue
		}
		tags := rec.Tags.Clone()
		if isDebris(rec.Name, tags) {
			tags.Add(TagDebris)
		}
		rec.Tags = tags
		c.index[rec.Name] = len(c.records)
		c.records = append(c.records, rec)
	}
}

func isDebris(name string, tags model.Tags) bool {
	return strings.Contains(strings.ToLower(name), debrisSubstring) ||
		tags.AnyContains(debrisSubstring)
}

// Len returns the number of records.
func (c *Catalog) Len() int { return len(c.records) }

// Records returns a copy of the record slice in catalog order.
func (c *Catalog) Records() []model.OrbitalRecord {
	out := make([]model.OrbitalRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Get returns the record with the given name.
func (c *Catalog) Get(name string) (model.OrbitalRecord, bool) {
	i, ok := c.index[name]
	if !ok {
		return model.OrbitalRecord{}, false
	}
	return c.records[i], true
}

// Filter derives a catalog containing the records keep accepts.
func (c *Catalog) Filter(keep func(model.OrbitalRecord) bool) *Catalog {
	out := &Catalog{index: make(map[string]int)}
	for _, rec := range c.records {
		if keep(rec) {
			out.index[rec.Name] = len(out.records)
			out.records = append(out.records, rec)
		}
	}
	return out
}

// FilterMaxAge derives a catalog of records whose element sets are
// younger than maxDays at the given instant. A record aged exactly
// maxDays is dropped.
func (c *Catalog) FilterMaxAge(now time.Time, maxDays float64) *Catalog {
	return c.Filter(func(rec model.OrbitalRecord) bool {
		return rec.ElementAgeDays(now) < maxDays
	})
}

// WithTag derives a catalog of records carrying the tag.
func (c *Catalog) WithTag(tag string) *Catalog {
	return c.Filter(func(rec model.OrbitalRecord) bool {
		return rec.Tags.Has(tag)
	})
}

// WithoutTag derives a catalog of records not carrying the tag.
func (c *Catalog) WithoutTag(tag string) *Catalog {
	return c.Filter(func(rec model.OrbitalRecord) bool {
		return !rec.Tags.Has(tag)
	})
}

// Limit derives a catalog of the first n records. n larger than the
// catalog keeps everything; n below zero keeps nothing.
func (c *Catalog) Limit(n int) *Catalog {
	if n < 0 {
		n = 0
	}
	if n > len(c.records) {
		n = len(c.records)
	}
	out := &Catalog{index: make(map[string]int, n)}
	for _, rec := range c.records[:n] {
		out.index[rec.Name] = len(out.records)
		out.records = append(out.records, rec)
	}
	return out
}

// Merge derives a catalog holding the receiver's records followed by
// other's, with the usual dedup rules applied across the pair.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	out := &Catalog{index: make(map[string]int, len(c.records)+other.Len())}
	out.load(c.records)
	out.load(other.records)
	return out
}

// EnrichFromMetadata folds external metadata into matching records in
// place: tags are unioned (re-running debris detection) and a launch
// date is adopted when the record has none. Records without a metadata
// entry are left alone. This is a build-time step; derived views taken
// before enrichment keep their own tag sets.
func (c *Catalog) EnrichFromMetadata(meta map[string]Metadata) {
	for i := range c.records {
		m, ok := meta[c.records[i].Name]
		if !ok {
			continue
		}
		rec := &c.records[i]
		tags := rec.Tags.Clone()
		tags.Add(m.Tags...)
		if isDebris(rec.Name, tags) {
			tags.Add(TagDebris)
		}
		rec.Tags = tags
		if !rec.HasLaunchDate() && !m.LaunchDate.IsZero() {
			rec.LaunchDate = m.LaunchDate
		}
	}
}
