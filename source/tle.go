package source

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/skymatrix/core"
	"github.com/signalsfoundry/skymatrix/model"
)

// ElementSet is one raw three-line element set: the object name line
// followed by the two fixed-width data lines.
type ElementSet struct {
	Name  string
	Line1 string
	Line2 string
}

// ParseTLE reads three-line element sets from r. Blank lines are
// skipped; each pair of data lines must follow its object name line.
func ParseTLE(r io.Reader) ([]ElementSet, error) {
	var (
		sets     []ElementSet
		name     string
		line1    string
		haveName bool
	)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "1 "):
			if !haveName {
				return nil, fmt.Errorf("line %d: element line 1 without a preceding name", lineNo)
			}
			if line1 != "" {
				return nil, fmt.Errorf("line %d: consecutive element line 1", lineNo)
			}
			line1 = line
		case strings.HasPrefix(line, "2 "):
			if line1 == "" {
				return nil, fmt.Errorf("line %d: element line 2 without line 1", lineNo)
			}
			sets = append(sets, ElementSet{Name: name, Line1: line1, Line2: line})
			name, line1, haveName = "", "", false
		default:
			if haveName {
				return nil, fmt.Errorf("line %d: name %q missing its element lines", lineNo, name)
			}
			name = strings.TrimSpace(line)
			haveName = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if haveName || line1 != "" {
		return nil, fmt.Errorf("truncated element set %q at end of input", name)
	}
	return sets, nil
}

// EpochFromLine1 extracts the element-set epoch from the first TLE data
// line. Two-digit years below 57 read as 20xx, per convention.
func EpochFromLine1(line1 string) (time.Time, error) {
	if len(line1) < 32 {
		return time.Time{}, fmt.Errorf("TLE line 1 too short for an epoch: %d characters", len(line1))
	}
	yy, err := strconv.Atoi(strings.TrimSpace(line1[18:20]))
	if err != nil {
		return time.Time{}, fmt.Errorf("epoch year %q: %w", line1[18:20], err)
	}
	year := 1900 + yy
	if yy < 57 {
		year = 2000 + yy
	}
	doy, err := strconv.ParseFloat(strings.TrimSpace(line1[20:32]), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("epoch day %q: %w", line1[20:32], err)
	}
	if doy < 1 || doy >= 367 {
		return time.Time{}, fmt.Errorf("epoch day %v out of range", doy)
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((doy - 1) * float64(24*time.Hour))), nil
}

// NewRecord turns a parsed element set into a catalog record carrying
// the given tags.
func NewRecord(set ElementSet, tags ...string) (model.OrbitalRecord, error) {
	orbit, err := core.NewSGP4Ephemeris(set.Line1, set.Line2)
	if err != nil {
		return model.OrbitalRecord{}, fmt.Errorf("element set %q: %w", set.Name, err)
	}
	epoch, err := EpochFromLine1(set.Line1)
	if err != nil {
		return model.OrbitalRecord{}, fmt.Errorf("element set %q: %w", set.Name, err)
	}
	return model.OrbitalRecord{
		Name:  set.Name,
		Tags:  model.NewTags(tags...),
		Epoch: epoch,
		Orbit: orbit,
	}, nil
}
