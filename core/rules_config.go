package core

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/signalsfoundry/skymatrix/pixel"
)

// internal JSON shapes - unexported so we're free to evolve them.
type ruleFileJSON struct {
	Rules []ruleJSON `json:"rules"`
}

type ruleJSON struct {
	Type   string   `json:"type"`             // "always" | "tag" | "not_tag" | "launch_window" | "altitude_band" | "range_band"
	Color  string   `json:"color"`            // "#rrggbb"
	Tag    string   `json:"tag,omitempty"`    // tag / not_tag
	After  string   `json:"after,omitempty"`  // launch_window, YYYY-MM-DD
	Before string   `json:"before,omitempty"` // launch_window, YYYY-MM-DD
	MinKm  *float64 `json:"min_km,omitempty"` // bands
	MaxKm  *float64 `json:"max_km,omitempty"`
}

// LoadRules reads an ordered rule list from JSON. File order is
// composite order.
func LoadRules(r io.Reader) ([]Rule, error) {
	var payload ruleFileJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadRules: decode failed: %w", err)
	}

	rules := make([]Rule, 0, len(payload.Rules))
	for i, js := range payload.Rules {
		rule, err := ruleFromJSON(js)
		if err != nil {
			return nil, fmt.Errorf("LoadRules: rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func ruleFromJSON(js ruleJSON) (Rule, error) {
	color, err := parseRuleColor(js.Color)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(js.Type)) {
	case "always":
		return AlwaysRule{Color: color}, nil

	case "tag":
		if js.Tag == "" {
			return nil, fmt.Errorf("tag rule needs a tag")
		}
		return TagRule{Tag: js.Tag, Color: color}, nil

	case "not_tag":
		if js.Tag == "" {
			return nil, fmt.Errorf("not_tag rule needs a tag")
		}
		return NotTagRule{Tag: js.Tag, Color: color}, nil

	case "launch_window":
		after, err := parseRuleDate(js.After)
		if err != nil {
			return nil, err
		}
		before, err := parseRuleDate(js.Before)
		if err != nil {
			return nil, err
		}
		if after.IsZero() && before.IsZero() {
			return nil, fmt.Errorf("launch_window rule needs after and/or before")
		}
		return LaunchWindowRule{After: after, Before: before, Color: color}, nil

	case "altitude_band":
		minKm, maxKm, err := bandLimits(js)
		if err != nil {
			return nil, err
		}
		return AltitudeBandRule{MinKm: minKm, MaxKm: maxKm, Color: color}, nil

	case "range_band":
		minKm, maxKm, err := bandLimits(js)
		if err != nil {
			return nil, err
		}
		return RangeBandRule{MinKm: minKm, MaxKm: maxKm, Color: color}, nil

	default:
		return nil, fmt.Errorf("unknown rule type %q", js.Type)
	}
}

func parseRuleColor(s string) (pixel.RGB, error) {
	if s == "" {
		return pixel.RGB{}, fmt.Errorf("rule needs a color")
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return pixel.RGB{}, fmt.Errorf("color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return pixel.RGB{R: r, G: g, B: b}, nil
}

func parseRuleDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return t, nil
}

func bandLimits(js ruleJSON) (minKm, maxKm float64, err error) {
	if js.MinKm == nil || js.MaxKm == nil {
		return 0, 0, fmt.Errorf("band rule needs min_km and max_km")
	}
	if *js.MaxKm <= *js.MinKm {
		return 0, 0, fmt.Errorf("band rule needs min_km < max_km, got %v..%v", *js.MinKm, *js.MaxKm)
	}
	return *js.MinKm, *js.MaxKm, nil
}
