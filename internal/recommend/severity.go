// Package recommend maps strategic gaps and tactical issues to deals from the
// catalogue and merges them into one prioritized plan.
package recommend

import (
	"encoding/json"
	"fmt"

	"github.com/Veraticus/flavyr/internal/model"
)

// SeverityKind tells numeric and categorical severities apart.
type SeverityKind int

// Severity kinds.
const (
	SeverityNumeric SeverityKind = iota
	SeverityCategorical
)

// CriticalGap is the numeric severity below which an item is critical.
const CriticalGap = -20.0

// Severity holds either a strategic gap percentage or a tactical level.
// The native value is kept; Rank only exists to order the two together.
type Severity struct {
	level model.Level
	gap   float64
	kind  SeverityKind
}

// NumericSeverity wraps a gap percentage.
func NumericSeverity(gap float64) Severity {
	return Severity{kind: SeverityNumeric, gap: gap}
}

// CategoricalSeverity wraps a tactical level.
func CategoricalSeverity(level model.Level) Severity {
	return Severity{kind: SeverityCategorical, level: level}
}

// Kind reports which variant s holds.
func (s Severity) Kind() SeverityKind { return s.kind }

// Gap returns the gap percentage of a numeric severity.
func (s Severity) Gap() (float64, bool) {
	return s.gap, s.kind == SeverityNumeric
}

// Level returns the level of a categorical severity.
func (s Severity) Level() (model.Level, bool) {
	return s.level, s.kind == SeverityCategorical
}

// Rank places s on the gap scale: more negative is more severe.
func (s Severity) Rank() float64 {
	if s.kind == SeverityNumeric {
		return s.gap
	}
	switch s.level {
	case model.LevelCritical:
		return -30
	case model.LevelHigh:
		return -20
	case model.LevelMedium:
		return -10
	case model.LevelLow:
		return -5
	default:
		return 0
	}
}

// IsCritical reports a gap below -20 or a critical level.
func (s Severity) IsCritical() bool {
	if s.kind == SeverityNumeric {
		return s.gap < CriticalGap
	}
	return s.level == model.LevelCritical
}

// Compare orders a before b when a is more severe. It returns -1, 0 or 1.
func Compare(a, b Severity) int {
	ra, rb := a.Rank(), b.Rank()
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	default:
		return 0
	}
}

func (s Severity) String() string {
	if s.kind == SeverityNumeric {
		return fmt.Sprintf("%.1f%%", s.gap)
	}
	return s.level.Label()
}

type severityJSON struct {
	Gap   *float64    `json:"gap_pct,omitempty"`
	Kind  string      `json:"kind"`
	Level model.Level `json:"level,omitempty"`
	Rank  float64     `json:"rank"`
}

// MarshalJSON keeps the native representation alongside the rank.
func (s Severity) MarshalJSON() ([]byte, error) {
	out := severityJSON{Rank: s.Rank()}
	if s.kind == SeverityNumeric {
		gap := s.gap
		out.Kind = "numeric"
		out.Gap = &gap
	} else {
		out.Kind = "categorical"
		out.Level = s.level
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores either variant.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var in severityJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case "numeric":
		if in.Gap == nil {
			return fmt.Errorf("numeric severity without gap_pct")
		}
		*s = NumericSeverity(*in.Gap)
	case "categorical":
		level, err := model.ParseLevel(string(in.Level))
		if err != nil {
			return err
		}
		*s = CategoricalSeverity(level)
	default:
		return fmt.Errorf("unknown severity kind %q", in.Kind)
	}
	return nil
}
