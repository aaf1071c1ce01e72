package model

import "fmt"

// Level is the categorical severity used by tactical findings.
type Level string

// Levels from most to least severe.
const (
	LevelCritical Level = "critical"
	LevelHigh     Level = "high"
	LevelMedium   Level = "medium"
	LevelLow      Level = "low"
	LevelGood     Level = "good"
)

// Order returns 0 for critical through 4 for good. Unknown levels sort with good.
func (l Level) Order() int {
	switch l {
	case LevelCritical:
		return 0
	case LevelHigh:
		return 1
	case LevelMedium:
		return 2
	case LevelLow:
		return 3
	default:
		return 4
	}
}

// Label is the capitalized form shown to users.
func (l Level) Label() string {
	switch l {
	case LevelCritical:
		return "Critical"
	case LevelHigh:
		return "High"
	case LevelMedium:
		return "Medium"
	case LevelLow:
		return "Low"
	case LevelGood:
		return "Good"
	default:
		return string(l)
	}
}

// ParseLevel validates a level name.
func ParseLevel(s string) (Level, error) {
	switch l := Level(s); l {
	case LevelCritical, LevelHigh, LevelMedium, LevelLow, LevelGood:
		return l, nil
	default:
		return "", fmt.Errorf("unknown severity level %q", s)
	}
}
