package transparency

import "time"

// AuditEntry records one stage of an analysis run.
type AuditEntry struct {
	Timestamp   time.Time      `json:"timestamp"`
	Details     map[string]any `json:"details,omitempty"`
	Description string         `json:"description"`
	Step        int            `json:"step"`
}

// Trail collects audit entries in order. The zero value uses time.Now.
type Trail struct {
	now     func() time.Time
	entries []AuditEntry
}

// NewTrail creates a trail stamped by now.
func NewTrail(now func() time.Time) *Trail {
	return &Trail{now: now}
}

// Add appends an entry numbered after the previous one.
func (t *Trail) Add(description string, details map[string]any) {
	now := time.Now
	if t.now != nil {
		now = t.now
	}
	t.entries = append(t.entries, AuditEntry{
		Step:        len(t.entries) + 1,
		Timestamp:   now(),
		Description: description,
		Details:     details,
	})
}

// Entries returns a copy of the recorded entries.
func (t *Trail) Entries() []AuditEntry {
	out := make([]AuditEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
