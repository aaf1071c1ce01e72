package model

import "time"

// RunSource identifies which kind of input an analysis run consumed.
type RunSource string

// Run sources.
const (
	SourceAggregate    RunSource = "aggregate"
	SourceTransactions RunSource = "transactions"
)

// RunRecord is the persisted summary of one analysis run.
type RunRecord struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	Source    RunSource `json:"source"`
	Outcome   string    `json:"outcome"`
	Grade     string    `json:"grade"`
	Segment   Segment   `json:"segment"`
	Result    []byte    `json:"-"`
	Critical  bool      `json:"critical"`
}
