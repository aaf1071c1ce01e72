package model

import (
	"fmt"
	"time"
)

// Segment identifies a benchmark segment.
type Segment struct {
	CuisineType string `json:"cuisine_type" yaml:"cuisine_type"`
	DiningModel string `json:"dining_model" yaml:"dining_model"`
}

func (s Segment) String() string {
	return fmt.Sprintf("%s - %s", s.CuisineType, s.DiningModel)
}

// RecordKind tells an actual record apart from a benchmark record.
type RecordKind string

// Record kinds.
const (
	RecordActual    RecordKind = "actual"
	RecordBenchmark RecordKind = "benchmark"
)

// MetricRecord maps KPI keys to values for one restaurant or one segment.
type MetricRecord struct {
	Values  map[string]float64 `json:"values"`
	Segment Segment            `json:"segment"`
	Kind    RecordKind         `json:"kind"`
}

// NewMetricRecord creates an empty record.
func NewMetricRecord(kind RecordKind, segment Segment) MetricRecord {
	return MetricRecord{
		Kind:    kind,
		Segment: segment,
		Values:  make(map[string]float64),
	}
}

// Value returns the value stored for key.
func (m MetricRecord) Value(key string) (float64, bool) {
	if m.Values == nil {
		return 0, false
	}
	v, ok := m.Values[key]
	return v, ok
}

// Set stores a value, allocating the map if needed.
func (m *MetricRecord) Set(key string, v float64) {
	if m.Values == nil {
		m.Values = make(map[string]float64)
	}
	m.Values[key] = v
}

// Confidence labels how trustworthy a derived value is.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Provenance records where a metric value came from.
type Provenance struct {
	Source     string     `json:"source"`
	Confidence Confidence `json:"confidence"`
	Derived    bool       `json:"derived"`
}

// DerivedAggregate is a metric record synthesized from transactions.
type DerivedAggregate struct {
	Provenance map[string]Provenance `json:"provenance"`
	Record     MetricRecord          `json:"record"`
}

// LowConfidence returns the defaulted keys in registry order.
func (d *DerivedAggregate) LowConfidence(reg *Registry) []string {
	var keys []string
	for _, k := range reg.Keys() {
		if p, ok := d.Provenance[k]; ok && !p.Derived {
			keys = append(keys, k)
		}
	}
	return keys
}

// RestaurantDay is one uploaded row of daily restaurant metrics.
type RestaurantDay struct {
	Date    time.Time          `json:"date"`
	Values  map[string]float64 `json:"values"`
	Segment Segment            `json:"segment"`
}
