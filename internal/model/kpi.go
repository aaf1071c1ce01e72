// Package model defines the core data structures for the flavyr application.
package model

import "fmt"

// Polarity says whether a higher or a lower value of a KPI is better.
type Polarity string

// Polarity constants.
const (
	HigherIsBetter Polarity = "higher_is_better"
	LowerIsBetter  Polarity = "lower_is_better"
)

// KPI keys tracked by the default registry.
const (
	KPIAvgTicket      = "avg_ticket"
	KPICovers         = "covers"
	KPILaborCostPct   = "labor_cost_pct"
	KPIFoodCostPct    = "food_cost_pct"
	KPITableTurnover  = "table_turnover"
	KPISalesPerSqft   = "sales_per_sqft"
	KPICustomerRepeat = "expected_customer_repeat_rate"
)

// Business problems used to join issues against the deal catalogue.
const (
	ProblemIncreaseSales    = "Increase Quantity of Sales"
	ProblemBoostAOV         = "Boost Average Order Value (AOV)"
	ProblemCustomerLoyalty  = "Foster Customer Loyalty"
	ProblemSlowDays         = "Improve Slow Days"
	ProblemProfitMargins    = "Enhance Profit Margins"
	ProblemInventoryControl = "Inventory Management"
)

// KPIDefinition describes one tracked indicator.
type KPIDefinition struct {
	Key             string
	DisplayName     string
	Polarity        Polarity
	BusinessProblem string
	HelpText        string
}

// Registry is an ordered, read-only set of KPI definitions.
// Registration order is the deterministic tie-breaker used by ranking.
type Registry struct {
	index map[string]int
	defs  []KPIDefinition
}

// NewRegistry builds a registry from the given definitions.
func NewRegistry(defs ...KPIDefinition) (*Registry, error) {
	r := &Registry{
		index: make(map[string]int, len(defs)),
		defs:  make([]KPIDefinition, 0, len(defs)),
	}
	for _, d := range defs {
		if d.Key == "" {
			return nil, fmt.Errorf("kpi definition at position %d has no key", len(r.defs))
		}
		if _, dup := r.index[d.Key]; dup {
			return nil, fmt.Errorf("duplicate kpi key %q", d.Key)
		}
		if d.Polarity != HigherIsBetter && d.Polarity != LowerIsBetter {
			return nil, fmt.Errorf("kpi %q has invalid polarity %q", d.Key, d.Polarity)
		}
		r.index[d.Key] = len(r.defs)
		r.defs = append(r.defs, d)
	}
	return r, nil
}

// DefaultRegistry returns the seven restaurant KPIs.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultDefinitions()...)
	if err != nil {
		panic(err) // static table
	}
	return r
}

func defaultDefinitions() []KPIDefinition {
	return []KPIDefinition{
		{
			Key:             KPIAvgTicket,
			DisplayName:     "Average Ticket Size",
			Polarity:        HigherIsBetter,
			BusinessProblem: ProblemBoostAOV,
			HelpText:        "Average dollar amount spent per customer visit. Higher values indicate customers are ordering more.",
		},
		{
			Key:             KPICovers,
			DisplayName:     "Total Covers",
			Polarity:        HigherIsBetter,
			BusinessProblem: ProblemIncreaseSales,
			HelpText:        "Number of customers served during the period. Higher values indicate more traffic.",
		},
		{
			Key:             KPILaborCostPct,
			DisplayName:     "Labor Cost %",
			Polarity:        LowerIsBetter,
			BusinessProblem: ProblemProfitMargins,
			HelpText:        "Labor costs as a percentage of total revenue. LOWER is better.",
		},
		{
			Key:             KPIFoodCostPct,
			DisplayName:     "Food Cost %",
			Polarity:        LowerIsBetter,
			BusinessProblem: ProblemProfitMargins,
			HelpText:        "Food and beverage costs as a percentage of total revenue. LOWER is better.",
		},
		{
			Key:             KPITableTurnover,
			DisplayName:     "Table Turnover",
			Polarity:        HigherIsBetter,
			BusinessProblem: ProblemIncreaseSales,
			HelpText:        "Number of times a table is used during a service period.",
		},
		{
			Key:             KPISalesPerSqft,
			DisplayName:     "Sales per Sq Ft",
			Polarity:        HigherIsBetter,
			BusinessProblem: ProblemSlowDays,
			HelpText:        "Revenue generated per square foot of restaurant space.",
		},
		{
			Key:             KPICustomerRepeat,
			DisplayName:     "Customer Repeat Rate",
			Polarity:        HigherIsBetter,
			BusinessProblem: ProblemCustomerLoyalty,
			HelpText:        "Share of customers expected to return. Higher values indicate stronger loyalty.",
		},
	}
}

// Keys returns the KPI keys in registration order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.defs))
	for i, d := range r.defs {
		keys[i] = d.Key
	}
	return keys
}

// Definitions returns a copy of the definitions in registration order.
func (r *Registry) Definitions() []KPIDefinition {
	out := make([]KPIDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Get returns the definition for key.
func (r *Registry) Get(key string) (KPIDefinition, bool) {
	i, ok := r.index[key]
	if !ok {
		return KPIDefinition{}, false
	}
	return r.defs[i], true
}

// Index returns the registration position of key, or -1.
func (r *Registry) Index(key string) int {
	i, ok := r.index[key]
	if !ok {
		return -1
	}
	return i
}

// Problem returns the business problem tag for key.
func (r *Registry) Problem(key string) (string, bool) {
	d, ok := r.Get(key)
	if !ok || d.BusinessProblem == "" {
		return "", false
	}
	return d.BusinessProblem, true
}

// DisplayName returns the friendly name for key, falling back to the key.
func (r *Registry) DisplayName(key string) string {
	if d, ok := r.Get(key); ok {
		return d.DisplayName
	}
	return key
}

// Len returns the number of registered KPIs.
func (r *Registry) Len() int {
	return len(r.defs)
}
