package models

// Estimated cost tiers assigned by the performance advisor. A query's
// tier is the highest tier among its referenced tables.
const (
	CostLow    = "low"
	CostMedium = "medium"
	CostHigh   = "high"
)

// PerformanceAdvisory carries the advisor's verdict for one query:
// warnings about expensive tables, recommendations (date filters and the
// like), and the estimated cost tier. Purely advisory; it never blocks
// execution.
type PerformanceAdvisory struct {
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`
	EstimatedCost   string   `json:"estimated_cost"`
}
