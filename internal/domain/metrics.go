package domain

// SimulatedMetrics is one simulated delivery row per (variant, os) pair.
// Derived metrics are always recomputed from the final raw values, so
// ipm == installs/impressions*1000 etc. hold exactly.
type SimulatedMetrics struct {
	VariantID string `json:"variant_id"`
	OS        string `json:"os"`
	Baseline  bool   `json:"baseline"`

	Impressions  int     `json:"impressions"`
	Clicks       int     `json:"clicks"`
	Installs     int     `json:"installs"`
	Spend        float64 `json:"spend"`
	EarlyEvents  int     `json:"early_events"`
	EarlyRevenue float64 `json:"early_revenue"`

	CTR       float64 `json:"ctr"`
	IPM       float64 `json:"ipm"`
	CPI       float64 `json:"cpi"`
	EarlyROAS float64 `json:"early_roas"`

	// Ecommerce only.
	RefundRisk      float64 `json:"refund_risk"`
	ConversionProxy float64 `json:"conversion_proxy"`
	OrderProxy      float64 `json:"order_proxy"`
}

// WindowMetrics is one time window's aggregate, fed to the validate
// gate in chronological order.
type WindowMetrics struct {
	WindowID     string  `json:"window_id"`
	Impressions  int     `json:"impressions"`
	Clicks       int     `json:"clicks"`
	Installs     int     `json:"installs"`
	Spend        float64 `json:"spend"`
	EarlyEvents  int     `json:"early_events"`
	EarlyRevenue float64 `json:"early_revenue"`
	IPM          float64 `json:"ipm"`
	CPI          float64 `json:"cpi"`
	EarlyROAS    float64 `json:"early_roas"`
}
