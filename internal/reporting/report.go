package reporting

import "time"

// Report is the rendered view of one finished experiment: the card
// under test, per-variant metrics, element scores, the diagnosis and
// the final decision, plus review outcomes when creatives went
// through the external review pipeline.
type Report struct {
	// Metadata
	GeneratedAt  time.Time
	ExperimentID string
	VariantCount int

	Card CardSummary

	// Per-variant, per-OS metric rows (sorted by variant_id, os)
	Metrics []MetricRow

	// Element scores (sorted by element_type, element_value)
	Elements []ElementRow

	Diagnosis DiagnosisSection
	Decision  DecisionSection

	// Review outcomes, one row per reviewed creative. Empty when the
	// experiment ran without the review pipeline.
	Reviews []ReviewRow
}

// CardSummary identifies the structure card under test.
type CardSummary struct {
	CardID           string
	Version          string
	Vertical         string
	Channel          string
	Country          string
	Segment          string
	OS               string
	Objective        string
	MotivationBucket string
}

// MetricRow is one simulated metric snapshot of a variant on one OS.
type MetricRow struct {
	VariantID    string
	OS           string
	Baseline     bool
	ChangedField string
	Impressions  int
	Clicks       int
	Installs     int
	Spend        float64
	CTR          float64
	IPM          float64
	CPI          float64
	EarlyROAS    float64
}

// ElementRow is one element-level score.
type ElementRow struct {
	ElementType string
	Value       string
	IPMDelta    float64
	CPIDelta    float64
	SampleSize  int
	Stable      bool
	Confidence  string
	Consistency string
}

// DiagnosisSection carries the failure classification and prescriptions.
type DiagnosisSection struct {
	State         string
	Title         string
	FailureType   string
	PrimarySignal string
	Detail        string
	Explanation   []string
	Actions       []ActionRow
}

// ActionRow is one prescribed follow-up experiment.
type ActionRow struct {
	Action      string
	ChangeField string
	Direction   string
	Recipe      string
	TargetOS    string
	Reason      string
}

// DecisionSection is the human-facing decision summary.
type DecisionSection struct {
	Status       string
	StatusText   string
	Reason       string
	Risk         string
	NextStep     string
	Insufficient bool
}

// ReviewRow joins a reviewed creative with its review and the fuse
// outcome computed over both.
type ReviewRow struct {
	VariantID        string
	Headline         string
	HookType         string
	CTA              string
	ModelDecision    string
	Verdict          string
	FuseLevel        string
	WhiteTrafficRisk int

	Clarity           int
	HookStrength      int
	ComplianceSafety  int
	ExpectedTestValue int

	KeyReasons    []string
	RequiredFixes []string
	Err           string
}
