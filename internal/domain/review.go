package domain

// Verdict is the final fuse outcome for a reviewed creative.
type Verdict string

const (
	VerdictPass   Verdict = "PASS"
	VerdictRevise Verdict = "REVISE"
	VerdictKill   Verdict = "KILL"
)

// FuseLevel is the safety escalation level. Severity only ratchets up,
// never down: RED > YELLOW > GREEN.
type FuseLevel string

const (
	FuseGreen  FuseLevel = "GREEN"
	FuseYellow FuseLevel = "YELLOW"
	FuseRed    FuseLevel = "RED"
)

// ReviewShot is one storyboard shot of a reviewed creative.
type ReviewShot struct {
	T           float64 `json:"t"`
	Visual      string  `json:"visual"`
	OverlayText string  `json:"overlay_text"`
	Voiceover   string  `json:"voiceover"`
	SfxBGM      string  `json:"sfx_bgm"`
}

// ReviewedCreative is a creative as submitted to the external review
// pipeline. All free-text fields are scanned by the fuse.
type ReviewedCreative struct {
	VariantID   string       `json:"variant_id"`
	HookType    string       `json:"hook_type"`
	Who         string       `json:"who"`
	Why         string       `json:"why"`
	WhyNow      string       `json:"why_now"`
	Shots       []ReviewShot `json:"shots,omitempty"`
	CTA         string       `json:"cta"`
	Notes       string       `json:"notes"`
	Headline    string       `json:"headline,omitempty"`
	CoreMessage string       `json:"core_message,omitempty"`
}

// ReviewScores are the six 0-100 review dimensions.
type ReviewScores struct {
	Clarity           int `json:"clarity"`
	HookStrength      int `json:"hook_strength"`
	SellPointStrength int `json:"sell_point_strength"`
	CTAQuality        int `json:"cta_quality"`
	ComplianceSafety  int `json:"compliance_safety"`
	ExpectedTestValue int `json:"expected_test_value"`
}

// RequiredFix is one mandatory change named by the reviewer.
type RequiredFix struct {
	Fix string `json:"fix"`
	Why string `json:"why"`
	How string `json:"how"`
}

// Review is an externally-produced judgment of one creative. The core
// never calls the review service; it only consumes this record.
type Review struct {
	VariantID     string        `json:"variant_id"`
	Scores        ReviewScores  `json:"scores"`
	Decision      string        `json:"decision"` // HARD_FAIL / SOFT_FAIL / PASS vocabulary
	KeyReasons    []string      `json:"key_reasons,omitempty"`
	RequiredFixes []RequiredFix `json:"required_fixes,omitempty"`

	// WhiteTrafficRisk is the reviewer's self-reported risk bucket:
	// low / medium / high.
	WhiteTrafficRisk string `json:"white_traffic_risk_final"`

	// Err is set when the upstream call or its JSON parse failed. A
	// missing judgment is treated as maximally unsafe by the fuse.
	Err string `json:"error,omitempty"`
}
