// Package gate holds the two promotion gates: explore judges test
// variants against a baseline on proxy metrics, validate judges a
// passing structure across time windows for stability.
package gate

import (
	"fmt"

	"github.com/MyraWang0406/MatrixMirix04/internal/corpus"
	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
)

// Gate statuses, shared by both gates.
const (
	StatusPass         = "PASS"
	StatusFail         = "FAIL"
	StatusInsufficient = "INSUFFICIENT"
	StatusInvalid      = "INVALID"
)

// ExploreConfig holds the explore gate thresholds.
type ExploreConfig struct {
	// MinSpend is the spend floor below which a variant is judged
	// INSUFFICIENT instead of being compared to the baseline.
	MinSpend float64

	// MinBetterMetrics is how many of CTR/IPM/CPI a variant must win to
	// pass.
	MinBetterMetrics int

	// ImprovementPct, when positive, requires each win to clear the
	// baseline by that margin instead of a strict inequality.
	ImprovementPct float64
}

func DefaultExploreConfig() ExploreConfig {
	return ExploreConfig{MinSpend: 500, MinBetterMetrics: 2}
}

// ExploreContext scopes one gate evaluation.
type ExploreContext struct {
	Country          string `json:"country"`
	OS               string `json:"os"`
	Objective        string `json:"objective"`
	Segment          string `json:"segment"`
	MotivationBucket string `json:"motivation_bucket"`
}

// BucketKey identifies the motivation triple a variant was built for.
// Variants carrying a different triple than the baseline are comparing
// apples to oranges and are marked INVALID.
type BucketKey struct {
	MotivationBucket string
	WhyYouKey        string
	WhyNowTrigger    string
}

func (k BucketKey) isZero() bool {
	return k == BucketKey{}
}

// BucketInfo is optional bucket metadata for the consistency check.
type BucketInfo struct {
	Baseline BucketKey
	Variants map[string]BucketKey
}

// ExploreResult is the explore gate output for one context.
type ExploreResult struct {
	GateStatus       string            `json:"gate_status"`
	Reasons          []string          `json:"reasons"`
	EligibleVariants []string          `json:"eligible_variants"`
	VariantDetails   map[string]string `json:"variant_details"`
	Context          ExploreContext    `json:"context"`
}

// EvaluateExplore decides which test variants advance to validation.
// The baseline is resolved per context OS; the per-variant judgement is
// spend floor first, then proxy metric wins. The roll-up prefers
// PASS over INSUFFICIENT over INVALID over FAIL.
func EvaluateExplore(variantMetrics []domain.SimulatedMetrics, baselineMetrics []domain.SimulatedMetrics, ctx ExploreContext, cfg ExploreConfig, buckets *BucketInfo) ExploreResult {
	res := ExploreResult{
		Reasons:        []string{},
		VariantDetails: map[string]string{},
		Context:        ctx,
	}

	baseline, ok := resolveBaseline(baselineMetrics, ctx.OS)
	if !ok {
		res.GateStatus = StatusInvalid
		res.Reasons = append(res.Reasons, "missing baseline data or baseline does not match context os")
		return res
	}

	var candidates []domain.SimulatedMetrics
	for _, m := range variantMetrics {
		if m.Baseline {
			continue
		}
		if ctx.OS != "" && m.OS != ctx.OS {
			continue
		}
		candidates = append(candidates, m)
	}
	if len(candidates) == 0 {
		res.GateStatus = StatusFail
		res.Reasons = append(res.Reasons, "no test variants to evaluate or none match context os")
		return res
	}

	for _, v := range candidates {
		vid := v.VariantID

		if buckets != nil && !buckets.Baseline.isZero() {
			if vb, ok := buckets.Variants[vid]; ok && !vb.isZero() && vb != buckets.Baseline {
				res.VariantDetails[vid] = StatusInvalid
				res.Reasons = append(res.Reasons, fmt.Sprintf("%s: bucket differs from baseline", vid))
				continue
			}
		}

		if v.Spend < cfg.MinSpend {
			res.VariantDetails[vid] = StatusInsufficient
			res.Reasons = append(res.Reasons, fmt.Sprintf("%s: spend=%.0f below minimum budget %.0f", vid, v.Spend, cfg.MinSpend))
			continue
		}

		better := countBetter(v, baseline, cfg.ImprovementPct)
		if better >= cfg.MinBetterMetrics {
			res.VariantDetails[vid] = StatusPass
			res.EligibleVariants = append(res.EligibleVariants, vid)
			res.Reasons = append(res.Reasons, fmt.Sprintf("%s: better than baseline on %d metrics, pass", vid, better))
		} else {
			res.VariantDetails[vid] = StatusFail
			res.Reasons = append(res.Reasons, fmt.Sprintf("%s: only %d metrics better than baseline, need >=%d", vid, better, cfg.MinBetterMetrics))
		}
	}

	res.GateStatus = rollUp(res.EligibleVariants, res.VariantDetails)

	if ctx.MotivationBucket != "" {
		res.Reasons = append([]string{bucketLead(ctx.MotivationBucket, res.GateStatus)}, res.Reasons...)
	}
	return res
}

func resolveBaseline(baselines []domain.SimulatedMetrics, targetOS string) (domain.SimulatedMetrics, bool) {
	if targetOS == "" {
		// Without a context OS a single baseline is unambiguous;
		// several per-OS baselines are not, and picking one would
		// compare variants against the wrong platform.
		if len(baselines) == 1 {
			return baselines[0], true
		}
		return domain.SimulatedMetrics{}, false
	}
	for _, b := range baselines {
		if b.OS == targetOS {
			return b, true
		}
	}
	return domain.SimulatedMetrics{}, false
}

// countBetter scores a variant against the baseline on the explore
// proxy metrics. CTR and IPM win high, CPI wins low. With a positive
// improvement margin a win must clear the baseline by that percentage.
func countBetter(v, baseline domain.SimulatedMetrics, improvementPct float64) int {
	better := 0

	if improvementPct <= 0 {
		if v.CTR > baseline.CTR {
			better++
		}
		if v.IPM > baseline.IPM {
			better++
		}
		if v.CPI < baseline.CPI {
			better++
		}
		return better
	}

	margin := improvementPct / 100
	if v.CTR >= baseline.CTR*(1+margin) {
		better++
	}
	if v.IPM >= baseline.IPM*(1+margin) {
		better++
	}
	if v.CPI <= baseline.CPI*(1-margin) {
		better++
	}
	return better
}

func rollUp(eligible []string, details map[string]string) string {
	if len(eligible) > 0 {
		return StatusPass
	}
	for _, s := range details {
		if s == StatusInsufficient {
			return StatusInsufficient
		}
	}
	for _, s := range details {
		if s == StatusInvalid {
			return StatusInvalid
		}
	}
	return StatusFail
}

// bucketLead explains the gate outcome in terms of the motivation
// bucket, so reasons always reference why this bucket is judged the
// way it is.
func bucketLead(motivationBucket, status string) string {
	switch corpus.ClassifyBucket(motivationBucket) {
	case corpus.BucketValue:
		return fmt.Sprintf("[motivation_bucket=%s] value seekers are CTR-sensitive, the gate leans on click conversion; current %s.", motivationBucket, status)
	case corpus.BucketExperience:
		return fmt.Sprintf("[motivation_bucket=%s] experience seekers are early_roas-sensitive, passing variants still need conversion quality validation; current %s.", motivationBucket, status)
	case corpus.BucketAchievement, corpus.BucketThrill:
		return fmt.Sprintf("[motivation_bucket=%s] achievement and thrill buckets weigh the IPM and CPI balance; current %s.", motivationBucket, status)
	default:
		return fmt.Sprintf("[motivation_bucket=%s] current %s, consistent with this bucket's evaluation standard.", motivationBucket, status)
	}
}
