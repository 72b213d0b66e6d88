package scoring

import (
	"testing"

	"github.com/MyraWang0406/MatrixMirix04/internal/corpus"
	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
)

func row(vid, os string, ipm, cpi, roas float64) domain.SimulatedMetrics {
	return domain.SimulatedMetrics{VariantID: vid, OS: os, IPM: ipm, CPI: cpi, EarlyROAS: roas}
}

func gameWeights() corpus.MetricWeights {
	return corpus.MetricWeights{IPM: 0.4, CPI: 0.35, EarlyROAS: 0.25}
}

func TestVariantScoreBestAndWorst(t *testing.T) {
	cohort := []domain.SimulatedMetrics{
		row("v001", domain.OSiOS, 10, 5.0, 0.05),
		row("v002", domain.OSiOS, 30, 2.0, 0.20),
		row("v003", domain.OSiOS, 20, 3.5, 0.10),
	}

	best := VariantScore(cohort[1], cohort, gameWeights())
	if best != 100 {
		t.Errorf("best variant score = %v, want 100", best)
	}
	worst := VariantScore(cohort[0], cohort, gameWeights())
	if worst != 0 {
		t.Errorf("worst variant score = %v, want 0", worst)
	}
	mid := VariantScore(cohort[2], cohort, gameWeights())
	if mid <= 0 || mid >= 100 {
		t.Errorf("mid variant score = %v, want strictly between", mid)
	}
}

func TestVariantScoreDegenerateCohort(t *testing.T) {
	cohort := []domain.SimulatedMetrics{
		row("v001", domain.OSiOS, 20, 3, 0.1),
		row("v002", domain.OSiOS, 20, 3, 0.1),
	}
	// All metrics identical: every normalized term is 50.
	got := VariantScore(cohort[0], cohort, gameWeights())
	if got != 50 {
		t.Errorf("degenerate cohort score = %v, want 50", got)
	}
}

func TestVariantScoreFiltersByOS(t *testing.T) {
	cohort := []domain.SimulatedMetrics{
		row("v001", domain.OSiOS, 10, 5, 0.05),
		row("v002", domain.OSiOS, 30, 2, 0.20),
		// Android outlier must not affect the iOS normalization.
		row("v003", domain.OSAndroid, 300, 0.1, 0.9),
	}
	got := VariantScore(cohort[1], cohort, gameWeights())
	if got != 100 {
		t.Errorf("iOS best score = %v, want 100 despite android outlier", got)
	}
}

func TestVariantScoreRefundRiskPenalty(t *testing.T) {
	w := corpus.MetricWeights{IPM: 0.35, CPI: 0.3, EarlyROAS: 0.35, UseRefundRisk: true}
	m := row("v001", domain.OSiOS, 20, 3, 0.1)
	m.RefundRisk = 0.5
	cohort := []domain.SimulatedMetrics{m, m}

	// Degenerate cohort scores 50; refund risk 0.5 subtracts 7.5.
	got := VariantScore(m, cohort, w)
	if got != 42.5 {
		t.Errorf("score with refund penalty = %v, want 42.5", got)
	}
}

func TestElementNormalizedScore(t *testing.T) {
	cases := []struct {
		ipmDelta, cpiDelta, want float64
	}{
		{0, 0, 0},
		{8, 0, 50},
		{0, 1.5, -50},
		{8, -1.5, 100},
		{-40, 10, -100}, // clipped
		{4, 0.75, 0},
	}
	for _, c := range cases {
		if got := ElementNormalizedScore(c.ipmDelta, c.cpiDelta); got != c.want {
			t.Errorf("ElementNormalizedScore(%v, %v) = %v, want %v", c.ipmDelta, c.cpiDelta, got, c.want)
		}
	}
}

func TestCardScoreTopK(t *testing.T) {
	eligible := []string{"v002", "v003", "v004", "v005"}
	scores := map[string]float64{
		"v002": 90, "v003": 80, "v004": 70, "v005": 60,
	}
	res := CardScore(eligible, scores, 2, 0, 0)

	if res.CardScore != 85 {
		t.Errorf("card_score = %v, want 85 (mean of top 2)", res.CardScore)
	}
	if len(res.TopVariants) != 2 || res.TopVariants[0] != "v002" || res.TopVariants[1] != "v003" {
		t.Errorf("top_variants = %v, want [v002 v003]", res.TopVariants)
	}
	if res.PenaltyBreakdown.BaseMean != 85 {
		t.Errorf("base_mean = %v, want 85", res.PenaltyBreakdown.BaseMean)
	}
}

func TestCardScorePenalties(t *testing.T) {
	res := CardScore([]string{"v002"}, map[string]float64{"v002": 50}, 5, 10, 3)
	if res.CardScore != 37 {
		t.Errorf("card_score = %v, want 37 after penalties", res.CardScore)
	}

	// Penalties can never push below zero.
	res = CardScore([]string{"v002"}, map[string]float64{"v002": 5}, 5, 10, 3)
	if res.CardScore != 0 {
		t.Errorf("card_score = %v, want 0 floor", res.CardScore)
	}
}

func TestCardScoreNoEligible(t *testing.T) {
	res := CardScore(nil, map[string]float64{"v002": 50}, 5, 2, 1)
	if res.CardScore != 0 || len(res.TopVariants) != 0 {
		t.Errorf("empty eligible should zero out: %+v", res)
	}
	if res.PenaltyBreakdown.StabilityPenalty != 2 || res.PenaltyBreakdown.WhyNowPenalty != 1 {
		t.Errorf("penalties should still be reported: %+v", res.PenaltyBreakdown)
	}
}
