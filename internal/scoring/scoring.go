// Package scoring turns raw metrics into comparable 0-100 scores at
// the variant, element and card level.
package scoring

import (
	"math"
	"sort"

	"github.com/MyraWang0406/MatrixMirix04/internal/corpus"
	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
)

// VariantScore computes a 0-100 weighted score for one metrics row,
// min-max normalized against its same-OS cohort. IPM and early ROAS
// score high-is-good, CPI low-is-good. Ecommerce weights additionally
// subtract a refund-risk penalty.
func VariantScore(m domain.SimulatedMetrics, cohort []domain.SimulatedMetrics, w corpus.MetricWeights) float64 {
	sameOS := make([]domain.SimulatedMetrics, 0, len(cohort))
	for _, x := range cohort {
		if x.OS == m.OS {
			sameOS = append(sameOS, x)
		}
	}
	if len(sameOS) == 0 {
		sameOS = cohort
	}
	if len(sameOS) == 0 {
		return 0
	}

	var ipms, cpis, roas, ctrs []float64
	for _, x := range sameOS {
		ipms = append(ipms, x.IPM)
		cpis = append(cpis, x.CPI)
		roas = append(roas, x.EarlyROAS)
		ctrs = append(ctrs, x.CTR)
	}

	score := w.IPM*normHigh(m.IPM, ipms) +
		w.CPI*normLow(m.CPI, cpis) +
		w.EarlyROAS*normHigh(m.EarlyROAS, roas)
	if w.CTR > 0 {
		score += w.CTR * normHigh(m.CTR, ctrs)
	}
	if w.UseRefundRisk {
		score -= m.RefundRisk * 15
	}
	return round1(clamp(score, 0, 100))
}

// ElementNormalizedScore maps an element's IPM/CPI deltas onto a
// -100..100 contribution score. A full IPM scale unit (8) or CPI scale
// unit (1.5) is worth 50 points.
func ElementNormalizedScore(ipmDelta, cpiDelta float64) float64 {
	contrib := (ipmDelta/8.0)*50 - (cpiDelta/1.5)*50
	return round1(clamp(contrib, -100, 100))
}

// PenaltyBreakdown itemizes what was subtracted from the card base
// score.
type PenaltyBreakdown struct {
	StabilityPenalty float64 `json:"stability_penalty"`
	WhyNowPenalty    float64 `json:"why_now_penalty"`
	BaseMean         float64 `json:"base_mean"`
}

// CardScoreResult is the card-level roll-up.
type CardScoreResult struct {
	CardScore        float64          `json:"card_score"`
	TopVariants      []string         `json:"top_variants"`
	PenaltyBreakdown PenaltyBreakdown `json:"penalty_breakdown"`
}

// CardScore aggregates gate-passing variants into one card score: the
// mean of the top-K variant scores minus stability and why-now
// stimulus penalties, clipped to 0-100.
func CardScore(eligible []string, variantScores map[string]float64, topK int, stabilityPenalty, whyNowPenalty float64) CardScoreResult {
	if topK < 1 {
		topK = 5
	}

	type scored struct {
		vid   string
		score float64
	}
	var rows []scored
	for _, vid := range eligible {
		if s, ok := variantScores[vid]; ok {
			rows = append(rows, scored{vid, s})
		}
	}
	if len(rows) == 0 {
		return CardScoreResult{
			PenaltyBreakdown: PenaltyBreakdown{
				StabilityPenalty: stabilityPenalty,
				WhyNowPenalty:    whyNowPenalty,
			},
		}
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].score > rows[j].score })
	if len(rows) > topK {
		rows = rows[:topK]
	}

	sum := 0.0
	top := make([]string, 0, len(rows))
	for _, r := range rows {
		sum += r.score
		top = append(top, r.vid)
	}
	baseMean := sum / float64(len(rows))

	return CardScoreResult{
		CardScore:   round1(clamp(baseMean-stabilityPenalty-whyNowPenalty, 0, 100)),
		TopVariants: top,
		PenaltyBreakdown: PenaltyBreakdown{
			StabilityPenalty: stabilityPenalty,
			WhyNowPenalty:    whyNowPenalty,
			BaseMean:         round1(baseMean),
		},
	}
}

func normHigh(val float64, xs []float64) float64 {
	lo, hi := minMax(xs)
	if hi <= lo {
		return 50
	}
	return 100 * (val - lo) / (hi - lo)
}

func normLow(val float64, xs []float64) float64 {
	lo, hi := minMax(xs)
	if hi <= lo {
		return 50
	}
	return 100 * (hi - val) / (hi - lo)
}

func minMax(xs []float64) (lo, hi float64) {
	lo, hi = xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
