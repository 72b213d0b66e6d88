// Package elements attributes metric movement to individual creative
// elements by comparing variants carrying an element against the card
// mean.
package elements

import (
	"sort"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
	"github.com/MyraWang0406/MatrixMirix04/internal/scoring"
)

// Confidence levels.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Cross-OS consistency values.
const (
	ConsistencyPos   = "pos"
	ConsistencyNeg   = "neg"
	ConsistencyMixed = "mixed"
)

// Score is the contribution result for one (element_type, value) pair.
type Score struct {
	ElementType  string `json:"element_type"`
	ElementValue string `json:"element_value"`

	// Deltas are the mean over rows carrying the element minus the card
	// mean. Positive IPM delta pulls, positive CPI delta drags.
	AvgIPMDeltaVsCardMean float64 `json:"avg_IPM_delta_vs_card_mean"`
	AvgCPIDeltaVsCardMean float64 `json:"avg_CPI_delta_vs_card_mean"`

	SampleSize      int     `json:"sample_size"`
	StabilityFlag   bool    `json:"stability_flag"`
	NormalizedScore float64 `json:"normalized_score"`

	ConfidenceLevel    string `json:"confidence_level"`
	CrossOSConsistency string `json:"cross_os_consistency"`
}

// DefaultMinSampleSize marks an element stable once it has this many
// (variant, os) rows.
const DefaultMinSampleSize = 2

type obs struct {
	ipm, cpi float64
	os       string
}

// Compute attributes IPM/CPI movement to element tags. Each metrics
// row counts once per distinct tag it carries. Results are ordered by
// element type then value so output is deterministic.
func Compute(variantMetrics []domain.SimulatedMetrics, variantToTags map[string][]domain.ElementTag, minSampleSize int) []Score {
	if minSampleSize < 1 {
		minSampleSize = DefaultMinSampleSize
	}
	if len(variantToTags) == 0 {
		return nil
	}

	var inScope []domain.SimulatedMetrics
	for _, m := range variantMetrics {
		if _, ok := variantToTags[m.VariantID]; ok {
			inScope = append(inScope, m)
		}
	}
	if len(inScope) == 0 {
		return nil
	}

	cardIPM, cardCPI := 0.0, 0.0
	for _, m := range inScope {
		cardIPM += m.IPM
		cardCPI += m.CPI
	}
	cardIPM /= float64(len(inScope))
	cardCPI /= float64(len(inScope))

	type key struct{ et, ev string }
	elementObs := map[key][]obs{}
	var order []key

	for _, m := range inScope {
		seen := map[key]bool{}
		for _, t := range variantToTags[m.VariantID] {
			k := key{t.ElementType, t.ElementValue}
			if seen[k] {
				continue
			}
			seen[k] = true
			if _, ok := elementObs[k]; !ok {
				order = append(order, k)
			}
			elementObs[k] = append(elementObs[k], obs{m.IPM, m.CPI, m.OS})
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].et != order[j].et {
			return order[i].et < order[j].et
		}
		return order[i].ev < order[j].ev
	})

	scores := make([]Score, 0, len(order))
	for _, k := range order {
		rows := elementObs[k]
		n := len(rows)

		meanIPM, meanCPI := 0.0, 0.0
		byOS := map[string][]obs{}
		for _, r := range rows {
			meanIPM += r.ipm
			meanCPI += r.cpi
			byOS[r.os] = append(byOS[r.os], r)
		}
		meanIPM /= float64(n)
		meanCPI /= float64(n)
		ipmDelta := meanIPM - cardIPM
		cpiDelta := meanCPI - cardCPI

		consistency := crossOSConsistency(byOS, cardIPM, cardCPI)
		scores = append(scores, Score{
			ElementType:           k.et,
			ElementValue:          k.ev,
			AvgIPMDeltaVsCardMean: round4(ipmDelta),
			AvgCPIDeltaVsCardMean: round4(cpiDelta),
			SampleSize:            n,
			StabilityFlag:         n >= minSampleSize,
			NormalizedScore:       scoring.ElementNormalizedScore(ipmDelta, cpiDelta),
			ConfidenceLevel:       confidenceLevel(n, consistency),
			CrossOSConsistency:    consistency,
		})
	}
	return scores
}

// crossOSConsistency checks whether the element pulls or drags in the
// same direction on every OS it has data for. Single-OS coverage is
// never a consistent verdict.
func crossOSConsistency(byOS map[string][]obs, cardIPM, cardCPI float64) string {
	if len(byOS) < 2 {
		return ConsistencyMixed
	}

	var dirs []int
	for _, rows := range byOS {
		meanIPM, meanCPI := 0.0, 0.0
		for _, r := range rows {
			meanIPM += r.ipm
			meanCPI += r.cpi
		}
		meanIPM /= float64(len(rows))
		meanCPI /= float64(len(rows))

		ipmD := meanIPM - cardIPM
		cpiD := meanCPI - cardCPI
		switch {
		case ipmD > 0 || cpiD < 0:
			dirs = append(dirs, 1)
		case ipmD < 0 || cpiD > 0:
			dirs = append(dirs, -1)
		default:
			dirs = append(dirs, 0)
		}
	}

	first := dirs[0]
	for _, d := range dirs[1:] {
		if d != first {
			return ConsistencyMixed
		}
	}
	if first == 1 {
		return ConsistencyPos
	}
	return ConsistencyNeg
}

// confidenceLevel tiers the sample size, then downgrades one tier when
// the OSes disagree. It never drops below low.
func confidenceLevel(n int, consistency string) string {
	var base string
	switch {
	case n < 6:
		base = ConfidenceLow
	case n <= 15:
		base = ConfidenceMedium
	default:
		base = ConfidenceHigh
	}
	if consistency == ConsistencyMixed {
		switch base {
		case ConfidenceHigh:
			return ConfidenceMedium
		case ConfidenceMedium:
			return ConfidenceLow
		}
	}
	return base
}

func round4(v float64) float64 {
	const p = 10000
	if v >= 0 {
		return float64(int(v*p+0.5)) / p
	}
	return float64(int(v*p-0.5)) / p
}
