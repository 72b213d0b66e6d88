package gate

import (
	"fmt"
	"math"
	"strings"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
)

// ValidateConfig holds the validate gate thresholds.
type ValidateConfig struct {
	IPMCVMax                     float64
	IPMDropMaxPct                float64
	CPIIncreaseMaxPct            float64
	LightExpansionIPMDropMax     float64
	LightExpansionCPIIncreaseMax float64
}

func DefaultValidateConfig() ValidateConfig {
	return ValidateConfig{
		IPMCVMax:                     0.35,
		IPMDropMaxPct:                0.30,
		CPIIncreaseMaxPct:            0.25,
		LightExpansionIPMDropMax:     0.20,
		LightExpansionCPIIncreaseMax: 0.30,
	}
}

// ScaleRecommendation is the operational advice attached to a validate
// verdict.
type ScaleRecommendation struct {
	ScaleUpStep string `json:"scale_up_step"`
	StopLoss    string `json:"stop_loss"`
}

// DetailRow is one window (or the expansion segment) in the verdict's
// evidence table.
type DetailRow struct {
	WindowID    string  `json:"window_id"`
	IPM         float64 `json:"ipm"`
	CPI         float64 `json:"cpi"`
	EarlyROAS   float64 `json:"early_roas"`
	Impressions int     `json:"impressions"`
	Spend       float64 `json:"spend"`
}

// StabilityMetrics summarizes cross-window stability.
type StabilityMetrics struct {
	IPMCV              float64 `json:"ipm_cv"`
	IPMDropPct         float64 `json:"ipm_drop_pct"`
	CPIIncreasePct     float64 `json:"cpi_increase_pct"`
	LearningIterations int     `json:"learning_iterations"`
}

// ValidateResult is the validate gate output.
type ValidateResult struct {
	ValidateStatus      string              `json:"validate_status"`
	RiskNotes           []string            `json:"risk_notes"`
	ScaleRecommendation ScaleRecommendation `json:"scale_recommendation"`
	DetailRows          []DetailRow         `json:"detail_rows"`
	Stability           StabilityMetrics    `json:"stability_metrics"`
}

// EvaluateValidate judges structure stability over chronologically
// ordered time windows, plus an optional light audience expansion
// window. Fewer than two windows is an immediate FAIL; no statistics
// are attempted on a single point.
func EvaluateValidate(windows []domain.WindowMetrics, lightExpansion *domain.WindowMetrics, cfg ValidateConfig) ValidateResult {
	if len(windows) < 2 {
		return ValidateResult{
			ValidateStatus: StatusFail,
			RiskNotes:      []string{"insufficient windows, need at least 2 to verify stability"},
			ScaleRecommendation: ScaleRecommendation{
				ScaleUpStep: "hold scaling",
				StopLoss:    "re-evaluate once more windows land",
			},
		}
	}

	var ipms, cpis, roasList []float64
	var events []int
	for _, w := range windows {
		if w.Impressions > 0 {
			ipms = append(ipms, w.IPM)
		}
		if w.Installs > 0 {
			cpis = append(cpis, w.CPI)
		}
		if w.Spend > 0 {
			roasList = append(roasList, w.EarlyROAS)
		}
		events = append(events, w.EarlyEvents)
	}
	if len(ipms) == 0 {
		return ValidateResult{
			ValidateStatus:      StatusFail,
			RiskNotes:           []string{"no valid IPM data"},
			ScaleRecommendation: ScaleRecommendation{ScaleUpStep: "-", StopLoss: "-"},
		}
	}

	riskNotes := []string{}
	failCount := 0

	meanIPM := mean(ipms)
	meanCPI := mean(cpis)

	ipmCV := 0.0
	if meanIPM != 0 {
		ipmCV = popStdDev(ipms, meanIPM) / meanIPM
	}
	if ipmCV > cfg.IPMCVMax {
		riskNotes = append(riskNotes, "IPM swings too widely, structure stability is questionable")
		failCount++
	}

	ipmFirst := ipms[0]
	ipmDrop := 0.0
	if ipmFirst != 0 {
		ipmDrop = (ipmFirst - minOf(ipms)) / ipmFirst
	}
	if ipmDrop > cfg.IPMDropMaxPct {
		riskNotes = append(riskNotes, "IPM drawdown beyond acceptable range, hook may rely on strong stimulus")
		failCount++
	}

	cpiIncrease := 0.0
	if len(cpis) > 0 && cpis[0] != 0 {
		cpiIncrease = (maxOf(cpis) - cpis[0]) / cpis[0]
	}
	if cpiIncrease > cfg.CPIIncreaseMaxPct {
		riskNotes = append(riskNotes, "CPI creeping up, cost rising sharply")
		failCount++
	}

	// Volume and quality trends must mostly agree across windows.
	if len(events) >= 2 && len(roasList) >= 2 {
		matches, total := 0, 0
		n := len(events)
		if len(roasList) < n {
			n = len(roasList)
		}
		for i := 1; i < n; i++ {
			evDir := dir(float64(events[i]), float64(events[i-1]))
			roasDir := dir(roasList[i], roasList[i-1])
			if evDir == roasDir {
				matches++
			}
			total++
		}
		if total > 0 && float64(matches)/float64(total) < 0.5 {
			riskNotes = append(riskNotes, "early_event and early_ROAS trends disagree, conversion quality is questionable")
			failCount++
		}
	}

	if lightExpansion != nil {
		le := *lightExpansion
		if meanIPM != 0 && le.IPM > 0 {
			if (meanIPM-le.IPM)/meanIPM > cfg.LightExpansionIPMDropMax {
				riskNotes = append(riskNotes, "light expansion IPM clearly degraded, why-now may be over-hyped")
				failCount++
			}
		}
		if meanCPI != 0 && le.CPI > 0 {
			if (le.CPI-meanCPI)/meanCPI > cfg.LightExpansionCPIIncreaseMax {
				riskNotes = append(riskNotes, "light expansion CPI climbed too far")
				failCount++
			}
		}
	}

	// Advisory notes at the secondary thresholds; these do not add to
	// the fail count.
	if ipmCV > 0.4 {
		riskNotes = append(riskNotes, "IPM swings too widely, extend the observation window")
	}
	if ipmDrop > 0.25 && !strings.Contains(strings.Join(riskNotes, " "), "hook") {
		riskNotes = append(riskNotes, "IPM drawdown is pronounced, hook may rely on strong stimulus")
	}
	if cpiIncrease > 0.2 {
		riskNotes = append(riskNotes, "CPI climbing too fast, watch audience quality")
	}

	learning := 0
	if ipmCV > 0.3 {
		learning++
	}
	if ipmDrop > 0.2 {
		learning++
	}
	if cpiIncrease > 0.15 {
		learning++
	}
	if lightExpansion != nil && meanIPM != 0 && lightExpansion.IPM < meanIPM*0.85 {
		learning++
	}
	if learning > 5 {
		learning = 5
	}

	detailRows := make([]DetailRow, 0, len(windows)+1)
	for _, w := range windows {
		detailRows = append(detailRows, DetailRow{
			WindowID:    w.WindowID,
			IPM:         round(w.IPM, 2),
			CPI:         round(w.CPI, 2),
			EarlyROAS:   round(w.EarlyROAS, 4),
			Impressions: w.Impressions,
			Spend:       w.Spend,
		})
	}
	if lightExpansion != nil {
		detailRows = append(detailRows, DetailRow{
			WindowID:    "expand_segment",
			IPM:         round(lightExpansion.IPM, 2),
			CPI:         round(lightExpansion.CPI, 2),
			EarlyROAS:   round(lightExpansion.EarlyROAS, 4),
			Impressions: lightExpansion.Impressions,
			Spend:       lightExpansion.Spend,
		})
	}

	status := StatusPass
	var rec ScaleRecommendation
	if failCount == 0 {
		rec = ScaleRecommendation{
			ScaleUpStep: "recommended scale-up step 20%",
			StopLoss: fmt.Sprintf("CPI up >%d%% vs first window or IPM down >%d%%",
				int(cfg.CPIIncreaseMaxPct*100), int(cfg.IPMDropMaxPct*100)),
		}
	} else {
		status = StatusFail
		step := "hold scaling"
		if failCount <= 1 {
			step = "recommended scale-up step 10%"
		}
		rec = ScaleRecommendation{
			ScaleUpStep: step,
			StopLoss:    "tighten stop loss: halt at CPI +15% or IPM -20%",
		}
	}

	return ValidateResult{
		ValidateStatus:      status,
		RiskNotes:           riskNotes,
		ScaleRecommendation: rec,
		DetailRows:          detailRows,
		Stability: StabilityMetrics{
			IPMCV:              round(ipmCV, 4),
			IPMDropPct:         round(ipmDrop*100, 2),
			CPIIncreasePct:     round(cpiIncrease*100, 2),
			LearningIterations: learning,
		},
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// popStdDev is the population standard deviation around a known mean.
func popStdDev(xs []float64, m float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += (x - m) * (x - m)
	}
	return math.Sqrt(s / float64(len(xs)))
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func dir(cur, prev float64) int {
	if cur >= prev {
		return 1
	}
	return -1
}

func round(v float64, digits int) float64 {
	p := math.Pow10(digits)
	return math.Round(v*p) / p
}
