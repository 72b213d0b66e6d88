package gate

import (
	"strings"
	"testing"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
)

func window(id string, ipm, cpi, roas float64, events int) domain.WindowMetrics {
	return domain.WindowMetrics{
		WindowID:    id,
		Impressions: 50_000,
		Installs:    int(ipm * 50),
		Spend:       3000,
		EarlyEvents: events,
		IPM:         ipm,
		CPI:         cpi,
		EarlyROAS:   roas,
	}
}

func hasNote(notes []string, substr string) bool {
	for _, n := range notes {
		if strings.Contains(n, substr) {
			return true
		}
	}
	return false
}

func TestValidateInsufficientWindows(t *testing.T) {
	res := EvaluateValidate([]domain.WindowMetrics{window("T1", 20, 3, 0.1, 100)}, nil, DefaultValidateConfig())

	if res.ValidateStatus != StatusFail {
		t.Errorf("status = %s, want FAIL on a single window", res.ValidateStatus)
	}
	if !hasNote(res.RiskNotes, "insufficient windows") {
		t.Errorf("missing insufficient-windows note: %v", res.RiskNotes)
	}
	if res.ScaleRecommendation.ScaleUpStep != "hold scaling" {
		t.Errorf("scale_up_step = %q, want hold scaling", res.ScaleRecommendation.ScaleUpStep)
	}
}

func TestValidateStablePass(t *testing.T) {
	windows := []domain.WindowMetrics{
		window("T1", 20.0, 3.00, 0.100, 100),
		window("T2", 19.5, 3.05, 0.110, 105),
		window("T3", 20.2, 2.98, 0.105, 103),
	}
	res := EvaluateValidate(windows, nil, DefaultValidateConfig())

	if res.ValidateStatus != StatusPass {
		t.Fatalf("status = %s, want PASS; notes: %v", res.ValidateStatus, res.RiskNotes)
	}
	if len(res.RiskNotes) != 0 {
		t.Errorf("stable run should carry no risk notes: %v", res.RiskNotes)
	}
	if !strings.Contains(res.ScaleRecommendation.ScaleUpStep, "20%") {
		t.Errorf("scale_up_step = %q, want 20%% step", res.ScaleRecommendation.ScaleUpStep)
	}
	if len(res.DetailRows) != 3 {
		t.Errorf("detail rows = %d, want 3", len(res.DetailRows))
	}
	if res.Stability.IPMCV > 0.05 {
		t.Errorf("ipm_cv = %v, expected near zero for stable windows", res.Stability.IPMCV)
	}
	if res.Stability.LearningIterations != 0 {
		t.Errorf("learning_iterations = %d, want 0", res.Stability.LearningIterations)
	}
}

func TestValidateCVBreach(t *testing.T) {
	windows := []domain.WindowMetrics{
		window("T1", 10, 3.0, 0.10, 100),
		window("T2", 30, 3.0, 0.11, 110),
	}
	res := EvaluateValidate(windows, nil, DefaultValidateConfig())

	if res.ValidateStatus != StatusFail {
		t.Errorf("status = %s, want FAIL on high CV", res.ValidateStatus)
	}
	if !hasNote(res.RiskNotes, "swings too widely") {
		t.Errorf("missing volatility note: %v", res.RiskNotes)
	}
	// mean 20, population std dev 10.
	if res.Stability.IPMCV != 0.5 {
		t.Errorf("ipm_cv = %v, want 0.5", res.Stability.IPMCV)
	}
}

func TestValidateDrawdownBreach(t *testing.T) {
	windows := []domain.WindowMetrics{
		window("T1", 20, 3.0, 0.10, 100),
		window("T2", 13, 3.0, 0.11, 110),
	}
	res := EvaluateValidate(windows, nil, DefaultValidateConfig())

	if res.ValidateStatus != StatusFail {
		t.Errorf("status = %s, want FAIL on drawdown", res.ValidateStatus)
	}
	if !hasNote(res.RiskNotes, "drawdown") {
		t.Errorf("missing drawdown note: %v", res.RiskNotes)
	}
	if res.Stability.IPMDropPct != 35 {
		t.Errorf("ipm_drop_pct = %v, want 35", res.Stability.IPMDropPct)
	}
	// Single breach keeps a reduced scaling step.
	if !strings.Contains(res.ScaleRecommendation.ScaleUpStep, "10%") {
		t.Errorf("scale_up_step = %q, want 10%% step on one breach", res.ScaleRecommendation.ScaleUpStep)
	}
}

func TestValidateCPIIncreaseBreach(t *testing.T) {
	windows := []domain.WindowMetrics{
		window("T1", 20, 3.0, 0.10, 100),
		window("T2", 20, 3.9, 0.11, 110),
	}
	res := EvaluateValidate(windows, nil, DefaultValidateConfig())

	if res.ValidateStatus != StatusFail {
		t.Errorf("status = %s, want FAIL on CPI increase", res.ValidateStatus)
	}
	if !hasNote(res.RiskNotes, "CPI") {
		t.Errorf("missing CPI note: %v", res.RiskNotes)
	}
	if res.Stability.CPIIncreasePct != 30 {
		t.Errorf("cpi_increase_pct = %v, want 30", res.Stability.CPIIncreasePct)
	}
}

func TestValidateDirectionDisagreement(t *testing.T) {
	windows := []domain.WindowMetrics{
		window("T1", 20, 3.0, 0.10, 100),
		window("T2", 20, 3.0, 0.05, 150),
		window("T3", 20, 3.0, 0.12, 80),
	}
	res := EvaluateValidate(windows, nil, DefaultValidateConfig())

	if res.ValidateStatus != StatusFail {
		t.Errorf("status = %s, want FAIL on trend disagreement", res.ValidateStatus)
	}
	if !hasNote(res.RiskNotes, "trends disagree") {
		t.Errorf("missing trend disagreement note: %v", res.RiskNotes)
	}
}

func TestValidateLightExpansionDegradation(t *testing.T) {
	windows := []domain.WindowMetrics{
		window("T1", 20.0, 3.00, 0.100, 100),
		window("T2", 19.8, 3.02, 0.105, 104),
	}
	le := window("LE", 14, 4.2, 0.08, 60)
	res := EvaluateValidate(windows, &le, DefaultValidateConfig())

	if res.ValidateStatus != StatusFail {
		t.Errorf("status = %s, want FAIL on expansion degradation", res.ValidateStatus)
	}
	if !hasNote(res.RiskNotes, "light expansion IPM") {
		t.Errorf("missing expansion IPM note: %v", res.RiskNotes)
	}
	if !hasNote(res.RiskNotes, "light expansion CPI") {
		t.Errorf("missing expansion CPI note: %v", res.RiskNotes)
	}

	last := res.DetailRows[len(res.DetailRows)-1]
	if last.WindowID != "expand_segment" {
		t.Errorf("last detail row = %q, want expand_segment", last.WindowID)
	}
	// Expansion IPM below 85% of the core mean adds a learning step.
	if res.Stability.LearningIterations < 1 {
		t.Errorf("learning_iterations = %d, want >=1", res.Stability.LearningIterations)
	}
}

func TestValidateLearningIterationsBounded(t *testing.T) {
	windows := []domain.WindowMetrics{
		window("T1", 40, 2.0, 0.20, 200),
		window("T2", 10, 4.0, 0.05, 50),
	}
	le := window("LE", 5, 8.0, 0.01, 10)
	res := EvaluateValidate(windows, &le, DefaultValidateConfig())

	if res.Stability.LearningIterations < 0 || res.Stability.LearningIterations > 5 {
		t.Errorf("learning_iterations = %d, want within [0, 5]", res.Stability.LearningIterations)
	}
}
