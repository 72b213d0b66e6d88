package diagnosis

import (
	"strings"
	"testing"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
	"github.com/MyraWang0406/MatrixMirix04/internal/gate"
)

func sampleMetrics(n int) []domain.SimulatedMetrics {
	out := make([]domain.SimulatedMetrics, 0, n+1)
	out = append(out, domain.SimulatedMetrics{VariantID: "v001", OS: domain.OSiOS, Baseline: true})
	for i := 0; i < n; i++ {
		out = append(out, domain.SimulatedMetrics{VariantID: "vX", OS: domain.OSiOS})
	}
	return out
}

func explore(status string) *gate.ExploreResult {
	return &gate.ExploreResult{GateStatus: status}
}

func validateWith(status string, windows int, notes []string, stability gate.StabilityMetrics) *gate.ValidateResult {
	rows := make([]gate.DetailRow, windows)
	for i := range rows {
		rows[i] = gate.DetailRow{WindowID: "T"}
	}
	return &gate.ValidateResult{
		ValidateStatus: status,
		RiskNotes:      notes,
		DetailRows:     rows,
		Stability:      stability,
	}
}

func TestDiagnoseSampleFloorFirst(t *testing.T) {
	// Even with both explores failing, the sample floor wins.
	r := Diagnose(Input{
		ExploreIOS:     explore(gate.StatusFail),
		ExploreAndroid: explore(gate.StatusFail),
		Validate:       validateWith(gate.StatusFail, 3, nil, gate.StabilityMetrics{}),
		Metrics:        sampleMetrics(4),
	})

	if r.FailureType != FailInconclusive {
		t.Fatalf("failure_type = %s, want INCONCLUSIVE", r.FailureType)
	}
	if r.PrimarySignal != SignalSampleTooLow {
		t.Errorf("primary_signal = %s, want SAMPLE_TOO_LOW", r.PrimarySignal)
	}
	if r.DecisionState != StateInsufficientData {
		t.Errorf("decision_state = %s, want INSUFFICIENT_DATA", r.DecisionState)
	}
	if len(r.RecommendedActions) != 1 || r.RecommendedActions[0].Action != ActionResample {
		t.Errorf("actions = %+v, want a single RESAMPLE", r.RecommendedActions)
	}
	if NextAction(r) != "add samples, keep the structure" {
		t.Errorf("next action = %q", NextAction(r))
	}
}

func TestDiagnoseWindowFloor(t *testing.T) {
	r := Diagnose(Input{
		ExploreIOS:     explore(gate.StatusPass),
		ExploreAndroid: explore(gate.StatusPass),
		Validate:       validateWith(gate.StatusPass, 2, nil, gate.StabilityMetrics{}),
		Metrics:        sampleMetrics(10),
	})
	if r.FailureType != FailInconclusive {
		t.Errorf("failure_type = %s, want INCONCLUSIVE below the window floor", r.FailureType)
	}
}

func TestDiagnoseOSDivergence(t *testing.T) {
	r := Diagnose(Input{
		ExploreIOS:     explore(gate.StatusPass),
		ExploreAndroid: explore(gate.StatusFail),
		Validate:       validateWith(gate.StatusFail, 3, nil, gate.StabilityMetrics{}),
		Metrics:        sampleMetrics(8),
	})

	if r.FailureType != FailOSDivergence {
		t.Fatalf("failure_type = %s, want OS_DIVERGENCE", r.FailureType)
	}
	if r.PrimarySignal != SignalIOSPassAndroidFail {
		t.Errorf("primary_signal = %s, want IOS_PASS_ANDROID_FAIL", r.PrimarySignal)
	}
	if r.DecisionState != StateOSTune {
		t.Errorf("decision_state = %s, want OS_TUNE", r.DecisionState)
	}
	if got := r.RecommendedActions[0].TargetOS; got != domain.OSAndroid {
		t.Errorf("target_os = %s, want the failing OS", got)
	}

	// Mirror case.
	r = Diagnose(Input{
		ExploreIOS:     explore(gate.StatusFail),
		ExploreAndroid: explore(gate.StatusPass),
		Validate:       validateWith(gate.StatusFail, 3, nil, gate.StabilityMetrics{}),
		Metrics:        sampleMetrics(8),
	})
	if r.PrimarySignal != SignalAndroidPassIOSFail {
		t.Errorf("primary_signal = %s, want ANDROID_PASS_IOS_FAIL", r.PrimarySignal)
	}
	if got := r.RecommendedActions[0].TargetOS; got != domain.OSiOS {
		t.Errorf("target_os = %s, want iOS", got)
	}
}

func TestDiagnoseEfficiencyFail(t *testing.T) {
	r := Diagnose(Input{
		ExploreIOS:     explore(gate.StatusFail),
		ExploreAndroid: explore(gate.StatusFail),
		Validate:       validateWith(gate.StatusFail, 3, nil, gate.StabilityMetrics{}),
		Metrics:        sampleMetrics(8),
	})

	if r.FailureType != FailEfficiency {
		t.Fatalf("failure_type = %s, want EFFICIENCY_FAIL", r.FailureType)
	}
	if r.DecisionState != StateChangeStructure {
		t.Errorf("decision_state = %s, want CHANGE_STRUCTURE", r.DecisionState)
	}

	// Hook first, why-now second, CTA last.
	fields := []string{}
	for _, a := range r.RecommendedActions {
		fields = append(fields, a.ChangeField)
	}
	want := []string{domain.FieldHookType, domain.FieldWhyNowTrigger, domain.FieldCTA}
	if len(fields) != len(want) {
		t.Fatalf("actions = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("action %d field = %s, want %s", i, fields[i], want[i])
		}
	}
}

func TestDiagnoseEfficiencyCPISignal(t *testing.T) {
	notes := []string{"CPI creeping up, cost rising sharply"}
	r := Diagnose(Input{
		ExploreIOS:     explore(gate.StatusFail),
		ExploreAndroid: explore(gate.StatusFail),
		Validate:       validateWith(gate.StatusFail, 3, notes, gate.StabilityMetrics{}),
		Metrics:        sampleMetrics(8),
	})
	if r.PrimarySignal != SignalCPISpike {
		t.Errorf("primary_signal = %s, want CPI_SPIKE from CPI note", r.PrimarySignal)
	}
}

func TestDiagnoseHandoffMismatchOnCPINote(t *testing.T) {
	notes := []string{"CPI creeping up, cost rising sharply"}
	r := Diagnose(Input{
		ExploreIOS:     explore(gate.StatusPass),
		ExploreAndroid: explore(gate.StatusPass),
		Validate:       validateWith(gate.StatusFail, 3, notes, gate.StabilityMetrics{}),
		Metrics:        sampleMetrics(8),
	})

	if r.FailureType != FailHandoffMismatch {
		t.Fatalf("failure_type = %s, want HANDOFF_MISMATCH", r.FailureType)
	}
	if r.PrimarySignal != SignalIPMOKButCPIBad {
		t.Errorf("primary_signal = %s, want IPM_OK_BUT_CPI_BAD", r.PrimarySignal)
	}
	if r.DecisionState != StateFixHandoff {
		t.Errorf("decision_state = %s, want FIX_HANDOFF", r.DecisionState)
	}
	if r.RecommendedActions[0].Action != ActionAddEvidence {
		t.Errorf("first action = %s, want ADD_EVIDENCE", r.RecommendedActions[0].Action)
	}
	// Hook is deliberately absent from the prescription.
	for _, a := range r.RecommendedActions {
		if a.ChangeField == domain.FieldHookType {
			t.Error("handoff mismatch must not prescribe a hook change")
		}
	}
}

func TestDiagnoseHandoffMismatchOnROASNote(t *testing.T) {
	notes := []string{"early_event and early_ROAS trends disagree, conversion quality is questionable"}
	r := Diagnose(Input{
		ExploreIOS:     explore(gate.StatusPass),
		ExploreAndroid: explore(gate.StatusPass),
		Validate:       validateWith(gate.StatusFail, 3, notes, gate.StabilityMetrics{}),
		Metrics:        sampleMetrics(8),
	})

	if r.FailureType != FailHandoffMismatch {
		t.Fatalf("failure_type = %s, want HANDOFF_MISMATCH", r.FailureType)
	}
	if r.PrimarySignal != SignalIPMOKButROASBad {
		t.Errorf("primary_signal = %s, want IPM_OK_BUT_ROAS_BAD", r.PrimarySignal)
	}
}

func TestDiagnoseAmbiguousValidateFail(t *testing.T) {
	// IPM drawdown note mentions both IPM and drawdown, so neither the
	// CPI nor the ROAS sub-branch matches.
	notes := []string{"IPM drawdown beyond acceptable range, hook may rely on strong stimulus"}

	r := Diagnose(Input{
		ExploreIOS:     explore(gate.StatusPass),
		ExploreAndroid: explore(gate.StatusPass),
		Validate:       validateWith(gate.StatusFail, 3, notes, gate.StabilityMetrics{IPMDropPct: 35}),
		Metrics:        sampleMetrics(8),
	})

	if r.FailureType != FailHandoffMismatch {
		t.Fatalf("failure_type = %s, want HANDOFF_MISMATCH", r.FailureType)
	}
	if r.PrimarySignal != SignalIPMDrop {
		t.Errorf("primary_signal = %s, want IPM_DROP from drawdown > 20", r.PrimarySignal)
	}

	r = Diagnose(Input{
		ExploreIOS:     explore(gate.StatusPass),
		ExploreAndroid: explore(gate.StatusPass),
		Validate:       validateWith(gate.StatusFail, 3, notes, gate.StabilityMetrics{CPIIncreasePct: 18}),
		Metrics:        sampleMetrics(8),
	})
	if r.PrimarySignal != SignalCPISpike {
		t.Errorf("primary_signal = %s, want CPI_SPIKE from cpi increase > 15", r.PrimarySignal)
	}

	r = Diagnose(Input{
		ExploreIOS:     explore(gate.StatusPass),
		ExploreAndroid: explore(gate.StatusPass),
		Validate:       validateWith(gate.StatusFail, 3, notes, gate.StabilityMetrics{}),
		Metrics:        sampleMetrics(8),
	})
	if r.PrimarySignal != SignalROASDrop {
		t.Errorf("primary_signal = %s, want ROAS_DROP fallback", r.PrimarySignal)
	}
}

func TestDiagnoseReadyToScale(t *testing.T) {
	r := Diagnose(Input{
		ExploreIOS:     explore(gate.StatusPass),
		ExploreAndroid: explore(gate.StatusPass),
		Validate:       validateWith(gate.StatusPass, 3, nil, gate.StabilityMetrics{IPMCV: 0.02}),
		Metrics:        sampleMetrics(8),
	})

	if r.FailureType != "" {
		t.Fatalf("failure_type = %q, want empty", r.FailureType)
	}
	if r.DecisionState != StateReadyToScale {
		t.Errorf("decision_state = %s, want READY_TO_SCALE", r.DecisionState)
	}
	if r.RecommendedActions[0].Action != ActionScaleUp {
		t.Errorf("action = %s, want SCALE_UP", r.RecommendedActions[0].Action)
	}
	if NextAction(r) != "scale up" {
		t.Errorf("next action = %q, want scale up", NextAction(r))
	}
}

func TestDiagnoseAllPassButHighVariance(t *testing.T) {
	r := Diagnose(Input{
		ExploreIOS:     explore(gate.StatusPass),
		ExploreAndroid: explore(gate.StatusPass),
		Validate:       validateWith(gate.StatusPass, 3, nil, gate.StabilityMetrics{IPMCV: 0.2}),
		Metrics:        sampleMetrics(8),
	})

	if r.FailureType != FailHandoffMismatch {
		t.Errorf("failure_type = %s, want HANDOFF_MISMATCH on residual variance", r.FailureType)
	}
	if r.DecisionState != StateFixHandoff {
		t.Errorf("decision_state = %s, want FIX_HANDOFF", r.DecisionState)
	}
}

func TestMixedSignalsMapping(t *testing.T) {
	r := enrich(Result{FailureType: FailMixedSignals})

	if r.DecisionState != StateReview {
		t.Errorf("decision_state = %s, want REVIEW", r.DecisionState)
	}
	if NextAction(r) != "narrow the audience or why_you" {
		t.Errorf("next action = %q", NextAction(r))
	}
	if r.Title == "" || r.ActionHint == "" || len(r.Explanation) == 0 {
		t.Error("mixed signals must still enrich title, hint and explanation")
	}
}

func TestQualityFailMapping(t *testing.T) {
	r := enrich(Result{FailureType: FailQuality, PrimarySignal: SignalROASDrop})

	if r.DecisionState != StateChangeQuality {
		t.Errorf("decision_state = %s, want CHANGE_QUALITY", r.DecisionState)
	}
	if NextAction(r) != "swap the why_you, one change per variant" {
		t.Errorf("next action = %q", NextAction(r))
	}
}

func TestDiagnoseEnrichment(t *testing.T) {
	r := Diagnose(Input{
		ExploreIOS:     explore(gate.StatusFail),
		ExploreAndroid: explore(gate.StatusFail),
		Validate:       validateWith(gate.StatusFail, 3, nil, gate.StabilityMetrics{}),
		Metrics:        sampleMetrics(8),
	})

	if r.Title == "" || r.ActionHint == "" {
		t.Error("title and action hint are mandatory output")
	}
	if len(r.Explanation) == 0 {
		t.Error("explanation bullets are mandatory output")
	}
	if !strings.Contains(strings.Join(r.Explanation, " "), "IPM") {
		t.Errorf("efficiency explanation should mention IPM: %v", r.Explanation)
	}
}
