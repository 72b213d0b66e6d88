// Package summary rolls both explore gates, the validate gate and the
// diagnosis into one red/yellow/green decision line. A gate outcome is
// not a conclusion: insufficient data never reads as FAIL, and a green
// light requires stability, OS agreement and metrics on target.
package summary

import (
	"fmt"
	"strings"

	"github.com/MyraWang0406/MatrixMirix04/internal/diagnosis"
	"github.com/MyraWang0406/MatrixMirix04/internal/gate"
)

// Statuses.
const (
	StatusGreen  = "green"
	StatusYellow = "yellow"
	StatusRed    = "red"
)

const (
	ipmCVThresholdForScale = 0.05
	defaultScaleUpStep     = "20%"
)

// Decision is the first-screen summary.
type Decision struct {
	Status       string           `json:"status"`
	StatusText   string           `json:"status_text"`
	Reason       string           `json:"reason"`
	Risk         string           `json:"risk"`
	NextStep     string           `json:"next_step"`
	Insufficient bool             `json:"insufficient"`
	Diagnosis    diagnosis.Result `json:"diagnosis"`
}

// Compute builds the decision summary. The diagnosis is recomputed
// from the same inputs so the summary and the prescription list can
// never disagree.
func Compute(in diagnosis.Input) Decision {
	nSamples := 0
	for _, m := range in.Metrics {
		if !m.Baseline {
			nSamples++
		}
	}
	nWindows := 0
	if in.Validate != nil {
		nWindows = len(in.Validate.DetailRows)
	}
	insufficient := nSamples < diagnosis.MinSamples || nWindows < diagnosis.MinWindows

	iosPass := in.ExploreIOS != nil && in.ExploreIOS.GateStatus == gate.StatusPass
	androidPass := in.ExploreAndroid != nil && in.ExploreAndroid.GateStatus == gate.StatusPass
	valPass := in.Validate != nil && in.Validate.ValidateStatus == gate.StatusPass

	ipmCV := 1.0
	if in.Validate != nil {
		ipmCV = in.Validate.Stability.IPMCV
	}

	reasonParts := []string{
		passOrFail("iOS Explore", iosPass),
		passOrFail("Android Explore", androidPass),
		passOrFail("Validate", valPass),
	}
	if insufficient {
		reasonParts = append(reasonParts, "insufficient sample (n<6 or windows<3)")
	}
	reason := strings.Join(reasonParts, "; ")

	var riskParts []string
	if in.Validate != nil {
		notes := in.Validate.RiskNotes
		if len(notes) > 2 {
			notes = notes[:2]
		}
		riskParts = append(riskParts, notes...)
	}
	if note, ok := cpiVsBaseline(in); ok {
		riskParts = append(riskParts, note)
	}
	risk := "no significant risk yet"
	if len(riskParts) > 0 {
		risk = strings.Join(riskParts, "; ")
	}

	diag := diagnosis.Diagnose(in)
	nextAction := diagnosis.NextAction(diag)

	var status, statusText, nextStep string
	switch {
	case diag.DecisionState == diagnosis.StateReadyToScale && valPass && ipmCV < ipmCVThresholdForScale:
		status = StatusGreen
		statusText = "scale up recommended (" + defaultScaleUpStep + ")"
		nextStep = "scale up"
	case diag.DecisionState == diagnosis.StateInsufficientData:
		status = StatusYellow
		statusText = "insufficient sample: keep running (" + defaultScaleUpStep + ")"
		nextStep = nextAction
		reason += " (" + diag.Detail + ")"
	default:
		if !valPass {
			status = StatusRed
			statusText = "scaling not recommended"
		} else {
			status = StatusYellow
			statusText = "retest in small steps (" + defaultScaleUpStep + ")"
		}
		nextStep = nextAction
	}

	return Decision{
		Status:       status,
		StatusText:   statusText,
		Reason:       reason,
		Risk:         risk,
		NextStep:     nextStep,
		Insufficient: insufficient,
		Diagnosis:    diag,
	}
}

func passOrFail(label string, pass bool) string {
	if pass {
		return label + " PASS"
	}
	return label + " FAIL"
}

// cpiVsBaseline flags when test variants run meaningfully more
// expensive than the baseline cohort.
func cpiVsBaseline(in diagnosis.Input) (string, bool) {
	var blSum, varSum float64
	var blN, varN int
	for _, m := range in.Metrics {
		if m.Baseline {
			blSum += m.CPI
			blN++
		} else {
			varSum += m.CPI
			varN++
		}
	}
	if blN == 0 || varN == 0 {
		return "", false
	}
	blCPI := blSum / float64(blN)
	if blCPI <= 0 {
		return "", false
	}
	delta := (varSum/float64(varN) - blCPI) / blCPI
	if delta > 0.05 {
		return fmt.Sprintf("CPI +%.1f%% above baseline", delta*100), true
	}
	return "", false
}
