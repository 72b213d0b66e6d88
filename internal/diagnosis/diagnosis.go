// Package diagnosis turns gate outcomes into one explainable failure
// classification with an actionable prescription list. Rules run in
// strict priority order; the first match wins.
package diagnosis

import (
	"fmt"
	"strings"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
	"github.com/MyraWang0406/MatrixMirix04/internal/gate"
)

// Failure types. The empty string means the structure holds.
const (
	FailInconclusive    = "INCONCLUSIVE"
	FailEfficiency      = "EFFICIENCY_FAIL"
	FailQuality         = "QUALITY_FAIL"
	FailHandoffMismatch = "HANDOFF_MISMATCH"
	FailOSDivergence    = "OS_DIVERGENCE"
	FailMixedSignals    = "MIXED_SIGNALS"
)

// Primary signals.
const (
	SignalSampleTooLow       = "SAMPLE_TOO_LOW"
	SignalIPMDrop            = "IPM_DROP"
	SignalCPISpike           = "CPI_SPIKE"
	SignalROASDrop           = "ROAS_DROP"
	SignalIPMOKButCPIBad     = "IPM_OK_BUT_CPI_BAD"
	SignalIPMOKButROASBad    = "IPM_OK_BUT_ROAS_BAD"
	SignalIOSPassAndroidFail = "IOS_PASS_ANDROID_FAIL"
	SignalAndroidPassIOSFail = "ANDROID_PASS_IOS_FAIL"
)

// Decision states, the "what to do now" roll-up.
const (
	StateInsufficientData = "INSUFFICIENT_DATA"
	StateFixHandoff       = "FIX_HANDOFF"
	StateOSTune           = "OS_TUNE"
	StateChangeStructure  = "CHANGE_STRUCTURE"
	StateChangeQuality    = "CHANGE_QUALITY"
	StateReadyToScale     = "READY_TO_SCALE"
	StateReview           = "REVIEW"
)

// Prescription actions.
const (
	ActionResample     = "RESAMPLE"
	ActionChangeHook   = "CHANGE_HOOK"
	ActionChangeWhyNow = "CHANGE_WHY_NOW"
	ActionChangeCTA    = "CHANGE_CTA"
	ActionChangeWhyYou = "CHANGE_WHY_YOU"
	ActionAddEvidence  = "ADD_EVIDENCE"
	ActionFixHandoff   = "FIX_HANDOFF"
	ActionScaleUp      = "SCALE_UP"
)

// Sample floors below which no structural conclusion is allowed.
const (
	MinSamples = 6
	MinWindows = 3
)

// Prescription is one recommended action.
type Prescription struct {
	Action           string `json:"action"`
	ChangeField      string `json:"change_field"`
	Direction        string `json:"direction"`
	ExperimentRecipe string `json:"experiment_recipe"`
	TargetOS         string `json:"target_os,omitempty"`
	Reason           string `json:"reason"`
}

// Result is the diagnosis output.
type Result struct {
	FailureType        string         `json:"failure_type"`
	PrimarySignal      string         `json:"primary_signal"`
	RecommendedActions []Prescription `json:"recommended_actions"`
	Detail             string         `json:"detail"`

	DecisionState string   `json:"decision_state"`
	Title         string   `json:"diagnosis_title"`
	Explanation   []string `json:"diagnosis_explanation"`
	ActionHint    string   `json:"action_hint"`
}

// Input collects everything the rule table looks at.
type Input struct {
	ExploreIOS     *gate.ExploreResult
	ExploreAndroid *gate.ExploreResult
	Validate       *gate.ValidateResult

	// Metrics are the per-(variant, os) rows; baselines don't count
	// toward the sample floor.
	Metrics []domain.SimulatedMetrics
}

// Diagnose runs the priority rule table: sample floor, then OS
// divergence, then efficiency, then handoff and quality splits, then
// the all-pass and fallback branches.
func Diagnose(in Input) Result {
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

	iosPass := in.ExploreIOS != nil && in.ExploreIOS.GateStatus == gate.StatusPass
	androidPass := in.ExploreAndroid != nil && in.ExploreAndroid.GateStatus == gate.StatusPass
	valPass := in.Validate != nil && in.Validate.ValidateStatus == gate.StatusPass

	var riskNotes []string
	var stability gate.StabilityMetrics
	if in.Validate != nil {
		riskNotes = in.Validate.RiskNotes
		stability = in.Validate.Stability
	}

	if nSamples < MinSamples || nWindows < MinWindows {
		return enrich(Result{
			FailureType:   FailInconclusive,
			PrimarySignal: SignalSampleTooLow,
			RecommendedActions: []Prescription{{
				Action:           ActionResample,
				Direction:        "keep the structure unchanged",
				ExperimentRecipe: "retest the same structure until the sample floor is met (n>=6 or windows>=3)",
				Reason:           fmt.Sprintf("sample n=%d or windows=%d below floor", nSamples, nWindows),
			}},
			Detail: fmt.Sprintf("sample n=%d or windows=%d below floor, no conclusion possible; insufficient data is not a FAIL", nSamples, nWindows),
		})
	}

	if iosPass != androidPass {
		primary := SignalIOSPassAndroidFail
		targetOS := domain.OSAndroid
		if androidPass {
			primary = SignalAndroidPassIOSFail
			targetOS = domain.OSiOS
		}
		return enrich(Result{
			FailureType:   FailOSDivergence,
			PrimarySignal: primary,
			RecommendedActions: []Prescription{{
				Action:           ActionFixHandoff,
				ChangeField:      domain.FieldHookType,
				Direction:        fmt.Sprintf("replace expression, pacing or hook on %s only, keep other fields fixed", targetOS),
				ExperimentRecipe: "per-OS fix: keep the passing OS untouched, swap only hook_type candidates on the failing OS, one change per variant",
				TargetOS:         targetOS,
				Reason:           "same variant passed explore on one OS and failed on the other",
			}},
			Detail: fmt.Sprintf("%s explore did not pass, per-OS results diverge", targetOS),
		})
	}

	cpiNoted := notesMention(riskNotes, "CPI")
	ipmDrawdownNoted := notesMentionBoth(riskNotes, "IPM", "drawdown")
	roasNoted := notesMentionAny(riskNotes, "ROAS", "conversion", "early")

	if !iosPass && !androidPass {
		primary := SignalIPMDrop
		if cpiNoted && !ipmDrawdownNoted {
			primary = SignalCPISpike
		}
		return enrich(Result{
			FailureType:   FailEfficiency,
			PrimarySignal: primary,
			RecommendedActions: []Prescription{
				{
					Action:           ActionChangeHook,
					ChangeField:      domain.FieldHookType,
					Direction:        "more direct payoff, result first, stronger contrast; win the first three seconds",
					ExperimentRecipe: "change only hook_type, freeze every other field, generate N variants",
					Reason:           "explore failed, IPM or CPI efficiency below baseline",
				},
				{
					Action:           ActionChangeWhyNow,
					ChangeField:      domain.FieldWhyNowTrigger,
					Direction:        "stronger act-now trigger, without stimulus that baits clicks",
					ExperimentRecipe: "change only why_now_trigger",
					Reason:           "explore failed, a stronger why-now is worth trying",
				},
				{
					Action:           ActionChangeCTA,
					ChangeField:      domain.FieldCTA,
					Direction:        "touch the CTA last: more concrete, lower friction",
					ExperimentRecipe: "change only the CTA",
					Reason:           "explore failed, the CTA is the last lever to pull",
				},
			},
			Detail: "explore failed on both OSes, IPM low or CPI high, efficiency below baseline",
		})
	}

	if iosPass && androidPass && !valPass {
		ipmOKCPIBad := cpiNoted && !ipmDrawdownNoted
		if ipmOKCPIBad || roasNoted {
			primary := SignalIPMOKButROASBad
			if ipmOKCPIBad {
				primary = SignalIPMOKButCPIBad
			}
			return enrich(Result{
				FailureType:   FailHandoffMismatch,
				PrimarySignal: primary,
				RecommendedActions: []Prescription{
					{
						Action:           ActionAddEvidence,
						Direction:        "add proof and handoff consistency: final price, comparison, reviews, after-sales or delivery terms",
						ExperimentRecipe: "extend the observation window and surface the proof that backs the promise",
						Reason:           "IPM holds but CPI or ROAS collapses, the handoff is broken",
					},
					{
						Action:           ActionChangeWhyNow,
						ChangeField:      domain.FieldWhyNowTrigger,
						Direction:        "dial back strong inducement, raise handoff consistency",
						ExperimentRecipe: "change only why_now_trigger, toward the conservative end",
						Reason:           "on a broken handoff the hook is not the first lever",
					},
					{
						Action:           ActionChangeCTA,
						ChangeField:      domain.FieldCTA,
						Direction:        "read like the next step, not a hard-sell push",
						ExperimentRecipe: "change only the CTA",
						Reason:           "the CTA may over-induce",
					},
				},
				Detail: "explore passed but validate failed; IPM holds while CPI or ROAS collapses, handoff mismatch",
			})
		}

		// Validate failed without a CPI or ROAS lead: stability gap.
		primary := SignalROASDrop
		if stability.IPMDropPct > 20 {
			primary = SignalIPMDrop
		} else if stability.CPIIncreasePct > 15 {
			primary = SignalCPISpike
		}
		return enrich(Result{
			FailureType:   FailHandoffMismatch,
			PrimarySignal: primary,
			RecommendedActions: []Prescription{{
				Action:           ActionAddEvidence,
				Direction:        "extend observation to accumulate stability evidence before concluding",
				ExperimentRecipe: "retest the same structure, add window evidence",
				Reason:           "validate failed, volatility or drawdown above threshold",
			}},
			Detail: "explore passed but validate failed, cross-window handoff or stability short",
		})
	}

	if iosPass && androidPass && valPass {
		if stability.IPMCV < 0.05 {
			return enrich(Result{
				RecommendedActions: []Prescription{{
					Action:           ActionScaleUp,
					Direction:        "scale up",
					ExperimentRecipe: "stable across windows, consistent across OSes, metrics on target",
					Reason:           "the structure holds",
				}},
				Detail: "stable across windows, consistent across OSes, metrics on target; the structure holds",
			})
		}
		// Gates passed but variance is still high; treat it as residual
		// handoff risk rather than a green light.
		return enrich(Result{
			FailureType:   FailHandoffMismatch,
			PrimarySignal: SignalIPMDrop,
			RecommendedActions: []Prescription{{
				Action:           ActionAddEvidence,
				Direction:        "extend observation to shore up stability",
				ExperimentRecipe: "retest the same structure, add window evidence",
				Reason:           "gates passed but IPM variance is high",
			}},
			Detail: "gates passed but IPM variance is high, extend the observation window",
		})
	}

	return enrich(Result{
		FailureType: FailMixedSignals,
		RecommendedActions: []Prescription{{
			Action:           ActionChangeWhyYou,
			ChangeField:      domain.FieldWhyYouBucket,
			Direction:        "motivation or audience mismatch: narrow the why_you or the segment first",
			ExperimentRecipe: "change only why_you_bucket",
			Reason:           "metrics contradict each other, attribution is unclear",
		}},
		Detail: "metrics contradict each other, take the motivation and audience mismatch route",
	})
}

// NextAction maps a diagnosis onto the one-line action shown on the
// summary's first screen.
func NextAction(r Result) string {
	switch r.FailureType {
	case "":
		return "scale up"
	case FailInconclusive:
		return "add samples, keep the structure"
	case FailOSDivergence:
		return "per-OS fix, change one OS only"
	case FailEfficiency:
		return "swap the hook, one change per variant"
	case FailQuality:
		return "swap the why_you, one change per variant"
	case FailHandoffMismatch:
		return "add proof, repair the handoff"
	case FailMixedSignals:
		return "narrow the audience or why_you"
	}
	return "manual review"
}

func enrich(r Result) Result {
	r.Title = titleFor(r.FailureType)
	r.ActionHint = hintFor(r.FailureType)
	r.DecisionState = decisionState(r.FailureType)
	r.Explanation = explain(r)
	return r
}

func decisionState(failureType string) string {
	switch failureType {
	case "":
		return StateReadyToScale
	case FailInconclusive:
		return StateInsufficientData
	case FailOSDivergence:
		return StateOSTune
	case FailHandoffMismatch:
		return StateFixHandoff
	case FailEfficiency:
		return StateChangeStructure
	case FailQuality:
		return StateChangeQuality
	}
	return StateReview
}

func titleFor(failureType string) string {
	switch failureType {
	case FailInconclusive:
		return "insufficient sample, no verdict"
	case FailEfficiency:
		return "efficiency below the line, don't condemn the structure yet"
	case FailQuality:
		return "quality below the line, conversion quality short"
	case FailHandoffMismatch:
		return "handoff mismatch, clicks outrun the promise"
	case FailOSDivergence:
		return "per-OS divergence, fix one OS"
	case FailMixedSignals:
		return "mixed signals, narrow the variables"
	case "":
		return "structure holds, ready to scale"
	}
	return "diagnosis: " + failureType
}

func hintFor(failureType string) string {
	switch failureType {
	case FailInconclusive:
		return "reach the floor before judging: n>=6 or windows>=3; insufficient data is not a FAIL, don't swap the structure yet"
	case FailEfficiency:
		return "change the hook first (stronger contrast, result first), keep every other field fixed"
	case FailQuality:
		return "change why_you first (value, proof, audience match), then why_now or the CTA, avoiding strong inducement"
	case FailHandoffMismatch:
		return "add proof and handoff consistency first (final price, comparison, reviews, after-sales); don't swap the hook yet"
	case FailOSDivergence:
		return "fix one OS only: keep the passing OS untouched, swap expression, pacing or hook on the failing OS"
	case FailMixedSignals:
		return "narrow the motivation, audience or why_you before debating the hook, or every change muddies the read"
	case "":
		return "stable across windows, consistent across OSes, metrics on target: scale in small steps"
	}
	return ""
}

func explain(r Result) []string {
	var out []string
	if r.FailureType == FailInconclusive {
		out = append(out, "sample or window floor not met: any structural verdict would be unreliable now")
	}
	switch r.PrimarySignal {
	case SignalIPMDrop:
		out = append(out, "IPM signal off: conversion efficiency short, the first three seconds don't land or the message is unclear")
	case SignalCPISpike:
		out = append(out, "CPI signal off: cost rising, click quality or handoff cost is worse")
	case SignalROASDrop:
		out = append(out, "early ROAS signal off: quality short, expectations undercut or product proof missing")
	case SignalIPMOKButCPIBad, SignalIPMOKButROASBad:
		out = append(out, "IPM holds but CPI or ROAS collapses: the classic broken handoff, bait or thin proof")
	case SignalIOSPassAndroidFail, SignalAndroidPassIOSFail:
		out = append(out, "iOS and Android explore disagree: fix one OS first, don't overturn the structure globally")
	}
	if len(out) == 0 {
		if r.FailureType != "" {
			out = append(out, "diagnosis type "+r.FailureType+", follow the prescription actions")
		} else {
			out = append(out, "structure holds: stability and consistency are on target")
		}
	}
	return out
}

func notesMention(notes []string, substr string) bool {
	for _, n := range notes {
		if strings.Contains(n, substr) {
			return true
		}
	}
	return false
}

func notesMentionBoth(notes []string, a, b string) bool {
	for _, n := range notes {
		if strings.Contains(n, a) && strings.Contains(n, b) {
			return true
		}
	}
	return false
}

func notesMentionAny(notes []string, substrs ...string) bool {
	for _, n := range notes {
		low := strings.ToLower(n)
		for _, s := range substrs {
			if strings.Contains(low, strings.ToLower(s)) {
				return true
			}
		}
	}
	return false
}
