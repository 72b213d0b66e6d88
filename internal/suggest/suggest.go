// Package suggest turns underperforming element scores, ordered by the
// diagnosis prescription, into concrete one-field-change suggestions.
package suggest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MyraWang0406/MatrixMirix04/internal/corpus"
	"github.com/MyraWang0406/MatrixMirix04/internal/diagnosis"
	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
	"github.com/MyraWang0406/MatrixMirix04/internal/elements"
)

// Suggestion types.
const (
	TypeDirectSwap = "direct swap"
	TypeRetestPlan = "retest plan"
	TypeAddSamples = "add samples"
)

// Change layers.
const (
	LayerStrategy   = "strategy"
	LayerExpression = "expression"
	LayerAction     = "action"
	LayerAsset      = "asset"
)

// Suggestion is one proposed single-field change.
type Suggestion struct {
	ChangeLayer           string   `json:"change_layer"`
	ChangedField          string   `json:"changed_field"`
	CurrentValue          string   `json:"current_value"`
	CandidateAlternatives []string `json:"candidate_alternatives"`
	DeltaDesc             string   `json:"delta_desc"`
	ConfidenceLevel       string   `json:"confidence_level"`
	ExpectedMetric        string   `json:"expected_metric"`
	SuggestionType        string   `json:"suggestion_type"`
	Rationale             string   `json:"rationale"`
	Reason                string   `json:"reason"`
	Direction             string   `json:"direction"`
	ExperimentRecipe      string   `json:"experiment_recipe"`
	TargetOS              string   `json:"target_os,omitempty"`
	SampleSize            int      `json:"sample_size"`
}

const DefaultMaxSuggestions = 3

var layerByElement = map[string]string{
	domain.ElementHook:      LayerExpression,
	domain.ElementWhyYou:    LayerStrategy,
	domain.ElementWhyNow:    LayerStrategy,
	domain.ElementSellPoint: LayerExpression,
	domain.ElementCTA:       LayerAction,
	domain.ElementAsset:     LayerAsset,
}

var fieldByElement = map[string]string{
	domain.ElementHook:      domain.FieldHookType,
	domain.ElementWhyYou:    domain.FieldWhyYouBucket,
	domain.ElementWhyNow:    domain.FieldWhyNowTrigger,
	domain.ElementSellPoint: domain.FieldSellPoint,
	domain.ElementCTA:       domain.FieldCTA,
	domain.ElementAsset:     domain.FieldAssetVar,
}

// Generate builds at most maxSuggestions one-field-change suggestions.
// An INCONCLUSIVE diagnosis short-circuits into a single resample
// suggestion; element scores are ignored entirely in that case.
func Generate(scores []elements.Score, diag *diagnosis.Result, vc corpus.VerticalCorpus, maxSuggestions int) []Suggestion {
	if maxSuggestions < 1 {
		maxSuggestions = DefaultMaxSuggestions
	}

	var prescriptionOrder []string
	prescriptionByField := map[string]diagnosis.Prescription{}
	if diag != nil {
		for _, p := range diag.RecommendedActions {
			if p.ChangeField == "" {
				continue
			}
			if _, ok := prescriptionByField[p.ChangeField]; !ok {
				prescriptionOrder = append(prescriptionOrder, p.ChangeField)
				prescriptionByField[p.ChangeField] = p
			}
		}
	}

	if diag != nil && diag.FailureType == diagnosis.FailInconclusive {
		for _, p := range diag.RecommendedActions {
			if p.Action == diagnosis.ActionResample {
				return []Suggestion{{
					ChangeLayer:      LayerStrategy,
					CurrentValue:     "keep the current structure",
					DeltaDesc:        "retest the same structure to add samples",
					ConfidenceLevel:  elements.ConfidenceLow,
					SuggestionType:   TypeAddSamples,
					Rationale:        p.Reason,
					Reason:           p.Reason,
					Direction:        p.Direction,
					ExperimentRecipe: p.ExperimentRecipe,
				}}
			}
		}
		return nil
	}

	var candidates []elements.Score
	for _, s := range scores {
		if !s.StabilityFlag {
			continue
		}
		if s.AvgIPMDeltaVsCardMean < 0 || s.AvgCPIDeltaVsCardMean > 0 {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	fieldRank := func(s elements.Score) int {
		f := fieldByElement[s.ElementType]
		for i, pf := range prescriptionOrder {
			if pf == f {
				return i
			}
		}
		return len(prescriptionOrder) + 99
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := fieldRank(candidates[i]), fieldRank(candidates[j])
		if ri != rj {
			return ri < rj
		}
		ci, cj := confRank(candidates[i].ConfidenceLevel), confRank(candidates[j].ConfidenceLevel)
		if ci != cj {
			return ci > cj
		}
		return badness(candidates[i]) > badness(candidates[j])
	})

	var out []Suggestion
	seenFields := map[string]bool{}
	for _, s := range candidates {
		if len(out) >= maxSuggestions {
			break
		}
		field := fieldByElement[s.ElementType]
		if field == "" {
			field = domain.FieldSellPoint
		}
		if seenFields[field] {
			continue
		}
		seenFields[field] = true

		currentVal := s.ElementValue
		if s.ElementType == domain.ElementAsset {
			if i := strings.IndexByte(currentVal, '='); i >= 0 {
				currentVal = currentVal[i+1:]
			}
		}

		alts := vc.Alternatives(field, s.ElementValue, 3)
		firstAlt := "pull from the candidate pool"
		if len(alts) > 0 {
			firstAlt = alts[0]
		} else {
			alts = []string{firstAlt}
		}

		suggType := TypeDirectSwap
		if s.ConfidenceLevel == elements.ConfidenceLow {
			suggType = TypeRetestPlan
		}

		rationale := []string{
			"change only " + field,
			"confidence=" + s.ConfidenceLevel,
			"cross_os=" + s.CrossOSConsistency,
			fmt.Sprintf("n=%d", s.SampleSize),
		}
		if s.ConfidenceLevel != elements.ConfidenceLow {
			rationale = append(rationale,
				fmt.Sprintf("IPMdelta=%+.1f", s.AvgIPMDeltaVsCardMean),
				fmt.Sprintf("CPIdelta=%+.2f", s.AvgCPIDeltaVsCardMean))
			if s.ConfidenceLevel == elements.ConfidenceHigh {
				rationale = append(rationale, fmt.Sprintf("score=%.0f", s.NormalizedScore))
			}
		} else {
			rationale = append(rationale, "sample short, retest before deciding")
		}

		expected := "early_roas"
		if s.AvgIPMDeltaVsCardMean < 0 {
			expected = "IPM"
		} else if s.AvgCPIDeltaVsCardMean > 0 {
			expected = "CPI"
		}

		currentDisplay := truncate(currentVal, 60)
		if s.ConfidenceLevel == elements.ConfidenceLow {
			currentDisplay += " (sample short)"
		}

		pres, hasPres := prescriptionByField[field]
		reason := fmt.Sprintf("IPMdelta=%+.1f CPIdelta=%+.2f", s.AvgIPMDeltaVsCardMean, s.AvgCPIDeltaVsCardMean)
		direction := "pick from the " + field + " candidate pool"
		recipe := "change only " + field + ", one variant per change"
		targetOS := ""
		if hasPres {
			if pres.Reason != "" {
				reason = pres.Reason
			}
			if pres.Direction != "" {
				direction = pres.Direction
			}
			if pres.ExperimentRecipe != "" {
				recipe = pres.ExperimentRecipe
			}
			targetOS = pres.TargetOS
		}

		out = append(out, Suggestion{
			ChangeLayer:           layerByElement[s.ElementType],
			ChangedField:          field,
			CurrentValue:          currentDisplay,
			CandidateAlternatives: alts,
			DeltaDesc:             fmt.Sprintf("%s: %s -> %s", fieldLabel(field), truncate(currentVal, 30), truncate(firstAlt, 30)),
			ConfidenceLevel:       s.ConfidenceLevel,
			ExpectedMetric:        expected,
			SuggestionType:        suggType,
			Rationale:             strings.Join(rationale, " | "),
			Reason:                reason,
			Direction:             direction,
			ExperimentRecipe:      recipe,
			TargetOS:              targetOS,
			SampleSize:            s.SampleSize,
		})
	}
	return out
}

func confRank(level string) int {
	switch level {
	case elements.ConfidenceHigh:
		return 2
	case elements.ConfidenceMedium:
		return 1
	}
	return 0
}

// badness measures how hard an element drags: lost IPM plus added CPI.
func badness(s elements.Score) float64 {
	b := 0.0
	if s.AvgIPMDeltaVsCardMean < 0 {
		b += -s.AvgIPMDeltaVsCardMean
	}
	if s.AvgCPIDeltaVsCardMean > 0 {
		b += s.AvgCPIDeltaVsCardMean
	}
	return b
}

func fieldLabel(field string) string {
	switch field {
	case domain.FieldHookType:
		return "hook"
	case domain.FieldSellPoint:
		return "sell point"
	case domain.FieldCTA:
		return "CTA"
	case domain.FieldAssetVar:
		return "asset"
	}
	return field
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
