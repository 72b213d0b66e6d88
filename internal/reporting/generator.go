package reporting

import (
	"sort"
	"time"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
	"github.com/MyraWang0406/MatrixMirix04/internal/fuse"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage"
)

// ReviewedVariant pairs a creative that went through the review
// pipeline with its review and the fuse decision.
type ReviewedVariant struct {
	Creative domain.ReviewedCreative
	Review   domain.Review
	Fuse     fuse.Decision
}

// Generator builds reports from experiment snapshots.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// FromSnapshot builds the full report for one experiment. Review rows
// are optional; pass nil when the experiment ran without the review
// pipeline.
func (g *Generator) FromSnapshot(snap storage.ExperimentSnapshot, reviews []ReviewedVariant) *Report {
	r := &Report{
		GeneratedAt:  g.now(),
		ExperimentID: snap.ExperimentID,
		VariantCount: len(snap.Variants),
		Card: CardSummary{
			CardID:           snap.Card.CardID,
			Version:          snap.Card.Version,
			Vertical:         snap.Card.Vertical,
			Channel:          snap.Card.Channel,
			Country:          snap.Card.Country,
			Segment:          snap.Card.Segment,
			OS:               snap.Card.OS,
			Objective:        snap.Card.Objective,
			MotivationBucket: snap.Card.MotivationBucket,
		},
		Metrics:  g.metricRows(snap),
		Elements: g.elementRows(snap),
		Decision: DecisionSection{
			Status:       snap.Decision.Status,
			StatusText:   snap.Decision.StatusText,
			Reason:       snap.Decision.Reason,
			Risk:         snap.Decision.Risk,
			NextStep:     snap.Decision.NextStep,
			Insufficient: snap.Decision.Insufficient,
		},
		Reviews: g.reviewRows(reviews),
	}

	if snap.Diagnosis != nil {
		r.Diagnosis = DiagnosisSection{
			State:         snap.Diagnosis.DecisionState,
			Title:         snap.Diagnosis.Title,
			FailureType:   snap.Diagnosis.FailureType,
			PrimarySignal: snap.Diagnosis.PrimarySignal,
			Detail:        snap.Diagnosis.Detail,
			Explanation:   snap.Diagnosis.Explanation,
		}
		for _, p := range snap.Diagnosis.RecommendedActions {
			r.Diagnosis.Actions = append(r.Diagnosis.Actions, ActionRow{
				Action:      p.Action,
				ChangeField: p.ChangeField,
				Direction:   p.Direction,
				Recipe:      p.ExperimentRecipe,
				TargetOS:    p.TargetOS,
				Reason:      p.Reason,
			})
		}
	}

	return r
}

// metricRows flattens snapshot metrics, carrying each variant's
// changed field so the table shows what the row varies.
func (g *Generator) metricRows(snap storage.ExperimentSnapshot) []MetricRow {
	changed := make(map[string]string, len(snap.Variants))
	for _, v := range snap.Variants {
		changed[v.VariantID] = v.ChangedField
	}

	rows := make([]MetricRow, len(snap.Metrics))
	for i, m := range snap.Metrics {
		rows[i] = MetricRow{
			VariantID:    m.VariantID,
			OS:           m.OS,
			Baseline:     m.Baseline,
			ChangedField: changed[m.VariantID],
			Impressions:  m.Impressions,
			Clicks:       m.Clicks,
			Installs:     m.Installs,
			Spend:        m.Spend,
			CTR:          m.CTR,
			IPM:          m.IPM,
			CPI:          m.CPI,
			EarlyROAS:    m.EarlyROAS,
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].VariantID != rows[j].VariantID {
			return rows[i].VariantID < rows[j].VariantID
		}
		return rows[i].OS < rows[j].OS
	})
	return rows
}

func (g *Generator) elementRows(snap storage.ExperimentSnapshot) []ElementRow {
	rows := make([]ElementRow, len(snap.Elements))
	for i, e := range snap.Elements {
		rows[i] = ElementRow{
			ElementType: e.ElementType,
			Value:       e.ElementValue,
			IPMDelta:    e.AvgIPMDeltaVsCardMean,
			CPIDelta:    e.AvgCPIDeltaVsCardMean,
			SampleSize:  e.SampleSize,
			Stable:      e.StabilityFlag,
			Confidence:  e.ConfidenceLevel,
			Consistency: e.CrossOSConsistency,
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ElementType != rows[j].ElementType {
			return rows[i].ElementType < rows[j].ElementType
		}
		return rows[i].Value < rows[j].Value
	})
	return rows
}

func (g *Generator) reviewRows(reviews []ReviewedVariant) []ReviewRow {
	rows := make([]ReviewRow, 0, len(reviews))
	for _, rv := range reviews {
		variantID := rv.Review.VariantID
		if variantID == "" {
			variantID = rv.Creative.VariantID
		}
		rows = append(rows, ReviewRow{
			VariantID:         variantID,
			Headline:          rv.Creative.Headline,
			HookType:          rv.Creative.HookType,
			CTA:               rv.Creative.CTA,
			ModelDecision:     rv.Review.Decision,
			Verdict:           string(rv.Fuse.Verdict),
			FuseLevel:         string(rv.Fuse.FuseLevel),
			WhiteTrafficRisk:  rv.Fuse.WhiteTrafficRisk,
			Clarity:           rv.Review.Scores.Clarity,
			HookStrength:      rv.Review.Scores.HookStrength,
			ComplianceSafety:  rv.Review.Scores.ComplianceSafety,
			ExpectedTestValue: rv.Review.Scores.ExpectedTestValue,
			KeyReasons:        rv.Review.KeyReasons,
			RequiredFixes:     flattenFixes(rv.Review.RequiredFixes),
			Err:               rv.Review.Err,
		})
	}
	return rows
}

// flattenFixes renders each required fix as a single line.
func flattenFixes(fixes []domain.RequiredFix) []string {
	out := make([]string, 0, len(fixes))
	for _, f := range fixes {
		s := f.Fix
		if f.How != "" {
			s += " (" + f.How + ")"
		}
		out = append(out, s)
	}
	return out
}
