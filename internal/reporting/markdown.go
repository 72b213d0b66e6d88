package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Creative Experiment Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Experiment: %s | Variants: %d\n\n", esc(r.ExperimentID), r.VariantCount))

	// Card
	sb.WriteString("## Structure Card\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Card ID | %s |\n", esc(r.Card.CardID)))
	sb.WriteString(fmt.Sprintf("| Version | %s |\n", esc(r.Card.Version)))
	sb.WriteString(fmt.Sprintf("| Vertical | %s |\n", esc(r.Card.Vertical)))
	sb.WriteString(fmt.Sprintf("| Channel | %s |\n", esc(r.Card.Channel)))
	sb.WriteString(fmt.Sprintf("| Country | %s |\n", esc(r.Card.Country)))
	sb.WriteString(fmt.Sprintf("| Segment | %s |\n", esc(r.Card.Segment)))
	sb.WriteString(fmt.Sprintf("| OS | %s |\n", esc(r.Card.OS)))
	sb.WriteString(fmt.Sprintf("| Objective | %s |\n", esc(r.Card.Objective)))
	sb.WriteString(fmt.Sprintf("| Motivation | %s |\n", esc(r.Card.MotivationBucket)))
	sb.WriteString("\n")

	// Variant metrics
	sb.WriteString("## Variant Metrics\n\n")
	if len(r.Metrics) > 0 {
		sb.WriteString("| Variant | OS | Changed | Impr | Clicks | Installs | Spend | CTR | IPM | CPI | EarlyROAS |\n")
		sb.WriteString("|---------|----|---------|------|--------|----------|-------|-----|-----|-----|-----------|\n")
		for _, m := range r.Metrics {
			label := m.ChangedField
			if m.Baseline {
				label = "baseline"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d | %d | %.2f | %.4f | %.2f | %.2f | %.4f |\n",
				esc(m.VariantID), esc(m.OS), esc(label),
				m.Impressions, m.Clicks, m.Installs, m.Spend,
				m.CTR, m.IPM, m.CPI, m.EarlyROAS))
		}
	} else {
		sb.WriteString("No metrics available.\n")
	}
	sb.WriteString("\n")

	// Element scores
	sb.WriteString("## Element Scores\n\n")
	if len(r.Elements) > 0 {
		sb.WriteString("| Element | Value | IPM Delta | CPI Delta | N | Stable | Confidence | Cross-OS |\n")
		sb.WriteString("|---------|-------|-----------|-----------|---|--------|------------|----------|\n")
		for _, e := range r.Elements {
			stable := "no"
			if e.Stable {
				stable = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %+.2f | %+.2f | %d | %s | %s | %s |\n",
				esc(e.ElementType), esc(e.Value), e.IPMDelta, e.CPIDelta,
				e.SampleSize, stable, esc(e.Confidence), esc(e.Consistency)))
		}
	} else {
		sb.WriteString("No element scores available.\n")
	}
	sb.WriteString("\n")

	// Diagnosis
	sb.WriteString("## Diagnosis\n\n")
	if r.Diagnosis.State != "" {
		sb.WriteString(fmt.Sprintf("**State:** %s\n\n", esc(r.Diagnosis.State)))
		if r.Diagnosis.Title != "" {
			sb.WriteString(fmt.Sprintf("**Title:** %s\n\n", esc(r.Diagnosis.Title)))
		}
		if r.Diagnosis.FailureType != "" {
			sb.WriteString(fmt.Sprintf("**Failure type:** %s | **Primary signal:** %s\n\n",
				esc(r.Diagnosis.FailureType), esc(r.Diagnosis.PrimarySignal)))
		}
		if r.Diagnosis.Detail != "" {
			sb.WriteString(fmt.Sprintf("%s\n\n", r.Diagnosis.Detail))
		}
		for _, line := range r.Diagnosis.Explanation {
			sb.WriteString(fmt.Sprintf("- %s\n", line))
		}
		if len(r.Diagnosis.Explanation) > 0 {
			sb.WriteString("\n")
		}
		if len(r.Diagnosis.Actions) > 0 {
			sb.WriteString("### Recommended Actions\n\n")
			sb.WriteString("| Action | Field | Direction | Target OS | Reason |\n")
			sb.WriteString("|--------|-------|-----------|-----------|--------|\n")
			for _, a := range r.Diagnosis.Actions {
				sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
					esc(a.Action), esc(a.ChangeField), esc(a.Direction),
					esc(a.TargetOS), esc(a.Reason)))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No diagnosis available.\n\n")
	}

	// Decision
	sb.WriteString("## Decision\n\n")
	sb.WriteString(fmt.Sprintf("**Status:** %s", esc(r.Decision.Status)))
	if r.Decision.StatusText != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", r.Decision.StatusText))
	}
	sb.WriteString("\n\n")
	if r.Decision.Insufficient {
		sb.WriteString("**Sample size is insufficient; treat as directional only.**\n\n")
	}
	sb.WriteString(fmt.Sprintf("**Reason:** %s\n\n", orDash(r.Decision.Reason)))
	sb.WriteString(fmt.Sprintf("**Risk:** %s\n\n", orDash(r.Decision.Risk)))
	sb.WriteString(fmt.Sprintf("**Next step:** %s\n\n", orDash(r.Decision.NextStep)))

	// Review outcomes
	if len(r.Reviews) > 0 {
		sb.WriteString(renderReviewsMarkdown(r.Reviews))
	}

	return sb.String()
}

// renderReviewsMarkdown renders review outcomes: a summary table plus
// a detail block per creative.
func renderReviewsMarkdown(rows []ReviewRow) string {
	var sb strings.Builder

	sb.WriteString("## Review Outcomes\n\n")
	sb.WriteString("| # | Variant | Decision | Verdict | Fuse | WT Risk | Clarity | Hook | Compliance | Test Value | Summary |\n")
	sb.WriteString("|---|---------|----------|---------|------|---------|---------|------|------------|------------|---------|\n")
	for i, rw := range rows {
		summary := rw.Err
		if summary == "" && len(rw.KeyReasons) > 0 {
			summary = rw.KeyReasons[0]
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %d | %d | %d | %d | %d | %s |\n",
			i+1, esc(rw.VariantID), esc(rw.ModelDecision), esc(rw.Verdict),
			esc(rw.FuseLevel), rw.WhiteTrafficRisk,
			rw.Clarity, rw.HookStrength, rw.ComplianceSafety, rw.ExpectedTestValue,
			esc(truncate(summary, 30))))
	}
	sb.WriteString("\n### Details\n\n")

	for i, rw := range rows {
		sb.WriteString(fmt.Sprintf("#### Variant %d: %s | %s | fuse=%s | white_traffic_risk=%d\n\n",
			i+1, esc(rw.VariantID), esc(rw.Verdict), esc(rw.FuseLevel), rw.WhiteTrafficRisk))
		if rw.Err != "" {
			sb.WriteString("**Error:** " + esc(rw.Err) + "\n\n")
		} else {
			if rw.Headline != "" {
				sb.WriteString("**Headline:** " + esc(rw.Headline) + "\n\n")
			}
			sb.WriteString("**Hook type:** " + orDash(rw.HookType) + "\n\n")
			sb.WriteString("**CTA:** " + orDash(rw.CTA) + "\n\n")
			if len(rw.KeyReasons) > 0 {
				sb.WriteString("**Key reasons:** " + esc(strings.Join(rw.KeyReasons, "; ")) + "\n\n")
			}
			if len(rw.RequiredFixes) > 0 {
				sb.WriteString("**Required fixes:** " + esc(strings.Join(rw.RequiredFixes, " | ")) + "\n\n")
			}
		}
		sb.WriteString("---\n\n")
	}

	return sb.String()
}

// esc escapes characters that break Markdown table cells.
func esc(s string) string {
	if s == "" {
		return "-"
	}
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
