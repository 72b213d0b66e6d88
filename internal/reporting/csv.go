package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// RenderMetricsCSV renders variant metric rows as a CSV string.
func RenderMetricsCSV(rows []MetricRow) string {
	var sb strings.Builder

	sb.WriteString("variant_id,os,baseline,changed_field,impressions,clicks,installs,")
	sb.WriteString("spend,ctr,ipm,cpi,early_roas\n")

	for _, m := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%t,%s,%d,%d,%d,%.4f,%.6f,%.4f,%.4f,%.6f\n",
			m.VariantID,
			m.OS,
			m.Baseline,
			m.ChangedField,
			m.Impressions,
			m.Clicks,
			m.Installs,
			m.Spend,
			m.CTR,
			m.IPM,
			m.CPI,
			m.EarlyROAS,
		))
	}

	return sb.String()
}

// RenderReviewCSV renders review outcome rows as a CSV string. Review
// fields carry free text, so this goes through encoding/csv for
// proper quoting.
func RenderReviewCSV(rows []ReviewRow) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	_ = w.Write([]string{
		"index", "variant_id", "headline", "hook_type", "decision",
		"verdict", "fuse_level", "white_traffic_risk_final",
		"clarity", "hook_strength", "compliance_safety", "expected_test_value",
		"cta", "key_reasons", "required_fixes", "error",
	})

	for i, rw := range rows {
		_ = w.Write([]string{
			strconv.Itoa(i + 1),
			rw.VariantID,
			rw.Headline,
			rw.HookType,
			rw.ModelDecision,
			rw.Verdict,
			rw.FuseLevel,
			strconv.Itoa(rw.WhiteTrafficRisk),
			strconv.Itoa(rw.Clarity),
			strconv.Itoa(rw.HookStrength),
			strconv.Itoa(rw.ComplianceSafety),
			strconv.Itoa(rw.ExpectedTestValue),
			rw.CTA,
			strings.Join(rw.KeyReasons, "; "),
			strings.Join(rw.RequiredFixes, " | "),
			rw.Err,
		})
	}

	w.Flush()
	return sb.String()
}
