// Package fuse is the safety net over external creative reviews. It
// re-scores every review against keyword and threshold rules and can
// only escalate the outcome, never soften it.
package fuse

import (
	"strings"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
)

// Severe exaggeration claims force RED outright when the card bans
// exaggeration.
var severeWords = []string{
	"free forever", "get rich", "guaranteed profit", "risk-free profit",
	"100%", "absolutely", "sure win", "passive income overnight",
	"instant riches", "overnight", "never lose", "guaranteed",
	"guarantee",
}

// Normal exaggeration wording escalates to at least YELLOW when the
// card bans exaggeration.
var normalWords = []string{
	"free giveaway", "zero cost", "no risk", "always wins", "must rise",
	"absolutely effective", "immediate results", "permanent cure",
	"miracle", "miraculous", "top-tier", "number one", "#1",
}

// Decision is the full fuse output.
type Decision struct {
	Verdict          domain.Verdict   `json:"verdict"`
	WhiteTrafficRisk int              `json:"white_traffic_risk_final"`
	FuseLevel        domain.FuseLevel `json:"fuse_level"`
}

// NoExaggerationPolicy is the card-level flag the keyword scan honors.
type NoExaggerationPolicy bool

// Evaluate computes the final verdict for one reviewed creative. A
// review that failed upstream is maximally unsafe: KILL at risk 100.
// Otherwise the fuse level is the worst of the keyword scan, the
// sub-score rules and the white-traffic risk, and only a GREEN fuse
// defers to the model's own decision.
func Evaluate(creative domain.ReviewedCreative, review domain.Review, noExaggeration bool) Decision {
	if review.Err != "" {
		return Decision{
			Verdict:          domain.VerdictKill,
			WhiteTrafficRisk: 100,
			FuseLevel:        domain.FuseRed,
		}
	}

	level := domain.FuseGreen

	hitSevere, hitNormal := scanExaggeration(collectText(creative))
	if noExaggeration {
		if hitSevere {
			level = domain.FuseRed
		} else if hitNormal {
			level = escalate(level, domain.FuseYellow)
		}
	}

	s := review.Scores
	if s.ComplianceSafety < 40 {
		level = domain.FuseRed
	} else if s.Clarity < 40 || s.ExpectedTestValue < 40 {
		level = escalate(level, domain.FuseYellow)
	}

	risk := ruleRisk(s)
	if modelRisk := riskBucketScore(review.WhiteTrafficRisk); modelRisk > risk {
		risk = modelRisk
	}

	switch {
	case risk >= 70:
		level = escalate(level, domain.FuseRed)
	case risk >= 40:
		level = escalate(level, domain.FuseYellow)
	}

	verdict := domain.VerdictPass
	switch level {
	case domain.FuseRed:
		verdict = domain.VerdictKill
	case domain.FuseYellow:
		verdict = domain.VerdictRevise
	default:
		switch strings.ToUpper(review.Decision) {
		case "HARD_FAIL", "KILL":
			verdict = domain.VerdictKill
		case "SOFT_FAIL", "REVISE":
			verdict = domain.VerdictRevise
		}
	}

	return Decision{Verdict: verdict, WhiteTrafficRisk: risk, FuseLevel: level}
}

// collectText gathers every free-text surface of a creative into one
// scannable string.
func collectText(c domain.ReviewedCreative) string {
	parts := []string{
		c.HookType, c.Notes, c.CTA,
		c.Who, c.Why, c.WhyNow,
	}
	for _, shot := range c.Shots {
		parts = append(parts, shot.Visual, shot.OverlayText, shot.Voiceover)
	}
	parts = append(parts, c.Headline, c.CoreMessage)

	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func scanExaggeration(text string) (severe, normal bool) {
	t := strings.ToLower(text)
	for _, w := range severeWords {
		if strings.Contains(t, w) {
			severe = true
			break
		}
	}
	for _, w := range normalWords {
		if strings.Contains(t, w) {
			normal = true
			break
		}
	}
	return severe, normal
}

// ruleRisk maps low sub-scores onto a 0-100 white-traffic risk.
// Compliance weighs heaviest, then test value, then clarity.
func ruleRisk(s domain.ReviewScores) int {
	risk := float64(100-s.Clarity)*0.1 +
		float64(100-s.ComplianceSafety)*0.25 +
		float64(100-s.ExpectedTestValue)*0.15
	if risk < 0 {
		return 0
	}
	if risk > 100 {
		return 100
	}
	return int(risk)
}

func riskBucketScore(bucket string) int {
	switch strings.ToLower(bucket) {
	case "high":
		return 90
	case "medium":
		return 55
	default:
		return 20
	}
}

func escalate(cur, to domain.FuseLevel) domain.FuseLevel {
	if severity(to) > severity(cur) {
		return to
	}
	return cur
}

func severity(l domain.FuseLevel) int {
	switch l {
	case domain.FuseRed:
		return 2
	case domain.FuseYellow:
		return 1
	}
	return 0
}
