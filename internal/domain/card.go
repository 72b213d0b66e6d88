package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Verticals supported by the evaluation pipeline.
const (
	VerticalCasualGame = "casual_game"
	VerticalEcommerce  = "ecommerce"
)

// Operating systems a card or metric row can target.
const (
	OSiOS     = "iOS"
	OSAndroid = "Android"
	OSAll     = "all"
)

// SegmentSpec describes the audience slice a card targets.
type SegmentSpec struct {
	Country      string `json:"country"`
	Language     string `json:"language"`
	OS           string `json:"os"`
	UserType     string `json:"user_type"`
	ContextScene string `json:"context_scene"`
}

// InsightTension explains why a structure is expected to win or lose.
type InsightTension struct {
	RootGap  string `json:"root_gap"`
	Trigger  string `json:"trigger"`
	Contrast string `json:"contrast"`
}

// FormatPattern captures the narrative shape of the creative expression.
type FormatPattern struct {
	NarrativeType string `json:"narrative_type"`
	Rhythm        string `json:"rhythm"`
	EvidenceStyle string `json:"evidence_style"`
}

// StructureCard is the evaluation unit: a bundle of campaign structure
// attributes. Cards are immutable once simulated against; a new version
// is created by CopyWithBump, never by in-place mutation.
type StructureCard struct {
	CardID  string `json:"card_id"`
	Version string `json:"version"`

	Vertical  string `json:"vertical"`
	Country   string `json:"country"`
	OS        string `json:"os"`
	Objective string `json:"objective"`
	Segment   string `json:"segment"`
	Channel   string `json:"channel"`

	MotivationBucket string `json:"motivation_bucket"`
	WhyYouKey        string `json:"why_you_key"`
	WhyYouLabel      string `json:"why_you_label"`
	WhyNowTrigger    string `json:"why_now_trigger"`

	RootCauseGap string `json:"root_cause_gap"`

	ProofPoints        []string `json:"proof_points,omitempty"`
	HandoffExpectation string   `json:"handoff_expectation,omitempty"`

	SegmentSpec    *SegmentSpec    `json:"segment_spec,omitempty"`
	InsightTension *InsightTension `json:"insight_tension,omitempty"`
	FormatPattern  *FormatPattern  `json:"format_pattern,omitempty"`

	RiskFlags []string `json:"risk_flags,omitempty"`

	// NoExaggeration escalates the fuse when exaggeration keywords are
	// found in reviewed creative text.
	NoExaggeration bool `json:"no_exaggeration"`

	SourceChannel string `json:"source_channel,omitempty"`
	SourceURL     string `json:"source_url,omitempty"`
	SourceDate    string `json:"source_date,omitempty"`
}

// CopyWithBump returns a copy of the card with the minor version
// incremented. The receiver is never modified.
func (c StructureCard) CopyWithBump() StructureCard {
	out := c
	out.Version = bumpVersion(c.Version)
	return out
}

func bumpVersion(v string) string {
	major, minor := "1", "0"
	if parts := strings.SplitN(strings.TrimSpace(v), ".", 2); len(parts) == 2 {
		major, minor = parts[0], parts[1]
	}
	n, err := strconv.Atoi(minor)
	if err != nil {
		return "1.1"
	}
	return fmt.Sprintf("%s.%d", major, n+1)
}

// ValidateCard checks the card for missing required fields and returns a
// readable error list. An empty slice means the card is usable.
func ValidateCard(c StructureCard) []string {
	var errs []string
	required := []struct {
		value string
		desc  string
	}{
		{c.CardID, "card_id"},
		{c.Version, "version"},
		{c.Vertical, "vertical"},
		{c.Country, "country"},
		{c.OS, "os"},
		{c.Objective, "objective"},
		{c.Segment, "segment"},
		{c.MotivationBucket, "motivation_bucket"},
		{c.WhyYouKey, "why_you_key"},
		{c.WhyNowTrigger, "why_now_trigger"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, "missing or empty: "+r.desc)
		}
	}
	switch strings.ToLower(c.Vertical) {
	case VerticalCasualGame, VerticalEcommerce, "":
	default:
		errs = append(errs, "unknown vertical: "+c.Vertical)
	}
	return errs
}

// NormalizeVertical maps arbitrary vertical strings onto the two
// supported verticals, defaulting to casual_game.
func NormalizeVertical(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case VerticalEcommerce:
		return VerticalEcommerce
	default:
		return VerticalCasualGame
	}
}
