package domain

import "strings"

// whyYouLabelToKey maps display labels from older card corpora onto
// stable why_you keys, so aggregation survives wording changes.
var whyYouLabelToKey = map[string]string{
	"price advantage":   "price_advantage",
	"limited offer":     "limited_offer",
	"quality guarantee": "quality_guarantee",
	"word of mouth":     "word_of_mouth",
	"need based":        "need_based",
	"experience upgrade": "experience_upgrade",
	"easy to pick up":   "hero_easy",
	"season rewards":    "season_reward",
	"easier ranking":    "rank_easier",
	"social showcase":   "social_showcase",
	"stress release":    "catharsis",
	"other":             "other",
}

var whyYouKeyToLabel = func() map[string]string {
	m := make(map[string]string, len(whyYouLabelToKey))
	for label, key := range whyYouLabelToKey {
		m[key] = label
	}
	return m
}()

// NormalizeLegacyCard maps any legacy card shape onto the canonical
// StructureCard fields. Persisted cards are long-lived reference data,
// so unknown/renamed fields are back-filled with defaults instead of
// rejected. Run once at the ingestion boundary; internal components
// only ever see canonical fields.
func NormalizeLegacyCard(raw map[string]any) StructureCard {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := raw[k]; ok {
				if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
		return ""
	}

	c := StructureCard{
		CardID:           get("card_id"),
		Version:          get("version"),
		Vertical:         NormalizeVertical(get("vertical")),
		Country:          get("country"),
		OS:               get("os"),
		Objective:        get("objective"),
		Segment:          get("segment"),
		Channel:          get("channel", "source_channel"),
		MotivationBucket: get("motivation_bucket"),
		WhyYouKey:        get("why_you_key"),
		WhyYouLabel:      get("why_you_label"),
		RootCauseGap:     get("root_cause_gap"),
		SourceChannel:    get("source_channel"),
		SourceURL:        get("source_url"),
		SourceDate:       get("source_date"),
	}

	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.MotivationBucket == "" {
		c.MotivationBucket = "other"
	}

	// Legacy why_you_bucket carried a label only; derive the stable key.
	if c.WhyYouKey == "" && c.WhyYouLabel == "" {
		if label := get("why_you_bucket"); label != "" {
			c.WhyYouLabel = label
			if key, ok := whyYouLabelToKey[strings.ToLower(label)]; ok {
				c.WhyYouKey = key
			} else {
				c.WhyYouKey = "other"
			}
		}
	}
	if c.WhyYouKey == "" {
		c.WhyYouKey = "other"
	}
	if c.WhyYouLabel == "" {
		if label, ok := whyYouKeyToLabel[c.WhyYouKey]; ok {
			c.WhyYouLabel = label
		} else {
			c.WhyYouLabel = "other"
		}
	}

	// why_now_trigger went through several renames.
	c.WhyNowTrigger = get("why_now_trigger", "why_now_phrase", "why_now_trigger_bucket", "why_now", "trigger", "why_now_reason")
	if c.WhyNowTrigger == "" {
		c.WhyNowTrigger = "other"
	}

	if v, ok := raw["no_exaggeration"].(bool); ok {
		c.NoExaggeration = v
	} else {
		c.NoExaggeration = true
	}

	return c
}
