package domain

// Element types produced by variant decomposition.
const (
	ElementHook      = "hook"
	ElementWhyYou    = "why_you"
	ElementWhyNow    = "why_now"
	ElementSellPoint = "sell_point"
	ElementCTA       = "cta"
	ElementAsset     = "asset"
)

// Changeable fields referenced by diagnosis prescriptions and
// suggestions.
const (
	FieldHookType      = "hook_type"
	FieldSellPoint     = "sell_point"
	FieldCTA           = "cta"
	FieldWhyYouBucket  = "why_you_bucket"
	FieldWhyNowTrigger = "why_now_trigger"
	FieldAssetVar      = "asset_var"
)

// AssetVariables are the asset-layer sub-variables of a variant.
type AssetVariables struct {
	SubtitleTemplate string `json:"subtitle_template"`
	BGM              string `json:"bgm"`
	Rhythm           string `json:"rhythm"`
	ShotTemplate     string `json:"shot_template"`
}

// Variant is a concrete creative expression derived from a card.
// Exactly one variant per card is the baseline (ChangedField empty);
// every other variant changes exactly one field relative to it.
type Variant struct {
	VariantID    string `json:"variant_id"`
	ParentCardID string `json:"parent_card_id"`

	HookType  string `json:"hook_type"`
	SellPoint string `json:"sell_point"`
	CTAType   string `json:"cta_type"`

	ExpressionTemplate string         `json:"expression_template"`
	AssetVariables     AssetVariables `json:"asset_variables"`

	WhyYouExpression string `json:"why_you_expression,omitempty"`
	WhyNowExpression string `json:"why_now_expression,omitempty"`

	// ChangedField is the single field this variant changes relative to
	// the baseline; empty for the baseline itself.
	ChangedField string `json:"changed_field"`
	DeltaDesc    string `json:"delta_desc"`
}

// IsBaseline reports whether the variant is the card's baseline.
func (v Variant) IsBaseline() bool {
	return v.ChangedField == ""
}

// ElementTag marks one element carried by a variant, for element-level
// contribution analysis.
type ElementTag struct {
	ElementType  string `json:"element_type"`
	ElementValue string `json:"element_value"`
}

// DecomposeVariant splits a variant into its element tags. The why_you
// and why_now tags fall back to the sell point when no dedicated
// expression was authored, matching how the persuasion layer is built.
func DecomposeVariant(v Variant) []ElementTag {
	var tags []ElementTag

	if v.HookType != "" {
		tags = append(tags, ElementTag{ElementType: ElementHook, ElementValue: v.HookType})
	}

	whyYou := v.WhyYouExpression
	if whyYou == "" {
		whyYou = v.SellPoint
	}
	if whyYou != "" {
		tags = append(tags, ElementTag{ElementType: ElementWhyYou, ElementValue: whyYou})
	}

	whyNow := v.WhyNowExpression
	if whyNow == "" {
		whyNow = v.SellPoint
	}
	if whyNow != "" {
		tags = append(tags, ElementTag{ElementType: ElementWhyNow, ElementValue: whyNow})
	}

	if v.SellPoint != "" {
		tags = append(tags, ElementTag{ElementType: ElementSellPoint, ElementValue: v.SellPoint})
	}
	if v.CTAType != "" {
		tags = append(tags, ElementTag{ElementType: ElementCTA, ElementValue: v.CTAType})
	}

	a := v.AssetVariables
	for _, kv := range []struct{ key, val string }{
		{"subtitle_template", a.SubtitleTemplate},
		{"bgm", a.BGM},
		{"rhythm", a.Rhythm},
		{"shot_template", a.ShotTemplate},
	} {
		if kv.val != "" {
			tags = append(tags, ElementTag{ElementType: ElementAsset, ElementValue: kv.key + "=" + kv.val})
		}
	}

	return tags
}
