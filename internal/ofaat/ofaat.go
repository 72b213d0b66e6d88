// Package ofaat generates creative variants one factor at a time: a
// baseline built from the head of each candidate pool, then variants
// that each change exactly one field relative to it.
package ofaat

import (
	"fmt"
	"strings"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
)

const expressionTemplate = "five_shot"

// Pools hold the candidate values variants are drawn from. Empty pools
// are tolerated; the corresponding field stays empty on every variant.
type Pools struct {
	HookTypes  []string
	SellPoints []string
	CTAs       []string

	// AssetPool maps sub-variable names (subtitle_template, bgm,
	// rhythm, shot_template) to their candidate values.
	AssetPool map[string][]string
}

var assetKeys = []string{"subtitle_template", "bgm", "rhythm", "shot_template"}

var defaultAsset = domain.AssetVariables{
	SubtitleTemplate: "bold text with highlighted keywords",
	BGM:              "electronic, rhythmic",
	Rhythm:           "fast cuts, one shot every 3s",
	ShotTemplate:     "gameplay footage with subtitle overlay",
}

// Generate produces up to n variants for a card. The first variant is
// always the baseline (first value of each pool, empty ChangedField);
// subsequent variants rotate through hook, sell point, CTA and asset
// sub-variables, changing one field each. Output is deterministic in
// the pool order.
func Generate(parentCardID string, pools Pools, n int) []domain.Variant {
	if n < 1 {
		n = 1
	}

	hooks := cleanPool(pools.HookTypes)
	sells := cleanPool(pools.SellPoints)
	ctas := cleanPool(pools.CTAs)

	assets := make(map[string][]string, len(assetKeys))
	for _, k := range assetKeys {
		assets[k] = cleanPool(pools.AssetPool[k])
	}

	base := defaultAsset
	if v := assets["subtitle_template"]; len(v) > 0 {
		base.SubtitleTemplate = v[0]
	}
	if v := assets["bgm"]; len(v) > 0 {
		base.BGM = v[0]
	}
	if v := assets["rhythm"]; len(v) > 0 {
		base.Rhythm = v[0]
	}
	if v := assets["shot_template"]; len(v) > 0 {
		base.ShotTemplate = v[0]
	}

	baseHook := head(hooks)
	baseSell := head(sells)
	baseCTA := head(ctas)

	mk := func(vid int) domain.Variant {
		return domain.Variant{
			VariantID:          fmt.Sprintf("v%03d", vid),
			ParentCardID:       parentCardID,
			HookType:           baseHook,
			SellPoint:          baseSell,
			CTAType:            baseCTA,
			ExpressionTemplate: expressionTemplate,
			AssetVariables:     base,
			WhyYouExpression:   baseSell,
			WhyNowExpression:   baseSell,
		}
	}

	baseline := mk(1)
	baseline.DeltaDesc = "baseline"
	variants := []domain.Variant{baseline}

	// Asset rotation walks only keys with a real alternative.
	var rotKeys []string
	for _, k := range assetKeys {
		if len(assets[k]) > 1 {
			rotKeys = append(rotKeys, k)
		}
	}

	hookIdx, sellIdx, ctaIdx := 1, 1, 1
	assetKeyIdx := 0
	assetValIdx := make(map[string]int, len(rotKeys))

	for vid := 2; len(variants) < n; vid++ {
		switch {
		case hookIdx < len(hooks):
			v := mk(vid)
			v.HookType = hooks[hookIdx]
			v.ChangedField = domain.FieldHookType
			v.DeltaDesc = fmt.Sprintf("hook: %s -> %s", baseHook, hooks[hookIdx])
			variants = append(variants, v)
			hookIdx++

		case sellIdx < len(sells):
			v := mk(vid)
			v.SellPoint = sells[sellIdx]
			v.WhyYouExpression = sells[sellIdx]
			v.WhyNowExpression = sells[sellIdx]
			v.ChangedField = domain.FieldSellPoint
			v.DeltaDesc = fmt.Sprintf("sell point: %s -> %s", trim20(baseSell), trim20(sells[sellIdx]))
			variants = append(variants, v)
			sellIdx++

		case ctaIdx < len(ctas):
			v := mk(vid)
			v.CTAType = ctas[ctaIdx]
			v.ChangedField = domain.FieldCTA
			v.DeltaDesc = fmt.Sprintf("cta: %s -> %s", baseCTA, ctas[ctaIdx])
			variants = append(variants, v)
			ctaIdx++

		default:
			if len(rotKeys) == 0 {
				return variants
			}
			added := false
			for range rotKeys {
				key := rotKeys[assetKeyIdx%len(rotKeys)]
				idx := assetValIdx[key]
				if idx == 0 {
					idx = 1
				}
				vals := assets[key]
				if idx < len(vals) {
					v := mk(vid)
					old := assetValue(base, key)
					setAssetValue(&v.AssetVariables, key, vals[idx])
					v.ChangedField = domain.FieldAssetVar
					v.DeltaDesc = fmt.Sprintf("asset(%s): %s -> %s", key, trim16(old), trim16(vals[idx]))
					variants = append(variants, v)
					assetValIdx[key] = idx + 1
					assetKeyIdx++
					added = true
					break
				}
				assetKeyIdx++
			}
			if !added {
				return variants
			}
		}
	}

	return variants
}

func cleanPool(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func head(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[0]
}

func assetValue(a domain.AssetVariables, key string) string {
	switch key {
	case "subtitle_template":
		return a.SubtitleTemplate
	case "bgm":
		return a.BGM
	case "rhythm":
		return a.Rhythm
	case "shot_template":
		return a.ShotTemplate
	}
	return ""
}

func setAssetValue(a *domain.AssetVariables, key, val string) {
	switch key {
	case "subtitle_template":
		a.SubtitleTemplate = val
	case "bgm":
		a.BGM = val
	case "rhythm":
		a.Rhythm = val
	case "shot_template":
		a.ShotTemplate = val
	}
}

func trim20(s string) string { return truncate(s, 20) }
func trim16(s string) string { return truncate(s, 16) }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
