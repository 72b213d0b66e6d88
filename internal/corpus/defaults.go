package corpus

import "github.com/MyraWang0406/MatrixMirix04/internal/domain"

// Default returns the built-in corpus. Overridable via Load.
func Default() *Config {
	return &Config{
		Corpus: map[string]VerticalCorpus{
			domain.VerticalCasualGame: {
				MotivationBuckets: []string{
					"boredom", "competition", "reward", "social", "collection", "achievement", "thrill", "other",
				},
				HookTypes: []string{
					"result first", "strong contrast", "challenge opener", "POV story", "fail montage",
				},
				SellPoints: []string{
					"pick up in seconds, satisfying combos",
					"new season just opened, rewards are stacked",
					"classic gameplay, zero learning curve",
					"clear a level in one commute stop",
				},
				CTAs: []string{
					"play now", "claim the welcome bonus", "try one level",
				},
				WhyYou: []WhyYouOption{
					{Key: "hero_easy", Label: "easy to pick up"},
					{Key: "season_reward", Label: "season rewards"},
					{Key: "rank_easier", Label: "easier ranking"},
					{Key: "social_showcase", Label: "social showcase"},
					{Key: "catharsis", Label: "stress release"},
					{Key: "other", Label: "other"},
				},
				WhyNowTriggers: []string{
					"new season just opened", "limited-time event", "version update",
					"trending now", "weekend double rewards", "season-end sprint", "new hero launch", "other",
				},
				Segments: []string{"new", "returning", "retargeting"},
				AssetVars: map[string][]string{
					"subtitle_template": {"bold keywords highlighted", "minimal lower-third", "meme captions"},
					"bgm":               {"electronic, driving", "lo-fi chill", "8-bit retro"},
					"rhythm":            {"fast cuts, 3s per shot", "slow build then payoff"},
					"shot_template":     {"gameplay with caption overlay", "hands-on-device POV", "streamer reaction split"},
				},
				RootCauseGaps: []string{
					"commutes feel wasted and players want quick wins",
					"ranked play feels grindy; an easier ladder is the hook",
				},
			},
			domain.VerticalEcommerce: {
				MotivationBuckets: []string{
					"deal_discount", "compare", "gift", "pain_relief", "convenience", "social_proof", "premium_quality", "other",
				},
				HookTypes: []string{
					"price reveal", "before/after", "unboxing", "problem agitation", "review stitch",
				},
				SellPoints: []string{
					"rainproof and durable, ready before the wet season",
					"one-click packing for weekend trips",
					"a portrait that actually looks like your pet",
					"final price after coupon shown upfront",
				},
				CTAs: []string{
					"shop now", "grab the coupon", "see today's price",
				},
				WhyYou: []WhyYouOption{
					{Key: "price_advantage", Label: "price advantage"},
					{Key: "limited_offer", Label: "limited offer"},
					{Key: "quality_guarantee", Label: "quality guarantee"},
					{Key: "word_of_mouth", Label: "word of mouth"},
					{Key: "need_based", Label: "need based"},
					{Key: "experience_upgrade", Label: "experience upgrade"},
					{Key: "other", Label: "other"},
				},
				WhyNowTriggers: []string{
					"price increase warning", "big sale incoming", "flash sale", "stock running low",
					"new arrival", "member day deal", "holiday promotion", "other",
				},
				Segments: []string{"new", "returning", "retargeting"},
				AssetVars: map[string][]string{
					"subtitle_template": {"price callout banner", "testimonial quotes", "spec checklist"},
					"bgm":               {"upbeat acoustic", "urgent countdown pulse"},
					"rhythm":            {"fast cuts, 3s per shot", "long single-take demo"},
					"shot_template":     {"product demo close-up", "creator talking head", "side-by-side comparison"},
				},
				RootCauseGaps: []string{
					"buyers fear wasting money on gear that fails in the rain",
					"gift buyers worry the present will miss the mark",
				},
			},
		},
		Weights: map[string]MetricWeights{
			domain.VerticalCasualGame: {IPM: 0.4, CPI: 0.35, EarlyROAS: 0.25, CTR: 0},
			domain.VerticalEcommerce:  {IPM: 0.35, CPI: 0.3, EarlyROAS: 0.35, CTR: 0, UseRefundRisk: true},
		},
		RiskRules: map[string]RiskRules{
			domain.VerticalCasualGame: {
				WhyNowStrongStimulusPenalty: 3.0,
				WhyNowStrongTriggers:        []string{"weekend double rewards", "season-end sprint"},
			},
			domain.VerticalEcommerce: {
				WhyNowStrongStimulusPenalty: 3.0,
				WhyNowStrongTriggers:        []string{"flash sale", "stock running low"},
			},
		},
	}
}
