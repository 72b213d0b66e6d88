// Package corpus holds the per-vertical candidate pools and scoring
// weights used across the pipeline. The config is built once at startup
// and passed explicitly into every component that needs it; there is no
// package-level mutable state.
package corpus

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
)

// WhyYouOption pairs a stable aggregation key with a display label.
// Pools can grow new labels without breaking historical aggregates.
type WhyYouOption struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// VerticalCorpus is the candidate-pool set for one vertical.
type VerticalCorpus struct {
	MotivationBuckets []string            `yaml:"motivation_buckets"`
	HookTypes         []string            `yaml:"hook_types"`
	SellPoints        []string            `yaml:"sell_points"`
	CTAs              []string            `yaml:"ctas"`
	WhyYou            []WhyYouOption      `yaml:"why_you"`
	WhyNowTriggers    []string            `yaml:"why_now_triggers"`
	Segments          []string            `yaml:"segments"`
	AssetVars         map[string][]string `yaml:"asset_vars"`
	RootCauseGaps     []string            `yaml:"root_cause_gaps"`
}

// MetricWeights are the variant-score weights for one vertical.
type MetricWeights struct {
	IPM           float64 `yaml:"ipm"`
	CPI           float64 `yaml:"cpi"`
	EarlyROAS     float64 `yaml:"early_roas"`
	CTR           float64 `yaml:"ctr"`
	UseRefundRisk bool    `yaml:"use_refund_risk"`
}

// RiskRules are the per-vertical risk knobs.
type RiskRules struct {
	WhyNowStrongStimulusPenalty float64  `yaml:"why_now_strong_stimulus_penalty"`
	WhyNowStrongTriggers        []string `yaml:"why_now_strong_triggers"`
}

// Config is the process-wide read-only corpus configuration.
type Config struct {
	Corpus    map[string]VerticalCorpus `yaml:"corpus"`
	Weights   map[string]MetricWeights  `yaml:"metric_weights"`
	RiskRules map[string]RiskRules      `yaml:"risk_rules"`
}

// Load builds the config from embedded defaults, applying overrides
// from the given YAML file when path is non-empty.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus config: %w", err)
	}
	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse corpus config: %w", err)
	}
	for v, c := range override.Corpus {
		cfg.Corpus[domain.NormalizeVertical(v)] = c
	}
	for v, w := range override.Weights {
		cfg.Weights[domain.NormalizeVertical(v)] = w
	}
	for v, r := range override.RiskRules {
		cfg.RiskRules[domain.NormalizeVertical(v)] = r
	}
	return cfg, nil
}

// Vertical returns the corpus for a vertical, defaulting to casual_game.
func (c *Config) Vertical(vertical string) VerticalCorpus {
	return c.Corpus[domain.NormalizeVertical(vertical)]
}

// MetricWeightsFor returns the score weights for a vertical.
func (c *Config) MetricWeightsFor(vertical string) MetricWeights {
	if w, ok := c.Weights[domain.NormalizeVertical(vertical)]; ok {
		return w
	}
	return MetricWeights{IPM: 0.4, CPI: 0.35, EarlyROAS: 0.25}
}

// RiskRulesFor returns the risk rules for a vertical.
func (c *Config) RiskRulesFor(vertical string) RiskRules {
	return c.RiskRules[domain.NormalizeVertical(vertical)]
}

// Pool returns the candidate pool for a changeable field.
func (vc VerticalCorpus) Pool(field string) []string {
	switch field {
	case domain.FieldHookType:
		return vc.HookTypes
	case domain.FieldSellPoint:
		return vc.SellPoints
	case domain.FieldCTA:
		return vc.CTAs
	case domain.FieldWhyYouBucket:
		labels := make([]string, 0, len(vc.WhyYou))
		for _, o := range vc.WhyYou {
			labels = append(labels, o.Label)
		}
		return labels
	case domain.FieldWhyNowTrigger:
		return vc.WhyNowTriggers
	}
	return nil
}

// Alternatives returns up to n pool values for the field, excluding the
// current value. For asset sub-variables pass "asset_var" and a current
// value of the form "key=value".
func (vc VerticalCorpus) Alternatives(field, current string, n int) []string {
	var pool []string
	if field == domain.FieldAssetVar {
		key, cur, ok := splitAssetValue(current)
		if !ok {
			return nil
		}
		pool = vc.AssetVars[key]
		current = cur
	} else {
		pool = vc.Pool(field)
	}

	var out []string
	for _, v := range pool {
		if v != current {
			out = append(out, v)
		}
		if len(out) == n {
			break
		}
	}
	return out
}

func splitAssetValue(s string) (key, value string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
