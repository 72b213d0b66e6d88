// Package orchestrator runs the full single-card pipeline:
// variant generation → metric simulation → gates → element scores →
// diagnosis → suggestions → decision summary, with optional
// persistence into the knowledge and metric stores.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MyraWang0406/MatrixMirix04/internal/corpus"
	"github.com/MyraWang0406/MatrixMirix04/internal/diagnosis"
	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
	"github.com/MyraWang0406/MatrixMirix04/internal/elements"
	"github.com/MyraWang0406/MatrixMirix04/internal/gate"
	"github.com/MyraWang0406/MatrixMirix04/internal/idhash"
	"github.com/MyraWang0406/MatrixMirix04/internal/ofaat"
	"github.com/MyraWang0406/MatrixMirix04/internal/scoring"
	"github.com/MyraWang0406/MatrixMirix04/internal/simulate"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage"
	"github.com/MyraWang0406/MatrixMirix04/internal/suggest"
	"github.com/MyraWang0406/MatrixMirix04/internal/summary"
)

// Pool caps keep the OFAAT rotation focused on the head of each pool.
const (
	maxHooks = 8
	maxSells = 8
	maxCTAs  = 5

	defaultVariantsPerCard = 12
	defaultTopK            = 5
	defaultMaxSuggestions  = 3

	// Validate-FAIL penalty applied to the card score.
	stabilityPenalty = 5.0
)

// Options configures an Orchestrator.
type Options struct {
	// Corpus is required; it supplies the per-vertical pools, metric
	// weights and risk rules.
	Corpus *corpus.Config

	// Optional stores. A nil store skips that persistence step.
	Knowledge    storage.KnowledgeStore
	MetricsStore storage.MetricSnapshotStore

	VariantsPerCard int
	ExploreConfig   *gate.ExploreConfig
	ValidateConfig  *gate.ValidateConfig

	// MinElementSample below 1 falls back to the scorer default.
	MinElementSample int
	TopK             int
	MaxSuggestions   int

	Verbose bool
}

// Orchestrator runs experiments for structure cards.
type Orchestrator struct {
	corpus       *corpus.Config
	knowledge    storage.KnowledgeStore
	metricsStore storage.MetricSnapshotStore

	variantsPerCard  int
	exploreCfg       gate.ExploreConfig
	validateCfg      gate.ValidateConfig
	minElementSample int
	topK             int
	maxSuggestions   int

	verbose bool
	now     func() time.Time // Injectable clock for deterministic IDs
}

// New creates an Orchestrator, filling unset options with defaults.
func New(opts Options) (*Orchestrator, error) {
	if opts.Corpus == nil {
		return nil, errors.New("orchestrator: corpus config is required")
	}

	o := &Orchestrator{
		corpus:           opts.Corpus,
		knowledge:        opts.Knowledge,
		metricsStore:     opts.MetricsStore,
		variantsPerCard:  opts.VariantsPerCard,
		exploreCfg:       gate.DefaultExploreConfig(),
		validateCfg:      gate.DefaultValidateConfig(),
		minElementSample: opts.MinElementSample,
		topK:             opts.TopK,
		maxSuggestions:   opts.MaxSuggestions,
		verbose:          opts.Verbose,
		now:              func() time.Time { return time.Now().UTC() },
	}
	if opts.ExploreConfig != nil {
		o.exploreCfg = *opts.ExploreConfig
	}
	if opts.ValidateConfig != nil {
		o.validateCfg = *opts.ValidateConfig
	}
	if o.variantsPerCard < 1 {
		o.variantsPerCard = defaultVariantsPerCard
	}
	if o.topK < 1 {
		o.topK = defaultTopK
	}
	if o.maxSuggestions < 1 {
		o.maxSuggestions = defaultMaxSuggestions
	}
	return o, nil
}

// WithClock sets a custom clock for deterministic run and experiment
// IDs in tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// RowScore is one per-(variant, os) normalized score.
type RowScore struct {
	VariantID string  `json:"variant_id"`
	OS        string  `json:"os"`
	Score     float64 `json:"score"`
}

// Result is the complete outcome of one card experiment.
type Result struct {
	RunID        string `json:"run_id"`
	ExperimentID string `json:"experiment_id"`

	Card     domain.StructureCard      `json:"card"`
	Variants []domain.Variant          `json:"variants"`
	Metrics  []domain.SimulatedMetrics `json:"metrics"`

	ExploreIOS     gate.ExploreResult  `json:"explore_ios"`
	ExploreAndroid gate.ExploreResult  `json:"explore_android"`
	Validate       gate.ValidateResult `json:"validate_result"`

	Windows        []domain.WindowMetrics `json:"window_metrics"`
	LightExpansion domain.WindowMetrics   `json:"light_expansion"`

	Elements    []elements.Score     `json:"element_scores"`
	Suggestions []suggest.Suggestion `json:"suggestions"`

	RowScores     []RowScore              `json:"row_scores"`
	VariantScores map[string]float64      `json:"variant_scores"`
	CardScore     scoring.CardScoreResult `json:"card_score_result"`

	Diagnosis diagnosis.Result `json:"diagnosis"`
	Decision  summary.Decision `json:"decision"`
}

// RunCard executes the full pipeline for one card. The result is a
// pure function of the card; persistence failures other than
// duplicates abort the run.
func (o *Orchestrator) RunCard(ctx context.Context, card domain.StructureCard) (*Result, error) {
	if errs := domain.ValidateCard(card); len(errs) > 0 {
		return nil, fmt.Errorf("invalid card %s: %s", card.CardID, strings.Join(errs, "; "))
	}

	vert := domain.NormalizeVertical(card.Vertical)
	vc := o.corpus.Vertical(vert)
	mb := card.MotivationBucket
	if mb == "" {
		mb = defaultBucket(vert)
	}

	o.log("card %s: generating %d variants (%s)", card.CardID, o.variantsPerCard, vert)
	variants := ofaat.Generate(card.CardID, ofaat.Pools{
		HookTypes:  head(vc.HookTypes, maxHooks),
		SellPoints: head(vc.SellPoints, maxSells),
		CTAs:       head(vc.CTAs, maxCTAs),
		AssetPool:  vc.AssetVars,
	}, o.variantsPerCard)
	if len(variants) == 0 {
		return nil, fmt.Errorf("card %s: no variants generated", card.CardID)
	}

	// Baseline runs on both platforms, then every test variant does too.
	simOpts := simulate.Options{MotivationBucket: mb, Vertical: vert}
	metrics := make([]domain.SimulatedMetrics, 0, len(variants)*2)
	baseOpts := simOpts
	baseOpts.Baseline = true
	metrics = append(metrics,
		simulate.Simulate(variants[0], "iOS", baseOpts),
		simulate.Simulate(variants[0], "Android", baseOpts),
	)
	for _, v := range variants[1:] {
		metrics = append(metrics,
			simulate.Simulate(v, "iOS", simOpts),
			simulate.Simulate(v, "Android", simOpts),
		)
	}

	var baselineRows, testRows []domain.SimulatedMetrics
	for _, m := range metrics {
		if m.Baseline {
			baselineRows = append(baselineRows, m)
		} else {
			testRows = append(testRows, m)
		}
	}

	objective := card.Objective
	if objective == "" {
		if vert == "ecommerce" {
			objective = "purchase"
		} else {
			objective = "install"
		}
	}
	baseCtx := gate.ExploreContext{
		Country:          card.Country,
		Objective:        objective,
		Segment:          card.Segment,
		MotivationBucket: mb,
	}
	iosCtx, androidCtx := baseCtx, baseCtx
	iosCtx.OS = "iOS"
	androidCtx.OS = "Android"

	exploreIOS := gate.EvaluateExplore(testRows, baselineRows, iosCtx, o.exploreCfg, nil)
	exploreAndroid := gate.EvaluateExplore(testRows, baselineRows, androidCtx, o.exploreCfg, nil)
	o.log("card %s: explore iOS=%s android=%s", card.CardID, exploreIOS.GateStatus, exploreAndroid.GateStatus)

	windows, light := simulateWindows(card.CardID, metrics[0])
	validate := gate.EvaluateValidate(windows, &light, o.validateCfg)
	o.log("card %s: validate=%s", card.CardID, validate.ValidateStatus)

	variantToTags := make(map[string][]domain.ElementTag, len(variants))
	for _, v := range variants {
		variantToTags[v.VariantID] = domain.DecomposeVariant(v)
	}
	elementScores := elements.Compute(metrics, variantToTags, o.minElementSample)

	rowScores, variantScores := o.scoreRows(metrics, vert)
	eligible := mergeEligible(exploreIOS.EligibleVariants, exploreAndroid.EligibleVariants)
	cardScore := scoring.CardScore(eligible, variantScores, o.topK,
		o.stabilityPenalty(validate), o.whyNowPenalty(card, vert, validate))

	diagInput := diagnosis.Input{
		ExploreIOS:     &exploreIOS,
		ExploreAndroid: &exploreAndroid,
		Validate:       &validate,
		Metrics:        metrics,
	}
	diag := diagnosis.Diagnose(diagInput)
	suggestions := suggest.Generate(elementScores, &diag, vc, o.maxSuggestions)
	decision := summary.Compute(diagInput)

	createdAt := o.now()
	res := &Result{
		RunID: uuid.NewString(),
		ExperimentID: idhash.ComputeExperimentID(
			card.CardID, card.Version, card.Channel, createdAt.Unix()),
		Card:           card,
		Variants:       variants,
		Metrics:        metrics,
		ExploreIOS:     exploreIOS,
		ExploreAndroid: exploreAndroid,
		Validate:       validate,
		Windows:        windows,
		LightExpansion: light,
		Elements:       elementScores,
		Suggestions:    suggestions,
		RowScores:      rowScores,
		VariantScores:  variantScores,
		CardScore:      cardScore,
		Diagnosis:      diag,
		Decision:       decision,
	}

	if err := o.persist(ctx, res, createdAt); err != nil {
		return nil, err
	}
	o.log("card %s: %s (%s)", card.CardID, decision.Status, res.ExperimentID)
	return res, nil
}

// persist writes the snapshot and metric rows into the configured
// stores. Duplicates are fine: the same card/version/day hashes to the
// same experiment ID.
func (o *Orchestrator) persist(ctx context.Context, res *Result, createdAt time.Time) error {
	snap := &storage.ExperimentSnapshot{
		ExperimentID: res.ExperimentID,
		Card:         res.Card,
		Variants:     res.Variants,
		Metrics:      res.Metrics,
		Diagnosis:    &res.Diagnosis,
		Elements:     res.Elements,
		Decision:     res.Decision,
		CreatedAt:    createdAt,
	}

	if o.knowledge != nil {
		if _, err := o.knowledge.WriteExperiment(ctx, snap); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("write experiment %s: %w", res.ExperimentID, err)
			}
		}
	}
	if o.metricsStore != nil {
		if err := o.metricsStore.InsertBulk(ctx, storage.SnapshotMetricRows(snap)); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("write metric snapshots %s: %w", res.ExperimentID, err)
			}
		}
	}
	return nil
}

// scoreRows computes one normalized score per metrics row, using the
// same-OS rows as the cohort, then aggregates to one score per variant
// by averaging across platforms.
func (o *Orchestrator) scoreRows(metrics []domain.SimulatedMetrics, vert string) ([]RowScore, map[string]float64) {
	w := o.corpus.MetricWeightsFor(vert)

	byOS := make(map[string][]domain.SimulatedMetrics)
	for _, m := range metrics {
		byOS[m.OS] = append(byOS[m.OS], m)
	}

	rows := make([]RowScore, 0, len(metrics))
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, m := range metrics {
		s := scoring.VariantScore(m, byOS[m.OS], w)
		rows = append(rows, RowScore{VariantID: m.VariantID, OS: m.OS, Score: s})
		sums[m.VariantID] += s
		counts[m.VariantID]++
	}

	agg := make(map[string]float64, len(sums))
	for vid, sum := range sums {
		agg[vid] = sum / float64(counts[vid])
	}
	return rows, agg
}

func (o *Orchestrator) stabilityPenalty(v gate.ValidateResult) float64 {
	if v.ValidateStatus == gate.StatusFail {
		return stabilityPenalty
	}
	return 0
}

// whyNowPenalty applies the full configured penalty when the card's
// why-now trigger is on the strong-stimulus list, and half of it when
// the validate risk notes point at why-now inflation instead.
func (o *Orchestrator) whyNowPenalty(card domain.StructureCard, vert string, v gate.ValidateResult) float64 {
	rr := o.corpus.RiskRulesFor(vert)
	for _, t := range rr.WhyNowStrongTriggers {
		if t == card.WhyNowTrigger {
			return rr.WhyNowStrongStimulusPenalty
		}
	}
	for _, note := range v.RiskNotes {
		low := strings.ToLower(note)
		if strings.Contains(low, "why-now") || strings.Contains(low, "why now") ||
			strings.Contains(low, "strong stimulus") || strings.Contains(low, "over-hyped") {
			return rr.WhyNowStrongStimulusPenalty * 0.5
		}
	}
	return 0
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}

// simulateWindows derives the validate-phase time windows from the
// baseline row: a first test window near the baseline, a cross-day
// retest drifting off it, and a light audience expansion that usually
// runs a bit worse. Deterministic per card.
func simulateWindows(cardID string, baseline domain.SimulatedMetrics) ([]domain.WindowMetrics, domain.WindowMetrics) {
	rng := seededRand("windows_" + cardID)

	w1IPM := baseline.IPM * uniform(rng, 0.95, 1.05)
	w1CPI := baseline.CPI * uniform(rng, 0.98, 1.04)
	w1ROAS := baseline.EarlyROAS * uniform(rng, 0.9, 1.1)
	w2IPM := w1IPM * uniform(rng, 0.85, 1.05)
	w2CPI := w1CPI * uniform(rng, 0.95, 1.15)
	w2ROAS := w1ROAS * uniform(rng, 0.85, 1.15)

	const imp1, imp2 = 50000, 52000
	windows := []domain.WindowMetrics{
		{
			WindowID: "window_1", Impressions: imp1, Clicks: 800,
			Installs: installsFor(imp1, w1IPM, 100), Spend: 6000,
			EarlyEvents: 1200, EarlyRevenue: 480,
			IPM: round2(w1IPM), CPI: round2(w1CPI), EarlyROAS: round4(w1ROAS),
		},
		{
			WindowID: "window_2", Impressions: imp2, Clicks: 840,
			Installs: installsFor(imp2, w2IPM, 100), Spend: 6240,
			EarlyEvents: 1250, EarlyRevenue: 500,
			IPM: round2(w2IPM), CPI: round2(w2CPI), EarlyROAS: round4(w2ROAS),
		},
	}

	expIPM := w2IPM * uniform(rng, 0.80, 0.95)
	expCPI := w2CPI * uniform(rng, 1.0, 1.2)
	expROAS := w2ROAS * uniform(rng, 0.8, 1.05)
	light := domain.WindowMetrics{
		WindowID: "expand_segment", Impressions: 20000, Clicks: 320,
		Installs: installsFor(20000, expIPM, 50), Spend: 2400,
		EarlyEvents: 400, EarlyRevenue: 160,
		IPM: round2(expIPM), CPI: round2(expCPI), EarlyROAS: round4(expROAS),
	}
	return windows, light
}

func installsFor(impressions int, ipm float64, floor int) int {
	n := int(float64(impressions) * ipm / 1000.0)
	if n < floor {
		return floor
	}
	return n
}

// mergeEligible unions the per-OS eligible lists preserving first-seen
// order.
func mergeEligible(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, id := range append(append([]string{}, a...), b...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func defaultBucket(vert string) string {
	if vert == "ecommerce" {
		return "deal_discount"
	}
	return "achievement"
}

func head(pool []string, n int) []string {
	if len(pool) > n {
		return pool[:n]
	}
	return pool
}

func seededRand(seed string) *rand.Rand {
	h := sha256.Sum256([]byte(seed))
	n := binary.BigEndian.Uint64(h[:8]) % (1 << 32)
	return rand.New(rand.NewSource(int64(n)))
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
