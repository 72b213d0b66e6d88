package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MyraWang0406/MatrixMirix04/internal/corpus"
	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
	"github.com/MyraWang0406/MatrixMirix04/internal/gate"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage"
	"github.com/MyraWang0406/MatrixMirix04/internal/storage/memory"
	"github.com/MyraWang0406/MatrixMirix04/internal/summary"
)

func testCard() domain.StructureCard {
	return domain.StructureCard{
		CardID:           "sc_001",
		Version:          "1.0",
		Vertical:         "casual_game",
		Country:          "US",
		OS:               "all",
		Objective:        "install",
		Segment:          "casual mobile gamers 18-30",
		Channel:          "Meta",
		MotivationBucket: "achievement",
		WhyYouKey:        "season_reward",
		WhyYouLabel:      "season rewards are easy to earn",
		WhyNowTrigger:    "new_season",
	}
}

func testOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	if opts.Corpus == nil {
		opts.Corpus = corpus.Default()
	}
	o, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o.WithClock(func() time.Time { return time.Unix(1704067200, 0).UTC() })
}

func TestNewRequiresCorpus(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without corpus")
	}
}

func TestRunCardInvalidCard(t *testing.T) {
	o := testOrchestrator(t, Options{})

	_, err := o.RunCard(context.Background(), domain.StructureCard{CardID: "sc_bad"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "sc_bad") {
		t.Errorf("error should name the card: %v", err)
	}
}

func TestRunCardFullPipeline(t *testing.T) {
	o := testOrchestrator(t, Options{})

	res, err := o.RunCard(context.Background(), testCard())
	if err != nil {
		t.Fatalf("RunCard: %v", err)
	}

	if res.RunID == "" {
		t.Error("missing run id")
	}
	if !strings.HasPrefix(res.ExperimentID, "exp_") {
		t.Errorf("experiment id = %s", res.ExperimentID)
	}

	if len(res.Variants) != 12 {
		t.Fatalf("variants = %d, want 12", len(res.Variants))
	}
	if !res.Variants[0].IsBaseline() {
		t.Error("first variant should be the baseline")
	}

	// Every variant runs on both platforms.
	if len(res.Metrics) != 24 {
		t.Errorf("metric rows = %d, want 24", len(res.Metrics))
	}
	baselines := 0
	for _, m := range res.Metrics {
		if m.Baseline {
			baselines++
		}
	}
	if baselines != 2 {
		t.Errorf("baseline rows = %d, want 2", baselines)
	}

	if res.ExploreIOS.Context.OS != "iOS" || res.ExploreAndroid.Context.OS != "Android" {
		t.Errorf("explore contexts = %s/%s", res.ExploreIOS.Context.OS, res.ExploreAndroid.Context.OS)
	}
	if res.ExploreIOS.GateStatus == "" || res.Validate.ValidateStatus == "" {
		t.Error("gate statuses missing")
	}

	if len(res.Windows) != 2 {
		t.Fatalf("windows = %d, want 2", len(res.Windows))
	}
	if res.Windows[0].WindowID != "window_1" || res.LightExpansion.WindowID != "expand_segment" {
		t.Errorf("window ids = %s/%s", res.Windows[0].WindowID, res.LightExpansion.WindowID)
	}

	if len(res.RowScores) != len(res.Metrics) {
		t.Errorf("row scores = %d, want %d", len(res.RowScores), len(res.Metrics))
	}
	if len(res.VariantScores) != len(res.Variants) {
		t.Errorf("variant scores = %d, want %d", len(res.VariantScores), len(res.Variants))
	}
	for vid, s := range res.VariantScores {
		if s < 0 || s > 100 {
			t.Errorf("score out of range for %s: %f", vid, s)
		}
	}

	if res.Diagnosis.DecisionState == "" {
		t.Error("missing diagnosis state")
	}
	switch res.Decision.Status {
	case summary.StatusGreen, summary.StatusYellow, summary.StatusRed:
	default:
		t.Errorf("decision status = %s", res.Decision.Status)
	}
	if len(res.Elements) == 0 {
		t.Error("no element scores")
	}
}

func TestRunCardDeterministic(t *testing.T) {
	o := testOrchestrator(t, Options{})

	a, err := o.RunCard(context.Background(), testCard())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := o.RunCard(context.Background(), testCard())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if a.ExperimentID != b.ExperimentID {
		t.Errorf("experiment ids differ: %s vs %s", a.ExperimentID, b.ExperimentID)
	}
	if a.RunID == b.RunID {
		t.Error("run ids should be unique per run")
	}
	if len(a.Metrics) != len(b.Metrics) {
		t.Fatalf("metric counts differ")
	}
	for i := range a.Metrics {
		if a.Metrics[i] != b.Metrics[i] {
			t.Fatalf("metrics differ at row %d", i)
		}
	}
	if a.CardScore.CardScore != b.CardScore.CardScore {
		t.Errorf("card scores differ: %f vs %f", a.CardScore.CardScore, b.CardScore.CardScore)
	}
	if a.Decision.Status != b.Decision.Status {
		t.Errorf("decision differs: %s vs %s", a.Decision.Status, b.Decision.Status)
	}
}

func TestRunCardPersists(t *testing.T) {
	ctx := context.Background()
	knowledge := memory.NewKnowledgeStore()
	metricsStore := memory.NewMetricSnapshotStore()
	o := testOrchestrator(t, Options{Knowledge: knowledge, MetricsStore: metricsStore})

	res, err := o.RunCard(ctx, testCard())
	if err != nil {
		t.Fatalf("RunCard: %v", err)
	}

	report, err := knowledge.QueryReview(ctx, storage.ReviewFilter{})
	if err != nil {
		t.Fatalf("QueryReview: %v", err)
	}
	if report.TotalExperiments != 1 {
		t.Errorf("stored experiments = %d, want 1", report.TotalExperiments)
	}

	rows, err := metricsStore.GetByExperimentID(ctx, res.ExperimentID)
	if err != nil {
		t.Fatalf("GetByExperimentID: %v", err)
	}
	if len(rows) != len(res.Metrics) {
		t.Errorf("stored metric rows = %d, want %d", len(rows), len(res.Metrics))
	}

	// Re-running the same card hashes to the same experiment; the
	// duplicate write is tolerated.
	if _, err := o.RunCard(ctx, testCard()); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	report, err = knowledge.QueryReview(ctx, storage.ReviewFilter{})
	if err != nil {
		t.Fatalf("QueryReview after rerun: %v", err)
	}
	if report.TotalExperiments != 1 {
		t.Errorf("experiments after rerun = %d, want 1", report.TotalExperiments)
	}
}

func TestRunCardWhyNowStrongTriggerPenalty(t *testing.T) {
	cfg := corpus.Default()
	rr := cfg.RiskRules["casual_game"]
	if rr.WhyNowStrongStimulusPenalty <= 0 {
		rr.WhyNowStrongStimulusPenalty = 8.0
	}
	rr.WhyNowStrongTriggers = append(rr.WhyNowStrongTriggers, "new_season")
	cfg.RiskRules["casual_game"] = rr

	o := testOrchestrator(t, Options{Corpus: cfg})

	res, err := o.RunCard(context.Background(), testCard())
	if err != nil {
		t.Fatalf("RunCard: %v", err)
	}
	want := cfg.RiskRules["casual_game"].WhyNowStrongStimulusPenalty
	if res.CardScore.PenaltyBreakdown.WhyNowPenalty != want {
		t.Errorf("why-now penalty = %f, want %f",
			res.CardScore.PenaltyBreakdown.WhyNowPenalty, want)
	}
}

func TestRunCardVariantsPerCardFloor(t *testing.T) {
	o := testOrchestrator(t, Options{VariantsPerCard: 3})

	res, err := o.RunCard(context.Background(), testCard())
	if err != nil {
		t.Fatalf("RunCard: %v", err)
	}
	if len(res.Variants) != 3 {
		t.Errorf("variants = %d, want 3", len(res.Variants))
	}
	// 1 baseline + 2 test variants, both platforms each.
	if len(res.Metrics) != 6 {
		t.Errorf("metric rows = %d, want 6", len(res.Metrics))
	}
}

func TestRunCardCustomExploreConfig(t *testing.T) {
	// An absurd spend floor forces every variant INSUFFICIENT.
	ec := gate.DefaultExploreConfig()
	ec.MinSpend = 1e9

	o := testOrchestrator(t, Options{ExploreConfig: &ec})

	res, err := o.RunCard(context.Background(), testCard())
	if err != nil {
		t.Fatalf("RunCard: %v", err)
	}
	if res.ExploreIOS.GateStatus != gate.StatusInsufficient {
		t.Errorf("gate status = %s, want INSUFFICIENT", res.ExploreIOS.GateStatus)
	}
	if len(res.ExploreIOS.EligibleVariants) != 0 {
		t.Errorf("eligible = %v, want none", res.ExploreIOS.EligibleVariants)
	}
}

func TestSimulateWindowsDeterministic(t *testing.T) {
	base := domain.SimulatedMetrics{VariantID: "v000", OS: "iOS", Baseline: true, IPM: 40, CPI: 3, EarlyROAS: 0.08}

	w1, l1 := simulateWindows("sc_001", base)
	w2, l2 := simulateWindows("sc_001", base)

	for i := range w1 {
		if w1[i] != w2[i] {
			t.Fatalf("window %d differs", i)
		}
	}
	if l1 != l2 {
		t.Error("light expansion differs")
	}

	w3, _ := simulateWindows("sc_002", base)
	if w1[0].IPM == w3[0].IPM && w1[1].IPM == w3[1].IPM {
		t.Error("different cards should draw different windows")
	}
}

func TestMergeEligible(t *testing.T) {
	got := mergeEligible([]string{"v001", "v002"}, []string{"v002", "v003"})
	want := []string{"v001", "v002", "v003"}
	if len(got) != len(want) {
		t.Fatalf("merged = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("merged[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
