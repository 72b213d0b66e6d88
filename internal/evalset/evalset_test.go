package evalset

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
)

func TestSampleDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	a := Sample(80, cfg, nil)
	b := Sample(80, cfg, nil)

	if len(a.Cards) != len(b.Cards) {
		t.Fatalf("card counts differ: %d vs %d", len(a.Cards), len(b.Cards))
	}
	for i := range a.Cards {
		if a.Cards[i].CardID != b.Cards[i].CardID {
			t.Fatalf("card %d differs: %s vs %s", i, a.Cards[i].CardID, b.Cards[i].CardID)
		}
	}
	if len(a.StratumKeys) != len(b.StratumKeys) {
		t.Fatalf("stratum key counts differ")
	}
}

func TestSampleEveryStratumCovered(t *testing.T) {
	cfg := DefaultConfig()
	set := Sample(80, cfg, nil)

	// 2 verticals x 3 channels x 6 countries.
	if len(set.StratumKeys) != 36 {
		t.Fatalf("strata = %d, want 36", len(set.StratumKeys))
	}
	for _, k := range set.StratumKeys {
		if _, ok := set.BaselineByStratum[k]; !ok {
			t.Errorf("stratum %s has no baseline", k)
		}
	}
	if len(set.Cards) != 80 {
		t.Errorf("cards = %d, want 80", len(set.Cards))
	}
}

func TestSampleFloorsAtStratumCount(t *testing.T) {
	set := Sample(5, DefaultConfig(), nil)
	if len(set.Cards) != 36 {
		t.Errorf("cards = %d, want one per stratum (36)", len(set.Cards))
	}
}

func TestSampleSynthCardFields(t *testing.T) {
	set := Sample(0, DefaultConfig(), nil)
	for _, c := range set.Cards {
		if errs := domain.ValidateCard(c); len(errs) != 0 {
			t.Fatalf("card %s invalid: %v", c.CardID, errs)
		}
		switch c.Vertical {
		case domain.VerticalEcommerce:
			if c.Objective != "purchase" {
				t.Errorf("ecommerce card %s objective = %s", c.CardID, c.Objective)
			}
		case domain.VerticalCasualGame:
			if c.Objective != "install" {
				t.Errorf("game card %s objective = %s", c.CardID, c.Objective)
			}
		}
		if !strings.HasPrefix(c.CardID, "card_") {
			t.Errorf("card id %q lacks card_ prefix", c.CardID)
		}
	}
}

func TestSamplePrefersPoolCards(t *testing.T) {
	cfg := DefaultConfig()
	// Place one library card into a real stratum of the sampled grid.
	probe := Sample(0, cfg, nil)
	stratumCard := probe.Cards[0]
	lib := domain.StructureCard{
		CardID:           "lib_001",
		Version:          "2.0",
		Vertical:         stratumCard.Vertical,
		Country:          stratumCard.Country,
		OS:               stratumCard.OS,
		Objective:        stratumCard.Objective,
		Segment:          stratumCard.Segment,
		Channel:          stratumCard.Channel,
		MotivationBucket: stratumCard.MotivationBucket,
		WhyYouKey:        "save_money",
		WhyNowTrigger:    "limited_time",
	}

	set := Sample(0, cfg, []domain.StructureCard{lib})
	found := false
	for _, c := range set.Cards {
		if c.CardID == "lib_001" {
			found = true
		}
	}
	if !found {
		t.Error("library card matching a stratum was not selected")
	}
}

func TestStratumKeyFallbacks(t *testing.T) {
	fb := DefaultConfig().Fallback
	c := domain.StructureCard{Vertical: domain.VerticalEcommerce}
	got := StratumKey(c, fb)
	want := "ecommerce|Meta|US|new|all|deal_discount"
	if got != want {
		t.Errorf("key = %q, want %q", got, want)
	}
}

func TestRunnerVisitsEveryCard(t *testing.T) {
	set := Sample(0, DefaultConfig(), nil)
	var n int64
	err := Runner{Concurrency: 8}.Run(context.Background(), set.Cards, func(ctx context.Context, i int, card domain.StructureCard) error {
		atomic.AddInt64(&n, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := atomic.LoadInt64(&n); got != int64(len(set.Cards)) {
		t.Errorf("visited %d cards, want %d", got, len(set.Cards))
	}
}

func TestRunnerIndexedResults(t *testing.T) {
	cards := Sample(0, DefaultConfig(), nil).Cards
	results := make([]string, len(cards))
	err := Runner{Concurrency: 4}.Run(context.Background(), cards, func(ctx context.Context, i int, card domain.StructureCard) error {
		results[i] = card.CardID
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, c := range cards {
		if results[i] != c.CardID {
			t.Fatalf("result %d = %q, want %q", i, results[i], c.CardID)
		}
	}
}

func TestRunnerPropagatesError(t *testing.T) {
	cards := Sample(0, DefaultConfig(), nil).Cards
	boom := errors.New("pipeline failed")
	err := Runner{Concurrency: 2}.Run(context.Background(), cards, func(ctx context.Context, i int, card domain.StructureCard) error {
		if i == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
