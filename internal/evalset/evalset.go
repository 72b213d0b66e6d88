// Package evalset builds the stratified evaluation set: a portable,
// noise-resistant collection of structure cards that stays comparable
// across countries, segments and channels. Each stratum gets at least
// one card and a designated baseline.
package evalset

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"strings"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
	"github.com/MyraWang0406/MatrixMirix04/internal/idhash"
)

// Weighted pairs a candidate value with its draw weight. Slices keep
// the draw order stable across runs, which map iteration would not.
type Weighted struct {
	Value  string
	Weight float64
}

// Fallback fills a stratum dimension when sampling cannot resolve one.
type Fallback struct {
	Country          string
	Segment          string
	MotivationBucket string
}

// Config controls the stratification grid.
type Config struct {
	Verticals []Weighted
	Channels  []Weighted
	Countries []string
	OS        []Weighted
	Segments  []Weighted

	// Motivation bucket candidates per vertical.
	Buckets map[string][]string

	Fallback Fallback
	Seed     string
}

// DefaultConfig mirrors the shipped evaluation-set ratios: ecommerce
// heavy, Meta-led channel mix, six launch countries.
func DefaultConfig() Config {
	return Config{
		Verticals: []Weighted{
			{Value: domain.VerticalEcommerce, Weight: 0.7},
			{Value: domain.VerticalCasualGame, Weight: 0.3},
		},
		Channels: []Weighted{
			{Value: "Meta", Weight: 0.45},
			{Value: "TikTok", Weight: 0.35},
			{Value: "Google", Weight: 0.2},
		},
		Countries: []string{"US", "JP", "KR", "TH", "VN", "BR"},
		OS: []Weighted{
			{Value: domain.OSAndroid, Weight: 0.6},
			{Value: domain.OSiOS, Weight: 0.4},
		},
		Segments: []Weighted{
			{Value: "new", Weight: 0.6},
			{Value: "returning", Weight: 0.25},
			{Value: "retargeting", Weight: 0.15},
		},
		Buckets: map[string][]string{
			domain.VerticalEcommerce:  {"deal_discount", "compare", "gift", "pain_relief", "social_proof"},
			domain.VerticalCasualGame: {"boredom", "competition", "collection", "reward"},
		},
		Fallback: Fallback{
			Country:          "US",
			Segment:          "new",
			MotivationBucket: "deal_discount",
		},
		Seed: "evalset",
	}
}

// Set is the sampled evaluation set.
type Set struct {
	Cards             []domain.StructureCard
	BaselineByStratum map[string]domain.StructureCard
	StratumKeys       []string
}

type stratum struct {
	vertical string
	channel  string
	country  string
	segment  string
	os       string
	bucket   string
}

func (s stratum) key() string {
	return strings.Join([]string{s.vertical, s.channel, s.country, s.segment, s.os, s.bucket}, "|")
}

// StratumKey builds the key an existing card files under when matched
// against the sampling grid. Missing dimensions fall back the same way
// sampling does.
func StratumKey(c domain.StructureCard, fb Fallback) string {
	s := stratum{
		vertical: c.Vertical,
		channel:  orDefault(c.Channel, "Meta"),
		country:  orDefault(c.Country, fb.Country),
		segment:  orDefault(c.Segment, fb.Segment),
		os:       orDefault(c.OS, domain.OSAll),
		bucket:   orDefault(c.MotivationBucket, fb.MotivationBucket),
	}
	return s.key()
}

// Sample draws n cards across the stratification grid. Every stratum
// receives at least one card even when that pushes the total past n.
// Cards from pool are preferred within their stratum; synthetic cards
// fill the remainder. The same seed always produces the same set.
func Sample(n int, cfg Config, pool []domain.StructureCard) Set {
	rng := seededRand(cfg.Seed)

	var strata []stratum
	for _, v := range cfg.Verticals {
		for _, ch := range cfg.Channels {
			for _, country := range cfg.Countries {
				buckets := cfg.Buckets[v.Value]
				st := stratum{
					vertical: v.Value,
					channel:  ch.Value,
					country:  country,
					segment:  weightedChoice(rng, cfg.Segments, cfg.Fallback.Segment),
					os:       weightedChoice(rng, cfg.OS, domain.OSAndroid),
					bucket:   choice(rng, buckets, cfg.Fallback.MotivationBucket),
				}
				strata = append(strata, st)
			}
		}
	}
	if len(strata) == 0 {
		return Set{BaselineByStratum: map[string]domain.StructureCard{}}
	}
	if n < len(strata) {
		n = len(strata)
	}

	// Base quota of one per stratum, remainder spread front to back.
	remainder := n - len(strata)
	extraPer := remainder / len(strata)
	extraRem := remainder % len(strata)
	quota := make(map[string]int, len(strata))
	keys := make([]string, 0, len(strata))
	for i, st := range strata {
		q := 1 + extraPer
		if i < extraRem {
			q++
		}
		quota[st.key()] = q
		keys = append(keys, st.key())
	}

	poolByKey := make(map[string][]domain.StructureCard)
	for _, c := range pool {
		k := StratumKey(c, cfg.Fallback)
		poolByKey[k] = append(poolByKey[k], c)
	}

	set := Set{
		BaselineByStratum: make(map[string]domain.StructureCard, len(strata)),
		StratumKeys:       keys,
	}
	used := make(map[string]bool)
	synthN := 0

	for _, st := range strata {
		k := st.key()
		for i := 0; i < quota[k]; i++ {
			card, ok := pickUnused(rng, poolByKey[k], used)
			if !ok {
				synthN++
				card = synthCard(st, synthN, rng)
			}
			used[card.CardID] = true
			set.Cards = append(set.Cards, card)
			if _, seen := set.BaselineByStratum[k]; !seen {
				set.BaselineByStratum[k] = card
			}
		}
	}
	return set
}

func synthCard(st stratum, n int, rng *rand.Rand) domain.StructureCard {
	objective := "install"
	if st.vertical == domain.VerticalEcommerce {
		objective = "purchase"
	}
	whyNow := []string{"limited_time", "calendar_event", "opportunity", "other"}
	whyYou := []string{"save_money", "save_effort", "better_experience", "other"}
	return domain.StructureCard{
		CardID:           idhash.ComputeCardID(st.vertical, st.channel, st.country, st.segment, st.os, st.bucket, n),
		Version:          "1.0",
		Vertical:         st.vertical,
		Country:          st.country,
		OS:               st.os,
		Objective:        objective,
		Segment:          st.segment,
		Channel:          st.channel,
		MotivationBucket: st.bucket,
		WhyYouKey:        whyYou[rng.Intn(len(whyYou))],
		WhyNowTrigger:    whyNow[rng.Intn(len(whyNow))],
	}
}

func pickUnused(rng *rand.Rand, pool []domain.StructureCard, used map[string]bool) (domain.StructureCard, bool) {
	var cand []domain.StructureCard
	for _, c := range pool {
		if !used[c.CardID] {
			cand = append(cand, c)
		}
	}
	if len(cand) == 0 {
		return domain.StructureCard{}, false
	}
	return cand[rng.Intn(len(cand))], true
}

func weightedChoice(rng *rand.Rand, options []Weighted, fallback string) string {
	total := 0.0
	for _, o := range options {
		if o.Weight > 0 {
			total += o.Weight
		}
	}
	if total <= 0 {
		return fallback
	}
	x := rng.Float64() * total
	for _, o := range options {
		if o.Weight <= 0 {
			continue
		}
		x -= o.Weight
		if x < 0 {
			return o.Value
		}
	}
	return options[len(options)-1].Value
}

func choice(rng *rand.Rand, options []string, fallback string) string {
	if len(options) == 0 {
		return fallback
	}
	return options[rng.Intn(len(options))]
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func seededRand(seed string) *rand.Rand {
	h := sha256.Sum256([]byte(seed))
	n := binary.BigEndian.Uint64(h[:8]) % (1 << 32)
	return rand.New(rand.NewSource(int64(n)))
}
