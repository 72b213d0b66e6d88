// Package simulate produces deterministic delivery metrics per
// (variant, os) pair. No external API is called; all values come from a
// PRNG seeded by identity so repeated runs are bit-identical.
package simulate

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/MyraWang0406/MatrixMirix04/internal/corpus"
	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
)

// Typical delivery ranges for short-video install campaigns.
const (
	ctrLow, ctrHigh           = 0.005, 0.025
	ipmLow, ipmHigh           = 8, 45
	cpiIOSLow, cpiIOSHigh     = 2.5, 8.0
	cpiAndLow, cpiAndHigh     = 1.2, 4.5
	eventsPerInstallLow       = 0.25
	eventsPerInstallHigh      = 0.65
	earlyROASLow, earlyROASHi = 0.0, 0.25
	impressionsBase           = 50_000
	impressionsVariance       = 0.4
)

// Options bias the simulation for one metrics row.
type Options struct {
	// Baseline rows get materially smaller noise and slightly higher
	// impressions, acting as the mature historical reference.
	Baseline bool

	// MotivationBucket is free text; it is classified onto the fixed
	// bucket categories before the factor table is applied.
	MotivationBucket string

	Vertical string
}

// Simulate produces one metrics row for a variant on one OS. Output is
// a pure function of (variant_id, os, baseline): the PRNG is seeded
// from a hash of that key, and the quality/sell-point multipliers are
// themselves hash-derived. iOS noise is larger than Android across all
// metrics.
func Simulate(v domain.Variant, os string, opts Options) domain.SimulatedMetrics {
	rng := seededRand(fmt.Sprintf("%s_%s_baseline=%t", v.VariantID, os, opts.Baseline))

	quality := variantQuality(v.VariantID) * sellPointFactor(v.SellPoint)
	ctrIPMFactor, cpiFactor, roasFactor := bucketFactors(opts.MotivationBucket, opts.Vertical)

	// Impressions: baselines run slightly higher and steadier.
	impBase := float64(impressionsBase)
	if opts.Baseline {
		impBase *= 1.1
	}
	impNoise := impressionsVariance
	if opts.Baseline {
		impNoise *= 0.5
	}
	if os == domain.OSiOS {
		impNoise *= 1.3
	} else {
		impNoise *= 0.9
	}
	impressions := int(addNoise(impBase*quality, impNoise, rng))
	impressions = clampInt(impressions, 5_000, 200_000)

	// CTR.
	ctrBase := (uniform(rng, ctrLow, ctrHigh) + (ctrLow+ctrHigh)/2) / 2 * quality * ctrIPMFactor
	ctr := addNoise(ctrBase, pickNoise(opts.Baseline, os, 0.15, 0.25, 0.18), rng)
	ctr = clampFloat(ctr, 0.003, 0.04)

	clicks := int(float64(impressions) * ctr)
	if clicks < 1 {
		clicks = 1
	}

	// IPM.
	ipmBase := uniform(rng, ipmLow, ipmHigh) * quality * ctrIPMFactor
	ipm := addNoise(ipmBase, pickNoise(opts.Baseline, os, 0.12, 0.22, 0.15), rng)
	ipm = clampFloat(ipm, 3, 80)

	installs := int(float64(impressions) * ipm / 1000)
	if installs < 1 {
		installs = 1
	}

	// CPI: iOS runs higher.
	cpiLow, cpiHigh := cpiAndLow, cpiAndHigh
	if os == domain.OSiOS {
		cpiLow, cpiHigh = cpiIOSLow, cpiIOSHigh
	}
	cpiBase := uniform(rng, cpiLow, cpiHigh) / quality * cpiFactor
	cpi := addNoise(cpiBase, pickNoise(opts.Baseline, os, 0.1, 0.2, 0.12), rng)
	cpi = clampFloat(cpi, 0.8, 12)

	spend := round2(float64(installs) * cpi)
	if spend < 10 {
		spend = 10
	}

	earlyEvents := int(float64(installs) * uniform(rng, eventsPerInstallLow, eventsPerInstallHigh))
	if earlyEvents < 0 {
		earlyEvents = 0
	}

	// Early revenue: iOS ROAS is the least stable signal.
	roasBase := uniform(rng, earlyROASLow, earlyROASHi) * roasFactor
	earlyROAS := addNoise(roasBase, pickNoise(opts.Baseline, os, 0.3, 0.6, 0.4), rng)
	earlyROAS = clampFloat(earlyROAS, 0, 0.5)
	earlyRevenue := round2(spend * earlyROAS)

	// Dead variant: revenue collapses to exactly zero. Reproducible
	// under the same seed; baselines are exempt.
	if rng.Float64() < 0.15 && !opts.Baseline {
		earlyRevenue = 0
		earlyROAS = 0
	}

	// Derived metrics are recomputed from the final raw values so the
	// row stays internally consistent after noise.
	m := domain.SimulatedMetrics{
		VariantID:    v.VariantID,
		OS:           os,
		Baseline:     opts.Baseline,
		Impressions:  impressions,
		Clicks:       clicks,
		Installs:     installs,
		Spend:        spend,
		EarlyEvents:  earlyEvents,
		EarlyRevenue: earlyRevenue,
		CTR:          roundN(float64(clicks)/float64(impressions), 6),
		IPM:          round2(float64(installs) / float64(impressions) * 1000),
		CPI:          round2(spend / float64(installs)),
	}
	if spend > 0 {
		m.EarlyROAS = roundN(earlyRevenue/spend, 4)
	}

	if domain.NormalizeVertical(opts.Vertical) == domain.VerticalEcommerce {
		baseRefund := 0.08 + uniform(rng, 0, 0.12)
		m.RefundRisk = roundN(clampFloat(baseRefund-m.EarlyROAS*0.5+(1-quality)*0.1, 0, 1), 3)
		m.ConversionProxy = roundN(m.CTR*2.5*(0.8+uniform(rng, 0, 0.4)), 4)
		m.OrderProxy = roundN(m.EarlyROAS*3.0*(0.7+uniform(rng, 0, 0.5)), 4)
	}

	return m
}

// seededRand builds a deterministic PRNG from a string key.
func seededRand(seed string) *rand.Rand {
	h := sha256.Sum256([]byte(seed))
	n := binary.BigEndian.Uint64(h[:8]) % (1 << 32)
	return rand.New(rand.NewSource(int64(n)))
}

// variantQuality derives a 0.85-1.15 quality multiplier from the
// variant ID hash.
func variantQuality(variantID string) float64 {
	return 0.85 + hashFraction("quality_"+variantID)*0.3
}

// sellPointFactor derives a 0.90-1.10 multiplier from the sell-point
// text hash. Empty sell points are neutral.
func sellPointFactor(sellPoint string) float64 {
	if sellPoint == "" {
		return 1.0
	}
	return 0.90 + hashFraction("sell_point_"+sellPoint)*0.20
}

func hashFraction(s string) float64 {
	h := sha256.Sum256([]byte(s))
	v := binary.BigEndian.Uint32(h[:4])
	return float64(v) / float64(math.MaxUint32+1)
}

// bucketFactors biases CTR/IPM, CPI and early ROAS per motivation
// bucket, with small vertical adjustments. All factors stay near 1.
func bucketFactors(motivationBucket, vertical string) (ctrIPM, cpi, roas float64) {
	ctrIPM, cpi, roas = 1.0, 1.0, 1.0
	bucket := corpus.ClassifyBucket(motivationBucket)
	v := domain.NormalizeVertical(vertical)

	switch bucket {
	case corpus.BucketValue:
		ctrIPM, cpi, roas = 1.12, 0.95, 0.92
	case corpus.BucketExperience:
		ctrIPM, cpi, roas = 0.96, 1.05, 1.15
	case corpus.BucketSocial:
		ctrIPM, roas = 1.05, 1.08
	case corpus.BucketAchievement, corpus.BucketThrill:
		ctrIPM, roas = 1.08, 1.02
	case corpus.BucketCollection:
		ctrIPM, roas = 1.03, 0.98
	}

	if v == domain.VerticalEcommerce && bucket == corpus.BucketValue {
		ctrIPM *= 1.05
		roas *= 0.95
	} else if v == domain.VerticalCasualGame && (bucket == corpus.BucketAchievement || bucket == corpus.BucketThrill) {
		ctrIPM *= 1.03
		roas *= 1.02
	}
	return ctrIPM, cpi, roas
}

// addNoise perturbs value by ±noisePct, floored at half the pre-noise
// value so a row can never collapse below 50% from noise alone.
func addNoise(value, noisePct float64, rng *rand.Rand) float64 {
	delta := value * noisePct * (2*rng.Float64() - 1)
	return math.Max(value*0.5, value+delta)
}

// pickNoise selects the noise percentage: baselines get the smallest,
// iOS the largest.
func pickNoise(baseline bool, os string, baselinePct, iosPct, androidPct float64) float64 {
	if baseline {
		return baselinePct
	}
	if os == domain.OSiOS {
		return iosPct
	}
	return androidPct
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round2(v float64) float64 { return roundN(v, 2) }

func roundN(v float64, digits int) float64 {
	p := math.Pow10(digits)
	return math.Round(v*p) / p
}
