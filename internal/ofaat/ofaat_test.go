package ofaat

import (
	"testing"

	"github.com/MyraWang0406/MatrixMirix04/internal/domain"
)

func testPools() Pools {
	return Pools{
		HookTypes:  []string{"problem_hook", "curiosity_hook", "social_proof_hook"},
		SellPoints: []string{"save money", "free shipping"},
		CTAs:       []string{"download_now", "shop_today"},
		AssetPool: map[string][]string{
			"bgm":    {"lo-fi chill", "upbeat pop"},
			"rhythm": {"fast cuts"},
		},
	}
}

func TestGenerateBaselineFirst(t *testing.T) {
	vs := Generate("card_x", testPools(), 8)
	if len(vs) == 0 {
		t.Fatal("no variants generated")
	}

	b := vs[0]
	if !b.IsBaseline() {
		t.Errorf("first variant must be baseline, got changed_field %q", b.ChangedField)
	}
	if b.VariantID != "v001" {
		t.Errorf("baseline id = %q, want v001", b.VariantID)
	}
	if b.HookType != "problem_hook" || b.SellPoint != "save money" || b.CTAType != "download_now" {
		t.Errorf("baseline not built from pool heads: %+v", b)
	}
	if b.AssetVariables.BGM != "lo-fi chill" {
		t.Errorf("baseline bgm = %q, want pool head", b.AssetVariables.BGM)
	}
	if b.AssetVariables.Rhythm != "fast cuts" {
		t.Errorf("baseline rhythm = %q, want pool head", b.AssetVariables.Rhythm)
	}
}

func TestGenerateOneChangePerVariant(t *testing.T) {
	vs := Generate("card_x", testPools(), 8)
	base := vs[0]

	for _, v := range vs[1:] {
		changed := 0
		if v.HookType != base.HookType {
			changed++
			if v.ChangedField != domain.FieldHookType {
				t.Errorf("%s: hook changed but changed_field = %q", v.VariantID, v.ChangedField)
			}
		}
		if v.SellPoint != base.SellPoint {
			changed++
			if v.ChangedField != domain.FieldSellPoint {
				t.Errorf("%s: sell point changed but changed_field = %q", v.VariantID, v.ChangedField)
			}
		}
		if v.CTAType != base.CTAType {
			changed++
			if v.ChangedField != domain.FieldCTA {
				t.Errorf("%s: cta changed but changed_field = %q", v.VariantID, v.ChangedField)
			}
		}
		if v.AssetVariables != base.AssetVariables {
			changed++
			if v.ChangedField != domain.FieldAssetVar {
				t.Errorf("%s: asset changed but changed_field = %q", v.VariantID, v.ChangedField)
			}
		}
		if changed != 1 {
			t.Errorf("%s: %d fields changed, want exactly 1", v.VariantID, changed)
		}
		if v.DeltaDesc == "" {
			t.Errorf("%s: missing delta description", v.VariantID)
		}
	}
}

func TestGenerateRotationOrder(t *testing.T) {
	vs := Generate("card_x", testPools(), 8)

	want := []string{
		"", // baseline
		domain.FieldHookType,
		domain.FieldHookType,
		domain.FieldSellPoint,
		domain.FieldCTA,
		domain.FieldAssetVar,
	}
	if len(vs) != len(want) {
		t.Fatalf("got %d variants, want %d (pools exhausted)", len(vs), len(want))
	}
	for i, v := range vs {
		if v.ChangedField != want[i] {
			t.Errorf("variant %d changed_field = %q, want %q", i, v.ChangedField, want[i])
		}
	}
}

func TestGenerateStopsWhenPoolsExhausted(t *testing.T) {
	vs := Generate("card_x", testPools(), 50)
	// 1 baseline + 2 hooks + 1 sell + 1 cta + 1 bgm alternative.
	if len(vs) != 6 {
		t.Errorf("got %d variants, want 6", len(vs))
	}
}

func TestGenerateRespectsN(t *testing.T) {
	vs := Generate("card_x", testPools(), 3)
	if len(vs) != 3 {
		t.Errorf("got %d variants, want 3", len(vs))
	}
}

func TestGenerateEmptyPools(t *testing.T) {
	vs := Generate("card_x", Pools{}, 5)
	if len(vs) != 1 {
		t.Fatalf("got %d variants, want only the baseline", len(vs))
	}
	if vs[0].HookType != "" || vs[0].SellPoint != "" {
		t.Errorf("baseline fields should stay empty: %+v", vs[0])
	}
	if vs[0].AssetVariables != defaultAsset {
		t.Errorf("baseline asset should be the default set")
	}
}
