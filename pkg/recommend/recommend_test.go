package recommend_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/soilicd/soilicd/pkg/alerts"
	"github.com/soilicd/soilicd/pkg/recommend"
	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

func TestEveryCategoryHasGuidance(t *testing.T) {
	cats := []alerts.Category{
		alerts.CategoryCaMgLow, alerts.CategoryCaMgHigh,
		alerts.CategoryKSaturation, alerts.CategoryKSaturationSevere,
		alerts.CategoryKMgHigh, alerts.CategoryKMgSevere,
		alerts.CategoryAcidity, alerts.CategoryAciditySevere,
		alerts.CategoryAluminum, alerts.CategoryAluminumSevere,
		alerts.CategorySalinity, alerts.CategorySalinitySevere,
		alerts.CategoryPhosphorusDeficit, alerts.CategoryBoronDeficit,
	}
	for _, c := range cats {
		got := recommend.ForCategory(c)
		if len(got) == 0 || len(got) > 2 {
			t.Errorf("ForCategory(%s) returned %d strings, want 1 or 2", c, len(got))
		}
	}
	if got := recommend.ForCategory("unknown"); got != nil {
		t.Errorf("unknown category should map to nothing, got %v", got)
	}
}

func TestMapFollowsAlertOrder(t *testing.T) {
	as := []alerts.Alert{
		{Category: alerts.CategoryBoronDeficit, Variables: []soil.Variable{soil.Boron}},
		{Category: alerts.CategoryPhosphorusDeficit, Variables: []soil.Variable{soil.Phosphorus}},
	}
	got := recommend.MapRecommendations(as, "")
	want := append(recommend.ForCategory(alerts.CategoryBoronDeficit), recommend.ForCategory(alerts.CategoryPhosphorusDeficit)...)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Map = %v, want %v", got, want)
	}
}

func TestCropOverlayIsAccentInsensitive(t *testing.T) {
	as := []alerts.Alert{{Category: alerts.CategoryCaMgHigh, Variables: []soil.Variable{soil.Calcium, soil.Magnesium}}}

	for _, crop := range []string{"CAFÉ", "café", " Cafe "} {
		got := recommend.MapRecommendations(as, crop)
		if len(got) != 2 {
			t.Fatalf("crop %q: expected category guidance plus overlay, got %v", crop, got)
		}
		if !strings.HasPrefix(got[1], "En café") {
			t.Errorf("crop %q: overlay = %q", crop, got[1])
		}
	}

	got := recommend.MapRecommendations(as, "SOYBEAN")
	if len(got) != 1 {
		t.Errorf("crop without overlay should only get category guidance, got %v", got)
	}
}

func TestDuplicatesDropped(t *testing.T) {
	as := []alerts.Alert{
		{Category: alerts.CategoryKSaturation, Variables: []soil.Variable{soil.Potassium, soil.Calcium, soil.Magnesium}},
		{Category: alerts.CategoryKSaturation, Variables: []soil.Variable{soil.Potassium, soil.Calcium, soil.Magnesium}},
	}
	got := recommend.MapRecommendations(as, "BANANO")
	seen := map[string]bool{}
	for _, s := range got {
		if seen[s] {
			t.Errorf("duplicate recommendation %q", s)
		}
		seen[s] = true
	}
	if len(got) != 2 {
		t.Errorf("expected one category string and one overlay, got %v", got)
	}
}

func TestNoAlertsNoRecommendations(t *testing.T) {
	got := recommend.MapRecommendations(nil, "CAFE")
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestCustomMapper(t *testing.T) {
	m := recommend.NewMapper(map[string]recommend.Overlay{
		"Palma de aceite": {soil.Boron: "Palma: boro en la axila de las hojas."},
	})
	as := []alerts.Alert{{Category: alerts.CategoryBoronDeficit, Variables: []soil.Variable{soil.Boron}}}
	got := m.Map(as, "PALMA DE ACEITE")
	if len(got) != 2 || got[1] != "Palma: boro en la axila de las hojas." {
		t.Errorf("Map = %v", got)
	}
}

func TestForBand(t *testing.T) {
	tests := []struct {
		band   thresholds.Band
		prefix string
	}{
		{thresholds.BandExcellent, "Excelente"},
		{thresholds.BandGood, "Buena"},
		{thresholds.BandModerate, "Regular"},
		{thresholds.BandHighRisk, "Deficiente"},
		{thresholds.BandCritical, "Deficiente"},
	}
	for _, tc := range tests {
		if got := recommend.ForBand(tc.band); !strings.HasPrefix(got, tc.prefix) {
			t.Errorf("ForBand(%s) = %q, want prefix %q", tc.band, got, tc.prefix)
		}
	}
	if got := recommend.ForBand(thresholds.BandNoData); got != "" {
		t.Errorf("ForBand(NoData) = %q, want empty", got)
	}
}
