package geminiservice

import (
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestNormalizeGiftRatingBoundaries(t *testing.T) {
	cases := []struct {
		name   string
		rating interface{}
		want   float64
	}{
		{"above range clamps down", 7.0, 5},
		{"below range clamps up", -1.0, 1},
		{"in range kept", 4.5, 4.5},
		{"non-numeric defaults", "five stars", 4.0},
		{"missing defaults", nil, 4.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := map[string]interface{}{"title": "x"}
			if tc.rating != nil {
				m["rating"] = tc.rating
			}
			got := normalizeGift(m, 0)
			if got.Rating != tc.want {
				t.Fatalf("rating = %v, want %v", got.Rating, tc.want)
			}
		})
	}
}

func TestNormalizeGiftDefaults(t *testing.T) {
	got := normalizeGift(nil, 2)

	if got.Title != "Gift Recommendation 3" {
		t.Fatalf("synthesized title = %q", got.Title)
	}
	if got.Description == "" || got.Category == "" || got.PriceRange == "" ||
		got.Availability == "" || got.ImageURL == "" {
		t.Fatalf("defaulted record has empty fields: %+v", got)
	}
	if len(got.Features) == 0 || len(got.SuitableFor) == 0 {
		t.Fatalf("defaulted lists are empty: %+v", got)
	}
}

func TestNormalizeGiftTruncatesLists(t *testing.T) {
	features := make([]interface{}, 9)
	roles := make([]interface{}, 6)
	for i := range features {
		features[i] = "feature"
	}
	for i := range roles {
		roles[i] = "role"
	}

	got := normalizeGift(map[string]interface{}{
		"features":    features,
		"suitableFor": roles,
	}, 0)

	if len(got.Features) != maxFeatures {
		t.Fatalf("features length = %d, want %d", len(got.Features), maxFeatures)
	}
	if len(got.SuitableFor) != maxSuitableFor {
		t.Fatalf("suitableFor length = %d, want %d", len(got.SuitableFor), maxSuitableFor)
	}
}

func TestNormalizeGiftDefaultImageByCategory(t *testing.T) {
	cases := map[string]string{
		"Medical Equipment":     "40568",
		"Wellness Products":     "3683074",
		"Conference Gifts":      "1181406",
		"Digital Technology":    "4386466",
		"Educational Materials": "1181406",
		"Books":                 "159711",
		"Something Else":        "3683074",
	}

	for category, wantID := range cases {
		got := normalizeGift(map[string]interface{}{"category": category}, 0)
		if !strings.Contains(got.ImageURL, wantID) {
			t.Errorf("category %q image = %q, want photo id %s", category, got.ImageURL, wantID)
		}
	}
}

// Normalizing the validator's own output must not change it.
func TestNormalizeGiftIdempotent(t *testing.T) {
	first := normalizeGift(map[string]interface{}{
		"title":  "Digital BP Monitor",
		"rating": 9.0,
		"features": []interface{}{
			"one", "two", "three", "four", "five", "six",
		},
	}, 0)

	raw, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var roundTripped map[string]interface{}
	if err := json.Unmarshal(raw, &roundTripped); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	second := normalizeGift(roundTripped, 0)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("validator is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestNormalizeGiftsCapsResultCount(t *testing.T) {
	candidates := make([]interface{}, maxGiftResults+3)
	got := normalizeGifts(candidates)
	if len(got) != maxGiftResults {
		t.Fatalf("result count = %d, want %d", len(got), maxGiftResults)
	}
}

func TestNormalizeQuoteConfidence(t *testing.T) {
	cases := []struct {
		confidence interface{}
		want       int
	}{
		{150.0, 100},
		{0.0, 1},
		{85.0, 85},
		{"high", 85},
		{nil, 85},
	}

	for _, tc := range cases {
		m := map[string]interface{}{}
		if tc.confidence != nil {
			m["confidence"] = tc.confidence
		}
		got := normalizeQuote(m)
		if got.Confidence != tc.want {
			t.Errorf("confidence %v normalized to %d, want %d", tc.confidence, got.Confidence, tc.want)
		}
	}
}

func TestNormalizeQuoteDefaults(t *testing.T) {
	got := normalizeQuote(nil)

	if got.ProductName != "Analyzed Product" {
		t.Fatalf("product name = %q", got.ProductName)
	}
	if got.Category != "Medical Product" {
		t.Fatalf("category = %q", got.Category)
	}
	if got.SuggestedPrice == "" || got.MarketComparison == "" {
		t.Fatalf("defaulted quote has empty strings: %+v", got)
	}
	if got.Recommendations == nil || got.Features == nil || got.CompetitorPrices == nil {
		t.Fatalf("defaulted quote has nil lists: %+v", got)
	}
}

func TestNormalizeQuoteTruncatesCompetitorPrices(t *testing.T) {
	prices := []interface{}{"a", "b", "c", "d", "e"}
	got := normalizeQuote(map[string]interface{}{"competitorPrices": prices})
	if len(got.CompetitorPrices) != maxCompetitorPrices {
		t.Fatalf("competitorPrices length = %d, want %d", len(got.CompetitorPrices), maxCompetitorPrices)
	}
}
