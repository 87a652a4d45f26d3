package geminiservice

import (
	"fmt"
	"strings"
)

/* =================================================================================
							RESULT TYPES
=================================================================================*/

// GiftRecommendation is a fully-populated recommendation card. Every field is
// guaranteed non-empty by the validator so the rendering layer never has to
// null-check or range-check.
type GiftRecommendation struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	PriceRange   string   `json:"priceRange"`
	Rating       float64  `json:"rating"`
	Features     []string `json:"features"`
	SuitableFor  []string `json:"suitableFor"`
	Availability string   `json:"availability"`
	ImageURL     string   `json:"imageUrl"`
}

// ProductQuote is the analyzed pricing result for a single product.
type ProductQuote struct {
	ProductName      string   `json:"productName"`
	SuggestedPrice   string   `json:"suggestedPrice"`
	MarketComparison string   `json:"marketComparison"`
	Confidence       int      `json:"confidence"`
	Recommendations  []string `json:"recommendations"`
	Category         string   `json:"category"`
	Features         []string `json:"features"`
	CompetitorPrices []string `json:"competitorPrices"`
}

/* =================================================================================
						FIELD VALIDATION / NORMALIZATION
=================================================================================*/

const (
	maxFeatures         = 5
	maxSuitableFor      = 3
	maxRecommendations  = 5
	maxCompetitorPrices = 3
)

var (
	defaultFeatures    = []string{"Professional Grade", "High Quality"}
	defaultSuitableFor = []string{"Healthcare Professionals"}
)

// normalizeGift converts one loosely-typed candidate into a schema-conformant
// record. Total over its input: a nil or non-object candidate produces a
// record built entirely from defaults. Idempotent: normalizing its own output
// yields the same record.
func normalizeGift(candidate interface{}, index int) GiftRecommendation {
	m, _ := candidate.(map[string]interface{})

	category := stringField(m, "category", "General")
	title := stringField(m, "title", fmt.Sprintf("Gift Recommendation %d", index+1))

	imageURL := stringField(m, "imageUrl", "")
	if imageURL == "" {
		imageURL = defaultImageForCategory(category, title)
	}

	return GiftRecommendation{
		Title:        title,
		Description:  stringField(m, "description", "No description available"),
		Category:     category,
		PriceRange:   stringField(m, "priceRange", "₹1,000-2,000"),
		Rating:       ratingField(m, "rating", 4.0, 1, 5),
		Features:     stringListField(m, "features", maxFeatures, defaultFeatures),
		SuitableFor:  stringListField(m, "suitableFor", maxSuitableFor, defaultSuitableFor),
		Availability: stringField(m, "availability", "Available in India"),
		ImageURL:     imageURL,
	}
}

// normalizeGifts applies normalizeGift to every candidate and caps the list
// at the count requested from the model.
func normalizeGifts(candidates []interface{}) []GiftRecommendation {
	if len(candidates) > maxGiftResults {
		candidates = candidates[:maxGiftResults]
	}
	out := make([]GiftRecommendation, 0, len(candidates))
	for i, candidate := range candidates {
		out = append(out, normalizeGift(candidate, i))
	}
	return out
}

// normalizeQuote converts a loosely-typed parsed object into a ProductQuote.
// Same totality guarantee as normalizeGift.
func normalizeQuote(candidate interface{}) ProductQuote {
	m, _ := candidate.(map[string]interface{})

	confidence := 85
	if n, ok := numberField(m, "confidence"); ok {
		confidence = clampInt(int(n), 1, 100)
	}

	return ProductQuote{
		ProductName:      stringField(m, "productName", "Analyzed Product"),
		SuggestedPrice:   stringField(m, "suggestedPrice", "Price analysis unavailable"),
		MarketComparison: stringField(m, "marketComparison", "Competitive with market average"),
		Confidence:       confidence,
		Recommendations:  stringListField(m, "recommendations", maxRecommendations, nil),
		Category:         stringField(m, "category", "Medical Product"),
		Features:         stringListField(m, "features", maxFeatures, nil),
		CompetitorPrices: stringListField(m, "competitorPrices", maxCompetitorPrices, nil),
	}
}

/* =================================================================================
							FIELD HELPERS
=================================================================================*/

func stringField(m map[string]interface{}, key, fallback string) string {
	if m == nil {
		return fallback
	}
	if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}

func numberField(m map[string]interface{}, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	n, ok := m[key].(float64)
	return n, ok
}

func ratingField(m map[string]interface{}, key string, fallback, min, max float64) float64 {
	n, ok := numberField(m, key)
	if !ok {
		return fallback
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// stringListField truncates to limit. The fallback applies only when the
// field is missing or not a list; an empty list stays empty, which keeps the
// transform idempotent.
func stringListField(m map[string]interface{}, key string, limit int, fallback []string) []string {
	if fallback == nil {
		fallback = []string{}
	}
	if m == nil {
		return fallback
	}
	items, ok := m[key].([]interface{})
	if !ok {
		// Already-normalized input arrives as []string.
		if strs, ok := m[key].([]string); ok {
			if len(strs) > limit {
				strs = strs[:limit]
			}
			return strs
		}
		return fallback
	}
	out := []string{}
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
		if len(out) == limit {
			break
		}
	}
	return out
}

func clampInt(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

/* =================================================================================
						DEFAULT IMAGE LOOKUP
=================================================================================*/

// defaultImageForCategory picks a stock image by keyword match against the
// category and title when the model omitted the image URL.
func defaultImageForCategory(category, title string) string {
	key := strings.ToLower(category + " " + title)

	switch {
	case strings.Contains(key, "medical") || strings.Contains(key, "equipment"):
		return "https://images.pexels.com/photos/40568/medical-appointment-doctor-healthcare-40568.jpeg?auto=compress&cs=tinysrgb&w=600&h=400&fit=crop"
	case strings.Contains(key, "wellness") || strings.Contains(key, "ayurvedic"):
		return "https://images.pexels.com/photos/3683074/pexels-photo-3683074.jpeg?auto=compress&cs=tinysrgb&w=600&h=400&fit=crop"
	case strings.Contains(key, "conference") || strings.Contains(key, "educational"):
		return "https://images.pexels.com/photos/1181406/pexels-photo-1181406.jpeg?auto=compress&cs=tinysrgb&w=600&h=400&fit=crop"
	case strings.Contains(key, "technology") || strings.Contains(key, "digital"):
		return "https://images.pexels.com/photos/4386466/pexels-photo-4386466.jpeg?auto=compress&cs=tinysrgb&w=600&h=400&fit=crop"
	case strings.Contains(key, "book") || strings.Contains(key, "education"):
		return "https://images.pexels.com/photos/159711/books-bookstore-book-reading-159711.jpeg?auto=compress&cs=tinysrgb&w=600&h=400&fit=crop"
	default:
		return "https://images.pexels.com/photos/3683074/pexels-photo-3683074.jpeg?auto=compress&cs=tinysrgb&w=600&h=400&fit=crop"
	}
}
