package geminiservice

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
)

/* =================================================================================
						PIPELINE ORCHESTRATORS
	Prompt build -> generative call -> JSON extraction -> validation, with
	fallback data substituted on parse failure. Precondition failures
	(missing key, empty input) reject before any network call. Exhausted
	retries and transport failures surface as typed errors; fallback is
	reserved strictly for unusable replies on an otherwise-successful call.
=================================================================================*/

// GenerateGiftRecommendations turns a free-text query into a validated list
// of recommendation cards.
func (c *Client) GenerateGiftRecommendations(ctx context.Context, query string) ([]GiftRecommendation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, newPipelineError(ErrInput, "search query cannot be empty")
	}

	parts := []geminiPart{{Text: buildGiftPrompt(query)}}
	raw, err := c.generate(ctx, parts, giftGenerationConfig)
	if err != nil {
		return nil, err
	}

	payload, err := extractJSON(raw, shapeArray)
	if err != nil {
		c.log.Warn().Err(err).Msg("Gift reply had no parsable JSON, serving fallback data")
		return FallbackGiftRecommendations(), nil
	}

	var candidates []interface{}
	if err := json.Unmarshal([]byte(payload), &candidates); err != nil {
		c.log.Warn().Err(err).Msg("Gift reply JSON failed to parse, serving fallback data")
		return FallbackGiftRecommendations(), nil
	}

	return normalizeGifts(candidates), nil
}

// AnalyzeProductForQuote prices a product from an inline image, a text
// description, or both. At least one must be present.
func (c *Client) AnalyzeProductForQuote(ctx context.Context, imageBase64, description string) (*ProductQuote, error) {
	description = strings.TrimSpace(description)
	if imageBase64 == "" && description == "" {
		return nil, newPipelineError(ErrInput, "either product image or description is required")
	}

	var parts []geminiPart
	if imageBase64 != "" {
		parts = append(parts, geminiPart{InlineData: &inlineData{
			MimeType: "image/jpeg",
			Data:     stripDataURLPrefix(imageBase64),
		}})
	}
	parts = append(parts, geminiPart{Text: buildQuotePrompt(description)})

	raw, err := c.generate(ctx, parts, quoteGenerationConfig)
	if err != nil {
		return nil, err
	}

	payload, err := extractJSON(raw, shapeObject)
	if err != nil {
		c.log.Warn().Err(err).Msg("Quote reply had no parsable JSON, serving fallback data")
		return FallbackProductQuote(), nil
	}

	var candidate interface{}
	if err := json.Unmarshal([]byte(payload), &candidate); err != nil {
		c.log.Warn().Err(err).Msg("Quote reply JSON failed to parse, serving fallback data")
		return FallbackProductQuote(), nil
	}

	quote := normalizeQuote(candidate)
	return &quote, nil
}

// stripDataURLPrefix drops the "data:image/jpeg;base64," prefix browsers
// attach to canvas exports; the API wants bare base64.
func stripDataURLPrefix(s string) string {
	if i := strings.Index(s, ","); i != -1 && strings.HasPrefix(s, "data:") {
		return s[i+1:]
	}
	return s
}
