package geminiservice

import "fmt"

/* =================================================================================
						PROMPT ENGINEERING & GUARDRAILS
=================================================================================*/

// maxGiftResults is the number of recommendations the model is instructed to
// produce; the validator never returns more than this.
const maxGiftResults = 4

// Generation parameters are fixed per call type. Both use a low temperature:
// higher temperatures noticeably increase the rate of malformed JSON replies.
var (
	giftGenerationConfig = &generationConfig{
		Temperature:     0.1,
		TopK:            1,
		TopP:            0.1,
		MaxOutputTokens: 4096,
		CandidateCount:  1,
	}

	quoteGenerationConfig = &generationConfig{
		Temperature:     0.1,
		TopK:            1,
		TopP:            0.1,
		MaxOutputTokens: 2048,
		CandidateCount:  1,
	}

	// The prompts mention medical instruments and pharmaceuticals, which the
	// default thresholds occasionally flag.
	defaultSafetySettings = []safetySetting{
		{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
		{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
		{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
		{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
	}
)

const giftPromptTemplate = `You are an AI assistant specialized in Indian pharmaceutical gifting and medical products. Based on this query: "%s"

Generate exactly %d highly relevant and specific gift recommendations for Indian pharmaceutical professionals. You must respond with ONLY a valid JSON array, no other text.

Required JSON structure:

[
  {
    "title": "Specific product name (e.g., 'Premium Digital Stethoscope with Bluetooth')",
    "description": "Detailed 3-4 sentence description explaining why this gift is perfect for Indian pharmaceutical professionals",
    "category": "Specific category (e.g., 'Medical Equipment', 'Educational Materials', 'Wellness Products')",
    "priceRange": "₹1,000-5,000",
    "rating": 4.5,
    "features": ["Specific feature 1", "Specific feature 2", "Specific feature 3"],
    "suitableFor": ["Specific professional role 1", "Specific professional role 2"],
    "availability": "Specific availability info (e.g., 'Pan-India delivery available')",
    "imageUrl": "https://images.pexels.com/photos/[id]/pexels-photo-[id].jpeg?auto=compress&cs=tinysrgb&w=600&h=400&fit=crop"
  }
]

Requirements:
- Focus specifically on Indian pharmaceutical industry needs
- Include GST compliance and regulatory considerations
- Price ranges: ₹1,000 to ₹15,000 (realistic Indian market prices)
- Include proper product images from Pexels that accurately represent each product
- Consider Indian cultural preferences and include Ayurvedic/traditional elements where relevant
- Ensure gifts are suitable for medical conferences, hospitals, and healthcare professionals

CRITICAL: Return ONLY the JSON array. No explanations, no markdown, no additional text.`

const quotePromptTemplate = `You are an AI assistant specialized in Indian pharmaceutical market analysis.
%s

You must respond with ONLY a valid JSON object, no other text.

Required JSON structure:
{
  "productName": "Identified or suggested product name",
  "suggestedPrice": "₹2,500-3,800",
  "marketComparison": "5%% below Indian market average",
  "confidence": 85,
  "recommendations": [
    "Specific recommendation 1 for Indian market",
    "Specific recommendation 2 with GST considerations",
    "Specific recommendation 3 for pharmaceutical gifting"
  ],
  "category": "Product category",
  "features": ["Key feature 1", "Key feature 2", "Key feature 3"],
  "competitorPrices": ["Competitor 1: ₹2,800-3,200", "Competitor 2: ₹3,500-4,000", "Market range: ₹2,500-4,500"]
}

Requirements:
- Focus on Indian pharmaceutical industry standards
- Include 18%% GST implications and bulk pricing options
- Use price ranges (e.g., ₹2,500-3,800) instead of single prices
- Price ranges should reflect market reality: ₹1,000 to ₹15,000

CRITICAL: Return ONLY the JSON object. No explanations, no markdown, no additional text.`

// buildGiftPrompt renders a gift-search query into the instruction string.
// Pure function of its input: the same query always yields the same prompt.
func buildGiftPrompt(query string) string {
	return fmt.Sprintf(giftPromptTemplate, query, maxGiftResults)
}

// buildQuotePrompt renders a product-quote request. When only an image is
// supplied the model is told to analyze the inline image instead.
func buildQuotePrompt(description string) string {
	subject := "Analyze the product in the image for the Indian pharmaceutical gifting market."
	if description != "" {
		subject = fmt.Sprintf("Analyze this product: %q for the Indian pharmaceutical gifting market.", description)
	}
	return fmt.Sprintf(quotePromptTemplate, subject)
}
