package geminiservice

/* =================================================================================
							FALLBACK DATA
	Fixed example records substituted whenever the model reply cannot be
	parsed into a usable result, so the caller always has cards to render.
=================================================================================*/

// FallbackGiftRecommendations returns the fixed gift list. Callers receive a
// fresh slice each time so they are free to mutate it.
func FallbackGiftRecommendations() []GiftRecommendation {
	return []GiftRecommendation{
		{
			Title:        "Premium Digital Stethoscope with Bluetooth Connectivity",
			Description:  "Advanced digital stethoscope with Bluetooth connectivity and mobile app integration, perfect for modern Indian healthcare professionals. Features noise cancellation and recording capabilities for better patient care documentation. Includes Hindi language support and works seamlessly with Indian healthcare management systems.",
			Category:     "Conference Gifts",
			PriceRange:   "₹8,500-12,200",
			Rating:       4.8,
			Features:     []string{"Bluetooth Connectivity", "Mobile App Integration", "Noise Cancellation", "GST Compliant", "2-Year Warranty"},
			SuitableFor:  []string{"Cardiologists", "General Physicians", "Medical Students"},
			Availability: "Available across India with same-day delivery in metro cities",
			ImageURL:     "https://images.pexels.com/photos/40568/medical-appointment-doctor-healthcare-40568.jpeg?auto=compress&cs=tinysrgb&w=600&h=400&fit=crop",
		},
		{
			Title:        "Ayurvedic Stress Relief & Immunity Booster Gift Set",
			Description:  "Carefully curated collection of authentic Ayurvedic products including Ashwagandha supplements, herbal teas, and aromatherapy oils. Specifically designed for healthcare professionals dealing with high-stress environments in Indian hospitals. Each product is AYUSH certified and sourced from traditional Indian manufacturers.",
			Category:     "Wellness",
			PriceRange:   "₹3,200-4,800",
			Rating:       4.6,
			Features:     []string{"100% Natural Ingredients", "AYUSH Certified", "Stress Relief Formula", "Immunity Boosting", "Premium Packaging"},
			SuitableFor:  []string{"Hospital Staff", "Pharmaceutical Researchers", "Healthcare Administrators"},
			Availability: "Pan-India delivery with temperature-controlled shipping",
			ImageURL:     "https://images.pexels.com/photos/3683074/pexels-photo-3683074.jpeg?auto=compress&cs=tinysrgb&w=600&h=400&fit=crop",
		},
		{
			Title:        "Smart Health Monitoring Kit with Indian Language Support",
			Description:  "Comprehensive digital health monitoring system including BP monitor, glucometer, and pulse oximeter with Hindi and regional language support. Ideal for telemedicine initiatives and rural healthcare programs in India. Features cloud connectivity and integration with government health schemes.",
			Category:     "Technology",
			PriceRange:   "₹6,500-9,200",
			Rating:       4.7,
			Features:     []string{"Multi-language Display", "Bluetooth Connectivity", "Mobile App Integration", "Cloud Data Storage", "BIS Certified"},
			SuitableFor:  []string{"Rural Healthcare Workers", "Telemedicine Practitioners", "Community Health Officers"},
			Availability: "Available in 28 states with local service support",
			ImageURL:     "https://images.pexels.com/photos/4386466/pexels-photo-4386466.jpeg?auto=compress&cs=tinysrgb&w=600&h=400&fit=crop",
		},
		{
			Title:        "Professional Medical Reference Books Collection",
			Description:  "Comprehensive collection of latest medical reference books including Indian Pharmacopoeia, drug interaction guides, and clinical practice guidelines. Updated with latest Indian medical regulations and includes digital access codes for online resources. Perfect for continuous medical education.",
			Category:     "Educational Materials",
			PriceRange:   "₹4,500-6,800",
			Rating:       4.5,
			Features:     []string{"Latest Edition", "Digital Access Included", "Indian Medical Guidelines", "Professional Binding", "Quick Reference Cards"},
			SuitableFor:  []string{"Medical Practitioners", "Pharmacy Students", "Healthcare Researchers"},
			Availability: "Available through major Indian medical bookstores and online platforms",
			ImageURL:     "https://images.pexels.com/photos/159711/books-bookstore-book-reading-159711.jpeg?auto=compress&cs=tinysrgb&w=600&h=400&fit=crop",
		},
	}
}

// FallbackProductQuote returns the fixed quote record.
func FallbackProductQuote() *ProductQuote {
	return &ProductQuote{
		ProductName:      "Medical Gift Product",
		SuggestedPrice:   "₹2,500-4,000",
		MarketComparison: "8% below Indian market average",
		Confidence:       78,
		Recommendations: []string{
			"Consider bulk pricing for orders over 50 units (GST inclusive)",
			"Add custom pharmaceutical branding for 15% premium",
			"Similar products range from ₹2,800-4,200 in current Indian market",
		},
		Category:         "Medical Accessories",
		Features:         []string{"GST Compliant", "Pharmaceutical Grade", "Indian Market Optimized"},
		CompetitorPrices: []string{"Market Leader: ₹3,500-4,200", "Local Supplier: ₹2,800-3,200", "Import Range: ₹4,000-5,500"},
	}
}
