// Package search implements the BrowseEase product-search engine: query
// classification, task planning, result simulation, and summaries.
package search

import (
	"strconv"
	"strings"

	"github.com/browseease/browseease/internal/domain"
)

// Classification is the outcome of query understanding: the detected
// vertical, extracted constraints, candidate sources, and actions.
type Classification struct {
	Category domain.Category
	Filters  domain.Filters
	Sources  []string
	Actions  []string
}

var categorySources = map[domain.Category][]string{
	domain.CategoryMobiles:  {"Amazon", "Flipkart", "BestBuy", "Croma"},
	domain.CategoryScooters: {"OlaElectric", "Ather", "TVSMotor", "HeroElectric"},
	domain.CategoryLaptops:  {"Amazon", "Flipkart", "BestBuy", "Dell", "HP", "Lenovo"},
	domain.CategoryTravel:   {"MakeMyTrip", "Booking.com", "Airbnb", "Expedia"},
	domain.CategoryOther:    {"Amazon", "Flipkart", "Google"},
}

var categoryKeywords = []struct {
	category domain.Category
	keywords []string
}{
	// Scooter keywords take precedence: "electric scooter" would otherwise
	// misclassify on "battery" or "charging" hints.
	{domain.CategoryScooters, []string{"ev scooter", "ev-scooter", "electric scooter", "e-scooter", "scooter"}},
	{domain.CategoryMobiles, []string{"mobile", "phone", "smartphone", "battery", "camera"}},
	{domain.CategoryLaptops, []string{"laptop", "notebook", "computer", "processor", "ram", "ssd"}},
	{domain.CategoryTravel, []string{"travel", "hotel", "flight", "booking", "trip"}},
}

// Classify determines category, filters, sources, and actions for a
// natural-language query using keyword rules.
func Classify(query string) Classification {
	q := strings.ToLower(query)

	category := domain.CategoryOther
	for _, ck := range categoryKeywords {
		if containsAny(q, ck.keywords) {
			category = ck.category
			break
		}
	}

	actions := []string{"search"}
	if strings.Contains(q, "compare") {
		actions = append(actions, "compare")
	}
	actions = append(actions, "summarize")

	return Classification{
		Category: category,
		Filters:  extractFilters(q, category),
		Sources:  categorySources[category],
		Actions:  actions,
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var priceKeywords = []string{"under", "below", "less than", "cheaper than", "within"}

var priceUnits = map[string]float64{
	"k":     1000,
	"l":     100000,
	"lakh":  100000,
	"lakhs": 100000,
}

// extractFilters pulls numeric constraints out of a normalized query.
func extractFilters(q string, category domain.Category) domain.Filters {
	filters := domain.Filters{}

	for _, kw := range priceKeywords {
		_, after, found := strings.Cut(q, kw)
		if !found {
			continue
		}
		parts := strings.Fields(after)
		if len(parts) == 0 {
			continue
		}
		price, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			continue
		}
		if len(parts) > 1 {
			if unit, ok := priceUnits[strings.ToLower(parts[1])]; ok {
				price *= unit
			}
		}
		filters["price"] = domain.Range{Max: &price}
		break
	}

	switch category {
	case domain.CategoryMobiles:
		if strings.Contains(q, "mah") || strings.Contains(q, "battery") {
			if v, ok := numberBefore(q, "battery", 1000); ok {
				filters["battery"] = domain.Range{Min: &v}
			}
		}
		if strings.Contains(q, "mp") || strings.Contains(q, "megapixel") || strings.Contains(q, "camera") {
			if v, ok := numberBefore(q, "camera", 0); ok {
				filters["camera"] = domain.Range{Min: &v}
			}
		}
	case domain.CategoryScooters:
		if strings.Contains(q, "range") || strings.Contains(q, "km") {
			if v, ok := numberBefore(q, "range", 0); ok {
				filters["range"] = domain.Range{Min: &v}
			}
		}
		if strings.Contains(q, "charging") || strings.Contains(q, "charge") {
			if v, ok := numberBefore(q, "charging", 0); ok {
				filters["charging_time"] = domain.Range{Max: &v}
			}
		}
	case domain.CategoryLaptops:
		if strings.Contains(q, "ram") {
			if v, ok := numberBefore(q, "ram", 0); ok {
				filters["ram"] = domain.Range{Min: &v}
			}
		}
		if strings.Contains(q, "ssd") || strings.Contains(q, "storage") || strings.Contains(q, "hdd") {
			if v, ok := numberBefore(q, "storage", 0); ok {
				filters["storage"] = domain.Range{Min: &v}
			}
		}
	}

	return filters
}

// numberBefore finds the last integer preceding the marker word that is
// at least min. "5000 mah battery phone" with marker "battery" yields 5000.
func numberBefore(q, marker string, min float64) (float64, bool) {
	before, _, found := strings.Cut(q, marker)
	if !found {
		return 0, false
	}
	fields := strings.Fields(before)
	for i := len(fields) - 1; i >= 0; i-- {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			continue
		}
		v := float64(n)
		if v >= min {
			return v, true
		}
	}
	return 0, false
}
