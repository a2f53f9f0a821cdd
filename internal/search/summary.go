package search

import (
	"fmt"
	"sort"

	"github.com/browseease/browseease/internal/domain"
)

// Summarize produces a one-line TL;DR of the results for the plan's
// category, led by the best-scoring product.
func Summarize(plan *domain.TaskPlan, products []domain.Product) string {
	if len(products) == 0 {
		return "No results found matching your criteria."
	}

	sorted := make([]domain.Product, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Price < sorted[j].Price
	})
	best := sorted[0]

	switch plan.Category {
	case domain.CategoryMobiles:
		return fmt.Sprintf("Best Mobile: %s at ₹%.0f (rated %.1f across %d reviews).", best.Name, best.Price, best.Rating, best.Reviews)
	case domain.CategoryScooters:
		return fmt.Sprintf("Best EV Scooter: %s at ₹%.0f (rated %.1f across %d reviews).", best.Name, best.Price, best.Rating, best.Reviews)
	case domain.CategoryLaptops:
		return fmt.Sprintf("Best Laptop: %s at ₹%.0f (rated %.1f across %d reviews).", best.Name, best.Price, best.Rating, best.Reviews)
	default:
		return fmt.Sprintf("Best match: %s at ₹%.0f.", best.Name, best.Price)
	}
}

// Compare produces a short comparison line across the top two results.
func Compare(products []domain.Product) string {
	if len(products) < 2 {
		return "Not enough results to compare."
	}
	a, b := products[0], products[1]
	diff := b.Price - a.Price
	if diff < 0 {
		a, b = b, a
		diff = -diff
	}
	return fmt.Sprintf("%s is ₹%.0f cheaper than %s.", a.Name, diff, b.Name)
}
