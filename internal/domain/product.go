// Package domain contains core domain types for the BrowseEase application.
package domain

// Product represents one ranked product offer from a retail source.
type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"originalPrice,omitempty"`
	Source        string   `json:"source"`
	Specs         []string `json:"specs,omitempty"`
	Score         float64  `json:"score"`
	Rating        float64  `json:"rating"`
	Reviews       int      `json:"reviews"`
	URL           string   `json:"url"`
	IsTopPick     bool     `json:"isTopPick"`
}

// Discount returns the absolute price reduction, or 0 when no original
// price is known.
func (p Product) Discount() float64 {
	if p.OriginalPrice <= p.Price {
		return 0
	}
	return p.OriginalPrice - p.Price
}
