package search

import "github.com/browseease/browseease/internal/domain"

// Catalog simulates per-source product results. A production deployment
// would swap this for real scraper/aggregator clients behind the same
// method set.
type Catalog struct{}

// NewCatalog returns the simulated catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Results returns products for the plan's category, bounded by max.
func (c *Catalog) Results(plan *domain.TaskPlan, max int) []domain.Product {
	items := catalogByCategory[plan.Category]
	if items == nil {
		items = catalogByCategory[domain.CategoryOther]
	}
	out := make([]domain.Product, len(items))
	copy(out, items)
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

var catalogByCategory = map[domain.Category][]domain.Product{
	domain.CategoryMobiles: {
		{
			ID:            "m1",
			Name:          "Samsung Galaxy A54 5G",
			Price:         26999,
			OriginalPrice: 32999,
			Source:        "Amazon",
			Specs:         []string{`6.4" Super AMOLED`, "50MP Triple Camera", "5000mAh Battery"},
			Score:         9.2,
			Rating:        4.3,
			Reviews:       12543,
			URL:           "https://www.amazon.in/samsung-galaxy-a54",
			IsTopPick:     true,
		},
		{
			ID:            "m2",
			Name:          "OnePlus Nord CE 3 Lite",
			Price:         19999,
			OriginalPrice: 23999,
			Source:        "Flipkart",
			Specs:         []string{`6.72" LCD Display`, "108MP Main Camera", "5000mAh Battery"},
			Score:         8.7,
			Rating:        4.1,
			Reviews:       8934,
			URL:           "https://www.flipkart.com/oneplus-nord-ce-3-lite",
			IsTopPick:     false,
		},
	},
	domain.CategoryScooters: {
		{
			ID:            "ev1",
			Name:          "Ather 450X Gen 3",
			Price:         158000,
			OriginalPrice: 165000,
			Source:        "Ather",
			Specs:         []string{"146 km Range", "80 kmph Top Speed", "3.3 kWh Battery"},
			Score:         9.5,
			Rating:        4.7,
			Reviews:       3245,
			URL:           "https://www.atherenergy.com/450x",
			IsTopPick:     true,
		},
		{
			ID:            "ev2",
			Name:          "Ola S1 Pro",
			Price:         129999,
			OriginalPrice: 139999,
			Source:        "OlaElectric",
			Specs:         []string{"181 km Range", "115 kmph Top Speed", "4 kWh Battery"},
			Score:         9.1,
			Rating:        4.4,
			Reviews:       5678,
			URL:           "https://olaelectric.com/s1-pro",
			IsTopPick:     false,
		},
	},
	domain.CategoryLaptops: {
		{
			ID:            "l1",
			Name:          "HP Pavilion 15",
			Price:         65999,
			OriginalPrice: 72999,
			Source:        "HP",
			Specs:         []string{`15.6" FHD Display`, "Intel i5-12450H", "16GB RAM", "512GB SSD"},
			Score:         8.9,
			Rating:        4.2,
			Reviews:       3456,
			URL:           "https://www.hp.com/pavilion-15",
			IsTopPick:     true,
		},
		{
			ID:            "l2",
			Name:          "Lenovo IdeaPad Slim 3",
			Price:         49999,
			OriginalPrice: 54999,
			Source:        "Lenovo",
			Specs:         []string{`14" FHD Display`, "AMD Ryzen 5 5500U", "8GB RAM", "512GB SSD"},
			Score:         8.5,
			Rating:        4.0,
			Reviews:       2345,
			URL:           "https://www.lenovo.com/ideapad-slim-3",
			IsTopPick:     false,
		},
	},
	domain.CategoryOther: {
		{
			ID:        "g1",
			Name:      "Generic Product 1",
			Price:     9999,
			Source:    "Amazon",
			Specs:     []string{"Feature 1", "Feature 2", "Feature 3"},
			Score:     7.5,
			Rating:    3.8,
			Reviews:   1234,
			URL:       "https://www.amazon.in/generic-product-1",
			IsTopPick: true,
		},
	},
}
