package search

import (
	"strings"
	"testing"

	"github.com/browseease/browseease/internal/domain"
)

func TestSummarizePicksBestScore(t *testing.T) {
	plan := &domain.TaskPlan{Category: domain.CategoryLaptops}
	products := []domain.Product{
		{Name: "Lenovo IdeaPad Slim 3", Price: 49999, Score: 8.5, Rating: 4.0, Reviews: 2345},
		{Name: "HP Pavilion 15", Price: 65999, Score: 8.9, Rating: 4.2, Reviews: 3456},
	}

	got := Summarize(plan, products)
	if !strings.HasPrefix(got, "Best Laptop: HP Pavilion 15") {
		t.Errorf("Expected the higher-scored laptop to lead, got %q", got)
	}
}

func TestSummarizeTiesBreakOnPrice(t *testing.T) {
	plan := &domain.TaskPlan{Category: domain.CategoryMobiles}
	products := []domain.Product{
		{Name: "Pricey", Price: 30000, Score: 9.0},
		{Name: "Cheaper", Price: 20000, Score: 9.0},
	}

	got := Summarize(plan, products)
	if !strings.Contains(got, "Cheaper") {
		t.Errorf("Expected equal scores to break on price, got %q", got)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(&domain.TaskPlan{Category: domain.CategoryMobiles}, nil)
	if got != "No results found matching your criteria." {
		t.Errorf("Unexpected empty summary: %q", got)
	}
}

func TestSummarizeGenericCategory(t *testing.T) {
	got := Summarize(&domain.TaskPlan{Category: domain.CategoryOther}, []domain.Product{
		{Name: "Generic Product 1", Price: 9999, Score: 7.5},
	})
	if !strings.HasPrefix(got, "Best match: Generic Product 1") {
		t.Errorf("Expected generic summary, got %q", got)
	}
}

func TestCompare(t *testing.T) {
	got := Compare([]domain.Product{
		{Name: "Samsung Galaxy A54 5G", Price: 26999},
		{Name: "OnePlus Nord CE 3 Lite", Price: 19999},
	})
	if got != "OnePlus Nord CE 3 Lite is ₹7000 cheaper than Samsung Galaxy A54 5G." {
		t.Errorf("Unexpected comparison: %q", got)
	}
}

func TestCompareTooFew(t *testing.T) {
	if got := Compare([]domain.Product{{Name: "Only"}}); got != "Not enough results to compare." {
		t.Errorf("Unexpected comparison: %q", got)
	}
}

func TestCatalogBounds(t *testing.T) {
	c := NewCatalog()

	all := c.Results(&domain.TaskPlan{Category: domain.CategoryMobiles}, 0)
	if len(all) != 2 {
		t.Fatalf("Expected 2 mobiles, got %d", len(all))
	}

	one := c.Results(&domain.TaskPlan{Category: domain.CategoryMobiles}, 1)
	if len(one) != 1 {
		t.Errorf("Expected truncation to 1, got %d", len(one))
	}

	unknown := c.Results(&domain.TaskPlan{Category: domain.Category("gadgets")}, 5)
	if len(unknown) != 1 || unknown[0].ID != "g1" {
		t.Errorf("Expected generic fallback catalog, got %+v", unknown)
	}
}

func TestCatalogCopies(t *testing.T) {
	c := NewCatalog()
	plan := &domain.TaskPlan{Category: domain.CategoryLaptops}

	first := c.Results(plan, 0)
	first[0].Name = "mutated"

	second := c.Results(plan, 0)
	if second[0].Name == "mutated" {
		t.Error("Expected catalog results to be copies")
	}
}
