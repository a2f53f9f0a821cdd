package search

import (
	"testing"

	"github.com/browseease/browseease/internal/domain"
)

func TestCacheKeyStable(t *testing.T) {
	min := 16.0
	max := 60000.0
	a := domain.Filters{"ram": {Min: &min}, "price": {Max: &max}}
	b := domain.Filters{"price": {Max: &max}, "ram": {Min: &min}}

	if CacheKey(domain.CategoryLaptops, a) != CacheKey(domain.CategoryLaptops, b) {
		t.Error("Expected identical keys regardless of filter map order")
	}
}

func TestCacheKeyDiscriminates(t *testing.T) {
	max := 20000.0
	f := domain.Filters{"price": {Max: &max}}

	if CacheKey(domain.CategoryMobiles, f) == CacheKey(domain.CategoryLaptops, f) {
		t.Error("Expected category to change the key")
	}

	other := 30000.0
	g := domain.Filters{"price": {Max: &other}}
	if CacheKey(domain.CategoryMobiles, f) == CacheKey(domain.CategoryMobiles, g) {
		t.Error("Expected filter values to change the key")
	}
}

func TestPlanCacheSharedAcrossRewordings(t *testing.T) {
	p := NewPlanner()

	a := p.Plan("phones under 20000")
	b := p.Plan("smartphone under 20000")
	if a != b {
		t.Error("Expected reworded queries with equal constraints to share a cached plan")
	}

	c := p.Plan("phones under 30000")
	if a == c {
		t.Error("Expected different constraints to produce a different plan")
	}
}

func TestPlanUncertainCategory(t *testing.T) {
	plan := NewPlanner().Plan("something vague")
	if plan.Category != domain.CategoryOther {
		t.Fatalf("Expected fallback category, got %q", plan.Category)
	}
	if plan.Status != "uncertain" {
		t.Errorf("Expected uncertain status, got %q", plan.Status)
	}
	if plan.Suggestion == "" {
		t.Error("Expected a suggestion for the vague query")
	}
}

func TestPlanReasoning(t *testing.T) {
	plan := NewPlanner().Plan("laptops under 60000")
	if plan.Reasoning.DetectedCategory != domain.CategoryLaptops {
		t.Errorf("Expected reasoning category, got %q", plan.Reasoning.DetectedCategory)
	}
	if plan.Reasoning.QueryUnderstanding == "" {
		t.Error("Expected query understanding text")
	}
}

func TestRefineBroadensFilters(t *testing.T) {
	p := NewPlanner()
	plan := p.Plan("phone with 5000 mah battery under 20000")

	refined := p.Refine("phone with 5000 mah battery under 20000", nil)
	if refined == plan {
		t.Fatal("Expected a distinct refined plan for empty results")
	}

	if r := refined.Filters["price"]; r.Max == nil || *r.Max != 24000 {
		t.Errorf("Expected max price broadened to 24000, got %v", r.Max)
	}
	if r := refined.Filters["battery"]; r.Min == nil || *r.Min != 4000 {
		t.Errorf("Expected min battery lowered to 4000, got %v", r.Min)
	}
	if refined.Reasoning.Adjustments == "" {
		t.Error("Expected refinement recorded in reasoning")
	}

	var hasGoogle bool
	for _, s := range refined.Sources {
		if s == "Google" {
			hasGoogle = true
		}
	}
	if !hasGoogle {
		t.Errorf("Expected generic sources merged in, got %v", refined.Sources)
	}
}

func TestRefineKeepsPlanWhenResultsExist(t *testing.T) {
	p := NewPlanner()
	plan := p.Plan("laptops under 60000")

	refined := p.Refine("laptops under 60000", []domain.Product{{ID: "l1"}})
	if refined != plan {
		t.Error("Expected plan unchanged when results exist")
	}
}
