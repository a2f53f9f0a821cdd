package search

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/browseease/browseease/internal/domain"
)

// Planner turns classified queries into task plans. Plans are cached by
// category plus filters rather than raw query text, so trivially
// reworded queries share one plan.
type Planner struct {
	mu    sync.Mutex
	cache map[string]*domain.TaskPlan
}

// NewPlanner creates a planner with an empty plan cache.
func NewPlanner() *Planner {
	return &Planner{cache: make(map[string]*domain.TaskPlan)}
}

// CacheKey builds the composite cache key for a category and filter set.
// Filters are serialized in sorted key order so equal filter sets always
// hash identically.
func CacheKey(category domain.Category, filters domain.Filters) string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha1.New()
	h.Write([]byte(category))
	h.Write([]byte("|"))
	for _, k := range keys {
		b, _ := json.Marshal(filters[k])
		fmt.Fprintf(h, "%s=%s;", k, b)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Plan generates (or recalls) the task plan for a query.
func (p *Planner) Plan(query string) *domain.TaskPlan {
	c := Classify(query)
	key := CacheKey(c.Category, c.Filters)

	p.mu.Lock()
	defer p.mu.Unlock()
	if plan, ok := p.cache[key]; ok {
		slog.Debug("Task plan cache hit", "category", c.Category, "key", key)
		return plan
	}

	plan := &domain.TaskPlan{
		Category: c.Category,
		Filters:  c.Filters,
		Sources:  c.Sources,
		Actions:  c.Actions,
		Reasoning: domain.Reasoning{
			DetectedCategory:   c.Category,
			AppliedFilters:     c.Filters,
			SelectedSources:    c.Sources,
			QueryUnderstanding: fmt.Sprintf("Understood query as a request for %s with specific constraints.", c.Category),
		},
	}
	if c.Category == domain.CategoryOther {
		plan.Reasoning.QueryUnderstanding = "Could not confidently classify the query into a specific category."
		plan.Status = "uncertain"
		plan.Suggestion = "Please provide more specific details about what you're looking for."
	}

	if err := validatePlan(plan); err != nil {
		slog.Warn("Generated invalid task plan", "error", err)
		if plan.Category == "" {
			plan.Category = domain.CategoryOther
		}
		if len(plan.Actions) == 0 {
			plan.Actions = []string{"search"}
		}
	}

	p.cache[key] = plan
	return plan
}

// Refine broadens a plan when the initial results were empty or too thin:
// minimum bounds shrink and maximum bounds grow by 20%, and the generic
// sources are added. The refined plan replaces the cached one.
func (p *Planner) Refine(query string, results []domain.Product) *domain.TaskPlan {
	plan := p.Plan(query)
	if len(results) > 0 {
		return plan
	}

	refined := *plan
	refined.Filters = make(domain.Filters, len(plan.Filters))
	for name, r := range plan.Filters {
		nr := domain.Range{}
		if r.Min != nil {
			v := *r.Min * 0.8
			nr.Min = &v
		}
		if r.Max != nil {
			v := *r.Max * 1.2
			nr.Max = &v
		}
		refined.Filters[name] = nr
	}
	refined.Sources = mergeSources(plan.Sources, categorySources[domain.CategoryOther])
	refined.Reasoning.AppliedFilters = refined.Filters
	refined.Reasoning.Adjustments = "Broadened filters and added more sources due to insufficient results."

	key := CacheKey(refined.Category, refined.Filters)
	p.mu.Lock()
	p.cache[key] = &refined
	p.mu.Unlock()

	return &refined
}

func mergeSources(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func validatePlan(plan *domain.TaskPlan) error {
	if plan.Category == "" {
		return fmt.Errorf("task plan missing category")
	}
	if len(plan.Actions) == 0 {
		return fmt.Errorf("task plan missing actions")
	}
	return nil
}
