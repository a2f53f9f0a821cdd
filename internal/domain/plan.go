package domain

// Category classifies a search query into a product vertical.
type Category string

const (
	CategoryMobiles  Category = "Mobiles"
	CategoryScooters Category = "EV Scooters"
	CategoryLaptops  Category = "Laptops"
	CategoryTravel   Category = "Travel"
	CategoryOther    Category = "Other"
)

// Range bounds a numeric filter. A nil bound means unconstrained.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Filters maps a filter name (price, battery, ram, ...) to its bounds.
type Filters map[string]Range

// Reasoning explains how a task plan was derived from the query.
type Reasoning struct {
	DetectedCategory   Category `json:"detected_category"`
	AppliedFilters     Filters  `json:"applied_filters"`
	SelectedSources    []string `json:"selected_sources"`
	QueryUnderstanding string   `json:"query_understanding"`
	Adjustments        string   `json:"adjustments,omitempty"`
}

// TaskPlan is the structured plan the search engine executes for a query.
type TaskPlan struct {
	Category   Category  `json:"category"`
	Filters    Filters   `json:"filters"`
	Sources    []string  `json:"sources"`
	Actions    []string  `json:"actions"`
	Reasoning  Reasoning `json:"reasoning"`
	Status     string    `json:"status,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// HasAction reports whether the plan includes the named action.
func (p *TaskPlan) HasAction(action string) bool {
	for _, a := range p.Actions {
		if a == action {
			return true
		}
	}
	return false
}
