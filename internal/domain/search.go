package domain

import "time"

// SearchRecord is one persisted search, kept for the shopper's history.
type SearchRecord struct {
	ID          string    `json:"id"`
	ShopperID   string    `json:"shopper_id"`
	Query       string    `json:"query"`
	Category    Category  `json:"category"`
	PlanJSON    string    `json:"plan_json,omitempty"`
	ResultCount int       `json:"result_count"`
	CreatedAt   time.Time `json:"created_at"`
}
