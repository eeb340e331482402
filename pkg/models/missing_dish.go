package models

import "time"

// ReviewStatus tracks administrative curation of a missing dish record.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewReviewed ReviewStatus = "reviewed"
	ReviewAdded    ReviewStatus = "added"
)

// MissingMatchRecord captures a query the catalog could not answer directly,
// so curators can add the dish later. One record per normalized
// (dish name, country) pair; repeats increment QueryCount.
type MissingMatchRecord struct {
	ID         int64  `json:"id"`
	DishName   string `json:"dish_name"`
	DishNameAr string `json:"dish_name_arabic,omitempty"`
	Country    string `json:"country"`
	QueryText  string `json:"query_text"`

	// Analysis preserves the breakdown provider's response for review.
	Analysis    *AnalysisResult      `json:"analysis,omitempty"`
	Ingredients []IngredientEstimate `json:"ingredients,omitempty"`

	QueryCount   int          `json:"query_count"`
	FirstQueried time.Time    `json:"first_queried"`
	LastQueried  time.Time    `json:"last_queried"`
	Status       ReviewStatus `json:"status"`
}
