package models

// ResponseSource distinguishes catalog answers from provider estimates on
// the wire.
type ResponseSource string

const (
	SourceDataset     ResponseSource = "dataset"
	SourceAIEstimated ResponseSource = "ai_estimated"
)

// ChatRequest is one incoming conversation message.
type ChatRequest struct {
	Message   string `json:"message" validate:"required,min=1,max=2000"`
	SessionID string `json:"session_id,omitempty" validate:"omitempty,uuid4"`
	Country   string `json:"country,omitempty" validate:"omitempty,max=100"`
}

// ChatResponse is one conversation answer.
type ChatResponse struct {
	SessionID      string           `json:"session_id"`
	DishName       string           `json:"dish_name"`
	DishNameArabic string           `json:"dish_name_arabic,omitempty"`
	Ingredients    []IngredientSpec `json:"ingredients"`
	Totals         NutritionValues  `json:"totals"`
	Source         ResponseSource   `json:"source"`
	Message        string           `json:"message"`

	// Warnings carries non-fatal issues, e.g. a remove edit naming an
	// ingredient absent from the current dish.
	Warnings []string `json:"warnings,omitempty"`
}
