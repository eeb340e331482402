package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionContext is the per-conversation working state: the last resolved
// dish and its current (possibly modified) ingredient list. It is distinct
// from the immutable catalog record it originated from.
type SessionContext struct {
	SessionID uuid.UUID `json:"session_id"`
	Country   string    `json:"country,omitempty"`

	// LastDish and LastDishIngredients hold the working copy mutated by
	// follow-up turns. Empty LastDish means no prior resolved dish.
	LastDish            string           `json:"last_dish,omitempty"`
	LastDishIngredients []IngredientSpec `json:"last_dish_ingredients,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// HasContext reports whether a prior resolved dish is available for
// modification turns.
func (s *SessionContext) HasContext() bool {
	return s != nil && s.LastDish != "" && len(s.LastDishIngredients) > 0
}

// Turn is one user/bot exchange in a session's history.
type Turn struct {
	ID          int64     `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	CreatedAt   time.Time `json:"created_at"`
}
