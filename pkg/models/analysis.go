package models

import (
	"encoding/json"

	"github.com/nutriarab/nutriarab-engine/pkg/jsonutil"
)

// Intent is the closed set of turn intents recognized at the breakdown
// provider boundary. Anything the provider reports outside this set is
// mapped to IntentUnknown, which the conversation layer treats as a fresh
// query.
type Intent string

const (
	IntentNewQuery       Intent = "new_query"
	IntentAddIngredient  Intent = "add_ingredient"
	IntentRemove         Intent = "remove_ingredient"
	IntentChangeQuantity Intent = "change_quantity"
	IntentUnknown        Intent = "unknown"
)

// ParseIntent validates a raw provider intent string into the closed enum.
// The provider's "query_calories", "unknown_dish" and "modify_dish" labels
// all collapse onto the enum: the first two are fresh queries, the last is
// disambiguated by the modification actions it carries.
func ParseIntent(raw string) Intent {
	switch raw {
	case "add_ingredient":
		return IntentAddIngredient
	case "remove_ingredient":
		return IntentRemove
	case "change_quantity":
		return IntentChangeQuantity
	case "query_calories", "unknown_dish", "new_query":
		return IntentNewQuery
	default:
		return IntentUnknown
	}
}

// IsModification reports whether the intent edits a previously resolved dish
// rather than starting a new resolution.
func (i Intent) IsModification() bool {
	switch i {
	case IntentAddIngredient, IntentRemove, IntentChangeQuantity:
		return true
	default:
		return false
	}
}

// ModificationAction is one edit extracted from the user message.
type ModificationAction string

const (
	ModificationAdd            ModificationAction = "add"
	ModificationRemove         ModificationAction = "remove"
	ModificationChangeQuantity ModificationAction = "change_quantity"
)

// Modification is a single requested ingredient edit.
type Modification struct {
	Action     ModificationAction `json:"action"`
	Ingredient string             `json:"ingredient"`
	NewWeightG *float64           `json:"new_weight_g,omitempty"`
}

// UnmarshalJSON tolerates weights returned as strings ("150g"), which the
// provider does under some prompts.
func (m *Modification) UnmarshalJSON(data []byte) error {
	var aux struct {
		Action     ModificationAction `json:"action"`
		Ingredient string             `json:"ingredient"`
		NewWeightG json.RawMessage    `json:"new_weight_g"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.Action = aux.Action
	m.Ingredient = aux.Ingredient
	m.NewWeightG = nil
	if v, ok := jsonutil.FlexibleFloat(aux.NewWeightG); ok {
		m.NewWeightG = &v
	}
	return nil
}

// IngredientEstimate is the provider's {name, weight} guess for one
// ingredient of a dish it broke down.
type IngredientEstimate struct {
	Name        string  `json:"name"`
	WeightGrams float64 `json:"weight_g"`
}

// UnmarshalJSON tolerates weights returned as strings. A non-numeric weight
// parses as zero and is discarded by the validation downstream.
func (e *IngredientEstimate) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name    string          `json:"name"`
		WeightG json.RawMessage `json:"weight_g"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.Name = aux.Name
	e.WeightGrams = 0
	if v, ok := jsonutil.FlexibleFloat(aux.WeightG); ok {
		e.WeightGrams = v
	}
	return nil
}

// AnalysisResult is the structured output of the breakdown provider for one
// user message.
type AnalysisResult struct {
	DishName           string               `json:"dish_name"`
	DishNameArabic     string               `json:"dish_name_arabic,omitempty"`
	IsSingleIngredient bool                 `json:"is_single_ingredient"`
	CountryVariant     string               `json:"country_variant,omitempty"`
	Intent             Intent               `json:"user_intent"`
	Modifications      []Modification       `json:"modifications,omitempty"`
	Ingredients        []IngredientEstimate `json:"ingredients_breakdown,omitempty"`
}
