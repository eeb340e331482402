// Package services implements the engine's domain logic: nutrition math,
// phased dish and ingredient resolution, LLM breakdown, conversation state
// and missing-match recording.
package services

import (
	"math"

	"github.com/nutriarab/nutriarab-engine/pkg/models"
)

// NutritionCalculator scales per-100g reference values to concrete weights
// and aggregates ingredient nutrition into dish totals. All methods are pure.
type NutritionCalculator struct{}

// NewNutritionCalculator creates a new NutritionCalculator.
func NewNutritionCalculator() *NutritionCalculator {
	return &NutritionCalculator{}
}

// roundTo1 rounds to one decimal place, ties to even. Half-to-even keeps
// repeated scale/aggregate cycles from drifting upward.
func roundTo1(x float64) float64 {
	return math.RoundToEven(x*10) / 10
}

// Round rounds every nutrition field to one decimal place.
func (c *NutritionCalculator) Round(v models.NutritionValues) models.NutritionValues {
	return models.NutritionValues{
		Calories: roundTo1(v.Calories),
		Carbs:    roundTo1(v.Carbs),
		Protein:  roundTo1(v.Protein),
		Fat:      roundTo1(v.Fat),
	}
}

// Scale converts per-100g reference values to the given weight in grams,
// rounding each field to one decimal place.
func (c *NutritionCalculator) Scale(per100g models.NutritionValues, weightGrams float64) models.NutritionValues {
	factor := weightGrams / 100
	return c.Round(models.NutritionValues{
		Calories: per100g.Calories * factor,
		Carbs:    per100g.Carbs * factor,
		Protein:  per100g.Protein * factor,
		Fat:      per100g.Fat * factor,
	})
}

// Aggregate sums ingredient nutrition into dish totals. Fields are summed
// first and rounded once at the end, so the result does not depend on
// ingredient order.
func (c *NutritionCalculator) Aggregate(ingredients []models.IngredientSpec) models.NutritionValues {
	var total models.NutritionValues
	for _, ing := range ingredients {
		total = total.Add(ing.Nutrition())
	}
	return c.Round(total)
}
