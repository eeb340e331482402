package models

import "time"

// DishRecord is a curated dish in the catalog. Totals always equal the sum
// of the ingredient nutrition; they are recomputed whenever the ingredient
// list changes and never edited independently.
type DishRecord struct {
	ID          int64            `json:"id"`
	Name        string           `json:"dish_name"`
	NameArabic  string           `json:"dish_name_arabic,omitempty"`
	Country     string           `json:"country"`
	Ingredients []IngredientSpec `json:"ingredients"`
	Totals      NutritionValues  `json:"totals"`
	Embedding   []float32        `json:"-"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// IngredientSpec is one ingredient at a concrete weight. Nutrition values
// are already scaled to WeightGrams, not per-100g.
type IngredientSpec struct {
	Name        string `json:"name"`
	WeightGrams float64 `json:"weight_g"`

	// ReferenceFoodID links back to the reference food the nutrition came
	// from, when one was resolved.
	ReferenceFoodID *int64 `json:"reference_fdc_id,omitempty"`

	Calories float64 `json:"calories"`
	Carbs    float64 `json:"carbs"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`

	// UnresolvedNutrition marks an ingredient no reference food matched;
	// its nutrition fields are zero and the weight is the requested one.
	UnresolvedNutrition bool `json:"unresolved_nutrition,omitempty"`
}

// Nutrition returns the ingredient's scaled nutrition values.
func (i IngredientSpec) Nutrition() NutritionValues {
	return NutritionValues{
		Calories: i.Calories,
		Carbs:    i.Carbs,
		Protein:  i.Protein,
		Fat:      i.Fat,
	}
}
