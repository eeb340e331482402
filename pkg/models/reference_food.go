package models

import "time"

// ReferenceFood is a nutrition-per-100g record (USDA FoodData Central
// naming). Immutable once imported except for administrative correction.
type ReferenceFood struct {
	ID          int64     `json:"id"`
	FdcID       int64     `json:"fdc_id"`
	Description string    `json:"description"`
	// Per-100g values.
	Calories  float64   `json:"calories"`
	Protein   float64   `json:"protein"`
	Carbs     float64   `json:"carbs"`
	Fat       float64   `json:"fat"`
	Source    string    `json:"source,omitempty"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Per100g returns the reference nutrition densities as NutritionValues.
func (f ReferenceFood) Per100g() NutritionValues {
	return NutritionValues{
		Calories: f.Calories,
		Carbs:    f.Carbs,
		Protein:  f.Protein,
		Fat:      f.Fat,
	}
}
