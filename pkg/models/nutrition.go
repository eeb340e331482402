package models

// NutritionValues carries the four tracked macros. Values are absolute
// amounts (kcal / grams), not per-100g densities, unless a field or table
// explicitly says otherwise.
type NutritionValues struct {
	Calories float64 `json:"calories"`
	Carbs    float64 `json:"carbs"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
}

// Add returns the field-wise sum of two nutrition values.
func (n NutritionValues) Add(o NutritionValues) NutritionValues {
	return NutritionValues{
		Calories: n.Calories + o.Calories,
		Carbs:    n.Carbs + o.Carbs,
		Protein:  n.Protein + o.Protein,
		Fat:      n.Fat + o.Fat,
	}
}
