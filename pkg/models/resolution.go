package models

// ResolutionOutcome tags a ResolutionResult.
type ResolutionOutcome string

const (
	// OutcomeMatched means a catalog dish answered the query directly.
	OutcomeMatched ResolutionOutcome = "matched"
	// OutcomeEstimated means the answer was assembled from a provider
	// breakdown because the catalog had no confident match.
	OutcomeEstimated ResolutionOutcome = "estimated"
	// OutcomeUnresolved means no phase produced a usable answer.
	OutcomeUnresolved ResolutionOutcome = "unresolved"
)

// ResolutionResult is the tagged outcome of dish resolution. Exactly the
// fields relevant to the outcome are populated.
type ResolutionResult struct {
	Outcome ResolutionOutcome

	// Matched fields.
	Dish                      *DishRecord
	Confidence                float64
	SourceCountry             string
	MatchedInRequestedCountry bool

	// Estimated fields. Totals is set only for a totals-only estimate,
	// where the provider could not break the dish into ingredients.
	Ingredients      []IngredientSpec
	StandardizedName string
	LocalizedName    string
	Totals           *NutritionValues

	// Unresolved fields.
	QueryText string
}
