// Package prompts builds the LLM prompts used by the breakdown provider.
package prompts

import (
	"fmt"
	"strings"
)

// Exchange is one prior user/bot turn included as conversation context.
type Exchange struct {
	Query    string
	Response string
}

// historyLimit caps how many prior exchanges are included in the prompt.
const historyLimit = 3

// BuildFoodAnalysisSystemMessage returns the system message for food analysis.
func BuildFoodAnalysisSystemMessage() string {
	return `You are a food analysis assistant specialized in Arabic and Middle Eastern cuisine. You identify dishes, extract requested modifications, and estimate ingredient breakdowns with realistic weights.`
}

// BuildFoodAnalysisPrompt creates the prompt asking the LLM to analyze a food
// query: standardize the dish name, classify the user intent, extract
// modifications, and estimate an ingredient breakdown for unknown dishes.
func BuildFoodAnalysisPrompt(userMessage, country string, history []Exchange) string {
	var prompt strings.Builder

	prompt.WriteString("Analyze this food query and return ONLY valid JSON with no additional text or markdown formatting.\n\n")

	prompt.WriteString("IMPORTANT:\n")
	prompt.WriteString("- Ingredient names MUST use EXACT USDA FoodData Central naming.\n")
	prompt.WriteString("- ALWAYS search USDA FOUNDATION foods FIRST.\n")
	prompt.WriteString("- ONLY use SR Legacy if no Foundation food exists.\n")
	prompt.WriteString("- Do NOT rewrite, simplify, or localize ingredient names.\n\n")

	prompt.WriteString("Your task is to:\n")
	prompt.WriteString("1. Identify the dish name and standardize it\n")
	prompt.WriteString("2. Determine if it's a single ingredient or a composite dish\n")
	prompt.WriteString("3. Classify the user intent (query calories, add/remove ingredient, change quantity)\n")
	prompt.WriteString("4. Extract any modifications requested\n")
	prompt.WriteString("5. Provide an ingredient breakdown with estimated weights using USDA naming\n\n")

	prompt.WriteString("USDA DATA SOURCE PRIORITY (STRICT):\n")
	prompt.WriteString("For EVERY ingredient:\n")
	prompt.WriteString("1. First, attempt to match an EXACT USDA FoodData Central FOUNDATION food name.\n")
	prompt.WriteString("2. ONLY if NO Foundation food exists for that ingredient, use USDA SR Legacy.\n")
	prompt.WriteString("3. NEVER invent or paraphrase USDA food names.\n")
	prompt.WriteString("4. If unsure between multiple Foundation entries, choose the most generic raw or cooked form that matches the query.\n\n")

	prompt.WriteString("Return JSON in this exact format:\n")
	prompt.WriteString(`{
  "dish_name": "standardized English name",
  "dish_name_arabic": "Arabic name if known or null",
  "is_single_ingredient": true or false,
  "country_variant": "country if mentioned or inferred or null",
  "user_intent": "query_calories" or "add_ingredient" or "remove_ingredient" or "change_quantity" or "unknown_dish",
  "modifications": [
    {"action": "remove", "ingredient": "Potatoes, french fries"},
    {"action": "add", "ingredient": "Pickles, cucumber, dill", "new_weight_g": 30},
    {"action": "change_quantity", "ingredient": "Chicken, broilers or fryers, breast, meat only, cooked, grilled", "new_weight_g": 400}
  ],
  "ingredients_breakdown": [
    {"name": "Beef, ground, 80% lean meat / 20% fat, cooked, pan-browned", "weight_g": 160},
    {"name": "Bread, pita, white, enriched", "weight_g": 80},
    {"name": "Seeds, sesame butter, tahini", "weight_g": 30},
    {"name": "Tomatoes, raw", "weight_g": 30}
  ]
}
`)
	prompt.WriteString("\n")

	prompt.WriteString(fmt.Sprintf("User query: %s\n", userMessage))
	prompt.WriteString(fmt.Sprintf("Country context: %s\n", countryOrDefault(country)))
	prompt.WriteString(fmt.Sprintf("Previous conversation: %s\n\n", formatHistory(history)))

	prompt.WriteString("CRITICAL DISAMBIGUATION RULE:\n")
	prompt.WriteString("If the user query refers to a single raw fruit or vegetable (e.g. apple, banana, orange),\n")
	prompt.WriteString("ALWAYS treat it as a SINGLE INGREDIENT.\n")
	prompt.WriteString("NEVER interpret it as a sauce, dip, or composite dish, even if the word could mean something else in a regional dialect.\n\n")

	prompt.WriteString("If no size mentioned, use a STANDARD PORTION:\n")
	prompt.WriteString("- Fruits: medium size\n")
	prompt.WriteString("- Drinks: 1 cup (240ml)\n")
	prompt.WriteString("- Bread: 1 slice\n")
	prompt.WriteString("- Rice: 1 cup cooked\n\n")

	prompt.WriteString("Remember:\n")
	prompt.WriteString("- Return ONLY the JSON object, no markdown code blocks\n")
	prompt.WriteString("- Use null for optional fields that don't apply\n")
	prompt.WriteString("- Provide realistic weight estimates for ingredients\n")
	prompt.WriteString("- Consider country-specific variations\n")

	return prompt.String()
}

// BuildNutritionEstimatePrompt asks the LLM for a whole-dish nutrition
// estimate. Used as a fallback when no ingredient breakdown is possible.
func BuildNutritionEstimatePrompt(dishName string) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("Estimate the nutrition for one serving of this dish: %s\n\n", dishName))
	prompt.WriteString("Provide ONLY a JSON response with:\n")
	prompt.WriteString(`{
  "calories": <number>,
  "carbs": <number in grams>,
  "protein": <number in grams>,
  "fat": <number in grams>
}
`)
	prompt.WriteString("\nNo additional text, just the JSON.")

	return prompt.String()
}

// BuildNutritionEstimateSystemMessage returns the system message for the
// whole-dish estimation prompt.
func BuildNutritionEstimateSystemMessage() string {
	return `You are a nutritionist AI. You estimate realistic per-serving nutrition values for dishes.`
}

func countryOrDefault(country string) string {
	if country == "" {
		return "Not specified"
	}
	return country
}

func formatHistory(history []Exchange) string {
	if len(history) == 0 {
		return "None"
	}

	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	parts := make([]string, 0, len(history))
	for _, h := range history {
		parts = append(parts, fmt.Sprintf("User: %s\nBot: %s", h.Query, h.Response))
	}
	return strings.Join(parts, "\n")
}
