package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFoodAnalysisPrompt(t *testing.T) {
	prompt := BuildFoodAnalysisPrompt("calories in kabsa", "Saudi Arabia", nil)

	assert.Contains(t, prompt, "User query: calories in kabsa")
	assert.Contains(t, prompt, "Country context: Saudi Arabia")
	assert.Contains(t, prompt, "Previous conversation: None")
	assert.Contains(t, prompt, `"user_intent"`)
	assert.Contains(t, prompt, `"ingredients_breakdown"`)
	assert.Contains(t, prompt, "USDA")
}

func TestBuildFoodAnalysisPrompt_NoCountry(t *testing.T) {
	prompt := BuildFoodAnalysisPrompt("apple", "", nil)

	assert.Contains(t, prompt, "Country context: Not specified")
}

func TestBuildFoodAnalysisPrompt_HistoryFormatting(t *testing.T) {
	history := []Exchange{
		{Query: "calories in hummus", Response: "Hummus contains 166 calories."},
		{Query: "remove tahini", Response: "Hummus contains 120 calories."},
	}

	prompt := BuildFoodAnalysisPrompt("add olive oil", "Lebanon", history)

	assert.Contains(t, prompt, "User: calories in hummus\nBot: Hummus contains 166 calories.")
	assert.Contains(t, prompt, "User: remove tahini\nBot: Hummus contains 120 calories.")
}

func TestBuildFoodAnalysisPrompt_HistoryTruncated(t *testing.T) {
	history := []Exchange{
		{Query: "first", Response: "r1"},
		{Query: "second", Response: "r2"},
		{Query: "third", Response: "r3"},
		{Query: "fourth", Response: "r4"},
	}

	prompt := BuildFoodAnalysisPrompt("latest", "", history)

	assert.NotContains(t, prompt, "User: first")
	assert.Contains(t, prompt, "User: second")
	assert.Contains(t, prompt, "User: fourth")

	// Only the last three exchanges survive
	assert.Equal(t, 3, strings.Count(prompt, "\nBot: "))
}

func TestBuildNutritionEstimatePrompt(t *testing.T) {
	prompt := BuildNutritionEstimatePrompt("mansaf")

	assert.Contains(t, prompt, "mansaf")
	assert.Contains(t, prompt, `"calories"`)
	assert.Contains(t, prompt, `"protein"`)
}
