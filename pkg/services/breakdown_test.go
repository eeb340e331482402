package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nutriarab/nutriarab-engine/pkg/apperrors"
	"github.com/nutriarab/nutriarab-engine/pkg/llm"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
	"github.com/nutriarab/nutriarab-engine/pkg/prompts"
)

func TestBreakdownService_Analyze(t *testing.T) {
	mock := llm.NewMockGenerator()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		assert.Contains(t, prompt, "calories in shawarma")
		assert.Contains(t, prompt, "Country context: Syria")
		return `{
			"dish_name": "Chicken Shawarma",
			"dish_name_arabic": "شاورما دجاج",
			"is_single_ingredient": false,
			"user_intent": "query_calories",
			"ingredients_breakdown": [
				{"name": "Chicken, broilers or fryers, breast, meat only, cooked, grilled", "weight_g": 150},
				{"name": "Bread, pita, white, enriched", "weight_g": 80}
			]
		}`, nil
	}

	svc := NewBreakdownService(mock, time.Second, zaptest.NewLogger(t))

	result, err := svc.Analyze(context.Background(), "calories in shawarma", "Syria", nil)
	require.NoError(t, err)
	assert.Equal(t, "Chicken Shawarma", result.DishName)
	assert.Equal(t, models.IntentNewQuery, result.Intent)
	assert.Len(t, result.Ingredients, 2)
	assert.Equal(t, 1, mock.GenerateResponseCalls)
}

func TestBreakdownService_AnalyzeNormalizesIntent(t *testing.T) {
	tests := []struct {
		raw      string
		expected models.Intent
	}{
		{"query_calories", models.IntentNewQuery},
		{"unknown_dish", models.IntentNewQuery},
		{"add_ingredient", models.IntentAddIngredient},
		{"remove_ingredient", models.IntentRemove},
		{"change_quantity", models.IntentChangeQuantity},
		{"something_else", models.IntentNewQuery},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			mock := llm.NewMockGenerator()
			mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
				return `{"dish_name": "x", "user_intent": "` + tt.raw + `"}`, nil
			}
			svc := NewBreakdownService(mock, time.Second, zaptest.NewLogger(t))

			result, err := svc.Analyze(context.Background(), "x", "", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Intent)
		})
	}
}

func TestBreakdownService_AnalyzeDropsInvalidWeights(t *testing.T) {
	mock := llm.NewMockGenerator()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return `{
			"dish_name": "Fattoush",
			"user_intent": "query_calories",
			"ingredients_breakdown": [
				{"name": "Lettuce, romaine, raw", "weight_g": 50},
				{"name": "Tomatoes, raw", "weight_g": 0},
				{"name": "", "weight_g": 30},
				{"name": "Cucumber, raw", "weight_g": -10}
			]
		}`, nil
	}
	svc := NewBreakdownService(mock, time.Second, zaptest.NewLogger(t))

	result, err := svc.Analyze(context.Background(), "fattoush", "", nil)
	require.NoError(t, err)
	require.Len(t, result.Ingredients, 1)
	assert.Equal(t, "Lettuce, romaine, raw", result.Ingredients[0].Name)
}

func TestBreakdownService_AnalyzeIncludesHistory(t *testing.T) {
	mock := llm.NewMockGenerator()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		assert.Contains(t, prompt, "User: calories in hummus")
		return `{"dish_name": "Hummus", "user_intent": "add_ingredient",
			"modifications": [{"action": "add", "ingredient": "Oil, olive", "new_weight_g": 15}]}`, nil
	}
	svc := NewBreakdownService(mock, time.Second, zaptest.NewLogger(t))

	history := []prompts.Exchange{{Query: "calories in hummus", Response: "Hummus contains 166 calories."}}
	result, err := svc.Analyze(context.Background(), "add olive oil", "Lebanon", history)
	require.NoError(t, err)
	assert.Equal(t, models.IntentAddIngredient, result.Intent)
	require.Len(t, result.Modifications, 1)
	assert.Equal(t, models.ModificationAdd, result.Modifications[0].Action)
	require.NotNil(t, result.Modifications[0].NewWeightG)
	assert.Equal(t, 15.0, *result.Modifications[0].NewWeightG)
}

func TestBreakdownService_AnalyzeRetriesTransientFailure(t *testing.T) {
	mock := llm.NewMockGenerator()
	calls := 0
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		calls++
		if calls == 1 {
			return "", llm.NewError(llm.ErrorTypeEndpoint, "connection failed", true, nil)
		}
		return `{"dish_name": "Tabbouleh", "user_intent": "query_calories"}`, nil
	}
	svc := NewBreakdownService(mock, time.Second, zaptest.NewLogger(t))

	result, err := svc.Analyze(context.Background(), "tabbouleh", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Tabbouleh", result.DishName)
	assert.Equal(t, 2, calls)
}

func TestBreakdownService_AnalyzePermanentFailureNotRetried(t *testing.T) {
	mock := llm.NewMockGenerator()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "", llm.NewError(llm.ErrorTypeAuth, "authentication failed", false, nil)
	}
	svc := NewBreakdownService(mock, time.Second, zaptest.NewLogger(t))

	_, err := svc.Analyze(context.Background(), "kofta", "", nil)
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	assert.Equal(t, 1, mock.GenerateResponseCalls)
}

func TestBreakdownService_AnalyzeMalformedResponse(t *testing.T) {
	mock := llm.NewMockGenerator()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "I'm not sure what that dish is.", nil
	}
	svc := NewBreakdownService(mock, time.Second, zaptest.NewLogger(t))

	_, err := svc.Analyze(context.Background(), "mystery", "", nil)
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
}

func TestBreakdownService_CircuitBreakerBlocksAfterFailures(t *testing.T) {
	mock := llm.NewMockGenerator()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		return "", llm.NewError(llm.ErrorTypeAuth, "authentication failed", false, nil)
	}
	svc := NewBreakdownService(mock, time.Second, zaptest.NewLogger(t))

	for i := 0; i < 5; i++ {
		_, err := svc.Analyze(context.Background(), "x", "", nil)
		require.Error(t, err)
	}

	// Circuit is open now: the provider is no longer called
	callsBefore := mock.GenerateResponseCalls
	_, err := svc.Analyze(context.Background(), "x", "", nil)
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	assert.Equal(t, callsBefore, mock.GenerateResponseCalls)
}

func TestBreakdownService_EstimateNutrition(t *testing.T) {
	mock := llm.NewMockGenerator()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temperature float64) (string, error) {
		assert.Contains(t, prompt, "mansaf")
		return `{"calories": 900, "carbs": 60, "protein": 55, "fat": 45}`, nil
	}
	svc := NewBreakdownService(mock, time.Second, zaptest.NewLogger(t))

	values, err := svc.EstimateNutrition(context.Background(), "mansaf")
	require.NoError(t, err)
	assert.Equal(t, 900.0, values.Calories)
	assert.Equal(t, 55.0, values.Protein)
}
