package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nutriarab/nutriarab-engine/pkg/apperrors"
	"github.com/nutriarab/nutriarab-engine/pkg/llm"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
	"github.com/nutriarab/nutriarab-engine/pkg/prompts"
	"github.com/nutriarab/nutriarab-engine/pkg/retry"
)

// breakdownTemperature keeps the provider's output near-deterministic so the
// same query yields the same breakdown.
const breakdownTemperature = 0.1

// BreakdownService calls the LLM provider to analyze a food query:
// standardized dish name, intent, modifications and an ingredient-weight
// breakdown. Calls are bounded by a timeout, retried once on transient
// failure and guarded by a circuit breaker.
type BreakdownService struct {
	generator llm.Generator
	breaker   *llm.CircuitBreaker
	timeout   time.Duration
	logger    *zap.Logger
}

// NewBreakdownService creates a new BreakdownService.
func NewBreakdownService(generator llm.Generator, timeout time.Duration, logger *zap.Logger) *BreakdownService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BreakdownService{
		generator: generator,
		breaker:   llm.NewCircuitBreaker(llm.DefaultCircuitBreakerConfig()),
		timeout:   timeout,
		logger:    logger.Named("breakdown"),
	}
}

// Analyze sends the food-analysis prompt and parses the provider's JSON
// answer. The reported intent is validated into the closed enum; anything
// unrecognized comes back as a fresh query.
func (s *BreakdownService) Analyze(ctx context.Context, userMessage, country string, history []prompts.Exchange) (*models.AnalysisResult, error) {
	prompt := prompts.BuildFoodAnalysisPrompt(userMessage, country, history)
	system := prompts.BuildFoodAnalysisSystemMessage()

	response, err := s.generate(ctx, prompt, system)
	if err != nil {
		return nil, err
	}

	result, err := llm.ParseJSONResponse[models.AnalysisResult](response)
	if err != nil {
		s.logger.Warn("unparseable analysis response",
			zap.Int("response_len", len(response)),
			zap.Error(err))
		return nil, fmt.Errorf("parse analysis: %w: %w", apperrors.ErrProviderUnavailable, err)
	}

	// Boundary validation: collapse the provider's free-form intent label
	// onto the closed enum.
	result.Intent = models.ParseIntent(string(result.Intent))
	if result.Intent == models.IntentUnknown {
		result.Intent = models.IntentNewQuery
	}

	// Drop estimates with non-positive weights rather than poisoning the
	// nutrition math downstream.
	valid := result.Ingredients[:0]
	for _, ing := range result.Ingredients {
		if ing.WeightGrams > 0 && ing.Name != "" {
			valid = append(valid, ing)
		}
	}
	result.Ingredients = valid

	return &result, nil
}

// EstimateNutrition asks the provider for whole-dish per-serving totals.
// Used when a breakdown yields no usable ingredients.
func (s *BreakdownService) EstimateNutrition(ctx context.Context, dishName string) (*models.NutritionValues, error) {
	prompt := prompts.BuildNutritionEstimatePrompt(dishName)
	system := prompts.BuildNutritionEstimateSystemMessage()

	response, err := s.generate(ctx, prompt, system)
	if err != nil {
		return nil, err
	}

	values, err := llm.ParseJSONResponse[models.NutritionValues](response)
	if err != nil {
		return nil, fmt.Errorf("parse nutrition estimate: %w: %w", apperrors.ErrProviderUnavailable, err)
	}

	return &values, nil
}

// generate runs one guarded provider call: circuit breaker, timeout, single
// retry on transient failure.
func (s *BreakdownService) generate(ctx context.Context, prompt, system string) (string, error) {
	if allowed, err := s.breaker.Allow(); !allowed {
		return "", fmt.Errorf("%w: %w", apperrors.ErrProviderUnavailable, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var response string
	err := retry.DoIfRetryable(callCtx, retry.ProviderConfig(), func() error {
		var callErr error
		response, callErr = s.generator.GenerateResponse(callCtx, prompt, system, breakdownTemperature)
		return callErr
	})
	if err != nil {
		s.breaker.RecordFailure()
		s.logger.Error("provider call failed",
			zap.String("model", s.generator.GetModel()),
			zap.Error(err))
		return "", fmt.Errorf("%w: %w", apperrors.ErrProviderUnavailable, err)
	}

	s.breaker.RecordSuccess()
	return response, nil
}
