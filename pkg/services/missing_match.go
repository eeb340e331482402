package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/nutriarab/nutriarab-engine/pkg/models"
	"github.com/nutriarab/nutriarab-engine/pkg/repositories"
)

// MissingMatchService records queries the catalog could not answer
// directly, for later curation into dishes.
type MissingMatchService struct {
	repo   repositories.MissingMatchRepository
	logger *zap.Logger
}

// NewMissingMatchService creates a new MissingMatchService.
func NewMissingMatchService(repo repositories.MissingMatchRepository, logger *zap.Logger) *MissingMatchService {
	return &MissingMatchService{
		repo:   repo,
		logger: logger.Named("missing-match"),
	}
}

// Record stores a catalog gap. Only Estimated and Unresolved outcomes are
// recorded; a Matched dish is not a gap. An Estimated outcome counts
// because needing the provider fallback means the catalog lacked the dish.
// Recording failures are logged, never surfaced: the answer to the user
// does not depend on bookkeeping.
func (s *MissingMatchService) Record(ctx context.Context, result *models.ResolutionResult, queryText, country string, analysis *models.AnalysisResult) {
	if result == nil || result.Outcome == models.OutcomeMatched {
		return
	}

	name := result.StandardizedName
	if name == "" {
		name = result.QueryText
	}
	if name == "" {
		name = CleanQueryText(queryText)
	}

	rec := &models.MissingMatchRecord{
		DishName:  name,
		Country:   country,
		QueryText: queryText,
		Status:    models.ReviewPending,
	}
	if analysis != nil {
		rec.DishNameAr = analysis.DishNameArabic
		rec.Analysis = analysis
		rec.Ingredients = analysis.Ingredients
	}

	if err := s.repo.Upsert(ctx, rec); err != nil {
		s.logger.Warn("failed to record missing match",
			zap.String("dish", name),
			zap.String("country", country),
			zap.Error(err))
		return
	}

	s.logger.Info("recorded missing match",
		zap.String("dish", name),
		zap.String("country", country),
		zap.Int("query_count", rec.QueryCount))
}
