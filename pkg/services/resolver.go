package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/nutriarab/nutriarab-engine/pkg/apperrors"
	"github.com/nutriarab/nutriarab-engine/pkg/config"
	"github.com/nutriarab/nutriarab-engine/pkg/llm"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
	"github.com/nutriarab/nutriarab-engine/pkg/repositories"
	"github.com/nutriarab/nutriarab-engine/pkg/retry"
)

// Resolver turns a dish or ingredient name into nutrition data by running
// matching phases in order: exact/prefix lookup, country-scoped vector
// search, global vector search over a descending threshold ladder, then the
// LLM breakdown fallback.
type Resolver struct {
	dishes    repositories.DishRepository
	refFoods  repositories.ReferenceFoodRepository
	embedder  llm.Embedder
	breakdown *BreakdownService
	calc      *NutritionCalculator
	cfg       config.ResolutionConfig
	logger    *zap.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(
	dishes repositories.DishRepository,
	refFoods repositories.ReferenceFoodRepository,
	embedder llm.Embedder,
	breakdown *BreakdownService,
	calc *NutritionCalculator,
	cfg config.ResolutionConfig,
	logger *zap.Logger,
) *Resolver {
	return &Resolver{
		dishes:    dishes,
		refFoods:  refFoods,
		embedder:  embedder,
		breakdown: breakdown,
		calc:      calc,
		cfg:       cfg,
		logger:    logger.Named("resolver"),
	}
}

// ResolveDish resolves a dish query against the catalog. The hint, when
// present, carries an already-obtained provider analysis (standardized name
// and ingredient estimates) so the fallback phase does not call the provider
// a second time.
func (r *Resolver) ResolveDish(ctx context.Context, queryText, country string, hint *models.AnalysisResult) (*models.ResolutionResult, error) {
	name := CleanQueryText(queryText)
	if hint != nil && hint.DishName != "" {
		name = hint.DishName
	}

	// Phase 1: exact/prefix within the requested country. Accepted
	// unconditionally.
	if dish := r.findByName(ctx, name, country); dish != nil {
		return &models.ResolutionResult{
			Outcome:                   models.OutcomeMatched,
			Dish:                      dish,
			Confidence:                1.0,
			SourceCountry:             dish.Country,
			MatchedInRequestedCountry: true,
		}, nil
	}

	// Phases 2 and 3: vector search, country first, then global over the
	// descending threshold ladder. An embedding failure skips straight to
	// the fallback phase.
	candidate := r.searchVector(ctx, name, country)

	if candidate != nil && candidate.Similarity >= r.cfg.MinConfidence {
		return candidate.result(), nil
	}

	// Phase 4: the candidate (if any) cleared the search threshold but not
	// the confidence gate; a fresh estimate beats a shaky catalog hit.
	estimated, err := r.estimateFromBreakdown(ctx, queryText, name, country, hint)
	if err == nil {
		return estimated, nil
	}

	if candidate != nil {
		// Provider is down but we still hold a usable catalog match.
		r.logger.Warn("breakdown unavailable, using low-confidence match",
			zap.String("query", name),
			zap.Float64("similarity", candidate.Similarity),
			zap.Error(err))
		return candidate.result(), nil
	}

	if errors.Is(err, apperrors.ErrProviderUnavailable) {
		return nil, err
	}

	// Phase 5: nothing usable anywhere.
	return &models.ResolutionResult{
		Outcome:   models.OutcomeUnresolved,
		QueryText: name,
	}, nil
}

// errNoUsableBreakdown signals a provider answer with no ingredients, which
// is an Unresolved outcome rather than a provider failure.
var errNoUsableBreakdown = errors.New("breakdown yielded no usable ingredients")

func (r *Resolver) estimateFromBreakdown(ctx context.Context, queryText, name, country string, hint *models.AnalysisResult) (*models.ResolutionResult, error) {
	analysis := hint
	if analysis == nil {
		var err error
		analysis, err = r.breakdown.Analyze(ctx, queryText, country, nil)
		if err != nil {
			return nil, err
		}
	}

	standardized := analysis.DishName
	if standardized == "" {
		standardized = name
	}

	if len(analysis.Ingredients) == 0 {
		// No breakdown to price ingredient by ingredient. Ask the
		// provider for dish-level totals instead; a zero-calorie answer
		// is no answer.
		totals, err := r.breakdown.EstimateNutrition(ctx, standardized)
		if err != nil || totals.Calories <= 0 {
			return nil, errNoUsableBreakdown
		}
		return &models.ResolutionResult{
			Outcome:          models.OutcomeEstimated,
			StandardizedName: standardized,
			LocalizedName:    analysis.DishNameArabic,
			Totals:           totals,
		}, nil
	}

	ingredients := make([]models.IngredientSpec, 0, len(analysis.Ingredients))
	for _, est := range analysis.Ingredients {
		ingredients = append(ingredients, r.ResolveIngredient(ctx, est.Name, est.WeightGrams))
	}

	return &models.ResolutionResult{
		Outcome:          models.OutcomeEstimated,
		Ingredients:      ingredients,
		StandardizedName: standardized,
		LocalizedName:    analysis.DishNameArabic,
	}, nil
}

// ResolveIngredient resolves one ingredient name against the reference
// foods and scales its per-100g values to the requested weight. When no
// reference food is accepted the ingredient keeps its weight with zero
// nutrition and is flagged unresolved.
func (r *Resolver) ResolveIngredient(ctx context.Context, name string, weightGrams float64) models.IngredientSpec {
	if food := r.findReferenceFood(ctx, name); food != nil {
		spec := models.IngredientSpec{
			Name:            food.Description,
			WeightGrams:     weightGrams,
			ReferenceFoodID: &food.FdcID,
		}
		n := r.calc.Scale(food.Per100g(), weightGrams)
		spec.Calories, spec.Carbs, spec.Protein, spec.Fat = n.Calories, n.Carbs, n.Protein, n.Fat
		return spec
	}

	return models.IngredientSpec{
		Name:                name,
		WeightGrams:         weightGrams,
		UnresolvedNutrition: true,
	}
}

// RescaleIngredient recomputes an ingredient's nutrition at a new weight.
// When the ingredient carries a reference food id the per-100g densities
// are re-read from the reference, otherwise the current values are scaled
// linearly.
func (r *Resolver) RescaleIngredient(ctx context.Context, ing models.IngredientSpec, newWeightGrams float64) models.IngredientSpec {
	if ing.ReferenceFoodID != nil {
		food, err := r.refFoods.GetByFdcID(ctx, *ing.ReferenceFoodID)
		if err == nil {
			n := r.calc.Scale(food.Per100g(), newWeightGrams)
			ing.WeightGrams = newWeightGrams
			ing.Calories, ing.Carbs, ing.Protein, ing.Fat = n.Calories, n.Carbs, n.Protein, n.Fat
			return ing
		}
		r.logger.Warn("reference food lookup failed, rescaling linearly",
			zap.Int64("fdc_id", *ing.ReferenceFoodID), zap.Error(err))
	}

	if ing.WeightGrams > 0 {
		factor := newWeightGrams / ing.WeightGrams
		n := r.calc.Round(models.NutritionValues{
			Calories: ing.Calories * factor,
			Carbs:    ing.Carbs * factor,
			Protein:  ing.Protein * factor,
			Fat:      ing.Fat * factor,
		})
		ing.Calories, ing.Carbs, ing.Protein, ing.Fat = n.Calories, n.Carbs, n.Protein, n.Fat
	}
	ing.WeightGrams = newWeightGrams
	return ing
}

func (r *Resolver) findReferenceFood(ctx context.Context, name string) *models.ReferenceFood {
	// Exact phase. Accepted unconditionally.
	food, err := r.refFoods.FindExact(ctx, name)
	if err == nil {
		return food
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		r.logger.Warn("reference exact lookup failed", zap.String("name", name), zap.Error(err))
	}

	// Prefix phase, still subject to the superset guard: "tomato" must not
	// land on a composite multi-ingredient product.
	food, err = r.refFoods.FindPrefix(ctx, name)
	if err == nil && !r.isTokenSuperset(name, food.Description) {
		return food
	}
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		r.logger.Warn("reference prefix lookup failed", zap.String("name", name), zap.Error(err))
	}

	// Vector phases over the threshold ladder.
	embedding, err := r.embed(ctx, name)
	if err != nil {
		r.logger.Warn("embedding unavailable for ingredient", zap.String("name", name), zap.Error(err))
		return nil
	}

	for _, threshold := range r.cfg.ThresholdLadder() {
		matches, err := r.refFoods.SearchVector(ctx, embedding, threshold, r.searchLimit())
		if err != nil {
			r.logger.Warn("reference vector search failed",
				zap.Float64("threshold", threshold), zap.Error(err))
			return nil
		}
		for _, m := range matches {
			if !r.isTokenSuperset(name, m.Food.Description) {
				return m.Food
			}
		}
	}

	return nil
}

// dishCandidate is a vector-phase hit pending the confidence gate.
type dishCandidate struct {
	Dish               *models.DishRecord
	Similarity         float64
	InRequestedCountry bool
}

func (c *dishCandidate) result() *models.ResolutionResult {
	return &models.ResolutionResult{
		Outcome:                   models.OutcomeMatched,
		Dish:                      c.Dish,
		Confidence:                c.Similarity,
		SourceCountry:             c.Dish.Country,
		MatchedInRequestedCountry: c.InRequestedCountry,
	}
}

func (r *Resolver) findByName(ctx context.Context, name, country string) *models.DishRecord {
	dish, err := r.dishes.FindExact(ctx, name, country)
	if err == nil {
		return dish
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		r.logger.Warn("exact lookup failed", zap.String("name", name), zap.Error(err))
	}

	dish, err = r.dishes.FindPrefix(ctx, name, country)
	if err == nil {
		return dish
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		r.logger.Warn("prefix lookup failed", zap.String("name", name), zap.Error(err))
	}

	return nil
}

func (r *Resolver) searchVector(ctx context.Context, name, country string) *dishCandidate {
	embedding, err := r.embed(ctx, name)
	if err != nil {
		r.logger.Warn("embedding unavailable, skipping vector phases",
			zap.String("query", name), zap.Error(err))
		return nil
	}

	// Phase 2: country-scoped at the base threshold.
	if country != "" {
		matches, err := r.dishes.SearchVector(ctx, embedding, country, r.cfg.SimilarityThreshold, r.searchLimit())
		if err != nil {
			r.logger.Warn("country vector search failed", zap.Error(err))
		} else if len(matches) > 0 {
			return &dishCandidate{
				Dish:               matches[0].Dish,
				Similarity:         matches[0].Similarity,
				InRequestedCountry: true,
			}
		}
	}

	// Phase 3: global, lowering the threshold one rung at a time.
	for _, threshold := range r.cfg.ThresholdLadder() {
		matches, err := r.dishes.SearchVector(ctx, embedding, "", threshold, r.searchLimit())
		if err != nil {
			r.logger.Warn("global vector search failed",
				zap.Float64("threshold", threshold), zap.Error(err))
			return nil
		}
		if len(matches) > 0 {
			return &dishCandidate{
				Dish:               matches[0].Dish,
				Similarity:         matches[0].Similarity,
				InRequestedCountry: strings.EqualFold(matches[0].Dish.Country, country),
			}
		}
	}

	return nil
}

func (r *Resolver) embed(ctx context.Context, text string) ([]float32, error) {
	return retry.DoWithResult(ctx, retry.ProviderConfig(), func() ([]float32, error) {
		return r.embedder.CreateEmbedding(ctx, text)
	})
}

func (r *Resolver) searchLimit() int {
	if r.cfg.SearchLimit > 0 {
		return r.cfg.SearchLimit
	}
	return 10
}

// stopTokens are glue words ignored by the superset guard.
var stopTokens = map[string]struct{}{
	"and": {}, "or": {}, "with": {}, "without": {}, "of": {}, "in": {},
	"the": {}, "a": {}, "an": {}, "to": {}, "for": {}, "on": {},
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// isTokenSuperset reports whether the candidate description carries more
// than MaxExtraTokens meaningful tokens beyond the query. Tokens are
// lowercased and singularized so "tomatoes" and "tomato" compare equal.
func (r *Resolver) isTokenSuperset(query, candidate string) bool {
	queryTokens := normalizeTokens(query)
	extra := 0
	for token := range normalizeTokens(candidate) {
		if _, ok := queryTokens[token]; !ok {
			extra++
		}
	}
	return extra > r.maxExtraTokens()
}

func (r *Resolver) maxExtraTokens() int {
	if r.cfg.MaxExtraTokens > 0 {
		return r.cfg.MaxExtraTokens
	}
	return 3
}

func normalizeTokens(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, token := range tokenPattern.FindAllString(strings.ToLower(s), -1) {
		if _, stop := stopTokens[token]; stop {
			continue
		}
		tokens[inflection.Singular(token)] = struct{}{}
	}
	return tokens
}

// queryPrefixes are conversational framings stripped when a raw message has
// to stand in for a dish name.
var queryPrefixes = []string{
	"how many calories are in",
	"how many calories in",
	"calories in",
	"calories of",
	"what is the calories of",
	"what is",
	"nutrition of",
	"nutrition in",
}

// CleanQueryText strips question framing from a raw message so it can be
// matched as a dish name. Used when no provider analysis is available.
func CleanQueryText(text string) string {
	cleaned := strings.TrimSpace(text)
	lower := strings.ToLower(cleaned)
	for _, prefix := range queryPrefixes {
		if strings.HasPrefix(lower, prefix+" ") {
			cleaned = strings.TrimSpace(cleaned[len(prefix):])
			break
		}
	}
	return strings.TrimSuffix(strings.TrimSpace(cleaned), "?")
}
