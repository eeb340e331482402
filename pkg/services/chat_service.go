package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nutriarab/nutriarab-engine/pkg/apperrors"
	"github.com/nutriarab/nutriarab-engine/pkg/config"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
	"github.com/nutriarab/nutriarab-engine/pkg/prompts"
	"github.com/nutriarab/nutriarab-engine/pkg/repositories"
)

// ChatService runs the per-session conversation state machine: fresh
// queries go through the resolver, follow-up modifications edit the
// session's working ingredient list without re-resolving the dish.
type ChatService struct {
	sessions  repositories.SessionRepository
	resolver  *Resolver
	breakdown *BreakdownService
	missing   *MissingMatchService
	calc      *NutritionCalculator
	locker    SessionLocker
	cfg       config.SessionConfig
	logger    *zap.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(
	sessions repositories.SessionRepository,
	resolver *Resolver,
	breakdown *BreakdownService,
	missing *MissingMatchService,
	calc *NutritionCalculator,
	locker SessionLocker,
	cfg config.SessionConfig,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		sessions:  sessions,
		resolver:  resolver,
		breakdown: breakdown,
		missing:   missing,
		calc:      calc,
		locker:    locker,
		cfg:       cfg,
		logger:    logger.Named("chat"),
	}
}

// HandleMessage processes one conversation turn. Context reads and writes
// for a session are serialized behind a per-session lock; concurrent turns
// on different sessions never contend.
func (s *ChatService) HandleMessage(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	sessionID := uuid.New()
	if req.SessionID != "" {
		parsed, err := uuid.Parse(req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse session id: %w", err)
		}
		sessionID = parsed
	}

	unlock, err := s.locker.Lock(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	defer unlock()

	session, err := s.getOrCreateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	country := req.Country
	if country == "" {
		country = session.Country
	}
	if country == "" {
		country = s.cfg.DefaultCountry
	}

	history := s.history(ctx, session.SessionID)

	// Classify the turn. A provider failure here degrades to a fresh
	// query over the raw message rather than failing the turn: the
	// catalog phases can still answer without an analysis.
	analysis, err := s.breakdown.Analyze(ctx, req.Message, country, history)
	if err != nil {
		s.logger.Warn("message analysis unavailable, treating as new query",
			zap.String("session_id", session.SessionID.String()),
			zap.Error(err))
		analysis = nil
	}

	var resp *models.ChatResponse
	if analysis != nil && analysis.Intent.IsModification() && session.HasContext() {
		resp, err = s.handleModification(ctx, session, analysis)
	} else {
		resp, err = s.handleNewQuery(ctx, session, req.Message, country, analysis)
	}
	if err != nil {
		return nil, err
	}

	session.Country = country
	if err := s.commitTurn(ctx, session, req.Message, resp.Message); err != nil {
		return nil, err
	}

	resp.SessionID = session.SessionID.String()
	return resp, nil
}

func (s *ChatService) handleNewQuery(ctx context.Context, session *models.SessionContext, message, country string, analysis *models.AnalysisResult) (*models.ChatResponse, error) {
	if analysis != nil && analysis.IsSingleIngredient && len(analysis.Ingredients) > 0 {
		if resp := s.answerSingleIngredient(ctx, session, analysis); resp != nil {
			return resp, nil
		}
	}

	result, err := s.resolver.ResolveDish(ctx, message, country, analysis)
	if err != nil {
		return nil, err
	}

	switch result.Outcome {
	case models.OutcomeMatched:
		dish := result.Dish
		ingredients := append([]models.IngredientSpec(nil), dish.Ingredients...)
		session.LastDish = dish.Name
		session.LastDishIngredients = ingredients

		foreign := ""
		if !result.MatchedInRequestedCountry {
			foreign = result.SourceCountry
		}
		return &models.ChatResponse{
			DishName:       dish.Name,
			DishNameArabic: dish.NameArabic,
			Ingredients:    ingredients,
			Totals:         dish.Totals,
			Source:         models.SourceDataset,
			Message:        composeMessage(dish.Name, dish.Totals, false, foreign),
		}, nil

	case models.OutcomeEstimated:
		totals := s.calc.Aggregate(result.Ingredients)
		if result.Totals != nil {
			totals = *result.Totals
		}
		session.LastDish = result.StandardizedName
		session.LastDishIngredients = result.Ingredients
		s.missing.Record(ctx, result, message, country, analysis)

		return &models.ChatResponse{
			DishName:       result.StandardizedName,
			DishNameArabic: result.LocalizedName,
			Ingredients:    result.Ingredients,
			Totals:         totals,
			Source:         models.SourceAIEstimated,
			Message:        composeMessage(result.StandardizedName, totals, true, ""),
			Warnings:       unresolvedIngredientWarnings(result.Ingredients),
		}, nil

	default:
		// Unresolved. The session keeps its prior context, if any.
		s.missing.Record(ctx, result, message, country, analysis)
		return &models.ChatResponse{
			DishName: result.QueryText,
			Source:   models.SourceAIEstimated,
			Message:  fmt.Sprintf("Sorry, I could not find nutrition information for %q.", result.QueryText),
		}, nil
	}
}

// answerSingleIngredient short-circuits a query about one plain food
// ("2 eggs", "100g of rice") straight to the reference foods, skipping the
// dish catalog. Returns nil when the food is unknown so the turn falls
// through to regular dish resolution.
func (s *ChatService) answerSingleIngredient(ctx context.Context, session *models.SessionContext, analysis *models.AnalysisResult) *models.ChatResponse {
	est := analysis.Ingredients[0]
	ing := s.resolver.ResolveIngredient(ctx, est.Name, est.WeightGrams)
	if ing.UnresolvedNutrition {
		return nil
	}

	ingredients := []models.IngredientSpec{ing}
	totals := s.calc.Aggregate(ingredients)
	session.LastDish = ing.Name
	session.LastDishIngredients = ingredients

	return &models.ChatResponse{
		DishName:       ing.Name,
		DishNameArabic: analysis.DishNameArabic,
		Ingredients:    ingredients,
		Totals:         totals,
		Source:         models.SourceDataset,
		Message: fmt.Sprintf("%s (%sg) contains %s calories.", ing.Name,
			formatAmount(ing.WeightGrams), formatAmount(totals.Calories)),
	}
}

func (s *ChatService) handleModification(ctx context.Context, session *models.SessionContext, analysis *models.AnalysisResult) (*models.ChatResponse, error) {
	ingredients := append([]models.IngredientSpec(nil), session.LastDishIngredients...)
	var warnings []string

	mods := analysis.Modifications
	if len(mods) == 0 {
		// The provider flagged a modification intent without extracting
		// actions; nothing to edit.
		warnings = append(warnings, "no modification could be extracted from the message")
	}

	for _, mod := range mods {
		var err error
		ingredients, warnings, err = s.applyModification(ctx, ingredients, warnings, mod)
		if err != nil {
			return nil, err
		}
	}

	totals := s.calc.Aggregate(ingredients)
	session.LastDishIngredients = ingredients

	return &models.ChatResponse{
		DishName:    session.LastDish,
		Ingredients: ingredients,
		Totals:      totals,
		Source:      models.SourceDataset,
		Message:     composeMessage(session.LastDish, totals, false, ""),
		Warnings:    append(warnings, unresolvedIngredientWarnings(ingredients)...),
	}, nil
}

func (s *ChatService) applyModification(ctx context.Context, ingredients []models.IngredientSpec, warnings []string, mod models.Modification) ([]models.IngredientSpec, []string, error) {
	switch mod.Action {
	case models.ModificationRemove:
		i := findIngredient(ingredients, mod.Ingredient)
		if i < 0 {
			return ingredients, append(warnings, fmt.Sprintf("%q is not in the current dish", mod.Ingredient)), nil
		}
		return append(ingredients[:i], ingredients[i+1:]...), warnings, nil

	case models.ModificationAdd:
		weight := s.defaultAddWeight()
		if mod.NewWeightG != nil {
			weight = *mod.NewWeightG
		}
		if weight <= 0 {
			return nil, nil, fmt.Errorf("add %q: %w", mod.Ingredient, apperrors.ErrInvalidWeight)
		}
		return append(ingredients, s.resolver.ResolveIngredient(ctx, mod.Ingredient, weight)), warnings, nil

	case models.ModificationChangeQuantity:
		if mod.NewWeightG == nil || *mod.NewWeightG <= 0 {
			return nil, nil, fmt.Errorf("change quantity of %q: %w", mod.Ingredient, apperrors.ErrInvalidWeight)
		}
		i := findIngredient(ingredients, mod.Ingredient)
		if i < 0 {
			return ingredients, append(warnings, fmt.Sprintf("%q is not in the current dish", mod.Ingredient)), nil
		}
		ingredients[i] = s.resolver.RescaleIngredient(ctx, ingredients[i], *mod.NewWeightG)
		return ingredients, warnings, nil

	default:
		return ingredients, append(warnings, fmt.Sprintf("unsupported modification %q", mod.Action)), nil
	}
}

// commitTurn persists the working context and the exchange atomically at
// the end of the turn. A failure or cancellation before or during the
// commit discards the in-memory mutation entirely; the stored context and
// the history never diverge.
func (s *ChatService) commitTurn(ctx context.Context, session *models.SessionContext, userMessage, botResponse string) error {
	turn := &models.Turn{
		SessionID:   session.SessionID,
		UserMessage: userMessage,
		BotResponse: botResponse,
	}
	if err := s.sessions.CommitTurn(ctx, session, turn); err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}
	return nil
}

func (s *ChatService) getOrCreateSession(ctx context.Context, sessionID uuid.UUID) (*models.SessionContext, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, apperrors.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session = &models.SessionContext{SessionID: sessionID}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// history loads the recent exchanges fed back to the breakdown provider.
// A history failure is not worth failing the turn over.
func (s *ChatService) history(ctx context.Context, sessionID uuid.UUID) []prompts.Exchange {
	limit := s.cfg.HistoryLimit
	if limit <= 0 {
		return nil
	}
	turns, err := s.sessions.History(ctx, sessionID, limit)
	if err != nil {
		s.logger.Warn("failed to load session history",
			zap.String("session_id", sessionID.String()), zap.Error(err))
		return nil
	}
	history := make([]prompts.Exchange, 0, len(turns))
	for _, turn := range turns {
		history = append(history, prompts.Exchange{
			Query:    turn.UserMessage,
			Response: turn.BotResponse,
		})
	}
	return history
}

func (s *ChatService) defaultAddWeight() float64 {
	if s.cfg.DefaultAddWeightGrams > 0 {
		return s.cfg.DefaultAddWeightGrams
	}
	return 100
}

// findIngredient locates an ingredient by case-insensitive substring match
// on its name, so "tahini" finds "Tahini paste".
func findIngredient(ingredients []models.IngredientSpec, name string) int {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return -1
	}
	for i, ing := range ingredients {
		if strings.Contains(strings.ToLower(ing.Name), needle) {
			return i
		}
	}
	return -1
}

func composeMessage(dishName string, totals models.NutritionValues, estimated bool, foreignCountry string) string {
	msg := fmt.Sprintf("%s contains %s calories.", dishName, formatAmount(totals.Calories))
	if estimated {
		msg += " (estimated)"
	}
	if foreignCountry != "" {
		msg += fmt.Sprintf(" (This is a %s dish.)", foreignCountry)
	}
	return msg
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func unresolvedIngredientWarnings(ingredients []models.IngredientSpec) []string {
	var warnings []string
	for _, ing := range ingredients {
		if ing.UnresolvedNutrition {
			warnings = append(warnings, fmt.Sprintf("no nutrition data found for %q", ing.Name))
		}
	}
	return warnings
}
