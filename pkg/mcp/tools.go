package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/nutriarab/nutriarab-engine/pkg/apperrors"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
	"github.com/nutriarab/nutriarab-engine/pkg/repositories"
)

// ChatService processes one conversation turn.
type ChatService interface {
	HandleMessage(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error)
}

// RegisterAnalyzeFoodTool adds the analyze_food tool. One call is one
// conversation turn: passing the returned session_id back in keeps dish
// context across calls, so follow-up modifications work the same way they
// do over HTTP.
func RegisterAnalyzeFoodTool(s *server.MCPServer, chat ChatService, logger *zap.Logger) {
	tool := mcp.NewTool(
		"analyze_food",
		mcp.WithDescription(
			"Analyzes a food query and returns nutrition information (calories, "+
				"carbs, protein, fat) with a per-ingredient breakdown. Supports "+
				"follow-up modifications like 'without tahini' or 'add 50g rice' "+
				"when the session_id from a previous call is provided. "+
				"Example: analyze_food(message='calories in kabsa', country='Saudi Arabia').",
		),
		mcp.WithString(
			"message",
			mcp.Required(),
			mcp.Description("The food question or modification, e.g. 'calories in hummus'"),
		),
		mcp.WithString(
			"country",
			mcp.Description("Country context for regional dish variants, e.g. 'Lebanon'"),
		),
		mcp.WithString(
			"session_id",
			mcp.Description("Session id from a previous call, to modify the prior dish"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return nil, err
		}
		message = strings.TrimSpace(message)
		if message == "" {
			return mcp.NewToolResultError("message parameter cannot be empty"), nil
		}

		chatReq := &models.ChatRequest{
			Message:   message,
			Country:   req.GetString("country", ""),
			SessionID: req.GetString("session_id", ""),
		}

		resp, err := chat.HandleMessage(ctx, chatReq)
		if err != nil {
			if errors.Is(err, apperrors.ErrProviderUnavailable) {
				return mcp.NewToolResultError("the nutrition service is temporarily unavailable"), nil
			}
			if errors.Is(err, apperrors.ErrInvalidWeight) {
				return mcp.NewToolResultError("ingredient weight must be greater than zero"), nil
			}
			logger.Error("analyze_food failed", zap.Error(err))
			return nil, err
		}

		jsonResult, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

type countriesResult struct {
	Countries []string `json:"countries"`
	Total     int      `json:"total"`
}

// RegisterListCountriesTool adds the list_countries tool. The tool returns
// the countries the dish catalog covers.
func RegisterListCountriesTool(s *server.MCPServer, dishes repositories.DishRepository, logger *zap.Logger) {
	tool := mcp.NewTool(
		"list_countries",
		mcp.WithDescription("Returns the list of countries covered by the dish catalog"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		countries, err := dishes.ListCountries(ctx)
		if err != nil {
			logger.Error("list_countries failed", zap.Error(err))
			return nil, fmt.Errorf("failed to list countries: %w", err)
		}

		jsonResult, err := json.Marshal(countriesResult{Countries: countries, Total: len(countries)})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
