package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/nutriarab/nutriarab-engine/pkg/apperrors"
	"github.com/nutriarab/nutriarab-engine/pkg/models"
	"github.com/nutriarab/nutriarab-engine/pkg/repositories"
)

type stubDishRepository struct {
	countries []string
	err       error
}

func (s *stubDishRepository) ListCountries(ctx context.Context) ([]string, error) {
	return s.countries, s.err
}

func (s *stubDishRepository) FindExact(ctx context.Context, name, country string) (*models.DishRecord, error) {
	return nil, apperrors.ErrNotFound
}

func (s *stubDishRepository) FindPrefix(ctx context.Context, name, country string) (*models.DishRecord, error) {
	return nil, apperrors.ErrNotFound
}

func (s *stubDishRepository) SearchVector(ctx context.Context, embedding []float32, country string, threshold float64, limit int) ([]repositories.DishMatch, error) {
	return nil, nil
}

func (s *stubDishRepository) GetByID(ctx context.Context, id int64) (*models.DishRecord, error) {
	return nil, apperrors.ErrNotFound
}

func (s *stubDishRepository) Create(ctx context.Context, dish *models.DishRecord) error { return nil }
func (s *stubDishRepository) Update(ctx context.Context, dish *models.DishRecord) error { return nil }
func (s *stubDishRepository) Delete(ctx context.Context, id int64) error                { return nil }

func TestCountriesHandler_ListCountries(t *testing.T) {
	handler := NewCountriesHandler(&stubDishRepository{
		countries: []string{"Egypt", "Lebanon", "Saudi Arabia"},
	}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/countries", nil)
	rec := httptest.NewRecorder()
	handler.ListCountries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var resp CountriesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("expected total 3, got %d", resp.Total)
	}
	if len(resp.Countries) != 3 || resp.Countries[1] != "Lebanon" {
		t.Errorf("unexpected countries %v", resp.Countries)
	}
}

func TestCountriesHandler_RepositoryError(t *testing.T) {
	handler := NewCountriesHandler(&stubDishRepository{
		err: errors.New("connection refused"),
	}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/countries", nil)
	rec := httptest.NewRecorder()
	handler.ListCountries(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
}
