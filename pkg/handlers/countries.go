package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/nutriarab/nutriarab-engine/pkg/repositories"
)

// CountriesResponse for GET /api/countries.
type CountriesResponse struct {
	Countries []string `json:"countries"`
	Total     int      `json:"total"`
}

// CountriesHandler serves the list of countries the dish catalog covers, so
// clients can offer a country picker.
type CountriesHandler struct {
	dishes repositories.DishRepository
	logger *zap.Logger
}

// NewCountriesHandler creates a new CountriesHandler.
func NewCountriesHandler(dishes repositories.DishRepository, logger *zap.Logger) *CountriesHandler {
	return &CountriesHandler{dishes: dishes, logger: logger}
}

// RegisterRoutes registers the countries handler's routes on the given mux.
func (h *CountriesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/countries", h.ListCountries)
}

// ListCountries handles GET /api/countries requests.
func (h *CountriesHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.dishes.ListCountries(r.Context())
	if err != nil {
		h.logger.Error("Failed to list countries", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	response := CountriesResponse{
		Countries: countries,
		Total:     len(countries),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode countries response", zap.Error(err))
	}
}
