package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"verdant/internal/core"
	"verdant/internal/dashboard"
	"verdant/internal/types"
)

// RiskHandler exposes the derived dashboard of a county as JSON.
type RiskHandler struct {
	counties types.CountyRiskReader
	logger   *slog.Logger
}

func NewRiskHandler(counties types.CountyRiskReader, logger *slog.Logger) *RiskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiskHandler{counties: counties, logger: logger}
}

func (h *RiskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/risk", func(r chi.Router) {
		r.Get("/fips/{fips}", h.HandleGetByFIPS)
		r.Get("/{stateAbbr}/{county}", h.HandleGetByCounty)
	})
}

// HandleGetByCounty handles GET /api/risk/{stateAbbr}/{county}.
func (h *RiskHandler) HandleGetByCounty(w http.ResponseWriter, r *http.Request) {
	state := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "stateAbbr")))
	county := strings.TrimSpace(chi.URLParam(r, "county"))
	if len(state) != 2 {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidState, "state abbreviation must be two letters", nil))
		return
	}
	if county == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "county is required", nil))
		return
	}

	rec, err := h.counties.GetByCounty(r.Context(), state, county)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, dashboard.BuildView(rec))
}

// HandleGetByFIPS handles GET /api/risk/fips/{fips}.
func (h *RiskHandler) HandleGetByFIPS(w http.ResponseWriter, r *http.Request) {
	fips := chi.URLParam(r, "fips")
	if len(fips) != 5 || strings.Trim(fips, "0123456789") != "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "fips must be a five digit county code", nil))
		return
	}

	rec, err := h.counties.GetByFIPS(r.Context(), fips)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, dashboard.BuildView(rec))
}
