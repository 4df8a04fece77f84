// Package handlers contains the JSON API handlers for Verdant.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"verdant/internal/types"
)

// fallbackHazardError is reported when the failure carries no message.
const fallbackHazardError = "Failed to generate info"

const maxHazardInfoBody = 64 << 10

// HazardDescriber is the hazardinfo.Service contract.
type HazardDescriber interface {
	Describe(ctx context.Context, req types.HazardInfoRequest) (string, error)
}

// HazardInfoHandler serves POST /api/hazard-info. Unlike the rest of the API
// it answers every failure with 500 and a flat {"error": "..."} body, which is
// what browser clients of this endpoint expect.
type HazardInfoHandler struct {
	service HazardDescriber
	logger  *slog.Logger
}

func NewHazardInfoHandler(svc HazardDescriber, logger *slog.Logger) *HazardInfoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HazardInfoHandler{service: svc, logger: logger}
}

func (h *HazardInfoHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/hazard-info", h.HandleHazardInfo)
}

// HandleHazardInfo decodes {countyName, stateAbbr, hazard}, asks the
// describer for text and returns {text}. Fields are passed through
// unvalidated; missing ones arrive as empty strings.
func (h *HazardInfoHandler) HandleHazardInfo(w http.ResponseWriter, r *http.Request) {
	var req types.HazardInfoRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxHazardInfoBody)).Decode(&req); err != nil {
		h.logger.WarnContext(r.Context(), "hazard info request body rejected",
			"request_id", types.GetRequestID(r.Context()),
			"error", err,
		)
		writeHazardError(w, err)
		return
	}

	text, err := h.service.Describe(r.Context(), req)
	if err != nil {
		writeHazardError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.HazardInfoResponse{Text: text})
}

func writeHazardError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, types.HazardInfoError{Error: hazardErrorMessage(err)})
}

// hazardErrorMessage prefers the provider's message over our wrapping.
func hazardErrorMessage(err error) string {
	var appErr *types.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallbackHazardError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + fallbackHazardError + `"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
