package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"verdant/internal/dashboard"
	"verdant/internal/types"
)

// loadingRefresh is how often a page with a loading hazard reloads itself.
const loadingRefresh = 1

// Handler serves the HTML routes.
type Handler struct {
	pages        *Pages
	counties     types.CountyRiskReader
	store        *dashboard.Store
	fetcher      dashboard.Fetcher
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	Pages        *Pages
	Counties     types.CountyRiskReader
	Store        *dashboard.Store
	Fetcher      dashboard.Fetcher
	FetchTimeout time.Duration
	Logger       *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		pages:        cfg.Pages,
		counties:     cfg.Counties,
		store:        cfg.Store,
		fetcher:      cfg.Fetcher,
		fetchTimeout: cfg.FetchTimeout,
		logger:       logger.With("component", "web"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleLanding)
	r.Get("/dashboard/{stateAbbr}/{county}", h.HandleDashboard)
	r.Get("/dashboard/views/{viewID}", h.HandleView)
	r.Post("/dashboard/views/{viewID}/hazards/{hazard}", h.HandleLearnMore)
}

// HandleLanding handles GET /.
func (h *Handler) HandleLanding(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "landing", page{
		Title: "Verdant",
		Theme: dashboard.ThemeFor(r.URL.Query().Get("theme")),
		Data:  landingContent,
	})
}

// HandleDashboard handles GET /dashboard/{stateAbbr}/{county}. Every call
// starts a new view session so Learn More state is per page view.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	theme := dashboard.ThemeFor(r.URL.Query().Get("theme"))
	state := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "stateAbbr")))
	county := strings.TrimSpace(chi.URLParam(r, "county"))

	rec, err := h.counties.GetByCounty(r.Context(), state, county)
	if err != nil {
		h.renderError(w, r, theme, err)
		return
	}

	s := dashboard.NewSession(uuid.NewString(), rec, theme, h.fetcher, h.fetchTimeout, h.logger)
	h.store.Put(s)
	h.renderSession(w, r, s)
}

// HandleView handles GET /dashboard/views/{viewID}.
func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store.Get(chi.URLParam(r, "viewID"))
	if !ok {
		h.renderError(w, r, dashboard.ThemeFor(r.URL.Query().Get("theme")),
			types.NewAppError(types.ErrCodeNotFoundView, "This dashboard view has expired. Open the county again to start a new one.", nil))
		return
	}
	h.renderSession(w, r, s)
}

// HandleLearnMore handles POST /dashboard/views/{viewID}/hazards/{hazard}.
// The hazard moves to Loading before the redirect is sent, so the page the
// browser lands on already shows the loading row.
func (h *Handler) HandleLearnMore(w http.ResponseWriter, r *http.Request) {
	viewID := chi.URLParam(r, "viewID")
	s, ok := h.store.Get(viewID)
	if !ok {
		h.renderError(w, r, dashboard.LightTheme,
			types.NewAppError(types.ErrCodeNotFoundView, "This dashboard view has expired. Open the county again to start a new one.", nil))
		return
	}

	hz, ok := types.LookupHazard(chi.URLParam(r, "hazard"))
	if !ok {
		h.renderError(w, r, s.Theme, types.NewAppError(types.ErrCodeNotFoundHazard, "Unknown hazard type.", nil))
		return
	}

	s.LearnMore(r.Context(), hz.Name)
	http.Redirect(w, r, "/dashboard/views/"+url.PathEscape(viewID)+"#hazard-"+hz.Key, http.StatusSeeOther)
}

func (h *Handler) renderSession(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	st := s.State()
	rows := make([]hazardRowState, len(s.View.Hazards))
	refresh := 0
	for i, row := range s.View.Hazards {
		info := st.Get(row.Name)
		if info.IsLoading() {
			refresh = loadingRefresh
		}
		rows[i] = hazardRowState{HazardRow: row, Info: info}
	}

	h.render(w, r, http.StatusOK, "dashboard", page{
		Title:          s.View.CountyName + " County, " + s.View.StateAbbr + " | Verdant",
		Theme:          s.Theme,
		RefreshSeconds: refresh,
		Data: dashboardData{
			ViewID:      s.ID,
			View:        s.View,
			Rows:        rows,
			LoadingText: dashboard.LoadingText,
		},
	})
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, theme dashboard.Theme, err error) {
	status := http.StatusInternalServerError
	data := errorData{Heading: "Something went wrong", Message: "Please try again later."}

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus()
		if status == http.StatusNotFound {
			data = errorData{Heading: "Not found", Message: appErr.Message}
		}
	}
	if status >= 500 {
		h.logger.ErrorContext(r.Context(), "dashboard request failed",
			"request_id", types.GetRequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}

	h.render(w, r, status, "error", page{Title: data.Heading + " | Verdant", Theme: theme, Data: data})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	if err := h.pages.Render(w, status, name, p); err != nil {
		h.logger.ErrorContext(r.Context(), "page render failed",
			"request_id", types.GetRequestID(r.Context()),
			"page", name,
			"error", err,
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
