package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	customMiddleware "github.com/VaishakhVipin/stattwin/internal/middleware"
	"github.com/VaishakhVipin/stattwin/internal/services"
)

// LeagueHandler serves the league catalogue
type LeagueHandler struct {
	service      LeagueServiceInterface
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewLeagueHandler creates a league handler
func NewLeagueHandler(service LeagueServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *LeagueHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &LeagueHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "league_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the league routes
func (h *LeagueHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.List)
	r.Get("/hierarchy", h.Hierarchy)
	r.Get("/{id}", h.Get)
	return r
}

// List handles GET /api/v1/leagues. Supported query parameters are
// continent, country, tier, major and q.
func (h *LeagueHandler) List(w http.ResponseWriter, r *http.Request) {
	q := customMiddleware.Query(r)
	major, err := q.Bool("major", false)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	params := r.URL.Query()
	resp, err := h.service.List(r.Context(), services.LeagueQuery{
		Continent: strings.TrimSpace(params.Get("continent")),
		Country:   strings.TrimSpace(params.Get("country")),
		Tier:      strings.TrimSpace(params.Get("tier")),
		Search:    strings.TrimSpace(params.Get("q")),
		MajorOnly: major,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// Get handles GET /api/v1/leagues/{id}
func (h *LeagueHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "id must be a positive integer"))
		return
	}

	l, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, l)
}

// Hierarchy handles GET /api/v1/leagues/hierarchy
func (h *LeagueHandler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Hierarchy(r.Context()))
}
