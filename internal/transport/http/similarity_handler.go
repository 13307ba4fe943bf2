package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/VaishakhVipin/stattwin/internal/errors"
	customMiddleware "github.com/VaishakhVipin/stattwin/internal/middleware"
	"github.com/VaishakhVipin/stattwin/internal/similarity"
	api "github.com/VaishakhVipin/stattwin/pkg/contracts/api/v1"
)

// SimilarityHandler serves similarity, ranking, filter and dataset report
// requests with RFC 7807 errors.
type SimilarityHandler struct {
	service      SimilarityServiceInterface
	validator    *customMiddleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSimilarityHandler creates a similarity handler
func NewSimilarityHandler(service SimilarityServiceInterface, validator *customMiddleware.Validator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SimilarityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = customMiddleware.NewValidator(logger, 0)
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &SimilarityHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "similarity_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the similarity routes
func (h *SimilarityHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.ContentTypeValidator("application/json"))
		r.Post("/similar", h.Similar)
		r.Post("/rank-all", h.RankAll)
		r.Post("/filter", h.Filter)
	})
	r.Get("/players/{id}/similar", h.PlayerSimilar)
	r.Get("/report", h.Report)
	r.Post("/dataset/reload", h.Reload)
	return r
}

// Similar handles POST /api/v1/similar
func (h *SimilarityHandler) Similar(w http.ResponseWriter, r *http.Request) {
	var req api.SimilarRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.similar(w, r, req)
}

// PlayerSimilar handles GET /api/v1/players/{id}/similar. Supported query
// parameters are top_k, metric, same_position, position and features.
func (h *SimilarityHandler) PlayerSimilar(w http.ResponseWriter, r *http.Request) {
	q := customMiddleware.Query(r)

	topK, err := q.Int("top_k", 1, 1000, 0)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	metric, err := q.Enum("metric", []string{string(similarity.Cosine), string(similarity.Euclidean)}, "")
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	samePosition, err := q.Bool("same_position", false)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	req := api.SimilarRequest{
		PlayerID:     chi.URLParam(r, "id"),
		Metric:       metric,
		TopK:         topK,
		Features:     q.List("features"),
		SamePosition: samePosition,
	}
	if pos := strings.TrimSpace(r.URL.Query().Get("position")); pos != "" {
		req.Weights = &api.WeightsRequest{Position: pos}
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.similar(w, r, req)
}

func (h *SimilarityHandler) similar(w http.ResponseWriter, r *http.Request, req api.SimilarRequest) {
	resp, err := h.service.Similar(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "similarity query served",
		slog.String("player_id", req.PlayerID),
		slog.Int("matches", resp.Count),
	)
	render.JSON(w, r, resp)
}

// RankAll handles POST /api/v1/rank-all
func (h *SimilarityHandler) RankAll(w http.ResponseWriter, r *http.Request) {
	var req api.RankAllRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.RankAll(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "batch ranking served",
		slog.Int("queries", resp.Count),
		slog.String("metric", resp.Metric),
	)
	render.JSON(w, r, resp)
}

// Filter handles POST /api/v1/filter
func (h *SimilarityHandler) Filter(w http.ResponseWriter, r *http.Request) {
	var req api.FilterRequest
	if err := h.validator.Decode(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.Filter(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// Report handles GET /api/v1/report
func (h *SimilarityHandler) Report(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Report(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// Reload handles POST /api/v1/dataset/reload
func (h *SimilarityHandler) Reload(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.Reload(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "dataset reloaded",
		slog.String("source", ds.Source),
		slog.Int("rows", ds.Table.Len()),
	)
	render.JSON(w, r, map[string]any{
		"status":    "reloaded",
		"source":    ds.Source,
		"rows":      ds.Table.Len(),
		"loaded_at": ds.LoadedAt,
	})
}
