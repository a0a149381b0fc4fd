// handler.go — основной обработчик API WatchGraph.
// Объединяет доменные обработчики, регистрирует маршруты chi
// и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/Hexidus/watchgraph/internal/api/errors"
	"github.com/Hexidus/watchgraph/internal/repository"
	"github.com/Hexidus/watchgraph/internal/service"
)

// APIHandler — основной обработчик API.
type APIHandler struct {
	health     *HealthHandler
	info       *InfoHandler
	docs       *DocsHandler
	systems    *service.SystemService
	catalog    *service.CatalogService
	compliance *service.ComplianceService
	evidence   *service.EvidenceService
	logger     *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	info *InfoHandler,
	docs *DocsHandler,
	systems *service.SystemService,
	catalog *service.CatalogService,
	compliance *service.ComplianceService,
	evidence *service.EvidenceService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:     health,
		info:       info,
		docs:       docs,
		systems:    systems,
		catalog:    catalog,
		compliance: compliance,
		evidence:   evidence,
		logger:     logger.With(slog.String("component", "api_handler")),
	}
}

// Routes регистрирует все маршруты API на роутере.
func (h *APIHandler) Routes(r chi.Router) {
	r.Get("/", h.info.Root)
	r.Get("/health", h.info.Health)
	r.Get("/version", h.info.Version)
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)
	r.Get("/api/docs/openapi.json", h.docs.GetOpenAPI)

	r.Route("/api", func(r chi.Router) {
		r.Route("/systems", func(r chi.Router) {
			r.Post("/", h.CreateSystem)
			r.Get("/", h.ListSystems)
			r.Get("/{id}", h.GetSystem)
			r.Delete("/{id}", h.DeleteSystem)
			r.Get("/{id}/requirements", h.ListSystemRequirements)
			r.Get("/{id}/compliance", h.GetCompliance)
			r.Get("/{id}/evidence", h.ListSystemEvidence)
		})

		r.Route("/requirements", func(r chi.Router) {
			r.Get("/", h.ListRequirements)
			r.Put("/{mappingId}", h.UpdateRequirementStatus)
			r.Post("/{mappingId}/evidence", h.UploadEvidence)
			r.Get("/{mappingId}/evidence", h.ListMappingEvidence)
			r.Get("/{mappingId}/evidence/stats", h.GetEvidenceStats)
		})

		r.Route("/evidence/{id}", func(r chi.Router) {
			r.Get("/", h.GetEvidence)
			r.Patch("/", h.UpdateEvidence)
			r.Delete("/", h.DeleteEvidence)
			r.Get("/download", h.DownloadEvidence)
		})
	})
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError отображает ошибку сервисного слоя в HTTP-ответ.
// Неизвестные ошибки логируются и возвращаются как 500 без деталей.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrConflict), errors.Is(err, repository.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrStorage):
		apierrors.StorageUnavailable(w, service.ErrStorage.Error())
	default:
		h.logger.Error("Ошибка обработки запроса",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// pathParam извлекает обязательный path-параметр маршрута.
func pathParam(r *http.Request, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &value,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	return value, err
}

// pageParams разбирает query-параметры page и page_size.
// Отсутствующие параметры дают 0, нормализация — в сервисном слое.
func pageParams(query url.Values) (page, pageSize int, err error) {
	var p, ps *int
	if err := runtime.BindQueryParameter("form", true, false, "page", query, &p); err != nil {
		return 0, 0, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "page_size", query, &ps); err != nil {
		return 0, 0, err
	}
	if p != nil {
		page = *p
	}
	if ps != nil {
		pageSize = *ps
	}
	return page, pageSize, nil
}

// decodeJSON декодирует тело запроса, отвергая неизвестные поля.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
