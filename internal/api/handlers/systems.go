// systems.go — обработчики /api/systems endpoints.
// Регистрация с назначением требований, список, чтение, каскадное удаление,
// назначения и сводка соответствия системы.
package handlers

import (
	"net/http"

	apierrors "github.com/Hexidus/watchgraph/internal/api/errors"
	"github.com/Hexidus/watchgraph/internal/domain/model"
	"github.com/Hexidus/watchgraph/internal/service"
)

// createSystemRequest — тело POST /api/systems.
type createSystemRequest struct {
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	RiskCategory string  `json:"risk_category"`
	Organization *string `json:"organization"`
	Department   *string `json:"department"`
	OwnerEmail   *string `json:"owner_email"`
}

// CreateSystem — POST /api/systems.
func (h *APIHandler) CreateSystem(w http.ResponseWriter, r *http.Request) {
	var req createSystemRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	system, assigned, err := h.systems.Create(r.Context(), service.CreateSystemParams{
		Name:         req.Name,
		Description:  req.Description,
		RiskCategory: model.RiskCategory(req.RiskCategory),
		Organization: req.Organization,
		Department:   req.Department,
		OwnerEmail:   req.OwnerEmail,
	})
	if err != nil {
		h.writeServiceError(w, err, "create_system")
		return
	}

	writeJSON(w, http.StatusCreated, createSystemResponse{
		System:               mapSystem(system),
		RequirementsAssigned: assigned,
	})
}

// ListSystems — GET /api/systems?page=&page_size=.
func (h *APIHandler) ListSystems(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := pageParams(r.URL.Query())
	if err != nil {
		apierrors.ValidationError(w, "Некорректные параметры пагинации: "+err.Error())
		return
	}

	result, err := h.systems.List(r.Context(), page, pageSize)
	if err != nil {
		h.writeServiceError(w, err, "list_systems")
		return
	}
	writeJSON(w, http.StatusOK, mapPage(result, mapSystem))
}

// GetSystem — GET /api/systems/{id}.
func (h *APIHandler) GetSystem(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	system, err := h.systems.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get_system")
		return
	}
	writeJSON(w, http.StatusOK, mapSystem(system))
}

// DeleteSystem — DELETE /api/systems/{id}.
// Удаляет систему, её назначения и все evidence одной транзакцией.
func (h *APIHandler) DeleteSystem(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	if err := h.systems.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "delete_system")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSystemRequirements — GET /api/systems/{id}/requirements.
func (h *APIHandler) ListSystemRequirements(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	details, err := h.compliance.ListMappings(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "list_system_requirements")
		return
	}

	items := make([]mappingResponse, 0, len(details))
	for _, d := range details {
		items = append(items, mapMappingDetail(d))
	}
	writeJSON(w, http.StatusOK, items)
}

// GetCompliance — GET /api/systems/{id}/compliance.
func (h *APIHandler) GetCompliance(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	summary, err := h.compliance.Summarize(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get_compliance")
		return
	}
	writeJSON(w, http.StatusOK, mapCompliance(summary))
}
