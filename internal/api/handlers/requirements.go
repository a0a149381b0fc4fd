// requirements.go — обработчики каталога требований и статусов назначений.
package handlers

import (
	"net/http"

	apierrors "github.com/Hexidus/watchgraph/internal/api/errors"
	"github.com/Hexidus/watchgraph/internal/api/middleware"
	"github.com/Hexidus/watchgraph/internal/domain/model"
	"github.com/Hexidus/watchgraph/internal/service"
)

// updateStatusRequest — тело PUT /api/requirements/{mappingId}.
type updateStatusRequest struct {
	Status    string  `json:"status"`
	Notes     *string `json:"notes"`
	UpdatedBy *string `json:"updated_by"`
}

// ListRequirements — GET /api/requirements. Весь каталог в порядке статей.
func (h *APIHandler) ListRequirements(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.catalog.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "list_requirements")
		return
	}

	items := make([]requirementResponse, 0, len(reqs))
	for _, req := range reqs {
		items = append(items, mapRequirement(req))
	}
	writeJSON(w, http.StatusOK, items)
}

// UpdateRequirementStatus — PUT /api/requirements/{mappingId}.
// Без updated_by автор изменений не сбрасывается; вызывающий записывается
// только для назначения, у которого автора ещё нет.
func (h *APIHandler) UpdateRequirementStatus(w http.ResponseWriter, r *http.Request) {
	mappingID, err := pathParam(r, "mappingId")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	m, err := h.compliance.UpdateStatus(r.Context(), mappingID, service.UpdateStatusParams{
		Status:    model.ComplianceStatus(req.Status),
		Notes:     req.Notes,
		UpdatedBy: req.UpdatedBy,
		Caller:    callerIdentity(r),
	})
	if err != nil {
		h.writeServiceError(w, err, "update_requirement_status")
		return
	}
	writeJSON(w, http.StatusOK, mapMapping(m))
}

// callerIdentity возвращает email вызывающего, иначе username; nil без аутентификации.
func callerIdentity(r *http.Request) *string {
	caller := middleware.CallerFromContext(r.Context())
	if caller == nil {
		return nil
	}
	switch {
	case caller.Email != "":
		return &caller.Email
	case caller.Username != "":
		return &caller.Username
	}
	return nil
}
