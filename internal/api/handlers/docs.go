// docs.go — раздача OpenAPI контракта в JSON.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// DocsHandler отдаёт OpenAPI документ, сериализованный один раз при создании.
type DocsHandler struct {
	body []byte
}

// NewDocsHandler сериализует провалидированный документ.
func NewDocsHandler(doc *openapi3.T) (*DocsHandler, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("сериализация OpenAPI документа: %w", err)
	}
	return &DocsHandler{body: body}, nil
}

// GetOpenAPI — GET /api/docs/openapi.json.
func (h *DocsHandler) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.body)
}
