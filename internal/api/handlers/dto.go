// dto.go — JSON-представления ответов API и преобразование из доменных моделей.
package handlers

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Hexidus/watchgraph/internal/domain/model"
	"github.com/Hexidus/watchgraph/internal/service"
)

type systemResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	RiskCategory string    `json:"risk_category"`
	Organization *string   `json:"organization"`
	Department   *string   `json:"department"`
	OwnerEmail   *string   `json:"owner_email"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type createSystemResponse struct {
	System               systemResponse `json:"system"`
	RequirementsAssigned int            `json:"requirements_assigned"`
}

type requirementResponse struct {
	ID          string   `json:"id"`
	Article     string   `json:"article"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	AppliesTo   []string `json:"applies_to"`
}

type mappingResponse struct {
	ID            string               `json:"id"`
	AISystemID    string               `json:"ai_system_id"`
	RequirementID string               `json:"requirement_id"`
	Status        string               `json:"status"`
	Notes         *string              `json:"notes"`
	UpdatedBy     *string              `json:"updated_by"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	Requirement   *requirementResponse `json:"requirement,omitempty"`
}

type complianceResponse struct {
	SystemID   string         `json:"system_id"`
	Total      int            `json:"total"`
	Percentage float64        `json:"percentage"`
	Breakdown  map[string]int `json:"breakdown"`
}

type evidenceResponse struct {
	ID                   string              `json:"id"`
	AISystemID           string              `json:"ai_system_id"`
	RequirementMappingID *string             `json:"requirement_mapping_id"`
	FileName             string              `json:"file_name"`
	FileType             string              `json:"file_type"`
	FileSize             int64               `json:"file_size"`
	StorageKey           string              `json:"storage_key"`
	Status               string              `json:"status"`
	Description          *string             `json:"description"`
	ExpirationDate       *openapi_types.Date `json:"expiration_date"`
	UploadedBy           *string             `json:"uploaded_by"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

type evidenceStatsResponse struct {
	MappingID string         `json:"mapping_id"`
	Total     int            `json:"total"`
	ByStatus  map[string]int `json:"by_status"`
}

type downloadResponse struct {
	URL       string    `json:"url"`
	FileName  string    `json:"file_name"`
	ExpiresAt time.Time `json:"expires_at"`
	// ExpiresIn — в секундах
	ExpiresIn int `json:"expires_in"`
}

type pageResponse[T any] struct {
	Items    []T  `json:"items"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

func mapPage[M, T any](p service.Page[M], convert func(M) T) pageResponse[T] {
	items := make([]T, 0, len(p.Items))
	for _, m := range p.Items {
		items = append(items, convert(m))
	}
	return pageResponse[T]{
		Items:    items,
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
		HasMore:  p.HasMore,
	}
}

func mapSystem(s *model.AISystem) systemResponse {
	return systemResponse{
		ID:           s.ID,
		Name:         s.Name,
		Description:  s.Description,
		RiskCategory: string(s.RiskCategory),
		Organization: s.Organization,
		Department:   s.Department,
		OwnerEmail:   s.OwnerEmail,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func mapRequirement(r *model.Requirement) requirementResponse {
	applies := make([]string, len(r.AppliesTo))
	for i, c := range r.AppliesTo {
		applies[i] = string(c)
	}
	return requirementResponse{
		ID:          r.ID,
		Article:     r.Article,
		Title:       r.Title,
		Description: r.Description,
		AppliesTo:   applies,
	}
}

func mapMapping(m *model.RequirementMapping) mappingResponse {
	return mappingResponse{
		ID:            m.ID,
		AISystemID:    m.AISystemID,
		RequirementID: m.RequirementID,
		Status:        string(m.Status),
		Notes:         m.Notes,
		UpdatedBy:     m.UpdatedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func mapMappingDetail(d *model.MappingDetail) mappingResponse {
	resp := mapMapping(&d.RequirementMapping)
	req := mapRequirement(&d.Requirement)
	resp.Requirement = &req
	return resp
}

func mapCompliance(s *model.ComplianceSummary) complianceResponse {
	breakdown := make(map[string]int, len(s.Breakdown))
	for st, n := range s.Breakdown {
		breakdown[string(st)] = n
	}
	return complianceResponse{
		SystemID:   s.SystemID,
		Total:      s.Total,
		Percentage: s.Percentage,
		Breakdown:  breakdown,
	}
}

func mapEvidence(e *model.Evidence) evidenceResponse {
	resp := evidenceResponse{
		ID:                   e.ID,
		AISystemID:           e.AISystemID,
		RequirementMappingID: e.MappingID,
		FileName:             e.FileName,
		FileType:             e.FileType,
		FileSize:             e.FileSize,
		StorageKey:           e.StorageKey,
		Status:               string(e.Status),
		Description:          e.Description,
		UploadedBy:           e.UploadedBy,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
	if e.ExpirationDate != nil {
		resp.ExpirationDate = &openapi_types.Date{Time: *e.ExpirationDate}
	}
	return resp
}

func mapEvidenceStats(s *model.EvidenceStats) evidenceStatsResponse {
	byStatus := make(map[string]int, len(s.ByStatus))
	for st, n := range s.ByStatus {
		byStatus[string(st)] = n
	}
	return evidenceStatsResponse{MappingID: s.MappingID, Total: s.Total, ByStatus: byStatus}
}

func mapDownload(d *model.DownloadReference) downloadResponse {
	return downloadResponse{
		URL:       d.URL,
		FileName:  d.FileName,
		ExpiresAt: d.ExpiresAt,
		ExpiresIn: int(d.ExpiresIn / time.Second),
	}
}
