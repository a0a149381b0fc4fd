// evidence.go — обработчики evidence: multipart-загрузка, списки, метаданные,
// мягкое удаление, статистика и выдача ссылок на скачивание.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	apierrors "github.com/Hexidus/watchgraph/internal/api/errors"
	"github.com/Hexidus/watchgraph/internal/domain/model"
	"github.com/Hexidus/watchgraph/internal/service"
)

const (
	// uploadBodyOverhead — запас на заголовки частей и текстовые поля формы.
	uploadBodyOverhead = 1 << 20
	// multipartMemory — часть формы, хранимая в памяти; остальное во временных файлах.
	multipartMemory = 32 << 20
	// formFileField — имя части с содержимым файла.
	formFileField = "file"
)

// updateEvidenceRequest — тело PATCH /api/evidence/{id}.
type updateEvidenceRequest struct {
	Description    *string `json:"description"`
	ExpirationDate *string `json:"expiration_date"`
	Status         *string `json:"status"`
}

// UploadEvidence — POST /api/requirements/{mappingId}/evidence (multipart/form-data).
// Поля: file (обязательно), description, expiration_date, uploaded_by.
func (h *APIHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	mappingID, err := pathParam(r, "mappingId")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, model.MaxEvidenceSize+uploadBodyOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.ValidationError(w, service.ErrFileTooLarge.Error())
			return
		}
		apierrors.ValidationError(w, "Некорректная multipart-форма: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(formFileField)
	if err != nil {
		apierrors.ValidationError(w, "Отсутствует файл в поле 'file'")
		return
	}
	defer file.Close()

	// Читаем на байт больше лимита: сервис отвергнет такой файл по размеру.
	content, err := io.ReadAll(io.LimitReader(file, model.MaxEvidenceSize+1))
	if err != nil {
		apierrors.ValidationError(w, "Ошибка чтения файла: "+err.Error())
		return
	}

	uploadedBy := formValue(r, "uploaded_by")
	if uploadedBy == nil {
		uploadedBy = callerIdentity(r)
	}

	ev, err := h.evidence.Upload(r.Context(), service.UploadParams{
		MappingID:      mappingID,
		FileName:       header.Filename,
		Content:        content,
		Description:    formValue(r, "description"),
		ExpirationDate: formValue(r, "expiration_date"),
		UploadedBy:     uploadedBy,
	})
	if err != nil {
		h.writeServiceError(w, err, "upload_evidence")
		return
	}
	writeJSON(w, http.StatusCreated, mapEvidence(ev))
}

// formValue возвращает значение поля формы; nil для отсутствующего или пустого поля.
func formValue(r *http.Request, name string) *string {
	values, ok := r.MultipartForm.Value[name]
	if !ok || len(values) == 0 {
		return nil
	}
	v := strings.TrimSpace(values[0])
	if v == "" {
		return nil
	}
	return &v
}

// ListSystemEvidence — GET /api/systems/{id}/evidence?page=&page_size=.
func (h *APIHandler) ListSystemEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	page, pageSize, err := pageParams(r.URL.Query())
	if err != nil {
		apierrors.ValidationError(w, "Некорректные параметры пагинации: "+err.Error())
		return
	}

	result, err := h.evidence.ListBySystem(r.Context(), id, page, pageSize)
	if err != nil {
		h.writeServiceError(w, err, "list_system_evidence")
		return
	}
	writeJSON(w, http.StatusOK, mapPage(result, mapEvidence))
}

// ListMappingEvidence — GET /api/requirements/{mappingId}/evidence?page=&page_size=.
func (h *APIHandler) ListMappingEvidence(w http.ResponseWriter, r *http.Request) {
	mappingID, err := pathParam(r, "mappingId")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	page, pageSize, err := pageParams(r.URL.Query())
	if err != nil {
		apierrors.ValidationError(w, "Некорректные параметры пагинации: "+err.Error())
		return
	}

	result, err := h.evidence.ListByMapping(r.Context(), mappingID, page, pageSize)
	if err != nil {
		h.writeServiceError(w, err, "list_mapping_evidence")
		return
	}
	writeJSON(w, http.StatusOK, mapPage(result, mapEvidence))
}

// GetEvidenceStats — GET /api/requirements/{mappingId}/evidence/stats.
func (h *APIHandler) GetEvidenceStats(w http.ResponseWriter, r *http.Request) {
	mappingID, err := pathParam(r, "mappingId")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	stats, err := h.evidence.Stats(r.Context(), mappingID)
	if err != nil {
		h.writeServiceError(w, err, "evidence_stats")
		return
	}
	writeJSON(w, http.StatusOK, mapEvidenceStats(stats))
}

// GetEvidence — GET /api/evidence/{id}.
func (h *APIHandler) GetEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	ev, err := h.evidence.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get_evidence")
		return
	}
	writeJSON(w, http.StatusOK, mapEvidence(ev))
}

// UpdateEvidence — PATCH /api/evidence/{id}.
func (h *APIHandler) UpdateEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	var req updateEvidenceRequest
	if err := decodeJSON(r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	ev, err := h.evidence.UpdateMetadata(r.Context(), id, service.MetadataParams{
		Description:    req.Description,
		ExpirationDate: req.ExpirationDate,
		Status:         req.Status,
	})
	if err != nil {
		h.writeServiceError(w, err, "update_evidence")
		return
	}
	writeJSON(w, http.StatusOK, mapEvidence(ev))
}

// DeleteEvidence — DELETE /api/evidence/{id}. Мягкое удаление.
func (h *APIHandler) DeleteEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	if err := h.evidence.SoftDelete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "delete_evidence")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadEvidence — GET /api/evidence/{id}/download.
// Возвращает подписанную ссылку; сам файл отдаёт хранилище.
func (h *APIHandler) DownloadEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	ref, err := h.evidence.DownloadReference(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "download_evidence")
		return
	}
	writeJSON(w, http.StatusOK, mapDownload(ref))
}
