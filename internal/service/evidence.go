// evidence.go — EvidenceService: жизненный цикл evidence-файлов.
//
// Upload: валидация → запись blob → вставка строки. Строка появляется только
// после успешной записи blob; если вставка не удалась, blob остаётся
// сиротой и фиксируется в логе. Удаление мягкое: blob и строка сохраняются.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Hexidus/watchgraph/internal/blobstore"
	"github.com/Hexidus/watchgraph/internal/domain/model"
	"github.com/Hexidus/watchgraph/internal/repository"
)

// defaultOrganization — первый сегмент ключа для систем без организации.
const defaultOrganization = "default"

// storageKeyTimeLayout — метка времени в ключе blob-объекта (UTC).
const storageKeyTimeLayout = "20060102150405"

// maxOrgSegment — предел сегмента организации в ключе. Вместе с двумя UUID,
// меткой времени и именем до 255 символов ключ укладывается в evidence.s3_key (500).
const maxOrgSegment = 64

// keySegmentReplacer убирает разделители пути из сегментов ключа.
var keySegmentReplacer = strings.NewReplacer("/", "_", `\`, "_")

// UploadParams — входные данные загрузки evidence.
type UploadParams struct {
	MappingID   string
	FileName    string
	Content     []byte
	Description *string
	// ExpirationDate — дата в формате YYYY-MM-DD
	ExpirationDate *string
	UploadedBy     *string
}

// MetadataParams — частичное обновление метаданных evidence.
// Заданные поля проверяются все до применения.
type MetadataParams struct {
	Description    *string
	ExpirationDate *string
	Status         *string
}

// EvidenceService — загрузка, выдача и обслуживание evidence.
type EvidenceService struct {
	store  Store
	blobs  blobstore.Store
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// NewEvidenceService создаёт сервис evidence.
func NewEvidenceService(store Store, blobs blobstore.Store, logger *slog.Logger) *EvidenceService {
	return &EvidenceService{
		store:  store,
		blobs:  blobs,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger.With(slog.String("component", "evidence")),
	}
}

// Upload проверяет файл, записывает blob и сохраняет метаданные.
// Порядок проверок: назначение, система, расширение, тип, размер, дата.
func (s *EvidenceService) Upload(ctx context.Context, params UploadParams) (*model.Evidence, error) {
	repos := s.store.Repos()

	mapping, err := repos.Mappings.GetByID(ctx, params.MappingID)
	if err != nil {
		return nil, mapNotFound(err, ErrMappingNotFound)
	}
	system, err := repos.Systems.GetByID(ctx, mapping.AISystemID)
	if err != nil {
		return nil, mapNotFound(err, ErrSystemNotFound)
	}

	fileType, expiration, err := validateUpload(params)
	if err != nil {
		evidenceUploadsTotal.WithLabelValues(uploadResultRejected).Inc()
		s.logger.Info("Загрузка evidence отклонена",
			slog.String("mapping_id", mapping.ID),
			slog.String("file_name", params.FileName),
			slog.Int("size", len(params.Content)),
			slog.String("reason", err.Error()),
		)
		return nil, err
	}

	now := s.now().UTC()
	key := storageKey(system, mapping.ID, params.FileName, now)

	if err := s.blobs.Put(ctx, key, params.Content, model.ContentTypeFor(fileType)); err != nil {
		evidenceUploadsTotal.WithLabelValues(uploadResultStorageError).Inc()
		s.logger.Error("Ошибка записи evidence в хранилище",
			slog.String("mapping_id", mapping.ID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	ev := &model.Evidence{
		ID:             s.newID(),
		AISystemID:     system.ID,
		MappingID:      &mapping.ID,
		FileName:       params.FileName,
		FileType:       fileType,
		FileSize:       int64(len(params.Content)),
		StorageKey:     key,
		Status:         model.EvidenceCurrent,
		Description:    params.Description,
		ExpirationDate: expiration,
		UploadedBy:     params.UploadedBy,
	}
	if err := repos.Evidence.Create(ctx, ev); err != nil {
		evidenceUploadsTotal.WithLabelValues(uploadResultDBError).Inc()
		s.logger.Error("Метаданные evidence не сохранены, blob остался без записи",
			slog.String("mapping_id", mapping.ID),
			slog.String("orphan_key", key),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	evidenceUploadsTotal.WithLabelValues(uploadResultOK).Inc()
	evidenceUploadBytes.Observe(float64(ev.FileSize))
	s.logger.Info("Evidence загружен",
		slog.String("evidence_id", ev.ID),
		slog.String("system_id", ev.AISystemID),
		slog.String("mapping_id", mapping.ID),
		slog.String("file_name", ev.FileName),
		slog.Int64("size", ev.FileSize),
	)
	return ev, nil
}

// validateUpload проверяет имя, размер и дату истечения. Всё, что отвергла бы
// схема evidence, отсекается здесь, до записи blob.
// Возвращает расширение в нижнем регистре и разобранную дату.
func validateUpload(params UploadParams) (string, *time.Time, error) {
	fileType := model.FileExtension(params.FileName)
	if fileType == "" {
		return "", nil, ErrMissingExtension
	}
	if !model.IsAllowedEvidenceType(fileType) {
		return "", nil, ErrUnsupportedFileType
	}
	if utf8.RuneCountInString(params.FileName) > model.MaxFileNameLength {
		return "", nil, ErrFileNameTooLong
	}
	switch size := int64(len(params.Content)); {
	case size == 0:
		return "", nil, ErrEmptyFile
	case size > model.MaxEvidenceSize:
		return "", nil, ErrFileTooLarge
	}
	expiration, err := parseDate(params.ExpirationDate)
	if err != nil {
		return "", nil, err
	}
	return fileType, expiration, nil
}

// storageKey строит ключ {организация}/{система}/{назначение}/{UTC-метка}_{имя}.
// Разделители пути в организации и имени файла заменяются на "_".
func storageKey(system *model.AISystem, mappingID, fileName string, at time.Time) string {
	safeName := keySegmentReplacer.Replace(fileName)
	return fmt.Sprintf("%s/%s/%s/%s_%s", orgSegment(system.Organization), system.ID, mappingID,
		at.Format(storageKeyTimeLayout), safeName)
}

// orgSegment — первый сегмент ключа: организация без разделителей пути,
// не длиннее maxOrgSegment символов. Пустое значение и "."/".." дают "default".
func orgSegment(org *string) string {
	if org == nil {
		return defaultOrganization
	}
	seg := keySegmentReplacer.Replace(strings.TrimSpace(*org))
	if runes := []rune(seg); len(runes) > maxOrgSegment {
		seg = string(runes[:maxOrgSegment])
	}
	if strings.Trim(seg, ".") == "" {
		return defaultOrganization
	}
	return seg
}

// parseDate разбирает дату YYYY-MM-DD; nil — дата не задана.
func parseDate(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := time.Parse(model.DateLayout, strings.TrimSpace(*value))
	if err != nil {
		return nil, ErrInvalidDate
	}
	return &t, nil
}

// ListBySystem возвращает страницу живых evidence системы, новые первыми.
func (s *EvidenceService) ListBySystem(ctx context.Context, systemID string, page, pageSize int) (Page[*model.Evidence], error) {
	if _, err := s.store.Repos().Systems.GetByID(ctx, systemID); err != nil {
		return Page[*model.Evidence]{}, mapNotFound(err, ErrSystemNotFound)
	}
	return s.list(ctx, repository.EvidenceFilter{SystemID: &systemID}, page, pageSize)
}

// ListByMapping возвращает страницу живых evidence назначения, новые первыми.
func (s *EvidenceService) ListByMapping(ctx context.Context, mappingID string, page, pageSize int) (Page[*model.Evidence], error) {
	if _, err := s.store.Repos().Mappings.GetByID(ctx, mappingID); err != nil {
		return Page[*model.Evidence]{}, mapNotFound(err, ErrMappingNotFound)
	}
	return s.list(ctx, repository.EvidenceFilter{MappingID: &mappingID}, page, pageSize)
}

func (s *EvidenceService) list(ctx context.Context, filter repository.EvidenceFilter, page, pageSize int) (Page[*model.Evidence], error) {
	page, pageSize = NormalizePage(page, pageSize)
	repos := s.store.Repos()

	total, err := repos.Evidence.Count(ctx, filter)
	if err != nil {
		return Page[*model.Evidence]{}, err
	}
	items, err := repos.Evidence.List(ctx, filter, pageSize, (page-1)*pageSize)
	if err != nil {
		return Page[*model.Evidence]{}, err
	}
	return newPage(items, total, page, pageSize), nil
}

// Get возвращает живой evidence по ID.
func (s *EvidenceService) Get(ctx context.Context, id string) (*model.Evidence, error) {
	ev, err := s.store.Repos().Evidence.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrEvidenceNotFound)
	}
	return ev, nil
}

// DownloadReference выдаёт подписанную ссылку на скачивание, действующую
// model.DownloadURLTTL. Содержимое файла через сервис не проходит.
func (s *EvidenceService) DownloadReference(ctx context.Context, id string) (*model.DownloadReference, error) {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	link, err := s.blobs.PresignGet(ctx, ev.StorageKey, ev.FileName, model.DownloadURLTTL)
	if err != nil {
		s.logger.Error("Ошибка генерации ссылки на скачивание",
			slog.String("evidence_id", ev.ID),
			slog.String("key", ev.StorageKey),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return &model.DownloadReference{
		URL:       link,
		FileName:  ev.FileName,
		ExpiresAt: s.now().UTC().Add(model.DownloadURLTTL),
		ExpiresIn: model.DownloadURLTTL,
	}, nil
}

// UpdateMetadata проверяет все заданные поля и только затем применяет их.
func (s *EvidenceService) UpdateMetadata(ctx context.Context, id string, params MetadataParams) (*model.Evidence, error) {
	upd := model.EvidenceMetadataUpdate{Description: params.Description}

	expiration, err := parseDate(params.ExpirationDate)
	if err != nil {
		return nil, err
	}
	upd.ExpirationDate = expiration

	if params.Status != nil {
		st := model.EvidenceStatus(*params.Status)
		if !st.Valid() {
			return nil, ErrInvalidEvidenceStatus
		}
		upd.Status = &st
	}

	ev, err := s.store.Repos().Evidence.UpdateMetadata(ctx, id, upd)
	if err != nil {
		return nil, mapNotFound(err, ErrEvidenceNotFound)
	}
	s.logger.Info("Метаданные evidence обновлены",
		slog.String("evidence_id", ev.ID),
		slog.String("status", string(ev.Status)),
	)
	return ev, nil
}

// SoftDelete помечает evidence удалённым. Blob не затрагивается,
// повторный вызов возвращает ErrEvidenceNotFound.
func (s *EvidenceService) SoftDelete(ctx context.Context, id string) error {
	if err := s.store.Repos().Evidence.SoftDelete(ctx, id, s.now().UTC()); err != nil {
		return mapNotFound(err, ErrEvidenceNotFound)
	}
	s.logger.Info("Evidence удалён (мягко)", slog.String("evidence_id", id))
	return nil
}

// Stats возвращает количество живых evidence назначения по статусам;
// все четыре статуса присутствуют.
func (s *EvidenceService) Stats(ctx context.Context, mappingID string) (*model.EvidenceStats, error) {
	repos := s.store.Repos()
	if _, err := repos.Mappings.GetByID(ctx, mappingID); err != nil {
		return nil, mapNotFound(err, ErrMappingNotFound)
	}

	counts, err := repos.Evidence.CountByStatus(ctx, mappingID)
	if err != nil {
		return nil, err
	}

	stats := &model.EvidenceStats{
		MappingID: mappingID,
		ByStatus:  make(map[model.EvidenceStatus]int, len(model.EvidenceStatuses)),
	}
	for _, st := range model.EvidenceStatuses {
		stats.ByStatus[st] = counts[st]
		stats.Total += counts[st]
	}
	return stats, nil
}

