package model

import (
	"path/filepath"
	"strings"
	"time"
)

// MaxEvidenceSize — максимальный размер файла evidence (25 MiB).
const MaxEvidenceSize int64 = 25 * 1024 * 1024

// MaxFileNameLength — предел имени файла в символах (evidence.file_name VARCHAR(255)).
const MaxFileNameLength = 255

// DownloadURLTTL — время жизни ссылки на скачивание evidence.
const DownloadURLTTL = 5 * time.Minute

// DateLayout — формат даты истечения срока evidence (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// evidenceContentTypes — допустимые расширения evidence и их MIME-типы.
var evidenceContentTypes = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"csv":  "text/csv",
}

// AllowedEvidenceTypes — список допустимых расширений (для сообщений об ошибках).
var AllowedEvidenceTypes = []string{"pdf", "png", "jpg", "jpeg", "xlsx", "docx", "csv"}

// FileExtension возвращает расширение имени файла в нижнем регистре без точки.
// Пустая строка — расширения нет.
func FileExtension(fileName string) string {
	ext := filepath.Ext(fileName)
	if len(ext) <= 1 {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// IsAllowedEvidenceType сообщает, входит ли расширение в allow-list.
func IsAllowedEvidenceType(ext string) bool {
	_, ok := evidenceContentTypes[ext]
	return ok
}

// ContentTypeFor возвращает MIME-тип по расширению.
// Для неизвестных расширений — application/octet-stream.
func ContentTypeFor(ext string) string {
	if ct, ok := evidenceContentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Evidence — загруженный документ, подтверждающий выполнение требования.
// Хранится в таблице evidence, содержимое — во внешнем blob-хранилище по StorageKey.
type Evidence struct {
	// ID — UUID evidence
	ID string
	// AISystemID — система-владелец
	AISystemID string
	// MappingID — назначение требования (опционально)
	MappingID *string
	// FileName — оригинальное имя файла
	FileName string
	// FileType — расширение из allow-list
	FileType string
	// FileSize — размер в байтах, 0 < size <= MaxEvidenceSize
	FileSize int64
	// StorageKey — ключ объекта в blob-хранилище
	StorageKey string
	// Status — статус актуальности
	Status EvidenceStatus
	// Description — описание (опционально)
	Description *string
	// ExpirationDate — дата истечения срока действия, только дата (UTC)
	ExpirationDate *time.Time
	// UploadedBy — кто загрузил
	UploadedBy *string
	// DeletedAt — время мягкого удаления; nil у живых записей
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EvidenceMetadataUpdate — частичное обновление метаданных evidence.
// nil-поля не изменяются.
type EvidenceMetadataUpdate struct {
	Description    *string
	ExpirationDate *time.Time
	Status         *EvidenceStatus
}

// EvidenceStats — количество живых evidence по статусам для одного назначения.
type EvidenceStats struct {
	MappingID string
	Total     int
	ByStatus  map[EvidenceStatus]int
}

// DownloadReference — ссылка на прямое скачивание blob с ограниченным сроком действия.
type DownloadReference struct {
	URL       string
	FileName  string
	ExpiresAt time.Time
	ExpiresIn time.Duration
}
