// errors.go — ошибки бизнес-логики сервисного слоя.
//
// Категории (ErrNotFound, ErrValidation, ErrStorage, ErrConflict) определяют
// HTTP-код ответа; конкретные ошибки оборачивают категорию и несут текст
// для клиента, errors.Is работает по обоим уровням.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден (или удалён мягко).
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrStorage — ошибка blob-хранилища (запись или выдача ссылки).
	ErrStorage = errors.New("хранилище evidence недоступно")
)

// Конкретные ошибки.
var (
	ErrSystemNotFound   = categorized(ErrNotFound, "AI-система не найдена")
	ErrMappingNotFound  = categorized(ErrNotFound, "назначение требования не найдено")
	ErrEvidenceNotFound = categorized(ErrNotFound, "evidence не найден")

	ErrInvalidName         = categorized(ErrValidation, "название системы не может быть пустым")
	ErrInvalidRiskCategory = categorized(ErrValidation, "некорректная категория риска: допустимые значения — unacceptable, high, limited, minimal")
	ErrInvalidStatus       = categorized(ErrValidation, "некорректный статус: допустимые значения — not_started, in_progress, completed, non_compliant")
	ErrInvalidEvidenceStatus = categorized(ErrValidation,
		"некорректный статус evidence: допустимые значения — current, expiring_soon, expired, archived")
	ErrMissingExtension    = categorized(ErrValidation, "у файла нет расширения")
	ErrUnsupportedFileType = categorized(ErrValidation, "недопустимый тип файла: разрешены pdf, png, jpg, jpeg, xlsx, docx, csv")
	ErrFileNameTooLong     = categorized(ErrValidation, "имя файла длиннее 255 символов")
	ErrEmptyFile           = categorized(ErrValidation, "файл пуст")
	ErrFileTooLarge        = categorized(ErrValidation, "файл превышает максимальный размер 25 MiB")
	ErrInvalidDate         = categorized(ErrValidation, "некорректная дата: ожидается формат YYYY-MM-DD")
)

// categorizedError — ошибка с текстом для клиента и категорией для errors.Is.
type categorizedError struct {
	kind error
	msg  string
}

func categorized(kind error, msg string) error {
	return &categorizedError{kind: kind, msg: msg}
}

func (e *categorizedError) Error() string { return e.msg }

func (e *categorizedError) Unwrap() error { return e.kind }
