package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Hexidus/watchgraph/internal/domain/model"
)

// EvidenceRepository — доступ к таблице evidence.
// Все методы, кроме DeleteBySystem, видят только живые (не удалённые мягко) записи.
type EvidenceRepository interface {
	// Create сохраняет метаданные загруженного evidence.
	Create(ctx context.Context, e *model.Evidence) error
	// GetByID возвращает живую запись по UUID.
	GetByID(ctx context.Context, id string) (*model.Evidence, error)
	// List возвращает живые записи по фильтру от новых к старым.
	List(ctx context.Context, filter EvidenceFilter, limit, offset int) ([]*model.Evidence, error)
	// Count возвращает количество живых записей по фильтру.
	Count(ctx context.Context, filter EvidenceFilter) (int, error)
	// UpdateMetadata применяет частичное обновление к живой записи.
	UpdateMetadata(ctx context.Context, id string, upd model.EvidenceMetadataUpdate) (*model.Evidence, error)
	// SoftDelete проставляет deleted_at. Повторный вызов — ErrNotFound.
	SoftDelete(ctx context.Context, id string, at time.Time) error
	// CountByStatus возвращает количество живых записей назначения по статусам.
	CountByStatus(ctx context.Context, mappingID string) (map[model.EvidenceStatus]int, error)
	// DeleteBySystem физически удаляет все записи системы, включая удалённые мягко.
	DeleteBySystem(ctx context.Context, systemID string) (int64, error)
}

// EvidenceFilter — владелец выборки evidence: система или назначение требования.
type EvidenceFilter struct {
	SystemID  *string
	MappingID *string
}

// evidenceRepo — реализация EvidenceRepository.
type evidenceRepo struct {
	db DBTX
}

// NewEvidenceRepository создаёт репозиторий evidence.
func NewEvidenceRepository(db DBTX) EvidenceRepository {
	return &evidenceRepo{db: db}
}

const evidenceColumns = `id, ai_system_id, requirement_mapping_id, file_name, file_type, file_size,
	s3_key, status, description, expiration_date, uploaded_by, deleted_at, created_at, updated_at`

func scanEvidence(row pgx.Row) (*model.Evidence, error) {
	e := &model.Evidence{}
	err := row.Scan(
		&e.ID, &e.AISystemID, &e.MappingID, &e.FileName, &e.FileType, &e.FileSize,
		&e.StorageKey, &e.Status, &e.Description, &e.ExpirationDate, &e.UploadedBy,
		&e.DeletedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func (r *evidenceRepo) Create(ctx context.Context, e *model.Evidence) error {
	query := `
		INSERT INTO evidence (id, ai_system_id, requirement_mapping_id, file_name, file_type,
			file_size, s3_key, status, description, expiration_date, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		e.ID, e.AISystemID, e.MappingID, e.FileName, e.FileType,
		e.FileSize, e.StorageKey, string(e.Status), e.Description, e.ExpirationDate, e.UploadedBy,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: evidence с таким ID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка сохранения evidence: %w", err)
	}
	return nil
}

func (r *evidenceRepo) GetByID(ctx context.Context, id string) (*model.Evidence, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	query := `SELECT ` + evidenceColumns + ` FROM evidence WHERE id = $1 AND deleted_at IS NULL`

	e, err := scanEvidence(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения evidence: %w", err)
	}
	return e, nil
}

// buildEvidenceWhere строит WHERE-условие и аргументы для выборки живых evidence.
func buildEvidenceWhere(filter EvidenceFilter, startArg int) (string, []any) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any
	argNum := startArg

	if filter.SystemID != nil {
		conditions = append(conditions, fmt.Sprintf("ai_system_id = $%d", argNum))
		args = append(args, *filter.SystemID)
		argNum++
	}
	if filter.MappingID != nil {
		conditions = append(conditions, fmt.Sprintf("requirement_mapping_id = $%d", argNum))
		args = append(args, *filter.MappingID)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// filterValid сообщает, что все идентификаторы фильтра — корректные UUID.
func filterValid(filter EvidenceFilter) bool {
	if filter.SystemID != nil && !validID(*filter.SystemID) {
		return false
	}
	if filter.MappingID != nil && !validID(*filter.MappingID) {
		return false
	}
	return true
}

func (r *evidenceRepo) List(ctx context.Context, filter EvidenceFilter, limit, offset int) ([]*model.Evidence, error) {
	result := make([]*model.Evidence, 0)
	if !filterValid(filter) {
		return result, nil
	}

	where, args := buildEvidenceWhere(filter, 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(`SELECT %s
		FROM evidence
		%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`, evidenceColumns, where, argNum, argNum+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка evidence: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования evidence: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *evidenceRepo) Count(ctx context.Context, filter EvidenceFilter) (int, error) {
	if !filterValid(filter) {
		return 0, nil
	}

	where, args := buildEvidenceWhere(filter, 1)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM evidence `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта evidence: %w", err)
	}
	return count, nil
}

func (r *evidenceRepo) UpdateMetadata(ctx context.Context, id string, upd model.EvidenceMetadataUpdate) (*model.Evidence, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	var status *string
	if upd.Status != nil {
		s := string(*upd.Status)
		status = &s
	}

	query := `
		UPDATE evidence
		SET description = COALESCE($2, description),
			expiration_date = COALESCE($3::date, expiration_date),
			status = COALESCE($4, status),
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + evidenceColumns

	e, err := scanEvidence(r.db.QueryRow(ctx, query, id, upd.Description, upd.ExpirationDate, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления evidence: %w", err)
	}
	return e, nil
}

func (r *evidenceRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	if !validID(id) {
		return ErrNotFound
	}

	query := `
		UPDATE evidence
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("ошибка удаления evidence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *evidenceRepo) CountByStatus(ctx context.Context, mappingID string) (map[model.EvidenceStatus]int, error) {
	counts := make(map[model.EvidenceStatus]int)
	if !validID(mappingID) {
		return counts, nil
	}

	query := `
		SELECT status, COUNT(*)
		FROM evidence
		WHERE requirement_mapping_id = $1 AND deleted_at IS NULL
		GROUP BY status`

	rows, err := r.db.Query(ctx, query, mappingID)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта evidence по статусам: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статистики evidence: %w", err)
		}
		counts[model.EvidenceStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *evidenceRepo) DeleteBySystem(ctx context.Context, systemID string) (int64, error) {
	if !validID(systemID) {
		return 0, nil
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM evidence WHERE ai_system_id = $1`, systemID)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления evidence системы: %w", err)
	}
	return tag.RowsAffected(), nil
}
