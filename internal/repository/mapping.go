package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Hexidus/watchgraph/internal/domain/model"
)

// MappingRepository — доступ к таблице requirement_mappings.
type MappingRepository interface {
	// Create вставляет назначение требования системе.
	// Повторная вставка той же пары (система, требование) пропускается: created = false.
	Create(ctx context.Context, m *model.RequirementMapping) (created bool, err error)
	// GetByID возвращает назначение по UUID.
	GetByID(ctx context.Context, id string) (*model.RequirementMapping, error)
	// ListDetailsBySystem возвращает назначения системы вместе с данными требований.
	ListDetailsBySystem(ctx context.Context, systemID string) ([]*model.MappingDetail, error)
	// UpdateStatus перезаписывает статус по правилам model.StatusUpdate.
	// Возвращает новое состояние, предыдущий статус и название требования.
	UpdateStatus(ctx context.Context, id string, upd model.StatusUpdate) (*model.StatusTransition, error)
	// CountByStatus возвращает количество назначений системы по статусам.
	CountByStatus(ctx context.Context, systemID string) (map[model.ComplianceStatus]int, error)
	// DeleteBySystem удаляет все назначения системы.
	DeleteBySystem(ctx context.Context, systemID string) (int64, error)
}

// mappingRepo — реализация MappingRepository.
type mappingRepo struct {
	db DBTX
}

// NewMappingRepository создаёт репозиторий назначений требований.
func NewMappingRepository(db DBTX) MappingRepository {
	return &mappingRepo{db: db}
}

func (r *mappingRepo) Create(ctx context.Context, m *model.RequirementMapping) (bool, error) {
	query := `
		INSERT INTO requirement_mappings (id, ai_system_id, requirement_id, status, notes, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT uq_requirement_mappings_system_requirement DO NOTHING
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		m.ID, m.AISystemID, m.RequirementID, string(m.Status), m.Notes, m.UpdatedBy,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("ошибка создания назначения требования: %w", err)
	}
	return true, nil
}

func (r *mappingRepo) GetByID(ctx context.Context, id string) (*model.RequirementMapping, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	query := `
		SELECT id, ai_system_id, requirement_id, status, notes, updated_by, created_at, updated_at
		FROM requirement_mappings
		WHERE id = $1`

	m := &model.RequirementMapping{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&m.ID, &m.AISystemID, &m.RequirementID, &m.Status, &m.Notes, &m.UpdatedBy, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения назначения: %w", err)
	}
	return m, nil
}

func (r *mappingRepo) ListDetailsBySystem(ctx context.Context, systemID string) ([]*model.MappingDetail, error) {
	result := make([]*model.MappingDetail, 0)
	if !validID(systemID) {
		return result, nil
	}

	query := `
		SELECT m.id, m.ai_system_id, m.requirement_id, m.status, m.notes, m.updated_by,
			m.created_at, m.updated_at,
			r.id, r.article, r.title, r.description, r.applies_to
		FROM requirement_mappings m
		JOIN compliance_requirements r ON r.id = m.requirement_id
		WHERE m.ai_system_id = $1
		ORDER BY r.position, r.article`

	rows, err := r.db.Query(ctx, query, systemID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения назначений системы: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		d := &model.MappingDetail{}
		var appliesTo []string
		if err := rows.Scan(
			&d.ID, &d.AISystemID, &d.RequirementID, &d.Status, &d.Notes, &d.UpdatedBy,
			&d.CreatedAt, &d.UpdatedAt,
			&d.Requirement.ID, &d.Requirement.Article, &d.Requirement.Title,
			&d.Requirement.Description, &appliesTo,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования назначения: %w", err)
		}
		d.Requirement.AppliesTo = stringsToCategories(appliesTo)
		result = append(result, d)
	}
	return result, rows.Err()
}

// UpdateStatus — одно выражение: подзапрос блокирует строку (FOR UPDATE) и отдаёт
// предыдущий статус, UPDATE перезаписывает его. Конкурентные обновления
// сериализуются блокировкой строки, побеждает последний.
func (r *mappingRepo) UpdateStatus(ctx context.Context, id string, upd model.StatusUpdate) (*model.StatusTransition, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	query := `
		UPDATE requirement_mappings m
		SET status = $2,
			notes = COALESCE($3, m.notes),
			updated_by = COALESCE($4, m.updated_by, $5),
			updated_at = NOW()
		FROM (SELECT id, status FROM requirement_mappings WHERE id = $1 FOR UPDATE) prev,
			compliance_requirements r
		WHERE m.id = prev.id AND r.id = m.requirement_id
		RETURNING m.id, m.ai_system_id, m.requirement_id, m.status, m.notes, m.updated_by,
			m.created_at, m.updated_at, prev.status, r.title`

	t := &model.StatusTransition{}
	m := &t.Mapping
	err := r.db.QueryRow(ctx, query, id, string(upd.Status), upd.Notes, upd.UpdatedBy, upd.DefaultUpdatedBy).Scan(
		&m.ID, &m.AISystemID, &m.RequirementID, &m.Status, &m.Notes, &m.UpdatedBy,
		&m.CreatedAt, &m.UpdatedAt, &t.PreviousStatus, &t.RequirementTitle,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления статуса назначения: %w", err)
	}
	return t, nil
}

func (r *mappingRepo) CountByStatus(ctx context.Context, systemID string) (map[model.ComplianceStatus]int, error) {
	counts := make(map[model.ComplianceStatus]int)
	if !validID(systemID) {
		return counts, nil
	}

	query := `
		SELECT status, COUNT(*)
		FROM requirement_mappings
		WHERE ai_system_id = $1
		GROUP BY status`

	rows, err := r.db.Query(ctx, query, systemID)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта назначений: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("ошибка сканирования статистики назначений: %w", err)
		}
		counts[model.ComplianceStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *mappingRepo) DeleteBySystem(ctx context.Context, systemID string) (int64, error) {
	if !validID(systemID) {
		return 0, nil
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM requirement_mappings WHERE ai_system_id = $1`, systemID)
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления назначений системы: %w", err)
	}
	return tag.RowsAffected(), nil
}
