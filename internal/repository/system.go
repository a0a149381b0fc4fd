package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Hexidus/watchgraph/internal/domain/model"
)

// SystemRepository — интерфейс CRUD для таблицы ai_systems.
type SystemRepository interface {
	// Create сохраняет новую систему. ID должен быть задан вызывающим.
	Create(ctx context.Context, s *model.AISystem) error
	// GetByID возвращает систему по UUID.
	GetByID(ctx context.Context, id string) (*model.AISystem, error)
	// List возвращает системы от новых к старым.
	List(ctx context.Context, limit, offset int) ([]*model.AISystem, error)
	// Count возвращает общее количество систем.
	Count(ctx context.Context) (int, error)
	// Delete удаляет строку системы (зависимые строки удаляются заранее).
	Delete(ctx context.Context, id string) error
}

// systemRepo — реализация SystemRepository.
type systemRepo struct {
	db DBTX
}

// NewSystemRepository создаёт репозиторий AI-систем.
func NewSystemRepository(db DBTX) SystemRepository {
	return &systemRepo{db: db}
}

const systemColumns = `id, name, description, risk_category, organization, department,
	owner_email, created_at, updated_at`

func scanSystem(row pgx.Row) (*model.AISystem, error) {
	s := &model.AISystem{}
	err := row.Scan(
		&s.ID, &s.Name, &s.Description, &s.RiskCategory, &s.Organization, &s.Department,
		&s.OwnerEmail, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

func (r *systemRepo) Create(ctx context.Context, s *model.AISystem) error {
	query := `
		INSERT INTO ai_systems (id, name, description, risk_category, organization, department, owner_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		s.ID, s.Name, s.Description, string(s.RiskCategory), s.Organization, s.Department, s.OwnerEmail,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: система с таким ID уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания системы: %w", err)
	}
	return nil
}

func (r *systemRepo) GetByID(ctx context.Context, id string) (*model.AISystem, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}

	query := `SELECT ` + systemColumns + ` FROM ai_systems WHERE id = $1`

	s, err := scanSystem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения системы: %w", err)
	}
	return s, nil
}

func (r *systemRepo) List(ctx context.Context, limit, offset int) ([]*model.AISystem, error) {
	query := `SELECT ` + systemColumns + `
		FROM ai_systems
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка систем: %w", err)
	}
	defer rows.Close()

	result := make([]*model.AISystem, 0)
	for rows.Next() {
		s, err := scanSystem(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования системы: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *systemRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ai_systems`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта систем: %w", err)
	}
	return count, nil
}

func (r *systemRepo) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM ai_systems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления системы: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
