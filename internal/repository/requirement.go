package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Hexidus/watchgraph/internal/domain/model"
)

// RequirementRepository — доступ к каталогу compliance_requirements (только чтение и сидирование).
type RequirementRepository interface {
	// Count возвращает количество требований в каталоге.
	Count(ctx context.Context) (int, error)
	// CreateBatch вставляет требования в порядке среза, выдавая им UUID.
	CreateBatch(ctx context.Context, reqs []model.Requirement) error
	// List возвращает весь каталог в порядке сидирования.
	List(ctx context.Context) ([]*model.Requirement, error)
}

// requirementRepo — реализация RequirementRepository.
type requirementRepo struct {
	db DBTX
}

// NewRequirementRepository создаёт репозиторий каталога требований.
func NewRequirementRepository(db DBTX) RequirementRepository {
	return &requirementRepo{db: db}
}

func (r *requirementRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM compliance_requirements`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта требований: %w", err)
	}
	return count, nil
}

func (r *requirementRepo) CreateBatch(ctx context.Context, reqs []model.Requirement) error {
	query := `
		INSERT INTO compliance_requirements (id, position, article, title, description, applies_to)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for i := range reqs {
		req := &reqs[i]
		if req.ID == "" {
			req.ID = uuid.New().String()
		}
		if _, err := r.db.Exec(ctx, query,
			req.ID, i, req.Article, req.Title, req.Description, categoriesToStrings(req.AppliesTo),
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: требование %s уже существует", ErrConflict, req.Article)
			}
			return fmt.Errorf("ошибка вставки требования %s: %w", req.Article, err)
		}
	}
	return nil
}

func (r *requirementRepo) List(ctx context.Context) ([]*model.Requirement, error) {
	query := `
		SELECT id, article, title, description, applies_to
		FROM compliance_requirements
		ORDER BY position, article`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения каталога требований: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Requirement, 0)
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования требования: %w", err)
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func scanRequirement(row pgx.Row) (*model.Requirement, error) {
	req := &model.Requirement{}
	var appliesTo []string
	if err := row.Scan(&req.ID, &req.Article, &req.Title, &req.Description, &appliesTo); err != nil {
		return nil, err
	}
	req.AppliesTo = stringsToCategories(appliesTo)
	return req, nil
}

func categoriesToStrings(cats []model.RiskCategory) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}

func stringsToCategories(values []string) []model.RiskCategory {
	out := make([]model.RiskCategory, len(values))
	for i, v := range values {
		out[i] = model.RiskCategory(v)
	}
	return out
}
