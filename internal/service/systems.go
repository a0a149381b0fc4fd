// systems.go — SystemService: регистрация, чтение и каскадное удаление AI-систем.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Hexidus/watchgraph/internal/domain/model"
	"github.com/Hexidus/watchgraph/internal/repository"
)

// CreateSystemParams — входные данные регистрации системы.
type CreateSystemParams struct {
	Name         string
	Description  *string
	RiskCategory model.RiskCategory
	Organization *string
	Department   *string
	OwnerEmail   *string
}

// SystemService — операции над AI-системами.
type SystemService struct {
	store  Store
	engine *AssignmentEngine
	newID  func() string
	logger *slog.Logger
}

// NewSystemService создаёт сервис систем.
func NewSystemService(store Store, engine *AssignmentEngine, logger *slog.Logger) *SystemService {
	return &SystemService{
		store:  store,
		engine: engine,
		newID:  uuid.NewString,
		logger: logger.With(slog.String("component", "systems")),
	}
}

// Create регистрирует систему и назначает ей применимые требования
// в одной транзакции. Возвращает систему и количество назначенных требований.
func (s *SystemService) Create(ctx context.Context, params CreateSystemParams) (*model.AISystem, int, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, 0, ErrInvalidName
	}
	if !params.RiskCategory.Valid() {
		return nil, 0, ErrInvalidRiskCategory
	}

	system := &model.AISystem{
		ID:           s.newID(),
		Name:         name,
		Description:  params.Description,
		RiskCategory: params.RiskCategory,
		Organization: params.Organization,
		Department:   params.Department,
		OwnerEmail:   params.OwnerEmail,
	}

	assigned := 0
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		if err := r.Systems.Create(ctx, system); err != nil {
			return err
		}
		n, err := s.engine.Assign(ctx, r, system)
		if err != nil {
			return err
		}
		assigned = n
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.logger.Info("AI-система зарегистрирована",
		slog.String("system_id", system.ID),
		slog.String("name", system.Name),
		slog.String("risk_category", string(system.RiskCategory)),
		slog.Int("requirements_assigned", assigned),
	)
	return system, assigned, nil
}

// Get возвращает систему по ID.
func (s *SystemService) Get(ctx context.Context, id string) (*model.AISystem, error) {
	system, err := s.store.Repos().Systems.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrSystemNotFound)
	}
	return system, nil
}

// List возвращает страницу систем от новых к старым.
func (s *SystemService) List(ctx context.Context, page, pageSize int) (Page[*model.AISystem], error) {
	page, pageSize = NormalizePage(page, pageSize)
	repos := s.store.Repos()

	total, err := repos.Systems.Count(ctx)
	if err != nil {
		return Page[*model.AISystem]{}, err
	}
	items, err := repos.Systems.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return Page[*model.AISystem]{}, err
	}
	return newPage(items, total, page, pageSize), nil
}

// Delete удаляет систему вместе со всеми назначениями и evidence (включая
// удалённые мягко) в одной транзакции. Blob-объекты не удаляются.
func (s *SystemService) Delete(ctx context.Context, id string) error {
	var evidenceDeleted, mappingsDeleted int64
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Systems.GetByID(ctx, id); err != nil {
			return err
		}
		var err error
		if evidenceDeleted, err = r.Evidence.DeleteBySystem(ctx, id); err != nil {
			return err
		}
		if mappingsDeleted, err = r.Mappings.DeleteBySystem(ctx, id); err != nil {
			return err
		}
		return r.Systems.Delete(ctx, id)
	})
	if err != nil {
		return mapNotFound(err, ErrSystemNotFound)
	}

	s.logger.Info("AI-система удалена",
		slog.String("system_id", id),
		slog.Int64("evidence_deleted", evidenceDeleted),
		slog.Int64("mappings_deleted", mappingsDeleted),
	)
	return nil
}
