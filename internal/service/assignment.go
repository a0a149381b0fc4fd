// assignment.go — AssignmentEngine: назначение применимых требований новой системе.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Hexidus/watchgraph/internal/domain/model"
	"github.com/Hexidus/watchgraph/internal/repository"
)

// SelectApplicable возвращает требования, в applies_to которых входит категория.
// Порядок каталога сохраняется.
func SelectApplicable(reqs []*model.Requirement, category model.RiskCategory) []*model.Requirement {
	result := make([]*model.Requirement, 0, len(reqs))
	for _, r := range reqs {
		if r.AppliesToCategory(category) {
			result = append(result, r)
		}
	}
	return result
}

// AssignmentEngine создаёт назначения требований со статусом not_started.
type AssignmentEngine struct {
	catalog *CatalogService
	newID   func() string
	logger  *slog.Logger
}

// NewAssignmentEngine создаёт движок назначения.
func NewAssignmentEngine(catalog *CatalogService, logger *slog.Logger) *AssignmentEngine {
	return &AssignmentEngine{
		catalog: catalog,
		newID:   uuid.NewString,
		logger:  logger.With(slog.String("component", "assignment")),
	}
}

// Assign создаёт по одному назначению на каждое применимое требование.
// repos — репозитории транзакции, в которой создаётся система: ошибка
// откатывает и вставку системы. Повторный вызов безопасен, существующие
// пары (система, требование) пропускаются. Возвращает количество новых назначений.
func (e *AssignmentEngine) Assign(ctx context.Context, repos *repository.Repositories, system *model.AISystem) (int, error) {
	reqs, err := e.catalog.Applicable(ctx, system.RiskCategory)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, req := range reqs {
		ok, err := repos.Mappings.Create(ctx, &model.RequirementMapping{
			ID:            e.newID(),
			AISystemID:    system.ID,
			RequirementID: req.ID,
			Status:        model.StatusNotStarted,
		})
		if err != nil {
			return 0, fmt.Errorf("назначение %s: %w", req.Article, err)
		}
		if ok {
			created++
		}
	}

	requirementsAssignedTotal.WithLabelValues(string(system.RiskCategory)).Add(float64(created))
	e.logger.Debug("Требования назначены",
		slog.String("system_id", system.ID),
		slog.String("risk_category", string(system.RiskCategory)),
		slog.Int("applicable", len(reqs)),
		slog.Int("created", created),
	)
	return created, nil
}
