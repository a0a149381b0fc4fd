// compliance.go — ComplianceService: статусы назначений и сводка соответствия.
package service

import (
	"context"
	"log/slog"

	"github.com/Hexidus/watchgraph/internal/domain/model"
)

// UpdateStatusParams — входные данные обновления статуса назначения.
type UpdateStatusParams struct {
	Status model.ComplianceStatus
	// Notes и UpdatedBy перезаписываются только если заданы
	Notes     *string
	UpdatedBy *string
	// Caller — личность вызывающего; становится автором изменений,
	// только если UpdatedBy не задан и автора у назначения ещё нет.
	Caller *string
}

// ComplianceService — трекер статусов и агрегатор соответствия.
type ComplianceService struct {
	store  Store
	logger *slog.Logger
}

// NewComplianceService создаёт сервис соответствия.
func NewComplianceService(store Store, logger *slog.Logger) *ComplianceService {
	return &ComplianceService{
		store:  store,
		logger: logger.With(slog.String("component", "compliance")),
	}
}

// ListMappings возвращает назначения системы вместе с требованиями.
func (s *ComplianceService) ListMappings(ctx context.Context, systemID string) ([]*model.MappingDetail, error) {
	repos := s.store.Repos()
	if _, err := repos.Systems.GetByID(ctx, systemID); err != nil {
		return nil, mapNotFound(err, ErrSystemNotFound)
	}
	details, err := repos.Mappings.ListDetailsBySystem(ctx, systemID)
	if err != nil {
		return nil, err
	}
	if details == nil {
		details = []*model.MappingDetail{}
	}
	return details, nil
}

// UpdateStatus безусловно перезаписывает статус назначения (переходы
// не ограничены, побеждает последний писатель) и пишет аудит-запись перехода.
func (s *ComplianceService) UpdateStatus(ctx context.Context, mappingID string, params UpdateStatusParams) (*model.RequirementMapping, error) {
	if !params.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	t, err := s.store.Repos().Mappings.UpdateStatus(ctx, mappingID, model.StatusUpdate{
		Status:           params.Status,
		Notes:            params.Notes,
		UpdatedBy:        params.UpdatedBy,
		DefaultUpdatedBy: params.Caller,
	})
	if err != nil {
		return nil, mapNotFound(err, ErrMappingNotFound)
	}

	statusTransitionsTotal.WithLabelValues(string(t.PreviousStatus), string(t.Mapping.Status)).Inc()

	attrs := []any{
		slog.String("mapping_id", t.Mapping.ID),
		slog.String("system_id", t.Mapping.AISystemID),
		slog.String("requirement", t.RequirementTitle),
		slog.String("from", string(t.PreviousStatus)),
		slog.String("to", string(t.Mapping.Status)),
	}
	if t.Mapping.UpdatedBy != nil {
		attrs = append(attrs, slog.String("updated_by", *t.Mapping.UpdatedBy))
	}
	s.logger.Info("Статус требования изменён", attrs...)

	return &t.Mapping, nil
}

// Summarize считает сводку соответствия системы: процент completed
// и распределение назначений по статусам. Evidence не учитываются.
func (s *ComplianceService) Summarize(ctx context.Context, systemID string) (*model.ComplianceSummary, error) {
	repos := s.store.Repos()
	if _, err := repos.Systems.GetByID(ctx, systemID); err != nil {
		return nil, mapNotFound(err, ErrSystemNotFound)
	}

	counts, err := repos.Mappings.CountByStatus(ctx, systemID)
	if err != nil {
		return nil, err
	}
	return summarize(systemID, counts), nil
}

// summarize строит сводку по количеству назначений в каждом статусе.
func summarize(systemID string, counts map[model.ComplianceStatus]int) *model.ComplianceSummary {
	summary := &model.ComplianceSummary{
		SystemID:  systemID,
		Breakdown: map[model.ComplianceStatus]int{},
	}
	for _, st := range model.ComplianceStatuses {
		summary.Total += counts[st]
	}
	if summary.Total == 0 {
		return summary
	}

	for _, st := range model.ComplianceStatuses {
		summary.Breakdown[st] = counts[st]
	}
	summary.Percentage = completionPercentage(counts[model.StatusCompleted], summary.Total)
	return summary
}

// completionPercentage возвращает completed/total*100, округлённое до сотых
// половиной вверх. Считается в целых сотых, чтобы 1/32 давало 3.13, а не 3.12.
func completionPercentage(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	hundredths := (2*completed*10000 + total) / (2 * total)
	return float64(hundredths) / 100
}
