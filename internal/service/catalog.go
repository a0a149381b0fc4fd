// catalog.go — CatalogService: каталог требований EU AI Act.
// Каталог — справочные данные только для чтения: сидируется один раз при старте
// и кэшируется в LRU с TTL (hashicorp/golang-lru/v2/expirable).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Hexidus/watchgraph/internal/domain/catalog"
	"github.com/Hexidus/watchgraph/internal/domain/model"
	"github.com/Hexidus/watchgraph/internal/repository"
)

// catalogKey — ключ полного каталога в кэше.
const catalogKey = "catalog"

// CatalogService — чтение и сидирование каталога требований.
type CatalogService struct {
	store  Store
	cache  *expirable.LRU[string, []*model.Requirement]
	logger *slog.Logger
}

// NewCatalogService создаёт сервис каталога.
// cacheSize — максимальное количество записей кэша, cacheTTL — время жизни записи.
func NewCatalogService(store Store, cacheSize int, cacheTTL time.Duration, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:  store,
		cache:  expirable.NewLRU[string, []*model.Requirement](cacheSize, nil, cacheTTL),
		logger: logger.With(slog.String("component", "catalog")),
	}
}

// Seed заполняет каталог, если в нём нет ни одного требования.
// Возвращает количество вставленных требований (0 — каталог уже заполнен).
// Одновременный сид с другого экземпляра (нарушение уникальности article)
// считается успешным.
func (s *CatalogService) Seed(ctx context.Context) (int, error) {
	inserted := 0
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		count, err := r.Requirements.Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		reqs := catalog.Seed()
		if err := r.Requirements.CreateBatch(ctx, reqs); err != nil {
			return err
		}
		inserted = len(reqs)
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.logger.Info("Каталог требований уже заполнен другим экземпляром")
			return 0, nil
		}
		return 0, fmt.Errorf("ошибка сидирования каталога: %w", err)
	}

	s.cache.Purge()
	if inserted > 0 {
		s.logger.Info("Каталог требований заполнен", slog.Int("requirements", inserted))
	} else {
		s.logger.Debug("Каталог требований уже заполнен, сидирование пропущено")
	}
	return inserted, nil
}

// List возвращает весь каталог в порядке сидирования. Пустой каталог
// не кэшируется: его может засеять другой экземпляр сервиса.
func (s *CatalogService) List(ctx context.Context) ([]*model.Requirement, error) {
	if reqs, ok := s.cache.Get(catalogKey); ok {
		catalogCacheHitsTotal.Inc()
		return reqs, nil
	}
	catalogCacheMissesTotal.Inc()

	reqs, err := s.store.Repos().Requirements.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(reqs) > 0 {
		s.cache.Add(catalogKey, reqs)
	}
	return reqs, nil
}

// Applicable возвращает требования, применимые к категории риска.
func (s *CatalogService) Applicable(ctx context.Context, category model.RiskCategory) ([]*model.Requirement, error) {
	if !category.Valid() {
		return nil, ErrInvalidRiskCategory
	}
	key := "applicable:" + string(category)
	if reqs, ok := s.cache.Get(key); ok {
		catalogCacheHitsTotal.Inc()
		return reqs, nil
	}

	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	reqs := SelectApplicable(all, category)
	if len(all) > 0 {
		s.cache.Add(key, reqs)
	}
	return reqs, nil
}
