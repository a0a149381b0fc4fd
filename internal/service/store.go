// store.go — зависимости сервисного слоя от хранилища и общие типы выдачи.
package service

import (
	"context"
	"errors"

	"github.com/Hexidus/watchgraph/internal/repository"
)

// Store — доступ к репозиториям и транзакциям.
// Реализуется repository.Store; в тестах — in-memory фейком.
type Store interface {
	// Repos возвращает репозитории вне транзакции.
	Repos() *repository.Repositories
	// InTx выполняет fn в одной транзакции; ошибка fn откатывает изменения.
	InTx(ctx context.Context, fn func(r *repository.Repositories) error) error
}

// Параметры пагинации.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page — страница результатов с метаданными пагинации.
type Page[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
	HasMore  bool
}

// NormalizePage применяет значения по умолчанию: page < 1 → 1,
// pageSize < 1 → DefaultPageSize, pageSize > MaxPageSize → MaxPageSize.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func newPage[T any](items []T, total, page, pageSize int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  page*pageSize < total,
	}
}

// mapNotFound заменяет repository.ErrNotFound на конкретную ошибку сервиса.
func mapNotFound(err, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return err
}
