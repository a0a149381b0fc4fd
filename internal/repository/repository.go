// Пакет repository — хранение AI-систем, каталога требований,
// назначений и evidence в PostgreSQL. SQL пишется вручную поверх pgx.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — нарушение уникальности (повторный id, статья каталога, ключ объекта).
	ErrConflict = errors.New("запись уже существует")
)

// DBTX — общее подмножество *pgxpool.Pool и pgx.Tx: одни и те же
// репозитории работают и через пул, и внутри транзакции.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories — набор репозиториев поверх одного DBTX (пул или транзакция).
type Repositories struct {
	Systems      SystemRepository
	Requirements RequirementRepository
	Mappings     MappingRepository
	Evidence     EvidenceRepository
}

// New создаёт набор репозиториев поверх db.
func New(db DBTX) *Repositories {
	return &Repositories{
		Systems:      NewSystemRepository(db),
		Requirements: NewRequirementRepository(db),
		Mappings:     NewMappingRepository(db),
		Evidence:     NewEvidenceRepository(db),
	}
}

// txOptions — уровень изоляции групповых операций. Назначение требований
// и смена статуса опираются на SELECT ... FOR UPDATE, поэтому
// READ COMMITTED достаточно.
var txOptions = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

// Store — точка входа сервисного слоя: репозитории поверх пула
// и запуск группы операций в одной транзакции.
type Store struct {
	pool  *pgxpool.Pool
	repos *Repositories
}

// NewStore создаёт Store поверх пула подключений.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, repos: New(pool)}
}

// Repos возвращает репозитории вне транзакции.
func (s *Store) Repos() *Repositories {
	return s.repos
}

// InTx выполняет fn с репозиториями одной транзакции: ошибка fn
// откатывает всё, успех фиксирует. Ошибку fn возвращает без обёртки,
// чтобы сервис мог сравнить её с ErrNotFound и своими ошибками.
func (s *Store) InTx(ctx context.Context, fn func(r *Repositories) error) error {
	var fnErr error
	err := pgx.BeginTxFunc(ctx, s.pool, txOptions, func(tx pgx.Tx) error {
		fnErr = fn(New(tx))
		return fnErr
	})
	switch {
	case fnErr != nil:
		return fnErr
	case err != nil:
		return fmt.Errorf("транзакция: %w", err)
	}
	return nil
}

// isUniqueViolation: нарушение UNIQUE (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// validID сообщает, является ли строка UUID. Некорректный идентификатор
// не может существовать в таблице, поэтому запросы с ним сразу дают ErrNotFound.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
