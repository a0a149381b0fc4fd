package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Hexidus/watchgraph/internal/api/openapi"
	"github.com/Hexidus/watchgraph/internal/blobstore"
	"github.com/Hexidus/watchgraph/internal/domain/model"
	"github.com/Hexidus/watchgraph/internal/repository"
	"github.com/Hexidus/watchgraph/internal/service"
)

// memDB — упрощённое in-memory хранилище для тестов обработчиков.
// Транзакции не откатываются: сценарии отката проверяются в пакете service.
type memDB struct {
	mu           sync.Mutex
	seq          int
	systems      map[string]model.AISystem
	requirements []model.Requirement
	mappings     map[string]model.RequirementMapping
	evidence     map[string]model.Evidence
}

func (db *memDB) tick() time.Time {
	db.seq++
	return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(db.seq) * time.Second)
}

type memStore struct {
	db    *memDB
	repos *repository.Repositories
}

func newMemStore() *memStore {
	db := &memDB{
		systems:  map[string]model.AISystem{},
		mappings: map[string]model.RequirementMapping{},
		evidence: map[string]model.Evidence{},
	}
	return &memStore{
		db: db,
		repos: &repository.Repositories{
			Systems:      memSystems{db},
			Requirements: memRequirements{db},
			Mappings:     memMappings{db},
			Evidence:     memEvidence{db},
		},
	}
}

func (s *memStore) Repos() *repository.Repositories { return s.repos }

func (s *memStore) InTx(_ context.Context, fn func(*repository.Repositories) error) error {
	return fn(s.repos)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	return items[offset:min(offset+limit, len(items))]
}

type memSystems struct{ db *memDB }

func (f memSystems) Create(_ context.Context, s *model.AISystem) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s.CreatedAt = f.db.tick()
	s.UpdatedAt = s.CreatedAt
	f.db.systems[s.ID] = *s
	return nil
}

func (f memSystems) GetByID(_ context.Context, id string) (*model.AISystem, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.systems[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (f memSystems) List(_ context.Context, limit, offset int) ([]*model.AISystem, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var all []*model.AISystem
	for _, s := range f.db.systems {
		all = append(all, &s)
	}
	slices.SortFunc(all, func(a, b *model.AISystem) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return page(all, limit, offset), nil
}

func (f memSystems) Count(_ context.Context) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return len(f.db.systems), nil
}

func (f memSystems) Delete(_ context.Context, id string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.systems[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.db.systems, id)
	return nil
}

type memRequirements struct{ db *memDB }

func (f memRequirements) Count(_ context.Context) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return len(f.db.requirements), nil
}

func (f memRequirements) CreateBatch(_ context.Context, reqs []model.Requirement) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, r := range reqs {
		r.ID = fmt.Sprintf("req-%02d", len(f.db.requirements)+1)
		f.db.requirements = append(f.db.requirements, r)
	}
	return nil
}

func (f memRequirements) List(_ context.Context) ([]*model.Requirement, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	result := make([]*model.Requirement, len(f.db.requirements))
	for i := range f.db.requirements {
		r := f.db.requirements[i]
		result[i] = &r
	}
	return result, nil
}

type memMappings struct{ db *memDB }

func (f memMappings) Create(_ context.Context, m *model.RequirementMapping) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m.CreatedAt = f.db.tick()
	m.UpdatedAt = m.CreatedAt
	f.db.mappings[m.ID] = *m
	return true, nil
}

func (f memMappings) GetByID(_ context.Context, id string) (*model.RequirementMapping, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m, ok := f.db.mappings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (f memMappings) ListDetailsBySystem(_ context.Context, systemID string) ([]*model.MappingDetail, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var result []*model.MappingDetail
	for _, req := range f.db.requirements {
		for _, m := range f.db.mappings {
			if m.AISystemID == systemID && m.RequirementID == req.ID {
				result = append(result, &model.MappingDetail{RequirementMapping: m, Requirement: req})
			}
		}
	}
	return result, nil
}

func (f memMappings) UpdateStatus(
	_ context.Context,
	id string,
	upd model.StatusUpdate,
) (*model.StatusTransition, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m, ok := f.db.mappings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	prev := m.Status
	m.Status = upd.Status
	if upd.Notes != nil {
		m.Notes = upd.Notes
	}
	switch {
	case upd.UpdatedBy != nil:
		m.UpdatedBy = upd.UpdatedBy
	case m.UpdatedBy == nil:
		m.UpdatedBy = upd.DefaultUpdatedBy
	}
	m.UpdatedAt = f.db.tick()
	f.db.mappings[id] = m
	return &model.StatusTransition{Mapping: m, PreviousStatus: prev}, nil
}

func (f memMappings) CountByStatus(_ context.Context, systemID string) (map[model.ComplianceStatus]int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	counts := map[model.ComplianceStatus]int{}
	for _, m := range f.db.mappings {
		if m.AISystemID == systemID {
			counts[m.Status]++
		}
	}
	return counts, nil
}

func (f memMappings) DeleteBySystem(_ context.Context, systemID string) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var n int64
	for id, m := range f.db.mappings {
		if m.AISystemID == systemID {
			delete(f.db.mappings, id)
			n++
		}
	}
	return n, nil
}

type memEvidence struct{ db *memDB }

func (f memEvidence) live(filter repository.EvidenceFilter) []*model.Evidence {
	var all []*model.Evidence
	for _, e := range f.db.evidence {
		if e.DeletedAt != nil {
			continue
		}
		if filter.SystemID != nil && e.AISystemID != *filter.SystemID {
			continue
		}
		if filter.MappingID != nil && (e.MappingID == nil || *e.MappingID != *filter.MappingID) {
			continue
		}
		all = append(all, &e)
	}
	slices.SortFunc(all, func(a, b *model.Evidence) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return all
}

func (f memEvidence) Create(_ context.Context, e *model.Evidence) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e.CreatedAt = f.db.tick()
	e.UpdatedAt = e.CreatedAt
	f.db.evidence[e.ID] = *e
	return nil
}

func (f memEvidence) GetByID(_ context.Context, id string) (*model.Evidence, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e, ok := f.db.evidence[id]
	if !ok || e.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (f memEvidence) List(_ context.Context, filter repository.EvidenceFilter, limit, offset int) ([]*model.Evidence, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return page(f.live(filter), limit, offset), nil
}

func (f memEvidence) Count(_ context.Context, filter repository.EvidenceFilter) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return len(f.live(filter)), nil
}

func (f memEvidence) UpdateMetadata(_ context.Context, id string, upd model.EvidenceMetadataUpdate) (*model.Evidence, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e, ok := f.db.evidence[id]
	if !ok || e.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	if upd.Description != nil {
		e.Description = upd.Description
	}
	if upd.ExpirationDate != nil {
		e.ExpirationDate = upd.ExpirationDate
	}
	if upd.Status != nil {
		e.Status = *upd.Status
	}
	e.UpdatedAt = f.db.tick()
	f.db.evidence[id] = e
	return &e, nil
}

func (f memEvidence) SoftDelete(_ context.Context, id string, at time.Time) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e, ok := f.db.evidence[id]
	if !ok || e.DeletedAt != nil {
		return repository.ErrNotFound
	}
	e.DeletedAt = &at
	f.db.evidence[id] = e
	return nil
}

func (f memEvidence) CountByStatus(_ context.Context, mappingID string) (map[model.EvidenceStatus]int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	counts := map[model.EvidenceStatus]int{}
	for _, e := range f.live(repository.EvidenceFilter{MappingID: &mappingID}) {
		counts[e.Status]++
	}
	return counts, nil
}

func (f memEvidence) DeleteBySystem(_ context.Context, systemID string) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var n int64
	for id, e := range f.db.evidence {
		if e.AISystemID == systemID {
			delete(f.db.evidence, id)
			n++
		}
	}
	return n, nil
}

// stubChecker — ReadinessChecker с фиксированным ответом.
type stubChecker struct {
	status, message string
}

func (c stubChecker) CheckReady() (string, string) { return c.status, c.message }

// testServer — роутер с полным набором обработчиков над memStore и FSStore.
type testServer struct {
	router chi.Router
	store  *memStore
	blobs  *blobstore.FSStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()

	blobs, err := blobstore.NewFSStore(t.TempDir(), "http://wg.test/", []byte("handler-secret"))
	if err != nil {
		t.Fatalf("NewFSStore() ошибка: %v", err)
	}

	catalog := service.NewCatalogService(store, 4, time.Minute, logger)
	if _, err := catalog.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() ошибка: %v", err)
	}
	engine := service.NewAssignmentEngine(catalog, logger)

	doc, err := openapi.Load(context.Background())
	if err != nil {
		t.Fatalf("openapi.Load() ошибка: %v", err)
	}
	docs, err := NewDocsHandler(doc)
	if err != nil {
		t.Fatalf("NewDocsHandler() ошибка: %v", err)
	}

	h := NewAPIHandler(
		NewHealthHandler(
			NamedCheck{Name: "postgresql", Checker: stubChecker{status: "ok"}},
			NamedCheck{Name: "jwks", Checker: stubChecker{status: "ok"}},
		),
		NewInfoHandler("test"),
		docs,
		service.NewSystemService(store, engine, logger),
		catalog,
		service.NewComplianceService(store, logger),
		service.NewEvidenceService(store, blobs, logger),
		logger,
	)

	r := chi.NewRouter()
	h.Routes(r)
	return &testServer{router: r, store: store, blobs: blobs}
}
