package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Hexidus/watchgraph/internal/domain/model"
	"github.com/Hexidus/watchgraph/internal/repository"
)

// --- In-memory хранилище ---

// fakeDB — in-memory замена PostgreSQL. InTx делает снимок состояния
// и восстанавливает его при ошибке, имитируя откат транзакции.
type fakeDB struct {
	mu  sync.Mutex
	seq int

	systems      map[string]model.AISystem
	requirements []model.Requirement
	mappings     map[string]model.RequirementMapping
	evidence     map[string]model.Evidence

	// Инъекция ошибок
	evidenceCreateErr  error
	mappingsDeleteErr  error
	mappingCreateErr   error
	requirementListErr error

	requirementListCalls int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		systems:  map[string]model.AISystem{},
		mappings: map[string]model.RequirementMapping{},
		evidence: map[string]model.Evidence{},
	}
}

// tick возвращает монотонно растущее время.
func (db *fakeDB) tick() time.Time {
	db.seq++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(db.seq) * time.Second)
}

type fakeSnapshot struct {
	systems      map[string]model.AISystem
	requirements []model.Requirement
	mappings     map[string]model.RequirementMapping
	evidence     map[string]model.Evidence
}

func (db *fakeDB) snapshot() fakeSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return fakeSnapshot{
		systems:      maps.Clone(db.systems),
		requirements: slices.Clone(db.requirements),
		mappings:     maps.Clone(db.mappings),
		evidence:     maps.Clone(db.evidence),
	}
}

func (db *fakeDB) restore(s fakeSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.systems, db.requirements, db.mappings, db.evidence = s.systems, s.requirements, s.mappings, s.evidence
}

// fakeStore — реализация Store поверх fakeDB.
type fakeStore struct {
	db    *fakeDB
	repos *repository.Repositories
}

func newFakeStore() *fakeStore {
	db := newFakeDB()
	return &fakeStore{
		db: db,
		repos: &repository.Repositories{
			Systems:      &fakeSystems{db: db},
			Requirements: &fakeRequirements{db: db},
			Mappings:     &fakeMappings{db: db},
			Evidence:     &fakeEvidence{db: db},
		},
	}
}

func (s *fakeStore) Repos() *repository.Repositories { return s.repos }

func (s *fakeStore) InTx(_ context.Context, fn func(r *repository.Repositories) error) error {
	snap := s.db.snapshot()
	if err := fn(s.repos); err != nil {
		s.db.restore(snap)
		return err
	}
	return nil
}

// --- Systems ---

type fakeSystems struct{ db *fakeDB }

func (f *fakeSystems) Create(_ context.Context, s *model.AISystem) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.systems[s.ID]; ok {
		return repository.ErrConflict
	}
	s.CreatedAt = f.db.tick()
	s.UpdatedAt = s.CreatedAt
	f.db.systems[s.ID] = *s
	return nil
}

func (f *fakeSystems) GetByID(_ context.Context, id string) (*model.AISystem, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.systems[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (f *fakeSystems) List(_ context.Context, limit, offset int) ([]*model.AISystem, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	all := make([]*model.AISystem, 0, len(f.db.systems))
	for _, s := range f.db.systems {
		all = append(all, &s)
	}
	slices.SortFunc(all, func(a, b *model.AISystem) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return window(all, limit, offset), nil
}

func (f *fakeSystems) Count(_ context.Context) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return len(f.db.systems), nil
}

func (f *fakeSystems) Delete(_ context.Context, id string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.systems[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.db.systems, id)
	return nil
}

// --- Requirements ---

type fakeRequirements struct{ db *fakeDB }

func (f *fakeRequirements) Count(_ context.Context) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return len(f.db.requirements), nil
}

func (f *fakeRequirements) CreateBatch(_ context.Context, reqs []model.Requirement) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i := range reqs {
		reqs[i].ID = fmt.Sprintf("req-%02d", len(f.db.requirements)+1)
		f.db.requirements = append(f.db.requirements, reqs[i])
	}
	return nil
}

func (f *fakeRequirements) List(_ context.Context) ([]*model.Requirement, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.requirementListCalls++
	if f.db.requirementListErr != nil {
		return nil, f.db.requirementListErr
	}
	result := make([]*model.Requirement, len(f.db.requirements))
	for i := range f.db.requirements {
		r := f.db.requirements[i]
		result[i] = &r
	}
	return result, nil
}

// --- Mappings ---

type fakeMappings struct{ db *fakeDB }

func (f *fakeMappings) Create(_ context.Context, m *model.RequirementMapping) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.mappingCreateErr != nil {
		return false, f.db.mappingCreateErr
	}
	for _, existing := range f.db.mappings {
		if existing.AISystemID == m.AISystemID && existing.RequirementID == m.RequirementID {
			return false, nil
		}
	}
	m.CreatedAt = f.db.tick()
	m.UpdatedAt = m.CreatedAt
	f.db.mappings[m.ID] = *m
	return true, nil
}

func (f *fakeMappings) GetByID(_ context.Context, id string) (*model.RequirementMapping, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	m, ok := f.db.mappings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (f *fakeMappings) ListDetailsBySystem(_ context.Context, systemID string) ([]*model.MappingDetail, error) {
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

func (f *fakeMappings) UpdateStatus(
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

	title := ""
	for _, r := range f.db.requirements {
		if r.ID == m.RequirementID {
			title = r.Title
		}
	}
	return &model.StatusTransition{Mapping: m, PreviousStatus: prev, RequirementTitle: title}, nil
}

func (f *fakeMappings) CountByStatus(_ context.Context, systemID string) (map[model.ComplianceStatus]int, error) {
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

func (f *fakeMappings) DeleteBySystem(_ context.Context, systemID string) (int64, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.mappingsDeleteErr != nil {
		return 0, f.db.mappingsDeleteErr
	}
	var n int64
	for id, m := range f.db.mappings {
		if m.AISystemID == systemID {
			delete(f.db.mappings, id)
			n++
		}
	}
	return n, nil
}

// --- Evidence ---

type fakeEvidence struct{ db *fakeDB }

func (f *fakeEvidence) Create(_ context.Context, e *model.Evidence) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if f.db.evidenceCreateErr != nil {
		return f.db.evidenceCreateErr
	}
	e.CreatedAt = f.db.tick()
	e.UpdatedAt = e.CreatedAt
	f.db.evidence[e.ID] = *e
	return nil
}

func (f *fakeEvidence) GetByID(_ context.Context, id string) (*model.Evidence, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e, ok := f.db.evidence[id]
	if !ok || e.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func matchesFilter(e model.Evidence, filter repository.EvidenceFilter) bool {
	if e.DeletedAt != nil {
		return false
	}
	if filter.SystemID != nil && e.AISystemID != *filter.SystemID {
		return false
	}
	if filter.MappingID != nil && (e.MappingID == nil || *e.MappingID != *filter.MappingID) {
		return false
	}
	return true
}

func (f *fakeEvidence) List(_ context.Context, filter repository.EvidenceFilter, limit, offset int) ([]*model.Evidence, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var all []*model.Evidence
	for _, e := range f.db.evidence {
		if matchesFilter(e, filter) {
			all = append(all, &e)
		}
	}
	slices.SortFunc(all, func(a, b *model.Evidence) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return window(all, limit, offset), nil
}

func (f *fakeEvidence) Count(_ context.Context, filter repository.EvidenceFilter) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	n := 0
	for _, e := range f.db.evidence {
		if matchesFilter(e, filter) {
			n++
		}
	}
	return n, nil
}

func (f *fakeEvidence) UpdateMetadata(_ context.Context, id string, upd model.EvidenceMetadataUpdate) (*model.Evidence, error) {
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

func (f *fakeEvidence) SoftDelete(_ context.Context, id string, at time.Time) error {
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

func (f *fakeEvidence) CountByStatus(_ context.Context, mappingID string) (map[model.EvidenceStatus]int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	counts := map[model.EvidenceStatus]int{}
	for _, e := range f.db.evidence {
		if matchesFilter(e, repository.EvidenceFilter{MappingID: &mappingID}) {
			counts[e.Status]++
		}
	}
	return counts, nil
}

func (f *fakeEvidence) DeleteBySystem(_ context.Context, systemID string) (int64, error) {
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

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

// --- Blob store ---

// fakeBlobs — мок blobstore.Store.
type fakeBlobs struct {
	mu         sync.Mutex
	objects    map[string][]byte
	types      map[string]string
	putErr     error
	presignErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}, types: map[string]string{}}
}

func (b *fakeBlobs) Put(_ context.Context, key string, data []byte, contentType string) error {
	if b.putErr != nil {
		return b.putErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = slices.Clone(data)
	b.types[key] = contentType
	return nil
}

func (b *fakeBlobs) PresignGet(_ context.Context, key, fileName string, ttl time.Duration) (string, error) {
	if b.presignErr != nil {
		return "", b.presignErr
	}
	return fmt.Sprintf("https://blobs.test/%s?filename=%s&ttl=%d", key, fileName, int(ttl.Seconds())), nil
}

func (b *fakeBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

// --- Сборка сервисов ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	store      *fakeStore
	blobs      *fakeBlobs
	catalog    *CatalogService
	systems    *SystemService
	compliance *ComplianceService
	evidence   *EvidenceService
}

// newTestEnv собирает сервисы над засеянным in-memory каталогом.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	blobs := newFakeBlobs()
	logger := testLogger()

	catalog := NewCatalogService(store, 16, time.Minute, logger)
	if _, err := catalog.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() ошибка: %v", err)
	}
	engine := NewAssignmentEngine(catalog, logger)

	ev := NewEvidenceService(store, blobs, logger)
	ev.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("UTC+3", 3*3600)) }

	return &testEnv{
		store:      store,
		blobs:      blobs,
		catalog:    catalog,
		systems:    NewSystemService(store, engine, logger),
		compliance: NewComplianceService(store, logger),
		evidence:   ev,
	}
}

func ptr[T any](v T) *T { return &v }
