package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
)

// --- Mock provider ---

type providerCall struct {
	Op    string
	Owner string
	Type  domain.RecordType
	Name  string
	Value string
}

type mockProvider struct {
	mu        sync.Mutex
	calls     []providerCall
	createErr error
	upsertErr error
	deleteErr error

	// hook, when set, runs inside every call before it returns.
	hook func(ctx context.Context)
}

func (m *mockProvider) GetDisplayName() string { return "Mock" }

func (m *mockProvider) record(ctx context.Context, op, owner string, t domain.RecordType, name, value string, err error) error {
	if m.hook != nil {
		m.hook(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, providerCall{Op: op, Owner: owner, Type: t, Name: name, Value: value})
	return err
}

func (m *mockProvider) CreateRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	return m.record(ctx, "create", owner, t, name, value, m.createErr)
}

func (m *mockProvider) UpsertRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	return m.record(ctx, "upsert", owner, t, name, value, m.upsertErr)
}

func (m *mockProvider) DeleteRecord(ctx context.Context, owner string, t domain.RecordType, name, value string) error {
	return m.record(ctx, "delete", owner, t, name, value, m.deleteErr)
}

func (m *mockProvider) Calls() []providerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]providerCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// --- In-memory store ---

type memStore struct {
	mu      sync.Mutex
	now     func() time.Time
	nextID  int64
	records map[int64]domain.PersistedRecord

	insertErr error
	updateErr error
	deleteErr error

	// nilResult makes writes succeed without returning a row.
	nilResult bool

	hook func(ctx context.Context)
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{now: now, records: map[int64]domain.PersistedRecord{}}
}

func (s *memStore) runHook(ctx context.Context) {
	if s.hook != nil {
		s.hook(ctx)
	}
}

func (s *memStore) Count(_ context.Context, f domain.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.Name == f.Name && r.Type == f.Type && r.Value == f.Value {
			n++
		}
	}
	return n, nil
}

func (s *memStore) Insert(ctx context.Context, f domain.Fields) (*domain.PersistedRecord, error) {
	s.runHook(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	s.nextID++
	now := s.now().UTC()
	rec := domain.PersistedRecord{ID: s.nextID, CreatedAt: now}
	apply(&rec, f, now)
	s.records[rec.ID] = rec
	if s.nilResult {
		return nil, nil
	}
	return &rec, nil
}

func (s *memStore) Update(ctx context.Context, id int64, f domain.Fields) (*domain.PersistedRecord, error) {
	s.runHook(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("mem: record %d: %w", id, domain.ErrNotFound)
	}
	owner := rec.Owner
	apply(&rec, f, s.now().UTC())
	rec.Owner = owner
	s.records[id] = rec
	if s.nilResult {
		return nil, nil
	}
	return &rec, nil
}

func (s *memStore) Delete(ctx context.Context, id int64) (*domain.PersistedRecord, error) {
	s.runHook(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return nil, s.deleteErr
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("mem: record %d: %w", id, domain.ErrNotFound)
	}
	delete(s.records, id)
	if s.nilResult {
		return nil, nil
	}
	return &rec, nil
}

func (s *memStore) FindByID(_ context.Context, id int64) (*domain.PersistedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// put seeds a record directly, bypassing the reconciler.
func (s *memStore) put(rec domain.PersistedRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID > s.nextID {
		s.nextID = rec.ID
	}
	s.records[rec.ID] = rec
}

func apply(rec *domain.PersistedRecord, f domain.Fields, now time.Time) {
	rec.Owner = f.Owner
	rec.Type = f.Type
	rec.Name = f.Name
	rec.Value = f.Value
	if f.Description != nil {
		rec.Description = *f.Description
	}
	if f.Course != nil {
		rec.Course = *f.Course
	}
	if f.Ports != nil {
		rec.Ports = *f.Ports
	}
	rec.Status = f.Status
	rec.UpdatedAt = now
	rec.ExpiresAt = f.ExpiresAt
}
