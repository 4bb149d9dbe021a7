package reconciler

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"nathanbeddoewebdev/dnsm/internal/records/domain"
	"nathanbeddoewebdev/dnsm/internal/records/store"

	"github.com/google/go-cmp/cmp"
	log "github.com/sirupsen/logrus"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newClock() *testClock {
	return &testClock{now: time.Date(2024, time.April, 10, 8, 0, 0, 0, time.UTC)}
}

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestReconciler(p domain.Provider, s domain.Store, clock *testClock) *Reconciler {
	return New(p, s, WithClock(clock.Now), WithLogger(quietLogger()))
}

func strPtr(s string) *string { return &s }

func sampleRecord() domain.Record {
	return domain.Record{
		Owner: "user-1",
		Type:  domain.RecordTypeA,
		Name:  "a.user.example.com",
		Value: "1.2.3.4",
	}
}

// --- Create ---

func TestCreate_PersistsPendingRecord(t *testing.T) {
	clock := newClock()
	prov := &mockProvider{}
	st := newMemStore(clock.Now)
	r := newTestReconciler(prov, st, clock)

	rec := sampleRecord()
	rec.Name = "A.User.Example.com."
	rec.Description = strPtr("lab box")

	got, err := r.Create(context.Background(), rec)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if got.Status != domain.StatusPending {
		t.Errorf("expected status pending, got %q", got.Status)
	}
	if !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Errorf("expected UpdatedAt == CreatedAt, got %v / %v", got.UpdatedAt, got.CreatedAt)
	}
	if !got.ExpiresAt.After(got.CreatedAt) {
		t.Errorf("expected ExpiresAt after CreatedAt, got %v", got.ExpiresAt)
	}
	if want := clock.Now().AddDate(0, 6, 0); !got.ExpiresAt.Equal(want) {
		t.Errorf("expected ExpiresAt %v, got %v", want, got.ExpiresAt)
	}
	if got.Name != "a.user.example.com" {
		t.Errorf("expected normalized name, got %q", got.Name)
	}
	if got.Description != "lab box" {
		t.Errorf("expected description to be stored, got %q", got.Description)
	}

	want := []providerCall{{Op: "create", Owner: "user-1", Type: domain.RecordTypeA, Name: "a.user.example.com", Value: "1.2.3.4"}}
	if diff := cmp.Diff(want, prov.Calls()); diff != "" {
		t.Errorf("provider calls mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_RequiresOwner(t *testing.T) {
	clock := newClock()
	prov := &mockProvider{}
	r := newTestReconciler(prov, newMemStore(clock.Now), clock)

	rec := sampleRecord()
	rec.Owner = ""
	_, err := r.Create(context.Background(), rec)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(prov.Calls()) != 0 {
		t.Error("provider must not be called for invalid input")
	}
}

func TestCreate_DuplicateTripleIsConflict(t *testing.T) {
	clock := newClock()
	prov := &mockProvider{}
	st := newMemStore(clock.Now)
	r := newTestReconciler(prov, st, clock)
	ctx := context.Background()

	if _, err := r.Create(ctx, sampleRecord()); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	dup := sampleRecord()
	dup.Owner = "user-2"
	dup.Name = "A.USER.EXAMPLE.COM"
	_, err := r.Create(ctx, dup)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	var pf *domain.PartialFailureError
	if errors.As(err, &pf) {
		t.Error("conflict must be reported before any side effect")
	}
	if n := len(prov.Calls()); n != 1 {
		t.Errorf("expected 1 provider call, got %d", n)
	}
}

func TestCreate_PartialFailure(t *testing.T) {
	provErr := errors.New("provider unavailable")
	storeErr := errors.New("disk full")

	tests := []struct {
		name        string
		provErr     error
		storeErr    error
		wantSide    domain.Side
		wantStored  int
		wantCreated int
	}{
		{"provider fails", provErr, nil, domain.SideProvider, 1, 1},
		{"store fails", nil, storeErr, domain.SideStore, 0, 1},
		{"both fail", provErr, storeErr, domain.SideBoth, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newClock()
			prov := &mockProvider{createErr: tt.provErr}
			st := newMemStore(clock.Now)
			st.insertErr = tt.storeErr
			r := newTestReconciler(prov, st, clock)

			got, err := r.Create(context.Background(), sampleRecord())
			if got != nil {
				t.Errorf("expected no record on failure, got %+v", got)
			}

			var pf *domain.PartialFailureError
			if !errors.As(err, &pf) {
				t.Fatalf("expected *PartialFailureError, got %T: %v", err, err)
			}
			if pf.Side != tt.wantSide {
				t.Errorf("expected side %q, got %q", tt.wantSide, pf.Side)
			}
			if pf.Op != OpCreate {
				t.Errorf("expected op %q, got %q", OpCreate, pf.Op)
			}
			if tt.provErr != nil && !errors.Is(err, tt.provErr) {
				t.Error("expected provider cause to be reachable")
			}
			if tt.storeErr != nil && !errors.Is(err, tt.storeErr) {
				t.Error("expected store cause to be reachable")
			}

			// No compensating rollback on the side that succeeded.
			if n := len(st.records); n != tt.wantStored {
				t.Errorf("expected %d stored records, got %d", tt.wantStored, n)
			}
			if n := len(prov.Calls()); n != tt.wantCreated {
				t.Errorf("expected %d provider calls, got %d", tt.wantCreated, n)
			}
		})
	}
}

func TestCreate_RunsSidesConcurrently(t *testing.T) {
	clock := newClock()

	var started sync.WaitGroup
	started.Add(2)
	barrier := func(context.Context) {
		started.Done()
		done := make(chan struct{})
		go func() {
			started.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("provider and store calls did not overlap")
		}
	}

	prov := &mockProvider{hook: barrier}
	st := newMemStore(clock.Now)
	st.hook = barrier
	r := newTestReconciler(prov, st, clock)

	if _, err := r.Create(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
}

func TestCreate_FailingSideDoesNotCancelSibling(t *testing.T) {
	clock := newClock()
	prov := &mockProvider{createErr: errors.New("boom")}
	st := newMemStore(clock.Now)

	var storeCtxErr error
	st.hook = func(ctx context.Context) {
		time.Sleep(20 * time.Millisecond)
		storeCtxErr = ctx.Err()
	}
	r := newTestReconciler(prov, st, clock)

	_, err := r.Create(context.Background(), sampleRecord())
	if side, _ := domain.FailedSide(err); side != domain.SideProvider {
		t.Fatalf("expected provider side failure, got %v", err)
	}
	if storeCtxErr != nil {
		t.Errorf("store call saw cancelled context: %v", storeCtxErr)
	}
	if len(st.records) != 1 {
		t.Errorf("expected store insert to complete, got %d records", len(st.records))
	}
}

func TestCreate_StoreReturnsNothing(t *testing.T) {
	clock := newClock()
	st := newMemStore(clock.Now)
	st.nilResult = true
	r := newTestReconciler(&mockProvider{}, st, clock)

	got, err := r.Create(context.Background(), sampleRecord())
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil record, got %+v", got)
	}
}

// --- Update ---

func TestUpdate_UnknownIDIsNotFound(t *testing.T) {
	clock := newClock()
	prov := &mockProvider{}
	r := newTestReconciler(prov, newMemStore(clock.Now), clock)

	rec := sampleRecord()
	rec.ID = 404
	_, err := r.Update(context.Background(), rec)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if side, _ := domain.FailedSide(err); side != domain.SideStore {
		t.Errorf("expected store side, got %q", side)
	}
}

func TestUpdate_AlwaysResetsStatusAndExpiry(t *testing.T) {
	clock := newClock()
	prov := &mockProvider{}
	st := newMemStore(clock.Now)
	r := newTestReconciler(prov, st, clock)
	ctx := context.Background()

	created, err := r.Create(ctx, sampleRecord())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Simulate the propagation checker marking it active.
	active := *created
	active.Status = domain.StatusActive
	st.put(active)

	clock.Advance(24 * time.Hour)

	// Same type and value: nothing changed but the expiry must still renew.
	rec := created.Record()
	got, err := r.Update(ctx, rec)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Errorf("expected status pending, got %q", got.Status)
	}
	if !got.ExpiresAt.After(created.UpdatedAt) {
		t.Errorf("expected ExpiresAt %v after previous UpdatedAt %v", got.ExpiresAt, created.UpdatedAt)
	}
	if !got.ExpiresAt.After(created.ExpiresAt) {
		t.Errorf("expected ExpiresAt to advance from %v, got %v", created.ExpiresAt, got.ExpiresAt)
	}

	calls := prov.Calls()
	if last := calls[len(calls)-1]; last.Op != "upsert" {
		t.Errorf("expected upsert at provider, got %q", last.Op)
	}
}

func TestUpdate_NilMetadataKeepsStoredValue(t *testing.T) {
	clock := newClock()
	st := newMemStore(clock.Now)
	r := newTestReconciler(&mockProvider{}, st, clock)
	ctx := context.Background()

	rec := sampleRecord()
	rec.Description = strPtr("keep me")
	created, err := r.Create(ctx, rec)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	upd := sampleRecord()
	upd.ID = created.ID
	upd.Ports = strPtr("80,443")
	got, err := r.Update(ctx, upd)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Description != "keep me" || got.Ports != "80,443" {
		t.Errorf("unexpected metadata: description=%q ports=%q", got.Description, got.Ports)
	}
}

func TestUpdate_ProviderFailureKeepsStoreWrite(t *testing.T) {
	clock := newClock()
	prov := &mockProvider{upsertErr: domain.ErrRateLimited}
	st := newMemStore(clock.Now)
	r := newTestReconciler(prov, st, clock)
	ctx := context.Background()

	st.put(domain.PersistedRecord{ID: 1, Owner: "user-1", Type: domain.RecordTypeA, Name: "a.user.example.com", Value: "1.2.3.4", Status: domain.StatusActive})

	rec := sampleRecord()
	rec.ID = 1
	rec.Value = "5.6.7.8"
	_, err := r.Update(ctx, rec)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited cause, got %v", err)
	}
	if side, _ := domain.FailedSide(err); side != domain.SideProvider {
		t.Errorf("expected provider side, got %q", side)
	}
	stored, _ := st.FindByID(ctx, 1)
	if stored.Value != "5.6.7.8" {
		t.Errorf("expected store write to stand, got %q", stored.Value)
	}
}

func TestUpdate_OwnerIsImmutable(t *testing.T) {
	clock := newClock()
	prov := &mockProvider{}
	st := newMemStore(clock.Now)
	r := newTestReconciler(prov, st, clock)
	ctx := context.Background()

	created, err := r.Create(ctx, sampleRecord())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	upd := created.Record()
	upd.Owner = "mallory"
	upd.Value = "5.6.7.8"
	_, err = r.Update(ctx, upd)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, failed := domain.FailedSide(err); failed {
		t.Errorf("expected rejection before either side ran, got %v", err)
	}
	if n := len(prov.Calls()); n != 1 {
		t.Errorf("expected only the create call at the provider, got %d calls", n)
	}

	// An empty owner takes the stored one.
	upd.Owner = ""
	got, err := r.Update(ctx, upd)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Owner != "user-1" {
		t.Errorf("expected owner user-1, got %q", got.Owner)
	}
	calls := prov.Calls()
	if last := calls[len(calls)-1]; last.Op != "upsert" || last.Owner != "user-1" {
		t.Errorf("expected upsert as user-1, got %+v", last)
	}
}

// --- Delete ---

func TestDelete_ReturnsLastState(t *testing.T) {
	clock := newClock()
	prov := &mockProvider{}
	st := newMemStore(clock.Now)
	r := newTestReconciler(prov, st, clock)
	ctx := context.Background()

	created, err := r.Create(ctx, sampleRecord())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := r.Delete(ctx, created.Record())
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("deleted record mismatch (-want +got):\n%s", diff)
	}
	if rec, _ := st.FindByID(ctx, created.ID); rec != nil {
		t.Error("expected record to be gone from the store")
	}

	calls := prov.Calls()
	if last := calls[len(calls)-1]; last.Op != "delete" || last.Value != "1.2.3.4" {
		t.Errorf("unexpected provider call: %+v", last)
	}
}

func TestDelete_StoreMissing(t *testing.T) {
	clock := newClock()
	prov := &mockProvider{}
	r := newTestReconciler(prov, newMemStore(clock.Now), clock)

	rec := sampleRecord()
	rec.ID = 9
	_, err := r.Delete(context.Background(), rec)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if side, _ := domain.FailedSide(err); side != domain.SideStore {
		t.Errorf("expected store side, got %q", side)
	}
	// The provider delete still ran.
	if len(prov.Calls()) != 1 {
		t.Errorf("expected provider delete to run, got %d calls", len(prov.Calls()))
	}
}

// --- RemoveIfExpired ---

func TestRemoveIfExpired_NotExpiredIsNoop(t *testing.T) {
	clock := newClock()
	prov := &mockProvider{}
	st := newMemStore(clock.Now)
	r := newTestReconciler(prov, st, clock)

	st.put(domain.PersistedRecord{ID: 3, Owner: "u", Type: domain.RecordTypeA, Name: "x.example.com", Value: "1.1.1.1", ExpiresAt: clock.Now().Add(time.Minute)})

	got, err := r.RemoveIfExpired(context.Background(), domain.Record{ID: 3})
	if err != nil {
		t.Fatalf("RemoveIfExpired failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
	if len(prov.Calls()) != 0 {
		t.Error("expected no provider calls")
	}
	if rec, _ := st.FindByID(context.Background(), 3); rec == nil {
		t.Error("expected record to remain")
	}
}

func TestRemoveIfExpired_UsesFreshIdentity(t *testing.T) {
	clock := newClock()
	prov := &mockProvider{}
	st := newMemStore(clock.Now)
	r := newTestReconciler(prov, st, clock)

	stored := domain.PersistedRecord{
		ID: 5, Owner: "user-1", Type: domain.RecordTypeCNAME,
		Name: "old.example.com", Value: "target.example.com",
		ExpiresAt: clock.Now().Add(-time.Second),
	}
	st.put(stored)

	stale := domain.Record{ID: 5, Owner: "user-1", Type: domain.RecordTypeA, Name: "stale.example.com", Value: "9.9.9.9"}
	got, err := r.RemoveIfExpired(context.Background(), stale)
	if err != nil {
		t.Fatalf("RemoveIfExpired failed: %v", err)
	}
	if got == nil || got.ID != 5 {
		t.Fatalf("expected deleted record 5, got %+v", got)
	}

	want := []providerCall{{Op: "delete", Owner: "user-1", Type: domain.RecordTypeCNAME, Name: "old.example.com", Value: "target.example.com"}}
	if diff := cmp.Diff(want, prov.Calls()); diff != "" {
		t.Errorf("provider calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveIfExpired_Missing(t *testing.T) {
	clock := newClock()
	r := newTestReconciler(&mockProvider{}, newMemStore(clock.Now), clock)

	_, err := r.RemoveIfExpired(context.Background(), domain.Record{ID: 0})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveIfExpired_ExpiresExactlyNowIsKept(t *testing.T) {
	clock := newClock()
	st := newMemStore(clock.Now)
	r := newTestReconciler(&mockProvider{}, st, clock)

	st.put(domain.PersistedRecord{ID: 1, Owner: "u", Type: domain.RecordTypeA, Name: "x.example.com", Value: "1.1.1.1", ExpiresAt: clock.Now()})

	got, err := r.RemoveIfExpired(context.Background(), domain.Record{ID: 1})
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", got, err)
	}
}

// --- End to end against SQLite ---

func TestLifecycle_SQLite(t *testing.T) {
	clock := newClock()
	path := filepath.Join(t.TempDir(), "dnsm.db")
	repo, err := store.OpenSQLiteAt(path, store.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("OpenSQLiteAt failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	prov := &mockProvider{}
	r := newTestReconciler(prov, repo, clock)
	ctx := context.Background()

	created, err := r.Create(ctx, sampleRecord())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Type != domain.RecordTypeA || created.Value != "1.2.3.4" || created.Status != domain.StatusPending {
		t.Fatalf("unexpected created record: %+v", created)
	}

	if _, err := r.Create(ctx, sampleRecord()); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate, got %v", err)
	}

	clock.Advance(time.Hour)

	upd := created.Record()
	upd.Type = domain.RecordTypeAAAA
	upd.Value = "::1"
	upd.Description = strPtr("x")
	updated, err := r.Update(ctx, upd)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Type != domain.RecordTypeAAAA {
		t.Errorf("expected type AAAA, got %q", updated.Type)
	}
	if updated.Description != "x" {
		t.Errorf("expected description 'x', got %q", updated.Description)
	}
	if !updated.ExpiresAt.After(created.ExpiresAt) {
		t.Errorf("expected ExpiresAt to advance beyond %v, got %v", created.ExpiresAt, updated.ExpiresAt)
	}

	if _, err := r.Delete(ctx, updated.Record()); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	gone, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if gone != nil {
		t.Errorf("expected record to be gone, got %+v", gone)
	}

	var ops []string
	for _, c := range prov.Calls() {
		ops = append(ops, c.Op)
	}
	if diff := cmp.Diff([]string{"create", "upsert", "delete"}, ops); diff != "" {
		t.Errorf("provider ops mismatch (-want +got):\n%s", diff)
	}
}

func TestLifecycle_SQLiteExpiry(t *testing.T) {
	clock := newClock()
	path := filepath.Join(t.TempDir(), "dnsm.db")
	repo, err := store.OpenSQLiteAt(path, store.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("OpenSQLiteAt failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	r := newTestReconciler(&mockProvider{}, repo, clock)
	ctx := context.Background()

	rec := sampleRecord()
	rec.Type = domain.RecordTypeCNAME
	rec.Value = "target.example.com"
	created, err := r.Create(ctx, rec)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if got, err := r.RemoveIfExpired(ctx, created.Record()); err != nil || got != nil {
		t.Fatalf("expected no-op before expiry, got %+v, %v", got, err)
	}

	clock.Set(created.ExpiresAt.Add(time.Second))

	got, err := r.RemoveIfExpired(ctx, created.Record())
	if err != nil {
		t.Fatalf("RemoveIfExpired failed: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Fatalf("expected record %d to be removed, got %+v", created.ID, got)
	}

	if _, err := r.RemoveIfExpired(ctx, created.Record()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after removal, got %v", err)
	}
}

func TestUpdate_SQLiteKeepsOwner(t *testing.T) {
	clock := newClock()
	path := filepath.Join(t.TempDir(), "dnsm.db")
	repo, err := store.OpenSQLiteAt(path, store.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("OpenSQLiteAt failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	created, err := repo.Insert(ctx, domain.Fields{
		Owner: "user-1", Type: domain.RecordTypeA, Name: "a.user.example.com", Value: "1.2.3.4",
		Status: domain.StatusPending, ExpiresAt: clock.Now().AddDate(0, 6, 0),
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// The store ignores an owner passed in the fields.
	got, err := repo.Update(ctx, created.ID, domain.Fields{
		Owner: "mallory", Type: domain.RecordTypeA, Name: "a.user.example.com", Value: "5.6.7.8",
		Status: domain.StatusPending, ExpiresAt: clock.Now().AddDate(0, 6, 0),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Owner != "user-1" {
		t.Errorf("owner changed from %q to %q on update", "user-1", got.Owner)
	}

	r := newTestReconciler(&mockProvider{}, repo, clock)
	upd := got.Record()
	upd.Owner = "mallory"
	if _, err := r.Update(ctx, upd); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
