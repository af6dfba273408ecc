package authz

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMappingSingleFlight(t *testing.T) {
	store := &fakeStore{
		mapping: Mapping{"viewer": {"tasks": grantFor(ActionRead)}},
		delay:   50 * time.Millisecond,
	}
	cache := NewCache(store, testLogger(), 0)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Mapping(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Mapping returned error: %v", err)
	}

	if got := store.fetchCount(); got != 1 {
		t.Fatalf("expected exactly one store fetch, got %d", got)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	store := &fakeStore{mapping: Mapping{}}
	cache := NewCache(store, testLogger(), 0)

	if _, err := cache.Mapping(context.Background()); err != nil {
		t.Fatalf("Mapping returned error: %v", err)
	}
	if _, err := cache.Mapping(context.Background()); err != nil {
		t.Fatalf("Mapping returned error: %v", err)
	}
	if got := store.fetchCount(); got != 1 {
		t.Fatalf("expected cached second call, got %d fetches", got)
	}

	cache.Invalidate()

	if _, loaded := cache.Snapshot(); loaded {
		t.Fatal("expected snapshot to report not loaded after invalidation")
	}
	if _, err := cache.Mapping(context.Background()); err != nil {
		t.Fatalf("Mapping returned error: %v", err)
	}
	if got := store.fetchCount(); got != 2 {
		t.Fatalf("expected refetch after invalidation, got %d fetches", got)
	}
}

// gatedStore blocks its first fetch until released so a test can interleave
// other cache operations with an in-flight fetch.
type gatedStore struct {
	mu      sync.Mutex
	fetches int
	mapping Mapping
	started chan struct{}
	release chan struct{}
}

func (s *gatedStore) FetchMapping(ctx context.Context) (Mapping, error) {
	s.mu.Lock()
	s.fetches++
	n := s.fetches
	m := s.mapping
	s.mu.Unlock()
	if n == 1 {
		close(s.started)
		<-s.release
	}
	return m, nil
}

func (s *gatedStore) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func (s *gatedStore) setMapping(m Mapping) {
	s.mu.Lock()
	s.mapping = m
	s.mu.Unlock()
}

func TestInvalidateDuringFetchForcesRefetch(t *testing.T) {
	preRevocation := Mapping{"editor": {"tasks": grantFor(ActionUpdate)}}
	store := &gatedStore{
		mapping: preRevocation,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	cache := NewCache(store, testLogger(), 0)

	done := make(chan error, 1)
	go func() {
		_, err := cache.Mapping(context.Background())
		done <- err
	}()

	// Revoke the grant while the first fetch is still in flight.
	<-store.started
	cache.Invalidate()
	store.setMapping(Mapping{})
	close(store.release)

	if err := <-done; err != nil {
		t.Fatalf("Mapping returned error: %v", err)
	}

	if _, loaded := cache.Snapshot(); loaded {
		t.Fatal("expected a fetch overlapping an invalidation not to populate the cache")
	}

	m, err := cache.Mapping(context.Background())
	if err != nil {
		t.Fatalf("Mapping returned error: %v", err)
	}
	if got := store.fetchCount(); got != 2 {
		t.Fatalf("expected a refetch after mid-flight invalidation, got %d fetches", got)
	}
	if _, ok := m.Grant("editor", "tasks"); ok {
		t.Fatal("revoked grant still served after invalidation")
	}
}

func TestSubscribeNotifiedOnInvalidation(t *testing.T) {
	cache := NewCache(&fakeStore{mapping: Mapping{}}, testLogger(), 0)

	var mu sync.Mutex
	calls := 0
	cancel := cache.Subscribe(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	cache.Invalidate()
	cache.Invalidate()

	mu.Lock()
	if calls != 2 {
		mu.Unlock()
		t.Fatalf("expected 2 notifications got %d", calls)
	}
	mu.Unlock()

	cancel()
	cache.Invalidate()

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("expected no notification after unsubscribe, got %d", calls)
	}
}

func TestSnapshotBeforeLoad(t *testing.T) {
	cache := NewCache(&fakeStore{mapping: Mapping{}}, testLogger(), 0)
	if _, loaded := cache.Snapshot(); loaded {
		t.Fatal("expected empty cache to report not loaded")
	}
}

func TestFailedFetchIsNotCached(t *testing.T) {
	store := &fakeStore{err: context.DeadlineExceeded}
	cache := NewCache(store, testLogger(), 0)

	if _, err := cache.Mapping(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}

	store.mu.Lock()
	store.err = nil
	store.mapping = Mapping{}
	store.mu.Unlock()

	if _, err := cache.Mapping(context.Background()); err != nil {
		t.Fatalf("expected recovery after store comes back, got %v", err)
	}
}
