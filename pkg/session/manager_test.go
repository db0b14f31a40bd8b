package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/splitbill/pkg/adapters/memory"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/aretw0/splitbill/pkg/ports"
	"github.com/aretw0/splitbill/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.Session
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, actorID string, sess *domain.Session) error {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.Session)
	}
	s.data[actorID] = sess.Clone()
	return nil
}

func (s *SlowStore) Load(ctx context.Context, actorID string) (*domain.Session, error) {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.data[actorID]; ok {
		return sess.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, actorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, actorID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestManager_Locking(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	require.NoError(t, manager.Save(ctx, id, domain.NewSession(id, time.Now())))

	// Read-modify-write under WithLock must not lose updates.
	var wg sync.WaitGroup
	concurrentWrites := 10
	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, id, func(ctx context.Context) error {
				s, err := store.Load(ctx, id)
				if err != nil {
					return err
				}
				s.Cursor++
				return store.Save(ctx, id, s)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, concurrentWrites, s.Cursor)
}

func TestManager_IndependentActorsRunInParallel(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	var inside int32
	var peak int32
	var wg sync.WaitGroup
	for _, actor := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(actor string) {
			defer wg.Done()
			_ = manager.WithLock(ctx, actor, func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(50 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		}(actor)
	}
	wg.Wait()
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
}

func TestManager_LoadOrStart(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := manager.LoadOrStart(ctx, id)
			assert.NoError(t, err)
			assert.NotNil(t, s)
		}()
	}
	wg.Wait()

	s, err := manager.Load(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, domain.StateSelectingAction, s.State)
}

func TestManager_Sweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	var evicted []string
	store := memory.NewStore()
	manager := session.NewManager(store,
		session.WithIdleTimeout(10*time.Minute),
		session.WithClock(clock),
		session.WithEvictionHandler(func(ctx context.Context, s *domain.Session) {
			evicted = append(evicted, s.ActorID)
		}),
	)

	stale := domain.NewSession("stale", now.Add(-11*time.Minute))
	fresh := domain.NewSession("fresh", now.Add(-1*time.Minute))
	require.NoError(t, manager.Save(ctx, "stale", stale))
	require.NoError(t, manager.Save(ctx, "fresh", fresh))

	n, err := manager.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"stale"}, evicted)

	_, err = manager.Load(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = manager.Load(ctx, "fresh")
	assert.NoError(t, err)
}

func TestManager_LoadOrNew_ReplacesExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	manager := session.NewManager(memory.NewStore(),
		session.WithIdleTimeout(time.Minute),
		session.WithClock(func() time.Time { return now }),
	)

	old := domain.NewSession("actor", now.Add(-time.Hour))
	old.State = domain.StateAddingItem
	require.NoError(t, manager.Save(ctx, "actor", old))

	err := manager.WithLock(ctx, "actor", func(ctx context.Context) error {
		s, err := manager.LoadOrNew(ctx, "actor")
		require.NoError(t, err)
		assert.Equal(t, domain.StateSelectingAction, s.State)
		return nil
	})
	require.NoError(t, err)
}

func TestManager_RunJanitor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var now atomic.Value
	now.Store(time.Now())
	store := memory.NewStore()
	manager := session.NewManager(store,
		session.WithIdleTimeout(time.Minute),
		session.WithClock(func() time.Time { return now.Load().(time.Time) }),
	)
	require.NoError(t, manager.Save(ctx, "idle", domain.NewSession("idle", time.Now())))
	now.Store(time.Now().Add(2 * time.Minute))

	done := make(chan struct{})
	go func() {
		manager.RunJanitor(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		ids, _ := store.List(ctx)
		return len(ids) == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

type failingLocker struct{}

func (failingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	return nil, assert.AnError
}

func TestManager_DistributedLockFailure(t *testing.T) {
	manager := session.NewManager(memory.NewStore(), session.WithLocker(failingLocker{}))
	called := false
	err := manager.WithLock(context.Background(), "x", func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, called)
}
