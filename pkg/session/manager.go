package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/splitbill/internal/logging"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/aretw0/splitbill/pkg/ports"
)

const (
	// DefaultIdleTimeout is how long a session may go without events before eviction.
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
	DefaultLockTTL = 30 * time.Second
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker      ports.DistributedLocker // Optional distributed locker
	lockTTL     time.Duration
	idleTimeout time.Duration
	now         func() time.Time
	onEvict     func(ctx context.Context, s *domain.Session)
	logger      *slog.Logger // Logger for internal events (like deferred errors)
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithIdleTimeout sets the inactivity ceiling enforced by Sweep. Zero disables eviction.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.idleTimeout = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithEvictionHandler registers a callback invoked for every evicted session.
func WithEvictionHandler(fn func(ctx context.Context, s *domain.Session)) Option {
	return func(m *Manager) {
		m.onEvict = fn
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager with the given store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		locks:       make(map[string]*lockEntry),
		lockTTL:     DefaultLockTTL,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		logger:      logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(actorID) after unlocking.
func (m *Manager) acquire(actorID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[actorID]
	if !exists {
		entry = &lockEntry{}
		m.locks[actorID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(actorID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[actorID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, actorID)
	}
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, actorID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, actorID, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, actorID)
		return err
	})
	return s, err
}

// LoadOrStart tries to load a session. If not found (or idle past the timeout), it initializes a new one.
// Must not be called from inside WithLock for the same actor.
func (m *Manager) LoadOrStart(ctx context.Context, actorID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, actorID, func(ctx context.Context) error {
		var err error
		s, err = m.LoadOrNew(ctx, actorID)
		if err != nil {
			return err
		}
		return m.store.Save(ctx, actorID, s)
	})
	return s, err
}

// LoadOrNew loads the actor's session or returns a fresh, unsaved one.
// An expired session is evicted and replaced. The caller must hold the actor's lock.
func (m *Manager) LoadOrNew(ctx context.Context, actorID string) (*domain.Session, error) {
	s, err := m.store.Load(ctx, actorID)
	if err == nil {
		if !m.expired(s) {
			return s, nil
		}
		if err := m.evict(ctx, s); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to check session existence: %w", err)
	}
	return domain.NewSession(actorID, m.now()), nil
}

// Save persists the session.
func (m *Manager) Save(ctx context.Context, actorID string, s *domain.Session) error {
	return m.WithLock(ctx, actorID, func(ctx context.Context) error {
		return m.store.Save(ctx, actorID, s)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, actorID string) error {
	return m.WithLock(ctx, actorID, func(ctx context.Context) error {
		return m.store.Delete(ctx, actorID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time {
	return m.now()
}

// WithLock executes a function while holding the lock for the actor.
func (m *Manager) WithLock(ctx context.Context, actorID string, fn func(context.Context) error) error {
	entry := m.acquire(actorID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(actorID)
	}()

	// Distributed Locking
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, actorID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"actor_id", actorID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Sweep evicts every session idle for longer than the idle timeout and returns how many were evicted.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	if m.idleTimeout <= 0 {
		return 0, nil
	}
	actors, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	evicted := 0
	for _, actorID := range actors {
		err := m.WithLock(ctx, actorID, func(ctx context.Context) error {
			s, err := m.store.Load(ctx, actorID)
			if errors.Is(err, domain.ErrSessionNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if !m.expired(s) {
				return nil
			}
			if err := m.evict(ctx, s); err != nil {
				return err
			}
			evicted++
			return nil
		})
		if err != nil {
			m.logger.Warn("Failed to sweep session", "actor_id", actorID, "err", err)
		}
	}
	return evicted, nil
}

// RunJanitor calls Sweep every interval until ctx is cancelled.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.idleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				m.logger.Warn("Session sweep failed", "err", err)
				continue
			}
			if n > 0 {
				m.logger.Debug("Evicted idle sessions", "count", n)
			}
		}
	}
}

func (m *Manager) expired(s *domain.Session) bool {
	return m.idleTimeout > 0 && s.IdleFor(m.now()) > m.idleTimeout
}

func (m *Manager) evict(ctx context.Context, s *domain.Session) error {
	if err := m.store.Delete(ctx, s.ActorID); err != nil {
		return fmt.Errorf("failed to evict session: %w", err)
	}
	m.logger.Info("Session evicted", "actor_id", s.ActorID, "state", s.State, "idle", s.IdleFor(m.now()))
	if m.onEvict != nil {
		m.onEvict(ctx, s)
	}
	return nil
}
