package progress

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrRegistryClosed is returned by Acquire after Close.
var ErrRegistryClosed = errors.New("reconciler registry closed")

// Factory mounts the reconciler for a user.
type Factory func(uid string) (*Reconciler, error)

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	Factory Factory
	// IdleGrace keeps an unreferenced reconciler mounted for a while so a page
	// reload does not drop the channel. Zero unmounts immediately.
	IdleGrace time.Duration
	Logger    *slog.Logger
}

// Registry hands out one reconciler per user, reference counted by its
// subscribers.
type Registry struct {
	factory Factory
	grace   time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]*registryEntry
	closed  bool
}

type registryEntry struct {
	rec   *Reconciler
	refs  int
	timer *time.Timer
}

// NewRegistry constructs a Registry.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.Factory == nil {
		return nil, errors.New("reconciler factory is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factory: opts.Factory,
		grace:   opts.IdleGrace,
		logger:  logger.With("component", "progress_registry"),
		entries: make(map[string]*registryEntry),
	}, nil
}

// Acquire returns uid's reconciler, mounting it if needed, and a release func.
// Calling release more than once has no further effect.
func (g *Registry) Acquire(uid string) (*Reconciler, func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, nil, ErrRegistryClosed
	}

	e, ok := g.entries[uid]
	if !ok {
		rec, err := g.factory(uid)
		if err != nil {
			return nil, nil, err
		}
		e = &registryEntry{rec: rec}
		g.entries[uid] = e
		g.logger.Debug("reconciler mounted", "user_id", uid)
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.refs++

	var once sync.Once
	release := func() {
		once.Do(func() { g.release(uid, e) })
	}
	return e.rec, release, nil
}

// Active returns the number of mounted reconcilers.
func (g *Registry) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *Registry) release(uid string, e *registryEntry) {
	g.mu.Lock()
	e.refs--
	if e.refs > 0 || g.entries[uid] != e {
		g.mu.Unlock()
		return
	}
	if g.grace > 0 {
		e.timer = time.AfterFunc(g.grace, func() { g.expire(uid, e) })
		g.mu.Unlock()
		return
	}
	delete(g.entries, uid)
	g.mu.Unlock()

	g.unmount(uid, e)
}

func (g *Registry) expire(uid string, e *registryEntry) {
	g.mu.Lock()
	if g.entries[uid] != e || e.refs > 0 {
		g.mu.Unlock()
		return
	}
	delete(g.entries, uid)
	e.timer = nil
	g.mu.Unlock()

	g.unmount(uid, e)
}

func (g *Registry) unmount(uid string, e *registryEntry) {
	e.rec.Close()
	g.logger.Debug("reconciler unmounted", "user_id", uid)
}

// Close unmounts every reconciler. Later Acquire calls fail.
func (g *Registry) Close() {
	g.mu.Lock()
	g.closed = true
	entries := g.entries
	g.entries = make(map[string]*registryEntry)
	for _, e := range entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
	g.mu.Unlock()

	var wg sync.WaitGroup
	for uid, e := range entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.unmount(uid, e)
		}()
	}
	wg.Wait()
}
