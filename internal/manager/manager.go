// Package manager implements the identity-keyed LRU+TTL session pool of
// spec §4.6, serializing factory calls per identity key via
// golang.org/x/sync/singleflight (an ecosystem dependency already present in
// the example pack via giantswarm-muster's use of golang.org/x/sync).
package manager

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mcp-gateway/toolkit/internal/session"
)

// Request is the opaque per-call context passed to Factory, carrying
// whatever the caller's surface needs to build a Session (e.g. the
// requested upstream server name).
type Request struct {
	AuthorizationHeader string
	ServerName          string
	Extra               map[string]any
}

// Factory constructs a new Session for identity/req. The Manager guarantees
// at most one in-flight Factory call per identity key at a time (spec §4.6
// invariant).
type Factory func(ctx context.Context, identity Identity, req Request) (session.Session, error)

// Now returns the current time; overridable for deterministic tests (spec
// §6 "now?" option).
type Now func() time.Time

// Options configures a Manager.
type Options struct {
	Max     int
	TTL     time.Duration
	AuthMode AuthMode
	Factory Factory
	Now     Now
}

type poolEntry struct {
	key      string
	sess     session.Session
	lastUsed time.Time
}

// Stats mirrors spec §4.6's stats() return shape.
type Stats struct {
	Size      int
	Evictions int
	Keys      []string
}

// Manager is the identity-keyed LRU+TTL session pool.
type Manager struct {
	opts Options
	now  Now

	mu        sync.Mutex
	entries   map[string]*list.Element // key -> element in lru (front = MRU)
	lru       *list.List
	evictions int

	flight singleflight.Group
}

// New constructs a Manager. opts.Factory must be non-nil.
func New(opts Options) *Manager {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		opts:    opts,
		now:     now,
		entries: map[string]*list.Element{},
		lru:     list.New(),
	}
}

// Get implements spec §4.6's get(request) algorithm.
func (m *Manager) Get(ctx context.Context, req Request) (session.Session, error) {
	identity, err := ResolveIdentity(req.AuthorizationHeader)
	if err != nil {
		return nil, err
	}
	if err := enforce(m.opts.AuthMode, identity); err != nil {
		return nil, err
	}

	key := identity.CacheKey()

	if sess, ok := m.touchIfLive(key); ok {
		return sess, nil
	}

	// Serialize factory construction per identity key (spec §4.6 invariant).
	result, err, _ := m.flight.Do(key, func() (any, error) {
		// Re-check: another goroutine may have populated the entry while we
		// waited to enter the singleflight group.
		if sess, ok := m.touchIfLive(key); ok {
			return sess, nil
		}

		m.mu.Lock()
		if m.lru.Len() >= m.opts.Max && m.opts.Max > 0 {
			m.evictLRULocked()
		}
		m.mu.Unlock()

		sess, err := m.opts.Factory(ctx, identity, req)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		elem := m.lru.PushFront(&poolEntry{key: key, sess: sess, lastUsed: m.now()})
		m.entries[key] = elem
		m.mu.Unlock()

		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(session.Session), nil
}

// touchIfLive returns the live, non-expired Session for key, updating
// lastUsed and moving it to MRU; evicts it (closing the Session) if it has
// expired under TTL.
func (m *Manager) touchIfLive(key string) (session.Session, bool) {
	m.mu.Lock()
	elem, ok := m.entries[key]
	if !ok {
		m.mu.Unlock()
		return nil, false
	}
	pe := elem.Value.(*poolEntry)
	now := m.now()
	if m.opts.TTL > 0 && now.Sub(pe.lastUsed) >= m.opts.TTL {
		m.removeLocked(elem)
		sess := pe.sess
		m.evictions++
		m.mu.Unlock()
		_ = sess.Close(context.Background())
		return nil, false
	}
	pe.lastUsed = now
	m.lru.MoveToFront(elem)
	sess := pe.sess
	m.mu.Unlock()
	return sess, true
}

// evictLRULocked evicts the least-recently-used entry. Caller must hold m.mu.
func (m *Manager) evictLRULocked() {
	back := m.lru.Back()
	if back == nil {
		return
	}
	pe := back.Value.(*poolEntry)
	m.removeLocked(back)
	m.evictions++
	go func() { _ = pe.sess.Close(context.Background()) }()
}

func (m *Manager) removeLocked(elem *list.Element) {
	pe := elem.Value.(*poolEntry)
	delete(m.entries, pe.key)
	m.lru.Remove(elem)
}

// Stats returns current pool size, cumulative evictions, and live keys.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return Stats{Size: m.lru.Len(), Evictions: m.evictions, Keys: keys}
}

// Close shuts every pooled Session down (spec §4.6).
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := make([]session.Session, 0, len(m.entries))
	for _, elem := range m.entries {
		sessions = append(sessions, elem.Value.(*poolEntry).sess)
	}
	m.entries = map[string]*list.Element{}
	m.lru = list.New()
	m.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if err := s.Close(context.Background()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
