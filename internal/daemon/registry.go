// Package daemon implements the stateful daemon (spec §4.8/§6): a
// long-lived process that owns named upstream Sessions behind a local IPC
// endpoint, persisting its registry and lifecycle events to disk. Registry
// mirrors internal/manager's identity-keyed LRU+TTL pool idiom (singleflight
// per-key construction, container/list LRU), generalized to serverName keys
// plus a hard max-age deadline and crash-recovery orphaning.
package daemon

import (
	"container/list"
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/mcp-gateway/toolkit/internal/gwerrors"
	"github.com/mcp-gateway/toolkit/internal/hash"
	"github.com/mcp-gateway/toolkit/internal/session"
)

// idEntropy is the monotonic ULID entropy source for registry entry IDs.
// ULIDs are lexicographically sortable by creation time, unlike uuid, so
// session.list's newest-first ordering also sorts by ID. ulid.Monotonic is
// not safe for concurrent use, hence the guarding mutex.
var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

func newEntryID(at time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), idEntropy).String()
}

// Connector opens a Session for spec; normally session.Connect, overridden
// in tests for determinism.
type Connector func(ctx context.Context, spec session.ServerSpec) (session.Session, error)

// Clock returns the current time; overridden in tests (spec §8 S6 needs a
// deterministic idle-expiry window).
type Clock func() time.Time

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Config    Config
	Dir       string
	EventLog  *EventLog
	Connector Connector
	Now       Clock
}

type registryItem struct {
	meta SessionRegistryEntry
	spec session.ServerSpec
	sess session.Session
}

// Registry owns the set of named Sessions, serializing state mutation
// through a mutex per spec §5's "single writer discipline ... a single
// registry task or a mutex" allowance — upstream Session.Call itself runs
// outside the lock so one slow server never blocks other sessions' RPCs.
type Registry struct {
	opts RegistryOptions
	now  Clock

	mu            sync.Mutex
	items         map[string]*list.Element // serverName -> element in lru
	lru           *list.List
	lastPersistAt time.Time

	flight singleflight.Group
}

// NewRegistry constructs a Registry, seeding it from a prior run's
// sessions.json: any entry found `active` is marked `orphaned` per spec
// §4.8 ("next startup treats any persisted active entries as orphaned").
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.Connector == nil {
		opts.Connector = session.Connect
	}

	r := &Registry{
		opts:  opts,
		now:   now,
		items: map[string]*list.Element{},
		lru:   list.New(),
	}

	prior, err := readSessionsFile(opts.Dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range prior {
		if entry.Status == StatusActive {
			entry.Status = StatusOrphaned
			entry.CloseReason = "daemon restarted"
		}
		elem := r.lru.PushBack(&registryItem{meta: entry})
		r.items[entry.ServerName] = elem
	}
	return r, nil
}

// OpenResult is session.open's reply shape (spec §6).
type OpenResult struct {
	Entry  SessionRegistryEntry
	Reused bool
}

// Open reuses (by name) or creates a Session for spec, evicting the LRU
// active entry first if at maxSessions (spec §4.8).
func (r *Registry) Open(ctx context.Context, spec session.ServerSpec) (OpenResult, error) {
	if err := spec.Validate(); err != nil {
		return OpenResult{}, err
	}
	name := spec.Name

	r.mu.Lock()
	r.sweepLocked()
	if item, ok := r.liveLocked(name); ok {
		item.meta.LastActiveAt = r.now()
		item.meta.ExpiresAt = item.meta.LastActiveAt.Add(idleTimeout(r.opts.Config))
		r.touchLocked(name)
		entry := item.meta
		r.mu.Unlock()
		r.persistAndEmit("session.open.reused", entry)
		return OpenResult{Entry: entry, Reused: true}, nil
	}
	r.mu.Unlock()

	result, err, _ := r.flight.Do(name, func() (any, error) {
		r.mu.Lock()
		if item, ok := r.liveLocked(name); ok {
			r.touchLocked(name)
			entry := item.meta
			r.mu.Unlock()
			return OpenResult{Entry: entry, Reused: true}, nil
		}

		if r.opts.Config.MaxSessions > 0 && r.activeCountLocked() >= r.opts.Config.MaxSessions {
			r.evictLRUActiveLocked()
		}
		r.mu.Unlock()

		sess, err := r.opts.Connector(ctx, spec)
		if err != nil {
			return OpenResult{}, gwerrors.Wrap(gwerrors.KindUpstreamError, "daemon", "Open",
				"failed to open upstream session", map[string]any{"name": name}, err)
		}

		now := r.now()
		entry := SessionRegistryEntry{
			ID:           newEntryID(now),
			ServerName:   name,
			Transport:    string(spec.ResolvedTransport()),
			ConfigHash:   hash.JSONHash(spec),
			CreatedAt:    now,
			LastActiveAt: now,
			ExpiresAt:    now.Add(idleTimeout(r.opts.Config)),
			MaxAgeAt:     now.Add(maxAge(r.opts.Config)),
			Status:       StatusActive,
		}

		r.mu.Lock()
		elem := r.lru.PushFront(&registryItem{meta: entry, spec: spec, sess: sess})
		r.items[name] = elem
		r.mu.Unlock()

		return OpenResult{Entry: entry, Reused: false}, nil
	})
	if err != nil {
		return OpenResult{}, err
	}
	res := result.(OpenResult)
	r.persistAndEmit("session.open", res.Entry)
	return res, nil
}

// Execute resolves name to a live Session for the caller to invoke method
// on, refreshing lastActiveAt/expiresAt first (spec §4.8). The actual
// upstream call happens outside the registry lock.
func (r *Registry) Execute(name string) (session.Session, error) {
	r.mu.Lock()
	r.sweepLocked()
	item, ok := r.liveLocked(name)
	if !ok {
		err := r.unavailableErrLocked(name)
		r.mu.Unlock()
		return nil, err
	}
	item.meta.LastActiveAt = r.now()
	item.meta.ExpiresAt = item.meta.LastActiveAt.Add(idleTimeout(r.opts.Config))
	r.touchLocked(name)
	sess := item.sess
	entry := item.meta
	r.mu.Unlock()

	r.persistAndEmit("session.execute", entry)
	return sess, nil
}

// Catalog resolves name to its live Session for a catalog lookup, applying
// the same lazy-sweep and expiry checks as Execute.
func (r *Registry) Catalog(name string) (session.Session, error) {
	return r.Execute(name)
}

// List returns every registry entry, active and historical, newest first.
func (r *Registry) List() []SessionRegistryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()

	out := make([]SessionRegistryEntry, 0, r.lru.Len())
	for e := r.lru.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*registryItem).meta)
	}
	return out
}

// Stop closes the named session and marks it stopped.
func (r *Registry) Stop(name, reason string) error {
	r.mu.Lock()
	elem, ok := r.items[name]
	if !ok {
		r.mu.Unlock()
		return gwerrors.New(gwerrors.KindSessionNotFound, "daemon", "Stop",
			"no session registered under this name", map[string]any{"name": name})
	}
	item := elem.Value.(*registryItem)
	sess := item.sess
	item.sess = nil
	item.meta.Status = StatusStopped
	item.meta.CloseReason = reason
	entry := item.meta
	r.mu.Unlock()

	if sess != nil {
		_ = sess.Close(context.Background())
	}
	r.persistAndEmit("session.stop", entry)
	return nil
}

// StopAll closes every active session (spec §4.8 session.stopAll).
func (r *Registry) StopAll(reason string) []SessionRegistryEntry {
	r.mu.Lock()
	var toClose []session.Session
	var entries []SessionRegistryEntry
	for e := r.lru.Front(); e != nil; e = e.Next() {
		item := e.Value.(*registryItem)
		if item.meta.Status != StatusActive {
			continue
		}
		if item.sess != nil {
			toClose = append(toClose, item.sess)
			item.sess = nil
		}
		item.meta.Status = StatusStopped
		item.meta.CloseReason = reason
		entries = append(entries, item.meta)
	}
	r.mu.Unlock()

	for _, sess := range toClose {
		_ = sess.Close(context.Background())
	}
	for _, entry := range entries {
		r.persistAndEmit("session.stop", entry)
	}
	return entries
}

// Sweep runs the periodic idle/max-age expiration pass (spec §4.8), called
// by the server's ticker in addition to the lazy per-call sweep.
func (r *Registry) Sweep() {
	r.mu.Lock()
	r.sweepLocked()
	r.mu.Unlock()
}

// Shutdown marks every active entry service_shutdown, closes their
// Sessions, and persists (spec §4.8 SIGINT/SIGTERM handling).
func (r *Registry) Shutdown() {
	r.StopAllWithStatus(StatusServiceShutdown, "service shutdown")
}

// StopAllWithStatus is StopAll generalized to the terminal status the
// caller wants recorded; its only caller, Shutdown, passes service_shutdown.
func (r *Registry) StopAllWithStatus(status Status, reason string) []SessionRegistryEntry {
	r.mu.Lock()
	var toClose []session.Session
	var entries []SessionRegistryEntry
	for e := r.lru.Front(); e != nil; e = e.Next() {
		item := e.Value.(*registryItem)
		if item.meta.Status != StatusActive {
			continue
		}
		if item.sess != nil {
			toClose = append(toClose, item.sess)
			item.sess = nil
		}
		item.meta.Status = status
		item.meta.CloseReason = reason
		entries = append(entries, item.meta)
	}
	r.mu.Unlock()

	for _, sess := range toClose {
		_ = sess.Close(context.Background())
	}
	if len(entries) > 0 {
		r.mu.Lock()
		r.persistLocked()
		r.mu.Unlock()
		for _, entry := range entries {
			r.emit("session.stop", entry)
		}
	}
	return entries
}

// liveLocked returns the registryItem for name if it exists and is active.
// It does not check expiry itself; callers run sweepLocked first. Caller
// must hold r.mu.
func (r *Registry) liveLocked(name string) (*registryItem, bool) {
	elem, ok := r.items[name]
	if !ok {
		return nil, false
	}
	item := elem.Value.(*registryItem)
	if item.meta.Status != StatusActive {
		return nil, false
	}
	return item, true
}

func (r *Registry) touchLocked(name string) {
	if elem, ok := r.items[name]; ok {
		r.lru.MoveToFront(elem)
	}
}

func (r *Registry) activeCountLocked() int {
	n := 0
	for e := r.lru.Front(); e != nil; e = e.Next() {
		if e.Value.(*registryItem).meta.Status == StatusActive {
			n++
		}
	}
	return n
}

// evictLRUActiveLocked evicts the least-recently-used active entry to make
// room under maxSessions (spec §4.8's "optional LRU eviction").
func (r *Registry) evictLRUActiveLocked() {
	for e := r.lru.Back(); e != nil; e = e.Prev() {
		item := e.Value.(*registryItem)
		if item.meta.Status != StatusActive {
			continue
		}
		sess := item.sess
		item.sess = nil
		item.meta.Status = StatusEvictedLRU
		item.meta.CloseReason = "evicted to admit a new session under maxSessions"
		if sess != nil {
			go func() { _ = sess.Close(context.Background()) }()
		}
		return
	}
}

// sweepLocked expires sessions past expiresAt/maxAgeAt (spec §4.8). Caller
// must hold r.mu.
func (r *Registry) sweepLocked() {
	now := r.now()
	for e := r.lru.Front(); e != nil; e = e.Next() {
		item := e.Value.(*registryItem)
		if item.meta.Status != StatusActive {
			continue
		}
		switch {
		case !item.meta.MaxAgeAt.IsZero() && !now.Before(item.meta.MaxAgeAt):
			r.expireLocked(item, StatusExpiredMaxAge, "max age exceeded")
		case !item.meta.ExpiresAt.IsZero() && !now.Before(item.meta.ExpiresAt):
			r.expireLocked(item, StatusExpiredIdle, "idle timeout exceeded")
		}
	}
}

func (r *Registry) expireLocked(item *registryItem, status Status, reason string) {
	sess := item.sess
	item.sess = nil
	item.meta.Status = status
	item.meta.CloseReason = reason
	if sess != nil {
		go func() { _ = sess.Close(context.Background()) }()
	}
}

// unavailableErrLocked classifies why name has no usable live session,
// mirroring spec §4.8's distinct SESSION_* kinds.
func (r *Registry) unavailableErrLocked(name string) error {
	elem, ok := r.items[name]
	if !ok {
		return gwerrors.New(gwerrors.KindSessionNotFound, "daemon", "Execute",
			"no session registered under this name", map[string]any{"name": name})
	}
	switch elem.Value.(*registryItem).meta.Status {
	case StatusOrphaned:
		return gwerrors.New(gwerrors.KindSessionOrphaned, "daemon", "Execute",
			"session was orphaned by a daemon restart and cannot be resumed", map[string]any{"name": name})
	case StatusExpiredIdle:
		return gwerrors.New(gwerrors.KindSessionExpiredIdle, "daemon", "Execute",
			"session expired from inactivity", map[string]any{"name": name})
	case StatusExpiredMaxAge:
		return gwerrors.New(gwerrors.KindSessionExpiredMaxAge, "daemon", "Execute",
			"session exceeded its maximum age", map[string]any{"name": name})
	default:
		return gwerrors.New(gwerrors.KindSessionNotFound, "daemon", "Execute",
			"session is not active", map[string]any{"name": name})
	}
}

// persistAndEmit persists the registry (throttled) and appends one event,
// taking the lock itself; callers must not hold r.mu.
func (r *Registry) persistAndEmit(eventType string, entry SessionRegistryEntry) {
	r.mu.Lock()
	r.persistLocked()
	r.mu.Unlock()
	r.emit(eventType, entry)
}

func (r *Registry) persistLocked() {
	now := r.now()
	if !r.lastPersistAt.IsZero() && now.Sub(r.lastPersistAt) < time.Duration(r.opts.Config.PersistMinIntervalMs)*time.Millisecond {
		return
	}
	entries := make([]SessionRegistryEntry, 0, r.lru.Len())
	for e := r.lru.Front(); e != nil; e = e.Next() {
		entries = append(entries, e.Value.(*registryItem).meta)
	}
	_ = writeSessionsFile(r.opts.Dir, entries)
	r.lastPersistAt = now
}

func (r *Registry) emit(eventType string, entry SessionRegistryEntry) {
	if r.opts.EventLog == nil {
		return
	}
	_ = r.opts.EventLog.Append(r.now().UTC().Format(time.RFC3339Nano), eventType, map[string]any{
		"id":         entry.ID,
		"serverName": entry.ServerName,
		"status":     string(entry.Status),
	})
}

// Close stops every active session without persisting a terminal status —
// used when the registry is discarded outside of a full daemon shutdown
// (e.g. test teardown).
func (r *Registry) Close() {
	r.mu.Lock()
	var sessions []session.Session
	for e := r.lru.Front(); e != nil; e = e.Next() {
		item := e.Value.(*registryItem)
		if item.sess != nil {
			sessions = append(sessions, item.sess)
		}
	}
	r.mu.Unlock()
	for _, sess := range sessions {
		_ = sess.Close(context.Background())
	}
}

func idleTimeout(cfg Config) time.Duration {
	return time.Duration(cfg.IdleTimeoutMs) * time.Millisecond
}

func maxAge(cfg Config) time.Duration {
	return time.Duration(cfg.MaxAgeMs) * time.Millisecond
}
