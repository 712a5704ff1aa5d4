// Package session keeps one meal.Browser per browser session.
package session

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mealbrowser/internal/meal"
	"mealbrowser/internal/metrics"
)

// CookieName is the cookie carrying the session id.
const CookieName = "mealbrowser_session"

type entry struct {
	id       string
	browser  *meal.Browser
	lastSeen time.Time
}

// Registry maps session ids to browsers. Idle sessions expire after ttl
// and the least recently used session is evicted once the limit is reached.
type Registry struct {
	newBrowser func() *meal.Browser
	ttl        time.Duration
	limit      int
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*list.Element
	order    *list.List // front is most recently used
}

// NewRegistry creates a Registry that builds browsers with fetcher.
func NewRegistry(fetcher meal.Fetcher, ttl time.Duration, limit int, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = 10000
	}
	return &Registry{
		newBrowser: func() *meal.Browser { return meal.NewBrowser(fetcher, logger) },
		ttl:        ttl,
		limit:      limit,
		logger:     logger,
		now:        time.Now,
		sessions:   make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Acquire returns the browser for id. An unknown or empty id starts a new
// session; the returned id is the one the caller must hand back next time.
func (r *Registry) Acquire(id string) (string, *meal.Browser, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.expireLocked(now)

	if el, ok := r.sessions[id]; ok && id != "" {
		e := el.Value.(*entry)
		e.lastSeen = now
		r.order.MoveToFront(el)
		return id, e.browser, false
	}

	for r.order.Len() >= r.limit {
		r.removeLocked(r.order.Back())
	}
	id = uuid.NewString()
	b := r.newBrowser()
	r.sessions[id] = r.order.PushFront(&entry{id: id, browser: b, lastSeen: now})
	metrics.SetActiveSessions(len(r.sessions))
	return id, b, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// expireLocked drops idle sessions from the back of the list, stopping at
// the first one still in use.
func (r *Registry) expireLocked(now time.Time) {
	if r.ttl <= 0 {
		return
	}
	removed := 0
	for el := r.order.Back(); el != nil; el = r.order.Back() {
		if now.Sub(el.Value.(*entry).lastSeen) <= r.ttl {
			break
		}
		r.removeLocked(el)
		removed++
	}
	if removed > 0 {
		r.logger.Debug("expired idle sessions", zap.Int("removed", removed), zap.Int("remaining", len(r.sessions)))
		metrics.SetActiveSessions(len(r.sessions))
	}
}

func (r *Registry) removeLocked(el *list.Element) {
	e := r.order.Remove(el).(*entry)
	delete(r.sessions, e.id)
}
