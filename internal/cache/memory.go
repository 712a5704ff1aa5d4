package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"mealbrowser/internal/meal"
)

// DefaultMaxEntries bounds a Memory cache created with a non-positive size.
const DefaultMaxEntries = 1000

const memorySweepInterval = time.Minute

type memoryItem struct {
	key       string
	meals     []meal.Meal
	expiresAt time.Time
}

// Memory is an in-process Backend holding at most maxEntries lists. The least
// recently used entry is evicted when full and expired entries are swept
// periodically.
type Memory struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front is most recently used
	maxEntries int
	now        func() time.Time
	lastSweep  time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get implements Backend.
func (m *Memory) Get(ctx context.Context, key string) ([]meal.Meal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[encodeKey(key)]
	if !ok {
		return nil, ErrMiss
	}
	item := el.Value.(*memoryItem)
	if m.now().After(item.expiresAt) {
		m.removeLocked(el)
		return nil, ErrMiss
	}
	m.order.MoveToFront(el)

	out := make([]meal.Meal, len(item.meals))
	copy(out, item.meals)
	return out, nil
}

// Set implements Backend.
func (m *Memory) Set(ctx context.Context, key string, meals []meal.Meal, ttl time.Duration) error {
	stored := make([]meal.Meal, len(meals))
	copy(stored, meals)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	k := encodeKey(key)
	if el, ok := m.items[k]; ok {
		item := el.Value.(*memoryItem)
		item.meals = stored
		item.expiresAt = now.Add(ttl)
		m.order.MoveToFront(el)
		return nil
	}

	for m.order.Len() >= m.maxEntries {
		m.removeLocked(m.order.Back())
	}
	m.items[k] = m.order.PushFront(&memoryItem{key: k, meals: stored, expiresAt: now.Add(ttl)})
	return nil
}

// Len returns the number of stored entries, expired ones not yet swept included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) sweepLocked(now time.Time) {
	if now.Sub(m.lastSweep) < memorySweepInterval {
		return
	}
	m.lastSweep = now
	for el := m.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*memoryItem).expiresAt) {
			m.removeLocked(el)
		}
		el = prev
	}
}

func (m *Memory) removeLocked(el *list.Element) {
	item := m.order.Remove(el).(*memoryItem)
	delete(m.items, item.key)
}
