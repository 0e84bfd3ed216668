// Package cache keeps prepared bulk statements keyed by their SQL text.
// Bulk statements differ with the number of rows in the batch, so the
// cache is bounded and evicts the least recently used statement.
package cache

import (
	"container/list"
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
)

const (
	// DefaultStmtCacheCapacity is the default maximum number of cached prepared statements.
	DefaultStmtCacheCapacity = 256
)

// Preparer prepares statements; *sql.DB and *sql.Conn satisfy it.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// StmtCache stores prepared statements with LRU eviction policy.
type StmtCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	lruList  *list.List

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// cacheEntry holds one prepared statement. refs counts callers executing
// it; a retired entry is closed once refs drops to zero.
type cacheEntry struct {
	key     string
	stmt    *sql.Stmt
	refs    int
	retired bool
}

// NewStmtCache creates a new prepared statement cache with default capacity.
func NewStmtCache() *StmtCache {
	return NewStmtCacheWithCapacity(DefaultStmtCacheCapacity)
}

// NewStmtCacheWithCapacity creates a cache holding at most capacity
// statements. Non-positive values select the default.
func NewStmtCacheWithCapacity(capacity int) *StmtCache {
	if capacity <= 0 {
		capacity = DefaultStmtCacheCapacity
	}
	return &StmtCache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		lruList:  list.New(),
	}
}

// Get returns the cached statement for key and marks it most recently used.
// The statement is not held; use GetOrPrepare to execute it safely.
func (sc *StmtCache) Get(key string) (*sql.Stmt, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	elem, exists := sc.items[key]
	if !exists {
		sc.misses.Add(1)
		return nil, false
	}

	sc.lruList.MoveToFront(elem)
	sc.hits.Add(1)
	return elem.Value.(*cacheEntry).stmt, true
}

// Set stores stmt under key, retiring any statement it replaces and
// evicting the least recently used entry when full.
func (sc *StmtCache) Set(key string, stmt *sql.Stmt) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if elem, exists := sc.items[key]; exists {
		sc.lruList.MoveToFront(elem)
		old := elem.Value.(*cacheEntry)
		if old.stmt == stmt {
			return
		}
		elem.Value = &cacheEntry{key: key, stmt: stmt}
		sc.retire(old)
		return
	}

	sc.insert(&cacheEntry{key: key, stmt: stmt})
}

// GetOrPrepare returns the cached statement for query, preparing and
// caching it on a miss. The statement stays open until release is called,
// even if it is evicted or replaced in the meantime; release must be
// called exactly once.
func (sc *StmtCache) GetOrPrepare(ctx context.Context, p Preparer, query string) (stmt *sql.Stmt, release func(), err error) {
	sc.mu.Lock()
	if elem, exists := sc.items[query]; exists {
		sc.lruList.MoveToFront(elem)
		sc.hits.Add(1)
		entry := sc.acquire(elem.Value.(*cacheEntry))
		sc.mu.Unlock()
		return entry.stmt, sc.releaser(entry), nil
	}
	sc.misses.Add(1)
	sc.mu.Unlock()

	prepared, err := p.PrepareContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	// Another caller may have prepared the same query meanwhile.
	if elem, exists := sc.items[query]; exists {
		_ = prepared.Close()
		sc.lruList.MoveToFront(elem)
		entry := sc.acquire(elem.Value.(*cacheEntry))
		return entry.stmt, sc.releaser(entry), nil
	}

	entry := sc.acquire(&cacheEntry{key: query, stmt: prepared})
	sc.insert(entry)
	return entry.stmt, sc.releaser(entry), nil
}

// Remove retires and drops the statement for key, if cached.
func (sc *StmtCache) Remove(key string) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	elem, exists := sc.items[key]
	if !exists {
		return false
	}
	sc.lruList.Remove(elem)
	delete(sc.items, key)
	sc.retire(elem.Value.(*cacheEntry))
	return true
}

// insert adds entry as most recently used, evicting when full.
// Must be called with lock held.
func (sc *StmtCache) insert(entry *cacheEntry) {
	if sc.lruList.Len() >= sc.capacity {
		sc.evictOldest()
	}
	sc.items[entry.key] = sc.lruList.PushFront(entry)
}

// evictOldest removes and retires the least recently used statement.
// Must be called with lock held.
func (sc *StmtCache) evictOldest() {
	elem := sc.lruList.Back()
	if elem == nil {
		return
	}

	sc.lruList.Remove(elem)
	entry := elem.Value.(*cacheEntry)
	delete(sc.items, entry.key)
	sc.retire(entry)
	sc.evictions.Add(1)
}

// Must be called with lock held.
func (sc *StmtCache) acquire(entry *cacheEntry) *cacheEntry {
	entry.refs++
	return entry
}

// retire marks entry as no longer cached and closes its statement unless
// a caller still holds it. Must be called with lock held.
func (sc *StmtCache) retire(entry *cacheEntry) {
	entry.retired = true
	if entry.refs == 0 {
		_ = entry.stmt.Close()
	}
}

func (sc *StmtCache) releaser(entry *cacheEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			sc.mu.Lock()
			defer sc.mu.Unlock()
			entry.refs--
			if entry.retired && entry.refs == 0 {
				_ = entry.stmt.Close()
			}
		})
	}
}

// Clear retires and removes all cached prepared statements. Statements
// still held by callers close when released.
func (sc *StmtCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	for elem := sc.lruList.Front(); elem != nil; elem = elem.Next() {
		sc.retire(elem.Value.(*cacheEntry))
	}

	sc.items = make(map[string]*list.Element, sc.capacity)
	sc.lruList.Init()
}

// Stats holds cache performance metrics.
type Stats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64 // hits / (hits + misses)
}

// Stats returns cache statistics.
func (sc *StmtCache) Stats() Stats {
	sc.mu.Lock()
	size := sc.lruList.Len()
	sc.mu.Unlock()

	hits := sc.hits.Load()
	misses := sc.misses.Load()

	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:      size,
		Capacity:  sc.capacity,
		Hits:      hits,
		Misses:    misses,
		Evictions: sc.evictions.Load(),
		HitRate:   hitRate,
	}
}
