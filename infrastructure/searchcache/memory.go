package searchcache

import (
	"container/list"
	"regexp"
	"strings"
	"sync"
	"time"

	domainCache "github.com/ozcart/salewatch/domains/cache"
	"github.com/ozcart/salewatch/domains/catalog"
	"github.com/sirupsen/logrus"
)

// sweepEvery is how many puts pass between lazy sweeps of expired entries.
const sweepEvery = 100

var spaceRe = regexp.MustCompile(`\s+`)

// Key derives the canonical cache key for a (source, query, location)
// triple. Query is lowercased with whitespace collapsed, location trimmed.
func Key(source, query, location string) string {
	q := spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(query)), " ")
	return source + ":" + q + ":" + strings.TrimSpace(location)
}

type entry struct {
	key       string
	value     []catalog.Candidate
	expiresAt time.Time
}

// Memory is a mutex-guarded TTL+LRU cache. The recency list keeps the least
// recently used element at the front; both get-hits and puts refresh recency.
type Memory struct {
	mu         sync.Mutex
	maxSize    int
	defaultTTL time.Duration
	items      map[string]*list.Element
	order      *list.List
	puts       int

	now func() time.Time
}

func NewMemory(maxSize int, defaultTTL time.Duration) *Memory {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Memory{
		maxSize:    maxSize,
		defaultTTL: defaultTTL,
		items:      make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
}

func (c *Memory) Get(source, query, location string) []catalog.Candidate {
	value, _ := c.GetEntry(source, query, location)
	return value
}

// GetEntry returns the cached value and whether the key exists. An expired
// entry counts as a miss and is removed so it never inflates Size.
func (c *Memory) GetEntry(source, query, location string) ([]catalog.Candidate, bool) {
	key := Key(source, query, location)

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}

	e := el.Value.(*entry)
	if c.now().After(e.expiresAt) {
		c.order.Remove(el)
		delete(c.items, key)
		return nil, false
	}

	c.order.MoveToBack(el)
	return e.value, true
}

func (c *Memory) Put(source, query, location string, value []catalog.Candidate) {
	c.put(source, query, location, value, c.defaultTTL)
}

// PutTTL overrides the default TTL for one entry. Non-positive TTLs are
// accepted and produce an already-expired entry.
func (c *Memory) PutTTL(source, query, location string, value []catalog.Candidate, ttlSeconds int) {
	c.put(source, query, location, value, time.Duration(ttlSeconds)*time.Second)
}

func (c *Memory) put(source, query, location string, value []catalog.Candidate, ttl time.Duration) {
	key := Key(source, query, location)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.puts++
	if c.puts%sweepEvery == 0 {
		c.sweepLocked()
	}

	e := &entry{key: key, value: value, expiresAt: c.now().Add(ttl)}
	if el, ok := c.items[key]; ok {
		el.Value = e
		c.order.MoveToBack(el)
	} else {
		c.items[key] = c.order.PushBack(e)
	}

	for len(c.items) > c.maxSize {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*entry)
		c.order.Remove(oldest)
		delete(c.items, evicted.key)
		logrus.Debugf("[CACHE] Evicted %s (LRU, size bound %d)", evicted.key, c.maxSize)
	}
}

func (c *Memory) sweepLocked() {
	now := c.now()
	var next *list.Element
	for el := c.order.Front(); el != nil; el = next {
		next = el.Next()
		e := el.Value.(*entry)
		if now.After(e.expiresAt) {
			c.order.Remove(el)
			delete(c.items, e.key)
		}
	}
}

func (c *Memory) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

func (c *Memory) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Memory) Stats() domainCache.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expired := 0
	for el := c.order.Front(); el != nil; el = el.Next() {
		if now.After(el.Value.(*entry).expiresAt) {
			expired++
		}
	}

	return domainCache.Stats{
		Size:         len(c.items),
		MaxSize:      c.maxSize,
		ExpiredItems: expired,
		DefaultTTL:   c.defaultTTL.String(),
	}
}

var _ domainCache.ISearchCache = (*Memory)(nil)
