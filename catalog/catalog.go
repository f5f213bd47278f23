// Package catalog holds the in-memory table of videos served by the site.
package catalog

import (
	"sort"
	"sync"
	"time"
)

// Video is a single catalog record, keyed by its file name.
type Video struct {
	ID        string
	Added     time.Time
	Source    string
	HasSource bool
	Views     uint64
}

// Catalog is an ordered id -> Video mapping safe for concurrent use.
// Iteration order is insertion order, unless SortByID was called,
// in which case later inserts are appended after the sorted block.
type Catalog struct {
	mu      sync.RWMutex
	entries []Video
	index   map[string]int
}

func New() *Catalog {
	return &Catalog{index: map[string]int{}}
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Catalog) Get(id string) (Video, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	if !ok {
		return Video{}, false
	}
	return c.entries[i], true
}

// IncrementViews bumps the view counter of id. Unknown ids are ignored.
func (c *Catalog) IncrementViews(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.index[id]; ok {
		c.entries[i].Views++
	}
}

// InsertOrUpdate adds id with zero views or, when it is already present,
// refreshes its added time and source. Existing view counts are kept.
// It reports whether a new record was created.
func (c *Catalog) InsertOrUpdate(id string, added time.Time, source string, hasSource bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.index[id]; ok {
		c.entries[i].Added = added
		c.entries[i].Source = source
		c.entries[i].HasSource = hasSource
		return false
	}
	c.append(Video{ID: id, Added: added, Source: source, HasSource: hasSource})
	return true
}

// Seed inserts a record carrying a previously persisted view count.
// It behaves like InsertOrUpdate for ids already present.
func (c *Catalog) Seed(v Video) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.index[v.ID]; ok {
		c.entries[i].Added = v.Added
		c.entries[i].Source = v.Source
		c.entries[i].HasSource = v.HasSource
		return false
	}
	c.append(v)
	return true
}

func (c *Catalog) append(v Video) {
	c.index[v.ID] = len(c.entries)
	c.entries = append(c.entries, v)
}

// Remove deletes id, reporting whether it was present.
func (c *Catalog) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[id]
	if !ok {
		return false
	}
	delete(c.index, id)
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	for j := i; j < len(c.entries); j++ {
		c.index[c.entries[j].ID] = j
	}
	return true
}

func (c *Catalog) IndexOf(id string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[id]
	return i, ok
}

func (c *Catalog) At(i int) (Video, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.entries) {
		return Video{}, false
	}
	return c.entries[i], true
}

// SortByID orders the catalog by ascending id.
func (c *Catalog) SortByID() {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.Slice(c.entries, func(i, j int) bool { return c.entries[i].ID < c.entries[j].ID })
	for i, v := range c.entries {
		c.index[v.ID] = i
	}
}

// Snapshot copies the catalog under a read lock.
func (c *Catalog) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := &Snapshot{
		entries: make([]Video, len(c.entries)),
		index:   make(map[string]int, len(c.index)),
	}
	copy(s.entries, c.entries)
	for k, v := range c.index {
		s.index[k] = v
	}
	return s
}
