// Package listing keeps the pre-rendered "all videos" page.
package listing

import (
	"bytes"
	"io"
	"sync/atomic"

	"github.com/OdyseeTeam/gondola/catalog"
)

type Renderer interface {
	List(w io.Writer, s *catalog.Snapshot) error
}

// Cache serves the last completed rendering of the listing page.
// Rebuilds render into a fresh buffer and publish it in one swap, so
// readers see either the previous page or the new one, never a partial one.
type Cache struct {
	renderer Renderer
	page     atomic.Pointer[[]byte]
	builds   atomic.Uint64
}

func New(r Renderer) *Cache {
	c := &Cache{renderer: r}
	empty := []byte{}
	c.page.Store(&empty)
	return c
}

// Rebuild renders s and publishes the result. On error the previous page stays.
func (c *Cache) Rebuild(s *catalog.Snapshot) error {
	buf := &bytes.Buffer{}
	if err := c.renderer.List(buf, s); err != nil {
		return err
	}
	page := buf.Bytes()
	c.page.Store(&page)
	c.builds.Add(1)
	return nil
}

// Page returns the current page. Callers must not modify it.
func (c *Cache) Page() []byte {
	return *c.page.Load()
}

// Builds reports how many rebuilds have been published.
func (c *Cache) Builds() uint64 {
	return c.builds.Load()
}
