// Package cache is a flat persisted key/value document with a change
// handler. It holds bookkeeping state such as layer order and the active
// stack rather than user facing parameters.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/hidden-shades/internal/store"
)

// Handler is invoked for a key whose value was loaded or set. When ok is
// true the returned value replaces the stored one. Handlers must not call
// back into the Cache.
type Handler func(key string, value any) (corrected any, ok bool)

// Cache is rewritten as a whole document on every mutation.
type Cache struct {
	store store.Store
	key   string

	mu       sync.Mutex
	doc      map[string]any
	onChange Handler
}

// New loads the document stored at key, layering it over initial. When
// nothing is stored the initial values are used. Either way every key is
// passed through the handler and the result is written back.
func New(s store.Store, key string, initial map[string]any, h Handler) (*Cache, error) {
	c := &Cache{store: s, key: key, doc: make(map[string]any, len(initial)), onChange: h}
	for k, v := range initial {
		c.doc[k] = v
	}

	raw, err := s.Read(key)
	switch {
	case errors.Is(err, store.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read cache %q: %w", key, err)
	default:
		var loaded map[string]any
		if err := json.Unmarshal(raw, &loaded); err != nil {
			log.Warn().Err(err).Str("cache", key).Msg("discarding unreadable cache document")
		}
		for k, v := range loaded {
			c.doc[k] = v
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyAll()
	if err := c.write(); err != nil {
		return nil, err
	}
	return c, nil
}

// SetHandler replaces the change handler.
func (c *Cache) SetHandler(h Handler) {
	c.mu.Lock()
	c.onChange = h
	c.mu.Unlock()
}

func (c *Cache) notify(key string) {
	if c.onChange == nil {
		return
	}
	if corrected, ok := c.onChange(key, c.doc[key]); ok {
		c.doc[key] = corrected
	}
}

func (c *Cache) notifyAll() {
	keys := make([]string, 0, len(c.doc))
	for k := range c.doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.notify(k)
	}
}

func (c *Cache) write() error {
	b, err := json.Marshal(c.doc)
	if err != nil {
		return fmt.Errorf("encode cache %q: %w", c.key, err)
	}
	if err := c.store.Write(c.key, b); err != nil {
		return fmt.Errorf("write cache %q: %w", c.key, err)
	}
	return nil
}

// Get returns the value for key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.doc[key]
	return v, ok
}

// Set assigns one key, notifies it and rewrites the document.
func (c *Cache) Set(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc[key] = value
	c.notify(key)
	return c.write()
}

// Merge assigns every entry of values, notifies all keys and rewrites the
// document once.
func (c *Cache) Merge(values map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range values {
		c.doc[k] = v
	}
	c.notifyAll()
	return c.write()
}

// Snapshot returns a copy of the document.
func (c *Cache) Snapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.doc))
	for k, v := range c.doc {
		out[k] = v
	}
	return out
}

// Decode unmarshals the document into v, typically a struct with json tags.
func (c *Cache) Decode(v any) error {
	c.mu.Lock()
	b, err := json.Marshal(c.doc)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
