// Package store provides the durable key/value storage that variables,
// caches and stacks persist into. Keys are slash separated paths; each
// owner is handed a Sub store rooted at its own location.
package store

import (
	"errors"
	"path"
	"strings"
)

// ErrNotExist is returned by Read when nothing is stored under a key.
var ErrNotExist = errors.New("store: key does not exist")

// Store is the persistence contract. Write replaces the whole value
// atomically; readers never observe a partial write.
type Store interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
	// List returns the names of the immediate children of prefix, sorted.
	// A missing prefix lists as empty.
	List(prefix string) ([]string, error)
	// Exists reports whether key holds a value or has children.
	Exists(key string) (bool, error)
	// RemoveAll deletes key and everything below it.
	RemoveAll(key string) error
}

// Join cleans and joins key segments. Empty segments are dropped.
func Join(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) == 0 {
		return ""
	}
	return path.Clean(strings.Join(nonEmpty, "/"))
}

type sub struct {
	parent Store
	prefix string
}

// Sub returns a view of s with every key prefixed by prefix.
func Sub(s Store, prefix string) Store {
	if inner, ok := s.(*sub); ok {
		return &sub{parent: inner.parent, prefix: Join(inner.prefix, prefix)}
	}
	return &sub{parent: s, prefix: Join(prefix)}
}

func (s *sub) Read(key string) ([]byte, error)       { return s.parent.Read(Join(s.prefix, key)) }
func (s *sub) Write(key string, data []byte) error   { return s.parent.Write(Join(s.prefix, key), data) }
func (s *sub) List(prefix string) ([]string, error)  { return s.parent.List(Join(s.prefix, prefix)) }
func (s *sub) Exists(key string) (bool, error)       { return s.parent.Exists(Join(s.prefix, key)) }
func (s *sub) RemoveAll(key string) error            { return s.parent.RemoveAll(Join(s.prefix, key)) }
