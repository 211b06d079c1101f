package cache

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/hidden-shades/internal/store"
)

func TestNewStoresInitialValues(t *testing.T) {
	s, err := store.NewFS(t.TempDir())
	require.NoError(t, err)

	var seen []string
	c, err := New(s, "info", map[string]any{"active": "A", "count": 1}, func(k string, v any) (any, bool) {
		seen = append(seen, k)
		return nil, false
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"active", "count"}, seen)

	raw, err := s.Read("info")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "A", doc["active"])

	v, ok := c.Get("active")
	assert.True(t, ok)
	assert.Equal(t, "A", v)
}

func TestSetNormalisesAndPersists(t *testing.T) {
	s, err := store.NewFS(t.TempDir())
	require.NoError(t, err)
	truthy := func(k string, v any) (any, bool) {
		if k != "active" {
			return nil, false
		}
		b, _ := v.(bool)
		return b, true
	}
	c, err := New(s, "info", map[string]any{"active": true}, truthy)
	require.NoError(t, err)

	require.NoError(t, c.Set("active", "yes"))
	v, _ := c.Get("active")
	assert.Equal(t, false, v)

	reloaded, err := New(s, "info", map[string]any{"active": true, "extra": 2}, nil)
	require.NoError(t, err)
	snap := reloaded.Snapshot()
	assert.Equal(t, false, snap["active"])
	assert.Equal(t, 2, snap["extra"])
}

func TestMergeNotifiesEveryKey(t *testing.T) {
	s, err := store.NewFS(t.TempDir())
	require.NoError(t, err)
	c, err := New(s, "info", map[string]any{"a": 1.0, "b": 2.0}, nil)
	require.NoError(t, err)

	count := 0
	c.SetHandler(func(string, any) (any, bool) { count++; return nil, false })
	require.NoError(t, c.Merge(map[string]any{"a": 5.0}))
	assert.Equal(t, 2, count)

	var out struct {
		A float64 `json:"a"`
		B float64 `json:"b"`
	}
	require.NoError(t, c.Decode(&out))
	assert.Equal(t, 5.0, out.A)
	assert.Equal(t, 2.0, out.B)
}

func TestUnreadableDocumentFallsBack(t *testing.T) {
	s, err := store.NewFS(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Write("info", []byte("{not json")))
	c, err := New(s, "info", map[string]any{"active": "A"}, nil)
	require.NoError(t, err)
	v, _ := c.Get("active")
	assert.Equal(t, "A", v)
}
