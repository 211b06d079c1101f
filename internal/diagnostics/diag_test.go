package diagnostics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/hidden-shades/internal/layer"
)

func TestHubDeliversAndRetains(t *testing.T) {
	h := NewHub(2)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(Diagnostic{Severity: Info, Code: "A"})
	h.Publish(Diagnostic{Severity: Info, Code: "B"})
	h.Publish(Diagnostic{Severity: Warn, Code: "C"})

	assert.Equal(t, "A", (<-ch).Code)
	assert.Equal(t, "B", (<-ch).Code)
	got := <-ch
	assert.Equal(t, "C", got.Code)
	assert.False(t, got.Time.IsZero())

	recent := h.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "B", recent[0].Code)
	assert.Equal(t, "C", recent[1].Code)
}

func TestCancelClosesSubscription(t *testing.T) {
	h := NewHub(0)
	ch, cancel := h.Subscribe()
	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	h.Publish(Diagnostic{Code: "after"})
}

func TestFromFault(t *testing.T) {
	d := FromFault("A", &layer.FaultError{Layer: "3", Shard: "bounce", Err: errors.New("boom")})
	assert.Equal(t, Err, d.Severity)
	assert.Equal(t, "boom", d.Detail)
	assert.Equal(t, "3", d.Evidence["layer"])
	assert.Equal(t, "A", d.Evidence["stack"])
}
