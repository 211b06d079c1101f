// Package diagnostics carries structured operator-facing reports from the
// scheduler and the control surface to websocket subscribers.
package diagnostics

import (
	"sync"
	"time"

	"github.com/coreman2200/hidden-shades/internal/layer"
)

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Time           time.Time      `json:"time"`
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// FromFault describes a shard failure.
func FromFault(stack string, f *layer.FaultError) Diagnostic {
	return Diagnostic{
		Severity: Err,
		Code:     "LAYER.FAULT",
		Summary:  "Shard failed while drawing a frame",
		Detail:   f.Err.Error(),
		LikelyCauses: []string{
			"a shard variable holds a value the shard cannot draw",
			"the shard depends on input that is missing",
		},
		SuggestedFixes: []string{"deactivate the layer", "reset the layer variables"},
		Evidence: map[string]any{
			"stack": stack,
			"layer": f.Layer,
			"shard": f.Shard,
		},
	}
}

// Hub fans diagnostics out to subscribers and keeps the most recent ones.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Diagnostic]struct{}
	recent []Diagnostic
	keep   int
	now    func() time.Time
}

// NewHub keeps the last keep diagnostics for late subscribers.
func NewHub(keep int) *Hub {
	if keep <= 0 {
		keep = 32
	}
	return &Hub{subs: map[chan Diagnostic]struct{}{}, keep: keep, now: time.Now}
}

// Publish stamps d and delivers it to every subscriber that has room.
// Slow subscribers miss messages rather than block the caller.
func (h *Hub) Publish(d Diagnostic) {
	if d.Time.IsZero() {
		d.Time = h.now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recent = append(h.recent, d)
	if len(h.recent) > h.keep {
		h.recent = h.recent[len(h.recent)-h.keep:]
	}
	for ch := range h.subs {
		select {
		case ch <- d:
		default:
		}
	}
}

// Subscribe returns a channel of new diagnostics and a cancel func that
// closes it.
func (h *Hub) Subscribe() (<-chan Diagnostic, func()) {
	ch := make(chan Diagnostic, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Recent returns the retained diagnostics, oldest first.
func (h *Hub) Recent() []Diagnostic {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Diagnostic(nil), h.recent...)
}
