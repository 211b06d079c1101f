package engine

import "sync"

// FramerateHistory is a moving average over the last n frame periods.
type FramerateHistory struct {
	mu      sync.Mutex
	periods []float64
	next    int
	filled  int
}

func NewFramerateHistory(n int) *FramerateHistory {
	if n <= 0 {
		n = 10
	}
	return &FramerateHistory{periods: make([]float64, n)}
}

// RecordPeriodMS adds one frame period in milliseconds.
func (h *FramerateHistory) RecordPeriodMS(ms float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.periods[h.next] = ms
	h.next = (h.next + 1) % len(h.periods)
	if h.filled < len(h.periods) {
		h.filled++
	}
}

// Average returns frames per second, or 0 before any period was recorded.
func (h *FramerateHistory) Average() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.filled == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < h.filled; i++ {
		sum += h.periods[i]
	}
	if sum <= 0 {
		return 0
	}
	return 1000 / (sum / float64(h.filled))
}
