// Package led sends rendered frames to physical strips or to a console
// stand-in.
package led

import "sync"

// Driver abstracts an LED output sink.
type Driver interface {
	// Write pushes one frame in strip order. len(rgb) must be 3*N.
	Write(rgb []byte) error
	// Close releases resources.
	Close() error
}

// Sim is a Driver that keeps the last frame in memory.
type Sim struct {
	mu     sync.Mutex
	last   []byte
	frames uint64
}

func NewSim() *Sim { return &Sim{} }

func (s *Sim) Write(rgb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = append(s.last[:0], rgb...)
	s.frames++
	return nil
}

// Last returns a copy of the most recent frame.
func (s *Sim) Last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.last...)
}

// Frames counts writes.
func (s *Sim) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *Sim) Close() error { return nil }
