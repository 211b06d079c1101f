package artnet

import "fmt"

// Source serves channel bytes by universe. Unknown universes read as zero.
type Source interface {
	Byte(universe uint16, offset int) byte
}

// CoordinatorOptions tunes how a flat channel space is laid over universes.
type CoordinatorOptions struct {
	StartUniverse uint16
	// Universes overrides the sequential ids derived from StartUniverse.
	Universes   []uint16
	StartOffset int
}

// Coordinator maps a flat logical channel index onto registered universes.
type Coordinator struct {
	src       Source
	total     int
	offset    int
	universes []uint16
}

// NewCoordinator covers totalChannels with ceil(totalChannels/512) universes.
func NewCoordinator(src Source, totalChannels int, opts CoordinatorOptions) *Coordinator {
	c := &Coordinator{src: src, total: totalChannels, offset: opts.StartOffset}
	if opts.Universes != nil {
		c.universes = append([]uint16(nil), opts.Universes...)
		return c
	}
	n := (totalChannels + MaxChannels - 1) / MaxChannels
	c.universes = make([]uint16, n)
	for i := range c.universes {
		c.universes[i] = (opts.StartUniverse + uint16(i)) & UniverseMask
	}
	return c
}

func (c *Coordinator) Len() int { return c.total }

// Universes returns the ids this coordinator reads from.
func (c *Coordinator) Universes() []uint16 {
	return append([]uint16(nil), c.universes...)
}

// Locate resolves channel i to its universe slot and byte offset.
func (c *Coordinator) Locate(i int) (slot int, universe uint16, offset int, err error) {
	index := i + c.offset
	if i < 0 || index < 0 {
		return 0, 0, 0, fmt.Errorf("channel %d out of range", i)
	}
	slot = index / MaxChannels
	if slot >= len(c.universes) {
		return 0, 0, 0, fmt.Errorf("channel %d beyond %d universes", i, len(c.universes))
	}
	return slot, c.universes[slot], index % MaxChannels, nil
}

// At returns the current value of channel i, or zero when out of range.
func (c *Coordinator) At(i int) byte {
	_, u, off, err := c.Locate(i)
	if err != nil {
		return 0
	}
	return c.src.Byte(u, off)
}
