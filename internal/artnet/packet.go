// Package artnet implements the ArtDMX wire format and the send and
// receive endpoints built on it.
package artnet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	HeaderSize      = 18
	MaxChannels     = 512
	PacketSize      = HeaderSize + MaxChannels
	OpDMX           = 0x5000
	ProtocolVersion = 14
	DefaultPort     = 6454
	UniverseMask    = 0x7FFF
)

var (
	ErrShortPacket = errors.New("artnet: packet shorter than header")
	ErrBadHeader   = errors.New("artnet: missing Art-Net header")
)

var header = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0}

// Packet is one reusable ArtDMX frame. Every field lives in the backing
// buffer, so accessors read and write bytes directly.
type Packet struct {
	buf [PacketSize]byte
}

// NewPacket returns an empty DMX packet for physicalPort.
func NewPacket(physicalPort uint8) *Packet {
	p := &Packet{}
	copy(p.buf[0:8], header[:])
	binary.LittleEndian.PutUint16(p.buf[8:10], OpDMX)
	binary.BigEndian.PutUint16(p.buf[10:12], ProtocolVersion)
	p.buf[13] = physicalPort
	return p
}

func (p *Packet) Opcode() uint16          { return binary.LittleEndian.Uint16(p.buf[8:10]) }
func (p *Packet) ProtocolVersion() uint16 { return binary.BigEndian.Uint16(p.buf[10:12]) }
func (p *Packet) Sequence() uint8         { return p.buf[12] }
func (p *Packet) SetSequence(s uint8)     { p.buf[12] = s }
func (p *Packet) PhysicalPort() uint8     { return p.buf[13] }
func (p *Packet) SetPhysicalPort(n uint8) { p.buf[13] = n }

// Universe is the 15 bit port address.
func (p *Packet) Universe() uint16 { return binary.LittleEndian.Uint16(p.buf[14:16]) & UniverseMask }

func (p *Packet) SetUniverse(u uint16) {
	binary.LittleEndian.PutUint16(p.buf[14:16], u&UniverseMask)
}

// Length is the payload size, never more than MaxChannels.
func (p *Packet) Length() int {
	n := int(binary.BigEndian.Uint16(p.buf[16:18]))
	if n > MaxChannels {
		n = MaxChannels
	}
	return n
}

// Data aliases the payload.
func (p *Packet) Data() []byte { return p.buf[HeaderSize : HeaderSize+p.Length()] }

// SetData copies b into the payload and sets Length to len(b).
func (p *Packet) SetData(b []byte) error {
	if len(b) > MaxChannels {
		return fmt.Errorf("artnet: %d channels exceeds %d", len(b), MaxChannels)
	}
	copy(p.buf[HeaderSize:], b)
	binary.BigEndian.PutUint16(p.buf[16:18], uint16(len(b)))
	return nil
}

// Bytes is the header plus the current payload, ready to send.
func (p *Packet) Bytes() []byte { return p.buf[:HeaderSize+p.Length()] }

// Buffer is the whole fixed size backing array.
func (p *Packet) Buffer() []byte { return p.buf[:] }

// Ingest overwrites the packet with a received datagram. Bytes past the
// datagram are zeroed.
func (p *Packet) Ingest(b []byte) error {
	if err := Check(b); err != nil {
		return err
	}
	n := copy(p.buf[:], b)
	for i := n; i < PacketSize; i++ {
		p.buf[i] = 0
	}
	return nil
}

// Check validates the fixed header of a datagram.
func Check(b []byte) error {
	if len(b) < HeaderSize {
		return ErrShortPacket
	}
	if !bytes.Equal(b[0:8], header[:]) {
		return ErrBadHeader
	}
	return nil
}

// UniverseOf reads the universe of a checked datagram.
func UniverseOf(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b[14:16]) & UniverseMask
}
