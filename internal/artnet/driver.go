package artnet

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

type packetWriter interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
}

// Driver sends frames as consecutive universes to one node. The first send
// failure disables it for good.
type Driver struct {
	mu       sync.Mutex
	conn     packetWriter
	closer   func() error
	addr     net.Addr
	packet   *Packet
	base     uint16
	sequence uint8
	disabled bool
}

// Dial opens a UDP socket towards host:port.
func Dial(host string, port int, startUniverse uint16, physicalPort uint8) (*Driver, error) {
	if port == 0 {
		port = DefaultPort
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("artnet driver: resolve %s: %w", host, err)
	}
	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, fmt.Errorf("artnet driver: open socket: %w", err)
	}
	d := newDriver(conn, addr, startUniverse, physicalPort)
	d.closer = conn.Close
	return d, nil
}

func newDriver(w packetWriter, addr net.Addr, startUniverse uint16, physicalPort uint8) *Driver {
	d := &Driver{conn: w, addr: addr, packet: NewPacket(physicalPort), base: startUniverse}
	d.advance()
	return d
}

func (d *Driver) advance() {
	d.sequence++
	if d.sequence == 0 {
		d.sequence = 1
	}
	d.packet.SetSequence(d.sequence)
}

// Push sends channels as ceil(len/512) packets on consecutive universes
// starting at the base universe.
func (d *Driver) Push(channels []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disabled {
		return
	}
	universe := d.base
	for off := 0; off < len(channels); off += MaxChannels {
		end := off + MaxChannels
		if end > len(channels) {
			end = len(channels)
		}
		d.packet.SetUniverse(universe)
		_ = d.packet.SetData(channels[off:end])
		if _, err := d.conn.WriteTo(d.packet.Bytes(), d.addr); err != nil {
			log.Error().Err(err).Str("addr", d.addr.String()).Uint16("universe", universe).Msg("artnet driver disabled")
			d.disabled = true
			return
		}
		d.advance()
		universe++
	}
}

// Disabled reports whether a send has failed.
func (d *Driver) Disabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disabled
}

// Sequence is the number the next packet will carry.
func (d *Driver) Sequence() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sequence
}

func (d *Driver) String() string { return "artnet:" + d.addr.String() }

func (d *Driver) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}
