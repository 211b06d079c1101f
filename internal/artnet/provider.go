package artnet

import (
	"context"
	"errors"
	"net"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/hidden-shades/internal/store"
	"github.com/coreman2200/hidden-shades/internal/variables"
)

// ProviderConfig bounds how much time the receive loop takes when idle.
type ProviderConfig struct {
	RateLimitHz float64
	PollTimeout time.Duration
}

func (c ProviderConfig) withDefaults() ProviderConfig {
	if c.RateLimitHz <= 0 {
		c.RateLimitHz = 30
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 5 * time.Millisecond
	}
	return c
}

// Provider receives ArtDMX packets and keeps the latest packet for every
// registered universe.
type Provider struct {
	conn        net.PacketConn
	rateLimit   time.Duration
	pollTimeout time.Duration
	vars        *variables.Manager

	mu        sync.RWMutex
	universes map[uint16]*Packet
	sender    net.Addr
	received  uint64
}

// NewProvider reads from conn. Its private variables (the "host:port" the
// registration datagram is sent to) persist under s.
func NewProvider(conn net.PacketConn, s store.Store, cfg ProviderConfig) (*Provider, error) {
	cfg = cfg.withDefaults()
	p := &Provider{
		conn:        conn,
		rateLimit:   time.Duration(float64(time.Second) / cfg.RateLimitHz),
		pollTimeout: cfg.PollTimeout,
		vars:        variables.NewManager(store.Sub(s, "private_vars")),
		universes:   make(map[uint16]*Packet),
	}
	hostPort, err := variables.NewString("host:port", "127.0.0.1:6454",
		variables.WithDescription("address the provider registers with"),
		variables.WithResponders(variables.ResponderFunc(p.handleHostPort)))
	if err != nil {
		return nil, err
	}
	if err := p.vars.Declare(hostPort); err != nil {
		return nil, err
	}
	p.vars.Initialize()
	return p, nil
}

func (p *Provider) handleHostPort(v variables.Variable) {
	addr, err := net.ResolveUDPAddr("udp", v.Encoded())
	if err != nil {
		log.Warn().Err(err).Str("addr", v.Encoded()).Msg("artnet provider: resolve sender")
		return
	}
	p.mu.Lock()
	p.sender = addr
	p.mu.Unlock()
}

// Variables exposes the private variable manager.
func (p *Provider) Variables() *variables.Manager { return p.vars }

// RegisterUniverses creates empty packets for ids not yet tracked.
func (p *Provider) RegisterUniverses(ids ...uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		id &= UniverseMask
		if _, ok := p.universes[id]; !ok {
			p.universes[id] = NewPacket(0)
		}
	}
}

// Universes lists registered ids in ascending order.
func (p *Provider) Universes() []uint16 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]uint16, 0, len(p.universes))
	for id := range p.universes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Byte reads one channel of a universe's latest packet.
func (p *Provider) Byte(universe uint16, offset int) byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pkt, ok := p.universes[universe]
	if !ok || offset < 0 || offset >= pkt.Length() {
		return 0
	}
	return pkt.Data()[offset]
}

// Received counts ingested packets.
func (p *Provider) Received() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.received
}

// Ingest stores a datagram if its universe is registered.
func (p *Provider) Ingest(b []byte) (bool, error) {
	if err := Check(b); err != nil {
		return false, err
	}
	u := UniverseOf(b)
	p.mu.Lock()
	defer p.mu.Unlock()
	pkt, ok := p.universes[u]
	if !ok {
		return false, nil
	}
	if err := pkt.Ingest(b); err != nil {
		return false, err
	}
	p.received++
	return true, nil
}

// Run registers with the sender and then ingests packets until ctx ends.
// When nothing arrives within the poll timeout the loop sleeps for one
// rate limit period before polling again.
func (p *Provider) Run(ctx context.Context) error {
	p.mu.RLock()
	sender := p.sender
	p.mu.RUnlock()
	if sender != nil {
		if _, err := p.conn.WriteTo([]byte("add"), sender); err != nil {
			log.Warn().Err(err).Str("addr", sender.String()).Msg("artnet provider: register")
		}
	}

	buf := make([]byte, PacketSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := p.conn.SetReadDeadline(time.Now().Add(p.pollTimeout)); err != nil {
			return err
		}
		n, _, err := p.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) || isTimeout(err) {
				if !sleep(ctx, p.rateLimit) {
					return nil
				}
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn().Err(err).Msg("artnet provider: read")
			if !sleep(ctx, p.rateLimit) {
				return nil
			}
			continue
		}
		if _, err := p.Ingest(buf[:n]); err != nil {
			log.Debug().Err(err).Int("bytes", n).Msg("artnet provider: dropped datagram")
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
