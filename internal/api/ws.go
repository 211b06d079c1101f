package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/hidden-shades/internal/diagnostics"
	"github.com/coreman2200/hidden-shades/internal/render"
)

const writeWait = 200 * time.Millisecond

// client is one websocket peer. Messages are queued on send and written by
// a single goroutine; a full queue drops the message.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	return &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 4)}
}

func (c *client) offer(b []byte) bool {
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *client) writeLoop() {
	for b := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Str("session", c.id).Msg("websocket write")
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.Close()
}

// drain reads until the peer goes away.
func (c *client) drain() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

type topology struct {
	Session string            `json:"session"`
	Dim     render.Dimensions `json:"dim"`
	Driver  string            `json:"driver"`
	Stacks  []string          `json:"stacks"`
	Active  string            `json:"active"`
}

func (s *Server) topology(session string) []byte {
	var active string
	_ = s.run.Do(func() error {
		active = s.stacks.ActiveID()
		return nil
	})
	b, _ := json.Marshal(topology{
		Session: session,
		Dim:     s.dim,
		Driver:  s.driver,
		Stacks:  s.stacks.IDs(),
		Active:  active,
	})
	return b
}

func (s *Server) serveFrames(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(conn)
	c.offer(s.topology(c.id))
	s.mu.Lock()
	s.viewers[c] = struct{}{}
	s.mu.Unlock()
	go c.writeLoop()
	go func() {
		c.drain()
		s.mu.Lock()
		delete(s.viewers, c)
		s.mu.Unlock()
		close(c.send)
	}()
}

type frameMessage struct {
	T       int64  `json:"t"`
	FrameID uint64 `json:"frame_id"`
	W       int    `json:"w"`
	H       int    `json:"h"`
	RGB     []byte `json:"rgb"`
}

// PublishFrame sends the composited canvas to preview clients. Clients
// that are behind skip the frame.
func (s *Server) PublishFrame(c *render.Canvas) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameID++
	if len(s.viewers) == 0 {
		return
	}
	b, err := json.Marshal(frameMessage{
		T:       time.Now().UnixNano(),
		FrameID: s.frameID,
		W:       c.Dim.X,
		H:       c.Dim.Y,
		RGB:     c.RGB(nil),
	})
	if err != nil {
		return
	}
	for v := range s.viewers {
		v.offer(b)
	}
}

func (s *Server) serveDiag(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(conn)
	ch, cancel := s.diag.Subscribe()
	go c.writeLoop()
	for _, d := range s.diag.Recent() {
		b, _ := json.Marshal(d)
		c.offer(b)
	}
	done := make(chan struct{})
	go func() {
		c.drain()
		close(done)
	}()
	go func() {
		defer close(c.send)
		defer cancel()
		for {
			select {
			case d, ok := <-ch:
				if !ok {
					return
				}
				b, _ := json.Marshal(d)
				c.offer(b)
			case <-done:
				return
			}
		}
	}()
}

// ControlMessage is one request on the /control websocket.
type ControlMessage struct {
	ID       string         `json:"id,omitempty"`
	Op       string         `json:"op"`
	Stack    string         `json:"stack,omitempty"`
	Layer    string         `json:"layer,omitempty"`
	Variable string         `json:"variable,omitempty"`
	Standard bool           `json:"standard,omitempty"`
	Value    *Value         `json:"value,omitempty"`
	Index    *int           `json:"index,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
}

// ControlReply answers a ControlMessage.
type ControlReply struct {
	Session string `json:"session"`
	ID      string `json:"id,omitempty"`
	OK      bool   `json:"ok"`
	Status  int    `json:"status"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) serveControl(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	session := uuid.NewString()
	logger := log.With().Str("session", session).Logger()
	logger.Info().Str("remote", r.RemoteAddr).Msg("control session opened")
	_ = conn.WriteMessage(websocket.TextMessage, s.topology(session))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Info().Msg("control session closed")
			return
		}
		reply := ControlReply{Session: session}
		var msg ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			reply.Status, reply.Error = http.StatusBadRequest, err.Error()
		} else {
			reply.ID = msg.ID
			result, err := s.control(msg)
			if err != nil {
				reply.Status, reply.Error = statusFor(err), err.Error()
			} else {
				reply.OK, reply.Status, reply.Result = true, http.StatusOK, result
			}
		}
		b, _ := json.Marshal(reply)
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

// control applies msg under the run lock.
func (s *Server) control(msg ControlMessage) (any, error) {
	var out any
	err := s.run.Do(func() error {
		switch msg.Op {
		case "activate":
			if err := s.stacks.Activate(msg.Stack); err != nil {
				return err
			}
			out = map[string]string{"active": s.stacks.ActiveID()}
		case "switch":
			if err := s.stacks.Switch(); err != nil {
				return err
			}
			out = map[string]string{"active": s.stacks.ActiveID()}
		case "set_variable":
			if msg.Value == nil {
				return fmt.Errorf("%w: value is required", errBadRequest)
			}
			st, err := s.stacks.Stack(msg.Stack)
			if err != nil {
				return err
			}
			l, err := st.Layer(msg.Layer)
			if err != nil {
				return err
			}
			m := l.Variables()
			if msg.Standard {
				m = l.StandardVariables()
			}
			v, err := m.Set(msg.Variable, string(*msg.Value))
			if err != nil {
				return err
			}
			out = v.Dict()
		case "set_global":
			if msg.Value == nil {
				return fmt.Errorf("%w: value is required", errBadRequest)
			}
			v, err := s.globals.Variables().Set(msg.Variable, string(*msg.Value))
			if err != nil {
				return err
			}
			out = v.Dict()
		case "move_layer":
			if msg.Index == nil {
				return fmt.Errorf("%w: index is required", errBadRequest)
			}
			st, err := s.stacks.Stack(msg.Stack)
			if err != nil {
				return err
			}
			if err := st.MoveLayerToIndex(msg.Layer, *msg.Index); err != nil {
				return err
			}
			out = stackDict(st)
		case "set_config":
			st, err := s.stacks.Stack(msg.Stack)
			if err != nil {
				return err
			}
			l, err := st.Layer(msg.Layer)
			if err != nil {
				return err
			}
			if err := l.MergeInfo(msg.Config); err != nil {
				return err
			}
			out = layerDict(l)
		default:
			return fmt.Errorf("%w: unknown op %q", errBadRequest, msg.Op)
		}
		return nil
	})
	if err == nil && s.diag != nil {
		s.diag.Publish(diagnostics.Diagnostic{
			Severity: diagnostics.Info,
			Code:     "CONTROL.APPLIED",
			Summary:  "Control operation applied",
			Detail:   msg.Op,
			Evidence: map[string]any{"stack": msg.Stack, "layer": msg.Layer, "variable": msg.Variable},
		})
	}
	return out, err
}
