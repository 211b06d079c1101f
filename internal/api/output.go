package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coreman2200/hidden-shades/internal/layer"
	"github.com/coreman2200/hidden-shades/internal/stack"
	"github.com/coreman2200/hidden-shades/internal/variables"
)

type layersInfo struct {
	Total int      `json:"total"`
	IDs   []string `json:"ids"`
}

type stackResponse struct {
	ID     string     `json:"id"`
	Layers layersInfo `json:"layers"`
}

func stackDict(st *stack.Stack) stackResponse {
	ids := st.IDs()
	return stackResponse{ID: st.ID(), Layers: layersInfo{Total: len(ids), IDs: ids}}
}

type layerResponse struct {
	Variables         variables.Info `json:"variables"`
	StandardVariables variables.Info `json:"standardVariables"`
	Config            layer.Info     `json:"config"`
}

func layerDict(l *layer.Layer) layerResponse {
	return layerResponse{
		Variables:         l.Variables().Info(),
		StandardVariables: l.StandardVariables().Info(),
		Config:            l.Info(),
	}
}

// Value is a serialized variable value. Clients may send the encoded
// string or the equivalent JSON literal (number, bool, object).
type Value string

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	}
	*v = Value(b)
	return nil
}

// LayerRequest describes a layer to add.
type LayerRequest struct {
	Config            map[string]any   `json:"config"`
	Variables         map[string]Value `json:"variables"`
	StandardVariables map[string]Value `json:"standardVariables"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func encoded(m map[string]Value) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = string(v)
	}
	return out
}

func (s *Server) stack(r *http.Request) (*stack.Stack, error) {
	return s.stacks.Stack(chi.URLParam(r, "stack"))
}

func (s *Server) layer(r *http.Request) (*layer.Layer, error) {
	st, err := s.stack(r)
	if err != nil {
		return nil, err
	}
	return st.Layer(chi.URLParam(r, "layer"))
}

// addLayer creates the layer and applies its initial values. A layer whose
// values are rejected is removed again.
func addLayer(st *stack.Stack, req LayerRequest) (*layer.Layer, error) {
	cfg := req.Config
	if cfg == nil {
		cfg = map[string]any{}
	}
	l, err := st.Add(cfg)
	if err != nil {
		return nil, err
	}
	err = l.Variables().SetAll(encoded(req.Variables))
	if err == nil {
		err = l.StandardVariables().SetAll(encoded(req.StandardVariables))
	}
	if err != nil {
		_ = st.RemoveLayerByID(l.ID())
		return nil, err
	}
	return l, nil
}

func (s *Server) getOutput(w http.ResponseWriter, r *http.Request) {
	s.respond(w, func() (any, error) {
		return map[string]any{
			"stacks": map[string]any{
				"total":  len(s.stacks.IDs()),
				"ids":    s.stacks.IDs(),
				"active": s.stacks.ActiveID(),
			},
		}, nil
	})
}

func (s *Server) getStack(w http.ResponseWriter, r *http.Request) {
	s.respond(w, func() (any, error) {
		st, err := s.stack(r)
		if err != nil {
			return nil, err
		}
		return stackDict(st), nil
	})
}

func (s *Server) activateStack(w http.ResponseWriter, r *http.Request) {
	s.respond(w, func() (any, error) {
		id := chi.URLParam(r, "stack")
		if err := s.stacks.Activate(id); err != nil {
			return nil, err
		}
		st, err := s.stacks.Stack(id)
		if err != nil {
			return nil, err
		}
		return stackDict(st), nil
	})
}

func (s *Server) clearLayers(w http.ResponseWriter, r *http.Request) {
	s.respond(w, func() (any, error) {
		st, err := s.stack(r)
		if err != nil {
			return nil, err
		}
		if err := st.ClearLayers(); err != nil {
			return nil, err
		}
		return stackDict(st), nil
	})
}

func (s *Server) addLayers(w http.ResponseWriter, r *http.Request) {
	var reqs []LayerRequest
	if err := decode(r, &reqs); err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, func() (any, error) {
		st, err := s.stack(r)
		if err != nil {
			return nil, err
		}
		for _, req := range reqs {
			if _, err := addLayer(st, req); err != nil {
				return nil, err
			}
		}
		return stackDict(st), nil
	})
}

func (s *Server) addLayer(w http.ResponseWriter, r *http.Request) {
	var req LayerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, func() (any, error) {
		st, err := s.stack(r)
		if err != nil {
			return nil, err
		}
		l, err := addLayer(st, req)
		if err != nil {
			return nil, err
		}
		return layerDict(l), nil
	})
}

func (s *Server) getLayer(w http.ResponseWriter, r *http.Request) {
	s.respond(w, func() (any, error) {
		l, err := s.layer(r)
		if err != nil {
			return nil, err
		}
		return layerDict(l), nil
	})
}

func (s *Server) deleteLayer(w http.ResponseWriter, r *http.Request) {
	s.respond(w, func() (any, error) {
		st, err := s.stack(r)
		if err != nil {
			return nil, err
		}
		if err := st.RemoveLayerByID(chi.URLParam(r, "layer")); err != nil {
			return nil, err
		}
		return map[string]string{"status": "ok"}, nil
	})
}

func (s *Server) putLayerConfig(w http.ResponseWriter, r *http.Request) {
	var cfg map[string]any
	if err := decode(r, &cfg); err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, func() (any, error) {
		l, err := s.layer(r)
		if err != nil {
			return nil, err
		}
		if err := l.MergeInfo(cfg); err != nil {
			return nil, err
		}
		return layerDict(l), nil
	})
}

func (s *Server) putLayerIndex(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Index == nil {
		writeError(w, fmt.Errorf("%w: index is required", errBadRequest))
		return
	}
	s.respond(w, func() (any, error) {
		st, err := s.stack(r)
		if err != nil {
			return nil, err
		}
		if err := st.MoveLayerToIndex(chi.URLParam(r, "layer"), *req.Index); err != nil {
			return nil, err
		}
		return stackDict(st), nil
	})
}

func (s *Server) layerVars(r *http.Request, standard bool) (*variables.Manager, error) {
	l, err := s.layer(r)
	if err != nil {
		return nil, err
	}
	if standard {
		return l.StandardVariables(), nil
	}
	return l.Variables(), nil
}

func (s *Server) getLayerVariable(standard bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, func() (any, error) {
			m, err := s.layerVars(r, standard)
			if err != nil {
				return nil, err
			}
			v, err := m.Lookup(chi.URLParam(r, "variable"))
			if err != nil {
				return nil, err
			}
			return v.Dict(), nil
		})
	}
}

type valueRequest struct {
	Value *Value `json:"value"`
}

func decodeValue(r *http.Request) (string, error) {
	var req valueRequest
	if err := decode(r, &req); err != nil {
		return "", err
	}
	if req.Value == nil {
		return "", fmt.Errorf("%w: value is required", errBadRequest)
	}
	return string(*req.Value), nil
}

func (s *Server) putLayerVariable(standard bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value, err := decodeValue(r)
		if err != nil {
			writeError(w, err)
			return
		}
		s.respond(w, func() (any, error) {
			m, err := s.layerVars(r, standard)
			if err != nil {
				return nil, err
			}
			v, err := m.Set(chi.URLParam(r, "variable"), value)
			if err != nil {
				return nil, err
			}
			return v.Dict(), nil
		})
	}
}
