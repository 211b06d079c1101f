package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) getShards(w http.ResponseWriter, r *http.Request) {
	ids := s.reg.List()
	writeJSON(w, http.StatusOK, map[string]any{"total": len(ids), "ids": ids})
}

func (s *Server) getGlobals(w http.ResponseWriter, r *http.Request) {
	s.respond(w, func() (any, error) {
		return map[string]any{"variables": s.globals.Variables().Info()}, nil
	})
}

func (s *Server) getGlobalVariable(w http.ResponseWriter, r *http.Request) {
	s.respond(w, func() (any, error) {
		v, err := s.globals.Variables().Lookup(chi.URLParam(r, "variable"))
		if err != nil {
			return nil, err
		}
		return v.Dict(), nil
	})
}

func (s *Server) putGlobalVariable(w http.ResponseWriter, r *http.Request) {
	value, err := decodeValue(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.respond(w, func() (any, error) {
		v, err := s.globals.Variables().Set(chi.URLParam(r, "variable"), value)
		if err != nil {
			return nil, err
		}
		return v.Dict(), nil
	})
}
