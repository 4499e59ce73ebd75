package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/notamwatch/internal/kit"
	"github.com/hazyhaar/notamwatch/internal/shield"
)

// Handler returns the router with the default middleware stack.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(s.logger) {
		r.Use(mw)
	}
	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP mounts the API routes on r.
func (s *Service) RegisterHTTP(r chi.Router) {
	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	list := s.wrap("notams_list", s.listEndpoint)
	r.Get("/api/notams", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := &ListRequest{
			Date:   q.Get("date"),
			ICAO:   q["icao"],
			Type:   q.Get("type"),
			Region: q.Get("region"),
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, errors.New("api: limit must be a non-negative integer"))
				return
			}
			req.Limit = n
		}
		serve(w, r, list, req)
	})

	get := s.wrap("notams_get", s.getEndpoint)
	r.Get("/api/notam", func(w http.ResponseWriter, r *http.Request) {
		serve(w, r, get, &GetRequest{ID: r.URL.Query().Get("id")})
	})
	r.Get("/api/notams/{number}/{year}", func(w http.ResponseWriter, r *http.Request) {
		serve(w, r, get, &GetRequest{ID: chi.URLParam(r, "number") + "/" + chi.URLParam(r, "year")})
	})

	stats := s.wrap("notams_stats", s.statsEndpoint)
	r.Get("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		req := &StatsRequest{}
		if v, err := strconv.Atoi(r.URL.Query().Get("top")); err == nil {
			req.Top = v
		}
		serve(w, r, stats, req)
	})

	runs := s.wrap("runs_list", s.runsEndpoint)
	r.Get("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		req := &RunsRequest{}
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
			req.Limit = v
		}
		serve(w, r, runs, req)
	})

	run := s.wrap("runs_get", s.runEndpoint)
	r.Get("/api/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		serve(w, r, run, &RunRequest{ID: chi.URLParam(r, "id")})
	})
}

func serve(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) {
	resp, err := ep(r.Context(), req)
	if err != nil {
		code := statusOf(err)
		if code == http.StatusInternalServerError {
			shield.GetLogger(r.Context()).Error("api: request failed", "error", err)
		}
		writeError(w, code, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoLedger):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
