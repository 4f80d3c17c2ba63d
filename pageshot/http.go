// CLAUDE:SUMMARY HTTP API for the capture service: chi routes behind the shield middleware stack.
package pageshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/pageshot/safeurl"
	"github.com/hazyhaar/pageshot/shield"
)

type captureRequest struct {
	URL string `json:"url"`
}

// Routes returns the HTTP API:
//
//	GET    /healthz
//	GET    /api/progress
//	POST   /api/captures              {"url": "..."}
//	GET    /api/captures?limit=N
//	GET    /api/captures/{id}
//	GET    /api/captures/{id}/image
//	GET    /api/captures/{id}/markdown
//	DELETE /api/captures/{id}
//	GET    /api/events?limit=N
func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(s.logger, s.cfg.HTTP.MaxBody) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/progress", func(w http.ResponseWriter, r *http.Request) {
		p := s.Progress()
		writeJSON(w, http.StatusOK, map[string]any{
			"state": p.State.String(),
			"tiles": p.Tiles,
		})
	})

	r.Route("/api/captures", func(r chi.Router) {
		r.Post("/", s.handleCapture)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			recs, err := s.List(r.Context(), queryInt(r, "limit", 50))
			if err != nil {
				writeStoreError(w, err)
				return
			}
			if recs == nil {
				recs = []*Record{}
			}
			writeJSON(w, http.StatusOK, recs)
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			rec, ok := s.lookup(w, r)
			if !ok {
				return
			}
			writeJSON(w, http.StatusOK, rec)
		})
		r.Get("/{id}/image", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			data, mime, err := s.Image(r.Context(), id)
			if err != nil {
				writeStoreError(w, err)
				return
			}
			if data == nil {
				writeError(w, http.StatusNotFound, fmt.Errorf("capture %s not found", id))
				return
			}
			w.Header().Set("Content-Type", mime)
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			w.WriteHeader(http.StatusOK)
			w.Write(data)
		})
		r.Get("/{id}/markdown", func(w http.ResponseWriter, r *http.Request) {
			rec, ok := s.lookup(w, r)
			if !ok {
				return
			}
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(rec.Markdown))
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			ok, err := s.Delete(r.Context(), id)
			if err != nil {
				writeStoreError(w, err)
				return
			}
			if !ok {
				writeError(w, http.StatusNotFound, fmt.Errorf("capture %s not found", id))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	r.Get("/api/events", func(w http.ResponseWriter, r *http.Request) {
		evs, err := s.Events(r.Context(), queryInt(r, "limit", 50))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if evs == nil {
			evs = []*Event{}
		}
		writeJSON(w, http.StatusOK, evs)
	})

	return r
}

func (s *Service) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	res, err := s.Capture(r.Context(), req.URL)
	switch {
	case errors.Is(err, ErrBusy):
		writeError(w, http.StatusConflict, err)
		return
	case errors.Is(err, safeurl.ErrRejected):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusCreated, res.Record)
}

func (s *Service) lookup(w http.ResponseWriter, r *http.Request) (*Record, bool) {
	id := chi.URLParam(r, "id")
	rec, err := s.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("capture %s not found", id))
		return nil, false
	}
	return rec, true
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNoStore) {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
