// Package api exposes an evaluated workspace over a read-only HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"phaengine/app"
	"phaengine/domain/core"
	"phaengine/internal"
	apperrors "phaengine/internal/errors"
	"phaengine/ports"
)

// Server routes HTTP requests to a ReaderPort.
type Server struct {
	reader  ports.ReaderPort
	metrics *Metrics
	log     *internal.Logger
	router  *chi.Mux
}

// NewServer creates the router. A nil metrics disables /metrics.
func NewServer(reader ports.ReaderPort, metrics *Metrics, log *internal.Logger) *Server {
	if log == nil {
		log = internal.NewDefaultLogger()
	}
	s := &Server{reader: reader, metrics: metrics, log: log, router: chi.NewRouter()}
	s.setupRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
	if s.metrics != nil {
		s.router.Use(s.metrics.instrument)
		s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.router.Get("/report", s.handleReport)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/receptors", s.handleReceptors)
		r.Get("/units", s.handleUnits)
		r.Get("/convert", s.handleConvert)
		r.Get("/quantities", s.handleListQuantities)
		r.Get("/quantities/{id}", s.handleGetQuantity)
		r.Get("/quantities/{id}/value", s.handleValue)
		r.Get("/snapshot", s.handleSnapshot)
	})
}

func (s *Server) handleReceptors(w http.ResponseWriter, r *http.Request) {
	out, err := s.reader.Receptors(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	out, err := s.reader.Units(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	value, err := strconv.ParseFloat(q.Get("value"), 64)
	if err != nil {
		s.writeError(w, apperrors.InvalidInput("value must be a number"))
		return
	}
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		s.writeError(w, apperrors.InvalidInput("from and to are required"))
		return
	}
	out, err := s.reader.Convert(r.Context(), value, from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"value": out, "unit": to})
}

func (s *Server) handleListQuantities(w http.ResponseWriter, r *http.Request) {
	out, err := s.reader.ListQuantities(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetQuantity(w http.ResponseWriter, r *http.Request) {
	id := core.QuantityID(chi.URLParam(r, "id"))
	out, err := s.reader.GetQuantity(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.observe("quantity", out.Values...)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleValue(w http.ResponseWriter, r *http.Request) {
	id := core.QuantityID(chi.URLParam(r, "id"))
	scenario := core.ReceptorID(r.URL.Query().Get("scenario"))
	out, err := s.reader.Evaluate(r.Context(), id, scenario)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.observe("value", *out)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.reader.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.observeSnapshot(snap)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.reader.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.observeSnapshot(snap)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(app.RenderHTML(snap))
}

func (s *Server) observeSnapshot(snap *ports.Snapshot) {
	if s.metrics == nil {
		return
	}
	for _, row := range snap.Rows {
		s.metrics.observe("snapshot", row.Values...)
	}
}

// statusFor maps engine and application errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case core.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoConversionFactor):
		return http.StatusUnprocessableEntity
	case apperrors.GetCode(err) == apperrors.CodeInvalidInput, core.IsContractError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed: %v", err)
	} else {
		s.log.Debug("request rejected: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
