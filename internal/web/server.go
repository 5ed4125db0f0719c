// Package web serves the retrieval form, the retrieval submission endpoint,
// and the event webhook.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gotemplate "github.com/goliatone/go-template"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sjkp/locker/internal/ingest"
	bunrepo "github.com/sjkp/locker/internal/storage/bun"
	"github.com/sjkp/locker/pkg/interfaces/logger"
	"github.com/sjkp/locker/pkg/secrets"
)

const formPage = `<html>
    <body>
        <h1>Retrieve Your Secret</h1>
        <form method="POST" action="/retrievepost">
            <label for="secretName">Secret Name:</label>
            <input type="text" id="secretName" name="secretName" required />
            <button type="submit">Retrieve</button>
        </form>
    </body>
</html>`

// The stored value is rendered verbatim. Values containing markup will be
// interpreted by the browser; see the hardening notes in DESIGN.md.
const resultTemplate = `<html>
    <body>
        <h1>Secret Retrieved</h1>
        <p>Secret Value: {{ value|safe }}</p>
    </body>
</html>`

const errorPage = `<html>
    <body>
        <h1>Error</h1>
        <p>Could not retrieve the secret. Please try again later.</p>
    </body>
</html>`

// Deliveries lists recent processed outcomes for the inspection endpoint.
type Deliveries interface {
	Recent(ctx context.Context, limit int) ([]bunrepo.DeliveryRecord, error)
}

// Dependencies bundles the collaborators required by the server. Ingest and
// Deliveries are optional; their routes are omitted when nil.
type Dependencies struct {
	Resolver   *secrets.Resolver
	Ingest     *ingest.Handler
	Deliveries Deliveries
	Logger     logger.Logger
	Metrics    bool
}

// Server exposes the HTTP surface.
type Server struct {
	resolver   *secrets.Resolver
	ingest     *ingest.Handler
	deliveries Deliveries
	engine     *gotemplate.Engine
	logger     logger.Logger
	metrics    bool
}

// New constructs the server.
func New(deps Dependencies) (*Server, error) {
	if deps.Resolver == nil {
		return nil, errors.New("web: resolver is required")
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	engine, err := gotemplate.NewRenderer(gotemplate.WithBaseDir("."))
	if err != nil {
		return nil, err
	}
	return &Server{
		resolver:   deps.Resolver,
		ingest:     deps.Ingest,
		deliveries: deps.Deliveries,
		engine:     engine,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}, nil
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/retrieve", s.handleRetrieveForm)
	r.Post("/retrievepost", s.handleRetrieveSubmit)

	if s.ingest != nil {
		r.Post("/events", s.handleEvent)
	}
	if s.deliveries != nil {
		r.Get("/deliveries", s.handleDeliveries)
	}
	if s.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

func (s *Server) handleRetrieveForm(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(formPage))
}

func (s *Server) handleRetrieveSubmit(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		http.Error(w, "Invalid request body.", http.StatusBadRequest)
		return
	}
	name := req.PostFormValue("secretName")
	if name == "" {
		http.Error(w, "Secret name is required.", http.StatusBadRequest)
		return
	}

	record, err := s.resolver.Resolve(req.Context(), name)
	if err != nil {
		// Internal causes stay out of the response body.
		s.logger.Error("secret retrieval failed", logger.F("secret", name), logger.F("error", err))
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(errorPage))
		return
	}

	page, err := s.engine.RenderString(resultTemplate, map[string]any{"value": record.Value})
	if err != nil {
		s.logger.Error("result render failed", logger.F("error", err))
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(errorPage))
		return
	}

	s.logger.Info("secret retrieved",
		logger.F("secret", name),
		logger.F("value", secrets.MaskValue(record.Value)),
	)
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

// handleEvent runs the ingestion workflow synchronously. The handler swallows
// processing failures, so the webhook always acknowledges receipt.
func (s *Server) handleEvent(w http.ResponseWriter, req *http.Request) {
	payload, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "could not read body", http.StatusBadRequest)
		return
	}
	s.ingest.Handle(req.Context(), payload)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleDeliveries(w http.ResponseWriter, req *http.Request) {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	records, err := s.deliveries.Recent(req.Context(), limit)
	if err != nil {
		http.Error(w, "could not list deliveries", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}
