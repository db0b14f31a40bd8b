package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/splitbill"
	"github.com/aretw0/splitbill/internal/logging"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIVersion is reported by GET /info.
const APIVersion = "1.0.0"

// maxBodySize bounds request bodies; documents are sent inline as base64.
const maxBodySize = 8 << 20

// Engine defines the interface for the splitbill session core.
type Engine interface {
	Handle(ctx context.Context, actorID string, ev domain.Event) (domain.Reply, error)
	Cancel(ctx context.Context, actorID string) (domain.Reply, error)
	Current(ctx context.Context, actorID string) (domain.Reply, error)
	Sessions(ctx context.Context) ([]string, error)
}

// Server serves the JSON API.
type Server struct {
	Engine  Engine
	Streams *StreamManager
	logger  *slog.Logger
	metrics http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics exposes the collectors of g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	server := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	if server.metrics != nil {
		r.Handle("/metrics", server.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/actors", server.ListActors)
		r.Route("/actors/{actor}", func(r chi.Router) {
			r.Get("/", server.GetActor)
			r.Delete("/", server.CancelActor)
			r.Post("/events", server.PostEvent)
			r.Get("/stream", server.SubscribeEvents)
		})
		r.Post("/settle", server.Settle)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "splitbill-http",
		"version":     strings.TrimSpace(splitbill.Version),
		"api_version": APIVersion,
	})
}

// ListActors handles GET /v1/actors.
func (s *Server) ListActors(w http.ResponseWriter, r *http.Request) {
	actors, err := s.Engine.Sessions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"actors": actors})
}

// GetActor handles GET /v1/actors/{actor}: the current prompt, without side effects.
func (s *Server) GetActor(w http.ResponseWriter, r *http.Request) {
	reply, err := s.Engine.Current(r.Context(), chi.URLParam(r, "actor"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, reply)
}

// CancelActor handles DELETE /v1/actors/{actor}.
func (s *Server) CancelActor(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actor")
	reply, err := s.Engine.Cancel(r.Context(), actor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish(actor, reply)
	s.writeJSON(w, http.StatusOK, reply)
}

// EventRequest is the body of POST /v1/actors/{actor}/events.
// Data carries photo or document bytes as base64.
type EventRequest struct {
	Type        domain.EventType `mapstructure:"type"`
	Action      domain.Action    `mapstructure:"action"`
	Text        string           `mapstructure:"text"`
	Item        int              `mapstructure:"item"`
	Participant string           `mapstructure:"participant"`
	Payer       string           `mapstructure:"payer"`
	Amount      string           `mapstructure:"amount"`
	Data        string           `mapstructure:"data"`
	FileName    string           `mapstructure:"file_name"`
}

// Event converts the request, inferring Type when it is omitted.
func (req EventRequest) Event() (domain.Event, error) {
	ev := domain.Event{
		Type:        req.Type,
		Action:      req.Action,
		Text:        req.Text,
		Item:        req.Item,
		Participant: req.Participant,
		Payer:       req.Payer,
		Amount:      req.Amount,
		FileName:    req.FileName,
	}
	if req.Data != "" {
		data, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			return domain.Event{}, fmt.Errorf("data is not valid base64: %w", err)
		}
		ev.Data = data
	}

	if ev.Type == "" {
		switch {
		case ev.Action != "":
			ev.Type = domain.EventAction
		case ev.FileName != "":
			ev.Type = domain.EventDocument
		case ev.Data != nil:
			ev.Type = domain.EventPhoto
		default:
			ev.Type = domain.EventText
		}
	}
	switch ev.Type {
	case domain.EventText, domain.EventPhoto, domain.EventDocument:
	case domain.EventAction:
		if ev.Action == "" {
			return domain.Event{}, errors.New("action events need an action")
		}
	default:
		return domain.Event{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return ev, nil
}

// decode reads a JSON object and maps it onto out, accepting numbers where strings are
// expected and the other way round.
func decode(r *http.Request, out any) error {
	var raw map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize)).Decode(&raw); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// PostEvent handles POST /v1/actors/{actor}/events.
func (s *Server) PostEvent(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actor")

	var req EventRequest
	if err := decode(r, &req); err != nil {
		s.logger.Warn("PostEvent: Invalid request body", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ev, err := req.Event()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reply, err := s.Engine.Handle(r.Context(), actor, ev)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.publish(actor, reply)
	s.writeJSON(w, http.StatusOK, reply)
}

// SettleResponse is the body returned by POST /v1/settle.
type SettleResponse struct {
	Settlement   domain.Settlement `json:"settlement"`
	Narrative    []string          `json:"narrative"`
	Verification []string          `json:"verification"`
	Export       string            `json:"export"`
	Chart        string            `json:"chart,omitempty"`
}

// Settle handles POST /v1/settle: a whole bill in, a settlement out.
func (s *Server) Settle(w http.ResponseWriter, r *http.Request) {
	var bill splitbill.Bill
	if err := decode(r, &bill); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rep, err := splitbill.SettleBill(bill)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := SettleResponse{
		Settlement:   rep.Settlement,
		Narrative:    rep.Narrative,
		Verification: rep.Verification,
		Export:       string(rep.Export),
	}
	if rep.Chart != nil {
		resp.Chart = rep.Chart.Mermaid()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) publish(actor string, reply domain.Reply) {
	msg, err := json.Marshal(reply)
	if err != nil {
		s.logger.Error("Reply encode failed", "err", err)
		return
	}
	s.Streams.Broadcast(actor, string(msg))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

// writeError maps domain errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var de *domain.Error
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, splitbill.ErrActorRequired):
		status = http.StatusBadRequest
	case errors.As(err, &de) && de.Kind == domain.KindInput:
		status = http.StatusBadRequest
	case errors.As(err, &de) && de.Kind == domain.KindValidation:
		status = http.StatusUnprocessableEntity
	}

	msg := err.Error()
	if de != nil {
		msg = de.UserMessage()
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // ActorID -> Set of Channels
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

func (sm *StreamManager) Subscribe(actorID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[actorID]; !ok {
		sm.subscribers[actorID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[actorID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[actorID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, actorID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(actorID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[actorID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
		}
	}
}

// SubscribeEvents handles GET /v1/actors/{actor}/stream (SSE): every reply sent to the
// actor, from any client. ?watch=ended or ?watch=rejected only forwards matching replies.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	actor := chi.URLParam(r, "actor")
	ch, cancel := s.Streams.Subscribe(actor)
	defer cancel()

	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !watched(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func watched(msg string, fields []string) bool {
	var reply domain.Reply
	if err := json.Unmarshal([]byte(msg), &reply); err != nil {
		return true
	}
	for _, field := range fields {
		switch strings.TrimSpace(field) {
		case "ended":
			if reply.Ended {
				return true
			}
		case "rejected":
			if reply.Rejected != "" {
				return true
			}
		case "artifacts":
			if len(reply.Artifacts) > 0 {
				return true
			}
		}
	}
	return false
}
