package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	recharge "github.com/Tarunvoff/mobile-backend"
	"github.com/Tarunvoff/mobile-backend/recovery"
)

// ownerHeader carries the authenticated account id, set by the gateway in
// front of this service.
const ownerHeader = "X-Owner-ID"

// Server exposes the recharge engine over a JSON HTTP API.
type Server struct {
	addr       string
	engine     *recharge.Engine
	catalog    recharge.Catalog
	recovery   *recovery.Worker
	eventStore *EventStore
	mux        *http.ServeMux
	server     *http.Server

	mu      sync.Mutex
	running bool
}

// ServerOption is a function that configures the Server.
type ServerOption func(*Server)

// WithAddr sets the server listen address.
func WithAddr(addr string) ServerOption {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithEngine sets the recharge engine.
func WithEngine(e *recharge.Engine) ServerOption {
	return func(s *Server) {
		s.engine = e
	}
}

// WithCatalog sets the operator catalog.
func WithCatalog(c recharge.Catalog) ServerOption {
	return func(s *Server) {
		s.catalog = c
	}
}

// WithRecovery sets the recovery worker for the stats endpoint.
func WithRecovery(w *recovery.Worker) ServerOption {
	return func(s *Server) {
		s.recovery = w
	}
}

// WithEventStore sets the event store backing the event log endpoint.
func WithEventStore(es *EventStore) ServerOption {
	return func(s *Server) {
		s.eventStore = es
	}
}

// NewServer creates a new Server with the given options.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		addr: ":8080",
		mux:  http.NewServeMux(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Recharge operations
	s.mux.HandleFunc("POST /api/recharges", s.handleInitiate)
	s.mux.HandleFunc("POST /api/recharges/{txID}/retry", s.handleRetry)
	s.mux.HandleFunc("GET /api/recharges/{txID}", s.handleGetTransaction)
	s.mux.HandleFunc("GET /api/recharges", s.handleListTransactions)
	s.mux.HandleFunc("GET /api/summary", s.handleSummary)

	// Catalog
	s.mux.HandleFunc("GET /api/operators", s.handleListOperators)

	// Observability
	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("GET /api/recovery/stats", s.handleRecoveryStats)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the underlying HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the server and blocks until it exits.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
	}

	return s.server.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	return s.server.Shutdown(ctx)
}

// ============================================================================
// Handlers
// ============================================================================

type initiateRequest struct {
	ServiceType   string  `json:"serviceType"`
	Identifier    string  `json:"identifier"`
	OperatorCode  string  `json:"operatorCode"`
	PlanID        string  `json:"planId,omitempty"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
}

type txResultResponse struct {
	TransactionID       string  `json:"transactionId"`
	ParentTransactionID string  `json:"parentTransactionId,omitempty"`
	Status              string  `json:"status"`
	FailureReason       string  `json:"failureReason,omitempty"`
	Amount              float64 `json:"amount"`
	EstimatedResolution string  `json:"estimatedResolution,omitempty"`
}

func toResultResponse(res *recharge.TxResult) txResultResponse {
	out := txResultResponse{
		TransactionID:       res.TransactionID,
		ParentTransactionID: res.ParentTransactionID,
		Status:              string(res.Status),
		FailureReason:       res.FailureReason,
		Amount:              res.Amount,
	}
	if res.EstimatedResolution > 0 {
		out.EstimatedResolution = res.EstimatedResolution.String()
	}
	return out
}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFrom(r)
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "owner id required")
		return
	}

	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.engine.Initiate(r.Context(), recharge.InitiateRequest{
		OwnerID:       ownerID,
		ServiceType:   recharge.ServiceType(req.ServiceType),
		Identifier:    req.Identifier,
		OperatorCode:  req.OperatorCode,
		PlanID:        req.PlanID,
		Amount:        req.Amount,
		PaymentMethod: recharge.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResultResponse(res))
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFrom(r)
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "owner id required")
		return
	}

	txID := r.PathValue("txID")
	res, err := s.engine.Retry(r.Context(), txID, ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResultResponse(res))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFrom(r)
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "owner id required")
		return
	}

	tx, err := s.engine.Status(r.Context(), r.PathValue("txID"), ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFrom(r)
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "owner id required")
		return
	}

	filter := recharge.NewTxFilter(ownerID)

	q := r.URL.Query()
	if raw := q.Get("status"); raw != "" {
		status, ok := recharge.ParseStatus(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", raw))
			return
		}
		filter.WithStatus(status)
	}
	if svc := q.Get("serviceType"); svc != "" {
		filter.WithServiceType(recharge.ServiceType(svc))
	}
	if id := q.Get("identifier"); id != "" {
		filter.WithIdentifier(id)
	}
	if txID := q.Get("transactionId"); txID != "" {
		filter.WithTransactionID(txID)
	}
	limit := intParam(q.Get("limit"), filter.Limit)
	offset := intParam(q.Get("offset"), filter.Offset)
	filter.WithPagination(limit, offset)

	txs, total, err := s.engine.History(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"total":        total,
		"limit":        filter.Limit,
		"offset":       filter.Offset,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFrom(r)
	if ownerID == "" {
		writeError(w, http.StatusUnauthorized, "owner id required")
		return
	}

	summary, err := s.engine.AccountSummary(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListOperators(w http.ResponseWriter, r *http.Request) {
	serviceType := recharge.ServiceType(r.URL.Query().Get("serviceType"))

	operators, err := s.catalog.ListOperators(r.Context(), serviceType)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"operators": operators})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.eventStore == nil {
		writeError(w, http.StatusNotFound, "event log disabled")
		return
	}

	q := r.URL.Query()
	filter := EventFilter{
		Type:   q.Get("type"),
		TxID:   q.Get("transactionId"),
		Limit:  intParam(q.Get("limit"), 100),
		Offset: intParam(q.Get("offset"), 0),
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": s.eventStore.List(filter),
		"total":  s.eventStore.Count(filter),
	})
}

func (s *Server) handleRecoveryStats(w http.ResponseWriter, r *http.Request) {
	if s.recovery == nil {
		writeError(w, http.StatusNotFound, "recovery worker disabled")
		return
	}

	stats := s.recovery.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"scanned":   stats.ScannedCount,
		"rearmed":   stats.RearmedCount,
		"failed":    stats.FailedCount,
		"isRunning": stats.IsRunning,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ============================================================================
// Helpers
// ============================================================================

func ownerFrom(r *http.Request) string {
	if owner := r.Header.Get(ownerHeader); owner != "" {
		return owner
	}
	return r.URL.Query().Get("owner")
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// writeDomainError maps domain error taxonomies to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case recharge.IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case recharge.IsConflictError(err):
		writeError(w, http.StatusConflict, err.Error())
	case recharge.IsNotFoundError(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
