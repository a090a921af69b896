package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cosigner/internal/api"
	"cosigner/internal/config"
	"cosigner/internal/logging"
	"cosigner/internal/program"
	"cosigner/internal/scheduler"
	"cosigner/internal/services"
)

// maxBodyBytes bounds request bodies; a serialized transaction is at most
// a few kilobytes once base64 encoded.
const maxBodyBytes = 64 << 10

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	queueSvc *api.QueueService

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, errors.New("api server requires config and daemon")
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}

	srv := &apiServer{
		bind:     bind,
		logger:   logging.NewComponentLogger(logger, "api-server"),
		daemon:   d,
		queueSvc: api.NewQueueService(d.store),
	}
	srv.server = &http.Server{
		Handler:           srv.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/submit-transaction", s.handleSubmit)
	mux.HandleFunc("/transaction/", s.handleTransaction)
	mux.HandleFunc("/queue", s.handleQueue)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/process-queue", s.handleProcessQueue)
	mux.HandleFunc("/change-state", s.handleChangeState)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found", nil)
	})
	return s.withRequestID(mux)
}

func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := services.WithRequestID(r.Context(), id)
		s.logger.Debug("api request",
			logging.String(logging.FieldCorrelationID, id),
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	status, err := s.daemon.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:           "ok",
		ProgramState:     string(status.ProgramState),
		QueueLength:      status.Pending,
		ProcessedCount:   status.Processed,
		IsProcessing:     status.Scheduler.Running,
		IsDeploying:      status.Deploying,
		CosignerAddress:  status.CosignerAddress,
		UpgradeAuthority: status.UpgradeAuthority,
		ProgramID:        status.ProgramID,
		LastError:        status.Scheduler.LastError,
		LastRun:          api.FromReport(status.Scheduler.LastReport),
	})
}

func (s *apiServer) handleState(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	status, err := s.daemon.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.StateResponse{
		State:        string(status.ProgramState),
		QueueLength:  status.Pending,
		IsProcessing: status.Scheduler.Running,
		IsDeploying:  status.Deploying,
	})
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.SubmitRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), err)
		return
	}
	payload, requester := req.Normalized()
	lookup, err := s.daemon.Submit(r.Context(), payload, requester)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			s.writeError(w, http.StatusBadRequest, err.Error(), err)
			return
		}
		logging.ErrorWithContext(s.logger, "submission failed", "api_submit_failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error(), err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.SubmitResponse{
		Success:       true,
		ID:            lookup.Item.ID,
		TransactionID: lookup.Item.ID,
		QueuePosition: lookup.Position,
		Message:       "Transaction added to queue and will be processed shortly",
	})
}

func (s *apiServer) handleTransaction(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/transaction/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "transaction not found", nil)
		return
	}
	view, err := s.queueSvc.Describe(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), err)
		return
	}
	if view == nil {
		s.writeError(w, http.StatusNotFound, "transaction not found", nil)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	items, count, err := s.queueSvc.Pending(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.QueueResponse{
		Length:       count,
		IsProcessing: s.daemon.scheduler.Running(),
		IsDeploying:  s.daemon.controller.Deploying(),
		ProgramState: string(s.daemon.controller.State()),
		Items:        items,
	})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodGet) {
		return
	}
	items, err := s.queueSvc.History(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{Count: len(items), Items: items})
}

func (s *apiServer) handleProcessQueue(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		s.handleProcessQueueWait(w, r)
		return
	}
	result := s.daemon.ProcessQueue(r.Context())
	status := http.StatusOK
	if result == scheduler.TriggerUnavailable {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, api.ProcessResponse{Message: result.Message(), Result: string(result)})
}

func (s *apiServer) handleProcessQueueWait(w http.ResponseWriter, r *http.Request) {
	s.clearWriteDeadline(w)
	result, report := s.daemon.RunQueue(r.Context())
	resp := api.ProcessResponse{Message: result.Message(), Result: string(result)}
	status := http.StatusOK
	switch {
	case report != nil:
		resp.Run = api.FromReport(report)
		resp.Message = fmt.Sprintf("Queue run finished: %d confirmed, %d failed", report.Confirmed, report.Failed)
		if report.Error != "" {
			resp.Message = "Queue run aborted: " + report.Error
		}
	case result == scheduler.TriggerUnavailable:
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

func (s *apiServer) handleChangeState(w http.ResponseWriter, r *http.Request) {
	if !s.allow(w, r, http.MethodPost) {
		return
	}
	var req api.ChangeStateRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), err)
		return
	}
	s.clearWriteDeadline(w)
	state, err := s.daemon.ChangeState(r.Context(), req.Normalized())
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, api.ChangeStateResponse{
			Success:  true,
			NewState: string(state),
			Message:  fmt.Sprintf("State updated to %s", state),
		})
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, program.ErrDeploymentInProgress):
		s.writeError(w, http.StatusConflict, "Deployment already in progress", err)
	default:
		logging.ErrorWithContext(s.logger, "manual state change failed", "api_change_state_failed", logging.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, api.ChangeStateResponse{
			Success:  false,
			NewState: string(state),
			Message:  "State update failed: " + err.Error(),
		})
	}
}

// clearWriteDeadline lifts the server write timeout for handlers that wait
// on a deployment, which routinely outlasts it.
func (s *apiServer) clearWriteDeadline(w http.ResponseWriter) {
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Debug("clear write deadline failed", logging.Error(err))
	}
}

func (s *apiServer) allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	s.writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	return false
}

func (s *apiServer) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", services.ErrValidation, err)
	}
	return nil
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Kind: services.Kind(err)})
}
