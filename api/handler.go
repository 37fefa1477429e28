package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/isdmx/execbox/execution"
	"github.com/isdmx/execbox/sandbox"
)

// MaxBodyBytes caps request bodies
const MaxBodyBytes = 1 << 20

// Coordinator is the part of the execution service the handlers use
type Coordinator interface {
	Submit(ctx context.Context, req execution.Request) (execution.SubmitResult, error)
	Status(ctx context.Context, id string) (*execution.Record, error)
	Languages() []sandbox.Profile
}

// Handler serves the execution endpoints
type Handler struct {
	logger *zap.Logger
	svc    Coordinator
}

// NewHandler creates the HTTP handlers over svc
func NewHandler(logger *zap.Logger, svc Coordinator) *Handler {
	return &Handler{logger: logger.Named("api"), svc: svc}
}

// Execute accepts a new execution request
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var req execution.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		var verr *execution.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		if errors.Is(err, execution.ErrShuttingDown) {
			writeError(w, http.StatusServiceUnavailable, "Service is shutting down")
			return
		}
		h.logger.Error("failed to submit execution", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to start execution")
		return
	}

	writeJSON(w, http.StatusAccepted, result)
}

// Status returns the current record of an execution
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.svc.Status(r.Context(), id)
	if errors.Is(err, execution.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Execution not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load execution", zap.String("execution_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load execution")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Languages lists the supported language profiles
func (h *Handler) Languages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"languages": h.svc.Languages()})
}

// Health reports liveness
func (*Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
