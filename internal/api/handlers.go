package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flowforge/redisrun/internal/config"
	"github.com/flowforge/redisrun/pkg/kv"
	_ "github.com/flowforge/redisrun/pkg/kv/memory" // register the memory backend
	"github.com/flowforge/redisrun/pkg/ops"
)

type Handler struct {
	dispatcher *ops.Dispatcher
	config     *config.Config
	logger     *zap.SugaredLogger
}

func NewHandler(dispatcher *ops.Dispatcher, config *config.Config, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		config:     config,
		logger:     logger,
	}
}

// Execute runs one operation over the supplied items and returns all result
// records. Failures before the item loop map to dedicated status codes;
// item-level failures either abort with 422 or come back inline when
// continueOnFail is set.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if req.Operation == "" {
		h.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "operation is required", nil)
		return
	}

	items := ops.NewItems(req.Items)
	if len(items) == 0 {
		items = ops.NewItems([]map[string]any{{}})
	}
	params := ops.MapSource{Base: req.Parameters, PerItem: req.ItemParameters}
	opts := ops.Options{ContinueOnFail: req.ContinueOnFail}

	if h.config != nil {
		req.Credential.DialTimeout = h.config.Redis.DialTimeout
	}

	start := time.Now()
	var results []ops.Result
	var err error
	if req.DryRun {
		store, serr := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendMemory})
		if serr != nil {
			h.writeError(w, http.StatusInternalServerError, "EXECUTION_ERROR", serr.Error(), nil)
			return
		}
		results, err = h.dispatcher.ExecuteStore(r.Context(), store, req.Operation, items, params, opts)
	} else {
		results, err = h.dispatcher.Execute(r.Context(), req.Credential, req.Operation, items, params, opts)
	}
	if err != nil {
		h.writeExecuteError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, ExecuteResponse{
		Operation: req.Operation,
		Results:   results,
		ElapsedMs: time.Since(start).Milliseconds(),
	})
}

func (h *Handler) writeExecuteError(w http.ResponseWriter, err error) {
	var connErr *ops.ConnectionError
	if errors.As(err, &connErr) {
		h.writeError(w, http.StatusBadGateway, "CONNECTION_ERROR", connErr.Error(), nil)
		return
	}

	var itemErr *ops.ItemError
	if errors.As(err, &itemErr) {
		code, status := "ITEM_ERROR", http.StatusUnprocessableEntity
		var paramErr *ops.ParameterError
		if errors.As(err, &paramErr) {
			code, status = "PARAMETER_ERROR", http.StatusBadRequest
		}
		item := itemErr.Index
		h.writeError(w, status, code, itemErr.Error(), &item)
		return
	}

	var paramErr *ops.ParameterError
	if errors.As(err, &paramErr) {
		h.writeError(w, http.StatusBadRequest, "PARAMETER_ERROR", paramErr.Error(), nil)
		return
	}

	if strings.HasPrefix(err.Error(), "unknown operation") {
		h.writeError(w, http.StatusNotFound, "UNKNOWN_OPERATION", err.Error(), nil)
		return
	}

	h.writeError(w, http.StatusInternalServerError, "EXECUTION_ERROR", err.Error(), nil)
}

// TestCredential probes the credential and reports the outcome without ever
// failing the HTTP call itself; a bad credential is a 200 with status Error.
func (h *Handler) TestCredential(w http.ResponseWriter, r *http.Request) {
	var req TestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}

	result := ops.Test(r.Context(), req.Credential)
	h.logger.Infow("Credential test",
		"host", req.Credential.Host,
		"port", req.Credential.Port,
		"status", result.Status,
	)
	h.writeJSON(w, http.StatusOK, result)
}

// ListOperations returns the operation catalogue.
func (h *Handler) ListOperations(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, OperationsResponse{Operations: ops.Operations()})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, item *int) {
	h.logger.Errorw("API error", "code", code, "message", message, "status", status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
		Item:    item,
	})
}
