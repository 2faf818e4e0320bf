package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flowforge/redisrun/pkg/ops"
)

func createTestHandler() *Handler {
	logger := zap.NewNop().Sugar()
	return NewHandler(ops.NewDispatcher(logger, nil), nil, logger)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()

	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestExecuteDryRun(t *testing.T) {
	handler := createTestHandler()

	rec := postJSON(t, handler.Execute, ExecuteRequest{
		Operation:  "set",
		Items:      []map[string]any{{}},
		Parameters: map[string]any{"key": "k", "value": "v"},
		DryRun:     true,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ExecuteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "set", resp.Operation)
	assert.Len(t, resp.Results, 1)
}

func TestExecuteDefaultsToOneEmptyItem(t *testing.T) {
	handler := createTestHandler()

	rec := postJSON(t, handler.Execute, ExecuteRequest{
		Operation: "info",
		DryRun:    true,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ExecuteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Contains(t, resp.Results[0].Data, "role")
}

func TestExecuteUnknownOperation(t *testing.T) {
	handler := createTestHandler()

	rec := postJSON(t, handler.Execute, ExecuteRequest{
		Operation: "flushall",
		DryRun:    true,
	})

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "UNKNOWN_OPERATION", resp.Code)
}

func TestExecuteParameterErrorReportsItem(t *testing.T) {
	handler := createTestHandler()

	rec := postJSON(t, handler.Execute, ExecuteRequest{
		Operation:  "mset",
		Items:      []map[string]any{{}, {}},
		Parameters: map[string]any{"keysAndValues": "a 1"},
		ItemParameters: []map[string]any{
			nil,
			{"keysAndValues": "b 2 c"},
		},
		DryRun: true,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PARAMETER_ERROR", resp.Code)
	require.NotNil(t, resp.Item)
	assert.Equal(t, 1, *resp.Item)
}

func TestExecuteContinueOnFailReturnsInlineErrors(t *testing.T) {
	handler := createTestHandler()

	rec := postJSON(t, handler.Execute, ExecuteRequest{
		Operation:  "mset",
		Items:      []map[string]any{{}, {}},
		Parameters: map[string]any{"keysAndValues": "a 1"},
		ItemParameters: []map[string]any{
			nil,
			{"keysAndValues": "b 2 c"},
		},
		ContinueOnFail: true,
		DryRun:         true,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ExecuteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Empty(t, resp.Results[0].Error)
	assert.NotEmpty(t, resp.Results[1].Error)
}

func TestExecuteRejectsMissingOperation(t *testing.T) {
	handler := createTestHandler()

	rec := postJSON(t, handler.Execute, ExecuteRequest{DryRun: true})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec2 := httptest.NewRecorder()
	handler.Execute(rec2, req)
	require.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestTestCredentialReportsFailureAsData(t *testing.T) {
	handler := createTestHandler()

	rec := postJSON(t, handler.TestCredential, TestRequest{
		Credential: ops.Credential{Host: "127.0.0.1", Port: 1},
	})

	require.Equal(t, http.StatusOK, rec.Code, "a failed probe is a result, not an HTTP error")

	var result ops.TestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Error", result.Status)
	assert.NotEmpty(t, result.Message)
}

func TestListOperations(t *testing.T) {
	handler := createTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/operations", nil)
	rec := httptest.NewRecorder()
	handler.ListOperations(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp OperationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Operations, "get")
	assert.Contains(t, resp.Operations, "set")
	assert.Contains(t, resp.Operations, "info")
}

func TestHealthz(t *testing.T) {
	handler := createTestHandler()

	rec := httptest.NewRecorder()
	handler.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
