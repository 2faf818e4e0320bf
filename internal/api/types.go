package api

import "github.com/flowforge/redisrun/pkg/ops"

// ExecuteRequest is the body of POST /v1/execute.
type ExecuteRequest struct {
	Credential ops.Credential `json:"credential"`
	Operation  string         `json:"operation"`

	// Items are the input payloads; an empty list runs the operation once
	// with an empty payload.
	Items []map[string]any `json:"items,omitempty"`

	// Parameters hold run-wide values plus optional per-item overrides,
	// indexed in item order.
	Parameters     map[string]any   `json:"parameters,omitempty"`
	ItemParameters []map[string]any `json:"itemParameters,omitempty"`

	ContinueOnFail bool `json:"continueOnFail,omitempty"`

	// DryRun executes against an ephemeral in-memory backend instead of
	// the credentialed server.
	DryRun bool `json:"dryRun,omitempty"`
}

// ExecuteResponse is the success body of POST /v1/execute.
type ExecuteResponse struct {
	Operation string       `json:"operation"`
	Results   []ops.Result `json:"results"`
	ElapsedMs int64        `json:"elapsedMs"`
}

// TestRequest is the body of POST /v1/test.
type TestRequest struct {
	Credential ops.Credential `json:"credential"`
}

// OperationsResponse lists the operation catalogue.
type OperationsResponse struct {
	Operations []string `json:"operations"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Item is set when the failure is attributable to one input item.
	Item *int `json:"item,omitempty"`
}
