package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowforge/redisrun/internal/metrics"
	"github.com/flowforge/redisrun/pkg/kv"
)

// Options control one execution.
type Options struct {
	// ContinueOnFail converts an item's failure into an inline error
	// record instead of aborting the run. Connection failures are never
	// isolated.
	ContinueOnFail bool
}

// Dispatcher iterates input items, resolves parameters per item, invokes
// operation handlers, and guarantees connection closure on every exit path.
// It holds no per-execution state and is safe for concurrent Execute calls;
// each execution owns its store handle exclusively.
type Dispatcher struct {
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

// NewDispatcher creates a dispatcher. logger may be nil to disable logging;
// m may be nil to disable metrics.
func NewDispatcher(logger *zap.SugaredLogger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dispatcher{logger: logger, metrics: m}
}

// Execute provisions a connection from the credential and runs the operation
// over the items. The connection is closed before returning, on every path.
func (d *Dispatcher) Execute(ctx context.Context, cred Credential, operation string, items []Item, params ParameterSource, opts Options) ([]Result, error) {
	return d.ExecuteStore(ctx, Provision(cred), operation, items, params, opts)
}

// ExecuteStore runs against an already-provisioned store handle, taking
// ownership of it: the handle is closed exactly once regardless of outcome
// and must not be reused afterwards.
func (d *Dispatcher) ExecuteStore(ctx context.Context, store kv.Store, operation string, items []Item, params ParameterSource, opts Options) (results []Result, err error) {
	runID := uuid.NewString()
	started := time.Now()

	defer func() {
		if cerr := store.Close(); cerr != nil {
			d.logger.Warnw("Failed to close store handle", "run", runID, "error", cerr)
		}
		if d.metrics != nil {
			d.metrics.RecordRun(ctx, operation, err == nil, time.Since(started))
		}
	}()

	op, ok := Lookup(operation)
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", operation)
	}

	// Probe before entering the item loop so an unreachable server is a
	// connection error, not a per-item one.
	if perr := store.Ping(ctx); perr != nil {
		return nil, &ConnectionError{Err: perr}
	}

	d.logger.Debugw("Execution started",
		"run", runID,
		"operation", operation,
		"items", len(items),
		"continueOnFail", opts.ContinueOnFail,
	)

	if params == nil {
		params = MapSource{}
	}
	rc := &runContext{store: store, params: params}

	if op.Once {
		items = []Item{{Index: 0, Data: map[string]any{}}}
	}

	results = make([]Result, 0, len(items))
	for _, item := range items {
		if d.metrics != nil {
			d.metrics.RecordItem(ctx, operation)
		}

		record, ierr := d.runItem(ctx, rc, op, item)
		if ierr != nil {
			if d.metrics != nil {
				d.metrics.RecordItemFailure(ctx, operation)
			}
			if opts.ContinueOnFail {
				d.logger.Debugw("Item failed, continuing",
					"run", runID, "item", item.Index, "error", ierr)
				results = append(results, Result{Index: item.Index, Error: ierr.Error()})
				continue
			}
			d.logger.Debugw("Item failed, aborting run",
				"run", runID, "item", item.Index, "error", ierr)
			return nil, &ItemError{Index: item.Index, Err: ierr}
		}

		results = append(results, Result{Index: item.Index, Data: record})
	}

	d.logger.Debugw("Execution finished",
		"run", runID,
		"operation", operation,
		"results", len(results),
		"elapsed", time.Since(started),
	)
	return results, nil
}

func (d *Dispatcher) runItem(ctx context.Context, rc *runContext, op Operation, item Item) (map[string]any, error) {
	p, err := resolveParams(op, rc.params, item.Index)
	if err != nil {
		return nil, err
	}
	return op.handler(ctx, rc, item, p)
}
