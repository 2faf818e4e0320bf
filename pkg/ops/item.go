package ops

// Item is one row of input. Index is its 0-based position in the input
// sequence; Data is the caller's payload, passed through unchanged by
// operations that do not produce their own result.
type Item struct {
	Index int            `json:"index"`
	Data  map[string]any `json:"data"`
}

// NewItems wraps raw payloads into an indexed item sequence.
func NewItems(payloads []map[string]any) []Item {
	items := make([]Item, len(payloads))
	for i, p := range payloads {
		items[i] = Item{Index: i, Data: p}
	}
	return items
}

// Result is one output record. Exactly one Result is produced per input item
// (expansion operations aggregate into a single Data map). When failure
// isolation converts an error, Error carries the message and Data is nil.
type Result struct {
	Index int            `json:"index"`
	Data  map[string]any `json:"data,omitempty"`
	Error string         `json:"error,omitempty"`
}

// SetResult is the outcome of a conditional write. A condition not being met
// is an expected outcome of the optimistic lock pattern, so it is returned
// as data, never raised as an error.
type SetResult struct {
	Success   bool   `json:"success"`
	Operation string `json:"operation"`
	Key       string `json:"key"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Failure reason codes for conditional writes
const (
	ReasonKeyAlreadyExists = "key_already_exists"
	ReasonKeyDoesNotExist  = "key_does_not_exist"
)

func (r SetResult) asRecord() map[string]any {
	record := map[string]any{
		"success":   r.Success,
		"operation": r.Operation,
		"key":       r.Key,
	}
	if r.Reason != "" {
		record["reason"] = r.Reason
	}
	if r.Message != "" {
		record["message"] = r.Message
	}
	return record
}

// copyData returns a shallow copy of an item payload so handlers can merge
// values without mutating caller-owned maps.
func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// setPath stores value in out under a dot-separated path, creating nested
// maps as needed. Existing non-map values along the path are replaced.
func setPath(out map[string]any, path string, value any) {
	parts := splitPath(path)
	current := out
	for i, part := range parts {
		if i == len(parts)-1 {
			current[part] = value
			return
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			if i > start {
				parts = append(parts, path[start:i])
			}
			start = i + 1
		}
	}
	if start < len(path) {
		parts = append(parts, path[start:])
	}
	if len(parts) == 0 {
		parts = []string{path}
	}
	return parts
}
