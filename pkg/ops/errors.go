package ops

import "fmt"

// ConnectionError reports that the store handle could not be established or
// the liveness probe failed. It is never isolated: without a connection no
// items can be processed.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ParameterError reports an invalid or unresolvable parameter. It is raised
// before any store call is issued for the affected item.
type ParameterError struct {
	Name   string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Name, e.Reason)
}

// ItemError tags a failure with the index of the item that caused it, for
// diagnosis when a run aborts without isolation.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
