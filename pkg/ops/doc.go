// Package ops maps declarative operation identifiers plus per-item
// parameters onto Redis commands and returns one normalized result (or one
// isolated error record) per input item.
//
// The package is built from four pieces:
//
//   - a connection provisioner that turns a flat Credential into a kv.Store
//     handle and can probe it (Test),
//   - a value type inferencer that resolves which Redis primitive an
//     ambiguous "get" or "set" must target,
//   - a report parser that turns the INFO text into structured data,
//   - a dispatcher driving a closed registry of operation descriptors with
//     per-item failure isolation and guaranteed connection teardown.
//
// One store handle is opened per execution and closed exactly once on every
// exit path. Items are processed strictly in input order; there is no
// batching, pipelining, or retrying.
package ops
