// Package audit implements the append-only audit trail for successful auth operations.
//
// # Components
//
//   - [Entry]: one record per successful signup, login, reset, verification or logout.
//   - [Sink]: interface for entry consumers (store, channel, JSON writer, no-op, fan-out).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//
// # Architecture boundaries
//
// This package owns entry delivery. It does NOT decide which operations are audited;
// that responsibility belongs to the Engine. Delivery is best-effort: sinks log their
// own failures and never report them to the operation that produced the entry.
package audit
