// Package authgate runs the authentication and anti-forgery token lifecycle for two
// principal kinds, users and admins: CSRF tokens, email-verification and
// password-reset tokens, password hashing and signed session tokens.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config], the
// operation inputs and results, and the [Error] taxonomy. Token state machines live
// in internal/csrf and internal/purpose, Redis controls in internal/rate and
// internal/revocation, persistence behind the store.Store contract.
//
// Every mutating operation verifies the caller's CSRF token first (rotating it), then
// the CAPTCHA response where required, then input validation, and only then touches
// the store. Declined operations write nothing and emit no audit entry.
//
// # What this package must NOT do
//
//   - Import httpapi or any transport package.
//   - Return store, hasher or signing errors to callers unwrapped; every failure is an
//     *Error whose Message is safe to show.
//   - Depend on multi-record transactions. Single-use tokens, CSRF rotation and
//     account uniqueness are each closed by a conditional update or a unique index.
package authgate
