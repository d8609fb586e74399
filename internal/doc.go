// Package internal contains helper utilities that are intentionally private to authgate,
// including secure token generation and record identifiers.
//
// # Sub-packages
//
//   - audit: audit entry model, sinks and the async dispatcher
//   - csrf: per-client CSRF token issuance, rotation and sweeping
//   - purpose: single-use email-verification and password-reset tokens
//   - rate: Redis-backed fixed-window attempt limiter
//   - revocation: Redis-backed session token denylist
//   - envconfig: environment and .env loading
//   - logger: slog factory
//   - bootstrap: environment-driven wiring shared by the binaries
//
// # What this package must NOT do
//
//   - Export types that appear in the public authgate API.
//   - Be imported by any package outside the authgate module.
package internal
