// Package middleware adapts authgate.Engine to net/http.
//
// # Handlers
//
//   - [ClientInfo] puts the caller's address and user agent on the request context,
//     where CSRF binding and audit entries read them.
//   - [Guard] requires a valid, unrevoked bearer session token and optionally a role.
//   - [RequireUser] and [RequireAdmin] are Guard for one role.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Every decision about a
// token is delegated to Engine.Authenticate.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Access Redis or the record store.
package middleware
