// Package httpapi exposes authgate.Engine over HTTP with a chi router.
//
// [NewRouter] mounts the /auth endpoints, /healthz and optionally /metrics. Request
// bodies are JSON; every failure is answered as {"success": false, "message": ...}
// with the status from [authgate.Describe]. [Server] runs a handler with graceful
// shutdown.
//
// CSRF tokens rotate on every accepted request, so browser clients fetch
// GET /auth/csrf-token before each mutating call.
package httpapi
