// Package rate provides Redis-backed fixed-window attempt limiters for login,
// forgot-password and verification-email requests.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes (after
// the configured namespace):
//   - l:   login failures per email
//   - li:  login failures per client IP
//   - f:   forgot-password requests per email
//   - fi:  forgot-password requests per client IP
//   - v:   verification-email requests per email
//
// Emails are hashed before they become part of a key.
package rate
