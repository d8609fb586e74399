// Package jwt issues and validates signed session tokens carrying a principal's id,
// email and role. Validation is a boolean decision: callers never see parser errors.
package jwt
