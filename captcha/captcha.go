// Package captcha verifies human-check responses against third-party siteverify
// endpoints: Google reCAPTCHA (form POST) and Cloudflare Turnstile (JSON POST).
package captcha

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const (
	// RecaptchaVerifyURL is Google's siteverify endpoint.
	RecaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"
	// TurnstileVerifyURL is Cloudflare's siteverify endpoint.
	TurnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 64 << 10
)

var (
	// ErrMissingSecret is returned by constructors when no secret key is configured.
	ErrMissingSecret = errors.New("captcha: secret key missing")
	// ErrEmptyResponse is returned when the client sent no captcha response.
	ErrEmptyResponse = errors.New("captcha: empty response token")
	// ErrUnavailable wraps transport and decoding failures talking to the provider.
	ErrUnavailable = errors.New("captcha: provider unavailable")
)

// Result is the provider's verdict.
type Result struct {
	Success    bool
	Score      float64
	Hostname   string
	ErrorCodes []string
}

// Verifier checks a client's captcha response. remoteIP may be empty.
type Verifier interface {
	Verify(ctx context.Context, response, remoteIP string) (Result, error)
}

// Options configures the HTTP verifiers.
type Options struct {
	// VerifyURL overrides the provider endpoint (tests, proxies).
	VerifyURL string
	// MinScore rejects reCAPTCHA v3 results scoring below it. Zero disables the check.
	MinScore float64
	// Client defaults to an http.Client with a 10 second timeout.
	Client *http.Client
}

func (o Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return &http.Client{Timeout: defaultTimeout}
}

// Static returns a fixed verdict without network I/O. It is meant for development
// servers and tests.
type Static struct {
	Accept bool
}

func (s Static) Verify(_ context.Context, response, _ string) (Result, error) {
	if response == "" {
		return Result{}, ErrEmptyResponse
	}
	return Result{Success: s.Accept}, nil
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, response, remoteIP string) (Result, error)

func (f VerifierFunc) Verify(ctx context.Context, response, remoteIP string) (Result, error) {
	return f(ctx, response, remoteIP)
}
