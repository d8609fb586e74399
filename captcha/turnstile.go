package captcha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Turnstile verifies Cloudflare Turnstile responses.
type Turnstile struct {
	secret string
	opts   Options
}

// NewTurnstile returns a Turnstile verifier for secret.
func NewTurnstile(secret string, opts Options) (*Turnstile, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if opts.VerifyURL == "" {
		opts.VerifyURL = TurnstileVerifyURL
	}
	return &Turnstile{secret: secret, opts: opts}, nil
}

func (t *Turnstile) Verify(ctx context.Context, response, remoteIP string) (Result, error) {
	if response == "" {
		return Result{}, ErrEmptyResponse
	}
	payload := map[string]string{
		"secret":   t.secret,
		"response": response,
	}
	if remoteIP != "" {
		payload["remoteip"] = remoteIP
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opts.VerifyURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := post(t.opts.client(), req)
	if err != nil {
		return Result{}, err
	}
	return res.verdict(0), nil
}
