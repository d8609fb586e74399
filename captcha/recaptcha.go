package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Recaptcha verifies Google reCAPTCHA v2/v3 responses.
type Recaptcha struct {
	secret string
	opts   Options
}

// NewRecaptcha returns a reCAPTCHA verifier for secret.
func NewRecaptcha(secret string, opts Options) (*Recaptcha, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if opts.VerifyURL == "" {
		opts.VerifyURL = RecaptchaVerifyURL
	}
	return &Recaptcha{secret: secret, opts: opts}, nil
}

func (r *Recaptcha) Verify(ctx context.Context, response, remoteIP string) (Result, error) {
	if response == "" {
		return Result{}, ErrEmptyResponse
	}
	form := url.Values{}
	form.Set("secret", r.secret)
	form.Set("response", response)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.opts.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := post(r.opts.client(), req)
	if err != nil {
		return Result{}, err
	}
	return res.verdict(r.opts.MinScore), nil
}

func post(client *http.Client, req *http.Request) (siteverifyResponse, error) {
	resp, err := client.Do(req)
	if err != nil {
		return siteverifyResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return siteverifyResponse{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return siteverifyResponse{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return out, nil
}

func (s siteverifyResponse) verdict(minScore float64) Result {
	res := Result{
		Success:    s.Success,
		Score:      s.Score,
		Hostname:   s.Hostname,
		ErrorCodes: s.ErrorCodes,
	}
	if res.Success && minScore > 0 && s.Score < minScore {
		res.Success = false
		res.ErrorCodes = append(res.ErrorCodes, "score-too-low")
	}
	return res
}
