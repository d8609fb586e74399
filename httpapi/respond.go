package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/authgate"
)

const maxBodyBytes = 64 << 10

var errInvalidBody = errors.New("invalid request body")

type envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	CSRFToken string `json:"csrfToken,omitempty"`
	User      any    `json:"user,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: msg})
}

// writeError answers with the public status and message of err. Server faults are
// logged with their cause; declined requests are not.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := authgate.Describe(err)
	if errors.Is(err, errInvalidBody) {
		status, msg = http.StatusBadRequest, "Invalid request body"
	}
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

// decode reads a single JSON object from the request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.Join(errInvalidBody, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errInvalidBody
	}
	return nil
}
