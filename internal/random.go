package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"

	"github.com/google/uuid"
)

const (
	// DefaultTokenBytes is the raw size of purpose tokens before hex encoding.
	DefaultTokenBytes = 48
	// CSRFTokenBytes is the raw size of CSRF tokens before hex encoding.
	CSRFTokenBytes = 32

	maxTokenBytes = 1024
)

// ErrTokenSize is returned for token sizes outside 1..1024 bytes.
var ErrTokenSize = errors.New("invalid token size")

// randReader is swapped in tests to simulate entropy failure.
var randReader io.Reader = rand.Reader

// NewHexToken returns byteLength bytes from crypto/rand, hex encoded.
// A byteLength of zero or less selects DefaultTokenBytes.
func NewHexToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = DefaultTokenBytes
	}
	if byteLength > maxTokenBytes {
		return "", ErrTokenSize
	}

	raw := make([]byte, byteLength)
	if _, err := io.ReadFull(randReader, raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// NewRecordID returns a random v4 UUID string used for document ids and JWT ids.
func NewRecordID() string {
	return uuid.NewString()
}
