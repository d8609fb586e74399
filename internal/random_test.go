package internal

import (
	"encoding/hex"
	"errors"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestNewHexTokenDefaultLength(t *testing.T) {
	tok, err := NewHexToken(0)
	if err != nil {
		t.Fatalf("NewHexToken failed: %v", err)
	}
	if len(tok) != 2*DefaultTokenBytes {
		t.Fatalf("expected %d hex chars, got %d", 2*DefaultTokenBytes, len(tok))
	}
	if _, err := hex.DecodeString(tok); err != nil {
		t.Fatalf("token is not hex: %v", err)
	}
}

func TestNewHexTokenCustomLength(t *testing.T) {
	tok, err := NewHexToken(CSRFTokenBytes)
	if err != nil {
		t.Fatalf("NewHexToken failed: %v", err)
	}
	if len(tok) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(tok))
	}
}

func TestNewHexTokenUnique(t *testing.T) {
	seen := make(map[string]struct{}, 256)
	for i := 0; i < 256; i++ {
		tok, err := NewHexToken(16)
		if err != nil {
			t.Fatalf("NewHexToken failed: %v", err)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token generated: %s", tok)
		}
		seen[tok] = struct{}{}
	}
}

func TestNewHexTokenRejectsOversize(t *testing.T) {
	if _, err := NewHexToken(maxTokenBytes + 1); !errors.Is(err, ErrTokenSize) {
		t.Fatalf("expected ErrTokenSize, got %v", err)
	}
}

func TestNewHexTokenEntropyFailure(t *testing.T) {
	orig := randReader
	randReader = failingReader{}
	defer func() { randReader = orig }()

	if _, err := NewHexToken(8); err == nil {
		t.Fatal("expected entropy failure to surface")
	}
}

func TestNewRecordIDFormat(t *testing.T) {
	id := NewRecordID()
	if len(id) != 36 {
		t.Fatalf("expected uuid string, got %q", id)
	}
	if id == NewRecordID() {
		t.Fatal("expected distinct record ids")
	}
}
