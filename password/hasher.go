package password

import (
	"errors"
	"strings"
)

var (
	// ErrPasswordTooLong is returned when a plaintext exceeds what the algorithm can digest
	// without silent truncation.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrEmptyPassword is returned when hashing an empty plaintext.
	ErrEmptyPassword = errors.New("password is empty")
	// ErrUnsupportedAlgorithm is returned for unknown algorithm names.
	ErrUnsupportedAlgorithm = errors.New("unsupported password algorithm")
)

// Hasher hashes secrets and verifies plaintexts against stored hashes.
//
// Verify never returns an error: malformed hashes and mismatches both yield false.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hashed string) bool
}

// Algorithm names accepted by [New].
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// Multi hashes with a primary algorithm and verifies against every algorithm it knows.
type Multi struct {
	primary string
	bcrypt  *Bcrypt
	argon2  *Argon2
}

// New builds a [Multi] whose primary algorithm is algorithm.
// Both hashers are always constructed so stored hashes of either kind stay verifiable.
// A zero argonCfg selects [DefaultArgon2Config].
func New(algorithm string, bcryptCost int, argonCfg Argon2Config) (*Multi, error) {
	switch algorithm {
	case "", AlgorithmBcrypt:
		algorithm = AlgorithmBcrypt
	case AlgorithmArgon2id:
	default:
		return nil, ErrUnsupportedAlgorithm
	}

	b, err := NewBcrypt(bcryptCost)
	if err != nil {
		return nil, err
	}
	if argonCfg == (Argon2Config{}) {
		argonCfg = DefaultArgon2Config()
	}
	a, err := NewArgon2(argonCfg)
	if err != nil {
		return nil, err
	}

	return &Multi{primary: algorithm, bcrypt: b, argon2: a}, nil
}

// Hash hashes plain with the primary algorithm.
func (m *Multi) Hash(plain string) (string, error) {
	if m.primary == AlgorithmArgon2id {
		return m.argon2.Hash(plain)
	}
	return m.bcrypt.Hash(plain)
}

// Verify dispatches on the stored hash prefix.
func (m *Multi) Verify(plain, hashed string) bool {
	switch algorithmOf(hashed) {
	case AlgorithmBcrypt:
		return m.bcrypt.Verify(plain, hashed)
	case AlgorithmArgon2id:
		return m.argon2.Verify(plain, hashed)
	default:
		return false
	}
}

// NeedsRehash reports whether hashed was produced by a non-primary algorithm or with
// weaker parameters than the primary is configured for.
func (m *Multi) NeedsRehash(hashed string) bool {
	algo := algorithmOf(hashed)
	if algo != m.primary {
		return true
	}
	if algo == AlgorithmBcrypt {
		return m.bcrypt.NeedsRehash(hashed)
	}
	upgrade, err := m.argon2.NeedsUpgrade(hashed)
	return err != nil || upgrade
}

func algorithmOf(hashed string) string {
	switch {
	case strings.HasPrefix(hashed, "$2a$"), strings.HasPrefix(hashed, "$2b$"), strings.HasPrefix(hashed, "$2y$"):
		return AlgorithmBcrypt
	case strings.HasPrefix(hashed, "$"+AlgorithmArgon2id+"$"):
		return AlgorithmArgon2id
	default:
		return ""
	}
}
