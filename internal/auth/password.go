package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// ErrMalformedHash is returned when a stored hash is not in a recognised encoding.
var ErrMalformedHash = errors.New("malformed password hash")

const (
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// HasherParams tunes the argon2id work factor.
type HasherParams struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
}

// DefaultHasherParams follows the OWASP argon2id baseline.
var DefaultHasherParams = HasherParams{Time: 1, MemoryKB: 64 * 1024, Threads: 4}

// Hasher hashes passwords with argon2id and verifies argon2id or bcrypt hashes.
type Hasher struct {
	params HasherParams
}

// NewHasher builds a hasher; zero params fall back to defaults.
func NewHasher(params HasherParams) *Hasher {
	if params.Time == 0 {
		params.Time = DefaultHasherParams.Time
	}
	if params.MemoryKB == 0 {
		params.MemoryKB = DefaultHasherParams.MemoryKB
	}
	if params.Threads == 0 {
		params.Threads = DefaultHasherParams.Threads
	}
	return &Hasher{params: params}
}

// HashPassword returns $argon2id$v=19$m=M,t=T,p=P$salt$key for any input.
func (h *Hasher) HashPassword(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.MemoryKB, h.params.Threads, argon2KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKB, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// ComparePassword reports whether password matches the encoded hash.
// A hash that cannot be parsed yields ErrMalformedHash, never false.
func (h *Hasher) ComparePassword(hashed, password string) (bool, error) {
	switch {
	case strings.HasPrefix(hashed, "$argon2id$"):
		return compareArgon2(hashed, password)
	case strings.HasPrefix(hashed, "$2a$"), strings.HasPrefix(hashed, "$2b$"), strings.HasPrefix(hashed, "$2y$"):
		return compareBcrypt(hashed, password)
	default:
		return false, ErrMalformedHash
	}
}

func compareArgon2(encoded, password string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrMalformedHash
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, ErrMalformedHash
	}
	if memory == 0 || iterations == 0 || threads == 0 {
		return false, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return false, ErrMalformedHash
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false, ErrMalformedHash
	}

	key := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}

func compareBcrypt(hashed, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, ErrMalformedHash
	}
}
