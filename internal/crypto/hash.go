package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidHashFormat   = errors.New("invalid encoded hash format")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// HashParams configures the Argon2id hashing parameters.
type HashParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultHashParams returns recommended Argon2id parameters for password hashing.
func DefaultHashParams() HashParams {
	return HashParams{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher hashes and verifies passwords with Argon2id. Work is admitted
// through pool so concurrent requests cannot exhaust CPU or memory.
type Hasher struct {
	params HashParams
	pool   *Pool
}

// NewHasher creates a Hasher. A nil pool admits work without bound.
func NewHasher(params HashParams, pool *Pool) *Hasher {
	if params.SaltLength == 0 {
		params.SaltLength = DefaultHashParams().SaltLength
	}
	if params.KeyLength == 0 {
		params.KeyLength = DefaultHashParams().KeyLength
	}
	return &Hasher{params: params, pool: pool}
}

// Hash hashes a password and returns it encoded in PHC string format:
// $argon2id$v=19$m=65536,t=3,p=2$<base64-salt>$<base64-hash>
func (h *Hasher) Hash(password string) (string, error) {
	var encoded string
	err := h.pool.Do(func() error {
		var err error
		encoded, err = hashPassword(password, h.params)
		return err
	})
	return encoded, err
}

// Verify checks whether a password matches the given Argon2id encoded hash.
// A mismatch is (false, nil); a malformed hash is (false, ErrInvalidHashFormat)
// or (false, ErrIncompatibleVersion).
func (h *Hasher) Verify(password, encodedHash string) (bool, error) {
	var match bool
	err := h.pool.Do(func() error {
		var err error
		match, err = verifyPassword(password, encodedHash)
		return err
	})
	return match, err
}

func hashPassword(password string, params HashParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.Memory,
		params.Iterations,
		params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// verifyPassword uses constant-time comparison to prevent timing attacks.
func verifyPassword(password, encodedHash string) (bool, error) {
	params, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	return subtle.ConstantTimeCompare(hash, candidate) == 1, nil
}

// decodeHash splits a PHC string into its parameters, salt and key.
func decodeHash(encodedHash string) (HashParams, []byte, []byte, error) {
	fields := strings.Split(encodedHash, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return HashParams{}, nil, nil, ErrInvalidHashFormat
	}
	version, costs, salt, key := fields[2], fields[3], fields[4], fields[5]

	var v int
	if _, scanErr := fmt.Sscanf(version, "v=%d", &v); scanErr != nil {
		return HashParams{}, nil, nil, ErrInvalidHashFormat
	}
	if v != argon2.Version {
		return HashParams{}, nil, nil, ErrIncompatibleVersion
	}

	var p HashParams
	if _, scanErr := fmt.Sscanf(costs, "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); scanErr != nil {
		return HashParams{}, nil, nil, ErrInvalidHashFormat
	}
	if p.Iterations == 0 || p.Parallelism == 0 {
		return HashParams{}, nil, nil, ErrInvalidHashFormat
	}

	saltBytes, decodeErr := base64.RawStdEncoding.DecodeString(salt)
	if decodeErr != nil {
		return HashParams{}, nil, nil, ErrInvalidHashFormat
	}
	keyBytes, decodeErr := base64.RawStdEncoding.DecodeString(key)
	if decodeErr != nil || len(keyBytes) == 0 {
		return HashParams{}, nil, nil, ErrInvalidHashFormat
	}
	p.SaltLength = uint32(len(saltBytes))
	p.KeyLength = uint32(len(keyBytes))

	return p, saltBytes, keyBytes, nil
}
