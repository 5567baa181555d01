// Copyright (c) 2026 Parley. All rights reserved.
// Author: Parley Authors

package sec

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
	// ErrHashingFailed is returned when a digest cannot be produced.
	ErrHashingFailed = errors.New("sec: hashing failed")

	// ErrMalformedHash is returned when a stored digest cannot be parsed.
	// It is never reported as a password mismatch.
	ErrMalformedHash = errors.New("sec: malformed password hash")
)

// HashParams are the Argon2id cost parameters embedded into every digest.
type HashParams struct {
	Memory  uint32 // KiB
	Time    uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// Upper bounds on cost parameters read back from a stored digest. A corrupt
// row must fail with ErrMalformedHash, not ask argon2 for terabytes.
const (
	MaxHashMemory = 1 << 20 // KiB
	MaxHashTime   = 16
	MaxHashKeyLen = 1 << 10
)

// DefaultHashParams are the production Argon2id parameters.
var DefaultHashParams = HashParams{
	Memory:  64 * 1024,
	Time:    4,
	Threads: 2,
	KeyLen:  32,
	SaltLen: 16,
}

// Argon2Hasher hashes and verifies passwords as PHC-formatted Argon2id strings:
//
//	$argon2id$v=19$m=65536,t=4,p=2$<salt>$<key>
type Argon2Hasher struct {
	params HashParams
	random func([]byte) (int, error)
}

// NewArgon2Hasher returns a hasher that produces digests with params.
func NewArgon2Hasher(params HashParams) *Argon2Hasher {
	return &Argon2Hasher{params: params, random: rand.Read}
}

// Hash returns the encoded Argon2id digest of password with a fresh salt.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := h.random(salt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashingFailed, err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches digest.
//
// The cost parameters are read from the digest itself. A mismatch returns
// (false, nil); a digest that cannot be parsed returns [ErrMalformedHash].
func (h *Argon2Hasher) Verify(digest, password string) (bool, error) {
	params, salt, expected, err := decodeDigest(digest)
	if err != nil {
		return false, err
	}

	actual := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

// decodeDigest splits a PHC Argon2id string into its parameters, salt and key.
func decodeDigest(digest string) (HashParams, []byte, []byte, error) {
	var params HashParams

	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return params, nil, nil, fmt.Errorf("%w: unexpected format", ErrMalformedHash)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params, nil, nil, fmt.Errorf("%w: version: %v", ErrMalformedHash, err)
	}
	if version != argon2.Version {
		return params, nil, nil, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil {
		return params, nil, nil, fmt.Errorf("%w: parameters: %v", ErrMalformedHash, err)
	}
	if params.Memory == 0 || params.Time == 0 || params.Threads == 0 {
		return params, nil, nil, fmt.Errorf("%w: zero cost parameter", ErrMalformedHash)
	}
	if params.Memory > MaxHashMemory || params.Time > MaxHashTime {
		return params, nil, nil, fmt.Errorf("%w: cost parameter out of range", ErrMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return params, nil, nil, fmt.Errorf("%w: salt", ErrMalformedHash)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > MaxHashKeyLen {
		return params, nil, nil, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	params.SaltLen = uint32(len(salt))
	params.KeyLen = uint32(len(key))
	return params, salt, key, nil
}
