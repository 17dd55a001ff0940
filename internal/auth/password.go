// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth hashes and verifies admin passwords with argon2id.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash is returned for strings that are not encoded argon2id hashes.
var ErrInvalidHash = errors.New("invalid argon2id hash")

// Params are the argon2id cost parameters encoded into every hash.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultParams follow the OWASP minimum (m=19456, t=2, p=1).
var DefaultParams = Params{
	Time:    2,
	Memory:  19 * 1024,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 16,
}

// encoded is a parsed $argon2id$v=..$m=..,t=..,p=..$salt$key string.
type encoded struct {
	params Params
	salt   []byte
	key    []byte
}

func decode(s string) (encoded, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return encoded{}, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return encoded{}, fmt.Errorf("%w: version: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return encoded{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidHash, version)
	}

	var e encoded
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &e.params.Memory, &e.params.Time, &e.params.Threads); err != nil {
		return encoded{}, fmt.Errorf("%w: parameters: %v", ErrInvalidHash, err)
	}

	var err error
	if e.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return encoded{}, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	if e.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return encoded{}, fmt.Errorf("%w: key: %v", ErrInvalidHash, err)
	}
	e.params.SaltLen = len(e.salt)
	e.params.KeyLen = uint32(len(e.key))
	return e, nil
}

// HashPassword hashes password with DefaultParams.
func HashPassword(password string) (string, error) {
	return HashPasswordWith(password, DefaultParams)
}

// HashPasswordWith hashes password with p.
func HashPasswordWith(password string, p Params) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// CheckPassword reports whether password matches hash, using the parameters
// stored in the hash. The comparison is constant-time.
func CheckPassword(password, hash string) (bool, error) {
	e, err := decode(hash)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), e.salt, e.params.Time, e.params.Memory, e.params.Threads, e.params.KeyLen)
	return subtle.ConstantTimeCompare(key, e.key) == 1, nil
}

// NeedsRehash reports whether hash was produced with parameters other than
// DefaultParams, or cannot be parsed at all.
func NeedsRehash(hash string) bool {
	e, err := decode(hash)
	if err != nil {
		return true
	}
	return e.params.Memory != DefaultParams.Memory ||
		e.params.Time != DefaultParams.Time ||
		e.params.Threads != DefaultParams.Threads
}
