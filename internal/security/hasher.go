/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/tech7infopro-dev/AHMEDTECH/internal/config"
	"golang.org/x/crypto/pbkdf2"
)

// Credential is a derived password hash together with the salt used to derive it.
// Both are hex strings so they can travel inside json documents as-is.
type Credential struct {
	Hash string `json:"hash"`
	Salt string `json:"salt"`
}

// Hasher derives and verifies password credentials with PBKDF2-SHA256
type Hasher struct {
	iterations int
	keyLen     int
	saltLen    int
}

func NewHasher(cfg config.PBKDF2Config) *Hasher {
	return &Hasher{
		iterations: cfg.Iterations,
		keyLen:     cfg.KeyLength,
		saltLen:    cfg.SaltLength,
	}
}

// Hash derives a fresh credential for the given password, generating a new random salt.
// When successful, error is nil
func (h *Hasher) Hash(password string) (Credential, error) {
	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return Credential{}, err
	}
	key := pbkdf2.Key([]byte(password), salt, h.iterations, h.keyLen, sha256.New)
	return Credential{
		Hash: hex.EncodeToString(key),
		Salt: hex.EncodeToString(salt),
	}, nil
}

// HashWith re-derives a credential using an already known salt (hex).
// Used when checking a password against a stored credential
func (h *Hasher) HashWith(password, saltHex string) (string, error) {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(password), salt, h.iterations, h.keyLen, sha256.New)
	return hex.EncodeToString(key), nil
}

// Verify tells whether the password matches the stored credential. A malformed
// credential simply does not match, the caller never has to handle an error here
func (h *Hasher) Verify(password string, cred Credential) bool {
	derived, err := h.HashWith(password, cred.Salt)
	if err != nil {
		return false
	}
	return ConstantTimeEquals(derived, cred.Hash)
}

// ConstantTimeEquals compares two strings in constant time. Strings of
// different length are never equal
func ConstantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
