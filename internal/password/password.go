// Package password hashes account passwords with argon2id.
//
// Hashes are stored as "<base64 salt>$<base64 key>". The cost parameters are
// read from viper (argon2.*) at call time; a zero value falls back to the
// package default so a missing config never produces a degenerate hash.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

type params struct {
	time       uint32
	memory     uint32
	threads    uint8
	keyLength  uint32
	saltLength int
}

func currentParams() params {
	return params{
		time:       uint32(intOr("argon2.time", 1)),
		memory:     uint32(intOr("argon2.memory", 64*1024)),
		threads:    uint8(intOr("argon2.threads", 4)),
		keyLength:  uint32(intOr("argon2.key_length", 32)),
		saltLength: intOr("argon2.salt_length", 16),
	}
}

func intOr(key string, fallback int) int {
	if v := viper.GetInt(key); v > 0 {
		return v
	}
	return fallback
}

// Hash returns a salted argon2id hash of plain.
func Hash(plain string) (string, error) {
	p := currentParams()

	salt := make([]byte, p.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.threads, p.keyLength)
	return fmt.Sprintf("%s$%s",
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key)), nil
}

// Verify reports whether plain matches hashed.
func Verify(plain, hashed string) bool {
	parts := strings.Split(hashed, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	expected, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(expected) == 0 {
		return false
	}

	p := currentParams()
	computed := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
