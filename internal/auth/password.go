// Package auth provides password hashing and the signed tokens used for
// wallet pass downloads.
//
// Passwords are hashed with argon2id — a memory-hard function, so cracking
// rigs can't lean on GPU parallelism the way they can against bcrypt or
// plain SHA variants. Each hash gets a fresh random salt and is stored in
// PHC string format:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<base64 salt>$<base64 hash>
//
// The parameters are embedded in the string, so they can be raised later
// without invalidating existing hashes.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Default parameters follow the current OWASP recommendation for argon2id:
// 19 MiB of memory, 2 iterations, 1 lane.
const (
	defaultMemory  = 19 * 1024 // KiB
	defaultTime    = 2
	defaultThreads = 1
	saltLength     = 16
	keyLength      = 32
)

// PasswordService hashes and verifies passwords. Parameters are struct
// fields (not package constants referenced directly) so tests can dial the
// memory cost down without weakening production defaults.
type PasswordService struct {
	memory  uint32
	time    uint32
	threads uint8
}

func NewPasswordService() *PasswordService {
	return &PasswordService{
		memory:  defaultMemory,
		time:    defaultTime,
		threads: defaultThreads,
	}
}

// NewPasswordServiceForTest returns a service with the minimum argon2
// parameters. Hashing at production cost takes tens of milliseconds and
// adds up across a test suite. Never use outside tests.
func NewPasswordServiceForTest() *PasswordService {
	return &PasswordService{memory: 8, time: 1, threads: 1}
}

// Hash derives an argon2id hash of plaintext with a freshly generated salt
// and returns the PHC-encoded string for storage.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, p.time, p.memory, p.threads, keyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.memory,
		p.time,
		p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify recomputes the hash of plaintext using the salt and parameters
// embedded in the stored PHC string and compares in constant time.
// Returns nil on a match, a non-nil error otherwise.
func (p *PasswordService) Verify(encoded, plaintext string) error {
	memory, time, threads, salt, key, err := decodeHash(encoded)
	if err != nil {
		return err
	}

	candidate := argon2.IDKey([]byte(plaintext), salt, time, memory, threads, uint32(len(key)))

	if subtle.ConstantTimeCompare(key, candidate) != 1 {
		return fmt.Errorf("auth: invalid password")
	}
	return nil
}

// decodeHash parses a PHC argon2id string into its parameters, salt, and
// derived key.
func decodeHash(encoded string) (memory, time uint32, threads uint8, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, fmt.Errorf("auth: malformed password hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("auth: malformed hash version: %w", err)
	}
	if version != argon2.Version {
		return 0, 0, 0, nil, nil, fmt.Errorf("auth: unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("auth: malformed hash parameters: %w", err)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("auth: decoding salt: %w", err)
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("auth: decoding key: %w", err)
	}

	return memory, time, threads, salt, key, nil
}
