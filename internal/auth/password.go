package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/brightlock/idgateway/internal/gatewayerr"
)

// PasswordHasher defines the contract for password operations. This
// interface allows mocking hashing in tests or swapping algorithms.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, stored string) (bool, error)
}

// Argon2Hasher implements PasswordHasher using Argon2id, a memory-hard KDF.
// Parameters are embedded in the stored string so they can be tuned over
// time without invalidating existing hashes.
type Argon2Hasher struct {
	time    uint32
	memory  uint32 // KiB
	threads uint8
	keyLen  uint32
	saltLen uint32
}

// NewArgon2Hasher creates a hasher with interactive-login-friendly
// defaults (OWASP minimum: 19 MiB memory is the floor; this uses a larger
// working set since the gateway is not latency-critical per request).
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{
		time:    1,
		memory:  64 * 1024,
		threads: 4,
		keyLen:  32,
		saltLen: 16,
	}
}

// encoded form: argon2id$v=19$m=<mem>,t=<time>,p=<threads>$<salt-b64>$<hash-b64>
const hashFormat = "argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"

// Hash derives and encodes a password hash with a fresh random salt.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to read random salt: %w", err)
	}
	sum := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, h.keyLen)
	return fmt.Sprintf(hashFormat, argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum)), nil
}

// Verify reports whether password matches the stored hash. A malformed
// stored hash is an Internal error; a mismatch is simply false, never an
// error, per the hasher's contract.
func (h *Argon2Hasher) Verify(password, stored string) (bool, error) {
	var version int
	var mem, timeCost uint32
	var threads uint8
	var saltB64, hashB64 string

	parts := strings.Split(stored, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return false, gatewayerr.New(gatewayerr.Internal, "malformed password hash")
	}
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil {
		return false, gatewayerr.Wrap(gatewayerr.Internal, "malformed password hash", err)
	}
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &mem, &timeCost, &threads); err != nil {
		return false, gatewayerr.Wrap(gatewayerr.Internal, "malformed password hash", err)
	}
	saltB64, hashB64 = parts[3], parts[4]

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false, gatewayerr.Wrap(gatewayerr.Internal, "malformed password hash", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(hashB64)
	if err != nil {
		return false, gatewayerr.Wrap(gatewayerr.Internal, "malformed password hash", err)
	}

	got := argon2.IDKey([]byte(password), salt, timeCost, mem, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// dummyHash is a precomputed hash with no known plaintext, used to keep the
// login path's latency comparable whether or not the username exists, so
// response timing cannot be used to enumerate accounts.
var dummyHash = mustDummyHash()

func mustDummyHash() string {
	h, err := NewArgon2Hasher().Hash("idgateway-dummy-password-for-timing-parity")
	if err != nil {
		panic(err)
	}
	return h
}

// VerifyDummy runs a verification against a fixed, unusable hash so that the
// absent-user login path spends comparable time to the present-user path.
func (h *Argon2Hasher) VerifyDummy(password string) {
	_, _ = h.Verify(password, dummyHash)
}
