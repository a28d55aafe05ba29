// Package hash hashes and verifies passwords with argon2id, encoding results
// in the PHC string format:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>
//
// Salt and key are base64 without padding. Verify also accepts bcrypt hashes
// so accounts created with it keep working.
package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var ErrMalformedHash = errors.New("malformed hash")

type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultParams = &Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

var b64 = base64.RawStdEncoding

// Hash derives an argon2id key for plain with DefaultParams and a random salt.
func Hash(plain string) (string, error) {
	return HashWithParams(plain, DefaultParams)
}

func HashWithParams(plain string, p *Params) (string, error) {
	if p == nil {
		p = DefaultParams
	}
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "generate salt")
	}
	key := argon2.IDKey([]byte(plain), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key),
	), nil
}

// Verify reports whether plain matches encoded. A malformed encoding is an
// error; a mismatch is not.
func Verify(encoded, plain string) (bool, error) {
	if strings.HasPrefix(encoded, "$2a$") || strings.HasPrefix(encoded, "$2b$") || strings.HasPrefix(encoded, "$2y$") {
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, errors.Wrap(ErrMalformedHash, err.Error())
		}
	}

	p, salt, key, err := decode(encoded)
	if err != nil {
		return false, err
	}
	other := argon2.IDKey([]byte(plain), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
	return subtle.ConstantTimeCompare(key, other) == 1, nil
}

// NeedsRehash reports whether encoded was produced with parameters other
// than p, or with a different algorithm.
func NeedsRehash(encoded string, p *Params) bool {
	got, salt, _, err := decode(encoded)
	if err != nil {
		return true
	}
	return got.Memory != p.Memory || got.Iterations != p.Iterations ||
		got.Parallelism != p.Parallelism || got.KeyLength != p.KeyLength ||
		uint32(len(salt)) != p.SaltLength
}

// maxParams bounds the cost a stored hash may ask Verify to pay.
var maxParams = Params{
	Memory:      4 * DefaultParams.Memory,
	Iterations:  4 * DefaultParams.Iterations,
	Parallelism: 4 * DefaultParams.Parallelism,
}

func decode(encoded string) (*Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, nil, nil, ErrMalformedHash
	}
	if parts[1] != "argon2id" {
		return nil, nil, nil, errors.Wrapf(ErrMalformedHash, "unsupported algorithm %q", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, errors.Wrap(ErrMalformedHash, "version")
	}
	if version != argon2.Version {
		return nil, nil, nil, errors.Wrapf(ErrMalformedHash, "unsupported version %d", version)
	}

	p := &Params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return nil, nil, nil, errors.Wrap(ErrMalformedHash, "parameters")
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return nil, nil, nil, errors.Wrap(ErrMalformedHash, "parameters")
	}
	if p.Memory > maxParams.Memory || p.Iterations > maxParams.Iterations || p.Parallelism > maxParams.Parallelism {
		return nil, nil, nil, errors.Wrapf(ErrMalformedHash, "parameters above limit m=%d,t=%d,p=%d", maxParams.Memory, maxParams.Iterations, maxParams.Parallelism)
	}

	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, errors.Wrap(ErrMalformedHash, "salt")
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, nil, nil, errors.Wrap(ErrMalformedHash, "key")
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))
	return p, salt, key, nil
}
