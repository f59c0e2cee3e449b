package digest

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeSHA256 = "sha256"
	SchemeBcrypt = "bcrypt"
)

var ErrUnknownScheme = errors.New("unknown digest scheme")

// Hasher produces and checks password digests. Stored digests are either
// lowercase hex SHA-256 or bcrypt ("$2a$"/"$2b$"/"$2y$" prefix).
type Hasher struct {
	scheme      string
	dummyScheme string
	dummy       string
}

type Option func(*Hasher)

// WithDummyScheme sets the scheme of the digest compared for unknown users.
// It should match what most stored digests use, which can differ from the
// scheme written for new accounts while old rows are migrated.
func WithDummyScheme(scheme string) Option {
	return func(h *Hasher) {
		h.dummyScheme = scheme
	}
}

func New(scheme string, opts ...Option) (*Hasher, error) {
	const op = "digest.New"

	h := &Hasher{scheme: scheme, dummyScheme: scheme}
	for _, opt := range opts {
		opt(h)
	}

	for _, s := range []string{h.scheme, h.dummyScheme} {
		if s != SchemeSHA256 && s != SchemeBcrypt {
			return nil, fmt.Errorf("%s: %w: %q", op, ErrUnknownScheme, s)
		}
	}

	dummy, err := hash(h.dummyScheme, "dummy-password-for-missing-users")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	h.dummy = dummy

	return h, nil
}

func (h *Hasher) Hash(secret string) (string, error) {
	return hash(h.scheme, secret)
}

func hash(scheme, secret string) (string, error) {
	if scheme == SchemeBcrypt {
		b, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	return SHA256Hex(secret), nil
}

// Compare reports whether secret matches stored in constant time.
func (h *Hasher) Compare(stored, secret string) bool {
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
	}

	got := SHA256Hex(secret)

	return subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(got)) == 1
}

// CompareDummy burns the same work as a real comparison against a stored
// digest of the dummy scheme. Used when the user does not exist.
func (h *Hasher) CompareDummy(secret string) {
	_ = h.Compare(h.dummy, secret)
}

func SHA256Hex(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func isBcrypt(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}
