package jwt

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"session_service/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrBadSignature     = errors.New("token signature mismatch")
	ErrTokenExpired     = errors.New("token expired")
	ErrUnsupportedToken = errors.New("unsupported token")
)

type claims struct {
	UserID   int64  `json:"userId"`
	FcmToken string `json:"fcmToken,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and parses HS256 tokens. Access and refresh tokens differ only
// in subject and TTL.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type Option func(*Codec)

// WithClock replaces time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func New(secret string, accessTTL, refreshTTL time.Duration, opts ...Option) *Codec {
	c := &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// NewPair issues an access and a refresh token bound to the same device.
func (c *Codec) NewPair(userID int64, fcmToken string) (models.TokenPair, error) {
	access, err := c.Issue(models.AccessToken, userID, fcmToken, c.accessTTL)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, err := c.Issue(models.RefreshToken, userID, fcmToken, c.refreshTTL)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (c *Codec) Issue(kind models.TokenKind, userID int64, fcmToken string, ttl time.Duration) (string, error) {
	const op = "jwt.Issue"

	now := c.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:   userID,
		FcmToken: fcmToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(kind),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Parse verifies signature and expiry and returns the payload.
func (c *Codec) Parse(tokenStr string) (models.TokenPayload, error) {
	return c.parse(tokenStr, true)
}

// ParseAllowExpired verifies the signature but accepts tokens past their exp.
func (c *Codec) ParseAllowExpired(tokenStr string) (models.TokenPayload, error) {
	return c.parse(tokenStr, false)
}

func (c *Codec) parse(tokenStr string, checkExpiry bool) (models.TokenPayload, error) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return models.TokenPayload{}, ErrMalformedToken
	}

	for _, seg := range parts[:2] {
		raw, err := base64.RawURLEncoding.Strict().DecodeString(seg)
		if err != nil || !json.Valid(raw) {
			return models.TokenPayload{}, ErrMalformedToken
		}
	}

	// The signature segment is checked here so a flipped final char with
	// stray trailing bits reads as a bad signature, not a malformed token.
	if _, err := base64.RawURLEncoding.Strict().DecodeString(parts[2]); err != nil {
		return models.TokenPayload{}, ErrBadSignature
	}

	opts := []jwt.ParserOption{
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	}
	if !checkExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var cl claims

	_, err := jwt.ParseWithClaims(tokenStr, &cl, c.keyFunc, opts...)
	if err != nil {
		return models.TokenPayload{}, classify(err)
	}

	kind := models.TokenKind(cl.Subject)
	if kind != models.AccessToken && kind != models.RefreshToken {
		return models.TokenPayload{}, ErrUnsupportedToken
	}
	if cl.UserID == 0 || cl.ExpiresAt == nil || cl.IssuedAt == nil {
		return models.TokenPayload{}, ErrUnsupportedToken
	}

	return models.TokenPayload{
		Kind:      kind,
		UserID:    cl.UserID,
		FcmToken:  cl.FcmToken,
		IssuedAt:  cl.IssuedAt.Time,
		ExpiresAt: cl.ExpiresAt.Time,
	}, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("%w: signing method %v", ErrUnsupportedToken, t.Header["alg"])
	}

	return c.secret, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnsupportedToken), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrUnsupportedToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformedToken
	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedToken, err)
	}
}
