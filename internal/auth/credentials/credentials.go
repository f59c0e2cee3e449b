package credentials

import (
	"context"
	"errors"
	"fmt"

	"session_service/internal/models"
	"session_service/internal/storage"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type UserProvider interface {
	UserByLoginID(ctx context.Context, loginID string) (models.User, error)
}

type Comparer interface {
	Compare(stored, secret string) bool
	CompareDummy(secret string)
}

type Verifier struct {
	users    UserProvider
	comparer Comparer
}

func New(users UserProvider, comparer Comparer) *Verifier {
	return &Verifier{
		users:    users,
		comparer: comparer,
	}
}

// Verify returns the user owning loginID when secret matches its digest.
// Unknown login ids still pay for a digest comparison.
func (v *Verifier) Verify(ctx context.Context, loginID, secret string) (models.User, error) {
	const op = "credentials.Verify"

	user, err := v.users.UserByLoginID(ctx, loginID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			v.comparer.CompareDummy(secret)
			return models.User{}, ErrInvalidCredentials
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if !v.comparer.Compare(user.PassHash, secret) {
		return models.User{}, ErrInvalidCredentials
	}

	return user, nil
}
