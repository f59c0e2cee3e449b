package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"session_service/internal/auth/credentials"
	"session_service/internal/device"
	sl "session_service/internal/lib/logger/sl"
	"session_service/internal/lib/verification"
	"session_service/internal/models"
	"session_service/internal/storage"
)

var (
	ErrInvalidCredentials   = credentials.ErrInvalidCredentials
	ErrUnauthorized         = errors.New("unauthorized")
	ErrUpstreamCoordination = errors.New("upstream coordination error")
	ErrPersistence          = errors.New("persistence error")
	ErrMailDispatch         = errors.New("mail dispatch failed")
	ErrUserExists           = errors.New("user already exists")
)

const emptyProfile = `{"profile":null}`

type CredentialVerifier interface {
	Verify(ctx context.Context, loginID, secret string) (models.User, error)
}

type TokenCodec interface {
	NewPair(userID int64, fcmToken string) (models.TokenPair, error)
	Parse(token string) (models.TokenPayload, error)
	ParseAllowExpired(token string) (models.TokenPayload, error)
	RefreshTTL() time.Duration
}

type SessionStore interface {
	SetRefreshToken(ctx context.Context, clientType models.ClientType, userID int64, token string, ttl time.Duration) error
	RefreshToken(ctx context.Context, clientType models.ClientType, userID int64) (string, bool, error)
	DeleteRefreshToken(ctx context.Context, clientType models.ClientType, userID int64) error
	RotateRefreshToken(ctx context.Context, clientType models.ClientType, userID int64, oldToken, newToken string, ttl time.Duration) (bool, error)
}

type CodeStore interface {
	SetEmailCode(ctx context.Context, email, code string, ttl time.Duration) error
	EmailCode(ctx context.Context, email string) (string, bool, error)
}

type UserSaver interface {
	ExistsByAny(ctx context.Context, loginID, phone, email string) (bool, error)
	SaveUser(ctx context.Context, user models.User) (int64, error)
	SetLoggedInAt(ctx context.Context, userID int64, at time.Time) error
}

type PasswordHasher interface {
	Hash(secret string) (string, error)
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

type Auth struct {
	log          *slog.Logger
	verifier     CredentialVerifier
	tokens       TokenCodec
	sessions     SessionStore
	codes        CodeStore
	usrSaver     UserSaver
	hasher       PasswordHasher
	devices      device.Coordinator
	mail         Publisher
	emailCodeTTL time.Duration
	now          func() time.Time
}

func New(
	log *slog.Logger,
	verifier CredentialVerifier,
	tokens TokenCodec,
	sessions SessionStore,
	codes CodeStore,
	userSaver UserSaver,
	hasher PasswordHasher,
	devices device.Coordinator,
	mail Publisher,
	emailCodeTTL time.Duration,
) *Auth {
	return &Auth{
		log:          log,
		verifier:     verifier,
		tokens:       tokens,
		sessions:     sessions,
		codes:        codes,
		usrSaver:     userSaver,
		hasher:       hasher,
		devices:      devices,
		mail:         mail,
		emailCodeTTL: emailCodeTTL,
		now:          time.Now,
	}
}

// WithClock is used by tests to pin the time reported for code expiry and loggedInAt.
func (a *Auth) WithClock(now func() time.Time) *Auth {
	a.now = now
	return a
}

// * SignIn verifies credentials, coordinates the device with the push and
// chat services and only then commits the refresh token.
func (a *Auth) SignIn(
	ctx context.Context,
	client models.ClientInfo,
	loginID, password, fcmToken string,
) (models.TokenPair, error) {
	const op = "auth.SignIn"

	log := a.log.With(
		slog.String("op", op),
		slog.String("client_type", client.Type.String()),
	)

	user, err := a.verifier.Verify(ctx, loginID, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			log.Info("invalid credentials")
			return models.TokenPair{}, ErrInvalidCredentials
		}

		log.Error("failed to load user", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
	}

	log = log.With(slog.Int64("uid", user.ID))

	pair, err := a.tokens.NewPair(user.ID, fcmToken)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.devices.NotifyFcmTokenChanged(ctx, user.ID, fcmToken, client); err != nil {
		log.Error("push service rejected fcm token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w: %w", op, ErrUpstreamCoordination, err)
	}

	err = a.devices.NotifyOtherDevicesEvicted(ctx, user.ID, fcmToken, client.Type, pair.AccessToken)
	if err != nil {
		log.Error("chat service rejected eviction", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w: %w", op, ErrUpstreamCoordination, err)
	}

	err = a.sessions.SetRefreshToken(ctx, client.Type, user.ID, pair.RefreshToken, a.tokens.RefreshTTL())
	if err != nil {
		log.Error("failed to store refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.usrSaver.SetLoggedInAt(ctx, user.ID, a.now()); err != nil {
		log.Warn("failed to record login time", sl.Err(err))
	}

	log.Info("user signed in")

	return pair, nil
}

// * SignUp stores a new user with a digested password
func (a *Auth) SignUp(ctx context.Context, in models.SignupInput) (models.User, error) {
	const op = "auth.SignUp"

	log := a.log.With(
		slog.String("op", op),
	)

	exists, err := a.usrSaver.ExistsByAny(ctx, in.LoginID, in.Phone, in.Email)
	if err != nil {
		log.Error("failed to check existing users", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
	}
	if exists {
		log.Info("user already exists")
		return models.User{}, ErrUserExists
	}

	passHash, err := a.hasher.Hash(in.Password)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		LoginID:  in.LoginID,
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		PassHash: passHash,
		Profile:  emptyProfile,
	}

	id, err := a.usrSaver.SaveUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Info("user already exists")
			return models.User{}, ErrUserExists
		}

		log.Error("failed to save user", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
	}

	user.ID = id

	log.Info("user registered", slog.Int64("uid", id))

	return user, nil
}

// * SignOut drops the session named by the refresh token. Expired tokens are
// accepted and an unknown or unreadable token is not an error.
func (a *Auth) SignOut(ctx context.Context, clientType models.ClientType, refreshToken string) error {
	const op = "auth.SignOut"

	log := a.log.With(
		slog.String("op", op),
		slog.String("client_type", clientType.String()),
	)

	if refreshToken == "" {
		log.Debug("no refresh token presented")
		return nil
	}

	payload, err := a.tokens.ParseAllowExpired(refreshToken)
	if err != nil {
		log.Warn("unreadable refresh token on sign out", sl.Err(err))
		return nil
	}
	if payload.Kind != models.RefreshToken {
		log.Warn("token is not a refresh token", slog.String("kind", string(payload.Kind)))
		return nil
	}

	if err := a.sessions.DeleteRefreshToken(ctx, clientType, payload.UserID); err != nil {
		log.Error("failed to delete session", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user signed out", slog.Int64("uid", payload.UserID))

	return nil
}

// * Reissue rotates the session: the presented refresh token must equal the
// stored one and is replaced in the same step.
func (a *Auth) Reissue(ctx context.Context, clientType models.ClientType, refreshToken string) (models.TokenPair, error) {
	const op = "auth.Reissue"

	log := a.log.With(
		slog.String("op", op),
		slog.String("client_type", clientType.String()),
	)

	if refreshToken == "" {
		log.Warn("refresh token header missing")
		return models.TokenPair{}, ErrUnauthorized
	}

	payload, err := a.tokens.Parse(refreshToken)
	if err != nil {
		log.Warn("invalid refresh token", sl.Err(err))
		return models.TokenPair{}, ErrUnauthorized
	}
	if payload.Kind != models.RefreshToken {
		log.Warn("token is not a refresh token", slog.String("kind", string(payload.Kind)))
		return models.TokenPair{}, ErrUnauthorized
	}

	log = log.With(slog.Int64("uid", payload.UserID))

	pair, err := a.tokens.NewPair(payload.UserID, payload.FcmToken)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	rotated, err := a.sessions.RotateRefreshToken(
		ctx,
		clientType,
		payload.UserID,
		refreshToken,
		pair.RefreshToken,
		a.tokens.RefreshTTL(),
	)
	if err != nil {
		log.Error("failed to rotate refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if !rotated {
		log.Warn("refresh token does not match active session")
		return models.TokenPair{}, ErrUnauthorized
	}

	log.Info("tokens reissued")

	return pair, nil
}

// * IssueEmailCode mails a fresh code and returns when it stops being valid
func (a *Auth) IssueEmailCode(ctx context.Context, email string) (time.Time, error) {
	const op = "auth.IssueEmailCode"

	log := a.log.With(
		slog.String("op", op),
	)

	code, err := verification.GenerateCode(verification.CodeLength)
	if err != nil {
		log.Error("failed to generate code", sl.Err(err))
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	expiresAt := a.now().Add(a.emailCodeTTL)

	if err := a.codes.SetEmailCode(ctx, email, code, a.emailCodeTTL); err != nil {
		log.Error("failed to store code", sl.Err(err))
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	msg, err := verification.CodeMessage(email, code)
	if err != nil {
		log.Error("failed to render mail", sl.Err(err))
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.mail.SendMessage(ctx, msg); err != nil {
		log.Error("failed to queue mail", sl.Err(err))
		return time.Time{}, fmt.Errorf("%s: %w: %w", op, ErrMailDispatch, err)
	}

	log.Info("verification code issued")

	return expiresAt, nil
}

// * CheckEmailCode compares against the latest code. The code is not consumed.
func (a *Auth) CheckEmailCode(ctx context.Context, email, code string) (bool, error) {
	const op = "auth.CheckEmailCode"

	stored, ok, err := a.codes.EmailCode(ctx, email)
	if err != nil {
		a.log.Error("failed to read code", slog.String("op", op), sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok || code == "" {
		return false, nil
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1, nil
}

// * CheckLastDevice reports whether the caller's device is the one that
// signed in most recently for its client type. Devices without an fcm token
// share the empty identity and match each other.
func (a *Auth) CheckLastDevice(ctx context.Context, clientType models.ClientType, accessToken string) (bool, error) {
	const op = "auth.CheckLastDevice"

	log := a.log.With(
		slog.String("op", op),
		slog.String("client_type", clientType.String()),
	)

	if accessToken == "" {
		return false, ErrUnauthorized
	}

	current, err := a.tokens.Parse(accessToken)
	if err != nil {
		log.Warn("invalid access token", sl.Err(err))
		return false, ErrUnauthorized
	}
	if current.Kind != models.AccessToken {
		log.Warn("token is not an access token", slog.String("kind", string(current.Kind)))
		return false, ErrUnauthorized
	}

	stored, ok, err := a.sessions.RefreshToken(ctx, clientType, current.UserID)
	if err != nil {
		log.Error("failed to read session", sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return false, nil
	}

	last, err := a.tokens.ParseAllowExpired(stored)
	if err != nil {
		log.Warn("stored refresh token unreadable", sl.Err(err))
		return false, nil
	}

	return current.FcmToken == last.FcmToken, nil
}
