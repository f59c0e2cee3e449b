package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"session_service/internal/models"

	"github.com/redis/go-redis/v9"
)

// rotateScript swaps the stored refresh token only if it still holds the
// presented one, so concurrent reissues with the same token have one winner.
var rotateScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithClient(client), nil
}

func NewWithClient(client *redis.Client) *RedisRepo {
	return &RedisRepo{
		client: client,
	}
}

func sessionKey(clientType models.ClientType, userID int64) string {
	return fmt.Sprintf("session:%s:%d", clientType, userID)
}

func emailCodeKey(email string) string {
	return "email_code:" + strings.ToLower(strings.TrimSpace(email))
}

// * SetRefreshToken overwrites the session for (clientType, userID)
func (r *RedisRepo) SetRefreshToken(ctx context.Context, clientType models.ClientType, userID int64, token string, ttl time.Duration) error {
	const op = "storage.redis.SetRefreshToken"

	if err := r.client.Set(ctx, sessionKey(clientType, userID), token, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * RefreshToken returns ok=false when no session is active
func (r *RedisRepo) RefreshToken(ctx context.Context, clientType models.ClientType, userID int64) (string, bool, error) {
	const op = "storage.redis.RefreshToken"

	token, err := r.client.Get(ctx, sessionKey(clientType, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	return token, true, nil
}

func (r *RedisRepo) DeleteRefreshToken(ctx context.Context, clientType models.ClientType, userID int64) error {
	const op = "storage.redis.DeleteRefreshToken"

	if err := r.client.Del(ctx, sessionKey(clientType, userID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * RotateRefreshToken replaces oldToken with newToken atomically.
// Returns false if the stored value is absent or differs from oldToken.
func (r *RedisRepo) RotateRefreshToken(
	ctx context.Context,
	clientType models.ClientType,
	userID int64,
	oldToken, newToken string,
	ttl time.Duration,
) (bool, error) {
	const op = "storage.redis.RotateRefreshToken"

	swapped, err := rotateScript.Run(
		ctx,
		r.client,
		[]string{sessionKey(clientType, userID)},
		oldToken, newToken, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return swapped == 1, nil
}

// * SetEmailCode replaces any pending code for the email
func (r *RedisRepo) SetEmailCode(ctx context.Context, email, code string, ttl time.Duration) error {
	const op = "storage.redis.SetEmailCode"

	if err := r.client.Set(ctx, emailCodeKey(email), code, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) EmailCode(ctx context.Context, email string) (string, bool, error) {
	const op = "storage.redis.EmailCode"

	code, err := r.client.Get(ctx, emailCodeKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	return code, true, nil
}

func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// * Close closes the redis connection pool
func (r *RedisRepo) Close() {
	r.client.Close()
}
