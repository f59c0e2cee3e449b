package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"session_service/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*RedisRepo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewWithClient(client), mr
}

func TestRefreshToken_SetGetDelete(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetRefreshToken(ctx, models.ClientWeb, 1, "rt-1", time.Hour))

	token, ok, err := repo.RefreshToken(ctx, models.ClientWeb, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "rt-1", token)

	require.NoError(t, repo.DeleteRefreshToken(ctx, models.ClientWeb, 1))

	_, ok, err = repo.RefreshToken(ctx, models.ClientWeb, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshToken_AbsentIsNotAnError(t *testing.T) {
	repo, _ := newTestRepo(t)

	token, ok, err := repo.RefreshToken(context.Background(), models.ClientMobile, 404)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)

	assert.NoError(t, repo.DeleteRefreshToken(context.Background(), models.ClientMobile, 404))
}

func TestRefreshToken_OverwriteKeepsNewest(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetRefreshToken(ctx, models.ClientWeb, 1, "old", time.Hour))
	require.NoError(t, repo.SetRefreshToken(ctx, models.ClientWeb, 1, "new", time.Hour))

	token, _, err := repo.RefreshToken(ctx, models.ClientWeb, 1)
	require.NoError(t, err)
	assert.Equal(t, "new", token)
}

func TestRefreshToken_ClientTypesAreIsolated(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetRefreshToken(ctx, models.ClientMobile, 1, "mobile", time.Hour))
	require.NoError(t, repo.SetRefreshToken(ctx, models.ClientWeb, 1, "web", time.Hour))
	require.NoError(t, repo.DeleteRefreshToken(ctx, models.ClientWeb, 1))

	token, ok, err := repo.RefreshToken(ctx, models.ClientMobile, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "mobile", token)
}

func TestRefreshToken_ExpiresWithTTL(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetRefreshToken(ctx, models.ClientWeb, 1, "rt", time.Minute))

	mr.FastForward(61 * time.Second)

	_, ok, err := repo.RefreshToken(ctx, models.ClientWeb, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRotateRefreshToken(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetRefreshToken(ctx, models.ClientWeb, 1, "rt-1", time.Minute))

	swapped, err := repo.RotateRefreshToken(ctx, models.ClientWeb, 1, "rt-1", "rt-2", time.Hour)
	require.NoError(t, err)
	assert.True(t, swapped)

	token, _, err := repo.RefreshToken(ctx, models.ClientWeb, 1)
	require.NoError(t, err)
	assert.Equal(t, "rt-2", token)
	assert.Equal(t, time.Hour, mr.TTL(sessionKey(models.ClientWeb, 1)))

	swapped, err = repo.RotateRefreshToken(ctx, models.ClientWeb, 1, "rt-1", "rt-3", time.Hour)
	require.NoError(t, err)
	assert.False(t, swapped, "superseded token must not rotate")

	token, _, err = repo.RefreshToken(ctx, models.ClientWeb, 1)
	require.NoError(t, err)
	assert.Equal(t, "rt-2", token)
}

func TestRotateRefreshToken_NoSession(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	swapped, err := repo.RotateRefreshToken(ctx, models.ClientWeb, 1, "rt-1", "rt-2", time.Hour)
	require.NoError(t, err)
	assert.False(t, swapped)

	_, ok, err := repo.RefreshToken(ctx, models.ClientWeb, 1)
	require.NoError(t, err)
	assert.False(t, ok, "failed rotation must not create a session")
}

func TestRotateRefreshToken_ConcurrentSingleWinner(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetRefreshToken(ctx, models.ClientMobile, 5, "shared", time.Hour))

	const n = 20

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ok, err := repo.RotateRefreshToken(ctx, models.ClientMobile, 5, "shared", "next", time.Hour)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestEmailCode_OverwriteAndExpiry(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetEmailCode(ctx, "Alice@Example.com", "FIRST", 5*time.Minute))
	require.NoError(t, repo.SetEmailCode(ctx, "alice@example.com", "SECOND", 5*time.Minute))

	code, ok, err := repo.EmailCode(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "SECOND", code)

	mr.FastForward(5*time.Minute + time.Second)

	_, ok, err = repo.EmailCode(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPing(t *testing.T) {
	repo, _ := newTestRepo(t)

	assert.NoError(t, repo.Ping(context.Background()))
}
