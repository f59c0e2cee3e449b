package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"session_service/internal/config"
	"session_service/internal/models"
	"session_service/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) SaveUser(ctx context.Context, user models.User) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (cid, name, email, phone, password, profile)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query,
		user.LoginID,
		user.Name,
		user.Email,
		user.Phone,
		user.PassHash,
		user.Profile,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, storage.ErrUserExists
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) UserByLoginID(ctx context.Context, loginID string) (models.User, error) {
	const op = "storage.postgres.UserByLoginID"

	query := `
		SELECT id, cid, name, email, phone, password, profile, loggedin_at
		FROM users
		WHERE cid = $1;
	`

	var u models.User
	err := r.pool.QueryRow(ctx, query, loginID).Scan(
		&u.ID,
		&u.LoginID,
		&u.Name,
		&u.Email,
		&u.Phone,
		&u.PassHash,
		&u.Profile,
		&u.LoggedInAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// * ExistsByAny reports whether the login id, phone or email is already taken
func (r *PostgresRepo) ExistsByAny(ctx context.Context, loginID, phone, email string) (bool, error) {
	const op = "storage.postgres.ExistsByAny"

	query := `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE cid = $1 OR phone = $2 OR email = $3
		);
	`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, loginID, phone, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

func (r *PostgresRepo) SetLoggedInAt(ctx context.Context, userID int64, at time.Time) error {
	const op = "storage.postgres.SetLoggedInAt"

	query := `UPDATE users SET loggedin_at = $1 WHERE id = $2`

	if _, err := r.pool.Exec(ctx, query, at, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// * dsn builds the connection string from config
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
