package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notes_service/internal/config"
	"notes_service/internal/models"
	"notes_service/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
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

func (r *PostgresRepo) SaveUser(ctx context.Context, email string, passHash []byte) (uuid.UUID, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id;
	`

	var id uuid.UUID

	err := r.pool.QueryRow(ctx, query, uuid.New(), email, passHash).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, storage.ErrUserExists
		}

		return uuid.Nil, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) User(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT id, email, password_hash
		FROM users
		WHERE email = $1;
	`

	row := r.pool.QueryRow(ctx, query, email)

	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PassHash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, err
}

func (r *PostgresRepo) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	query := `
		SELECT id, email, password_hash
		FROM users
		WHERE id = $1;
	`

	row := r.pool.QueryRow(ctx, query, id)

	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PassHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, err
}

func (r *PostgresRepo) SaveNote(ctx context.Context, ownerID uuid.UUID, title, content string) (models.Note, error) {
	const op = "storage.postgres.SaveNote"

	query := `
		INSERT INTO notes (id, owner_id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id, owner_id, title, content, created_at, updated_at;
	`

	var n models.Note
	err := r.pool.QueryRow(ctx, query, uuid.New(), ownerID, title, content, time.Now().UTC()).Scan(
		&n.ID,
		&n.OwnerID,
		&n.Title,
		&n.Content,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return models.Note{}, fmt.Errorf("%s: failed to save note: %w", op, err)
	}

	return n, nil
}

func (r *PostgresRepo) NotesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Note, error) {
	const op = "storage.postgres.NotesByOwner"

	query := `
		SELECT id, owner_id, title, content, created_at, updated_at
		FROM notes
		WHERE owner_id = $1
		ORDER BY updated_at DESC;
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	notes := []models.Note{}

	for rows.Next() {
		var n models.Note

		err := rows.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		notes = append(notes, n)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return notes, nil
}

func (r *PostgresRepo) Note(ctx context.Context, id, ownerID uuid.UUID) (models.Note, error) {
	query := `
		SELECT id, owner_id, title, content, created_at, updated_at
		FROM notes
		WHERE id = $1 AND owner_id = $2;
	`

	var n models.Note
	err := r.pool.QueryRow(ctx, query, id, ownerID).Scan(
		&n.ID,
		&n.OwnerID,
		&n.Title,
		&n.Content,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Note{}, storage.ErrNoteNotFound
	}

	return n, err
}

func (r *PostgresRepo) UpdateNote(ctx context.Context, id, ownerID uuid.UUID, title, content string) (models.Note, error) {
	query := `
		UPDATE notes
		SET title = $1, content = $2, updated_at = $3
		WHERE id = $4 AND owner_id = $5
		RETURNING id, owner_id, title, content, created_at, updated_at;
	`

	var n models.Note
	err := r.pool.QueryRow(ctx, query, title, content, time.Now().UTC(), id, ownerID).Scan(
		&n.ID,
		&n.OwnerID,
		&n.Title,
		&n.Content,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Note{}, storage.ErrNoteNotFound
	}

	return n, err
}

func (r *PostgresRepo) DeleteNote(ctx context.Context, id, ownerID uuid.UUID) error {
	const op = "storage.postgres.DeleteNote"

	query := `DELETE FROM notes WHERE id = $1 AND owner_id = $2`

	tag, err := r.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrNoteNotFound
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// * dsn формирует конфигурацию базы данных.
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
