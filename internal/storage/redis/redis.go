package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notes_service/internal/models"
	"notes_service/internal/storage"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

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

	return &RedisRepo{
		client: client,
	}, nil
}

type refreshTokenRecord struct {
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// * SaveRefreshToken сохраняет отпечаток выданного refresh токена.
// TTL ключа удаляет просроченные невостребованные записи.
func (r *RedisRepo) SaveRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	const op = "storage.redis.SaveRefreshToken"

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	record := refreshTokenRecord{
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	key := refreshKey(userID, tokenHash)

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * ConsumeRefreshToken атомарно находит и удаляет запись (GETDEL).
// Из двух конкурентных вызовов с одним токеном успешен максимум один,
// второй получает ErrRefreshTokenNotFound.
func (r *RedisRepo) ConsumeRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string) (models.RefreshToken, error) {
	const op = "storage.redis.ConsumeRefreshToken"

	key := refreshKey(userID, tokenHash)

	data, err := r.client.GetDel(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
		}

		return models.RefreshToken{}, fmt.Errorf("%s: %w", op, err)
	}

	var record refreshTokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return models.RefreshToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: record.ExpiresAt,
		CreatedAt: record.CreatedAt,
	}, nil
}

// * Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}

func refreshKey(userID uuid.UUID, tokenHash string) string {
	return fmt.Sprintf("refresh:%s:%s", userID, tokenHash)
}
