package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"notes_service/internal/lib/hash"
	"notes_service/internal/lib/jwt"
	sl "notes_service/internal/lib/logger"
	"notes_service/internal/models"
	"notes_service/internal/storage"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrTokenNotRecognised  = errors.New("refresh token is not recognised")
	ErrUserNotFound        = errors.New("user not found")
)

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	tokenStore  TokenStore
	tokens      *jwt.Manager
}

type UserSaver interface {
	SaveUser(ctx context.Context, email string, passHash []byte) (uuid.UUID, error)
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

type TokenStore interface {
	SaveRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error

	// ConsumeRefreshToken ищет и удаляет запись одной атомарной операцией.
	ConsumeRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string) (models.RefreshToken, error)
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	tokenStore TokenStore,
	tokens *jwt.Manager,
) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		tokenStore:  tokenStore,
		tokens:      tokens,
	}
}

func (a *Auth) Register(
	ctx context.Context,
	email string,
	pass string,
) (models.User, error) {
	const op = "auth.Register"

	log := a.log.With(
		slog.String("op", op),
	)

	log.Info("registering new user")

	email = strings.TrimSpace(email)

	passHash, err := hash.Password(pass)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.usrSaver.SaveUser(ctx, email, passHash)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")

			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("failed to save user", sl.Err(err))

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("uid", id.String()))

	return models.User{ID: id, Email: email, PassHash: passHash}, nil
}

// Login проверяет учетные данные и возвращает пару access/refresh токенов.
// Неизвестный email и неверный пароль неразличимы для вызывающего.
func (a *Auth) Login(
	ctx context.Context,
	email, password string,
) (accessToken string, refreshToken string, err error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return "", "", ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	if !hash.VerifyPassword(password, user.PassHash) {
		log.Info("invalid credentials")
		return "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err = a.issueTokenPair(ctx, user.ID)
	if err != nil {
		log.Error("failed to issue token pair", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.String("uid", user.ID.String()))

	return accessToken, refreshToken, nil
}

// Refresh меняет валидный refresh токен на новую пару токенов.
// Запись в хранилище сжигается, повторное использование того же
// токена отклоняется с ErrTokenNotRecognised.
func (a *Auth) Refresh(
	ctx context.Context,
	rawRefreshToken string,
) (string, string, error) {
	const op = "auth.Refresh"

	log := a.log.With(
		slog.String("op", op),
	)

	claims, err := a.tokens.Verify(rawRefreshToken)
	if err != nil || claims.Type != jwt.TypeRefresh {
		log.Warn("invalid refresh token")
		return "", "", ErrInvalidRefreshToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		log.Warn("invalid subject in refresh token")
		return "", "", ErrInvalidRefreshToken
	}

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user from refresh token not found")
			return "", "", ErrUserNotFound
		}

		log.Error("failed to load user", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	rt, err := a.tokenStore.ConsumeRefreshToken(ctx, user.ID, hash.TokenDigest(rawRefreshToken))
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			log.Warn("refresh token not recognised")
			return "", "", ErrTokenNotRecognised
		}

		log.Error("failed to consume refresh token", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	// Хранилище чистит просроченные записи само, но с задержкой.
	if rt.IsExpired() {
		log.Warn("refresh token record expired")
		return "", "", ErrTokenNotRecognised
	}

	accessToken, newRefresh, err := a.issueTokenPair(ctx, user.ID)
	if err != nil {
		log.Error("failed to issue token pair", sl.Err(err))
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("refresh successful", slog.String("uid", user.ID.String()))

	return accessToken, newRefresh, nil
}

func (a *Auth) Logout(
	ctx context.Context,
	rawRefreshToken string,
) error {
	const op = "auth.Logout"

	log := a.log.With(
		slog.String("op", op),
	)

	claims, err := a.tokens.Verify(rawRefreshToken)
	if err != nil || claims.Type != jwt.TypeRefresh {
		log.Warn("invalid refresh token")
		return ErrInvalidRefreshToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ErrInvalidRefreshToken
	}

	_, err = a.tokenStore.ConsumeRefreshToken(ctx, userID, hash.TokenDigest(rawRefreshToken))
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			log.Warn("refresh token not recognised")
			return ErrTokenNotRecognised
		}

		log.Error("failed to delete refresh token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("logout successful")

	return nil
}

// Access токены не сохраняются, в хранилище попадает только
// отпечаток refresh токена.
func (a *Auth) issueTokenPair(ctx context.Context, userID uuid.UUID) (string, string, error) {
	accessToken, err := a.tokens.NewAccessToken(userID.String())
	if err != nil {
		return "", "", err
	}

	refreshToken, expiresAt, err := a.tokens.NewRefreshToken(userID.String())
	if err != nil {
		return "", "", err
	}

	err = a.tokenStore.SaveRefreshToken(ctx, userID, hash.TokenDigest(refreshToken), expiresAt)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}
