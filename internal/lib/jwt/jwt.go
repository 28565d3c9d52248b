package jwt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// ErrInvalidToken возвращается на любой невалидный токен:
// битая кодировка, неверная подпись, истекший срок.
var ErrInvalidToken = errors.New("invalid token")

const bearerPrefix = "Bearer "

type Claims struct {
	Subject string
	Type    TokenType
}

type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// New создает менеджер токенов. Секрет хранится в конфиге в base64.
func New(encodedSecret string, accessTTL, refreshTTL time.Duration) (*Manager, error) {
	const op = "jwt.New"

	secret, err := base64.StdEncoding.DecodeString(encodedSecret)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to decode secret: %w", op, err)
	}

	if len(secret) == 0 {
		return nil, fmt.Errorf("%s: empty secret", op)
	}

	return &Manager{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (m *Manager) NewAccessToken(subject string) (string, error) {
	return m.Issue(subject, TypeAccess, m.accessTTL)
}

func (m *Manager) NewRefreshToken(subject string) (string, time.Time, error) {
	expiresAt := time.Now().Add(m.refreshTTL)

	token, err := m.Issue(subject, TypeRefresh, m.refreshTTL)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

func (m *Manager) Issue(subject string, tokenType TokenType, ttl time.Duration) (string, error) {
	const op = "jwt.Issue"

	now := time.Now()

	claims := jwt.MapClaims{
		"sub": subject,
		"typ": string(tokenType),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Verify разбирает и проверяет токен. Опциональный префикс "Bearer "
// отрезается перед разбором. Любая ошибка разбора превращается
// в ErrInvalidToken, наружу она не уходит.
func (m *Manager) Verify(raw string) (Claims, error) {
	raw, _ = strings.CutPrefix(raw, bearerPrefix)

	claims := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return Claims{}, ErrInvalidToken
	}

	typ, ok := claims["typ"].(string)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	tokenType := TokenType(typ)
	if tokenType != TypeAccess && tokenType != TypeRefresh {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		Subject: subject,
		Type:    tokenType,
	}, nil
}

func (m *Manager) IsAccessToken(raw string) bool {
	claims, err := m.Verify(raw)

	return err == nil && claims.Type == TypeAccess
}

func (m *Manager) IsRefreshToken(raw string) bool {
	claims, err := m.Verify(raw)

	return err == nil && claims.Type == TypeRefresh
}
