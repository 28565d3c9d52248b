package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Password хеширует пароль с солью (bcrypt).
func Password(plain string) ([]byte, error) {
	const op = "hash.Password"

	passHash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return passHash, nil
}

func VerifyPassword(plain string, passHash []byte) bool {
	return bcrypt.CompareHashAndPassword(passHash, []byte(plain)) == nil
}

// TokenDigest возвращает отпечаток refresh токена для хранения.
// Сырой токен никогда не сохраняется в базе.
func TokenDigest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
