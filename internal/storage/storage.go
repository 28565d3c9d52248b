package storage

import "errors"

var (
	ErrUserExists           = errors.New("user already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrNoteNotFound         = errors.New("note not found")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)
