package storage

import "errors"

var (
	ErrUserExists    = errors.New("user already exists")
	ErrUsernameTaken = errors.New("username is already taken")
	ErrUserNotFound  = errors.New("user not found")
)
