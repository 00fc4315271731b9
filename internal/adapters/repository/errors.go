package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProjectNotFound = errors.New("project not found")
)
