package repository

import "errors"

// Common repository errors
var (
	// ErrBoardNotFound is returned when a board row does not exist
	ErrBoardNotFound = errors.New("board not found")
)
