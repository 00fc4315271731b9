package leaderboard

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrInvalidPage = errors.New("invalid leaderboard page")
)
