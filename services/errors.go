package services

import "errors"

// Validation errors are shown to the user; they never leave partial writes.
var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchFull         = errors.New("match is full")
	ErrMatchInProgress   = errors.New("match has already started")
	ErrPracticeMatch     = errors.New("not available in practice matches")
	ErrNameTaken         = errors.New("a player with that name is already in the match")
	ErrInvalidName       = errors.New("name must be between 1 and 20 characters")
	ErrReservedName      = errors.New("that name is reserved by a registered user")
	ErrNotHost           = errors.New("only the host can do that")
	ErrNotInMatch        = errors.New("player is not in this match")
	ErrIllegalTransition = errors.New("action not allowed in the current match status")
	ErrInvalidConfig     = errors.New("invalid match configuration")
	ErrNoCompetitors     = errors.New("match needs at least one competing player")
	ErrNotBot            = errors.New("player is not a bot")
	ErrNoPowerUp         = errors.New("no power-up to launch")
	ErrNoTarget          = errors.New("no valid target for this power-up")
	ErrUnknownReaction   = errors.New("unknown reaction")
)

// Identity errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidUsername    = errors.New("username must be at least 3 characters")
	ErrUsernameTaken      = errors.New("username belongs to a registered user")
	ErrAnonymousUser      = errors.New("anonymous users cannot do that")
	ErrInvalidToken       = errors.New("invalid token")
	ErrOAuthDisabled      = errors.New("google sign-in is not configured")
)

// Media errors.
var (
	ErrInvalidImage  = errors.New("file must be an image")
	ErrImageTooLarge = errors.New("image must be 2MB or smaller")
)
