package service

import "errors"

// Authentication errors.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrSessionInvalidated = errors.New("session invalidated - logged in elsewhere")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrEmailTaken         = errors.New("email already registered")
)

// Domain errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyCompleted  = errors.New("you have already completed this exam")
	ErrAlreadySubmitted  = errors.New("attempt already submitted")
	ErrExpiredAttempt    = errors.New("attempt time limit has expired")
	ErrNotSubmitted      = errors.New("attempt not yet submitted")
	ErrInvalidSubmission = errors.New("each question must have exactly one correct option")
	ErrInvalidAnswer     = errors.New("option does not belong to a question of this exam")
	ErrInvalidWindow     = errors.New("start_date must not be after end_date")
)
