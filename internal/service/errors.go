package service

import "errors"

// Domain errors surfaced to handlers. All are recoverable by the caller;
// none is process-fatal.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailTaken           = errors.New("email or username already taken")
	ErrLoginAlreadyActive   = errors.New("another login is already active for this user")
	ErrUserNotFound         = errors.New("user not found")
	ErrStudentNotFound      = errors.New("student not found")
	ErrLabWorkNotFound      = errors.New("lab work not found")
	ErrLabWorkNotSubmitted  = errors.New("lab work has no submission to analyze")
	ErrSessionNotFound      = errors.New("exam session not found")
	ErrActiveSessionExists  = errors.New("student already has an active exam session")
	ErrSessionNotActive     = errors.New("exam session is not active")
	ErrQuestionNotInSession = errors.New("question is not part of this session")
	ErrAlreadyAnswered      = errors.New("question was already answered in this session")
	ErrInvalidDuration      = errors.New("session duration must be positive")

	// ErrInsufficientQuestions means the bank could not supply a single
	// eligible question. A partial shortfall is not an error; it is
	// reported through the Shortfall field of the selection result.
	ErrInsufficientQuestions = errors.New("question bank is empty for this student")

	// ErrStoreUnavailable wraps storage failures and timeouts. Operations
	// that hit it leave no partial state behind.
	ErrStoreUnavailable = errors.New("storage backend unavailable")
)
