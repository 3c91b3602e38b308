package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"
	ErrLoginActive        ErrCode = "LOGIN_ALREADY_ACTIVE"
	ErrLoginInvalidated   ErrCode = "LOGIN_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam trainer ──────────────────────────────────────────────────
	ErrActiveSessionExists   ErrCode = "ACTIVE_SESSION_EXISTS"
	ErrSessionNotActive      ErrCode = "SESSION_NOT_ACTIVE"
	ErrQuestionNotInSession  ErrCode = "QUESTION_NOT_IN_SESSION"
	ErrAlreadyAnswered       ErrCode = "ALREADY_ANSWERED"
	ErrInsufficientQuestions ErrCode = "INSUFFICIENT_QUESTIONS"

	// ─── Lab works ─────────────────────────────────────────────────────
	ErrAlreadySubmitted ErrCode = "ALREADY_SUBMITTED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server / collaborators ────────────────────────────────────────
	ErrStoreUnavailable ErrCode = "STORE_UNAVAILABLE"
	ErrInternal         ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrEmailTaken:
		return "A user with this email already exists."
	case ErrLoginActive:
		return "You are already logged in on another device."
	case ErrLoginInvalidated:
		return "Your login session has ended. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The resource already exists."

	// ─── Exam trainer ──────────────────────────────────────────────────
	case ErrActiveSessionExists:
		return "An active exam session already exists for this student."
	case ErrSessionNotActive:
		return "This exam session is no longer active."
	case ErrQuestionNotInSession:
		return "The question does not belong to this exam session."
	case ErrAlreadyAnswered:
		return "This question has already been answered."
	case ErrInsufficientQuestions:
		return "The question bank cannot supply enough questions."

	// ─── Lab works ─────────────────────────────────────────────────────
	case ErrAlreadySubmitted:
		return "This lab work has already been submitted for review."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server / collaborators ────────────────────────────────────────
	case ErrStoreUnavailable:
		return "The storage backend is temporarily unavailable."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
