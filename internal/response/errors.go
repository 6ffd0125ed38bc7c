package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// Validation
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// Authorization
	ErrUnauthorized ErrCode = "UNAUTHORIZED"

	// Resources
	ErrNotFound       ErrCode = "NOT_FOUND"
	ErrUnknownSession ErrCode = "UNKNOWN_SESSION"

	// Exam lifecycle
	ErrSessionFinished  ErrCode = "SESSION_FINISHED"
	ErrAttemptNotActive ErrCode = "ATTEMPT_NOT_ACTIVE"
	ErrRetakeNotAllowed ErrCode = "RETAKE_NOT_ALLOWED"
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"

	// Rate limiting
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// Server
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrUnauthorized:
		return "A valid API key is required."
	case ErrNotFound:
		return "Resource not found."
	case ErrUnknownSession:
		return "Unknown or expired session."
	case ErrSessionFinished:
		return "This session has already finished."
	case ErrAttemptNotActive:
		return "No attempt is in progress for this session."
	case ErrRetakeNotAllowed:
		return "A re-attempt is not allowed for this session."
	case ErrNoQuestions:
		return "The question pool is empty."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
