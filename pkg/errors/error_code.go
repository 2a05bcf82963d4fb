package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown          ErrorCode = 1
	ErrCodeInvalidParameter ErrorCode = 2

	// Configuration and startup errors (100-199)
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingCredentials   ErrorCode = 102
	ErrCodeStoreUnavailable     ErrorCode = 103

	// Store errors (200-299)
	ErrCodeNotFound    ErrorCode = 200
	ErrCodeQueryFailed ErrorCode = 201
	ErrCodeEncoding    ErrorCode = 202

	// Validation outcomes (300-399). These are business results, not faults.
	ErrCodeBelowMinNotional     ErrorCode = 300
	ErrCodeInsufficientBalance  ErrorCode = 301
	ErrCodeNoOpenPosition       ErrorCode = 302
	ErrCodePositionAlreadyOpen  ErrorCode = 303
	ErrCodeInvalidQuantity      ErrorCode = 304
	ErrCodeTrailingStopDecrease ErrorCode = 305

	// Transient external errors (500-599)
	ErrCodeMarketDataUnavailable  ErrorCode = 500
	ErrCodeOrderFailed            ErrorCode = 501
	ErrCodePersistenceUnavailable ErrorCode = 502
	ErrCodeMetadataUnavailable    ErrorCode = 503
	ErrCodeNotificationFailed     ErrorCode = 504
)

// IsValidation reports whether err carries a validation outcome code.
func IsValidation(err error) bool {
	code := GetCode(err)

	return code >= 300 && code < 400
}

// IsTransient reports whether err carries a transient external code.
func IsTransient(err error) bool {
	code := GetCode(err)

	return code >= 500 && code < 600
}

// IsFatal reports whether err should abort startup.
func IsFatal(err error) bool {
	code := GetCode(err)

	return code >= 100 && code < 200
}
