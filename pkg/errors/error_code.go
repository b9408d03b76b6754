package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidCondition     ErrorCode = 102
	ErrCodeInvalidPredicate     ErrorCode = 103
	ErrCodeInvalidSafetyConfig  ErrorCode = 104
	ErrCodeInvalidOrder         ErrorCode = 105
	ErrCodeMissingParameter     ErrorCode = 106

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound ErrorCode = 200
	ErrCodeQueryFailed  ErrorCode = 201
	ErrCodeStoreClosed  ErrorCode = 202

	// Broker errors (300-399)
	ErrCodeBrokerAuthFailed    ErrorCode = 300
	ErrCodeBrokerRequestFailed ErrorCode = 301
	ErrCodeOrderFailed         ErrorCode = 302
	ErrCodePositionNotFound    ErrorCode = 303
	ErrCodeUnsupportedBroker   ErrorCode = 304
	ErrCodeHistoryUnavailable  ErrorCode = 305

	// Stream errors (400-499)
	ErrCodeConnectionFailed ErrorCode = 400
	ErrCodeSubscribeFailed  ErrorCode = 401
	ErrCodeFrameDiscarded   ErrorCode = 402

	// Safety errors (500-599)
	ErrCodeTradingDisabled      ErrorCode = 500
	ErrCodeOutsideTradingHours  ErrorCode = 501
	ErrCodeDailyLimitReached    ErrorCode = 502
	ErrCodePositionLimitReached ErrorCode = 503
	ErrCodeInsufficientFunds    ErrorCode = 504
)
