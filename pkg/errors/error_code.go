package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown  ErrorCode = 1
	ErrCodeInternal ErrorCode = 2

	// Configuration errors (100-199)
	ErrCodeInvalidParameter      ErrorCode = 100
	ErrCodeInvalidConfiguration  ErrorCode = 101
	ErrCodeInvalidPeriod         ErrorCode = 102
	ErrCodeMissingParameter      ErrorCode = 103
	ErrCodeInvalidCapital        ErrorCode = 104
	ErrCodeInvalidCommission     ErrorCode = 105
	ErrCodeEmptySeries           ErrorCode = 106
	ErrCodeUnsupportedStrategy   ErrorCode = 107
	ErrCodeInvalidThreshold      ErrorCode = 108
	ErrCodeIndicatorNotFound     ErrorCode = 109
	ErrCodeModelNotFound         ErrorCode = 110
	ErrCodeDuplicateRegistration ErrorCode = 111

	// Data errors (200-299)
	ErrCodeInvalidSeries     ErrorCode = 200
	ErrCodeNonMonotonicDates ErrorCode = 201
	ErrCodeDuplicateDates    ErrorCode = 202
	ErrCodeNonPositivePrice  ErrorCode = 203

	// Strategy errors (400-499)
	ErrCodeStrategyRuntimeError  ErrorCode = 400
	ErrCodeModelPredictionFailed ErrorCode = 401

	// Run control errors (600-699)
	ErrCodeCancelled ErrorCode = 600
	ErrCodeTimedOut  ErrorCode = 601

	// Market data errors (700-799)
	ErrCodeUnknownTicker         ErrorCode = 700
	ErrCodeEmptyRange            ErrorCode = 701
	ErrCodeTransientFetch        ErrorCode = 702
	ErrCodeMarketDataParseFailed ErrorCode = 703
	ErrCodeInvalidProvider       ErrorCode = 704
	ErrCodeMarketDataWriteFailed ErrorCode = 705

	// Persistence errors (800-899)
	ErrCodeResultNotFound    ErrorCode = 800
	ErrCodePersistenceFailed ErrorCode = 801
	ErrCodeVersionMismatch   ErrorCode = 802
)

// ErrorKind is the stable, user visible classification of an error.
type ErrorKind string

const (
	KindConfiguration   ErrorKind = "ConfigurationError"
	KindData            ErrorKind = "DataError"
	KindStrategyRuntime ErrorKind = "StrategyRuntimeError"
	KindCancelled       ErrorKind = "Cancelled"
	KindTimedOut        ErrorKind = "TimedOut"
	KindUnknownTicker   ErrorKind = "UnknownTicker"
	KindEmptyRange      ErrorKind = "EmptyRange"
	KindTransientFetch  ErrorKind = "TransientFetch"
	KindMarketData      ErrorKind = "MarketDataError"
	KindNotFound        ErrorKind = "NotFound"
	KindPersistence     ErrorKind = "PersistenceError"
	KindInternal        ErrorKind = "InternalError"
)

// Kind maps the code to its error kind.
func (c ErrorCode) Kind() ErrorKind {
	switch c {
	case ErrCodeCancelled:
		return KindCancelled
	case ErrCodeTimedOut:
		return KindTimedOut
	case ErrCodeUnknownTicker:
		return KindUnknownTicker
	case ErrCodeEmptyRange:
		return KindEmptyRange
	case ErrCodeTransientFetch:
		return KindTransientFetch
	case ErrCodeResultNotFound:
		return KindNotFound
	}

	switch {
	case c >= 100 && c < 200:
		return KindConfiguration
	case c >= 200 && c < 300:
		return KindData
	case c >= 400 && c < 500:
		return KindStrategyRuntime
	case c >= 700 && c < 800:
		return KindMarketData
	case c >= 800 && c < 900:
		return KindPersistence
	default:
		return KindInternal
	}
}
