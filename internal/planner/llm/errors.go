package llm

import "errors"

// ============================================================
// Provider Error Classification
// ============================================================

// Машиночитаемые коды ошибок провайдера.
const (
	CodeQuotaExceeded  = "quota_exceeded"
	CodeContextTooLong = "context_too_long"
	CodeRateLimited    = "rate_limited"
	CodeProvider       = "provider_error"
)

// ProviderError — классифицированная ошибка генеративного провайдера.
// Transient-ошибки можно повторять, fatal-ошибки всплывают сразу.
type ProviderError struct {
	Code      string
	Transient bool
	err       error
}

func (e *ProviderError) Error() string {
	return e.err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.err
}

// NewTransientError оборачивает ошибку как временную (повторяемую).
func NewTransientError(code string, err error) error {
	return &ProviderError{Code: code, Transient: true, err: err}
}

// NewFatalError оборачивает ошибку как постоянную (неповторяемую).
func NewFatalError(code string, err error) error {
	return &ProviderError{Code: code, Transient: false, err: err}
}

// IsTransient сообщает, имеет ли смысл повторить запрос.
func IsTransient(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Transient
	}
	return false
}

// ErrorCode возвращает код ошибки провайдера или CodeProvider.
func ErrorCode(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return CodeProvider
}
