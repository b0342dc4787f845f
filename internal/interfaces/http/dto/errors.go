package dto

import "net/http"

// Error codes, formatted ERR_<CATEGORY>_<DESCRIPTION>
const (
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation       = "ERR_VALIDATION"
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	ErrCodeBadRequest       = "ERR_BAD_REQUEST"
	ErrCodeInvalidDateRange = "ERR_INVALID_DATE_RANGE"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound         = "ERR_NOT_FOUND"
	ErrCodeImportInProgress = "ERR_IMPORT_IN_PROGRESS"

	ErrCodeUpstreamFailed = "ERR_UPSTREAM_FAILED"
	ErrCodeImportFailed   = "ERR_IMPORT_FAILED"
	ErrCodeRateLimited    = "ERR_RATE_LIMITED"
	ErrCodeTimeout        = "ERR_TIMEOUT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeValidationFormat: http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidDateRange: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeImportInProgress: http.StatusConflict,

	ErrCodeUpstreamFailed: http.StatusBadGateway,
	ErrCodeImportFailed:   http.StatusInternalServerError,
	ErrCodeRateLimited:    http.StatusTooManyRequests,
	ErrCodeTimeout:        http.StatusGatewayTimeout,
}

// GetHTTPStatus returns the HTTP status for an error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainCodeMapping maps domain error codes to API codes
var domainCodeMapping = map[string]string{
	"NOT_FOUND":         ErrCodeNotFound,
	"RECEIPT_NOT_FOUND": ErrCodeNotFound,
	"INVALID_INPUT":     ErrCodeValidation,
	"INVALID_DATE":      ErrCodeValidationFormat,
	"MISSING_ORDER_NUM": ErrCodeValidation,
	"UNAUTHORIZED":      ErrCodeUnauthorized,
	"FORBIDDEN":         ErrCodeForbidden,
}

// NormalizeErrorCode converts a domain error code to its API code; unknown codes pass through
func NormalizeErrorCode(code string) string {
	if c, ok := domainCodeMapping[code]; ok {
		return c
	}
	return code
}
