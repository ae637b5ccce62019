package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes follow the "<MODULE>_<NNN>" convention.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeMessagingError     ErrorCode = "COMMON_017"
)

// Aliases used at call sites that read better with a short name.
const (
	CodeUnknown      = ErrorCode("")
	CodeOK           = ErrorCode("OK")
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeCacheError   = ErrCodeCacheError
)

// Segmentation Module Error Codes
const (
	ErrCodeSegmenterInit        ErrorCode = "SEG_001"
	ErrCodeSegmenterUnsupported ErrorCode = "SEG_002"
)

// Annotation Module Error Codes
const (
	ErrCodeAnnotationParse ErrorCode = "ANN_001"
)

// Model Gateway Error Codes
const (
	ErrCodeModelNotConfigured ErrorCode = "LLM_001"
	ErrCodeModelCallFailed    ErrorCode = "LLM_002"
	ErrCodeModelTimeout       ErrorCode = "LLM_003"
	ErrCodeModelBadResponse   ErrorCode = "LLM_004"
	ErrCodePromptRender       ErrorCode = "LLM_005"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeMessagingError:     http.StatusInternalServerError,

	ErrCodeSegmenterInit:        http.StatusInternalServerError,
	ErrCodeSegmenterUnsupported: http.StatusBadRequest,

	ErrCodeAnnotationParse: http.StatusInternalServerError,

	ErrCodeModelNotConfigured: http.StatusServiceUnavailable,
	ErrCodeModelCallFailed:    http.StatusBadGateway,
	ErrCodeModelTimeout:       http.StatusGatewayTimeout,
	ErrCodeModelBadResponse:   http.StatusBadGateway,
	ErrCodePromptRender:       http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeMessagingError:     "message publish failed",

	ErrCodeSegmenterInit:        "failed to initialise segmenter",
	ErrCodeSegmenterUnsupported: "unsupported segmenter engine",

	ErrCodeAnnotationParse: "model answer could not be parsed",

	ErrCodeModelNotConfigured: "remote model is not configured",
	ErrCodeModelCallFailed:    "failed to call remote model",
	ErrCodeModelTimeout:       "remote model timed out",
	ErrCodeModelBadResponse:   "unexpected response shape",
	ErrCodePromptRender:       "failed to render prompt",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
