package usecase

import (
	"fmt"
	"net/http"

	repo "air5star/internal/repository"

	"github.com/pkg/errors"
)

// APIで返すエラーコード
type ErrorCode string

const (
	CodeValidation   ErrorCode = "VALIDATION_ERROR"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeConflict     ErrorCode = "CONFLICT"
	CodeInternal     ErrorCode = "INTERNAL"

	// 業務ルール違反（400）
	CodeInsufficientStock         ErrorCode = "INSUFFICIENT_STOCK"
	CodeWindowExpired             ErrorCode = "WINDOW_EXPIRED"
	CodeInvalidOrderState         ErrorCode = "INVALID_ORDER_STATE"
	CodeCouponNotEligible         ErrorCode = "COUPON_NOT_ELIGIBLE"
	CodeCouponAlreadyUsed         ErrorCode = "COUPON_ALREADY_USED"
	CodePaymentVerificationFailed ErrorCode = "PAYMENT_VERIFICATION_FAILED"
	CodeProductUnavailable        ErrorCode = "PRODUCT_UNAVAILABLE"
	CodeCartEmpty                 ErrorCode = "CART_EMPTY"
)

type HTTPError struct {
	Status  int
	Code    ErrorCode
	Message string
	Details map[string]any
	// ログ用。クライアントには返さない
	cause error
}

func (e *HTTPError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%d %s: %s: %v", e.Status, e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.cause
}

func (e *HTTPError) WithDetails(details map[string]any) *HTTPError {
	e.Details = details
	return e
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Code:    codeForStatus(status),
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func codeForStatus(status int) ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	}
	if status < http.StatusInternalServerError {
		return CodeValidation
	}
	return CodeInternal
}

func validationError(message string) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Code: CodeValidation, Message: message}
}

func unauthorized(message string) *HTTPError {
	return &HTTPError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

func forbidden(message string) *HTTPError {
	return &HTTPError{Status: http.StatusForbidden, Code: CodeForbidden, Message: message}
}

func notFound(message string) *HTTPError {
	return &HTTPError{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

func conflict(message string) *HTTPError {
	return &HTTPError{Status: http.StatusConflict, Code: CodeConflict, Message: message}
}

// 業務ルール違反は400
func businessError(code ErrorCode, message string) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Code: code, Message: message}
}

// 500。原因はログにだけ出す
func internalError(err error, msg string) *HTTPError {
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "internal error",
		cause:   errors.Wrap(err, msg),
	}
}

// repoのErrNotFoundなら404、それ以外は500
func notFoundOrInternal(err error, what string) *HTTPError {
	if errors.Is(err, repo.ErrNotFound) {
		return notFound(what + " not found")
	}
	return internalError(err, "find "+what)
}

// tx内で返したHTTPErrorはそのまま、それ以外は500
func passOrInternal(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	return internalError(err, msg)
}

// 入力チェック失敗（details つき）
func NewValidationError(message string, details map[string]any) *HTTPError {
	return validationError(message).WithDetails(details)
}
