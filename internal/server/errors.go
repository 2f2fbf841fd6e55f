package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	invoicedomain "github.com/smallbiznis/innkeep/internal/invoice/domain"
	promotiondomain "github.com/smallbiznis/innkeep/internal/promotion/domain"
	refunddomain "github.com/smallbiznis/innkeep/internal/refundpolicy/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

var (
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

// ErrorHandlingMiddleware renders the last error collected by a handler
// as the failure envelope, after the handler chain returns.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{Field: field, Code: code, Message: message},
		},
	}
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Message: "internal server error"}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusUnprocessableEntity, errorResponse{
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusUnprocessableEntity, errorResponse{
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "request", Code: err.Error(), Message: "invalid value"},
			},
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorResponse{Message: err.Error()}
	case isBusinessError(err):
		return http.StatusBadRequest, errorResponse{Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorResponse{Message: "internal server error"}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, invoicedomain.ErrInvalidInvoiceID),
		errors.Is(err, invoicedomain.ErrInvalidStatus),
		errors.Is(err, invoicedomain.ErrInvalidDiscountValue),
		errors.Is(err, promotiondomain.ErrInvalidPromotion),
		errors.Is(err, refunddomain.ErrInvalidPolicy):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, invoicedomain.ErrBookingNotFound),
		errors.Is(err, invoicedomain.ErrDiscountNotFound),
		errors.Is(err, invoicedomain.ErrRefundPolicyNotFound),
		errors.Is(err, invoicedomain.ErrMergeTargetNotFound),
		errors.Is(err, promotiondomain.ErrPromotionNotFound),
		errors.Is(err, refunddomain.ErrPolicyNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// isBusinessError covers domain rules that reject an otherwise
// well-formed request.
func isBusinessError(err error) bool {
	switch {
	case errors.Is(err, invoicedomain.ErrInvoiceAlreadyExists),
		errors.Is(err, invoicedomain.ErrInvalidBooking),
		errors.Is(err, invoicedomain.ErrAlreadyPaid),
		errors.Is(err, invoicedomain.ErrInvoiceCancelled),
		errors.Is(err, invoicedomain.ErrInvoiceNotDeletable),
		errors.Is(err, invoicedomain.ErrDiscountNotOwned),
		errors.Is(err, invoicedomain.ErrDiscountNotAllowed),
		errors.Is(err, invoicedomain.ErrRefundPolicyInactive),
		errors.Is(err, invoicedomain.ErrNoItemsSelected),
		errors.Is(err, invoicedomain.ErrItemsNotOwned),
		errors.Is(err, invoicedomain.ErrCannotMoveAllItems),
		errors.Is(err, invoicedomain.ErrInvoiceNotPending),
		errors.Is(err, invoicedomain.ErrCrossBookingMerge),
		errors.Is(err, invoicedomain.ErrNothingToMerge),
		errors.Is(err, promotiondomain.ErrPromotionNotValid),
		errors.Is(err, promotiondomain.ErrPromotionNotApplicable),
		errors.Is(err, promotiondomain.ErrMinimumNotMet),
		errors.Is(err, promotiondomain.ErrUsageLimitExceeded),
		errors.Is(err, promotiondomain.ErrPerUserLimitExceeded),
		errors.Is(err, promotiondomain.ErrPromotionAlreadyUsed),
		errors.Is(err, promotiondomain.ErrCodeExists):
		return true
	default:
		return false
	}
}

// classifyErrorForLog labels errors for the request log without leaking
// internals.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case isValidationError(err):
		return "validation_error", err.Error()
	case isNotFoundError(err):
		return "not_found", err.Error()
	case isBusinessError(err):
		return "business_rule", err.Error()
	default:
		return "internal_error", "internal"
	}
}
