package integration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/erp/ordersync/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

var (
	// ErrAuthentication indicates the ERP rejected the request signature or credentials.
	ErrAuthentication = errors.New("integration: erp authentication failed")
	// ErrValidation indicates malformed order or customer data.
	ErrValidation = errors.New("integration: validation failed")
	// ErrItemReference indicates a configured ERP item cannot be referenced.
	ErrItemReference = errors.New("integration: unusable erp item reference")
	// ErrTransport indicates a network, timeout or server-side failure.
	ErrTransport = errors.New("integration: erp transport failure")
	// ErrRateLimited indicates the ERP throttled the request.
	ErrRateLimited = errors.New("integration: erp rate limited")
	// ErrDuplicateOrder indicates the ERP already holds an order for the external id.
	ErrDuplicateOrder = errors.New("integration: order already exists in erp")

	// ErrSourcePlatformUnavailable indicates the storefront could not be reached.
	ErrSourcePlatformUnavailable = errors.New("integration: source platform unavailable")
	// ErrOrderClaimed indicates another worker is reconciling the same order.
	ErrOrderClaimed = errors.New("integration: order is being reconciled by another worker")
)

// Machine-readable error codes returned with a failed reconciliation.
const (
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeValidation     = "VALIDATION_ERROR"
	CodeItemReference  = "ITEM_REFERENCE_ERROR"
	CodeTransport      = "TRANSPORT_ERROR"
	CodeRateLimit      = "RATE_LIMIT_ERROR"
	CodeDuplicateOrder = "DUPLICATE_ORDER"
	CodeOrderClaimed   = "ORDER_CLAIMED"
	CodeInternal       = "INTERNAL_ERROR"
)

// ValidationError carries the names of the fields that failed validation.
type ValidationError struct {
	Message string
	Fields  []string
	// ERPCode is the ERP error code when the error came from an ERP 400 response.
	ERPCode string
}

// NewValidationError creates a validation error for the given fields.
func NewValidationError(message string, fields ...string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed: ")
	b.WriteString(e.Message)
	if e.ERPCode != "" {
		b.WriteString(" (")
		b.WriteString(e.ERPCode)
		b.WriteString(")")
	}
	if len(e.Fields) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Fields, ", "))
		b.WriteString("]")
	}
	return b.String()
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ItemReferenceError describes why a configured ERP item could not be used.
type ItemReferenceError struct {
	Kind   LineKind
	ItemID string
	Reason string
}

func (e *ItemReferenceError) Error() string {
	return fmt.Sprintf("%s item %q unusable: %s", e.Kind, e.ItemID, e.Reason)
}

// Unwrap lets errors.Is match ErrItemReference.
func (e *ItemReferenceError) Unwrap() error {
	return ErrItemReference
}

// ErrorCode maps an error to its machine-readable code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthentication):
		return CodeAuthentication
	case errors.Is(err, ErrDuplicateOrder):
		return CodeDuplicateOrder
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrItemReference):
		return CodeItemReference
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimit
	case errors.Is(err, ErrTransport):
		return CodeTransport
	case errors.Is(err, ErrOrderClaimed):
		return CodeOrderClaimed
	default:
		return CodeInternal
	}
}

// IsRetryable reports whether a reconciliation that failed with err may be retried.
// Only transport and rate-limit failures are retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrRateLimited)
}

// AsDomainError converts err into the shared code/message pair.
func AsDomainError(err error) *shared.DomainError {
	if err == nil {
		return nil
	}
	return shared.WrapDomainError(ErrorCode(err), err)
}
