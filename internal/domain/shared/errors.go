package shared

// DomainError pairs a machine-readable code with a human-readable message
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the error the DomainError was built from, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError tags err with code, keeping it reachable through errors.Is/As
func WrapDomainError(code string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: err.Error(),
		cause:   err,
	}
}
