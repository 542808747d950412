package domain

// ErrorCode classifies failures so the API edge can map them to HTTP
// statuses without inspecting messages.
type ErrorCode string

const (
	CodeNotFound               ErrorCode = "NOT_FOUND"
	CodeInvalidInput           ErrorCode = "INVALID_INPUT"
	CodeInsufficientFunds      ErrorCode = "INSUFFICIENT_FUNDS"
	CodeAmountBelowMinimum     ErrorCode = "AMOUNT_BELOW_MINIMUM"
	CodeAlreadyProcessed       ErrorCode = "ALREADY_PROCESSED"
	CodeUnauthorized           ErrorCode = "UNAUTHORIZED"
	CodeForbidden              ErrorCode = "FORBIDDEN"
	CodeConflict               ErrorCode = "CONFLICT"
	CodeExternalServiceFailure ErrorCode = "EXTERNAL_SERVICE_FAILURE"
	CodeInternal               ErrorCode = "INTERNAL"
)

// Error is a coded domain error.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e Error) Error() string {
	return e.Message
}

// Is lets errors.Is match two coded errors by code alone, so callers can
// compare against the sentinel values below regardless of message detail.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t.Code == e.Code
}

// NewError builds a coded error with a custom message.
func NewError(code ErrorCode, message string) Error {
	return Error{Code: code, Message: message}
}

// Common sentinel errors.
var (
	ErrUserNotFound        = Error{Code: CodeNotFound, Message: "user not found"}
	ErrPlanNotFound        = Error{Code: CodeNotFound, Message: "investment plan not found"}
	ErrInvestmentNotFound  = Error{Code: CodeNotFound, Message: "investment not found"}
	ErrTransactionNotFound = Error{Code: CodeNotFound, Message: "transaction not found"}
	ErrInvalidAmount       = Error{Code: CodeInvalidInput, Message: "amount must be positive"}
	ErrInsufficientFunds   = Error{Code: CodeInsufficientFunds, Message: "insufficient funds"}
	ErrAmountBelowMinimum  = Error{Code: CodeAmountBelowMinimum, Message: "amount below plan minimum"}
	ErrAlreadyProcessed    = Error{Code: CodeAlreadyProcessed, Message: "transaction already processed"}
	ErrEmailExists         = Error{Code: CodeConflict, Message: "email already registered"}
	ErrPlanNameExists      = Error{Code: CodeConflict, Message: "plan name already exists"}
	ErrPlanInUse           = Error{Code: CodeConflict, Message: "plan is referenced by existing investments"}
)
