package domain

import "errors"

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// User-facing validation messages.
const (
	MsgInvalidEmail       = "Please enter a valid email address"
	MsgUsernameRequired   = "Username is required"
	MsgInvalidPetName     = "Pet name must be 2-50 letters long"
	MsgInvalidAge         = "Age must be greater than 0 and less than or equal to 50"
	MsgInvalidWeight      = "Weight must be greater than 0 and less than or equal to 200"
	MsgInvalidGender      = "Please select a valid gender (male, female, other)"
	MsgInvalidTaskType    = "Invalid task type"
	MsgInvalidTitle       = "Invalid title format"
	MsgInvalidDescription = "Invalid description format"
	MsgInvalidDueDate     = "Due date must be in the future and within 1 year"
	MsgInvalidPriority    = "Invalid priority"
)

// ValidationError reports the first rule an entity or value failed.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the user-facing message.
func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
