// Package domain defines the pet-care entities the harness seeds (users,
// pets and tasks) and the business validation rules edge-case tests assert
// against.
//
// A rule failure is reported as a *ValidationError whose message is the
// user-facing text the application shows, and which matches ErrValidation
// under errors.Is.
package domain
