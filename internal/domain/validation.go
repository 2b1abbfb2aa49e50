package domain

import (
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

// Patterns shared with the application's client-side checks.
var (
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	petNamePattern   = regexp.MustCompile(`^[A-Za-z\s'-]+$`)
	taskTitlePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-_,.!()]+$`)
)

// MaxDueDateHorizon is how far ahead a task may be scheduled.
const MaxDueDateHorizon = 365 * 24 * time.Hour

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	patterns := map[string]*regexp.Regexp{
		"email_pattern": emailPattern,
		"pet_name":      petNamePattern,
		"task_title":    taskTitlePattern,
	}
	for tag, re := range patterns {
		// registration only fails for empty or reserved tags
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return re.MatchString(fl.Field().String())
		}); err != nil {
			panic(err)
		}
	}

	return v
}

// check validates value against tag and converts any failure to a ValidationError.
func check(field string, value any, tag, message string) error {
	if err := validate.Var(value, tag); err != nil {
		return invalid(field, message)
	}
	return nil
}

// ValidateEmail checks an email address against the email pattern.
func ValidateEmail(email string) error {
	return check("email", email, "email_pattern", MsgInvalidEmail)
}

// ValidatePetName requires 2 to 50 letters, spaces, apostrophes or hyphens.
func ValidatePetName(name string) error {
	return check("name", name, "min=2,max=50,pet_name", MsgInvalidPetName)
}

// ValidatePetAge requires 0 < age <= 50.
func ValidatePetAge(age float64) error {
	return check("age", age, "gt=0,lte=50", MsgInvalidAge)
}

// ValidatePetWeight requires 0 < weight <= 200.
func ValidatePetWeight(weight float64) error {
	return check("weight", weight, "gt=0,lte=200", MsgInvalidWeight)
}

// ValidateGender accepts male, female or other.
func ValidateGender(g Gender) error {
	return check("gender", string(g), "oneof=male female other", MsgInvalidGender)
}

// ValidateTaskType accepts the eight known task types.
func ValidateTaskType(tt TaskType) error {
	return check("task_type", string(tt),
		"oneof=feeding cleaning vaccination medication grooming vet_visit exercise other", MsgInvalidTaskType)
}

// ValidatePriority accepts low, medium or high.
func ValidatePriority(p Priority) error {
	return check("priority", string(p), "oneof=low medium high", MsgInvalidPriority)
}

// ValidateTitle requires 1 to 100 characters from the title character set.
func ValidateTitle(title string) error {
	return check("title", title, "min=1,max=100,task_title", MsgInvalidTitle)
}

// ValidateDescription allows at most 500 characters.
func ValidateDescription(description string) error {
	return check("description", description, "max=500", MsgInvalidDescription)
}

// ValidateDueDate requires now < due <= now + 365 days.
func ValidateDueDate(due, now time.Time) error {
	if !due.After(now) || due.After(now.Add(MaxDueDateHorizon)) {
		return invalid("due_date", MsgInvalidDueDate)
	}
	return nil
}
