package domain

// Gender of a pet.
type Gender string

// Valid genders.
const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Pet is an animal owned by exactly one user.
type Pet struct {
	ID      int64
	UserID  int64
	Name    string
	Breed   string
	Age     float64
	Species string
	Gender  Gender
	Weight  float64
}

// Validate returns the first failing rule in name, age, weight, gender order.
func (p Pet) Validate() error {
	if err := ValidatePetName(p.Name); err != nil {
		return err
	}
	if err := ValidatePetAge(p.Age); err != nil {
		return err
	}
	if err := ValidatePetWeight(p.Weight); err != nil {
		return err
	}
	return ValidateGender(p.Gender)
}
