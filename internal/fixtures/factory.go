package fixtures

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/phrazzld/petcare-harness/internal/domain"
)

// SamplePassword is the plaintext behind every fixture user's hash.
const SamplePassword = "TestPassword123!"

// Sample values used by the builders.
const (
	SamplePetName     = "Fluffy"
	SamplePetBreed    = "Golden Retriever"
	SamplePetAge      = 3.5
	SamplePetSpecies  = "dog"
	SamplePetWeight   = 25.5
	SampleTaskTitle   = "Morning feeding"
	SampleTaskDetails = "Give breakfast to pet"
)

// suffixSeq numbers suffixes across every Factory in the process, so
// factories sharing a clock still hand out distinct values.
var suffixSeq atomic.Uint64

// Factory builds sample entities. It is safe for concurrent use.
type Factory struct {
	now func() time.Time

	hashOnce sync.Once
	hash     string
}

// Option configures a Factory.
type Option func(*Factory)

// WithClock replaces time.Now as the source of suffixes and due dates.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) {
		f.now = now
	}
}

// NewFactory creates a Factory.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Now returns the factory clock's current time.
func (f *Factory) Now() time.Time {
	return f.now()
}

// Suffix returns a uniqueness suffix such as "142501123456_3": the clock's
// time of day to the microsecond plus a process-wide sequence number.
func (f *Factory) Suffix() string {
	stamp := strings.Replace(f.now().Format("150405.000000"), ".", "", 1)
	return fmt.Sprintf("%s_%d", stamp, suffixSeq.Add(1))
}

// PasswordHash returns the bcrypt hash of SamplePassword. It is computed
// once per factory at the minimum cost.
func (f *Factory) PasswordHash() string {
	f.hashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(SamplePassword), bcrypt.MinCost)
		if err != nil {
			// ALLOW-PANIC: bcrypt only fails for passwords over 72 bytes
			panic(fmt.Sprintf("fixtures: hash sample password: %v", err))
		}
		f.hash = string(h)
	})
	return f.hash
}

// User returns an unverified user with unique username, email and token.
func (f *Factory) User() domain.User {
	suffix := f.Suffix()
	return domain.User{
		Username:          "testuser_" + suffix,
		Email:             "test_" + suffix + "@example.com",
		PasswordHash:      f.PasswordHash(),
		VerificationToken: "token_" + suffix,
	}
}

// Pet returns a sample pet owned by userID.
func (f *Factory) Pet(userID int64) domain.Pet {
	return domain.Pet{
		UserID:  userID,
		Name:    SamplePetName,
		Breed:   SamplePetBreed,
		Age:     SamplePetAge,
		Species: SamplePetSpecies,
		Gender:  domain.GenderFemale,
		Weight:  SamplePetWeight,
	}
}

// Task returns a medium priority feeding task due one day from now,
// truncated to whole seconds so it survives a round trip through any
// of the supported databases.
func (f *Factory) Task(userID, petID int64) domain.Task {
	return domain.Task{
		UserID:      userID,
		PetID:       petID,
		TaskType:    domain.TaskFeeding,
		Title:       SampleTaskTitle,
		Description: SampleTaskDetails,
		DueDate:     f.now().UTC().AddDate(0, 0, 1).Truncate(time.Second),
		Priority:    domain.PriorityMedium,
	}
}
