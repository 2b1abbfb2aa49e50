package fixtures

import (
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/phrazzld/petcare-harness/internal/domain"
)

var fixedNow = time.Date(2026, 3, 14, 14, 25, 1, 123456000, time.UTC)

func fixedClock() time.Time { return fixedNow }

var suffixPattern = regexp.MustCompile(`^142501123456_\d+$`)

func TestSuffix(t *testing.T) {
	f := NewFactory(WithClock(fixedClock))

	first, second := f.Suffix(), f.Suffix()
	assert.Regexp(t, suffixPattern, first)
	assert.Regexp(t, suffixPattern, second)
	assert.NotEqual(t, first, second, "the counter separates payloads built at the same instant")
}

func TestSuffixIsUniqueAcrossFactories(t *testing.T) {
	a := NewFactory(WithClock(fixedClock))
	b := NewFactory(WithClock(fixedClock))

	assert.NotEqual(t, a.Suffix(), b.Suffix())
	assert.NotEqual(t, a.User().Username, b.User().Username)
	assert.NotEqual(t, a.User().Email, b.User().Email)
}

func TestSuffixIsUniqueAcrossGoroutines(t *testing.T) {
	f := NewFactory(WithClock(fixedClock))

	const workers = 8
	const perWorker = 50

	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				s := f.Suffix()
				mu.Lock()
				seen[s] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestUser(t *testing.T) {
	f := NewFactory(WithClock(fixedClock))

	u := f.User()
	suffix := strings.TrimPrefix(u.Username, "testuser_")
	assert.Regexp(t, suffixPattern, suffix)
	assert.Equal(t, "test_"+suffix+"@example.com", u.Email)
	assert.Equal(t, "token_"+suffix, u.VerificationToken)
	assert.False(t, u.IsVerified)
	assert.Zero(t, u.ID, "builders never assign ids")
	require.NoError(t, u.Validate())

	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(SamplePassword)))

	other := f.User()
	assert.NotEqual(t, u.Username, other.Username)
	assert.NotEqual(t, u.Email, other.Email)
	assert.Equal(t, u.PasswordHash, other.PasswordHash, "the hash is computed once per factory")
}

func TestPet(t *testing.T) {
	p := NewFactory().Pet(42)

	assert.Equal(t, domain.Pet{
		UserID:  42,
		Name:    "Fluffy",
		Breed:   "Golden Retriever",
		Age:     3.5,
		Species: "dog",
		Gender:  domain.GenderFemale,
		Weight:  25.5,
	}, p)
	require.NoError(t, p.Validate())
}

func TestTask(t *testing.T) {
	f := NewFactory(WithClock(fixedClock))

	task := f.Task(1, 2)
	assert.Equal(t, int64(1), task.UserID)
	assert.Equal(t, int64(2), task.PetID)
	assert.Equal(t, domain.TaskFeeding, task.TaskType)
	assert.Equal(t, "Morning feeding", task.Title)
	assert.Equal(t, "Give breakfast to pet", task.Description)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	assert.Equal(t, time.Date(2026, 3, 15, 14, 25, 1, 0, time.UTC), task.DueDate)
	require.NoError(t, task.Validate(f.Now()))
}
