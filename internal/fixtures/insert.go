package fixtures

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/petcare-harness/internal/domain"
	"github.com/phrazzld/petcare-harness/internal/store"
	"github.com/phrazzld/petcare-harness/internal/testdb"
)

// Querier runs a statement and reports its result. *testdb.Manager
// implements it.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*testdb.Result, error)
}

var _ Querier = (*testdb.Manager)(nil)

// InsertUser validates u and inserts it, returning the generated id.
func InsertUser(ctx context.Context, q Querier, u domain.User) (int64, error) {
	if err := u.Validate(); err != nil {
		return 0, invalid("user", err)
	}

	var token any
	if u.VerificationToken != "" {
		token = u.VerificationToken
	}
	res, err := q.Query(ctx,
		`INSERT INTO users (username, email, password_hash, verification_token, is_verified)
		VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, token, u.IsVerified)
	if err != nil {
		return 0, store.NewStoreError("user", "insert", "failed to insert user", err)
	}
	return res.LastInsertID, nil
}

// InsertPet validates p and inserts it, returning the generated id.
func InsertPet(ctx context.Context, q Querier, p domain.Pet) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, invalid("pet", err)
	}

	res, err := q.Query(ctx,
		`INSERT INTO pets (user_id, name, breed, age, species, gender, weight)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Name, p.Breed, p.Age, p.Species, string(p.Gender), p.Weight)
	if err != nil {
		return 0, store.NewStoreError("pet", "insert", "failed to insert pet", err)
	}
	return res.LastInsertID, nil
}

// InsertTask validates t against now and inserts it, returning the
// generated id.
func InsertTask(ctx context.Context, q Querier, t domain.Task, now time.Time) (int64, error) {
	if err := t.Validate(now); err != nil {
		return 0, invalid("task", err)
	}

	res, err := q.Query(ctx,
		`INSERT INTO tasks (user_id, pet_id, task_type, title, description, due_date, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.PetID, string(t.TaskType), t.Title, t.Description, t.DueDate.UTC(), string(t.Priority))
	if err != nil {
		return 0, store.NewStoreError("task", "insert", "failed to insert task", err)
	}
	return res.LastInsertID, nil
}

func invalid(entity string, err error) error {
	return store.NewStoreError(entity, "insert", "validation failed",
		fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
}

// Seed holds the ids of a user with one pet and one task.
type Seed struct {
	UserID int64
	PetID  int64
	TaskID int64
}

// SeedUserWithPet inserts a sample user, a pet they own and a task for
// that pet.
func (f *Factory) SeedUserWithPet(ctx context.Context, q Querier) (Seed, error) {
	var s Seed
	var err error

	if s.UserID, err = InsertUser(ctx, q, f.User()); err != nil {
		return Seed{}, err
	}
	if s.PetID, err = InsertPet(ctx, q, f.Pet(s.UserID)); err != nil {
		return Seed{}, err
	}
	if s.TaskID, err = InsertTask(ctx, q, f.Task(s.UserID, s.PetID), f.Now()); err != nil {
		return Seed{}, err
	}
	return s, nil
}

// MustInsertUser inserts a fresh sample user and fails the test on error.
func (f *Factory) MustInsertUser(t testing.TB, q Querier) domain.User {
	t.Helper()

	u := f.User()
	id, err := InsertUser(context.Background(), q, u)
	require.NoError(t, err, "Failed to insert test user")
	u.ID = id
	return u
}

// MustInsertPet inserts a sample pet for userID and fails the test on error.
func (f *Factory) MustInsertPet(t testing.TB, q Querier, userID int64) domain.Pet {
	t.Helper()

	p := f.Pet(userID)
	id, err := InsertPet(context.Background(), q, p)
	require.NoError(t, err, "Failed to insert test pet")
	p.ID = id
	return p
}

// MustInsertTask inserts a sample task and fails the test on error.
func (f *Factory) MustInsertTask(t testing.TB, q Querier, userID, petID int64) domain.Task {
	t.Helper()

	task := f.Task(userID, petID)
	id, err := InsertTask(context.Background(), q, task, f.Now())
	require.NoError(t, err, "Failed to insert test task")
	task.ID = id
	return task
}
