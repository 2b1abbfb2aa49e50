package testdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/petcare-harness/internal/config"
	"github.com/phrazzld/petcare-harness/internal/platform/logger"
	"github.com/phrazzld/petcare-harness/internal/store"
)

func insertUser(t testing.TB, db *Manager, name string) int64 {
	t.Helper()
	res, err := db.Query(context.Background(),
		"INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)",
		name, name+"@example.com", "hash")
	require.NoError(t, err)
	require.NotZero(t, res.LastInsertID, "insert must report the generated id")
	return res.LastInsertID
}

func insertPet(t testing.TB, db *Manager, userID int64, name string) int64 {
	t.Helper()
	res, err := db.Query(context.Background(),
		"INSERT INTO pets (user_id, name, age, species, gender, weight) VALUES (?, ?, ?, ?, ?, ?)",
		userID, name, 3.5, "dog", "female", 25.5)
	require.NoError(t, err)
	return res.LastInsertID
}

func insertTask(t testing.TB, db *Manager, userID, petID int64) int64 {
	t.Helper()
	due := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	res, err := db.Query(context.Background(),
		"INSERT INTO tasks (user_id, pet_id, task_type, title, due_date) VALUES (?, ?, ?, ?, ?)",
		userID, petID, "feeding", "Morning feeding", due)
	require.NoError(t, err)
	return res.LastInsertID
}

func countRows(t testing.TB, db *Manager, table string) int64 {
	t.Helper()
	row, err := db.QueryOne(context.Background(), "SELECT COUNT(*) AS n FROM "+table)
	require.NoError(t, err)
	require.NotNil(t, row)
	n, ok := row.Int64("n")
	require.True(t, ok, "count returned %T", row["n"])
	return n
}

// exerciseSession checks the harness guarantees against the database cfg
// describes. It runs for sqlite in every test run and for postgres and
// mysql in the integration build.
func exerciseSession(t *testing.T, cfg config.DatabaseConfig) {
	ctx := context.Background()

	sess, err := OpenSession(ctx, cfg, WithLogger(logger.NewTestOutputLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, sess.Close(ctx)) })

	tables, err := sess.Manager().Tables(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.Manager().Rollback(ctx))
	assert.Equal(t, []string{"pets", "tasks", "users"}, tables)

	t.Run("writes do not leak between tests", func(t *testing.T) {
		sess.Run(t, func(t testing.TB, db *Manager) {
			assert.Zero(t, countRows(t, db, "users"))
			userID := insertUser(t, db, "leaky")
			insertPet(t, db, userID, "Fluffy")
			assert.Equal(t, int64(1), countRows(t, db, "users"))
		})
		sess.Run(t, func(t testing.TB, db *Manager) {
			assert.Zero(t, countRows(t, db, "users"))
			assert.Zero(t, countRows(t, db, "pets"))
		})
	})

	t.Run("duplicate email or username is rejected", func(t *testing.T) {
		sess.Run(t, func(t testing.TB, db *Manager) {
			insertUser(t, db, "alice")

			_, err := db.Query(ctx,
				"INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)",
				"alice2", "alice@example.com", "hash")
			require.ErrorIs(t, err, store.ErrDuplicate, "same email")

			_, err = db.Query(ctx,
				"INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)",
				"alice", "other@example.com", "hash")
			require.ErrorIs(t, err, store.ErrDuplicate, "same username")

			insertUser(t, db, "bob")
			assert.Equal(t, int64(2), countRows(t, db, "users"), "the transaction survives the failures")
		})
	})

	t.Run("constraint violations are classified", func(t *testing.T) {
		sess.Run(t, func(t testing.TB, db *Manager) {
			userID := insertUser(t, db, "carol")

			_, err := db.Query(ctx,
				"INSERT INTO pets (user_id, name, age, species, gender, weight) VALUES (?, ?, ?, ?, ?, ?)",
				userID+1000, "Ghost", 2.0, "cat", "male", 4.0)
			require.ErrorIs(t, err, store.ErrForeignKey)

			_, err = db.Query(ctx,
				"INSERT INTO pets (user_id, name, age, species, gender, weight) VALUES (?, ?, ?, ?, ?, ?)",
				userID, "Newborn", 0.0, "cat", "male", 4.0)
			require.ErrorIs(t, err, store.ErrInvalidEntity, "age check")

			_, err = db.Query(ctx,
				"INSERT INTO users (username, email, password_hash) VALUES (?, NULL, ?)",
				"dave", "hash")
			require.ErrorIs(t, err, store.ErrInvalidEntity, "not null")
		})
	})

	t.Run("query one returns nil when nothing matches", func(t *testing.T) {
		sess.Run(t, func(t testing.TB, db *Manager) {
			row, err := db.QueryOne(ctx, "SELECT * FROM users WHERE email = ?", "nobody@example.com")
			require.NoError(t, err)
			assert.Nil(t, row)

			insertUser(t, db, "erin")
			row, err = db.QueryOne(ctx, "SELECT username, email FROM users WHERE email = ?", "erin@example.com")
			require.NoError(t, err)
			require.NotNil(t, row)
			assert.Equal(t, "erin", row.Text("username"))
		})
	})

	t.Run("bulk inserts", func(t *testing.T) {
		sess.Run(t, func(t testing.TB, db *Manager) {
			userID := insertUser(t, db, "frank")

			start := time.Now()
			for i := 0; i < 100; i++ {
				_, err := db.Query(ctx,
					"INSERT INTO pets (user_id, name, age, species, gender, weight) VALUES (?, ?, ?, ?, ?, ?)",
					userID, "Pet", float64(i%50+1), "dog", "other", 10.0)
				require.NoError(t, err)
			}
			assert.Less(t, time.Since(start), 30*time.Second)

			res, err := db.Query(ctx, "SELECT pet_id FROM pets WHERE user_id = ? ORDER BY pet_id", userID)
			require.NoError(t, err)
			assert.Len(t, res.Rows, 100)
		})
	})

	t.Run("schema init twice and truncate-all", func(t *testing.T) {
		err := sess.WithTx(ctx, func(ctx context.Context, db *Manager) error {
			userID := insertUser(t, db, "grace")
			petID := insertPet(t, db, userID, "Biscuit")
			insertTask(t, db, userID, petID)
			return db.Commit(ctx)
		})
		require.NoError(t, err)

		mgr := sess.Manager()
		require.NoError(t, mgr.InitializeEmbeddedSchema(ctx))
		assert.Equal(t, int64(1), countRows(t, mgr, "users"), "re-running the schema keeps existing rows")
		require.NoError(t, mgr.Rollback(ctx))

		require.NoError(t, mgr.Cleanup(ctx))

		sess.Run(t, func(t testing.TB, db *Manager) {
			for _, table := range []string{"users", "pets", "tasks"} {
				assert.Zero(t, countRows(t, db, table), table)
			}
		})
	})

	t.Run("backslashes in schema literals", func(t *testing.T) {
		literal := `'C:\'`
		if cfg.Driver == "mysql" {
			literal = `'C:\\'`
		}
		mgr := sess.Manager()
		require.NoError(t, mgr.InitializeSchema(ctx,
			"CREATE TEMPORARY TABLE paths (p VARCHAR(32));\n"+
				"INSERT INTO paths (p) VALUES ("+literal+");\n"+
				"INSERT INTO paths (p) VALUES ('D:');"))

		res, err := mgr.Query(ctx, "SELECT p FROM paths ORDER BY p")
		require.NoError(t, err)
		require.Len(t, res.Rows, 2)
		assert.Equal(t, `C:\`, res.Rows[0].Text("p"))
		assert.Equal(t, "D:", res.Rows[1].Text("p"))
		require.NoError(t, mgr.Rollback(ctx))
	})

	t.Run("generated ids for CTE and RETURNING inserts", func(t *testing.T) {
		if cfg.Driver == "mysql" {
			t.Skip("mysql has neither RETURNING nor WITH ... INSERT")
		}
		sess.Run(t, func(t testing.TB, db *Manager) {
			first := insertUser(t, db, "henry")

			res, err := db.Query(ctx,
				"WITH src AS (SELECT ? AS username) "+
					"INSERT INTO users (username, email, password_hash) SELECT username, username || '@example.com', 'hash' FROM src",
				"irene")
			require.NoError(t, err)
			assert.Equal(t, int64(1), res.RowsAffected)
			assert.Equal(t, first+1, res.LastInsertID)

			res, err = db.Query(ctx,
				"INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?) RETURNING username, user_id",
				"jack", "jack@example.com", "hash")
			require.NoError(t, err)
			assert.Equal(t, first+2, res.LastInsertID)
			assert.Equal(t, "jack", res.Rows[0].Text("username"))
		})
	})

	t.Run("inserts without a sequence report no id", func(t *testing.T) {
		if cfg.Driver != "postgres" {
			t.Skip("rowid and AUTO_INCREMENT tables always report an id")
		}
		sess.Run(t, func(t testing.TB, db *Manager) {
			insertUser(t, db, "kate")
			_, err := db.Query(ctx, "CREATE TEMPORARY TABLE notes (body TEXT)")
			require.NoError(t, err)

			res, err := db.Query(ctx, "INSERT INTO notes (body) VALUES (?)", "hello")
			require.NoError(t, err)
			assert.Zero(t, res.LastInsertID, "the users sequence belongs to an earlier insert")
		})
	})
}

func TestSQLiteSession(t *testing.T) {
	exerciseSession(t, SQLiteConfig(t.TempDir()))
}
