// Package testdb owns the isolated relational database used by the pet-care
// test suites.
//
// A Manager wraps one pinned connection with autocommit off: the first
// statement opens an implicit transaction that stays open until Commit or
// Rollback, so a test either keeps its writes explicitly or loses them.
// Three dialects are supported (postgres via pgx, mysql via
// go-sql-driver/mysql, sqlite via modernc.org/sqlite); queries are always
// written with positional "?" placeholders and rebound for the driver.
//
// # Transaction Isolation Pattern
//
// A Session initialises the schema once and then gives every test its own
// transaction that is rolled back unconditionally, including when the test
// panics or calls t.FailNow:
//
//	func TestPets(t *testing.T) {
//	    sess, err := testdb.OpenSession(ctx, cfg)
//	    require.NoError(t, err)
//	    defer sess.Close(ctx)
//
//	    sess.Run(t, func(t testing.TB, db *testdb.Manager) {
//	        res, err := db.Query(ctx, "INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)", ...)
//	        require.NoError(t, err)
//	        // nothing written here survives the test
//	    })
//	}
//
// Suite wires the same lifecycle into a testify suite.
//
// # Environment Variables
//
// Connection settings come from internal/config (TEST_DB_DRIVER, TEST_DB_HOST,
// TEST_DB_PORT, TEST_DB_USER, TEST_DB_PASSWORD, TEST_DB_NAME, ...). When
// TEST_DB_DRIVER is unset, ConfigFromEnv places a sqlite database in a
// temporary directory so the suites run without a server.
package testdb
