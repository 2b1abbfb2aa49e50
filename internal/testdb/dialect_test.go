package testdb

import (
	"errors"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/petcare-harness/internal/config"
	"github.com/phrazzld/petcare-harness/internal/store"
)

func TestLookupDialect(t *testing.T) {
	for _, name := range []string{"postgres", " Postgres ", "mysql", "sqlite"} {
		d, err := LookupDialect(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, d.DriverName())
	}

	_, err := LookupDialect("oracle")
	require.ErrorIs(t, err, ErrUnknownDialect)
	assert.Contains(t, err.Error(), "mysql, postgres, sqlite")

	assert.Equal(t, []string{"mysql", "postgres", "sqlite"}, DialectNames())
}

func TestDialectDrivers(t *testing.T) {
	tests := []struct {
		dialect string
		driver  string
		goose   string
		bind    int
	}{
		{"postgres", "pgx", "postgres", sqlx.DOLLAR},
		{"mysql", "mysql", "mysql", sqlx.QUESTION},
		{"sqlite", "sqlite", "sqlite3", sqlx.QUESTION},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			d, err := LookupDialect(tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, d.Name())
			assert.Equal(t, tt.driver, d.DriverName())
			assert.Equal(t, tt.goose, d.GooseDialect())
			assert.Equal(t, tt.bind, d.BindType())
		})
	}

	assert.Equal(t, "SELECT * FROM pets WHERE user_id = $1 AND name = $2",
		sqlx.Rebind(postgresDialect{}.BindType(), "SELECT * FROM pets WHERE user_id = ? AND name = ?"))
	assert.Equal(t, "SELECT * FROM pets WHERE user_id = ?",
		sqlx.Rebind(mysqlDialect{}.BindType(), "SELECT * FROM pets WHERE user_id = ?"))
}

func TestPostgresDSN(t *testing.T) {
	d := postgresDialect{}

	plain := d.DSN(config.DatabaseConfig{
		Driver:         "postgres",
		Host:           "db",
		Port:           6543,
		User:           "postgres",
		Name:           "petcare_test",
		SSLMode:        "disable",
		ConnectTimeout: 1500 * time.Millisecond,
	})
	assert.Equal(t, "postgres://postgres@db:6543/petcare_test?connect_timeout=2&sslmode=disable", plain)

	dsn := d.DSN(config.DatabaseConfig{
		Driver:   "postgres",
		Host:     "localhost",
		User:     "petcare",
		Password: "p@ss word",
		Name:     "petcare_test",
	})
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "localhost:5432", u.Host, "port falls back to the postgres default")
	assert.Equal(t, "/petcare_test", u.Path)
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss word", password)

	maintenance := d.dsn(config.DatabaseConfig{Host: "localhost", Name: "petcare_test"}, maintenanceDatabase)
	assert.Contains(t, maintenance, "/postgres")
}

func TestMySQLDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:         "mysql",
		Host:           "127.0.0.1",
		User:           "root",
		Password:       "s3cret",
		Name:           "petcare_test",
		ConnectTimeout: 3 * time.Second,
	}

	parsed, err := mysql.ParseDSN(mysqlDialect{}.DSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "root", parsed.User)
	assert.Equal(t, "s3cret", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "127.0.0.1:3306", parsed.Addr)
	assert.Equal(t, "petcare_test", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, 3*time.Second, parsed.Timeout)

	server, err := mysql.ParseDSN(mysqlDialect{}.config(cfg, "").FormatDSN())
	require.NoError(t, err)
	assert.Empty(t, server.DBName, "ensure connects without selecting a database")
	cfg.User = ""
	parsed, err = mysql.ParseDSN(mysqlDialect{}.DSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "root", parsed.User, "an unset user falls back to the driver default")
}

func TestSQLiteDSN(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, filepath.Join(dir, "petcare.db"), SQLitePath(filepath.Join(dir, "petcare")))
	assert.Equal(t, filepath.Join(dir, "petcare.sqlite"), SQLitePath(filepath.Join(dir, "petcare.sqlite")))

	dsn := sqliteDialect{}.DSN(config.DatabaseConfig{Driver: "sqlite", Name: filepath.Join(dir, "petcare")})
	assert.Equal(t, filepath.Join(dir, "petcare.db")+"?"+sqlitePragmas, dsn)
	assert.Contains(t, dsn, "foreign_keys(1)")
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"pets"`, postgresDialect{}.QuoteIdent("pets"))
	assert.Equal(t, `"we""ird"`, sqliteDialect{}.QuoteIdent(`we"ird`))
	assert.Equal(t, "`pets`", mysqlDialect{}.QuoteIdent("pets"))
	assert.Equal(t, "`we``ird`", mysqlDialect{}.QuoteIdent("we`ird"))
}

func TestCleanupPlanGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tables := []string{"pets", "tasks", "users"}
	for _, name := range DialectNames() {
		t.Run(name, func(t *testing.T) {
			d, err := LookupDialect(name)
			require.NoError(t, err)
			g.Assert(t, "cleanup_"+name, []byte(d.CleanupPlan(tables).String()))
		})
	}
}

func TestPostgresClassify(t *testing.T) {
	d := postgresDialect{}

	tests := []struct {
		code string
		want error
	}{
		{uniqueViolationCode, store.ErrDuplicate},
		{foreignKeyViolationCode, store.ErrForeignKey},
		{checkViolationCode, store.ErrInvalidEntity},
		{notNullViolationCode, store.ErrInvalidEntity},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := d.classify(&pgconn.PgError{Code: tt.code, Message: "constraint failed"})
			require.ErrorIs(t, err, tt.want)

			var pgErr *pgconn.PgError
			require.ErrorAs(t, err, &pgErr, "driver error stays reachable")
			assert.Equal(t, tt.code, pgErr.Code)
		})
	}

	plain := errors.New("connection reset")
	assert.Equal(t, plain, d.classify(plain))

	syntax := &pgconn.PgError{Code: "42601"}
	assert.False(t, store.IsIntegrityError(d.classify(syntax)))

	assert.True(t, d.isUndefinedTable(&pgconn.PgError{Code: undefinedTableCode}))
	assert.False(t, d.isUndefinedTable(plain))
}

func TestMySQLClassify(t *testing.T) {
	d := mysqlDialect{}

	tests := []struct {
		number uint16
		want   error
	}{
		{mysqlDuplicateEntry, store.ErrDuplicate},
		{mysqlNoReferencedRow, store.ErrForeignKey},
		{mysqlRowIsReferenced, store.ErrForeignKey},
		{mysqlCheckViolated, store.ErrInvalidEntity},
		{mysqlBadNull, store.ErrInvalidEntity},
	}
	for _, tt := range tests {
		err := d.classify(&mysql.MySQLError{Number: tt.number, Message: "constraint failed"})
		require.ErrorIs(t, err, tt.want, "error %d", tt.number)

		var myErr *mysql.MySQLError
		require.ErrorAs(t, err, &myErr)
	}

	assert.True(t, d.isUndefinedTable(&mysql.MySQLError{Number: mysqlNoSuchTable}))
	assert.False(t, store.IsIntegrityError(d.classify(&mysql.MySQLError{Number: 1064})))
}
