package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/phrazzld/petcare-harness/internal/store"
)

// Row is one result row keyed by column name. Text values the driver hands
// back as []byte are stored as string.
type Row map[string]any

// Int64 returns the column as an integer when it holds one, in any of the
// representations drivers use (int64, numeric string, integral float).
func (r Row) Int64(col string) (int64, bool) {
	return toInt64(r[col])
}

// Float64 returns the column as a float; decimal columns arrive as strings
// from some drivers.
func (r Row) Float64(col string) (float64, bool) {
	switch v := r[col].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	if n, ok := toInt64(r[col]); ok {
		return float64(n), true
	}
	return 0, false
}

// Text returns the column formatted as text, or "" for NULL.
func (r Row) Text(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Result is what Query returns. Read statements fill Columns and Rows;
// writes fill RowsAffected and, for inserts, LastInsertID.
type Result struct {
	Columns      []string
	Rows         []Row
	RowsAffected int64
	LastInsertID int64
}

// Query executes one statement on the session connection inside the current
// transaction, opening an implicit one when none is open. Placeholders are
// written as "?" and rebound for the driver.
//
// Integrity failures wrap store.ErrDuplicate, store.ErrForeignKey or
// store.ErrInvalidEntity; the driver error stays reachable with errors.As.
// On postgres a failed statement is rolled back to a savepoint so the
// transaction stays usable, as it does on mysql and sqlite.
func (m *Manager) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	tx, err := m.currentTx(ctx)
	if err != nil {
		return nil, err
	}

	bound := sqlx.Rebind(m.dialect.BindType(), query)

	var res *Result
	err = m.atomically(ctx, tx, statementSavepoint, func() error {
		var runErr error
		res, runErr = m.run(ctx, tx, bound, args)
		return runErr
	})
	if err != nil {
		err = m.dialect.classify(err)
		if store.IsIntegrityError(err) {
			m.logger.DebugContext(ctx, "constraint violation", slog.String("query", bound), slog.String("error", err.Error()))
		} else {
			m.logger.WarnContext(ctx, "query failed", slog.String("query", bound), slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("testdb: query failed: %w", err)
	}
	return res, nil
}

// QueryOne returns the first row of the result, or a nil Row and nil error
// when the statement produced no rows.
func (m *Manager) QueryOne(ctx context.Context, query string, args ...any) (Row, error) {
	res, err := m.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, nil
	}
	return res.Rows[0], nil
}

func (m *Manager) run(ctx context.Context, tx *sql.Tx, query string, args []any) (*Result, error) {
	st := parseStatement(query)
	if st.returnsRows() {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		cols, data, err := scanRows(rows)
		if err != nil {
			return nil, err
		}

		res := &Result{Columns: cols, Rows: data}
		if st.returning {
			res.RowsAffected = int64(len(data))
			if st.inserts && len(data) > 0 {
				res.LastInsertID = returnedID(cols, data[0])
			}
		}
		return res, nil
	}

	r, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	res := &Result{Rows: []Row{}}
	if n, err := r.RowsAffected(); err == nil {
		res.RowsAffected = n
	}
	if st.inserts {
		res.LastInsertID = m.lastInsertID(ctx, tx, r, st.table)
	}
	return res, nil
}

// returnedID picks the generated id out of a RETURNING row: a column named
// "id", else the first integer "*_id" column, else the first integer
// column.
func returnedID(cols []string, row Row) int64 {
	if id, ok := toInt64(row["id"]); ok {
		return id
	}
	for _, col := range cols {
		if strings.HasSuffix(strings.ToLower(col), "_id") {
			if id, ok := toInt64(row[col]); ok {
				return id
			}
		}
	}
	for _, col := range cols {
		if id, ok := toInt64(row[col]); ok {
			return id
		}
	}
	return 0
}

// lastInsertID reads the id generated by the insert that produced r. On
// postgres the driver cannot report it, so the dialect query reads the
// current value of the target table's own sequence under a savepoint; it
// fails (SQLSTATE 55000) when this session has not drawn from that
// sequence and yields nothing when the table has none. 0 means no id was
// generated.
func (m *Manager) lastInsertID(ctx context.Context, tx *sql.Tx, r sql.Result, table string) int64 {
	lookup := m.dialect.lastInsertIDQuery()
	if lookup == "" {
		id, err := r.LastInsertId()
		if err != nil {
			return 0
		}
		return id
	}
	if table == "" {
		return 0
	}

	var id sql.NullInt64
	err := m.atomically(ctx, tx, insertIDSavepoint, func() error {
		return tx.QueryRowContext(ctx, lookup, table).Scan(&id)
	})
	if err != nil {
		m.logger.DebugContext(ctx, "no generated id for insert", slog.String("table", table), slog.String("error", err.Error()))
		return 0
	}
	return id.Int64
}

func scanRows(rows *sql.Rows) ([]string, []Row, error) {
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	out := make([]Row, 0)
	for rows.Next() {
		row := Row{}
		if err := sqlx.MapScan(rows, row); err != nil {
			return nil, nil, err
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	case []byte:
		i, err := strconv.ParseInt(string(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}
