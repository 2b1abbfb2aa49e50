package schema

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"unicode/utf8"
)

//go:embed sql
var files embed.FS

// ErrUnknownDialect is returned for a dialect without an embedded schema.
var ErrUnknownDialect = errors.New("schema: no embedded schema for dialect")

// Migrations returns the goose migration directory for dialect, rooted so
// that migration files sit at ".".
func Migrations(dialect string) (fs.FS, error) {
	dir := path.Join("sql", dialect)
	if _, err := fs.Stat(files, dir); err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownDialect, dialect)
	}
	return fs.Sub(files, dir)
}

// Embedded returns the concatenated schema source for dialect, in
// migration order.
func Embedded(dialect string) (string, error) {
	fsys, err := Migrations(dialect)
	if err != nil {
		return "", err
	}

	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return "", err
	}

	// fs.Glob sorts, and migration names are zero-padded
	var buf bytes.Buffer
	for _, name := range names {
		contents, err := fs.ReadFile(fsys, name)
		if err != nil {
			return "", fmt.Errorf("schema: read %s: %w", name, err)
		}
		buf.Write(contents)
		buf.WriteByte('\n')
	}
	return buf.String(), nil
}

// ReadFile loads a schema source from disk. The file must be UTF-8 text
// and contain more than whitespace.
func ReadFile(path string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("schema: read file: %w", err)
	}

	if !utf8.Valid(contents) {
		return "", fmt.Errorf("schema: file %s contains non-UTF-8 data", path)
	}

	if len(bytes.TrimSpace(contents)) == 0 {
		return "", fmt.Errorf("schema: file %s is empty", path)
	}

	return string(contents), nil
}
