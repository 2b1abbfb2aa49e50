package schema

import (
	"fmt"
	"strings"
)

// SplitOptions adjusts Split to a dialect's lexical rules.
type SplitOptions struct {
	// BackslashEscapes makes a backslash escape the next character inside
	// quoted strings, as mysql does by default. Standard SQL (sqlite,
	// postgres) treats a backslash as an ordinary character.
	BackslashEscapes bool
}

// Split breaks src into statements on ';' following standard SQL quoting.
// Semicolons inside quoted strings, quoted identifiers, comments and
// postgres dollar-quoted bodies do not split. Comments are dropped, and
// pieces that hold nothing but whitespace are skipped. A final statement
// without a trailing ';' is kept.
func Split(src string) ([]string, error) {
	return SplitWith(src, SplitOptions{})
}

// SplitWith is Split with dialect options.
func SplitWith(src string, opts SplitOptions) ([]string, error) {
	var (
		stmts     []string
		current   strings.Builder
		dollarTag string
		quote     byte // active quote character, 0 when outside quotes
		line      = 1
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			stmts = append(stmts, s)
		}
		current.Reset()
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		if c == '\n' {
			line++
		}

		switch {
		case dollarTag != "":
			if strings.HasPrefix(src[i:], dollarTag) {
				current.WriteString(dollarTag)
				i += len(dollarTag) - 1
				dollarTag = ""
				continue
			}
			current.WriteByte(c)
			continue

		case quote != 0:
			current.WriteByte(c)
			if c == '\\' && opts.BackslashEscapes && quote != '`' && i+1 < len(src) {
				i++
				current.WriteByte(src[i])
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}

		switch {
		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				i = len(src)
				continue
			}
			// keep the newline so the statement's lines stay separated
			i += end - 1

		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("schema: unterminated block comment starting on line %d", line)
			}
			line += strings.Count(src[i:i+2+end], "\n")
			i += end + 3
			current.WriteByte(' ')

		case c == '\'' || c == '"' || c == '`':
			quote = c
			current.WriteByte(c)

		case c == '$':
			if tag, ok := readDollarTag(src[i:]); ok {
				dollarTag = tag
				current.WriteString(tag)
				i += len(tag) - 1
				continue
			}
			current.WriteByte(c)

		case c == ';':
			flush()

		default:
			current.WriteByte(c)
		}
	}

	switch {
	case quote != 0:
		return nil, fmt.Errorf("schema: unterminated %c quote at end of input", quote)
	case dollarTag != "":
		return nil, fmt.Errorf("schema: unterminated dollar-quoted body %s", dollarTag)
	}

	flush()
	return stmts, nil
}

// readDollarTag returns the opening delimiter ($$ or $name$) at the start of s.
// Positional parameters such as $1 are not tags.
func readDollarTag(s string) (string, bool) {
	for j := 1; j < len(s); j++ {
		c := s[j]
		switch {
		case c == '$':
			return s[:j+1], true
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9' && j > 1:
		default:
			return "", false
		}
	}
	return "", false
}
