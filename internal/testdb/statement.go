package testdb

import "strings"

// statement is what Query needs to know about a SQL string before running
// it: which keyword drives it, whether it hands rows back, and whether it
// inserts (and into which table).
type statement struct {
	verb      string
	returning bool
	inserts   bool
	table     string
}

// readKeywords start statements that produce a result set.
var readKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"SHOW":     true,
	"VALUES":   true,
	"TABLE":    true,
	"EXPLAIN":  true,
	"DESCRIBE": true,
	"DESC":     true,
	"PRAGMA":   true,
}

// mainVerbs can follow the CTE list of a WITH statement.
var mainVerbs = map[string]bool{
	"SELECT":  true,
	"INSERT":  true,
	"UPDATE":  true,
	"DELETE":  true,
	"REPLACE": true,
	"MERGE":   true,
	"VALUES":  true,
	"TABLE":   true,
}

// insertModifiers may sit between INSERT and the target table.
var insertModifiers = map[string]bool{
	"INTO":          true,
	"IGNORE":        true,
	"OR":            true,
	"REPLACE":       true,
	"ROLLBACK":      true,
	"ABORT":         true,
	"FAIL":          true,
	"LOW_PRIORITY":  true,
	"HIGH_PRIORITY": true,
	"DELAYED":       true,
}

type token struct {
	text  string
	word  string
	depth int
}

func parseStatement(query string) statement {
	toks := tokenize(query)
	if len(toks) == 0 {
		return statement{}
	}

	st := statement{verb: toks[0].word}
	if st.verb == "WITH" {
		base := toks[0].depth
		for _, tok := range toks[1:] {
			if tok.depth == base && mainVerbs[tok.word] {
				st.verb = tok.word
				break
			}
		}
	}

	for i, tok := range toks {
		switch tok.word {
		case "RETURNING":
			st.returning = true
		case "INSERT", "REPLACE":
			if tok.word == "REPLACE" && i != 0 && st.verb != "REPLACE" {
				// REPLACE(...) the string function
				continue
			}
			if st.inserts {
				continue
			}
			st.inserts = true
			j := i + 1
			for j < len(toks) && insertModifiers[toks[j].word] {
				j++
			}
			if j < len(toks) && toks[j].word != "SELECT" && toks[j].word != "VALUES" {
				st.table = toks[j].text
			}
		}
	}
	return st
}

func (s statement) returnsRows() bool {
	return s.returning || readKeywords[s.verb]
}

func returnsRows(query string) bool {
	return parseStatement(query).returnsRows()
}

func isInsert(query string) bool {
	return parseStatement(query).inserts
}

// tokenize splits query into identifier-like tokens, skipping string
// literals and comments. Dotted names ("public.users") and quoted
// identifiers come back as one token; word is the upper-cased form of
// unquoted tokens and "" for quoted ones.
func tokenize(query string) []token {
	var (
		toks  []token
		depth int
	)
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '-' && strings.HasPrefix(query[i:], "--"):
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				return toks
			}
			i += end + 1
		case c == '/' && strings.HasPrefix(query[i:], "/*"):
			end := strings.Index(query[i+2:], "*/")
			if end < 0 {
				return toks
			}
			i += end + 4
		case c == '\'':
			i = skipQuoted(query, i, '\'')
		case c == '(':
			depth++
			i++
		case c == ')':
			depth--
			i++
		case c == '"' || c == '`' || isWordByte(c):
			end := scanName(query, i)
			text := query[i:end]
			word := ""
			if isWordByte(c) && !strings.ContainsAny(text, "\"`") {
				word = strings.ToUpper(text)
			}
			toks = append(toks, token{text: text, word: word, depth: depth})
			i = end
		default:
			i++
		}
	}
	return toks
}

// scanName returns the end of the possibly dotted, possibly quoted name
// starting at i.
func scanName(query string, i int) int {
	for {
		switch c := query[i]; {
		case c == '"' || c == '`':
			i = skipQuoted(query, i, c)
		default:
			for i < len(query) && isWordByte(query[i]) {
				i++
			}
		}
		if i+1 < len(query) && query[i] == '.' && (query[i+1] == '"' || query[i+1] == '`' || isWordByte(query[i+1])) {
			i++
			continue
		}
		return i
	}
}

// skipQuoted returns the index just past the quoted run starting at i. A
// doubled quote stays inside the run.
func skipQuoted(query string, i int, quote byte) int {
	for j := i + 1; j < len(query); j++ {
		if query[j] != quote {
			continue
		}
		if j+1 < len(query) && query[j+1] == quote {
			j++
			continue
		}
		return j + 1
	}
	return len(query)
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}
