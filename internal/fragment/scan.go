package fragment

import (
	"strconv"
	"strings"
)

// segment is a run of SQL text, either code or quoted/commented text that
// must pass through untouched.
type segment struct {
	text   string
	quoted bool
}

// split cuts sql into code and quoted segments. Quoted segments are single
// quoted string literals ('' escapes), double quoted identifiers ("" escapes),
// -- line comments and /* block */ comments. An unterminated quote runs to
// the end of the text.
func split(sql string) []segment {
	var segs []segment
	start := 0
	i := 0
	flush := func(end int, quoted bool) {
		if end > start {
			segs = append(segs, segment{text: sql[start:end], quoted: quoted})
		}
		start = end
	}

	for i < len(sql) {
		c := sql[i]
		switch {
		case c == '\'' || c == '"':
			flush(i, false)
			j := i + 1
			for j < len(sql) {
				if sql[j] == c {
					if j+1 < len(sql) && sql[j+1] == c {
						j += 2
						continue
					}
					j++
					break
				}
				j++
			}
			i = j
			flush(i, true)
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			flush(i, false)
			j := strings.IndexByte(sql[i:], '\n')
			if j < 0 {
				i = len(sql)
			} else {
				i += j
			}
			flush(i, true)
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			flush(i, false)
			j := strings.Index(sql[i+2:], "*/")
			if j < 0 {
				i = len(sql)
			} else {
				i += j + 4
			}
			flush(i, true)
		default:
			i++
		}
	}
	flush(len(sql), false)
	return segs
}

// CountPlaceholders counts positional ? placeholders in sql, ignoring quoted
// text and comments.
func CountPlaceholders(sql string) int {
	n := 0
	for _, s := range split(sql) {
		if !s.quoted {
			n += strings.Count(s.text, "?")
		}
	}
	return n
}

// Rebind rewrites positional ? placeholders into PostgreSQL ordinal
// placeholders $1..$n, in document order. Quoted text and comments are
// left intact.
func Rebind(sql string) string {
	var b strings.Builder
	b.Grow(len(sql) + 8)
	n := 0
	for _, s := range split(sql) {
		if s.quoted {
			b.WriteString(s.text)
			continue
		}
		for i := 0; i < len(s.text); i++ {
			if s.text[i] == '?' {
				n++
				b.WriteByte('$')
				b.WriteString(strconv.Itoa(n))
				continue
			}
			b.WriteByte(s.text[i])
		}
	}
	return b.String()
}

// token is a symbolic table reference found in fragment text.
type token struct {
	table    string
	modifier string
	start    int // byte offset of '{'
	end      int // byte offset after '}'
}

// scanToken tries to read a {table} or {table:modifier} token at s[i].
// The table part must be an identifier; the modifier may contain letters,
// digits, '_' and '-'.
func scanToken(s string, i int) (token, bool) {
	if i >= len(s) || s[i] != '{' {
		return token{}, false
	}
	j := i + 1
	if j >= len(s) || !isIdentStart(s[j]) {
		return token{}, false
	}
	for j < len(s) && isIdentPart(s[j]) {
		j++
	}
	tok := token{table: s[i+1 : j], start: i}
	if j < len(s) && s[j] == ':' {
		k := j + 1
		for k < len(s) && (isIdentPart(s[k]) || s[k] == '-') {
			k++
		}
		tok.modifier = s[j+1 : k]
		j = k
	}
	if j >= len(s) || s[j] != '}' {
		return token{}, false
	}
	tok.end = j + 1
	return tok, true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
