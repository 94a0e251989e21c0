// Package normalize prepares user-typed expressions for the parser: it
// lowercases letters, drops whitespace, and writes out implicit
// multiplication ("5x(x+2)" becomes "5*x*(x+2)").
package normalize

import (
	"strings"
	"unicode"
)

// functions are matched longest first so "log" wins over a shorter prefix.
var functions = []string{"sin", "cos", "tan", "sec", "csc", "cot", "log", "ln"}

type class int

const (
	classNone     class = iota // start of input or an operator
	classNumber                // digit or '.'
	classLetter                // variable letter
	classClose                 // ')'
	classFunction              // function name, waiting for its '('
)

// String returns the normalized form of input. It never fails; text the
// parser cannot accept is passed through for the parser to reject.
func String(input string) string {
	s := compact(input)

	var sb strings.Builder
	sb.Grow(len(s) + len(s)/2)

	prev := classNone
	for i := 0; i < len(s); {
		if name := functionAt(s, i); name != "" {
			if prev == classNumber || prev == classLetter || prev == classClose {
				sb.WriteByte('*')
			}
			sb.WriteString(name)
			i += len(name)
			prev = classFunction
			continue
		}

		ch := s[i]
		cur := classify(ch)
		if implicitProduct(prev, cur, ch) {
			sb.WriteByte('*')
		}
		sb.WriteByte(ch)
		prev = cur
		i++
	}
	return sb.String()
}

// compact lowercases ASCII letters and removes whitespace.
func compact(input string) string {
	var sb strings.Builder
	sb.Grow(len(input))
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if unicode.IsSpace(rune(ch)) {
			continue
		}
		if ch >= 'A' && ch <= 'Z' {
			ch += 'a' - 'A'
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

func functionAt(s string, i int) string {
	for _, name := range functions {
		if strings.HasPrefix(s[i:], name) {
			return name
		}
	}
	return ""
}

func classify(ch byte) class {
	switch {
	case (ch >= '0' && ch <= '9') || ch == '.':
		return classNumber
	case ch >= 'a' && ch <= 'z':
		return classLetter
	case ch == ')':
		return classClose
	default:
		return classNone
	}
}

// implicitProduct reports whether a '*' belongs between the previous token
// class and ch.
func implicitProduct(prev, cur class, ch byte) bool {
	switch prev {
	case classNumber:
		return cur == classLetter || ch == '('
	case classLetter, classClose:
		return cur == classNumber || cur == classLetter || ch == '('
	default:
		return false
	}
}
