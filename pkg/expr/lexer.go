package expr

import (
	"strconv"
	"unicode"

	"github.com/lemonberrylabs/scalp/pkg/types"
)

// functionNames maps function tokens to their source spelling.
var functionNames = map[TokenType]string{
	TokenSin:     "sin",
	TokenCos:     "cos",
	TokenTan:     "tan",
	TokenSec:     "sec",
	TokenCsc:     "csc",
	TokenCot:     "cot",
	TokenLn:      "ln",
	TokenLog:     "log",
	TokenLogBase: "log",
}

// keywords is checked longest first. TokenLog is resolved to TokenLogBase
// after looking at its argument list.
var keywords = []struct {
	name string
	tt   TokenType
}{
	{"sin", TokenSin},
	{"cos", TokenCos},
	{"tan", TokenTan},
	{"sec", TokenSec},
	{"csc", TokenCsc},
	{"cot", TokenCot},
	{"log", TokenLog},
	{"ln", TokenLn},
}

// Lexer tokenizes an expression string one token at a time.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Pos returns the current read offset.
func (l *Lexer) Pos() int {
	return l.pos
}

// Tokenize scans the entire input and returns all tokens, ending with TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// Next returns the next token from the input.
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	ch := l.input[l.pos]

	if isDigit(ch) {
		return l.readNumber()
	}

	if isLetter(ch) {
		return l.readWord()
	}

	var tt TokenType
	switch ch {
	case '+':
		tt = TokenPlus
	case '-':
		tt = TokenMinus
	case '*':
		tt = TokenStar
	case '/':
		tt = TokenSlash
	case '^':
		tt = TokenCaret
	case '(':
		tt = TokenLParen
	case ')':
		tt = TokenRParen
	case ',':
		tt = TokenComma
	default:
		return Token{}, types.NewUnexpectedCharacterError(ch, l.pos)
	}
	l.pos++
	return Token{Type: tt, Symbol: ch, Pos: l.pos - 1}, nil
}

// readNumber reads digits, an optional '.', and more digits. A trailing '.'
// with no fractional digits is accepted.
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}

	raw := l.input[start:l.pos]
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// Overflowing literals still carry ±Inf from ParseFloat.
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			return Token{}, types.NewParseError("invalid number "+strconv.Quote(raw), start)
		}
	}
	return Token{Type: TokenNumber, Value: f, Pos: start}, nil
}

// readWord recognizes a function name or falls back to a single-letter variable.
func (l *Lexer) readWord() (Token, error) {
	start := l.pos
	rest := l.input[l.pos:]
	for _, kw := range keywords {
		if len(rest) < len(kw.name) || rest[:len(kw.name)] != kw.name {
			continue
		}
		after := start + len(kw.name)
		if after >= len(l.input) || l.input[after] != '(' {
			return Token{}, types.NewMissingParenthesisError(kw.name, after)
		}
		l.pos = after
		tt := kw.tt
		if tt == TokenLog && l.hasTopLevelComma(after) {
			tt = TokenLogBase
		}
		return Token{Type: tt, Symbol: kw.name[0], Pos: start}, nil
	}

	l.pos++
	return Token{Type: TokenVariable, Symbol: l.input[start], Pos: start}, nil
}

// hasTopLevelComma scans from the '(' at open to its matching ')' and reports
// whether a ',' appears at depth one. An unterminated group reports false and
// is left for the parser to reject.
func (l *Lexer) hasTopLevelComma(open int) bool {
	depth := 0
	for i := open; i < len(l.input); i++ {
		switch l.input[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return false
			}
		case ',':
			if depth == 1 {
				return true
			}
		}
	}
	return false
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
