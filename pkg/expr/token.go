// Package expr implements the single-variable expression language: a lexer,
// a recursive descent parser producing an expression tree, a numeric
// evaluator, and a table-driven symbolic integrator.
package expr

// TokenType represents the type of a lexical token.
type TokenType int

const (
	// Literals
	TokenNumber   TokenType = iota // number literal
	TokenVariable                  // single-letter variable

	// Operators and punctuation
	TokenPlus   // +
	TokenMinus  // -
	TokenStar   // *
	TokenSlash  // /
	TokenCaret  // ^
	TokenLParen // (
	TokenRParen // )
	TokenComma  // ,

	// Functions
	TokenSin
	TokenCos
	TokenTan
	TokenSec
	TokenCsc
	TokenCot
	TokenLn
	TokenLog     // log(a), implicit base 10
	TokenLogBase // log(b, a), explicit base

	// Special
	TokenEOF // end of text
)

// Token represents a single lexical token.
type Token struct {
	Type   TokenType
	Value  float64 // parsed value (for TokenNumber)
	Symbol byte    // source character (variables and single-character tokens)
	Pos    int     // byte offset in source
}

// tokenNames maps each token type to its debug name.
var tokenNames = map[TokenType]string{
	TokenNumber:   "NUMBER",
	TokenVariable: "VARIABLE",
	TokenPlus:     "PLUS",
	TokenMinus:    "MINUS",
	TokenStar:     "STAR",
	TokenSlash:    "SLASH",
	TokenCaret:    "CARET",
	TokenLParen:   "LPAREN",
	TokenRParen:   "RPAREN",
	TokenComma:    "COMMA",
	TokenSin:      "SIN",
	TokenCos:      "COS",
	TokenTan:      "TAN",
	TokenSec:      "SEC",
	TokenCsc:      "CSC",
	TokenCot:      "COT",
	TokenLn:       "LN",
	TokenLog:      "LOG",
	TokenLogBase:  "LOGBASE",
	TokenEOF:      "EOF",
}

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsFunction reports whether the token names a function.
func (t TokenType) IsFunction() bool {
	return t >= TokenSin && t <= TokenLogBase
}

// isSymbol reports whether t is the single-character operator or punctuation ch.
func (t Token) isSymbol(ch byte) bool {
	return t.Type >= TokenPlus && t.Type <= TokenComma && t.Symbol == ch
}

// describe renders a token for diagnostics.
func (t Token) describe() string {
	switch {
	case t.Type == TokenEOF:
		return "end of text"
	case t.Type == TokenNumber:
		return "number " + formatNumber(t.Value)
	case t.Type.IsFunction():
		return "function " + functionNames[t.Type]
	default:
		return "'" + string(t.Symbol) + "'"
	}
}
