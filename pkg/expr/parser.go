package expr

import (
	"fmt"

	"github.com/lemonberrylabs/scalp/pkg/types"
)

// MaxExpressionLength is the maximum allowed length for a single expression.
const MaxExpressionLength = 400

// Parser is a recursive descent parser over a Lexer's token stream. The
// current token is cached between lookahead and consumption.
//
// Grammar (E expression, T term, F factor, X exponent):
//
//	E  := T E'
//	E' := '+' T E' | '-' T E' | ε
//	T  := F T'
//	T' := '*' F T' | '/' F T' | ε
//	F  := X F1
//	F1 := '^' X F1 | ε
//	X  := '(' E ')' | '-' F | number | variable
//	    | sin|cos|tan|sec|csc|cot|ln '(' E ')'
//	    | log '(' E ')' | log '(' number ',' E ')'
type Parser struct {
	lex *Lexer
	tok Token
}

var unaryFuncs = map[TokenType]Func{
	TokenSin: FuncSin,
	TokenCos: FuncCos,
	TokenTan: FuncTan,
	TokenSec: FuncSec,
	TokenCsc: FuncCsc,
	TokenCot: FuncCot,
	TokenLn:  FuncLn,
}

// Parse parses a complete expression string into a tree.
func Parse(input string) (Node, error) {
	if len(input) > MaxExpressionLength {
		return nil, types.NewParseError(
			fmt.Sprintf("expression exceeds maximum length of %d characters", MaxExpressionLength),
			MaxExpressionLength)
	}

	p := &Parser{lex: NewLexer(input)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.tok.Type != TokenEOF {
		return nil, types.NewParseError("unexpected "+p.tok.describe(), p.tok.Pos)
	}
	return node, nil
}

// advance replaces the current token with the next one from the lexer.
func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

// match checks that the current token is the expected closing symbol and consumes it.
func (p *Parser) match(expected byte) error {
	if p.tok.Type == TokenEOF {
		return types.NewParseError(fmt.Sprintf("expected '%c' before end of text", expected), p.tok.Pos)
	}
	if !p.tok.isSymbol(expected) {
		return types.NewParseError(fmt.Sprintf("expected '%c', got %s", expected, p.tok.describe()), p.tok.Pos)
	}
	return p.advance()
}

// parseExpression handles E := T E'.
func (p *Parser) parseExpression() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	return p.parseExpressionTail(left)
}

// parseExpressionTail handles E'. The accumulated left side is threaded
// through the recursion so that a-b-c builds (a-b)-c.
func (p *Parser) parseExpressionTail(left Node) (Node, error) {
	var op Op
	switch p.tok.Type {
	case TokenPlus:
		op = OpAdd
	case TokenMinus:
		op = OpSub
	default:
		return left, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	return p.parseExpressionTail(&BinaryNode{Op: op, Left: left, Right: right})
}

// parseTerm handles T := F T'.
func (p *Parser) parseTerm() (Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	return p.parseTermTail(left)
}

// parseTermTail handles T', left-associative like parseExpressionTail.
func (p *Parser) parseTermTail(left Node) (Node, error) {
	var op Op
	switch p.tok.Type {
	case TokenStar:
		op = OpMul
	case TokenSlash:
		op = OpDiv
	default:
		return left, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	return p.parseTermTail(&BinaryNode{Op: op, Left: left, Right: right})
}

// parseFactor handles F := X F1. '^' is right-associative: 2^3^2 is 2^(3^2).
func (p *Parser) parseFactor() (Node, error) {
	base, err := p.parseExponent()
	if err != nil {
		return nil, err
	}
	if p.tok.Type != TokenCaret {
		return base, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	exp, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	return Pow(base, exp), nil
}

// parseExponent handles X, the terminals of the grammar.
func (p *Parser) parseExponent() (Node, error) {
	tok := p.tok

	switch tok.Type {
	case TokenLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.match(')'); err != nil {
			return nil, err
		}
		return inner, nil
	case TokenMinus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return Neg(operand), nil
	case TokenNumber:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Num(tok.Value), nil
	case TokenVariable:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Var(tok.Symbol), nil
	case TokenSin, TokenCos, TokenTan, TokenSec, TokenCsc, TokenCot, TokenLn:
		arg, err := p.parseCallArg(tok)
		if err != nil {
			return nil, err
		}
		return Call(unaryFuncs[tok.Type], arg), nil
	case TokenLog:
		arg, err := p.parseCallArg(tok)
		if err != nil {
			return nil, err
		}
		return Log(Num(DefaultLogBase), arg), nil
	case TokenLogBase:
		return p.parseLogBase(tok)
	case TokenEOF:
		return nil, types.NewParseError("unexpected end of text", tok.Pos)
	default:
		return nil, types.NewParseError("unexpected "+tok.describe(), tok.Pos)
	}
}

// openCall consumes a function name and its '('.
func (p *Parser) openCall(fn Token) error {
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.Type != TokenLParen {
		return types.NewMissingParenthesisError(functionNames[fn.Type], p.tok.Pos)
	}
	return p.advance()
}

// parseCallArg parses name '(' E ')' and returns E.
func (p *Parser) parseCallArg(fn Token) (Node, error) {
	if err := p.openCall(fn); err != nil {
		return nil, err
	}
	arg, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.match(')'); err != nil {
		return nil, err
	}
	return arg, nil
}

// parseLogBase parses log '(' number ',' E ')'.
func (p *Parser) parseLogBase(fn Token) (Node, error) {
	if err := p.openCall(fn); err != nil {
		return nil, err
	}
	if p.tok.Type != TokenNumber {
		return nil, types.NewParseError("expected number as log base, got "+p.tok.describe(), p.tok.Pos)
	}
	base := p.tok.Value
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Type != TokenComma {
		return nil, types.NewParseError("expected ',' after log base, got "+p.tok.describe(), p.tok.Pos)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	arg, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.match(')'); err != nil {
		return nil, err
	}
	return Log(Num(base), arg), nil
}
