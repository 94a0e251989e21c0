// Package types holds the error taxonomy shared by the parser, evaluator,
// integrator, and the API surfaces built on them.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// Error tag constants. Every error carries one family tag and one kind tag.
const (
	TagLexError            = "LexError"
	TagUnexpectedCharacter = "UnexpectedCharacter"
	TagMissingParenthesis  = "MissingParenthesis"

	TagParseError = "ParseError"
	TagSyntax     = "SyntaxError"

	TagEvalError         = "EvalError"
	TagNonNumericSubtree = "NonNumericSubtree"

	TagIntegrationError = "IntegrationError"
	TagNoRuleFound      = "NoRuleFound"
)

// NoPosition is the Pos of errors that are not tied to a source offset.
const NoPosition = -1

// CalcError is a recoverable failure raised by one of the core operations.
type CalcError struct {
	Message string
	Pos     int // byte offset in the parsed text, or NoPosition
	Tags    []string
}

// Error implements the error interface.
func (e *CalcError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s at position %d (tags=[%s])", e.Message, e.Pos, strings.Join(e.Tags, ", "))
	}
	return fmt.Sprintf("%s (tags=[%s])", e.Message, strings.Join(e.Tags, ", "))
}

// HasTag returns true if the error has the specified tag.
func (e *CalcError) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Kind returns the most specific tag of the error.
func (e *CalcError) Kind() string {
	if len(e.Tags) == 0 {
		return ""
	}
	return e.Tags[len(e.Tags)-1]
}

// Family returns the family tag (LexError, ParseError, EvalError, IntegrationError).
func (e *CalcError) Family() string {
	if len(e.Tags) == 0 {
		return ""
	}
	return e.Tags[0]
}

// ToMap converts the error into a map suitable for JSON or protobuf Struct encoding.
func (e *CalcError) ToMap() map[string]any {
	tags := make([]any, len(e.Tags))
	for i, t := range e.Tags {
		tags[i] = t
	}
	m := map[string]any{
		"message": e.Message,
		"kind":    e.Kind(),
		"tags":    tags,
	}
	if e.Pos >= 0 {
		m["position"] = float64(e.Pos)
	}
	return m
}

// HasTag reports whether err is, or wraps, a CalcError carrying tag.
func HasTag(err error, tag string) bool {
	var ce *CalcError
	if errors.As(err, &ce) {
		return ce.HasTag(tag)
	}
	return false
}

// AsCalcError unwraps err into a CalcError, or returns nil.
func AsCalcError(err error) *CalcError {
	var ce *CalcError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// Common error constructors.

// NewUnexpectedCharacterError creates a LexError for a character no token starts with.
func NewUnexpectedCharacterError(ch byte, pos int) *CalcError {
	return &CalcError{
		Message: fmt.Sprintf("unexpected character %q", string(ch)),
		Pos:     pos,
		Tags:    []string{TagLexError, TagUnexpectedCharacter},
	}
}

// NewMissingParenthesisError creates a LexError for a function name not followed by '('.
func NewMissingParenthesisError(name string, pos int) *CalcError {
	return &CalcError{
		Message: fmt.Sprintf("expected '(' after function %s", name),
		Pos:     pos,
		Tags:    []string{TagLexError, TagMissingParenthesis},
	}
}

// NewParseError creates a ParseError for malformed grammar.
func NewParseError(msg string, pos int) *CalcError {
	return &CalcError{Message: msg, Pos: pos, Tags: []string{TagParseError, TagSyntax}}
}

// NewNonNumericError creates an EvalError for a subtree the evaluator cannot reduce.
func NewNonNumericError(msg string) *CalcError {
	return &CalcError{Message: msg, Pos: NoPosition, Tags: []string{TagEvalError, TagNonNumericSubtree}}
}

// NewNoRuleFoundError creates an IntegrationError for an integrand outside the rule table.
func NewNoRuleFoundError(msg string) *CalcError {
	return &CalcError{Message: msg, Pos: NoPosition, Tags: []string{TagIntegrationError, TagNoRuleFound}}
}
