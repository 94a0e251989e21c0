// Package runtime runs the core operations on user input: it normalizes
// the text, parses it, evaluates or integrates the tree, and records the
// outcome in the calculation history.
package runtime

import (
	"fmt"
	"math"

	"github.com/lemonberrylabs/scalp/pkg/expr"
	"github.com/lemonberrylabs/scalp/pkg/normalize"
	"github.com/lemonberrylabs/scalp/pkg/store"
	"github.com/lemonberrylabs/scalp/pkg/types"
)

// Options control how input text is prepared.
type Options struct {
	// Raw hands the input to the parser without normalization.
	Raw bool
}

// Engine runs calculations. It is safe for concurrent use: the core
// operations share no state and the store does its own locking.
type Engine struct {
	store *store.Store
}

// NewEngine creates an engine that records into s. A nil store disables history.
func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Store returns the engine's history store, which may be nil.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Parse parses input and reports the tree.
func (e *Engine) Parse(input string, opts Options) (*store.Calculation, error) {
	return e.Run(store.OperationParse, input, opts)
}

// Evaluate parses input and reduces it to a number.
func (e *Engine) Evaluate(input string, opts Options) (*store.Calculation, error) {
	return e.Run(store.OperationEvaluate, input, opts)
}

// Integrate parses input and computes an antiderivative.
func (e *Engine) Integrate(input string, opts Options) (*store.Calculation, error) {
	return e.Run(store.OperationIntegrate, input, opts)
}

// Run executes op on input. The calculation is returned, and recorded,
// whether or not the operation fails; err is the operation's failure.
func (e *Engine) Run(op store.Operation, input string, opts Options) (*store.Calculation, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("unknown operation %q", op)
	}

	calc := &store.Calculation{Operation: op, Input: input, Normalized: input}
	if !opts.Raw {
		calc.Normalized = normalize.String(input)
	}

	err := execute(calc)
	if err != nil {
		calc.Error = errorMap(err)
	}
	if e.store != nil {
		e.store.Record(calc)
	}
	return calc, err
}

func execute(calc *store.Calculation) error {
	tree, err := expr.Parse(calc.Normalized)
	if err != nil {
		return err
	}

	switch calc.Operation {
	case store.OperationEvaluate:
		v, err := expr.Evaluate(tree)
		if err != nil {
			return err
		}
		calc.Result = expr.Format(expr.Num(v))
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			calc.Value = &v
		}
		return nil
	case store.OperationIntegrate:
		tree, err = expr.Integrate(tree)
		if err != nil {
			return err
		}
	}

	calc.Result = expr.Format(tree)
	calc.Tree = expr.ToMap(tree)
	calc.Dump = expr.Dump(tree)
	return nil
}

func errorMap(err error) map[string]any {
	if ce := types.AsCalcError(err); ce != nil {
		return ce.ToMap()
	}
	return map[string]any{"message": err.Error()}
}
