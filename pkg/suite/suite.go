// Package suite loads YAML case files and checks them against the engine.
//
// A suite file looks like:
//
//	name: arithmetic
//	cases:
//	  - input: "10-3-2"
//	    op: evaluate
//	    value: 5
//	  - input: "1 ++ 3"
//	    valid: false
//	  - input: "tan(x)"
//	    op: integrate
//	    error: NoRuleFound
package suite

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/scalp/pkg/runtime"
	"github.com/lemonberrylabs/scalp/pkg/store"
	"github.com/lemonberrylabs/scalp/pkg/types"
)

//go:embed suites/*.yaml
var builtinFS embed.FS

// Tolerance is the relative tolerance used when comparing numeric results.
const Tolerance = 1e-9

// Suite is a named list of cases.
type Suite struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`
}

// Case is one input and its expected outcome.
type Case struct {
	Input      string          `yaml:"input"`
	Op         store.Operation `yaml:"op"`
	Raw        bool            `yaml:"raw"`
	Valid      *bool           `yaml:"valid"`
	Normalized string          `yaml:"normalized"`
	Want       string          `yaml:"want"`
	Value      *float64        `yaml:"value"`
	Error      string          `yaml:"error"`
}

// Operation returns the case's operation, defaulting to parse.
func (c Case) Operation() store.Operation {
	if c.Op == "" {
		return store.OperationParse
	}
	return c.Op
}

// ExpectValid reports whether the case expects the operation to succeed.
func (c Case) ExpectValid() bool {
	if c.Error != "" {
		return false
	}
	return c.Valid == nil || *c.Valid
}

// Result is the outcome of one case.
type Result struct {
	Case   Case
	Passed bool
	Got    string // result text, or the error message
	Reason string // why a failing case failed
}

// Report collects the results of a suite run.
type Report struct {
	Suite   string
	Results []Result
}

// Failed returns the number of failing cases.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Passed {
			n++
		}
	}
	return n
}

// Parse decodes a suite from YAML. Unknown fields are rejected.
func Parse(data []byte) (*Suite, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Suite
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty suite")
		}
		return nil, fmt.Errorf("invalid suite YAML: %w", err)
	}
	for i, c := range s.Cases {
		if c.Input == "" {
			return nil, fmt.Errorf("case %d: input is required", i+1)
		}
		if !c.Operation().Valid() {
			return nil, fmt.Errorf("case %d: unknown op %q", i+1, c.Op)
		}
	}
	return &s, nil
}

// Load reads and decodes a suite file. The file name is used when the suite has no name.
func Load(file string) (*Suite, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if s.Name == "" {
		s.Name = file
	}
	return s, nil
}

// Builtin returns the embedded suites in name order.
func Builtin() ([]*Suite, error) {
	files, err := fs.Glob(builtinFS, "suites/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	suites := make([]*Suite, 0, len(files))
	for _, f := range files {
		data, err := builtinFS.ReadFile(f)
		if err != nil {
			return nil, err
		}
		s, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		if s.Name == "" {
			s.Name = path.Base(f)
		}
		suites = append(suites, s)
	}
	return suites, nil
}

// Run checks every case in s against engine.
func Run(engine *runtime.Engine, s *Suite) *Report {
	report := &Report{Suite: s.Name, Results: make([]Result, 0, len(s.Cases))}
	for _, c := range s.Cases {
		report.Results = append(report.Results, check(engine, c))
	}
	return report
}

func check(engine *runtime.Engine, c Case) Result {
	res := Result{Case: c}

	calc, err := engine.Run(c.Operation(), c.Input, runtime.Options{Raw: c.Raw})
	if err != nil {
		res.Got = err.Error()
	} else {
		res.Got = calc.Result
	}

	switch {
	case c.Normalized != "" && calc != nil && calc.Normalized != c.Normalized:
		res.Reason = fmt.Sprintf("normalized to %q, want %q", calc.Normalized, c.Normalized)
	case c.Error != "":
		if !types.HasTag(err, c.Error) {
			res.Reason = fmt.Sprintf("want %s error", c.Error)
		}
	case !c.ExpectValid():
		if err == nil {
			res.Reason = "want failure, got success"
		}
	case err != nil:
		res.Reason = "unexpected error"
	case c.Want != "" && calc.Result != c.Want:
		res.Reason = fmt.Sprintf("want %q", c.Want)
	case c.Value != nil && !closeEnough(calc, *c.Value):
		res.Reason = "want value " + strconv.FormatFloat(*c.Value, 'g', -1, 64)
	}

	res.Passed = res.Reason == ""
	return res
}

func closeEnough(calc *store.Calculation, want float64) bool {
	if calc.Value == nil {
		return false
	}
	got := *calc.Value
	diff := math.Abs(got - want)
	return diff <= Tolerance || diff <= Tolerance*math.Max(math.Abs(got), math.Abs(want))
}
