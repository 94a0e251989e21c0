package suite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lemonberrylabs/scalp/pkg/runtime"
	"github.com/lemonberrylabs/scalp/pkg/store"
)

func TestBuiltinSuitesPass(t *testing.T) {
	suites, err := Builtin()
	if err != nil {
		t.Fatalf("load builtin suites: %v", err)
	}
	if len(suites) == 0 {
		t.Fatal("expected builtin suites")
	}

	engine := runtime.NewEngine(nil)
	for _, s := range suites {
		t.Run(s.Name, func(t *testing.T) {
			if len(s.Cases) == 0 {
				t.Fatal("suite has no cases")
			}
			report := Run(engine, s)
			for _, res := range report.Results {
				if !res.Passed {
					t.Errorf("%s %q: %s (got %s)", res.Case.Operation(), res.Case.Input, res.Reason, res.Got)
				}
			}
		})
	}
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte(`
name: sample
cases:
  - input: "10-3-2"
    op: evaluate
    value: 5
  - input: "1 ++ 3"
    valid: false
  - input: "tan(x)"
    op: integrate
    error: NoRuleFound
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Name != "sample" || len(s.Cases) != 3 {
		t.Fatalf("got %+v", s)
	}
	if s.Cases[1].Operation() != store.OperationParse {
		t.Errorf("default op: got %s", s.Cases[1].Operation())
	}
	if s.Cases[1].ExpectValid() || s.Cases[2].ExpectValid() {
		t.Error("invalid and error cases should not expect success")
	}
	if !s.Cases[0].ExpectValid() {
		t.Error("plain case should expect success")
	}

	report := Run(runtime.NewEngine(nil), s)
	if report.Failed() != 0 {
		t.Errorf("expected all cases to pass, got %d failures: %+v", report.Failed(), report.Results)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "", "empty suite"},
		{"unknown field", "name: x\nbogus: 1\n", "invalid suite YAML"},
		{"missing input", "cases:\n  - op: parse\n", "input is required"},
		{"unknown op", "cases:\n  - input: x\n    op: differentiate\n", "unknown op"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should contain %q", err, tt.want)
			}
		})
	}
}

func TestFailingCasesAreReported(t *testing.T) {
	s := &Suite{Name: "wrong", Cases: []Case{
		{Input: "x^5", Op: store.OperationIntegrate, Want: "x^5/5"},
		{Input: "1+1", Op: store.OperationEvaluate, Value: ptr(3)},
		{Input: "x", Error: "SyntaxError"},
		{Input: "1++", Normalized: "1+"},
	}}

	report := Run(runtime.NewEngine(nil), s)
	if report.Failed() != len(s.Cases) {
		t.Fatalf("expected every case to fail, got %d failures", report.Failed())
	}
	for _, res := range report.Results {
		if res.Reason == "" {
			t.Errorf("%q: failing case should carry a reason", res.Case.Input)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mine.yaml")
	if err := os.WriteFile(file, []byte("cases:\n  - input: \"3x\"\n    op: integrate\n    want: \"3*(x^2/2)\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Name != file {
		t.Errorf("unnamed suite should take the file name, got %q", s.Name)
	}
	if report := Run(runtime.NewEngine(nil), s); report.Failed() != 0 {
		t.Errorf("unexpected failures: %+v", report.Results)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func ptr(v float64) *float64 { return &v }
