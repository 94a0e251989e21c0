package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/lemonberrylabs/scalp/pkg/runtime"
	"github.com/lemonberrylabs/scalp/pkg/store"
)

func setupTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	s := store.New()
	return New(runtime.NewEngine(s)), s
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode response %q: %v", raw, err)
	}
	return resp.StatusCode, result
}

func TestParseExpression(t *testing.T) {
	srv, _ := setupTestServer(t)

	code, body := doJSON(t, srv, "POST", "/v1/expressions:parse", map[string]any{"expression": "5x(x+2)"})
	if code != 200 {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	if body["normalized"] != "5*x*(x+2)" {
		t.Errorf("normalized: got %v", body["normalized"])
	}
	if body["result"] != "5*x*(x+2)" {
		t.Errorf("result: got %v", body["result"])
	}
	if body["operation"] != "parse" {
		t.Errorf("operation: got %v", body["operation"])
	}
	tree, ok := body["tree"].(map[string]any)
	if !ok || tree["type"] != "mul" {
		t.Errorf("tree: got %v", body["tree"])
	}
	if id, _ := body["id"].(string); id == "" {
		t.Error("expected an id")
	}
}

func TestEvaluateExpression(t *testing.T) {
	srv, _ := setupTestServer(t)

	code, body := doJSON(t, srv, "POST", "/v1/expressions:evaluate", map[string]any{"expression": "10-3-2"})
	if code != 200 {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	if body["result"] != "5" {
		t.Errorf("result: got %v", body["result"])
	}
	if body["value"] != float64(5) {
		t.Errorf("value: got %v", body["value"])
	}
}

func TestIntegrateExpression(t *testing.T) {
	srv, _ := setupTestServer(t)

	code, body := doJSON(t, srv, "POST", "/v1/expressions:integrate", map[string]any{"expression": "x^5"})
	if code != 200 {
		t.Fatalf("expected 200, got %d: %v", code, body)
	}
	if body["result"] != "x^6/6" {
		t.Errorf("result: got %v", body["result"])
	}
}

func TestRawExpression(t *testing.T) {
	srv, _ := setupTestServer(t)

	code, body := doJSON(t, srv, "POST", "/v1/expressions:parse", map[string]any{"expression": "5x", "raw": true})
	if code != 400 {
		t.Fatalf("expected 400 for raw implicit product, got %d: %v", code, body)
	}
}

func TestExpressionErrors(t *testing.T) {
	srv, _ := setupTestServer(t)

	tests := []struct {
		name   string
		path   string
		input  string
		code   int
		status string
		kind   string
	}{
		{"syntax", "/v1/expressions:parse", "1 ++ 3", 400, "INVALID_ARGUMENT", "SyntaxError"},
		{"lex", "/v1/expressions:parse", "3 $ 4", 400, "INVALID_ARGUMENT", "UnexpectedCharacter"},
		{"missing paren", "/v1/expressions:parse", "sinx", 400, "INVALID_ARGUMENT", "MissingParenthesis"},
		{"non numeric", "/v1/expressions:evaluate", "x+1", 422, "FAILED_PRECONDITION", "NonNumericSubtree"},
		{"no rule", "/v1/expressions:integrate", "tan(x)", 422, "FAILED_PRECONDITION", "NoRuleFound"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doJSON(t, srv, "POST", tt.path, map[string]any{"expression": tt.input})
			if code != tt.code {
				t.Fatalf("expected %d, got %d: %v", tt.code, code, body)
			}
			errBody, ok := body["error"].(map[string]any)
			if !ok {
				t.Fatalf("expected error object, got %v", body)
			}
			if errBody["status"] != tt.status {
				t.Errorf("status: got %v, want %s", errBody["status"], tt.status)
			}
			tags, _ := errBody["tags"].([]any)
			if len(tags) == 0 || tags[len(tags)-1] != tt.kind {
				t.Errorf("tags: got %v, want kind %s", tags, tt.kind)
			}
			calc, ok := body["calculation"].(map[string]any)
			if !ok {
				t.Fatalf("expected recorded calculation, got %v", body)
			}
			if _, ok := calc["error"]; !ok {
				t.Error("recorded calculation should carry the error")
			}
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	srv, _ := setupTestServer(t)

	code, body := doJSON(t, srv, "POST", "/v1/expressions:parse", map[string]any{"expression": "((1.26+8.99"})
	if code != 400 {
		t.Fatalf("expected 400, got %d", code)
	}
	errBody := body["error"].(map[string]any)
	if errBody["position"] != float64(11) {
		t.Errorf("position: got %v, want 11", errBody["position"])
	}
}

func TestExpressionRequired(t *testing.T) {
	srv, _ := setupTestServer(t)

	code, body := doJSON(t, srv, "POST", "/v1/expressions:evaluate", map[string]any{})
	if code != 400 {
		t.Fatalf("expected 400, got %d: %v", code, body)
	}
	errBody := body["error"].(map[string]any)
	if errBody["status"] != "INVALID_ARGUMENT" {
		t.Errorf("status: got %v", errBody["status"])
	}
}

func TestCalculationLifecycle(t *testing.T) {
	srv, s := setupTestServer(t)

	_, first := doJSON(t, srv, "POST", "/v1/expressions:parse", map[string]any{"expression": "x"})
	doJSON(t, srv, "POST", "/v1/expressions:evaluate", map[string]any{"expression": "1+2"})
	doJSON(t, srv, "POST", "/v1/expressions:integrate", map[string]any{"expression": "tan(x)"})

	code, list := doJSON(t, srv, "GET", "/v1/calculations", nil)
	if code != 200 {
		t.Fatalf("list: expected 200, got %d", code)
	}
	items, _ := list["calculations"].([]any)
	if len(items) != 3 {
		t.Fatalf("list: got %d calculations, want 3", len(items))
	}
	newest := items[0].(map[string]any)
	if newest["operation"] != "integrate" {
		t.Errorf("newest first: got %v", newest["operation"])
	}

	_, filtered := doJSON(t, srv, "GET", "/v1/calculations?operation=evaluate", nil)
	if items, _ := filtered["calculations"].([]any); len(items) != 1 {
		t.Errorf("filter: got %d, want 1", len(items))
	}

	_, paged := doJSON(t, srv, "GET", "/v1/calculations?pageSize=2", nil)
	if items, _ := paged["calculations"].([]any); len(items) != 2 {
		t.Errorf("pageSize: got %d, want 2", len(items))
	}

	id := first["id"].(string)
	code, got := doJSON(t, srv, "GET", "/v1/calculations/"+id, nil)
	if code != 200 {
		t.Fatalf("get: expected 200, got %d", code)
	}
	if got["input"] != "x" {
		t.Errorf("get: input %v", got["input"])
	}

	code, _ = doJSON(t, srv, "DELETE", "/v1/calculations/"+id, nil)
	if code != 200 {
		t.Fatalf("delete: expected 200, got %d", code)
	}
	if s.Len() != 2 {
		t.Errorf("store has %d calculations after delete, want 2", s.Len())
	}

	code, _ = doJSON(t, srv, "GET", "/v1/calculations/"+id, nil)
	if code != 404 {
		t.Errorf("get after delete: expected 404, got %d", code)
	}
	code, _ = doJSON(t, srv, "DELETE", "/v1/calculations/"+id, nil)
	if code != 404 {
		t.Errorf("delete twice: expected 404, got %d", code)
	}
}

func TestListCalculationsValidation(t *testing.T) {
	srv, _ := setupTestServer(t)

	for _, path := range []string{
		"/v1/calculations?operation=differentiate",
		"/v1/calculations?pageSize=-1",
		"/v1/calculations?pageSize=abc",
	} {
		code, _ := doJSON(t, srv, "GET", path, nil)
		if code != 400 {
			t.Errorf("%s: expected 400, got %d", path, code)
		}
	}
}

func TestHistoryDisabled(t *testing.T) {
	srv := New(runtime.NewEngine(nil))

	code, body := doJSON(t, srv, "POST", "/v1/expressions:evaluate", map[string]any{"expression": "2*3"})
	if code != 200 || body["result"] != "6" {
		t.Fatalf("evaluate without history: %d %v", code, body)
	}

	_, list := doJSON(t, srv, "GET", "/v1/calculations", nil)
	if items, _ := list["calculations"].([]any); len(items) != 0 {
		t.Errorf("expected empty list, got %v", items)
	}
}
