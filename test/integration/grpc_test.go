package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpcapi "github.com/lemonberrylabs/scalp/pkg/api/grpc"
)

// grpcEndpoint returns the gRPC endpoint address (host:port).
func grpcEndpoint() string {
	if ep := os.Getenv("SCALP_GRPC_ENDPOINT"); ep != "" {
		return ep
	}
	return "localhost:8788"
}

// newCalculusClient creates a client connected to the server's gRPC port.
func newCalculusClient(t *testing.T) *grpcapi.Client {
	t.Helper()
	client, err := grpcapi.Dial(grpcEndpoint())
	if err != nil {
		t.Fatalf("grpcapi.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func grpcContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGRPC_Integrate(t *testing.T) {
	client := newCalculusClient(t)

	resp, err := client.Integrate(grpcContext(t), "4x^3 + 2x", false)
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	if got := resp.GetFields()["result"].GetStringValue(); got != "4*(x^4/4)+2*(x^2/2)" {
		t.Errorf("result: got %q", got)
	}
}

func TestGRPC_Errors(t *testing.T) {
	client := newCalculusClient(t)
	ctx := grpcContext(t)

	_, err := client.Integrate(ctx, "tan(x)", false)
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("integrate tan(x): got %v, want FailedPrecondition", err)
	}
	_, err = client.Parse(ctx, "((1.26+8.99", false)
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("parse unclosed group: got %v, want InvalidArgument", err)
	}
}

// A calculation made over gRPC is visible over REST.
func TestGRPC_VisibleViaREST(t *testing.T) {
	client := newCalculusClient(t)

	resp, err := client.Evaluate(grpcContext(t), "2*21", false)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	id := resp.GetFields()["id"].GetStringValue()

	httpResp, err := http.Get(apiURL("calculations/" + id))
	if err != nil {
		t.Fatalf("HTTP error: %v", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", httpResp.StatusCode)
	}
	var got map[string]interface{}
	json.NewDecoder(httpResp.Body).Decode(&got)
	if got["value"] != float64(42) {
		t.Errorf("value: got %v, want 42", got["value"])
	}
}

// A calculation made over REST is visible over gRPC.
func TestGRPC_ReadRESTCalculation(t *testing.T) {
	res := expectResult(t, "integrate", "x^5", "x^6/6")
	id, _ := res.Body["id"].(string)

	client := newCalculusClient(t)
	got, err := client.GetCalculation(grpcContext(t), id)
	if err != nil {
		t.Fatalf("GetCalculation: %v", err)
	}
	if got.GetFields()["result"].GetStringValue() != "x^6/6" {
		t.Errorf("result: got %v", got.GetFields()["result"])
	}
}
