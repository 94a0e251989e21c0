package grpcapi

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls a remote Calculus service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for the service at addr over an insecure connection.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// NewClient wraps an existing connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Parse parses expression remotely.
func (c *Client) Parse(ctx context.Context, expression string, raw bool) (*structpb.Struct, error) {
	return c.call(ctx, "Parse", map[string]any{"expression": expression, "raw": raw})
}

// Evaluate evaluates expression remotely.
func (c *Client) Evaluate(ctx context.Context, expression string, raw bool) (*structpb.Struct, error) {
	return c.call(ctx, "Evaluate", map[string]any{"expression": expression, "raw": raw})
}

// Integrate integrates expression remotely.
func (c *Client) Integrate(ctx context.Context, expression string, raw bool) (*structpb.Struct, error) {
	return c.call(ctx, "Integrate", map[string]any{"expression": expression, "raw": raw})
}

// GetCalculation fetches a recorded calculation by ID.
func (c *Client) GetCalculation(ctx context.Context, id string) (*structpb.Struct, error) {
	return c.call(ctx, "GetCalculation", map[string]any{"id": id})
}

func (c *Client) call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}
