// Package api implements the REST API for parsing, evaluating, and
// integrating expressions, and for browsing the calculation history.
package api

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/lemonberrylabs/scalp/pkg/runtime"
	"github.com/lemonberrylabs/scalp/pkg/store"
	"github.com/lemonberrylabs/scalp/pkg/types"
)

// DefaultPageSize is the number of calculations returned when pageSize is absent.
const DefaultPageSize = 50

// Server is the REST API server.
type Server struct {
	app    *fiber.App
	engine *runtime.Engine
}

// Option configures a Server.
type Option func(*options)

type options struct {
	requestLog io.Writer
}

// WithRequestLog writes one access log line per request to w.
func WithRequestLog(w io.Writer) Option {
	return func(o *options) { o.requestLog = w }
}

// New creates a new API server running calculations through engine.
func New(engine *runtime.Engine, opts ...Option) *Server {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	srv := &Server{engine: engine}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	app.Use(recover.New())
	if o.requestLog != nil {
		app.Use(logger.New(logger.Config{Output: o.requestLog}))
	}

	// Expressions API
	app.Post("/v1/expressions\\:parse", srv.operation(store.OperationParse))
	app.Post("/v1/expressions\\:evaluate", srv.operation(store.OperationEvaluate))
	app.Post("/v1/expressions\\:integrate", srv.operation(store.OperationIntegrate))

	// Calculations API
	app.Get("/v1/calculations", srv.listCalculations)
	app.Get("/v1/calculations/:id", srv.getCalculation)
	app.Delete("/v1/calculations/:id", srv.deleteCalculation)

	srv.app = app
	return srv
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Expression Handlers ---

type expressionRequest struct {
	Expression string `json:"expression"`
	Raw        bool   `json:"raw"`
}

func (s *Server) operation(op store.Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req expressionRequest
		if err := c.BodyParser(&req); err != nil {
			return errorResponse(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
		}
		if req.Expression == "" {
			return errorResponse(c, 400, "INVALID_ARGUMENT", "expression is required")
		}

		calc, err := s.engine.Run(op, req.Expression, runtime.Options{Raw: req.Raw})
		if err != nil {
			if calc == nil {
				return errorResponse(c, 500, "INTERNAL", err.Error())
			}
			log.Printf("%s %q failed: %v", op, req.Expression, err)
			return calculationError(c, calc, err)
		}
		return c.JSON(calculationToJSON(calc))
	}
}

// --- Calculation Handlers ---

func (s *Server) listCalculations(c *fiber.Ctx) error {
	history := s.engine.Store()
	if history == nil {
		return c.JSON(fiber.Map{"calculations": []fiber.Map{}})
	}

	op := store.Operation(c.Query("operation"))
	if op != "" && !op.Valid() {
		return errorResponse(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("unknown operation %q", op))
	}

	pageSize := DefaultPageSize
	if v := c.Query("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return errorResponse(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid pageSize %q", v))
		}
		if n > 0 {
			pageSize = n
		}
	}

	calcs := history.List(op, pageSize)
	items := make([]fiber.Map, len(calcs))
	for i, calc := range calcs {
		items[i] = calculationToJSON(calc)
	}
	return c.JSON(fiber.Map{
		"calculations": items,
	})
}

func (s *Server) getCalculation(c *fiber.Ctx) error {
	calc, err := s.lookup(c.Params("id"))
	if err != nil {
		return errorResponse(c, 404, "NOT_FOUND", err.Error())
	}
	return c.JSON(calculationToJSON(calc))
}

func (s *Server) deleteCalculation(c *fiber.Ctx) error {
	history := s.engine.Store()
	if history == nil {
		return errorResponse(c, 404, "NOT_FOUND", fmt.Sprintf("calculation '%s' not found", c.Params("id")))
	}
	if err := history.Delete(c.Params("id")); err != nil {
		return errorResponse(c, 404, "NOT_FOUND", err.Error())
	}
	return c.JSON(fiber.Map{})
}

func (s *Server) lookup(id string) (*store.Calculation, error) {
	history := s.engine.Store()
	if history == nil {
		return nil, fmt.Errorf("calculation '%s' not found", id)
	}
	return history.Get(id)
}

// --- Helpers ---

func errorResponse(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

// calculationError reports a failed operation together with its recorded calculation.
func calculationError(c *fiber.Ctx, calc *store.Calculation, err error) error {
	code, status := 500, "INTERNAL"
	body := fiber.Map{"code": code, "message": err.Error(), "status": status}

	if ce := types.AsCalcError(err); ce != nil {
		switch ce.Family() {
		case types.TagLexError, types.TagParseError:
			code, status = 400, "INVALID_ARGUMENT"
		case types.TagEvalError, types.TagIntegrationError:
			code, status = 422, "FAILED_PRECONDITION"
		}
		body = fiber.Map{"code": code, "message": ce.Message, "status": status, "tags": ce.Tags}
		if ce.Pos >= 0 {
			body["position"] = ce.Pos
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"error":       body,
		"calculation": calculationToJSON(calc),
	})
}

func calculationToJSON(calc *store.Calculation) fiber.Map {
	m := fiber.Map{
		"id":         calc.ID,
		"operation":  calc.Operation,
		"input":      calc.Input,
		"normalized": calc.Normalized,
		"createTime": calc.CreateTime.Format(time.RFC3339Nano),
	}
	if calc.Result != "" {
		m["result"] = calc.Result
	}
	if calc.Value != nil {
		m["value"] = *calc.Value
	}
	if calc.Tree != nil {
		m["tree"] = calc.Tree
	}
	if calc.Error != nil {
		m["error"] = calc.Error
	}
	return m
}
