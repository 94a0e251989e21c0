// Package web provides the embedded web UI.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lemonberrylabs/scalp/pkg/runtime"
	"github.com/lemonberrylabs/scalp/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// RecentLimit is the number of calculations shown on the dashboard.
const RecentLimit = 10

// Handler serves the web UI pages.
type Handler struct {
	engine  *runtime.Engine
	funcMap template.FuncMap
}

// pageData wraps all page-specific data with common fields.
type pageData struct {
	NavActive string
	Data      interface{}
}

// New creates a new web UI handler.
func New(engine *runtime.Engine) *Handler {
	return &Handler{
		engine: engine,
		funcMap: template.FuncMap{
			"timeAgo":    timeAgo,
			"formatTime": formatTime,
			"stateClass": stateClass,
			"stateIcon":  stateIcon,
			"truncate":   truncate,
			"errorText":  errorText,
		},
	}
}

func (h *Handler) render(c *fiber.Ctx, page string, navActive string, data interface{}) error {
	// Each page is parsed with the layout on its own so "content" blocks do not collide.
	tmpl, err := template.New("").Funcs(h.funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
	if err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	pd := pageData{
		NavActive: navActive,
		Data:      data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, page, pd); err != nil {
		return c.Status(500).SendString(fmt.Sprintf("template error: %v", err))
	}

	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.Send(buf.Bytes())
}

// Register adds web UI routes to the Fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/ui", h.dashboard)
	app.Post("/ui/calculate", h.calculate)
	app.Get("/ui/calculations", h.calculationList)
	app.Get("/ui/calculations/:id", h.calculationDetail)

	// Redirect root to UI
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
}

// --- Page Data Types ---

type dashboardContent struct {
	Recent         []*store.Calculation
	Total          int
	SucceededCount int
	FailedCount    int
}

type calculationListContent struct {
	Operation    string
	Calculations []*store.Calculation
}

type calculationDetailContent struct {
	Calculation *store.Calculation
}

type notFoundContent struct {
	Message string
}

// --- Page Handlers ---

func (h *Handler) dashboard(c *fiber.Ctx) error {
	content := dashboardContent{}
	if history := h.engine.Store(); history != nil {
		all := history.List("", 0)
		content.Total = len(all)
		for _, calc := range all {
			if calc.Failed() {
				content.FailedCount++
			} else {
				content.SucceededCount++
			}
		}
		content.Recent = all
		if len(content.Recent) > RecentLimit {
			content.Recent = content.Recent[:RecentLimit]
		}
	}
	return h.render(c, "dashboard.html", "dashboard", content)
}

func (h *Handler) calculate(c *fiber.Ctx) error {
	input := strings.TrimSpace(c.FormValue("expression"))
	if input == "" {
		return c.Redirect("/ui")
	}
	op := store.Operation(c.FormValue("operation", string(store.OperationParse)))
	if !op.Valid() {
		return h.notFound(c, fmt.Sprintf("Unknown operation %q", op))
	}

	// Failures are recorded like successes and shown on the detail page.
	calc, _ := h.engine.Run(op, input, runtime.Options{Raw: c.FormValue("raw") != ""})
	if calc.ID == "" {
		return h.render(c, "calculation.html", "calculations", calculationDetailContent{Calculation: calc})
	}
	return c.Redirect("/ui/calculations/" + url.PathEscape(calc.ID))
}

func (h *Handler) calculationList(c *fiber.Ctx) error {
	op := c.Query("operation")
	content := calculationListContent{Operation: op}
	if history := h.engine.Store(); history != nil {
		content.Calculations = history.List(store.Operation(op), 0)
	}
	return h.render(c, "calculations.html", "calculations", content)
}

func (h *Handler) calculationDetail(c *fiber.Ctx) error {
	id := c.Params("id")
	history := h.engine.Store()
	if history == nil {
		return h.notFound(c, fmt.Sprintf("Calculation %q not found", id))
	}
	calc, err := history.Get(id)
	if err != nil {
		return h.notFound(c, fmt.Sprintf("Calculation %q not found", id))
	}
	return h.render(c, "calculation.html", "calculations", calculationDetailContent{Calculation: calc})
}

func (h *Handler) notFound(c *fiber.Ctx, msg string) error {
	c.Status(404)
	return h.render(c, "notfound.html", "", notFoundContent{Message: msg})
}

// --- Template Helpers ---

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("2006-01-02 15:04:05")
}

func stateClass(calc *store.Calculation) string {
	if calc.Failed() {
		return "state-failed"
	}
	return "state-succeeded"
}

func stateIcon(calc *store.Calculation) template.HTML {
	if calc.Failed() {
		return "&#10007;"
	}
	return "&#10003;"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// errorText renders a recorded error map as "Kind: message (position n)".
func errorText(m map[string]any) string {
	if m == nil {
		return ""
	}
	msg, _ := m["message"].(string)
	if kind, ok := m["kind"].(string); ok && kind != "" {
		msg = kind + ": " + msg
	}
	if pos, ok := m["position"].(float64); ok {
		msg = fmt.Sprintf("%s (position %d)", msg, int(pos))
	}
	return msg
}
