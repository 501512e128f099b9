package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/hpungsan/pathfinder/internal/content"
	"github.com/hpungsan/pathfinder/internal/errors"
	"github.com/hpungsan/pathfinder/internal/ops"
)

// PageData holds the fields every page's layout reads.
type PageData struct {
	Title   string
	Version string
}

type RealmsPageData struct {
	PageData
	Realms []*content.Realm
}

type RealmPageData struct {
	PageData
	Realm      *ops.RealmOutput
	PromptHTML template.HTML
	Versions   []*content.PromptVersion
}

type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// pageFiles maps page names to their template file. Each is parsed on top
// of a fresh copy of layout.html.
var pageFiles = map[string]string{
	"realms": "realms.html",
	"realm":  "realm.html",
	"error":  "error.html",
}

var templateFuncs = template.FuncMap{
	"formatTime":          formatTime,
	"formatLastSynthesis": formatLastSynthesis,
	"formatChars":         formatChars,
	"formatScore":         formatScore,
	"optional":            optional,
}

// Renderer executes the server-side pages.
type Renderer struct {
	pages   map[string]*template.Template
	version string
	log     *zap.Logger
}

// NewRenderer parses the page templates from templateFS.
func NewRenderer(templateFS fs.FS, version string, log *zap.Logger) (*Renderer, error) {
	base, err := template.New("layout").Funcs(templateFuncs).ParseFS(templateFS, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pageFiles)), version: version, log: log}
	for name, file := range pageFiles {
		page := template.Must(base.Clone())
		if _, err := page.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.pages[name] = page
	}
	return r, nil
}

func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.render(w, http.StatusOK, name, data)
}

// render executes into a buffer first so a failing template produces a
// plain 500 rather than a truncated page.
func (r *Renderer) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	page, ok := r.pages[name]
	if !ok {
		r.log.Error("template not found", zap.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if err := page.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.log.Error("template execution failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError answers with the JSON error body for API clients and with
// the error page for browsers.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		writeError(w, err)
		return
	}
	pErr := errors.As(err)
	msg := pErr.Message
	if pErr.Code == errors.ErrInternal {
		msg = "an internal error occurred"
	}
	r.render(w, pErr.Status, "error", ErrorPageData{
		PageData:   PageData{Title: "Error " + strconv.Itoa(pErr.Status), Version: r.version},
		StatusCode: pErr.Status,
		Message:    msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes errors.Payload(err) with the error's status.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if pErr := errors.As(err); pErr != nil && pErr.Status != 0 {
		status = pErr.Status
	}
	writeJSON(w, status, errors.Payload(err))
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderMarkdown converts a prompt to HTML. goldmark escapes raw HTML
// unless the unsafe renderer option is set, which it is not.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

func formatLastSynthesis(unix *int64) string {
	if unix == nil {
		return "never"
	}
	return formatTime(*unix)
}

// formatChars groups digits in threes: 12345 -> "12,345".
func formatChars(n int) string {
	digits := strconv.Itoa(n)
	sign := ""
	if n < 0 {
		sign, digits = "-", digits[1:]
	}
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + b.String()
}

func formatScore(score *float64) string {
	if score == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*score, 'f', 2, 64)
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
