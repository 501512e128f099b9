package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hpungsan/pathfinder/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 4 << 20

// shutdownTimeout is how long Run waits for in-flight requests.
const shutdownTimeout = 10 * time.Second

// NewRouter builds the HTTP handler: a JSON API under /api and HTML pages
// for browsing realms. Everything except /health and /static requires the
// configured bearer token.
func NewRouter(env *ops.Env, version string) (http.Handler, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}
	renderer, err := NewRenderer(templateSub, version, env.Log.Named("render"))
	if err != nil {
		return nil, err
	}

	h := &Handlers{env: env, renderer: renderer, version: version}
	log := env.Log.Named("http")

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recovery(log))
	r.Use(securityHeaders)

	r.Get("/health", h.Health)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(env.Config.HTTPAPIKey))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/realms", http.StatusFound)
		})
		r.Get("/realms", h.PageRealms)
		r.Get("/realms/{id}", h.PageRealm)

		r.Route("/api", func(r chi.Router) {
			r.Route("/realms", func(r chi.Router) {
				r.Get("/", h.ListRealms)
				r.Post("/", h.CreateRealm)
				r.Get("/{id}", h.GetRealm)
				r.Patch("/{id}", h.UpdateRealm)
				r.Delete("/{id}", h.DeleteRealm)
				r.Get("/{id}/content-map", h.ContentMap)
				r.Post("/{id}/analysis", h.AnalyzeRealm)
				r.Get("/{id}/versions", h.ListVersions)
				r.Post("/{id}/queue/process", h.ProcessQueue)
				r.Post("/{id}/synthesis", h.ForceFullSynthesis)
			})

			r.Route("/sources", func(r chi.Router) {
				r.Get("/", h.ListSources)
				r.Post("/", h.AddSource)
				r.Get("/search", h.SearchSources)
				r.Post("/batch", h.FetchMany)
				r.Post("/bulk/update", h.BulkUpdate)
				r.Post("/bulk/delete", h.BulkDelete)
				r.Get("/{id}", h.GetSource)
				r.Patch("/{id}", h.UpdateSource)
				r.Put("/{id}/weight", h.UpdateWeight)
				r.Delete("/{id}", h.DeleteSource)
				r.Post("/{id}/insights", h.ExtractInsights)
				r.Post("/{id}/analysis", h.AnalyzeSource)
			})

			r.Post("/queue/process", h.ProcessAllQueues)
			r.Post("/queue/purge", h.PurgeQueue)

			r.Get("/versions/{id}", h.GetVersion)
			r.Post("/versions/{id}/assessment", h.AssessVersion)

			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", h.ListJobs)
				r.Post("/", h.StartJob)
				r.Get("/{id}", h.GetJob)
				r.Post("/{id}/cancel", h.CancelJob)
			})

			r.Route("/reflections", func(r chi.Router) {
				r.Get("/", h.ListReflections)
				r.Post("/", h.CreateReflection)
				r.Post("/migrate", h.MigrateReflections)
				r.Post("/{id}/answer", h.AnswerReflection)
			})

			r.Route("/texts", func(r chi.Router) {
				r.Get("/", h.ListTexts)
				r.Post("/", h.CreateText)
				r.Post("/migrate", h.MigrateTexts)
				r.Get("/{id}", h.GetText)
				r.Delete("/{id}", h.DeleteText)
				r.Post("/{id}/ingest", h.IngestText)
			})

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", h.ListChats)
				r.Post("/", h.CreateChat)
				r.Get("/{id}/messages", h.ListMessages)
				r.Post("/{id}/messages", h.SendMessage)
			})

			r.Post("/export", h.Export)
			r.Post("/import", h.Import)
		})
	})

	return r, nil
}

// NewServer creates the HTTP server listening on the configured bind address.
func NewServer(env *ops.Env, version string) (*http.Server, error) {
	handler, err := NewRouter(env, version)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              net.JoinHostPort(env.Config.HTTPBind, strconv.Itoa(env.Config.HTTPPort)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(env.Log.Named("http")),
	}, nil
}

// Run serves srv until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	return serve(ctx, srv, ln, log)
}

func serve(ctx context.Context, srv *http.Server, ln net.Listener, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	addr := ln.Addr().String()
	log.Info("pathfinder API listening", zap.String("addr", addr))
	if host, _, err := net.SplitHostPort(addr); err == nil {
		if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
			log.Warn("server is binding to all interfaces and may be accessible from the network")
		}
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
