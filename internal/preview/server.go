// Package preview serves a built site locally and rebuilds it when content,
// public assets or the configuration change.
package preview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	derrors "github.com/ahmadMuhammadGd/nanosite/internal/foundation/errors"
	"github.com/ahmadMuhammadGd/nanosite/internal/logfields"
	"github.com/ahmadMuhammadGd/nanosite/internal/metrics"
	"github.com/ahmadMuhammadGd/nanosite/internal/plugin"
	"github.com/ahmadMuhammadGd/nanosite/internal/site"
)

// Internal endpoints.
const (
	LiveReloadPath       = "/_nanosite/livereload"
	LiveReloadScriptPath = "/_nanosite/livereload.js"
	StatusPath           = "/_nanosite/status"
)

// DefaultDebounce is the quiet period after a change before rebuilding.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a preview server.
type Options struct {
	// ConfigPath is reloaded before a rebuild when it changed on disk.
	// Empty disables reloading.
	ConfigPath string
	// Port overrides server.port when positive.
	Port     int
	Registry *plugin.Registry
	Logger   *slog.Logger
	Debounce time.Duration
}

// Server builds a site and serves the output.
type Server struct {
	opts     Options
	fs       afero.Fs
	promReg  *prom.Registry
	recorder metrics.Recorder
	hub      *LiveReloadHub
	status   *buildStatus
	errs     *derrors.HTTPErrorAdapter
	logger   *slog.Logger

	mu       sync.RWMutex
	cfg      *config.Config
	snapshot string

	buildMu sync.Mutex
}

// New returns a preview server for cfg on fs.
func New(cfg *config.Config, fs afero.Fs, opts Options) *Server {
	if opts.Registry == nil {
		opts.Registry = plugin.DefaultRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	s := &Server{
		opts:     opts,
		fs:       fs,
		promReg:  prom.NewRegistry(),
		hub:      NewLiveReloadHub(),
		status:   &buildStatus{},
		errs:     derrors.NewHTTPErrorAdapter(opts.Logger),
		logger:   opts.Logger,
		cfg:      cfg.Clone(),
		snapshot: cfg.Snapshot(),
	}
	s.recorder = metrics.NewPrometheusRecorder(s.promReg)
	s.promReg.MustRegister(
		promcollect.NewGoCollector(),
		promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}),
		prom.NewGaugeFunc(prom.GaugeOpts{
			Namespace: "nanosite",
			Name:      "preview_livereload_clients",
			Help:      "Browsers connected to the live reload stream",
		}, func() float64 { return float64(s.hub.Clients()) }),
	)
	return s
}

// Config returns the configuration of the most recent build.
func (s *Server) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Server) outDir() string {
	cfg := s.Config()
	return site.NewBuilder(cfg, s.fs).OutputDir()
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	cfg := s.Config()
	port := cfg.Server.Port
	if s.opts.Port > 0 {
		port = s.opts.Port
	}
	return net.JoinHostPort(cfg.Server.Host, strconv.Itoa(port))
}

// Rebuild reloads the configuration when it changed and builds the site.
// The outcome is recorded for the error page and announced to browsers.
func (s *Server) Rebuild(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	if err := s.reloadConfig(); err != nil {
		s.status.setError(err, nil)
		s.hub.Broadcast(fmt.Sprintf("error-%d", time.Now().UnixNano()))
		return err
	}
	b := site.NewBuilder(s.Config(), s.fs,
		site.WithRegistry(s.opts.Registry),
		site.WithRecorder(s.recorder),
		site.WithLogger(s.logger))
	report, err := b.Build(ctx)
	if err != nil {
		s.status.setError(err, report)
		s.hub.Broadcast("error-" + report.BuildID)
		return err
	}
	s.status.setSuccess(report)
	s.hub.Broadcast(report.BuildID)
	return nil
}

func (s *Server) reloadConfig() error {
	if s.opts.ConfigPath == "" {
		return nil
	}
	cfg, err := config.Load(s.opts.ConfigPath)
	if err != nil {
		return err
	}
	snap := cfg.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap == s.snapshot {
		return nil
	}
	if cfg.Server != s.cfg.Server {
		s.logger.Warn("Server settings changed; restart preview to apply them")
	}
	s.logger.Info("Configuration reloaded", logfields.Path(s.opts.ConfigPath))
	s.cfg, s.snapshot = cfg, snap
	return nil
}

// Handler returns the HTTP routes of the preview server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get(s.Config().Server.MetricsPath, metrics.HTTPHandler(s.promReg).ServeHTTP)
	r.Get(LiveReloadPath, s.hub.ServeHTTP)
	r.Get(LiveReloadScriptPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		_, _ = w.Write([]byte(liveReloadScript))
	})
	r.Get(StatusPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.status.snapshot())
	})
	r.Get("/*", s.serveSite)
	r.Head("/*", s.serveSite)
	return r
}

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Build failed</title></head>
<body>
<h1>Build failed</h1>
<pre>{{ . }}</pre>
<script src="` + LiveReloadScriptPath + `"></script>
</body>
</html>
`))

// serveSite serves the output directory. HTML responses get the live
// reload script; a failed last build is shown instead of stale output.
// Clients asking for JSON get the classified error payload.
func (s *Server) serveSite(w http.ResponseWriter, r *http.Request) {
	if _, err := s.status.getStatus(); err != nil {
		if strings.Contains(r.Header.Get("Accept"), "application/json") {
			s.errs.WriteErrorResponse(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_ = errorPage.Execute(w, err.Error())
		return
	}

	outDir := s.outDir()
	name := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(r.URL.Path, "/") {
		name = path.Join(name, "index.html")
	}
	if path.Ext(name) == ".html" {
		data, err := afero.ReadFile(s.fs, filepath.Join(outDir, filepath.FromSlash(name)))
		if err == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			_, _ = w.Write(injectLiveReload(data))
			return
		}
	}
	http.FileServer(afero.NewHttpFs(s.fs).Dir(outDir)).ServeHTTP(w, r)
}

func injectLiveReload(doc []byte) []byte {
	tag := []byte(`<script src="` + LiveReloadScriptPath + `"></script>`)
	i := bytes.LastIndex(doc, []byte("</body>"))
	if i < 0 {
		return append(doc, tag...)
	}
	out := make([]byte, 0, len(doc)+len(tag))
	out = append(out, doc[:i]...)
	out = append(out, tag...)
	return append(out, doc[i:]...)
}

// Run builds once, serves the site and rebuilds on change until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Rebuild(ctx); err != nil {
		s.logger.Error("Initial build failed", logfields.Error(err))
	}

	srv := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	s.logger.Info("Preview server listening", logfields.URL("http://"+ln.Addr().String()))

	w, err := newWatcher(s.watchRoots(), s.configFile(), s.logger)
	if err != nil {
		_ = srv.Close()
		return err
	}
	defer func() { _ = w.Close() }()

	rebuildReq, trigger := setupRebuildDebouncer(s.opts.Debounce)
	s.startRebuildWorker(ctx, rebuildReq)

	loopErr := w.run(ctx, trigger, serveErr)

	s.logger.Info("Shutting down preview server")
	s.hub.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP server shutdown error", logfields.Error(err))
	}
	return loopErr
}
