package preview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cast"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	"github.com/ahmadMuhammadGd/nanosite/internal/logfields"
)

// watchRoots returns the directories whose changes trigger a rebuild.
func (s *Server) watchRoots() []string {
	cfg := s.Config()
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(cfg.Root, filepath.FromSlash(p))
	}
	roots := []string{resolve(cfg.Content.Dir)}
	if cfg.Content.PublicDir != "" {
		roots = append(roots, resolve(cfg.Content.PublicDir))
	}
	if cfg.HasIntegration(config.IntegrationTailwind) {
		for _, in := range cast.ToStringSlice(cfg.IntegrationOptions(config.IntegrationTailwind)["input"]) {
			roots = append(roots, filepath.Dir(resolve(in)))
		}
	}
	return roots
}

func (s *Server) configFile() string {
	if s.opts.ConfigPath == "" {
		return ""
	}
	abs, err := filepath.Abs(s.opts.ConfigPath)
	if err != nil {
		return s.opts.ConfigPath
	}
	return abs
}

type watcher struct {
	fw     *fsnotify.Watcher
	config string
	logger *slog.Logger
	// dirs are the recursively watched content directories.
	dirs map[string]bool
}

// newWatcher watches roots recursively. The configuration file is watched
// through its directory so editors that replace the file are seen; .env
// files next to it count as configuration.
func newWatcher(roots []string, configFile string, logger *slog.Logger) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &watcher{fw: fw, config: configFile, logger: logger, dirs: map[string]bool{}}
	for _, root := range roots {
		if st, err := os.Stat(root); err != nil || !st.IsDir() {
			logger.Debug("Watch root missing", logfields.Path(root))
			continue
		}
		w.addDirsRecursive(root)
	}
	if configFile != "" {
		if err := fw.Add(filepath.Dir(configFile)); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watch %s: %w", configFile, err)
		}
	}
	return w, nil
}

func (w *watcher) Close() error { return w.fw.Close() }

// run forwards relevant events to trigger until ctx ends or serveErr yields
// an error.
func (w *watcher) run(ctx context.Context, trigger func(), serveErr <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-serveErr:
			if ok && err != nil {
				return err
			}
			serveErr = nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			w.handle(ev, trigger)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *watcher) handle(ev fsnotify.Event, trigger func()) {
	if !w.isConfigEvent(ev.Name) {
		if shouldIgnoreEvent(ev.Name) || !w.dirs[filepath.Dir(ev.Name)] {
			return
		}
		if ev.Op&fsnotify.Create == fsnotify.Create {
			if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
				w.addDirsRecursive(ev.Name)
			}
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

func (w *watcher) isConfigEvent(name string) bool {
	if w.config == "" || filepath.Dir(name) != filepath.Dir(w.config) {
		return false
	}
	base := filepath.Base(name)
	return name == w.config || base == ".env" || base == ".env.local"
}

func (w *watcher) addDirsRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.fw.Add(path); err != nil {
				w.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
				return nil
			}
			w.dirs[path] = true
		}
		return nil
	})
}

// shouldIgnoreEvent reports events for hidden, editor swap and OS metadata
// files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}

// setupRebuildDebouncer returns the rebuild channel and a trigger that
// fires it once changes have been quiet for delay.
func setupRebuildDebouncer(delay time.Duration) (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	return rebuildReq, trigger
}

// startRebuildWorker rebuilds on each request. Requests arriving during a
// build collapse into one follow-up build.
func (s *Server) startRebuildWorker(ctx context.Context, rebuildReq chan struct{}) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-rebuildReq:
				s.logger.Info("Change detected; rebuilding site")
				if err := s.Rebuild(ctx); err != nil {
					s.logger.Warn("Rebuild failed", logfields.Error(err))
				}
			}
		}
	}()
}
