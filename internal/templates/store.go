// Package templates loads html/template files from a directory, binds the
// filter functions into them and reloads the set when files change.
package templates

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 200 * time.Millisecond

// ErrTemplateNotFound is returned by Render for an unknown template name.
var ErrTemplateNotFound = errors.New("template not found")

// Store holds the parsed templates of one directory.
type Store struct {
	dir        string
	extensions []string
	funcs      template.FuncMap
	logger     *zap.Logger
	debounce   time.Duration

	mu    sync.RWMutex
	root  *template.Template
	names []string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for reload events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithExtensions limits loading to files with the given extensions.
func WithExtensions(exts ...string) Option {
	return func(s *Store) { s.extensions = exts }
}

// WithDebounce sets how long Watch waits after the last change before reloading.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.debounce = d }
}

// NewStore parses the templates in dir with funcs bound.
func NewStore(dir string, funcs template.FuncMap, opts ...Option) (*Store, error) {
	s := &Store{
		dir:        dir,
		extensions: []string{".html", ".tmpl"},
		funcs:      funcs,
		logger:     zap.NewNop(),
		debounce:   defaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the template directory.
func (s *Store) Dir() string {
	return s.dir
}

// Reload parses the directory again. On error the previous set is kept.
func (s *Store) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read template dir: %w", err)
	}
	root := template.New("").Funcs(s.funcs)
	var names []string
	for _, e := range entries {
		if e.IsDir() || !s.matchExtension(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read template %s: %w", e.Name(), err)
		}
		if _, err := root.New(e.Name()).Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", e.Name(), err)
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	s.mu.Lock()
	s.root = root
	s.names = names
	s.mu.Unlock()
	s.logger.Debug("templates loaded", zap.String("dir", s.dir), zap.Strings("names", names))
	return nil
}

// Names returns the loaded template file names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.names...)
}

// Render executes the named template with data and writes the result to w.
// Nothing is written when execution fails.
func (s *Store) Render(w io.Writer, name string, data any) error {
	s.mu.RLock()
	root, ok := s.root, s.hasNameLocked(name)
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	var buf bytes.Buffer
	if err := root.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (s *Store) hasNameLocked(name string) bool {
	i := sort.SearchStrings(s.names, name)
	return i < len(s.names) && s.names[i] == name
}

func (s *Store) matchExtension(name string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range s.extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Watch reloads the templates when files in the directory change. It returns
// once the watch is established; watching stops when ctx is cancelled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}
	s.logger.Debug("watching templates", zap.String("dir", s.dir))
	go s.run(ctx, watcher)
	return nil
}

func (s *Store) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !s.matchExtension(ev.Name) {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			s.logger.Debug("template changed", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
			if timer == nil {
				timer = time.AfterFunc(s.debounce, s.reloadLogged)
			} else {
				timer.Reset(s.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("template watcher error", zap.Error(err))
		}
	}
}

func (s *Store) reloadLogged() {
	if err := s.Reload(); err != nil {
		s.logger.Warn("template reload failed, keeping previous set", zap.Error(err))
		return
	}
	s.logger.Info("templates reloaded", zap.String("dir", s.dir))
}
