// Package watch symbolicates reports as they appear in a directory
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/blacktop/symbolicator/internal/commands/symbolicate"
	"github.com/fsnotify/fsnotify"
)

// DefaultExtensions are the report files picked up by the watcher
var DefaultExtensions = []string{".crash", ".ips", ".spin", ".hang"}

// Symbolicator runs one report
type Symbolicator interface {
	Run(ctx context.Context, path string, o symbolicate.Options) (*symbolicate.Outcome, error)
}

// Config for a Watcher
type Config struct {
	Dir        string
	Extensions []string
	Options    symbolicate.Options
	// Command runs after every successful symbolication
	Command string
	// Debounce is how long a file must stay quiet before it is processed
	Debounce time.Duration
	// OnDone is called after every processed report
	OnDone func(path string, out *symbolicate.Outcome, err error)
}

// Watcher symbolicates new or changed reports in a directory
type Watcher struct {
	conf  Config
	sym   Symbolicator
	cache Cache

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a Watcher
func New(conf Config, sym Symbolicator, cache Cache) *Watcher {
	if len(conf.Extensions) == 0 {
		conf.Extensions = DefaultExtensions
	}
	if conf.Debounce <= 0 {
		conf.Debounce = 500 * time.Millisecond
	}
	return &Watcher{
		conf:    conf,
		sym:     sym,
		cache:   cache,
		pending: make(map[string]*time.Timer),
	}
}

// IsReport returns true if path is a report the watcher should process
func (w *Watcher) IsReport(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := filepath.Ext(name)
	if !slices.ContainsFunc(w.conf.Extensions, func(e string) bool { return strings.EqualFold(e, ext) }) {
		return false
	}
	stem := strings.TrimSuffix(name, ext)
	return !strings.HasSuffix(stem, "_symbolicated") && !strings.HasSuffix(stem, "_translated")
}

func fingerprint(fi os.FileInfo) string {
	return fmt.Sprintf("%d-%d", fi.Size(), fi.ModTime().UnixNano())
}

// Process symbolicates path unless this version of it was already handled.
// It returns false when the report was skipped.
func (w *Watcher) Process(ctx context.Context, path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if fi.IsDir() || !w.IsReport(path) {
		return false, nil
	}
	fp := fingerprint(fi)
	if w.cache.Has(path, fp) {
		log.WithField("report", path).Debug("Already symbolicated")
		return false, nil
	}

	log.WithField("report", path).Info("Symbolicating")
	out, err := w.sym.Run(ctx, path, w.conf.Options)
	// a failed report is not retried until it changes
	w.cache.Add(path, fp)
	if w.conf.OnDone != nil {
		w.conf.OnDone(path, out, err)
	}
	if err != nil {
		return true, err
	}

	log.WithFields(log.Fields{
		"report":  path,
		"output":  out.Output,
		"missing": len(out.Missing),
	}).Info("Symbolicated")

	if w.conf.Command != "" {
		if err := RunCommand(ctx, w.conf.Command, out); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Backfill processes the reports already in the directory
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := os.ReadDir(w.conf.Dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if e.IsDir() {
			continue
		}
		if _, err := w.Process(ctx, filepath.Join(w.conf.Dir, e.Name())); err != nil {
			log.WithError(err).WithField("report", e.Name()).Error("Failed to symbolicate")
		}
	}
	return nil
}

// Watch blocks processing reports as they are written until ctx is done
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.conf.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.conf.Dir, err)
	}
	log.WithField("dir", w.conf.Dir).Info("Watching for reports")

	ready := make(chan string)
	done := make(chan struct{})
	defer w.stopPending()
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.IsReport(event.Name) {
				continue
			}
			w.schedule(event.Name, ready, done)
		case path := <-ready:
			if _, err := w.Process(ctx, path); err != nil && ctx.Err() == nil {
				log.WithError(err).WithField("report", path).Error("Failed to symbolicate")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Error("watcher error")
		}
	}
}

// schedule (re)arms the debounce timer for path
func (w *Watcher) schedule(path string, ready chan<- string, done <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.conf.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		deliver(path, ready, done)
	})
}

// deliver hands path to the watch loop, giving up once the loop has returned
func deliver(path string, ready chan<- string, done <-chan struct{}) bool {
	select {
	case ready <- path:
		return true
	case <-done:
		return false
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}
