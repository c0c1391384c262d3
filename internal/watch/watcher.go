// Package watch re-runs a probe whenever the directories that hold checklist
// targets change.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"probe/internal/checklist"
	"probe/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// TriggerFunc is called once per settled batch of filesystem events.
type TriggerFunc func(ctx context.Context, changed []string)

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Triggers      int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
}

// Watcher watches the probe root and the parent directories of every target.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	root        string
	checklist   *checklist.Checklist
	trigger     TriggerFunc
	debounceDur time.Duration
	pending     map[string]struct{}
	lastEvent   time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stats       Stats
}

// New creates a watcher for the checklist under root.
func New(root string, c *checklist.Checklist, debounce time.Duration, fn TriggerFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &Watcher{
		watcher:     fw,
		root:        root,
		checklist:   c,
		trigger:     fn,
		debounceDur: debounce,
		pending:     make(map[string]struct{}),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.root); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.refresh()

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// WatchedDirs returns the sorted list of watched directories.
func (w *Watcher) WatchedDirs() []string {
	dirs := w.watcher.WatchList()
	sort.Strings(dirs)
	return dirs
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounceDur / 3
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	logging.WatchDebug("%s %s", event.Op, event.Name)

	w.mu.Lock()
	w.pending[event.Name] = struct{}{}
	w.lastEvent = time.Now()
	w.stats.Events++
	w.stats.LastEventTime = w.lastEvent
	w.stats.LastEventPath = event.Name
	w.mu.Unlock()
}

// flush fires the trigger once events have been quiet for the debounce window.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 || time.Since(w.lastEvent) < w.debounceDur {
		w.mu.Unlock()
		return
	}
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = make(map[string]struct{})
	w.stats.Triggers++
	w.mu.Unlock()

	sort.Strings(changed)
	w.refresh()

	logging.Watch("re-running after %d change(s)", len(changed))
	logging.Audit(logging.AuditEvent{
		EventType: logging.AuditWatchTrigger,
		Success:   true,
		Fields:    map[string]interface{}{"changed": changed},
	})
	w.trigger(ctx, changed)
}

// refresh adds every existing directory between the root and each target's parent.
// Directories created since the last refresh are picked up here.
func (w *Watcher) refresh() {
	watched := make(map[string]bool)
	for _, d := range w.watcher.WatchList() {
		watched[d] = true
	}
	for _, dir := range candidateDirs(w.root, w.checklist) {
		if watched[dir] {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			logging.WatchDebug("cannot watch %s: %v", dir, err)
			continue
		}
		watched[dir] = true
		logging.WatchDebug("watching %s", dir)
	}
}

// candidateDirs lists the root, every intermediate directory below it leading to a
// target, and every dir target itself.
func candidateDirs(root string, c *checklist.Checklist) []string {
	seen := map[string]bool{filepath.Clean(root): true}
	out := []string{filepath.Clean(root)}
	add := func(d string) {
		d = filepath.Clean(d)
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}

	for _, s := range c.Steps {
		for _, t := range s.Targets {
			full := t.Resolve(root)
			if t.Kind == checklist.KindDir {
				add(full)
			}
			rel, err := filepath.Rel(root, filepath.Dir(full))
			if err != nil || strings.HasPrefix(rel, "..") {
				// Outside the root: only watch the immediate parent.
				add(filepath.Dir(full))
				continue
			}
			cur := root
			for _, part := range strings.Split(rel, string(filepath.Separator)) {
				if part == "." || part == "" {
					continue
				}
				cur = filepath.Join(cur, part)
				add(cur)
			}
		}
	}
	return out
}
