// Package watch solves puzzle files dropped into a directory. A created or
// modified puzzle file is parsed, solved through the engine, and the solution
// written alongside it; malformed or unsolvable puzzles are logged and
// skipped. Write events are debounced per file so editors and partial writes
// do not trigger duplicate solves.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gridlock-solve/gridlock/pkg/common/logging"
	"github.com/gridlock-solve/gridlock/pkg/gridlock"
)

// SolutionSuffix is appended to a puzzle file's base name for its output.
const SolutionSuffix = ".solution"

// Watcher watches one directory for puzzle files.
type Watcher struct {
	dir      string
	ext      string
	debounce time.Duration
	engine   *gridlock.Engine
	log      *logging.Logger

	fsw    *fsnotify.Watcher
	mu     sync.Mutex
	timers map[string]*time.Timer

	// Solved is closed-loop test support: it receives the path of each
	// solution file written. Nil unless set before Run.
	Solved chan string
}

// New creates a Watcher over dir for files with the given extension
// (including the dot). The directory must exist.
func New(dir, ext string, debounce time.Duration, engine *gridlock.Engine, log *logging.Logger) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch: add %s: %w", dir, err)
	}

	if log == nil {
		log = logging.Default()
	}
	return &Watcher{
		dir:      dir,
		ext:      ext,
		debounce: debounce,
		engine:   engine,
		log:      log.WithComponent("watch"),
		fsw:      fsw,
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Run processes filesystem events until ctx is cancelled. Existing puzzle
// files in the directory are picked up once at startup.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	w.sweep()

	w.log.Info("watching", logging.Fields{"dir": w.dir, "ext": w.ext})
	for {
		select {
		case <-ctx.Done():
			w.cancelTimers()
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !w.wantsFile(ev.Name) {
				continue
			}
			w.schedule(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", logging.Fields{"error": err.Error()})
		}
	}
}

// sweep solves any puzzle files already present.
func (w *Watcher) sweep() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn("initial sweep failed", logging.Fields{"error": err.Error()})
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if w.wantsFile(path) {
			w.solveFile(path)
		}
	}
}

func (w *Watcher) wantsFile(path string) bool {
	if !strings.HasSuffix(path, w.ext) {
		return false
	}
	// Ignore our own output.
	return !strings.HasSuffix(strings.TrimSuffix(path, w.ext), SolutionSuffix)
}

// schedule arms (or re-arms) the per-file debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.solveFile(path)
	})
}

func (w *Watcher) cancelTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// solveFile reads, solves, and writes the solution for one puzzle file.
func (w *Watcher) solveFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.log.Warn("read puzzle failed", logging.Fields{"file": path, "error": err.Error()})
		return
	}

	res, err := w.engine.SolveString(string(data))
	if err != nil {
		w.log.Warn("bad puzzle file", logging.Fields{"file": path, "error": err.Error()})
		return
	}
	if !res.Solved {
		w.log.Info("puzzle unsolvable", logging.Fields{"file": path})
		return
	}

	out := strings.TrimSuffix(path, w.ext) + SolutionSuffix
	if err := os.WriteFile(out, []byte(res.Solution.String()+"\n"), 0o644); err != nil {
		w.log.Error("write solution failed", logging.Fields{"file": out, "error": err.Error()})
		return
	}
	w.log.Info("puzzle solved", logging.Fields{
		"file":     path,
		"duration": res.Duration.String(),
		"workers":  res.Workers,
	})
	if w.Solved != nil {
		select {
		case w.Solved <- out:
		default:
		}
	}
}
