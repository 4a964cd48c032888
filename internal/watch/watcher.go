// SPDX-License-Identifier: MPL-2.0

// Package watch monitors a project's resource trees and card root and feeds
// debounced change batches to a callback, typically the resource registry's
// filesystem-change handler.
//
// Events within the debounce window are coalesced so the callback fires once
// with the full set of changed paths.
package watch

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"cardkit/internal/card"
	"cardkit/internal/registry"
	"cardkit/pkg/resname"
)

// defaultDebounce is the delay before firing the onChange callback after the
// last filesystem event. Editors commonly write then rename a temp file;
// the window coalesces such bursts into a single callback.
const defaultDebounce = 300 * time.Millisecond

// defaultIgnores lists path patterns that never trigger callbacks: VCS
// metadata, the project's own bookkeeping directory, and editor swap files.
var defaultIgnores = []string{
	"**/.git/**",
	".cards/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

// projectPatterns selects the paths that belong to the resource model: one
// subtree per resource type, the imported modules tree, and the card root.
func projectPatterns() []string {
	patterns := make([]string, 0, len(resname.Types)+2)
	for _, typ := range resname.Types {
		patterns = append(patterns, string(typ)+"/**")
	}
	patterns = append(patterns, registry.ModulesDir+"/**")
	patterns = append(patterns, card.CardRootDir+"/**")
	return patterns
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Root is the project root directory to watch. An empty value
		// defaults to the current working directory.
		Root string

		// Ignore are additional doublestar-compatible glob patterns for
		// paths that should never trigger callbacks, merged with the
		// built-in default ignores.
		Ignore []string

		// Debounce is the quiet period after the last event before the
		// callback fires. Zero or negative values fall back to
		// defaultDebounce.
		Debounce time.Duration

		// OnChange is called after the debounce window closes with the
		// deduplicated list of changed paths relative to Root. A nil
		// callback is a no-op.
		OnChange func(ctx context.Context, changed []string) error

		// Stderr receives diagnostic messages. A nil value defaults to
		// os.Stderr.
		Stderr io.Writer
	}

	// Watcher monitors a project tree and fires a debounced callback when
	// resource or card files change. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		patterns []string
		ignores  []string
		stderr   io.Writer
		debounce time.Duration
		root     string
		started  atomic.Bool
	}
)

// New creates a Watcher for a project root. It registers every non-ignored
// directory under the root for monitoring; pattern filtering happens when
// events arrive.
func New(cfg Config) (*Watcher, error) {
	root := cfg.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		root = wd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve project root: %w", err)
	}

	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	ignores := make([]string, 0, len(defaultIgnores)+len(cfg.Ignore))
	ignores = append(ignores, defaultIgnores...)
	ignores = append(ignores, cfg.Ignore...)

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		patterns: projectPatterns(),
		ignores:  ignores,
		stderr:   stderr,
		debounce: debounce,
		root:     absRoot,
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			fmt.Fprintf(stderr, "watch: close after init failure: %v\n", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is cancelled, processing filesystem events and
// dispatching debounced callbacks. It returns nil on clean context
// cancellation and propagates fatal watcher errors. A second call returns an
// error immediately.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire drains the pending set and invokes the OnChange callback. It may
	// be scheduled by time.AfterFunc after the context is cancelled, so
	// ctx.Err() is checked as a best-effort guard. The skip-if-busy guard
	// prevents concurrent invocations when the callback outlasts the
	// debounce period.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Collect(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		slices.Sort(changed)
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				fmt.Fprintf(w.stderr, "watch: callback error: %v\n", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		localTimer := timer
		mu.Unlock()
		if localTimer != nil && !localTimer.Stop() {
			select {
			case <-localTimer.C:
			default:
			}
		}
		if closeErr := w.fsw.Close(); closeErr != nil {
			fmt.Fprintf(w.stderr, "watch: close fsnotify: %v\n", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}

			rel, err := filepath.Rel(w.root, evt.Name)
			if err != nil {
				rel = evt.Name
			}
			if w.isIgnored(rel) || !w.matchesPatterns(rel) {
				continue
			}

			// Newly created directories extend the recursive watch.
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			// Resource exhaustion means the watcher cannot recover; other
			// errors are logged and watching continues.
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			fmt.Fprintf(w.stderr, "watch: fsnotify error: %v\n", err)
		}
	}
}

// addDirectories walks the project root and adds every non-ignored directory
// to the fsnotify watcher.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.root, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			// Skip inaccessible directories rather than aborting the walk.
			fmt.Fprintf(w.stderr, "watch: skipping inaccessible path %q: %v\n", path, walkDirErr)
			return nil //nolint:nilerr // intentional skip of inaccessible paths
		}
		if !d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil //nolint:nilerr // skip paths that cannot be made relative
		}
		if w.isIgnored(rel) || w.isIgnored(rel+"/") {
			return filepath.SkipDir
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk project tree: %w", walkErr)
	}
	return nil
}

// maybeAddDir adds path to the fsnotify watcher if it is a non-ignored
// directory.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return
	}
	if w.isIgnored(rel) || w.isIgnored(rel+"/") {
		return
	}
	if addErr := w.fsw.Add(path); addErr != nil {
		fmt.Fprintf(w.stderr, "watch: add new directory %q: %v\n", path, addErr)
	}
}

// isIgnored reports whether the path (relative to the root) matches any
// ignore pattern.
func (w *Watcher) isIgnored(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range w.ignores {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// matchesPatterns reports whether the path (relative to the root) belongs to
// one of the watched resource trees.
func (w *Watcher) matchesPatterns(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range w.patterns {
		if matched, matchErr := doublestar.Match(pat, normalized); matchErr == nil && matched {
			return true
		}
	}
	return false
}

// validatePatterns checks that every pattern is a valid doublestar glob so
// invalid globs fail at construction time instead of silently never matching.
func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if _, err := doublestar.Match(pat, ""); err != nil {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, err)
		}
	}
	return nil
}
