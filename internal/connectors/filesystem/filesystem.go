// Package filesystem expands local paths into ingestable files and
// watches directories for new ones.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Expand replaces each directory in paths with the files beneath it whose
// extension is in extensions, in lexical order. Hidden files and
// directories below a root are skipped. Files named explicitly are kept
// as given so the loader registry can report unsupported formats.
func Expand(paths []string, extensions []string) ([]string, error) {
	var out []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%s: %w", root, domain.ErrNotFound)
			}
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, _ := filepath.Rel(root, path)
			if isHidden(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && Supported(path, extensions) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return out, nil
}

// Supported reports whether path has one of extensions, ignoring case.
func Supported(path string, extensions []string) bool {
	return slices.Contains(extensions, strings.ToLower(filepath.Ext(path)))
}

// settleDelay is how long a new file must go without further writes
// before Watch reports it.
var settleDelay = 200 * time.Millisecond

// Watch reports files created beneath the directories of paths until ctx
// is done. Directories are watched recursively, including ones created
// later. A file path is watched through its parent directory. Each new
// non-hidden file with a supported extension is sent once, after it has
// stopped changing for settleDelay. Files that existed before the watch
// started are never sent.
func Watch(ctx context.Context, paths []string, extensions []string) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("start watcher: %w", err)
	}

	t := newTracker(watcher, extensions)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
		if !info.IsDir() {
			err = watcher.Add(filepath.Dir(p))
		} else {
			err = t.addTree(p)
		}
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
	}

	created := make(chan string)
	go func() {
		defer close(created)
		defer watcher.Close()

		ticker := time.NewTicker(settleDelay / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				t.handle(event, time.Now())

			case now := <-ticker.C:
				for _, path := range t.settled(now) {
					select {
					case created <- path:
					case <-ctx.Done():
						return
					}
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error: %v", err)
			}
		}
	}()

	return created, nil
}

// fsChange classifies a filesystem event.
type fsChange int

const (
	changeIgnored fsChange = iota
	changeFile
	changeDir
)

// classifyEvent reports whether event touches an ingestable file or
// creates a directory to watch. Removes, renames away and chmods are
// ignored.
func classifyEvent(event fsnotify.Event, extensions []string) fsChange {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return changeIgnored
	}
	if isHidden(filepath.Base(event.Name)) {
		return changeIgnored
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return changeIgnored
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			return changeDir
		}
		return changeIgnored
	}
	if !Supported(event.Name, extensions) {
		return changeIgnored
	}
	return changeFile
}

// tracker holds files created since the watch started until they settle.
// It is owned by the Watch goroutine.
type tracker struct {
	watcher    *fsnotify.Watcher
	extensions []string
	pending    map[string]time.Time
	reported   map[string]bool
}

func newTracker(watcher *fsnotify.Watcher, extensions []string) *tracker {
	return &tracker{
		watcher:    watcher,
		extensions: extensions,
		pending:    map[string]time.Time{},
		reported:   map[string]bool{},
	}
}

// addTree watches root and every non-hidden directory beneath it.
func (t *tracker) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if isHidden(rel) {
			return filepath.SkipDir
		}
		if err := t.watcher.Add(path); err != nil {
			return err
		}
		logger.Debug("Watching %s", path)
		return nil
	})
}

// handle records event at now. A Write only counts for a file already
// pending, so edits to files that predate the watch are ignored.
func (t *tracker) handle(event fsnotify.Event, now time.Time) {
	switch classifyEvent(event, t.extensions) {
	case changeDir:
		if err := t.addTree(event.Name); err != nil {
			logger.Warn("Cannot watch %s: %v", event.Name, err)
			return
		}
		// Files may have landed before the directory was watched.
		files, err := Expand([]string{event.Name}, t.extensions)
		if err != nil {
			logger.Warn("Cannot list %s: %v", event.Name, err)
			return
		}
		for _, f := range files {
			t.touch(f, now, true)
		}

	case changeFile:
		t.touch(event.Name, now, event.Has(fsnotify.Create))
	}
}

func (t *tracker) touch(path string, now time.Time, create bool) {
	if t.reported[path] {
		return
	}
	if _, ok := t.pending[path]; ok || create {
		t.pending[path] = now
	}
}

// settled removes and returns, sorted, the pending files unchanged for
// settleDelay at now.
func (t *tracker) settled(now time.Time) []string {
	var out []string
	for path, last := range t.pending {
		if now.Sub(last) >= settleDelay {
			delete(t.pending, path)
			t.reported[path] = true
			out = append(out, path)
		}
	}
	slices.Sort(out)
	return out
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
