package services

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fahmykhattab/docuai/internal/config"
)

// Watcher ingests files dropped into the consume directory. New files are
// picked up once their size stops changing, so half-copied files are never
// ingested.
type Watcher struct {
	docs *DocumentService
	cfg  *config.Config

	// Stability polling knobs, overridable in tests.
	pollInterval time.Duration
	maxWait      time.Duration
}

func NewWatcher(docs *DocumentService, cfg *config.Config) *Watcher {
	return &Watcher{
		docs:         docs,
		cfg:          cfg,
		pollInterval: time.Second,
		maxWait:      60 * time.Second,
	}
}

// Run watches the consume directory until ctx is cancelled. Files already
// present at startup are ingested first.
func (w *Watcher) Run(ctx context.Context) error {
	dir := w.cfg.ConsumeDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	w.sweepExisting(ctx, dir)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(dir); err != nil {
		return err
	}
	log.Printf("watcher: consuming from %s", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.maybeIngest(ctx, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("watcher: %v", err)
		}
	}
}

func (w *Watcher) sweepExisting(ctx context.Context, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("watcher: could not list %s: %v", dir, err)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		w.maybeIngest(ctx, filepath.Join(dir, e.Name()))
	}
}

func (w *Watcher) maybeIngest(ctx context.Context, path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !w.cfg.ExtensionAllowed(ext) {
		return
	}
	if !w.waitForStableSize(ctx, path) {
		return
	}
	if _, err := w.docs.IngestLocalFile(ctx, path); err != nil {
		log.Printf("watcher: could not ingest %s: %v", path, err)
	}
}

// waitForStableSize polls until two consecutive size checks agree on a
// non-zero size. Create events can fire before the writer's first write, so
// an empty file is never "stable"; it keeps polling until the cap. A file
// still growing (or still empty) at maxWait is ingested anyway after a
// warning, like a very slow copy that will finish momentarily. Returns false
// only if the file disappears or the context ends.
func (w *Watcher) waitForStableSize(ctx context.Context, path string) bool {
	deadline := time.Now().Add(w.maxWait)
	var lastSize int64 = -1
	for {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() == lastSize && info.Size() > 0 {
			return true
		}
		lastSize = info.Size()

		if time.Now().After(deadline) {
			log.Printf("watcher: %s did not stabilize within %s, ingesting anyway", path, w.maxWait)
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(w.pollInterval):
		}
	}
}
