package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig describes which files the watcher reports.
type WatchConfig struct {
	Root        string
	Exts        map[string]struct{} // lowercase, without '.'
	InitialScan bool                // emit matching files already present
	Debounce    time.Duration       // coalesce write bursts per file
}

var defaultWatchExts = map[string]struct{}{"pdf": {}, "txt": {}}

// StartWatcher reports files under cfg.Root that are created or written.
// The channel is closed when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig, log *slog.Logger) (<-chan string, error) {
	if cfg.Root == "" {
		return nil, errors.New("no root provided")
	}
	if cfg.Exts == nil {
		cfg.Exts = defaultWatchExts
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	var initial []string
	err = filepath.WalkDir(cfg.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if cfg.InitialScan && watched(path, cfg.Exts) {
			initial = append(initial, path)
		}
		return nil
	})
	if err != nil {
		_ = w.Close()
		return nil, err
	}

	out := make(chan string, 64)
	go func() {
		defer close(out)
		defer w.Close()

		emit := func(p string) bool {
			select {
			case out <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		pending := map[string]time.Time{}
		tick := time.NewTicker(max(cfg.Debounce/2, 50*time.Millisecond))
		defer tick.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Create != 0 {
					if st, err := os.Stat(e.Name); err == nil && st.IsDir() {
						if err := w.Add(e.Name); err != nil {
							log.Warn("watch.add_dir_failed", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if watched(e.Name, cfg.Exts) && e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					pending[e.Name] = time.Now()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Error("watch.error", "error", err)
			case now := <-tick.C:
				for p, at := range pending {
					if now.Sub(at) < cfg.Debounce {
						continue
					}
					delete(pending, p)
					if !emit(p) {
						return
					}
				}
			}
		}
	}()
	return out, nil
}

func watched(path string, exts map[string]struct{}) bool {
	if strings.HasSuffix(path, analysisSuffix) {
		return false
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	_, ok := exts[ext]
	return ok
}

const analysisSuffix = ".analysis.json"

// analysisPath is where the result for a watched file is written.
func analysisPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + analysisSuffix
}
