package config

import (
	"context"
	"path/filepath"
	"time"

	"git.sr.ht/~jakintosh/bearer/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// watchFile calls callback once writes to path settle for debounce. The
// parent directory is watched so editors that replace the file are seen.
func watchFile(
	ctx context.Context,
	path string,
	debounce time.Duration,
	log *logging.Logger,
	callback func(),
) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	path = filepath.Clean(path)
	err = watcher.Add(filepath.Dir(path))
	if err != nil {
		watcher.Close()
		return err
	}

	reload := make(chan struct{})
	go scheduleReload(ctx, reload, debounce, callback)
	go handleWatcher(ctx, watcher, path, reload, log)
	return nil
}

func handleWatcher(
	ctx context.Context,
	watcher *fsnotify.Watcher,
	path string,
	reload chan<- struct{},
	log *logging.Logger,
) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write | fsnotify.Remove | fsnotify.Create | fsnotify.Rename) {
				select {
				case reload <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("public paths watcher error: %v\n", err)
		}
	}
}

func scheduleReload(
	ctx context.Context,
	reload <-chan struct{},
	duration time.Duration,
	callback func(),
) {
	var timer *time.Timer = nil
	var c <-chan time.Time = nil
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case <-reload:
			if timer != nil {
				timer.Reset(duration)
			} else {
				timer = time.NewTimer(duration)
				c = timer.C
			}

		case <-c:
			c = nil
			timer = nil
			callback()
		}
	}
}
