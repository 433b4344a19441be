package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ============================================================
// Asset Watcher
// ============================================================

const defaultDebounce = 500 * time.Millisecond

// Reloader - то, что нужно сделать после изменения файла ассета.
type Reloader func(ctx context.Context) error

// AssetWatcher следит за одним файлом. Наблюдается каталог целиком: редакторы
// и экспортёры часто заменяют файл через rename, и наблюдение за самим
// файлом теряется.
type AssetWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	reload   Reloader
	fired    chan struct{}
}

func New(path string, debounce time.Duration, reload Reloader) (*AssetWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve asset path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	if debounce <= 0 {
		debounce = defaultDebounce
	}
	log.Printf("[WATCHER] Watching: %s", abs)
	return &AssetWatcher{
		watcher:  w,
		path:     abs,
		debounce: debounce,
		reload:   reload,
		fired:    make(chan struct{}, 1),
	}, nil
}

// Run обрабатывает события до отмены ctx, затем закрывает fsnotify.
// Серия событий за окно debounce даёт одну перезагрузку.
func (aw *AssetWatcher) Run(ctx context.Context) {
	defer aw.watcher.Close()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[WATCHER] Stopped")
			return

		case event, ok := <-aw.watcher.Events:
			if !ok {
				return
			}
			if !aw.relevant(event) {
				continue
			}
			log.Printf("[WATCHER] %s: %s", event.Op, filepath.Base(event.Name))

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(aw.debounce, func() {
				select {
				case aw.fired <- struct{}{}:
				default:
				}
			})

		case <-aw.fired:
			start := time.Now()
			if err := aw.reload(ctx); err != nil {
				log.Printf("[WATCHER] Reload failed: %v", err)
				continue
			}
			log.Printf("[WATCHER] Reloaded in %v", time.Since(start))

		case err, ok := <-aw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[WATCHER] Error: %v", err)
		}
	}
}

func (aw *AssetWatcher) relevant(event fsnotify.Event) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != aw.path {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename)
}
