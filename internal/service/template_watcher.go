package service

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// templateDebounce coalesces the burst of events an editor save produces.
const templateDebounce = 500 * time.Millisecond

// TemplateWatcher reloads connection templates when the templates file
// changes and emits "templates:changed".
type TemplateWatcher struct {
	svc     *ReportService
	emitter EventEmitter
	path    string

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

func NewTemplateWatcher(svc *ReportService, emitter EventEmitter, path string) *TemplateWatcher {
	return &TemplateWatcher{svc: svc, emitter: emitter, path: path}
}

// Start watches the file's directory, so the file may be created later.
func (w *TemplateWatcher) Start(ctx context.Context) error {
	absPath, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go func() {
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if name, _ := filepath.Abs(event.Name); name != absPath {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(templateDebounce, func() { w.reload(watchCtx) })
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[TEMPLATES] watcher error: %v", err)
			}
		}
	}()

	log.Printf("[TEMPLATES] watching %s", absPath)
	return nil
}

func (w *TemplateWatcher) reload(ctx context.Context) {
	if err := w.svc.ReloadTemplates(); err != nil {
		log.Printf("[TEMPLATES] reload failed, keeping previous list: %v", err)
		return
	}
	log.Printf("[TEMPLATES] reloaded %s", w.path)
	if w.emitter != nil {
		w.emitter.Emit(ctx, "templates:changed", w.svc.Templates())
	}
}

func (w *TemplateWatcher) Stop() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.watcher != nil {
		w.watcher.Close()
		w.watcher = nil
	}
}
