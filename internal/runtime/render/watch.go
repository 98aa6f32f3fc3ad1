package render

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates the cached templates of dir whenever a file in it is
// written, created, renamed or removed. onChange, when non-nil, is called
// after each invalidation; watcher errors are passed to onError. Call the
// returned stop function to release the watcher.
func (r *TemplateRenderer) Watch(dir string, onChange func(fsnotify.Event), onError func(error)) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("template watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("template watcher add %s: %w", dir, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
					r.Invalidate(dir)
					if onChange != nil {
						onChange(ev)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if onError != nil {
					onError(err)
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}, nil
}
