package auth

import (
	"sync"

	"github.com/Veraticus/rupeeflow/internal/model"
	"github.com/Veraticus/rupeeflow/internal/service"
)

// watchers is the auth-state stream shared by the providers.
type watchers struct {
	fns    map[uint64]func(*model.User)
	nextID uint64
	mu     sync.Mutex
}

func newWatchers() *watchers {
	return &watchers{fns: make(map[uint64]func(*model.User))}
}

func (w *watchers) add(fn func(*model.User)) service.CancelFunc {
	w.mu.Lock()
	w.nextID++
	id := w.nextID
	w.fns[id] = fn
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.fns, id)
			w.mu.Unlock()
		})
	}
}

// notify calls every watcher synchronously, outside the lock.
func (w *watchers) notify(user *model.User) {
	w.mu.Lock()
	fns := make([]func(*model.User), 0, len(w.fns))
	for _, fn := range w.fns {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}
