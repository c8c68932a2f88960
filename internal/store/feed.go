package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// subscription reloads one path whenever it is signalled. Signals coalesce, so a
// burst of writes yields at least one reload that observes the latest state.
type subscription struct {
	path   string
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) trigger() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// feed dispatches path change notifications to the subscriptions watching them.
type feed struct {
	mu     sync.RWMutex
	subs   map[*subscription]struct{}
	logger zerolog.Logger
}

func newFeed(logger zerolog.Logger) *feed {
	return &feed{
		subs:   make(map[*subscription]struct{}),
		logger: logger,
	}
}

// watch registers reload for path and runs it once straight away.
func (f *feed) watch(ctx context.Context, path string, reload func(context.Context) error) func() {
	sub := &subscription{
		path:   path,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	sub.trigger()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case <-sub.signal:
				if err := reload(ctx); err != nil {
					f.logger.Warn().Err(err).Str("path", path).Msg("failed to reload store path")
				}
			}
		}
	}()

	return func() {
		f.mu.Lock()
		delete(f.subs, sub)
		f.mu.Unlock()
		sub.stop()
	}
}

// notify wakes every subscription watching path.
func (f *feed) notify(path string) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.subs {
		if sub.path == path {
			sub.trigger()
		}
	}
}

func (f *feed) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for sub := range f.subs {
		sub.stop()
		delete(f.subs, sub)
	}
}
