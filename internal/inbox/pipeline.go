package inbox

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Filter passes only .zip files whose name matches none of the ignore
// patterns.
func Filter(inCh <-chan Event, ignoreList []string) <-chan Event {
	outCh := make(chan Event, cap(inCh))

	go func() {
		defer close(outCh)

		for event := range inCh {
			if shouldIgnore(event.Path, ignoreList) {
				continue
			}
			outCh <- event
		}
	}()

	return outCh
}

func shouldIgnore(path string, ignoreList []string) bool {
	name := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(name), ".zip") {
		return true
	}

	for _, pattern := range ignoreList {
		matched, err := filepath.Match(pattern, name)
		if err == nil && matched {
			return true
		}
	}

	return false
}

type pending struct {
	event Event
	timer clockwork.Timer
}

// Debounce emits an event for a path only once no further event for that
// path has arrived for delay. A browser or copy tool writing an archive in
// several chunks therefore yields a single event. Pending events are flushed
// when inCh closes.
func Debounce(inCh <-chan Event, clock clockwork.Clock, delay time.Duration) <-chan Event {
	outCh := make(chan Event, max(cap(inCh), 1))

	go func() {
		var mu sync.Mutex
		waiting := make(map[string]*pending)
		closed := false

		for event := range inCh {
			path := event.Path

			mu.Lock()
			if p, ok := waiting[path]; ok {
				p.timer.Stop()
			}

			p := &pending{event: event}
			waiting[path] = p
			p.timer = clock.AfterFunc(delay, func() {
				mu.Lock()
				defer mu.Unlock()

				if closed || waiting[path] != p {
					return
				}
				delete(waiting, path)
				outCh <- p.event
			})
			mu.Unlock()
		}

		mu.Lock()
		defer mu.Unlock()

		closed = true
		for _, p := range waiting {
			p.timer.Stop()
			outCh <- p.event
		}
		close(outCh)
	}()

	return outCh
}
