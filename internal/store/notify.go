package store

import (
	"sync"
	"time"
)

// notifier coalesces activity changes and delivers them to observers
// at most once per interval.
type notifier struct {
	interval time.Duration

	mu        sync.Mutex
	observers map[int]Observer
	nextID    int
	pending   map[string]Activity
	timer     *time.Timer
	closed    bool
}

func newNotifier(interval time.Duration) *notifier {
	if interval <= 0 {
		interval = DefaultNotifyInterval
	}
	return &notifier{
		interval:  interval,
		observers: make(map[int]Observer),
		pending:   make(map[string]Activity),
	}
}

func (n *notifier) subscribe(o Observer) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.observers[id] = o
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.observers, id)
	}
}

func (n *notifier) add(a Activity) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.pending[a.ID] = a
	if n.timer == nil {
		n.timer = time.AfterFunc(n.interval, n.flush)
	}
}

func (n *notifier) flush() {
	n.mu.Lock()
	n.timer = nil
	if len(n.pending) == 0 {
		n.mu.Unlock()
		return
	}
	changed := make([]Activity, 0, len(n.pending))
	for _, a := range n.pending {
		changed = append(changed, a)
	}
	n.pending = make(map[string]Activity)
	observers := make([]Observer, 0, len(n.observers))
	for _, o := range n.observers {
		observers = append(observers, o)
	}
	n.mu.Unlock()

	SortByStartTime(changed)
	for _, o := range observers {
		o.ActivitiesChanged(changed)
	}
}

func (n *notifier) close() {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.mu.Unlock()

	n.flush()

	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
}
