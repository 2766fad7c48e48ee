package notify

import (
	"sync"
	"time"
)

// Level is the visual severity of a toast.
type Level string

const (
	LevelInfo    Level = "info"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

const DefaultTTL = 5 * time.Second

// Toast is one transient user-visible notification.
type Toast struct {
	ID        int64     `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Hooks observe toast lifecycle, e.g. to push updates to the UI.
type Hooks struct {
	OnPush    func(Toast)
	OnDismiss func(int64)
}

// Center owns the transient notification queue. Every toast auto-dismisses
// after the configured interval or on explicit dismissal; its timer is
// cancelled deterministically so no callback can reference stale state.
type Center struct {
	ttl   time.Duration
	hooks Hooks

	mu     sync.Mutex
	seq    int64
	active map[int64]*entry
	closed bool
}

type entry struct {
	toast Toast
	timer *time.Timer
}

func NewCenter(ttl time.Duration, hooks Hooks) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{ttl: ttl, hooks: hooks, active: make(map[int64]*entry)}
}

// Push enqueues a notification and arms its auto-dismiss timer.
func (c *Center) Push(level Level, message string) Toast {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Toast{}
	}
	c.seq++
	now := time.Now().UTC()
	t := Toast{
		ID:        c.seq,
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	id := t.ID
	c.active[id] = &entry{
		toast: t,
		timer: time.AfterFunc(c.ttl, func() { c.Dismiss(id) }),
	}
	hook := c.hooks.OnPush
	c.mu.Unlock()

	if hook != nil {
		hook(t)
	}
	return t
}

// Dismiss removes a toast and cancels its timer. Unknown IDs are ignored.
func (c *Center) Dismiss(id int64) {
	c.mu.Lock()
	e, ok := c.active[id]
	if ok {
		e.timer.Stop()
		delete(c.active, id)
	}
	hook := c.hooks.OnDismiss
	c.mu.Unlock()

	if ok && hook != nil {
		hook(id)
	}
}

// Active returns the currently visible toasts in creation order.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Toast, 0, len(c.active))
	for _, e := range c.active {
		out = append(out, e.toast)
	}
	sortToasts(out)
	return out
}

// Close cancels all pending timers. Further pushes are dropped.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, e := range c.active {
		e.timer.Stop()
		delete(c.active, id)
	}
}

func sortToasts(toasts []Toast) {
	for i := 1; i < len(toasts); i++ {
		for j := i; j > 0 && toasts[j].ID < toasts[j-1].ID; j-- {
			toasts[j], toasts[j-1] = toasts[j-1], toasts[j]
		}
	}
}
