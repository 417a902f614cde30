package observe

import "sync"

// Value holds one piece of published state and fans every change out to its
// subscribers. Subscribers run on the publishing goroutine, after the value
// is stored and in publish order; they must not call Set on the same Value.
type Value[T any] struct {
	mu    sync.RWMutex
	pubMu sync.Mutex
	v     T
	equal func(a, b T) bool

	subs   map[uint64]func(T)
	nextID uint64
}

// NewValue creates a Value that notifies on every Set.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, subs: make(map[uint64]func(T))}
}

// NewComparable creates a Value that skips notification when the new value
// equals the current one.
func NewComparable[T comparable](initial T) *Value[T] {
	val := NewValue(initial)
	val.equal = func(a, b T) bool { return a == b }
	return val
}

func (o *Value[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.v
}

// Set stores v and notifies subscribers. It reports whether a notification
// was sent.
func (o *Value[T]) Set(v T) bool {
	o.pubMu.Lock()
	defer o.pubMu.Unlock()

	o.mu.Lock()
	if o.equal != nil && o.equal(o.v, v) {
		o.mu.Unlock()
		return false
	}
	o.v = v
	subs := make([]func(T), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
	return true
}

// Subscribe registers fn for future changes. The returned cancel func is
// idempotent.
func (o *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

// Watch is like Subscribe but calls fn with the current value first.
func (o *Value[T]) Watch(fn func(T)) (cancel func()) {
	o.pubMu.Lock()
	defer o.pubMu.Unlock()

	cancel = o.Subscribe(fn)
	fn(o.Get())
	return cancel
}
