package httpx

import "sync"

// Draining tells long-lived handlers that the server is going away. Hijacked
// connections such as the jobs stream are not tracked by http.Server.Shutdown,
// so they watch this signal instead of their request context.
type Draining struct {
	once sync.Once
	ch   chan struct{}
}

// NewDraining returns a signal that has not fired yet.
func NewDraining() *Draining {
	return &Draining{ch: make(chan struct{})}
}

// Start fires the signal. Further calls do nothing. Safe on a nil receiver.
func (d *Draining) Start() {
	if d == nil {
		return
	}
	d.once.Do(func() { close(d.ch) })
}

// Done is closed once Start has been called. A nil Draining never fires.
func (d *Draining) Done() <-chan struct{} {
	if d == nil {
		return nil
	}
	return d.ch
}

// Active reports whether Start has been called.
func (d *Draining) Active() bool {
	select {
	case <-d.Done():
		return true
	default:
		return false
	}
}
