package statsd

import "time"

// Sink describes the minimal interface required to emit StatsD-style metrics.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Nop discards every metric. It stands in when metrics are disabled so
// callers never nil-check their sink.
type Nop struct{}

var _ Sink = Nop{}

func (Nop) Count(string, int64, map[string]string)          {}
func (Nop) Gauge(string, float64, map[string]string)        {}
func (Nop) Timing(string, time.Duration, map[string]string) {}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}

// WithTags returns a Sink that adds tags to every metric before passing it to
// s. Per-call tags win on key collisions.
func WithTags(s Sink, tags map[string]string) Sink {
	base := cloneTags(tags)
	if len(base) == 0 {
		return OrNop(s)
	}
	return &tagged{next: OrNop(s), tags: base}
}

type tagged struct {
	next Sink
	tags map[string]string
}

func (t *tagged) merge(local map[string]string) map[string]string {
	out := make(map[string]string, len(t.tags)+len(local))
	for k, v := range t.tags {
		out[k] = v
	}
	for k, v := range local {
		out[k] = v
	}
	return out
}

func (t *tagged) Count(name string, value int64, tags map[string]string) {
	t.next.Count(name, value, t.merge(tags))
}

func (t *tagged) Gauge(name string, value float64, tags map[string]string) {
	t.next.Gauge(name, value, t.merge(tags))
}

func (t *tagged) Timing(name string, value time.Duration, tags map[string]string) {
	t.next.Timing(name, value, t.merge(tags))
}
