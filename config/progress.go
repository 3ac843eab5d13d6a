package config

import "time"

const (
	defaultReconnectBase = 3 * time.Second
	defaultReconnectMax  = time.Minute
	defaultBuffer        = 64
)

// ProgressConfig tunes the progress channel and the per-user reconcilers.
type ProgressConfig struct {
	// ReconnectBase is the first reconnect delay; it doubles up to ReconnectMax.
	ReconnectBase time.Duration `env:"RECONNECT_BASE" envDefault:"3s"`
	ReconnectMax  time.Duration `env:"RECONNECT_MAX"  envDefault:"1m"`
	// PingInterval enables keepalive pings on the channel; 0 disables them.
	PingInterval time.Duration `env:"PING_INTERVAL" envDefault:"30s"`
	// IdleGrace keeps a reconciler mounted after its last view leaves.
	IdleGrace time.Duration `env:"IDLE_GRACE" envDefault:"2m"`
	// StallAfter flags in-flight jobs with no event for this long; 0 disables it.
	StallAfter       time.Duration `env:"STALL_AFTER"       envDefault:"10m"`
	SubscriberBuffer int           `env:"SUBSCRIBER_BUFFER" envDefault:"64"`
}

// Sanitize clamps the tuning values to sane bounds.
func (c *ProgressConfig) Sanitize() {
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = defaultReconnectBase
	}
	if c.ReconnectMax < c.ReconnectBase {
		c.ReconnectMax = max(c.ReconnectBase, defaultReconnectMax)
	}
	if c.PingInterval < 0 {
		c.PingInterval = 0
	}
	if c.IdleGrace < 0 {
		c.IdleGrace = 0
	}
	if c.StallAfter < 0 {
		c.StallAfter = 0
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = defaultBuffer
	}
}
