package config

import (
	"strings"
	"time"
)

// DriveConfig configures the Google Drive v3 client.
type DriveConfig struct {
	// Endpoint overrides the Drive API base URL (tests, proxies). Empty uses Google.
	Endpoint string `env:"ENDPOINT"`
}

// Sanitize trims the endpoint.
func (c *DriveConfig) Sanitize() {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
}

// JobServerConfig locates the remote summarization job server.
type JobServerConfig struct {
	URL     string        `env:"URL"     envDefault:"http://localhost:8051"`
	WSURL   string        `env:"WS_URL"  envDefault:"ws://localhost:8051/progress"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Sanitize trims URLs and restores the default timeout.
func (c *JobServerConfig) Sanitize() {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	c.WSURL = strings.TrimSpace(c.WSURL)
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}
