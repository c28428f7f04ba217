// Package probe issues the HTTP health probe: one GET against the
// application's health endpoint on loopback, with a hard deadline. Exit-code
// semantics (0 healthy, 1 not) live in the CLI layer.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the immutable probe configuration, resolved once at process
// start. Port comes from the PORT environment variable when set, otherwise
// the supplied default.
type Config struct {
	Port     int
	Endpoint string
	Timeout  time.Duration
}

// Resolve loads a .env file when present, applies the PORT override, and
// returns the resolved configuration.
func Resolve(defaultPort int, endpoint string, timeout time.Duration) Config {
	// Optional; absence of a .env file is the normal case.
	_ = godotenv.Load()

	port := defaultPort
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 || p > 65535 {
			slog.Warn("Ignoring invalid PORT override", "value", v, "default", defaultPort)
		} else {
			port = p
		}
	}

	return Config{
		Port:     port,
		Endpoint: endpoint,
		Timeout:  timeout,
	}
}

// URL builds the probe target. The host is always localhost: the probe
// checks the loopback contract, never the container's external address.
func (c Config) URL() string {
	return fmt.Sprintf("http://localhost:%d%s", c.Port, c.Endpoint)
}

// Prober is the contract the health monitor schedules against.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPProber probes over HTTP. A 2xx or 3xx response within the timeout is
// success; anything else, including connection refused and deadline
// exceeded, is failure.
type HTTPProber struct {
	cfg    Config
	client *http.Client
}

// NewHTTPProber creates a prober for the given configuration.
func NewHTTPProber(cfg Config) *HTTPProber {
	return &HTTPProber{
		cfg:    cfg,
		client: &http.Client{},
	}
}

// Probe issues one GET against the configured endpoint.
func (p *HTTPProber) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL(), nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return nil
	}
	return fmt.Errorf("unhealthy response: %s", resp.Status)
}
