package parcel

import (
	"errors"
	"log/slog"
	"time"
)

// ClientOption configures a Client.
type ClientOption func(*Client) error

// WithLogger sets a logger for the client. By default, logging is disabled.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithCommandTimeout sets the default deadline for the external compress and
// uncompress tools. A request's own Timeout takes precedence.
func WithCommandTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return errors.New("command timeout must be positive")
		}
		c.timeout = d
		return nil
	}
}

// WithCommandRunner replaces the runner used for legacy-Z files.
func WithCommandRunner(r CommandRunner) ClientOption {
	return func(c *Client) error {
		c.runner = r
		return nil
	}
}

// WithStderrGrace sets how long the default runner keeps draining a
// command's stderr after it exits before giving up on it.
func WithStderrGrace(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.stderrGrace = d
		return nil
	}
}

// WithProgress sets a callback invoked as file content is copied.
func WithProgress(fn ProgressFunc) ClientOption {
	return func(c *Client) error {
		c.progress = fn
		return nil
	}
}
