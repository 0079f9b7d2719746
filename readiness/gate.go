package readiness

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"
)

const (
	// DefaultInterval is the pause between connection attempts.
	DefaultInterval = time.Second

	// DefaultDialTimeout bounds a single connection attempt.
	DefaultDialTimeout = 2 * time.Second

	// DefaultTimeout is the overall deadline used by the CLI.
	DefaultTimeout = 240 * time.Second
)

type options struct {
	interval    time.Duration
	dialTimeout time.Duration
	logger      *slog.Logger
	dial        func(ctx context.Context, network, address string) (net.Conn, error)
}

// Option configures WaitUntilReady.
type Option func(*options)

// WithInterval sets the pause between connection attempts.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithDialTimeout sets the per-attempt connection timeout.
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.dialTimeout = d
		}
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WaitUntilReady polls host:port until a TCP connection succeeds or timeout elapses.
// It returns ErrNotReady wrapping the last dial error on timeout, or the context's
// error if ctx ends first.
func WaitUntilReady(ctx context.Context, host string, port int, timeout time.Duration, opts ...Option) error {
	o := options{
		interval:    DefaultInterval,
		dialTimeout: DefaultDialTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dial == nil {
		dialer := &net.Dialer{Timeout: o.dialTimeout}
		o.dial = dialer.DialContext
	}

	address := net.JoinHostPort(host, strconv.Itoa(port))
	logger := o.logger.With("component", "readiness", "address", address)
	logger.Info("waiting for service", "timeout", timeout)

	start := time.Now()
	deadline := start.Add(timeout)
	attempts := 0
	var lastErr error

	for {
		attempts++
		dialCtx, cancel := context.WithTimeout(ctx, o.dialTimeout)
		conn, err := o.dial(dialCtx, "tcp", address)
		cancel()
		if err == nil {
			conn.Close()
			logger.Info("service is ready", "attempts", attempts, "elapsed", time.Since(start).Round(time.Millisecond))
			return nil
		}
		lastErr = err
		logger.Debug("service not reachable yet", "attempt", attempts, "err", err)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}

		wait := o.interval
		if wait > remaining {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	logger.Error("service did not become ready", "attempts", attempts, "timeout", timeout)
	return fmt.Errorf("%w: %s after %s: %w", ErrNotReady, address, timeout, lastErr)
}
