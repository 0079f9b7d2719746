package readiness

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

// closedPort returns a port that nothing is listening on.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestWaitUntilReady_ListeningService(t *testing.T) {
	host, port := listen(t)

	err := WaitUntilReady(context.Background(), host, port, time.Second, WithInterval(10*time.Millisecond))
	require.NoError(t, err)
}

func TestWaitUntilReady_TimesOut(t *testing.T) {
	port := closedPort(t)

	start := time.Now()
	err := WaitUntilReady(context.Background(), "127.0.0.1", port, 150*time.Millisecond,
		WithInterval(20*time.Millisecond), WithDialTimeout(50*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWaitUntilReady_BecomesReady(t *testing.T) {
	var calls atomic.Int32
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("connection refused")
		}
		client, server := net.Pipe()
		server.Close()
		return client, nil
	}

	err := WaitUntilReady(context.Background(), "ocr", 8000, time.Second,
		WithInterval(5*time.Millisecond), withDialer(dial))
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitUntilReady_ContextCanceled(t *testing.T) {
	port := closedPort(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitUntilReady(ctx, "127.0.0.1", port, time.Minute, WithInterval(10*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrNotReady)
}

func withDialer(dial func(ctx context.Context, network, address string) (net.Conn, error)) Option {
	return func(o *options) {
		o.dial = dial
	}
}
