// Package listener wraps the server socket so that a failed accept does not stop the server.
package listener

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"time"
)

const (
	minBackoff = 5 * time.Millisecond
	maxBackoff = time.Second
)

// ResilientListener wraps net.Listener; recoverable accept errors are logged and skipped.
type ResilientListener struct {
	net.Listener
	logger *slog.Logger
	sleep  func(time.Duration)
}

// NewResilientListener wraps listener. A nil logger discards the accept errors.
func NewResilientListener(listener net.Listener, logger *slog.Logger) *ResilientListener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ResilientListener{Listener: listener, logger: logger, sleep: time.Sleep}
}

// Accept retries until a connection arrives or the listener is closed.
// Consecutive failures back off from 5ms up to one second.
func (l *ResilientListener) Accept() (net.Conn, error) {
	var backoff time.Duration
	for {
		conn, err := l.Listener.Accept()
		if err == nil {
			return conn, nil
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, err
		}

		if backoff == 0 {
			backoff = minBackoff
		} else {
			backoff = min(backoff*2, maxBackoff)
		}
		l.logger.Warn("accept failed, connection rejected", "error", err, "retry_in", backoff)
		l.sleep(backoff)
	}
}
