package daemon

import (
	"bufio"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
	"go.olrik.dev/idlewatch/internal/core"
)

// LogBroadcaster streams formatted daemon log lines to connected clients.
type LogBroadcaster = Broadcaster[string]

// NewLogBroadcaster creates a new log broadcaster with the specified history size
func NewLogBroadcaster(historySize int) *LogBroadcaster {
	return NewBroadcaster[string](historySize)
}

// LogWriter is an io.Writer that broadcasts log messages
type LogWriter struct {
	broadcaster *LogBroadcaster
}

func (lw *LogWriter) Write(p []byte) (n int, err error) {
	lw.broadcaster.Broadcast(string(p))
	return len(p), nil
}

// levelFor maps the configured verbosity onto a slog level.
func levelFor(verbose int) slog.Level {
	if verbose >= 1 {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// newLogHandler builds the tint handler writing to stderr and the
// broadcaster. Colour is only used when stderr is a terminal.
func newLogHandler(stderr *os.File, broadcaster *LogBroadcaster, level slog.Leveler) slog.Handler {
	multiWriter := io.MultiWriter(stderr, &LogWriter{broadcaster: broadcaster})

	return tint.NewHandler(multiWriter, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !term.IsTerminal(int(stderr.Fd())),
	})
}

// setupLogging configures the daemon's logger to broadcast to connected
// clients. The level follows core.Config.Verbose across reloads.
func (d *Daemon) setupLogging() {
	verbose := 0
	if core.Config != nil {
		verbose = core.Config.Verbose
	}
	d.logLevel.Set(levelFor(verbose))
	slog.SetDefault(slog.New(newLogHandler(os.Stderr, d.logBroadcast, &d.logLevel)))
}

// handleLogs streams daemon logs to the client until they disconnect
func (d *Daemon) handleLogs(conn net.Conn, showHistory bool, historyLines int) {
	defer conn.Close()

	if !showHistory {
		historyLines = 0
	}
	logChan, history := d.logBroadcast.SubscribeWithHistory(historyLines)
	defer d.logBroadcast.Unsubscribe(logChan)

	initialMsg := "Connected to idlewatch daemon logs. Press Ctrl+C to exit.\n"
	if _, err := conn.Write([]byte(initialMsg)); err != nil {
		slog.Warn("Failed to send initial message to logs client", "error", err)
		return
	}

	for _, msg := range history {
		if _, err := conn.Write([]byte(msg)); err != nil {
			return
		}
	}

	done := clientGone(conn)
	for {
		select {
		case logMsg, ok := <-logChan:
			if !ok {
				return
			}
			if _, err := conn.Write([]byte(logMsg)); err != nil {
				return
			}
		case <-done:
			return
		case <-d.ctx.Done():
			return
		}
	}
}

// clientGone closes the returned channel once the client hangs up.
func clientGone(conn net.Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		io.Copy(io.Discard, bufio.NewReader(conn))
	}()
	return done
}
