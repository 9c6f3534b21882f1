package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.olrik.dev/idlewatch/internal/activity"
	"go.olrik.dev/idlewatch/internal/api"
	"go.olrik.dev/idlewatch/internal/core"
	"go.olrik.dev/idlewatch/internal/platform"
)

const (
	notificationHistorySize = 200
	defaultStreamHistory    = 20
)

// Daemon hosts the activity supervisor behind the control socket and the
// optional HTTP bridge.
type Daemon struct {
	mu           sync.Mutex
	listener     net.Listener
	shutdownOnce sync.Once
	logBroadcast *LogBroadcaster
	logLevel     slog.LevelVar
	events       *NotificationBroadcaster
	supervisor   *activity.Supervisor
	closers      []io.Closer
	httpServer   *http.Server
	httpAddr     string
	reloadMu     sync.Mutex
	startedAt    time.Time
	ctx          context.Context
	cancelFunc   context.CancelFunc
}

// DaemonStatus is the payload of the STATUS command.
type DaemonStatus struct {
	Pid      int               `json:"pid"`
	Version  string            `json:"version"`
	Uptime   string            `json:"uptime"`
	HTTP     string            `json:"http,omitempty"`
	Activity activity.Snapshot `json:"activity"`
}

func New() *Daemon {
	return newDaemon(nil)
}

// newDaemon wires a daemon around sup. A nil supervisor is built from
// core.Config when Run starts, after logging is set up.
func newDaemon(sup *activity.Supervisor) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	historySize := core.DefaultKeyHistorySize
	if core.Config != nil && core.Config.Keyboard.HistorySize > 0 {
		historySize = core.Config.Keyboard.HistorySize
	}
	return &Daemon{
		logBroadcast: NewLogBroadcaster(historySize),
		events:       NewNotificationBroadcaster(notificationHistorySize, nil),
		supervisor:   sup,
		startedAt:    time.Now(),
		ctx:          ctx,
		cancelFunc:   cancel,
	}
}

// newSupervisor builds the engine and its platform adapters from cfg.
// The returned closers release adapter resources on shutdown.
func newSupervisor(cfg *core.Configuration, logger *slog.Logger) (*activity.Supervisor, []io.Closer, error) {
	mode, err := activity.ParseAlertMode(cfg.AlertMode)
	if err != nil {
		return nil, nil, err
	}

	probe := platform.NewIdleProbe(logger)
	opts := activity.Options{
		Logger:              logger,
		Probe:               probe,
		Power:               activity.NewSystemPowerSource(logger),
		InactivityThreshold: cfg.InactivityThreshold,
		AlertMode:           mode,
		AllowedKeys:         cfg.Keyboard.AllowedKeys,
		KeyHistorySize:      cfg.Keyboard.HistorySize,
	}
	if cfg.Pointer.Enabled {
		opts.Cursor = platform.NewCursor(logger)
	}
	if cfg.Keyboard.Enabled {
		opts.KeyHook = platform.NewKeyHook(logger)
	}
	if cfg.Surface.Enabled {
		opts.Surfacer = platform.NewWindowSurfacer(cfg.Surface.Window, cfg.Surface.OnTop, logger)
	}

	return activity.NewSupervisor(opts), []io.Closer{probe}, nil
}

// Run serves the control socket until the daemon is shut down.
func (d *Daemon) Run() error {
	d.setupLogging()
	d.events.logger = slog.Default()

	if d.supervisor == nil {
		sup, closers, err := newSupervisor(core.Config, slog.Default())
		if err != nil {
			return fmt.Errorf("could not create activity supervisor: %w", err)
		}
		d.supervisor = sup
		d.closers = closers
	}

	socketPath := core.GetSocketPath()
	pidFilePath := core.GetPIDFilePath()

	if err := os.MkdirAll(core.Config.ConfigPath, 0o755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	listener, err := listen(socketPath)
	if err != nil {
		d.supervisor.Cleanup()
		return err
	}

	if err := WritePIDFile(pidFilePath); err != nil {
		slog.Warn("Could not write PID file", "path", pidFilePath, "error", err)
	}
	defer os.Remove(pidFilePath)
	defer os.Remove(socketPath)

	d.mu.Lock()
	d.listener = listener
	d.mu.Unlock()
	slog.Info(fmt.Sprintf("Daemon listening on %s", socketPath))

	go d.supervisor.Run(d.ctx)
	go d.events.Pump(d.ctx, d.supervisor.Notifications())

	if core.Config.Autostart {
		d.supervisor.Start()
	}

	if err := d.startHTTP(core.Config.HTTP); err != nil {
		slog.Error("Failed to start HTTP bridge", "error", err)
	}

	// Watch config file for changes
	d.watchConfig()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(shutdownChan)

	go func() {
		select {
		case sig := <-shutdownChan:
			slog.Info("Shutdown signal received", "signal", sig.String())
			d.shutdown()
		case <-d.ctx.Done():
		}
	}()

	// Accept connections in a loop
	for {
		conn, err := listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				slog.Info(fmt.Sprintf("Error accepting connection: %v", err))
			}
			break
		}
		go d.handleConnection(conn)
	}

	d.shutdown()
	return nil
}

// listen creates the control socket, replacing a stale socket file left by
// a daemon that did not exit cleanly.
func listen(socketPath string) (net.Listener, error) {
	listener, err := net.Listen("unix", socketPath)
	if err == nil {
		return listener, nil
	}

	if _, statErr := os.Stat(socketPath); statErr != nil {
		return nil, fmt.Errorf("could not create socket listener: %w", err)
	}

	if conn, dialErr := net.Dial("unix", socketPath); dialErr == nil {
		conn.Close()
		return nil, errors.New("daemon is already running")
	}

	slog.Info(fmt.Sprintf("Removing stale socket file: %s", socketPath))
	if err := os.Remove(socketPath); err != nil {
		return nil, fmt.Errorf("could not remove stale socket: %w", err)
	}

	listener, err = net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("could not create socket listener: %w", err)
	}
	return listener, nil
}

// startHTTP starts the HTTP bridge when a listen address is configured.
func (d *Daemon) startHTTP(cfg core.HTTPConfig) error {
	if cfg.Listen == "" {
		return nil
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}

	srv := api.NewServer(d.supervisor, d.events, slog.Default())
	if cfg.Metrics {
		srv.EnableMetrics()
	}

	d.mu.Lock()
	d.httpServer = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	d.httpAddr = ln.Addr().String()
	httpServer := d.httpServer
	d.mu.Unlock()

	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP bridge stopped", "error", err)
		}
	}()

	slog.Info("HTTP bridge listening", "addr", ln.Addr().String(), "metrics", cfg.Metrics)
	return nil
}

func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}

	parts := strings.Fields(scanner.Text())
	if len(parts) == 0 {
		return
	}
	command, args := strings.ToUpper(parts[0]), parts[1:]

	// VERSION is sent by every client as a liveness check.
	if command != "VERSION" {
		if len(args) > 0 {
			slog.Info(fmt.Sprintf("Executing command: %s %v", command, args))
		} else {
			slog.Info(fmt.Sprintf("Executing command: %s", command))
		}
	}

	var response Response
	switch command {
	case "START":
		d.supervisor.Start()
		response.AddMessage("Activity tracking started", StatusInfo)
		response.AddData(d.supervisor.Snapshot())
	case "STOP":
		d.supervisor.Stop()
		response.AddMessage("Activity tracking stopped", StatusInfo)
		response.AddData(d.supervisor.Snapshot())
	case "PAUSE":
		if err := d.supervisor.Pause(); err != nil {
			response.AddMessage(fmt.Sprintf("Cannot pause: %v", err), StatusError)
		} else {
			response.AddMessage("Activity tracking paused", StatusInfo)
		}
		response.AddData(d.supervisor.Snapshot())
	case "RESUME":
		if err := d.supervisor.Resume(); err != nil {
			response.AddMessage(fmt.Sprintf("Cannot resume: %v", err), StatusError)
		} else {
			response.AddMessage("Activity tracking resumed", StatusInfo)
		}
		response.AddData(d.supervisor.Snapshot())
	case "RESET":
		d.supervisor.Reset()
		response.AddMessage("Activity timestamp reset", StatusInfo)
		response.AddData(d.supervisor.Snapshot())
	case "THRESHOLD":
		response = d.setThreshold(args)
	case "ALERT_MODE":
		response = d.setAlertMode(args)
	case "ACTIVITY":
		response.AddMessage("OK", StatusInfo)
		response.AddData(d.supervisor.Snapshot())
	case "STATUS":
		response = d.getStatus()
	case "VERSION":
		response = d.getVersion()
	case "EVENTS":
		historyLines := defaultStreamHistory
		if len(args) >= 1 {
			if n, err := strconv.Atoi(args[0]); err == nil && n >= 0 {
				historyLines = n
			}
		}
		d.handleEvents(conn, historyLines)
		return // Streams JSON lines instead of a single response
	case "LOGS":
		historyLines := defaultStreamHistory
		showHistory := true
		if len(args) >= 1 {
			if n, err := strconv.Atoi(args[0]); err == nil {
				historyLines = n
			}
			if args[0] == "no_history" || (len(args) >= 2 && args[1] == "no_history") {
				showHistory = false
			}
		}
		d.handleLogs(conn, showHistory, historyLines)
		return // Don't send JSON response
	case "QUIT":
		response.AddMessage("Stopping daemon...", StatusInfo)
		conn.Write([]byte(response.ToJSON()))
		conn.Close()
		slog.Info("Quit command received. Shutting down daemon.")
		d.shutdown()
		return
	default:
		response.AddMessage("Unknown command.", StatusError)
	}
	conn.Write([]byte(response.ToJSON()))
}

func (d *Daemon) setThreshold(args []string) Response {
	response := Response{}
	if len(args) != 1 {
		response.AddMessage("Usage: THRESHOLD <duration|milliseconds>", StatusError)
		return response
	}

	threshold, err := core.ParseThreshold(args[0])
	if err != nil {
		response.AddMessage(err.Error(), StatusError)
		return response
	}
	if err := d.supervisor.SetInactivityThreshold(threshold); err != nil {
		response.AddMessage(err.Error(), StatusError)
		return response
	}

	snap := d.supervisor.Snapshot()
	response.AddMessage(fmt.Sprintf("Inactivity threshold set to %s (system idle after %s)",
		threshold, time.Duration(snap.SystemIdleThresholdMs)*time.Millisecond), StatusInfo)
	response.AddData(snap)
	return response
}

func (d *Daemon) setAlertMode(args []string) Response {
	response := Response{}
	if len(args) != 1 {
		response.AddMessage("Usage: ALERT_MODE <level|edge>", StatusError)
		return response
	}

	mode, err := activity.ParseAlertMode(args[0])
	if err != nil {
		response.AddMessage(err.Error(), StatusError)
		return response
	}
	d.supervisor.SetAlertMode(mode)
	response.AddMessage(fmt.Sprintf("Alert mode set to %s", mode), StatusInfo)
	response.AddData(d.supervisor.Snapshot())
	return response
}

func (d *Daemon) getStatus() Response {
	response := Response{}

	status := DaemonStatus{
		Pid:      os.Getpid(),
		Version:  core.FormatVersion(core.Version),
		Uptime:   time.Since(d.startedAt).Round(time.Second).String(),
		Activity: d.supervisor.Snapshot(),
	}
	// core.Config is replaced by reloads; the bound address is not
	d.mu.Lock()
	status.HTTP = d.httpAddr
	d.mu.Unlock()

	if status.Activity.Tracking {
		response.AddMessage("OK", StatusInfo)
	} else {
		response.AddMessage("Activity tracking is stopped", StatusWarn)
	}
	response.AddData(status)
	return response
}

func (d *Daemon) getVersion() Response {
	response := Response{}
	response.AddMessage("OK", StatusInfo)
	response.AddData(map[string]interface{}{
		"version": core.Version,
		"pid":     os.Getpid(),
	})
	return response
}

// shutdown stops the engine and every server. Safe to call more than once.
func (d *Daemon) shutdown() {
	d.shutdownOnce.Do(func() {
		slog.Info("Executing shutdown sequence...")

		if d.cancelFunc != nil {
			d.cancelFunc()
		}

		d.mu.Lock()
		listener := d.listener
		httpServer := d.httpServer
		d.mu.Unlock()

		if listener != nil {
			listener.Close()
		}

		if httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := httpServer.Shutdown(ctx); err != nil {
				slog.Warn("HTTP bridge did not shut down cleanly", "error", err)
			}
			cancel()
		}

		if d.supervisor != nil {
			d.supervisor.Cleanup()
		}

		for _, c := range d.closers {
			if err := c.Close(); err != nil {
				slog.Debug("Failed to release adapter", "error", err)
			}
		}

		slog.Info("Daemon stopped")
	})
}
