// Package main provides the radio player entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/19radio/internal/api/connect"
	"github.com/osa030/19radio/internal/app/history"
	"github.com/osa030/19radio/internal/app/playback"
	"github.com/osa030/19radio/internal/app/player"
	"github.com/osa030/19radio/internal/app/visual"
	"github.com/osa030/19radio/internal/infra/audio"
	"github.com/osa030/19radio/internal/infra/config"
	"github.com/osa030/19radio/internal/infra/logger"
	"github.com/osa030/19radio/internal/ui"
)

var (
	app        = kingpin.New("19radio", "19radio internet radio player")
	configPath = app.Flag("config", "Path to config file").Default("config/radio.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout, discarded while the TUI runs)").String()
	listen     = app.Flag("listen", "Control server address (overrides config)").String()
	noTUI      = app.Flag("no-tui", "Run headless, controlled over RPC only").Bool()
	noServer   = app.Flag("no-server", "Do not start the control server").Bool()
	autoplay   = app.Flag("play", "Start playing immediately").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	if *noTUI && *noServer {
		fmt.Fprintln(os.Stderr, "--no-tui and --no-server leave no way to control the player")
		os.Exit(2)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if !*noTUI {
		// The TUI owns the terminal
		loggerConfig.Output = "discard"
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
	}
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Server.Addr = *listen
	}
	if *autoplay {
		cfg.Player.Autoplay = true
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main player logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	p, err := newPlayer(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start player")
	}
	if cfg.Player.Autoplay {
		if err := p.Play(); err != nil {
			return errors.Wrap(err, "failed to start playback")
		}
	}

	// Channel to capture server errors
	serverErrCh := make(chan error, 1)

	var server *http.Server
	if !*noServer {
		server = newServer(cfg, p)
		go func() {
			zlog.Info().Msgf("Starting control server: addr=%s", cfg.Server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrCh <- err
			}
		}()
		executeHooks(cfg.Server.Hooks.OnStarted, "on_started")
	}

	// Run the TUI, if any
	uiDone := make(chan error, 1)
	uiRunning := !*noTUI
	if uiRunning {
		go func() {
			uiDone <- ui.Run(p)
		}()
	}

	// Wait for shutdown signal, TUI exit, or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-uiDone:
		uiRunning = false
		if err != nil {
			runErr = errors.Wrap(err, "tui error")
		}
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "server error")
	}

	// Close player first to terminate active streams
	if err := p.Close(); err != nil {
		zlog.Warn().Msgf("Failed to close player: %v", err)
	}

	// The TUI quits once the player is closed; wait so the terminal is restored
	if uiRunning {
		<-uiDone
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Msgf("Failed to shutdown server: %v", err)
		}
		executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")
	}

	zlog.Info().Msg("Player stopped")
	return runErr
}

// newPlayer assembles the stream handle, controller, waveform driver and
// history into a player manager.
func newPlayer(cfg *config.Config) (*player.Manager, error) {
	source := audio.NewHTTP(audio.HTTPConfig{
		URL:                   cfg.Stream.URL,
		UserAgent:             cfg.Stream.UserAgent,
		ConnectTimeout:        cfg.ConnectTimeout(),
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout(),
	})
	handle := audio.NewHandle(source, audio.NewSpeakerOutput(), audio.WithVolume(cfg.Volume()))

	ctrl := playback.NewController(handle, playback.Config{
		InitialVolume: cfg.Volume(),
	})

	driver, err := visual.NewDriver(visual.Config{
		Bars:      cfg.Visual.Bars,
		Min:       cfg.Visual.Min,
		Max:       cfg.Visual.Max,
		DecayStep: cfg.Visual.DecayStep,
		Interval:  cfg.TickInterval(),
	})
	if err != nil {
		_ = ctrl.Close()
		return nil, errors.Wrap(err, "failed to create waveform driver")
	}

	return player.NewManager(ctrl, driver, history.New(cfg.History.Size), cfg.Station()), nil
}

// newServer creates the control server with h2c (HTTP/2 cleartext) support.
func newServer(cfg *config.Config, p *player.Manager) *http.Server {
	mux := http.NewServeMux()

	path, handler := apiconnect.NewPlayerServiceHandler(
		apiconnect.NewPlayerService(p),
		connect.WithInterceptors(apiconnect.NewControlAuthInterceptor(cfg)),
	)
	mux.Handle(path, handler)

	return &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		cmd := exec.Command("sh", "-c", hook)
		if *noTUI {
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
		}

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
