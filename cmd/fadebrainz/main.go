package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("fadebrainz v%s\n", version)
	fmt.Println("Curve-based volume fade daemon for WebSocket gain servers")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  fadebrainz [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that fades an audio sink's gain smoothly between levels using a")
	fmt.Println("  velocity-parameterized exponential curve, sampled at a fixed update rate.")
	fmt.Println("  Fades are requested over a Unix-socket IPC interface (see fadectl) or by")
	fmt.Println("  media keys on Linux input devices.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (flags override file values)")
	fmt.Println()
	fmt.Println("  -gain-ws-url string")
	fmt.Println("        Gain server websocket URL (default \"ws://127.0.0.1:1234\")")
	fmt.Println()
	fmt.Println("  -gain-ws-timeout-ms int")
	fmt.Printf("        Timeout for websocket responses in ms (default %d)\n", defaultReadTimeoutMS)
	fmt.Println()
	fmt.Println("  -fade-duration float")
	fmt.Printf("        Default fade duration in seconds (default %.1f)\n", defaultDurationSec)
	fmt.Println()
	fmt.Println("  -fade-velocity float")
	fmt.Printf("        Curve velocity; 0 is near-linear (default %.1f)\n", defaultVelocity)
	fmt.Println()
	fmt.Println("  -fade-update-hz float")
	fmt.Printf("        Gain alterations per second during a fade (default %.0f)\n", defaultUpdateHz)
	fmt.Println()
	fmt.Println("  -input-device string")
	fmt.Println("        Linux input event device for media keys (e.g. /dev/input/event6)")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Unix domain socket path for IPC (default \"/tmp/fadebrainz.sock\")")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start daemon with default settings")
	fmt.Println("  fadebrainz")
	fmt.Println()
	fmt.Println("  # Slow, gentle fades against a remote gain server")
	fmt.Println("  fadebrainz -gain-ws-url ws://192.168.1.100:1234 -fade-duration 6 -fade-velocity 1")
	fmt.Println()
	fmt.Println("  # Request a fade from another shell")
	fmt.Println("  fadectl fade-out -duration 2")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - The gain server must expose a websocket gain control (SetGain/GetGain)")
	fmt.Println("  - Input devices require read access (run as root or join the 'input' group)")
	fmt.Println("  - A new fade request supersedes any fade already in flight")
	fmt.Println()
}

func main() {
	// Check for version/help flags early
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	// Parse command-line flags
	var (
		configPath    = flag.String("config", "", "Path to YAML config file")
		gainWsUrl     = flag.String("gain-ws-url", "ws://127.0.0.1:1234", "Gain server websocket URL")
		gainWsTimeout = flag.Int("gain-ws-timeout-ms", defaultReadTimeoutMS, "Timeout in milliseconds for reading websocket responses")
		fadeDuration  = flag.Float64("fade-duration", defaultDurationSec, "Default fade duration in seconds")
		fadeVelocity  = flag.Float64("fade-velocity", defaultVelocity, "Curve velocity (0 = near-linear)")
		fadeUpdateHz  = flag.Float64("fade-update-hz", defaultUpdateHz, "Gain alterations per second during a fade")
		inputDevice   = flag.String("input-device", "", "Linux input event device for media keys")
		ipcSocketPath = flag.String("ipc-socket", "/tmp/fadebrainz.sock", "Unix domain socket path for IPC")
		logLevelStr   = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		showVersion   = flag.Bool("version", false, "Print version and exit")
		showHelp      = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Config file first, then explicit flags override it.
	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var overrides FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "gain-ws-url":
			overrides.GainWsURL = gainWsUrl
		case "gain-ws-timeout-ms":
			overrides.GainTimeoutMS = gainWsTimeout
		case "fade-duration":
			overrides.FadeDurationSec = fadeDuration
		case "fade-velocity":
			overrides.FadeVelocity = fadeVelocity
		case "fade-update-hz":
			overrides.FadeUpdateHz = fadeUpdateHz
		case "input-device":
			overrides.InputDevice = inputDevice
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocketPath
		case "log-level":
			overrides.LogLevel = logLevelStr
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	// Connect to the gain server
	client, err := NewGainServerClient(cfg.GainServer.WsURL, logger, cfg.GainServer.TimeoutMS)
	if err != nil {
		logger.Error("failed to connect to gain server", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	// Log the starting gain; FadeIn/FadeOut query it again per fade.
	if gain, err := client.GetGain(); err != nil {
		logger.Warn("could not get initial gain", "error", err)
	} else {
		logger.Info("gain server ready", "gain", gain)
	}

	// Fade engine
	fader := NewFader(client, NewTickerSampler(), logger)
	fader.SetUpdateRate(cfg.Fade.UpdateHz)
	defaults := FadeDefaults{
		DurationSec: cfg.Fade.DurationSec,
		Velocity:    cfg.Fade.Velocity,
	}

	// Open input devices (optional)
	var deviceFiles []*os.File
	for _, dev := range cfg.Input.Devices {
		f, err := os.Open(dev)
		if err != nil {
			logger.Error("failed to open input device", "device", dev, "error", err, "tip", "run as root or add user to 'input' group")
			os.Exit(1)
		}
		defer f.Close()
		deviceFiles = append(deviceFiles, f)
	}

	// Handle shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Action channel - central command bus
	actions := make(chan Action, 64)

	g, ctx := errgroup.WithContext(ctx)

	// Daemon brain: sole owner of the Fader.
	g.Go(func() error {
		runDaemon(ctx, actions, fader, client, defaults, logger)
		return nil
	})

	// IPC server
	g.Go(func() error {
		return runIPCServer(ctx, cfg.IPC.SocketPath, actions, logger)
	})

	// Input readers (not in the group: blocking device reads only unblock
	// when the process exits; errors surface via readErr)
	events := make(chan inputEvent, 64)
	readErr := make(chan error, 1)
	if len(deviceFiles) > 0 {
		startInputReaders(deviceFiles, events, readErr)
	}

	logger.Debug("starting fadebrainz", "version", version)
	logger.Info("listening",
		"ipc", cfg.IPC.SocketPath,
		"gain_ws", cfg.GainServer.WsURL,
		"update_rate_hz", cfg.Fade.UpdateHz,
		"fade_duration_sec", cfg.Fade.DurationSec,
		"fade_velocity", cfg.Fade.Velocity,
		"input_devices", len(deviceFiles))

	// Main event loop: shutdown, input errors, and media-key translation.
	// Everything stateful runs in the daemon brain.
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			if err := g.Wait(); err != nil {
				logger.Error("shutdown error", "error", err)
			}
			return

		case err := <-readErr:
			logger.Error("input reader stopped", "error", err)
			stop()

		case ev := <-events:
			if act, ok := translateKeyEvent(ev); ok {
				actions <- act
			}
		}
	}
}
