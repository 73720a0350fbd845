// Package main provides the entry point for the batfi CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/rdegges/batfi/internal/estimate"
	"github.com/rdegges/batfi/internal/metrics"
	"github.com/rdegges/batfi/internal/power"
	"github.com/rdegges/batfi/internal/server"
	"github.com/rdegges/batfi/internal/ui"
)

// These variables are set at build time via ldflags
var (
	version   = "dev"
	buildTime = "unknown"
)

var log = logrus.New()

type Args struct {
	Battery     string        `arg:"-b,--battery,env:BATFI_BATTERY" placeholder:"NAME" help:"battery to monitor, e.g. BAT0 (default: first found)"`
	JSON        bool          `arg:"-j,--json,env:BATFI_JSON" help:"print one JSON snapshot per update instead of the interactive view"`
	Once        bool          `arg:"-o,--once,env:BATFI_ONCE" help:"read once and exit"`
	Interval    time.Duration `arg:"-i,--interval,env:BATFI_INTERVAL" default:"2s" help:"time between battery reads"`
	History     time.Duration `arg:"--history,env:BATFI_HISTORY" default:"5m" help:"how long to keep power history"`
	Profile     string        `arg:"-p,--profile,env:BATFI_PROFILE" default:"responsive" help:"smoothing profile: responsive, balanced or stable"`
	Duration    time.Duration `arg:"-d,--duration,env:BATFI_DURATION" help:"stop after this long (0 runs until interrupted)"`
	MetricsAddr string        `arg:"--metrics-addr,env:BATFI_METRICS_ADDR" help:"serve /metrics and /snapshot on this address"`
	LogLevel    string        `arg:"-l,--log-level,env:BATFI_LOG_LEVEL" default:"info" help:"set the logging level (debug, info, warn, error)"`
	LogFile     string        `arg:"--log-file,env:BATFI_LOG_FILE" help:"write logs here; the interactive view discards them otherwise"`
}

func (Args) Version() string {
	if buildTime != "unknown" {
		return fmt.Sprintf("batfi %s (built %s)", version, buildTime)
	}
	return "batfi " + version
}

func (Args) Description() string {
	return "Battery monitor with smoothed time-to-empty and time-to-full estimates."
}

func procArgs() Args {
	var args Args
	p := arg.MustParse(&args)
	if args.Interval <= 0 {
		p.Fail("--interval must be positive")
	}
	if args.History < args.Interval {
		p.Fail("--history must be at least one interval")
	}
	if args.Duration < 0 {
		p.Fail("--duration cannot be negative")
	}
	return args
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		log.Warn("Unknown log level, defaulting to info")
	}
}

type customFormatter struct{}

func (f *customFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return []byte(fmt.Sprintf("[%s] %s\n", strings.ToUpper(entry.Level.String()), entry.Message)), nil
}

func main() {
	if err := runMain(); err != nil {
		log.Fatal(err.Error())
	}
}

func runMain() error {
	log.SetFormatter(new(customFormatter))
	log.SetOutput(os.Stderr)
	args := procArgs()
	setLogLevel(args.LogLevel)

	interactive := !args.JSON && !args.Once
	if args.LogFile != "" {
		f, err := os.OpenFile(args.LogFile, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
	} else if interactive {
		log.SetOutput(io.Discard)
	}

	log.Debug("Running version: ", version)

	cfg, err := estimatorConfig(args)
	if err != nil {
		return err
	}
	est, err := estimate.New(cfg, log)
	if err != nil {
		return err
	}

	monitor := power.NewMonitor(power.Options{Battery: args.Battery, Logger: log})
	if !monitor.IsSupported() {
		if args.Battery != "" {
			return fmt.Errorf("battery %q not found (monitor %s): %w", args.Battery, monitor.Name(), power.ErrNoBattery)
		}
		return fmt.Errorf("battery monitoring is not supported here (monitor %s): %w", monitor.Name(), power.ErrNoBattery)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if args.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, args.Duration)
		defer cancel()
	}

	p := newPipeline(monitor, est, log)

	if args.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		p.metrics = metrics.New(reg)
		p.server = server.New(args.MetricsAddr, reg, log)

		errCh := make(chan error, 1)
		go func() { errCh <- p.server.Run(ctx) }()
		defer func() {
			stop()
			if err := <-errCh; err != nil {
				log.Error(err)
			}
		}()
	}

	if !interactive {
		return runHeadless(ctx, p, headlessOptions{
			Interval: args.Interval,
			Once:     args.Once,
			JSON:     args.JSON,
			Out:      os.Stdout,
		})
	}

	uiCfg := ui.DefaultConfig(monitor, est)
	uiCfg.RefreshInterval = args.Interval
	uiCfg.OnEstimate = p.publish
	program := tea.NewProgram(ui.NewModel(uiCfg), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running battery monitor: %w", err)
	}
	return nil
}

// estimatorConfig applies the profile and history flags.
func estimatorConfig(args Args) (estimate.Config, error) {
	cfg, err := estimate.ProfileConfig(args.Profile)
	if err != nil {
		return estimate.Config{}, err
	}
	cfg.HistoryWindow = args.History
	cfg.HistorySize = max(2, int(args.History/args.Interval)+1)
	return cfg, cfg.Validate()
}
