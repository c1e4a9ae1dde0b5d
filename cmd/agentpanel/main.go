// Package main is the command-line front end of the agent control panel.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"agentpanel/internal/config"
	"agentpanel/internal/configstore"
	"agentpanel/internal/logger"
	"agentpanel/internal/metrics"
	"agentpanel/internal/panel"
	"agentpanel/internal/scheduler"
	"agentpanel/internal/service"
	"agentpanel/internal/supervision"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const (
	defaultSettingsPath = "/home/fpp/media/config/agent-panel.json"
	actionWatch         = "watch"
)

type options struct {
	settingsPath string
	action       string
	sets         []string
	lines        string
	apiBaseURL   string
	token        string
	jsonOutput   bool
	showVersion  bool

	apiBaseURLSet bool
	tokenSet      bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit code: 0 on
// success, 1 when the response carries errors or startup fails, 2 on usage
// errors.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "agentpanel %s (built %s)\n", version, buildTime)
		return 0
	}

	cfg, err := loadSettings(opts.settingsPath)
	if err != nil {
		logFile := config.DefaultConfig().Logging.FilePath
		if cfg != nil {
			logFile = cfg.Logging.FilePath
		}
		return failStartup(stderr, logFile, fmt.Errorf("failed to load settings: %w", err))
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return failStartup(stderr, cfg.Logging.FilePath, fmt.Errorf("failed to initialize logger: %w", err))
	}
	defer logger.Close()

	log := logger.WithComponent("main")
	log.Info().
		Str("version", version).
		Str("settings", opts.settingsPath).
		Str("agent_config", cfg.AgentConfigPath).
		Str("action", opts.action).
		Msg("Starting agentpanel")

	req, err := buildRequest(opts)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	recorder := metrics.NewRecorder()
	p := newPanel(cfg, recorder)
	ctx := context.Background()

	if req.Action == actionWatch {
		if err := watch(ctx, p, cfg, stdout, opts.jsonOutput, recorder); err != nil {
			log.Error().Err(err).Msg("Watch exited with error")
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}

	resp := p.Handle(ctx, req)
	publishMetrics(cfg, recorder, resp.Snapshot)

	if err := render(stdout, resp, opts.jsonOutput); err != nil {
		log.Error().Err(err).Msg("Failed to render response")
		return 1
	}
	if !resp.OK() {
		return 1
	}
	return 0
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("agentpanel", pflag.ContinueOnError)
	fs.StringVarP(&opts.settingsPath, "settings", "c", defaultSettingsPath, "Path to the panel settings file")
	fs.StringVarP(&opts.action, "action", "a", panel.ActionView, "Action: view, save, restart, tail or watch")
	fs.StringArrayVar(&opts.sets, "set", nil, "Config field to save as key=value (repeatable)")
	fs.StringVarP(&opts.lines, "lines", "n", "", "Number of log lines for tail")
	fs.StringVar(&opts.apiBaseURL, "api-base-url", "", "API base URL to save")
	fs.StringVar(&opts.token, "enrollment-token", "", "Enrollment token to save (empty clears it)")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Print the response as JSON")
	fs.BoolVarP(&opts.showVersion, "version", "v", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 && !fs.Changed("action") {
		opts.action = fs.Arg(0)
	}
	opts.apiBaseURLSet = fs.Changed("api-base-url")
	opts.tokenSet = fs.Changed("enrollment-token")
	return opts, nil
}

func buildRequest(opts *options) (panel.Request, error) {
	req := panel.Request{
		Action: strings.ToLower(strings.TrimSpace(opts.action)),
		Lines:  opts.lines,
	}

	fields := make(map[string]string)
	for _, kv := range opts.sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return req, fmt.Errorf("invalid --set %q: want key=value", kv)
		}
		fields[strings.TrimSpace(key)] = value
	}
	if opts.apiBaseURLSet {
		fields[configstore.KeyAPIBaseURL] = opts.apiBaseURL
	}
	if opts.tokenSet {
		fields[configstore.KeyEnrollmentToken] = opts.token
	}
	if len(fields) > 0 {
		if req.Action != panel.ActionSave {
			return req, fmt.Errorf("config fields given for action %q; use --action save", req.Action)
		}
		req.Fields = fields
	}
	return req, nil
}

// loadSettings returns the parsed settings even when they fail validation, so
// the caller can still find the configured log directory.
func loadSettings(path string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	config.ApplyEnv(cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newPanel(cfg *config.Config, recorder *metrics.Recorder) *panel.Panel {
	runner := supervision.NewExecRunner(cfg.CommandTimeout)
	systemd := supervision.NewSystemd(runner, supervision.SystemdOptions{
		Elevate:        cfg.ElevateCommand(os.Geteuid()),
		RestartTimeout: cfg.RestartTimeout,
	})
	fallback := supervision.NewFallback(runner, supervision.NewProcessTable(), supervision.FallbackOptions{
		ProcessName: cfg.ProcessName,
		LogFiles:    cfg.LogFiles,
	})
	sup := supervision.NewSupervisor(supervision.NewDetector(), systemd, fallback)

	return panel.New(
		configstore.New(cfg.AgentConfigPath),
		sup,
		supervision.Installation{UnitDirs: cfg.UnitDirs, BinaryPaths: cfg.BinaryPaths},
		panel.Settings{
			UnitName:          cfg.UnitName,
			FallbackScript:    cfg.FallbackScript,
			DefaultAPIBaseURL: cfg.DefaultAPIBaseURL,
			VersionPaths:      cfg.VersionPaths,
			TailLines:         cfg.TailLines,
			MaxTailLines:      cfg.MaxTailLines,
		},
		panel.WithObserver(recorder),
	)
}

func publishMetrics(cfg *config.Config, recorder *metrics.Recorder, snap *panel.Snapshot) {
	if cfg.MetricsTextfile == "" {
		return
	}
	if snap != nil {
		recorder.SetServiceUp(snap.Running)
	}
	if err := recorder.WriteTextfile(cfg.MetricsTextfile); err != nil {
		log := logger.WithComponent("main")
		log.Warn().Err(err).Str("path", cfg.MetricsTextfile).Msg("Failed to write metrics")
	}
}

// watch prints a snapshot now, after every change to the agent config and on
// every refresh tick until interrupted.
func watch(ctx context.Context, p *panel.Panel, cfg *config.Config, out io.Writer, asJSON bool, recorder *metrics.Recorder) error {
	log := logger.WithComponent("watch")

	changed := make(chan struct{}, 1)
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	fw, err := config.NewFileWatcher(cfg.AgentConfigPath, notify)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	svc := service.New(func(ctx context.Context) error {
		defer fw.Stop()
		if err := fw.Start(); err != nil {
			// Fresh installs have no config directory until the first save.
			log.Warn().Err(err).Str("path", cfg.AgentConfigPath).
				Dur("refresh", cfg.WatchRefresh).
				Msg("Cannot watch agent config, refreshing on timer only")
		}

		// Unit state and heartbeat age change without touching the file.
		refresh := scheduler.New("snapshot-refresh", cfg.WatchRefresh, func(context.Context) { notify() }, nil)
		refresh.Start(ctx)
		defer refresh.Stop()

		for {
			resp := p.Handle(ctx, panel.Request{Action: panel.ActionView})
			publishMetrics(cfg, recorder, resp.Snapshot)
			if err := render(out, resp, asJSON); err != nil {
				return err
			}

			select {
			case <-ctx.Done():
				log.Info().Msg("Watch stopped")
				return nil
			case <-changed:
				log.Debug().Str("path", cfg.AgentConfigPath).Msg("Refreshing snapshot")
			}
		}
	})
	return svc.Run(ctx)
}

// failStartup records err next to the panel log and returns the exit code.
func failStartup(stderr io.Writer, logFile string, err error) int {
	if logFile != "" {
		if path, werr := service.WriteStartupError(filepath.Dir(logFile), err); werr == nil {
			fmt.Fprintf(stderr, "startup error recorded in %s\n", path)
		}
	}
	fmt.Fprintln(stderr, err)
	return 1
}
