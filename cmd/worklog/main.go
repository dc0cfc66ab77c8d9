// Command worklog records which application has focus and summarizes the recorded work.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	goruntime "runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/hylla/worklog/internal/adapters/capture"
	"github.com/hylla/worklog/internal/adapters/llm"
	"github.com/hylla/worklog/internal/adapters/ocr"
	"github.com/hylla/worklog/internal/adapters/probe"
	"github.com/hylla/worklog/internal/adapters/server/common"
	"github.com/hylla/worklog/internal/adapters/storage/jsonfile"
	"github.com/hylla/worklog/internal/adapters/storage/sqlite"
	"github.com/hylla/worklog/internal/app"
	"github.com/hylla/worklog/internal/config"
	"github.com/hylla/worklog/internal/platform"
	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

const defaultAppName = platform.DefaultAppName

// Environment overrides resolved before flags are applied.
const (
	envConfig  = "WORKLOG_CONFIG"
	envDataDir = "WORKLOG_DATA_DIR"
	envAppName = "WORKLOG_APP_NAME"
	envDevMode = "WORKLOG_DEV_MODE"
)

// Process-level collaborators swapped out by tests.
var (
	probeRunner     probe.Runner   = probe.ExecRunner
	captureRunner   capture.Runner = capture.ExecRunner
	copyToClipboard                = clipboard.WriteAll
	markdownStyle                  = "auto"
	now                            = time.Now
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := fang.Execute(ctx, root, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// run executes one command line without the fang presentation layer.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SilenceUsage = true
	root.SilenceErrors = true
	return root.ExecuteContext(ctx)
}

// rootOptions holds persistent flag state shared by every command.
type rootOptions struct {
	configPath string
	dataDir    string
	appName    string
	devMode    bool
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	opts := &rootOptions{stdout: stdout, stderr: stderr, appName: defaultAppName}
	if envApp := strings.TrimSpace(os.Getenv(envAppName)); envApp != "" {
		opts.appName = envApp
	}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv(envDevMode); ok {
		defaultDevMode = envDev
	}

	root := &cobra.Command{
		Use:           "worklog",
		Short:         "Record focused windows and summarize your work",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dataDir, "data-dir", "", "override the data directory")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		runCmd(opts),
		summarizeCmd(opts),
		activitiesCmd(opts),
		summariesCmd(opts),
		statsCmd(opts),
		cleanupCmd(opts),
		configCmd(opts),
		pathsCmd(opts),
	)
	return root
}

// resolvedPaths applies env and flag overrides to the platform paths.
type resolvedPaths struct {
	platform.Paths
	ConfigPath string
}

func (o *rootOptions) resolvePaths() (resolvedPaths, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: o.appName,
		DevMode: o.devMode,
	})
	if err != nil {
		return resolvedPaths{}, err
	}
	out := resolvedPaths{Paths: paths, ConfigPath: paths.ConfigPath}

	switch {
	case strings.TrimSpace(o.configPath) != "":
		out.ConfigPath = strings.TrimSpace(o.configPath)
	case strings.TrimSpace(os.Getenv(envConfig)) != "":
		out.ConfigPath = strings.TrimSpace(os.Getenv(envConfig))
	}
	out.LocalConfigPath = config.LocalPath(out.ConfigPath)

	switch {
	case strings.TrimSpace(o.dataDir) != "":
		out.DataDir = strings.TrimSpace(o.dataDir)
	case strings.TrimSpace(os.Getenv(envDataDir)) != "":
		out.DataDir = strings.TrimSpace(os.Getenv(envDataDir))
	}
	return out, nil
}

// loadConfig resolves paths and loads the merged configuration.
func (o *rootOptions) loadConfig() (resolvedPaths, config.Config, error) {
	paths, err := o.resolvePaths()
	if err != nil {
		return resolvedPaths{}, config.Config{}, err
	}
	cfg, err := config.Load(paths.ConfigPath, config.Default(paths.DataDir))
	if err != nil {
		return resolvedPaths{}, config.Config{}, fmt.Errorf("load config %q: %w", paths.ConfigPath, err)
	}
	return paths, cfg, nil
}

// worklogRuntime is the fully wired process state behind one command.
type worklogRuntime struct {
	paths        resolvedPaths
	cfg          config.Config
	logger       *runtimeLogger
	repo         app.Repository
	recognitions *ocr.Store
	pipeline     *app.Pipeline
	service      *common.AppServiceAdapter
	closers      []func() error
}

// openRuntime wires config, logging, storage, adapters, and the pipeline. quiet mutes the console
// log sink so command output stays clean; the file sink still records events.
func (o *rootOptions) openRuntime(quiet bool) (*worklogRuntime, error) {
	paths, cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := newRuntimeLogger(o.stderr, o.appName, paths.DataDir, cfg.Logging, now)
	if err != nil {
		return nil, err
	}
	rt := &worklogRuntime{paths: paths, cfg: cfg, logger: logger, closers: []func() error{logger.Close}}
	if quiet {
		logger.SetConsoleEnabled(false)
	}

	repo, closeRepo, err := openRepository(cfg, o.appName)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.repo = repo
	if closeRepo != nil {
		rt.closers = append(rt.closers, closeRepo)
	}
	rt.recognitions = ocr.NewStore(filepath.Join(cfg.Storage.Dir, ocr.DirName))

	clock := app.Clock(now)
	idGen := newID
	loc := time.Local

	summarizer := app.NewSummarizer(
		repo,
		llm.New(llm.Config{
			BaseURL: cfg.API.BaseURL,
			APIKey:  cfg.API.APIKey,
			Timeout: cfg.APITimeout(),
		}),
		idGen,
		clock,
		app.SummarizerConfig{
			LookbackMinutes:    cfg.Summary.LookbackMinutes,
			Model:              cfg.API.Model,
			MaxTokens:          cfg.Summary.MaxTokens,
			Temperature:        cfg.Summary.Temperature,
			CompressActivities: cfg.Summary.CompressActivities,
			Prompt:             cfg.Summary.Prompt,
			Location:           loc,
		},
		logger,
	)

	deps := app.PipelineDeps{
		Repo:         repo,
		Sampler:      app.NewSampler(probe.New(goruntime.GOOS, probeRunner), idGen, clock, logger),
		Summarizer:   summarizer,
		Recognitions: rt.recognitions,
		Clock:        clock,
		Logger:       logger,
	}
	if cfg.Monitoring.CaptureScreenshot {
		deps.Capture = capture.New(filepath.Join(cfg.Storage.Dir, capture.DirName), goruntime.GOOS, captureRunner)
		deps.Recognizer = ocr.Unavailable{Now: now}
	}
	rt.pipeline = app.NewPipeline(deps, app.PipelineConfig{
		SampleInterval:     cfg.SampleInterval(),
		CaptureScreenshots: cfg.Monitoring.CaptureScreenshot,
		CaptureInterval:    cfg.CaptureInterval(),
		SummaryInterval:    cfg.SummaryInterval(),
		Location:           loc,
	})
	rt.service = common.NewAppServiceAdapter(
		rt.pipeline,
		common.WithDefaultRetentionDays(cfg.Retention.Days),
		common.WithNow(now),
	)
	return rt, nil
}

// Close releases storage and log sinks in reverse order.
func (rt *worklogRuntime) Close() error {
	if rt == nil {
		return nil
	}
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// openRepository opens the configured activity store.
func openRepository(cfg config.Config, appName string) (app.Repository, func() error, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendSQLite:
		repo, err := sqlite.Open(filepath.Join(cfg.Storage.Dir, fileStem(appName)+".db"), time.Local)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return repo, repo.Close, nil
	default:
		store, err := jsonfile.Open(cfg.Storage.Dir, time.Local)
		if err != nil {
			return nil, nil, fmt.Errorf("open json store: %w", err)
		}
		return store, nil, nil
	}
}

// newID returns a time-ordered identifier.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
