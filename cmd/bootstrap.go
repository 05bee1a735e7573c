package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/samsaffron/sql2pyspark/internal/archive"
	"github.com/samsaffron/sql2pyspark/internal/config"
	"github.com/samsaffron/sql2pyspark/internal/exitcode"
	"github.com/samsaffron/sql2pyspark/internal/llm"
	"github.com/samsaffron/sql2pyspark/internal/logging"
	"github.com/samsaffron/sql2pyspark/internal/session"
	"github.com/samsaffron/sql2pyspark/internal/ui"
)

type bootstrapOptions struct {
	backend  string // --backend
	provider string // --provider
	// console sends logs to stderr instead of the debug file.
	console bool
	// setup offers the wizard when there is no config file and no key.
	setup bool
}

// app is everything a command needs to run conversations.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	adapter llm.Adapter
	archive archive.Store
	closers []func() error
	// model is the local model shared by every local adapter this process
	// builds, so switching back to local never loads it twice.
	model *llm.Lazy[llm.Generator]
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// loadConfigWithSetup runs the setup wizard on first use from a terminal.
func loadConfigWithSetup() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !needsSetup(cfg) {
		return cfg, nil
	}
	updated, err := ui.RunSetupWizard(cfg)
	if err != nil {
		return nil, fmt.Errorf("setup cancelled: %w", err)
	}
	if err := config.Save(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func needsSetup(cfg *config.Config) bool {
	if config.Exists() || !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	key, err := cfg.Credential()
	return err == nil && key == ""
}

func newApp(opts bootstrapOptions) (*app, error) {
	var cfg *config.Config
	var err error
	if opts.setup {
		cfg, err = loadConfigWithSetup()
	} else {
		cfg, err = loadConfig()
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyOverrides(opts.backend, opts.provider)

	logFile := ""
	if dir, err := config.GetStateDir(); err == nil {
		logFile = filepath.Join(dir, "debug.log")
	}
	logger, closeLog, err := logging.New(logging.Options{
		Debug:   debugLog,
		File:    logFile,
		Console: opts.console,
		Level:   zerolog.InfoLevel,
	})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, closers: []func() error{closeLog}}

	adapter, err := a.buildAdapter(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.adapter = adapter

	store, err := archive.Open(cfg.Archive.Enabled, cfg.Archive.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("archive unavailable, exchanges will not be recorded")
		store = &archive.NoopStore{}
	}
	a.archive = store
	a.closers = append(a.closers, store.Close)

	logger.Debug().
		Str("backend", cfg.Backend).
		Str("adapter", adapter.Name()).
		Bool("archive", cfg.Archive.Enabled).
		Msg("ready")
	return a, nil
}

// buildAdapter resolves the credential and constructs the adapter. A
// missing key becomes the persistent notice and exit code 2; no client is
// created.
func (a *app) buildAdapter(cfg *config.Config) (llm.Adapter, error) {
	adapterCfg, err := cfg.AdapterConfig(debugLog)
	if err != nil {
		return nil, err
	}
	a.prepare(&adapterCfg)
	adapter, err := llm.NewAdapter(adapterCfg)
	if errors.Is(err, llm.ErrMissingCredential) {
		a.logger.Error().Str("provider", cfg.ProviderName()).Msg("no API key configured")
		return nil, missingCredential(os.Stderr, cfg.ProviderName())
	}
	if err != nil {
		return nil, err
	}
	a.track(adapter)
	return adapter, nil
}

// prepare fills in what every adapter built by a shares: the component
// logger and, for the local backend, the one local model.
func (a *app) prepare(cfg *llm.AdapterConfig) {
	cfg.Logger = logging.Component(a.logger, "llm")
	if !strings.EqualFold(strings.TrimSpace(cfg.Backend), llm.BackendLocal) {
		return
	}
	if a.model == nil {
		a.model = llm.NewLocalModel(cfg.Local)
		a.closers = append(a.closers, a.model.Close)
	}
	cfg.Model = a.model
}

// track registers adapter for release on Close. Local adapters are skipped;
// the shared model is already registered.
func (a *app) track(adapter llm.Adapter) {
	if _, local := adapter.(*llm.LocalAdapter); local {
		return
	}
	if c, ok := adapter.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
}

func missingCredential(w io.Writer, provider string) error {
	styles := ui.NewStyles(os.Stderr)
	fmt.Fprintln(w, styles.RenderMissingKey(provider, llm.CredentialEnv(provider)))
	return exitcode.NoCredential("")
}

// newSession starts a conversation on adapter, seeded for the configured
// backend and archived when enabled.
func (a *app) newSession(adapter llm.Adapter, backend string) *session.Session {
	return session.New(adapter,
		session.WithSeed(llm.SeedMessages(backend)...),
		session.WithLogger(logging.Component(a.logger, "session")),
		session.OnExchange(a.recordExchange(backend)),
	)
}

func (a *app) recordExchange(backend string) func(session.Exchange) {
	return func(ex session.Exchange) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := a.archive.Record(ctx, &archive.Exchange{
			SessionID:  ex.SessionID,
			Sequence:   ex.Sequence,
			Backend:    backend,
			Model:      ex.Adapter,
			Prompt:     ex.Prompt,
			Response:   ex.Response,
			DurationMs: ex.Duration.Milliseconds(),
		})
		if err != nil {
			a.logger.Warn().Err(err).Msg("failed to archive exchange")
		}
	}
}

// switchAdapter builds an adapter for a "/model" argument: "local" or
// "provider[:model]".
func (a *app) switchAdapter(target string) (llm.Adapter, string, error) {
	next := *a.cfg
	if target == llm.BackendLocal {
		next.ApplyOverrides(llm.BackendLocal, "")
	} else {
		next.ApplyOverrides(llm.BackendRemote, target)
	}
	adapterCfg, err := next.AdapterConfig(debugLog)
	if err != nil {
		return nil, "", err
	}
	a.prepare(&adapterCfg)
	adapter, err := llm.NewAdapter(adapterCfg)
	if errors.Is(err, llm.ErrMissingCredential) {
		return nil, "", fmt.Errorf("%w: %s", err, ui.MissingKeyHint(llm.CredentialEnv(next.ProviderName())))
	}
	if err != nil {
		return nil, "", err
	}
	a.track(adapter)
	return adapter, next.Backend, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func localSupport() string {
	if llm.LocalAvailable {
		return "llama.cpp"
	}
	return "not built (use -tags llama)"
}
