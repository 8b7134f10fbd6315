// Package app holds the runtime context shared by the CLI commands: loaded
// settings, metrics and the constructors that turn settings into a
// configured pipeline.
package app

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tphakala/roofsolar/internal/checks"
	"github.com/tphakala/roofsolar/internal/conf"
	"github.com/tphakala/roofsolar/internal/errors"
	"github.com/tphakala/roofsolar/internal/logging"
	"github.com/tphakala/roofsolar/internal/observability"
	"github.com/tphakala/roofsolar/internal/observability/metrics"
	"github.com/tphakala/roofsolar/internal/pipeline"
	"github.com/tphakala/roofsolar/internal/production"
	"github.com/tphakala/roofsolar/internal/pvwatts"
	"github.com/tphakala/roofsolar/internal/report"
	"github.com/tphakala/roofsolar/internal/resolver"
	"github.com/tphakala/roofsolar/internal/telemetry"
)

// Context carries what every command needs after initialization.
type Context struct {
	Settings *conf.Settings
	Version  string
	Metrics  *observability.Metrics
	Stdout   io.Writer

	clients     []*pvwatts.Client
	initialized bool
}

// NewContext creates a context with default settings. Init replaces them
// with the loaded configuration.
func NewContext(version string) *Context {
	return &Context{
		Settings: &conf.Settings{},
		Version:  version,
		Stdout:   os.Stdout,
	}
}

// Init loads the configuration, applies log levels, starts telemetry and
// creates the metrics registry.
func (c *Context) Init() error {
	settings, err := conf.Load()
	if err != nil {
		return err
	}
	c.Settings = settings

	logging.Init()
	c.applyLogLevel()

	log := logging.ForService("app")
	if err := telemetry.InitSentry(settings, c.Version); err != nil {
		// Telemetry is optional, report and continue
		logging.HumanReadable().Warn("Telemetry disabled", "error", err)
	}
	log.Debug("configuration loaded",
		"version", c.Version,
		"format", settings.Output.Format,
		"alias_file", settings.Analysis.AliasFile,
		"telemetry", telemetry.Enabled())

	m, err := observability.NewMetrics()
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "create_metrics").
			Build()
	}
	c.Metrics = m
	c.initialized = true
	return nil
}

func (c *Context) applyLogLevel() {
	level := logging.ParseLevel(c.Settings.Log.Level)
	if c.Settings.Debug {
		level = slog.LevelDebug
	}
	logging.SetLevel(level)
	pipeline.SetLogLevel(level)
	production.SetLogLevel(level)
	pvwatts.SetLogLevel(level)
	resolver.SetLogLevel(level)
	checks.SetLogLevel(level)
}

// Options maps the loaded settings to run options.
func (c *Context) Options() pipeline.Options {
	return pipeline.OptionsFromSettings(c.Settings)
}

// Resolver builds the metadata resolver from the configured alias file,
// or the embedded aliases when none is set.
func (c *Context) Resolver() (*resolver.Resolver, error) {
	if c.Settings.Analysis.AliasFile == "" {
		return resolver.New(resolver.DefaultAliases()), nil
	}
	aliases, err := resolver.LoadAliases(c.Settings.Analysis.AliasFile)
	if err != nil {
		return nil, err
	}
	return resolver.New(aliases), nil
}

// NewPipeline builds a pipeline for opts. With CallAPI set it needs a
// PVWatts API key and paces calls by pvwatts.ratelimit.
func (c *Context) NewPipeline(opts pipeline.Options) (*pipeline.Pipeline, error) {
	res, err := c.Resolver()
	if err != nil {
		return nil, err
	}

	var agg *production.Aggregator
	if opts.CallAPI {
		client, err := pvwatts.NewClient(pvwatts.ConfigFromSettings(&c.Settings.PVWatts))
		if err != nil {
			return nil, errors.New(err).
				Component("app").
				Category(errors.CategoryConfiguration).
				Context("hint", "set pvwatts.apikey, ROOFSOLAR_PVWATTS_APIKEY or NREL_API_KEY, or run with --offline").
				Build()
		}
		c.clients = append(c.clients, client)
		client.SetRecorder(c.recorder())
		agg = production.NewAggregator(client, production.NewIntervalPacer(c.Settings.PVWatts.RateLimit), c.recorder())
	}

	p := pipeline.New(res, agg)
	if c.Metrics != nil {
		p.SetMetrics(c.Metrics.Pipeline)
	}
	return p, nil
}

// recorder returns the pipeline metrics as a Recorder, or nil without a
// registry so that callers fall back to a no-op recorder.
func (c *Context) recorder() metrics.Recorder {
	if c.Metrics == nil {
		return nil
	}
	return c.Metrics.Pipeline
}

// NewChecker builds a checker over a new pipeline using the configured
// LEED threshold.
func (c *Context) NewChecker(opts pipeline.Options) (*checks.Checker, error) {
	p, err := c.NewPipeline(opts)
	if err != nil {
		return nil, err
	}
	return checks.New(p, opts, c.Settings.Checks.LEEDThreshold), nil
}

// Console returns a console renderer on Stdout.
func (c *Context) Console() *report.Console {
	return report.NewConsole(c.Stdout, c.Settings.Output.Color)
}

// Shutdown closes PVWatts clients, writes the metrics textfile and closes
// the service loggers before flushing telemetry. Errors are joined. It is a
// no-op when Init never ran.
func (c *Context) Shutdown() error {
	if !c.initialized {
		return nil
	}
	c.initialized = false
	var errs []error

	for _, client := range c.clients {
		client.Close()
	}
	c.clients = nil

	if path := c.Settings.Metrics.TextFile; path != "" && c.Metrics != nil {
		if err := c.Metrics.WriteTextfile(path); err != nil {
			errs = append(errs, err)
		}
	}

	for _, closeFn := range []func() error{
		pipeline.CloseLogger,
		production.CloseLogger,
		resolver.CloseLogger,
		checks.CloseLogger,
	} {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}

	telemetry.Flush(2 * time.Second)
	return errors.Join(errs...)
}
