package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketbrief/internal/common"
	"github.com/ternarybob/marketbrief/internal/interfaces"
	"github.com/ternarybob/marketbrief/internal/models"
	"github.com/ternarybob/marketbrief/internal/services/citations"
	"github.com/ternarybob/marketbrief/internal/services/feeds"
	"github.com/ternarybob/marketbrief/internal/services/llm"
	"github.com/ternarybob/marketbrief/internal/services/mailer"
	"github.com/ternarybob/marketbrief/internal/services/newsstore"
	"github.com/ternarybob/marketbrief/internal/services/report"
	"github.com/ternarybob/marketbrief/internal/services/scheduler"
	"github.com/ternarybob/marketbrief/internal/services/transform"
)

// ErrNothingIngested is recorded when every feed failed or was empty
var ErrNothingIngested = errors.New("no news items ingested")

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// External boundaries; replaced by fakes in tests
	FeedSource interfaces.FeedSource
	Generator  interfaces.ContentGenerator
	Dialer     mailer.Dialer

	// DryRunPath, when set, receives the rendered report instead of the mail server
	DryRunPath string

	// Now supplies the run timestamp
	Now func() time.Time

	Recipients       []string
	SchedulerService *scheduler.Service

	providers *llm.ProviderFactory
}

// RunReport summarizes one pipeline run
type RunReport struct {
	RunID            string
	Started          time.Time
	Duration         time.Duration
	Ingested         int
	Analysis         *models.AnalysisResult
	Citations        int // Markers in the analysis prose
	UnknownCitations int // Markers that resolved to the placeholder
	Rendered         bool
	DryRunFile       string
	Delivery         models.SendSummary
	Err              error // Stage failure that ended the run early
}

// New wires the production dependencies from configuration
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	providers := llm.NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, logger)

	dialer := &mailer.SMTPDialer{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
	}

	source := feeds.NewGofeedSource(cfg.Feeds.UserAgent, common.Duration(cfg.Feeds.Timeout, 30*time.Second))

	app := NewWithDependencies(cfg, logger, source, providers, dialer)
	app.providers = providers

	logger.Info().
		Str("provider", string(cfg.AnalysisProvider())).
		Int("sources", len(cfg.Sources)).
		Int("recipients", len(app.Recipients)).
		Msg("Application initialization complete")

	return app, nil
}

// NewWithDependencies builds an App around the given external boundaries
func NewWithDependencies(
	cfg *common.Config,
	logger arbor.ILogger,
	source interfaces.FeedSource,
	generator interfaces.ContentGenerator,
	dialer mailer.Dialer,
) *App {
	return &App{
		Config:     cfg,
		Logger:     logger,
		FeedSource: source,
		Generator:  generator,
		Dialer:     dialer,
		Now:        time.Now,
		Recipients: common.FilterValidRecipients(cfg.Recipients, logger),
	}
}

// RunOnce executes ingest, analysis, render and delivery with a fresh news store.
// Stage failures are logged and recorded in the report; they never panic or exit.
func (a *App) RunOnce(ctx context.Context) RunReport {
	run := RunReport{
		RunID:   common.NewRunID(),
		Started: a.Now(),
	}
	logger := a.Logger.WithCorrelationId(run.RunID)
	defer func() {
		run.Duration = time.Since(run.Started)
	}()

	logger.Info().Int("sources", len(a.Config.Sources)).Msg("Run started")

	// Ingest
	store := newsstore.New()
	ingest := feeds.NewService(a.FeedSource, a.Config.Feeds.MaxItemsPerSource, logger)
	run.Ingested = ingest.Ingest(ctx, a.Config.Sources, store)
	if run.Ingested == 0 {
		run.Err = ErrNothingIngested
		logger.Warn().Msg("Nothing ingested, skipping analysis")
		return a.finish(logger, run)
	}

	// Analyze
	analyzer := llm.NewAnalysisService(a.Generator, a.Config.Analysis.Model, llm.PromptOptions{
		Language:     a.Config.Analysis.Language,
		PickCount:    a.Config.Analysis.PickCount,
		SummaryWords: a.Config.Analysis.SummaryWords,
	}, logger)

	result, err := analyzer.Analyze(ctx, store)
	if err != nil {
		run.Err = fmt.Errorf("analysis failed: %w", err)
		logger.Error().Err(err).Msg("Analysis failed, skipping report")
		return a.finish(logger, run)
	}
	run.Analysis = result

	cited := citations.NewResolver(store).Citations(result.AnalysisHTML)
	run.Citations = len(cited)
	for _, id := range cited {
		if _, ok := store.Item(id); !ok {
			run.UnknownCitations++
		}
	}

	if len(a.Recipients) == 0 && a.DryRunPath == "" {
		logger.Info().Msg("Recipient list is empty, skipping report")
		return a.finish(logger, run)
	}

	// Render
	renderer, err := report.NewRenderer(report.Options{
		Edition:  a.Config.Report.Edition,
		Markdown: a.Config.Report.Markdown,
		Sanitize: a.Config.Report.Sanitize,
		Location: a.Config.Location(),
	}, logger)
	if err != nil {
		run.Err = err
		logger.Error().Err(err).Msg("Renderer setup failed")
		return a.finish(logger, run)
	}

	html, err := renderer.Render(result, store, run.Started)
	if err != nil {
		run.Err = err
		logger.Error().Err(err).Msg("Report rendering failed")
		return a.finish(logger, run)
	}
	run.Rendered = true

	if a.DryRunPath != "" {
		if err := writeDryRun(a.DryRunPath, html); err != nil {
			run.Err = err
			logger.Error().Err(err).Str("path", a.DryRunPath).Msg("Failed to write dry-run report")
		} else {
			run.DryRunFile = a.DryRunPath
			logger.Info().Str("path", a.DryRunPath).Msg("Dry run: report written, mail skipped")
		}
		return a.finish(logger, run)
	}

	// Deliver
	sender := mailer.NewService(a.Dialer, transform.NewService(logger), mailer.Options{
		From:          a.Config.SMTP.From,
		FromName:      a.Config.SMTP.FromName,
		SubjectPrefix: a.Config.SMTP.SubjectPrefix,
		SendDelay:     common.Duration(a.Config.SMTP.SendDelay, 2*time.Second),
		Location:      a.Config.Location(),
	}, logger)
	run.Delivery = sender.SendReport(ctx, html, a.Recipients, run.Started)
	if run.Delivery.Failed != nil {
		run.Err = fmt.Errorf("delivery failed: %w", run.Delivery.Failed)
	}

	return a.finish(logger, run)
}

func (a *App) finish(logger arbor.ILogger, run RunReport) RunReport {
	event := logger.Info()
	if run.Err != nil {
		event = logger.Warn().Err(run.Err)
	}
	event.
		Int("ingested", run.Ingested).
		Int("citations", run.Citations).
		Int("unknown_citations", run.UnknownCitations).
		Bool("rendered", run.Rendered).
		Int("sent", run.Delivery.Sent).
		Int64("duration_ms", time.Since(run.Started).Milliseconds()).
		Msg("Run finished")
	return run
}

// RunScheduled runs the pipeline on the configured cron schedule until ctx is cancelled
func (a *App) RunScheduled(ctx context.Context) error {
	a.SchedulerService = scheduler.NewService(a.Logger)

	err := a.SchedulerService.RegisterJob("market-brief", a.Config.Schedule, func(ctx context.Context) error {
		return a.RunOnce(ctx).Err
	})
	if err != nil {
		return err
	}

	if err := a.SchedulerService.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.SchedulerService.Stop()
	return nil
}

// Close releases provider clients
func (a *App) Close() error {
	if a.SchedulerService != nil {
		a.SchedulerService.Stop()
	}
	if a.providers != nil {
		if err := a.providers.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
		}
	}
	return nil
}

func writeDryRun(path, html string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create dry-run directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write dry-run report: %w", err)
	}
	return nil
}
