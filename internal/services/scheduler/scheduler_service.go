package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// JobFunc is one scheduled unit of work
type JobFunc func(ctx context.Context) error

// JobStatus describes the last execution of a job
type JobStatus struct {
	Name      string
	Schedule  string
	LastRun   *time.Time
	NextRun   *time.Time
	IsRunning bool
	LastError string
	Runs      int
}

// jobEntry represents a registered job with metadata
type jobEntry struct {
	name      string
	schedule  string
	handler   JobFunc
	cronID    cron.EntryID
	lastRun   *time.Time
	isRunning bool
	lastError string
	runs      int
}

// Service runs registered jobs on cron schedules.
// A tick that fires while the previous run of the same job is still going is skipped.
type Service struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	ctx     context.Context
	cancel  context.CancelFunc
	jobMu   sync.Mutex // Protects jobs map and entries
	jobs    map[string]*jobEntry
	running bool
}

// NewService creates a new scheduler service
func NewService(logger arbor.ILogger) *Service {
	cronLog := &cronLogger{logger: logger}
	return &Service{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLog),
		)),
		logger: logger,
		jobs:   make(map[string]*jobEntry),
	}
}

// RegisterJob adds a job with a standard 5-field cron expression
func (s *Service) RegisterJob(name string, schedule string, handler JobFunc) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	entry := &jobEntry{
		name:     name,
		schedule: schedule,
		handler:  handler,
	}

	id, err := s.cron.AddFunc(schedule, func() { s.executeJob(name) })
	if err != nil {
		return fmt.Errorf("invalid schedule for job %q: %w", name, err)
	}
	entry.cronID = id
	s.jobs[name] = entry

	s.logger.Info().
		Str("job_name", name).
		Str("schedule", schedule).
		Msg("Job registered")

	return nil
}

// Start begins firing registered jobs. Jobs receive a context cancelled by Stop.
func (s *Service) Start(ctx context.Context) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.running = true

	for _, entry := range s.jobs {
		next := s.cron.Entry(entry.cronID).Next
		s.logger.Info().
			Str("job_name", entry.name).
			Str("next_run", next.Format(time.RFC3339)).
			Msg("Scheduler started")
	}

	return nil
}

// Stop cancels running jobs and waits for them to return
func (s *Service) Stop() {
	s.jobMu.Lock()
	if !s.running {
		s.jobMu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.jobMu.Unlock()

	cancel()
	<-s.cron.Stop().Done()

	s.logger.Info().Msg("Scheduler stopped")
}

// IsRunning returns true between Start and Stop
func (s *Service) IsRunning() bool {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	return s.running
}

// TriggerJob runs a job immediately on the calling goroutine
func (s *Service) TriggerJob(name string) error {
	s.jobMu.Lock()
	_, exists := s.jobs[name]
	s.jobMu.Unlock()

	if !exists {
		return fmt.Errorf("job %q not found", name)
	}

	s.executeJob(name)
	return nil
}

// GetJobStatus returns the status of a registered job
func (s *Service) GetJobStatus(name string) (*JobStatus, error) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	entry, exists := s.jobs[name]
	if !exists {
		return nil, fmt.Errorf("job %q not found", name)
	}

	status := &JobStatus{
		Name:      entry.name,
		Schedule:  entry.schedule,
		LastRun:   entry.lastRun,
		IsRunning: entry.isRunning,
		LastError: entry.lastError,
		Runs:      entry.runs,
	}
	if next := s.cron.Entry(entry.cronID).Next; !next.IsZero() {
		status.NextRun = &next
	}
	return status, nil
}

// executeJob wraps job execution with panic recovery and status tracking
func (s *Service) executeJob(name string) {
	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		s.logger.Warn().Str("job_name", name).Msg("Job not found")
		return
	}
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	entry.isRunning = true
	handler := entry.handler
	s.jobMu.Unlock()

	start := time.Now()
	err := s.runHandler(ctx, name, handler)

	completed := time.Now()
	s.jobMu.Lock()
	entry.isRunning = false
	entry.lastRun = &completed
	entry.runs++
	if err != nil {
		entry.lastError = err.Error()
	} else {
		entry.lastError = ""
	}
	s.jobMu.Unlock()

	if err != nil {
		s.logger.Error().
			Str("job_name", name).
			Err(err).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("Job execution failed")
		return
	}

	s.logger.Info().
		Str("job_name", name).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("Job execution completed")
}

func (s *Service) runHandler(ctx context.Context, name string, handler JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job_name", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in job execution")
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return handler(ctx)
}

// cronLogger adapts arbor to the cron.Logger interface
type cronLogger struct {
	logger arbor.ILogger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Str("detail", fmt.Sprint(keysAndValues...)).Msg("cron: " + msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Str("detail", fmt.Sprint(keysAndValues...)).Msg("cron: " + msg)
}
