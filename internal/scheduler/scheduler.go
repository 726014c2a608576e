// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrUnknownJob is returned when running a job that was never registered
var ErrUnknownJob = errors.New("unknown job")

// ErrJobRunning is returned when a job is triggered while a run is in progress
var ErrJobRunning = errors.New("job already running")

// ErrStopped is returned when a job is run after Stop
var ErrStopped = errors.New("scheduler stopped")

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// HistoryRecorder stores the outcome of job runs
type HistoryRecorder interface {
	Record(ctx context.Context, name string, startedAt time.Time, duration time.Duration, runErr error) error
}

// ErrorEmitter publishes job failures
type ErrorEmitter interface {
	EmitError(module string, err error, context map[string]interface{})
}

// JobInfo describes a registered job
type JobInfo struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Running  bool   `json:"running"`
}

type entry struct {
	job      Job
	schedule string
	running  bool
}

// Scheduler manages background jobs
type Scheduler struct {
	cron    *cron.Cron
	history HistoryRecorder
	emitter ErrorEmitter
	mu      sync.Mutex
	jobs    map[string]*entry
	stopped bool
	runs    sync.WaitGroup // every execute, scheduled or manual
	now     func() time.Time
	log     zerolog.Logger
}

// New creates a new scheduler. history and emitter may be nil.
func New(history HistoryRecorder, emitter ErrorEmitter, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		history: history,
		emitter: emitter,
		jobs:    make(map[string]*entry),
		now:     time.Now,
		log:     log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.Jobs())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish, including
// runs started with RunNow or RunByName. Later runs fail with ErrStopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.runs.Wait()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule (six fields, seconds first).
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "0 0 3 * * *"        - 3 AM daily
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %s already registered", job.Name())
	}

	// Failures are logged and recorded by execute
	_, err := s.cron.AddFunc(schedule, func() { _ = s.execute(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
	}

	s.jobs[job.Name()] = &entry{job: job, schedule: schedule}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.execute(job)
}

// RunByName executes a registered job immediately
func (s *Scheduler) RunByName(name string) error {
	s.mu.Lock()
	e, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.RunNow(e.job)
}

// Jobs lists registered jobs ordered by name
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, e := range s.jobs {
		infos = append(infos, JobInfo{Name: name, Schedule: e.schedule, Running: e.running})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// execute runs a job once, skipping it if a registered run is in progress.
// Panics are recovered and reported as failures.
func (s *Scheduler) execute(job Job) (err error) {
	name := job.Name()
	if err := s.begin(name); err != nil {
		s.log.Warn().Err(err).Str("job", name).Msg("Job not started")
		return fmt.Errorf("%w: %s", err, name)
	}
	defer s.markDone(name)

	startedAt := s.now()
	s.log.Debug().Str("job", name).Msg("Running job")

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", name, p)
		}
		s.finish(name, startedAt, err)
	}()

	return job.Run()
}

func (s *Scheduler) finish(name string, startedAt time.Time, runErr error) {
	duration := s.now().Sub(startedAt)

	if runErr != nil {
		s.log.Error().
			Err(runErr).
			Str("job", name).
			Dur("duration", duration).
			Msg("Job failed")
		if s.emitter != nil {
			s.emitter.EmitError("scheduler", runErr, map[string]interface{}{"job": name})
		}
	} else {
		s.log.Debug().Str("job", name).Dur("duration", duration).Msg("Job completed")
	}

	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.history.Record(ctx, name, startedAt, duration, runErr); err != nil {
		s.log.Warn().Err(err).Str("job", name).Msg("Failed to record job run")
	}
}

// begin flags a registered job as running and counts the run for Stop.
// Unregistered jobs are counted but never flagged.
func (s *Scheduler) begin(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if e, ok := s.jobs[name]; ok {
		if e.running {
			return ErrJobRunning
		}
		e.running = true
	}
	s.runs.Add(1)
	return nil
}

func (s *Scheduler) markDone(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.jobs[name]; ok {
		e.running = false
	}
	s.runs.Done()
}
