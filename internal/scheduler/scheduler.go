package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Job is one scheduled task.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler runs jobs on cron specs in UTC.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	jobs   []Job
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job. The spec is validated immediately.
func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return errors.Errorf("job %s has no function", job.Name)
	}
	if _, err := s.cron.AddFunc(job.Spec, func() { s.run(job) }); err != nil {
		return errors.Wrapf(err, "invalid schedule %q for job %s", job.Spec, job.Name)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *Scheduler) run(job Job) {
	start := time.Now()
	log.Info().Str("job", job.Name).Msg("scheduled job triggered")
	if err := job.Run(s.ctx); err != nil {
		log.Error().Err(err).Str("job", job.Name).Msg("scheduled job failed")
		return
	}
	log.Info().Str("job", job.Name).Dur("took", time.Since(start)).Msg("scheduled job done")
}

// RunNow runs the named job synchronously, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	for _, job := range s.jobs {
		if job.Name == name {
			return job.Run(s.ctx)
		}
	}
	return errors.Errorf("unknown job %s", name)
}

func (s *Scheduler) Start() {
	if len(s.jobs) == 0 {
		log.Warn().Msg("scheduler has no jobs")
		return
	}
	s.cron.Start()
	for _, job := range s.jobs {
		log.Info().Str("job", job.Name).Str("spec", job.Spec).Msg("scheduler started")
	}
}

// Stop waits for running jobs and cancels their context.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
