package core

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"ftpsession/config"
	"ftpsession/logger"
)

type Runner struct {
	Config          *config.Config
	TransferManager *TransferManager
	Cron            *cron.Cron
	log             zerolog.Logger
}

func NewRunner(cfg *config.Config, tm *TransferManager) *Runner {
	log := logger.Component("runner")
	return &Runner{
		Config:          cfg,
		TransferManager: tm,
		Cron:            cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{log}))),
		log:             log,
	}
}

// Start schedules every job with a cron expression, runs each of them once
// right away, and schedules the daily history prune.
func (r *Runner) Start() {
	for _, job := range r.Config.Jobs {
		if job.Cron == "" {
			continue
		}
		job := job
		id, err := r.Cron.AddFunc(job.Cron, func() {
			if err := r.TransferManager.RunJob(job); err != nil {
				r.log.Error().Err(err).Str("job", job.Name).Msg("scheduled run failed")
			}
		})
		if err != nil {
			r.log.Error().Err(err).Str("job", job.Name).Msg("failed to schedule job")
			continue
		}
		r.log.Info().Str("job", job.Name).Str("cron", job.Cron).Msg("scheduled job")

		// Run immediately in background, through the chain so a slow first
		// run is not overlapped by the first tick.
		entry := r.Cron.Entry(id)
		go entry.WrappedJob.Run()
	}

	if r.Config.RetentionDays > 0 {
		if _, err := r.Cron.AddFunc("@daily", r.prune); err != nil {
			r.log.Error().Err(err).Msg("failed to schedule history prune")
		}
	}
	r.Cron.Start()
}

// Stop halts scheduling and waits for running jobs.
func (r *Runner) Stop() {
	<-r.Cron.Stop().Done()
}

// RunAll runs every job once, in order, and returns how many failed.
func (r *Runner) RunAll() int {
	failed := 0
	for _, job := range r.Config.Jobs {
		if err := r.TransferManager.RunJob(job); err != nil {
			r.log.Error().Err(err).Str("job", job.Name).Msg("job failed")
			failed++
		}
	}
	if r.Config.RetentionDays > 0 {
		r.prune()
	}
	return failed
}

func (r *Runner) prune() {
	cutoff := time.Now().AddDate(0, 0, -r.Config.RetentionDays)
	n := r.TransferManager.HistoryManager.Prune(cutoff)
	r.log.Info().Int("removed", n).Time("cutoff", cutoff).Msg("pruned history")
	if err := r.TransferManager.HistoryManager.Save(); err != nil {
		r.log.Warn().Err(err).Msg("failed to save history")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
