package jobs

import (
	"context"
	"time"

	"git.carhub.se/carhub/carhub/src/logging"
	"git.carhub.se/carhub/carhub/src/utils"
	"github.com/rs/zerolog"
)

/*
 * This package runs background tasks that can be canceled and shut down
 * gracefully alongside the web server.
 */

// A Job is used to handle and track the completion of an asynchronous or
// background task.
type Job struct {
	Name   string
	Ctx    context.Context
	Logger zerolog.Logger
	cancel func()
	done   chan struct{}
}

func New(name string) *Job {
	logger := logging.With().Str("job", name).Logger()
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logging.AttachLoggerToContext(&logger, ctx)
	return &Job{
		Name:   name,
		Ctx:    ctx,
		Logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Sends a cancel signal to the Job. Expected to be called from outside the
// job, e.g. when shutting down the application.
func (j *Job) Cancel() {
	j.cancel()
}

// Returns a channel that is closed once Cancel has been called.
func (j *Job) Canceled() <-chan struct{} {
	return j.Ctx.Done()
}

// Marks the Job as finished. Expected to be called by the job itself.
func (j *Job) Finish() *Job {
	close(j.done)
	return j
}

// Returns a channel that is closed once the Job has called Finish.
func (j *Job) Finished() <-chan struct{} {
	return j.done
}

// Periodic runs fn every interval until the job is canceled. A panic in fn is
// logged and does not stop the loop.
func Periodic(name string, interval time.Duration, fn func(job *Job) error) *Job {
	job := New(name)
	go func() {
		defer job.Finish()

		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				err := func() (err error) {
					defer utils.RecoverPanicAsError(&err)
					return fn(job)
				}()
				if err != nil {
					job.Logger.Error().Err(err).Msg("periodic job failed")
				}
			case <-job.Canceled():
				return
			}
		}
	}()
	return job
}

// A utility for running and canceling multiple jobs at once.
type Jobs []*Job

// Cancels all tracked jobs, giving them a chance to finish gracefully. Will
// return when all jobs finish or when the timeout expires, whichever comes
// first. Returns a list of all jobs that did not finish on time.
func (jobs Jobs) CancelAndWait(timeout time.Duration) []string {
	allDoneChan := make(chan struct{})
	for _, job := range jobs {
		job.Cancel()
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	go func() {
		for _, job := range jobs {
			<-job.Finished()
		}
		close(allDoneChan)
	}()

	select {
	case <-timer.C:
		return jobs.ListUnfinished()
	case <-allDoneChan:
		return nil
	}
}

func (jobs Jobs) ListUnfinished() []string {
	unfinished := []string{}
	for _, job := range jobs {
		select {
		case <-job.Finished():
			continue
		default:
			unfinished = append(unfinished, job.Name)
		}
	}
	return unfinished
}
