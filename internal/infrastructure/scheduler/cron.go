package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"EngagementSync/internal/ports"
)

// CronScheduler triggers jobs on a standard five-field cron expression.
// A trigger that fires while the previous job is still running is skipped.
type CronScheduler struct {
	spec       string
	location   *time.Location
	runOnStart bool

	mu   sync.Mutex
	cron *cron.Cron
	// jobs tracks runs started outside the cron runner.
	jobs *sync.WaitGroup
	// idle is closed once the runner and every tracked run have finished.
	idle chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler validates the expression and binds it to a timezone.
func NewCronScheduler(spec string, loc *time.Location, runOnStart bool) (*CronScheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return &CronScheduler{spec: spec, location: loc, runOnStart: runOnStart}, nil
}

// Start registers the job and begins ticking until Stop or ctx cancellation.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	runner := cron.New(cron.WithLocation(c.location))
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		job(time.Now().In(c.location))
	}))
	if _, err := runner.AddJob(c.spec, wrapped); err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}

	jobs := &sync.WaitGroup{}
	c.cron = runner
	c.jobs = jobs
	c.idle = make(chan struct{})
	runner.Start()

	if c.runOnStart {
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			wrapped.Run()
		}()
	}

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()
	return nil
}

// Stop halts the scheduler and waits for running jobs, including a run-on-start
// job, up to ctx's deadline. Repeated calls wait on the same drain.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner, jobs, idle := c.cron, c.jobs, c.idle
	c.cron = nil
	c.mu.Unlock()

	if idle == nil {
		return nil
	}
	if runner != nil {
		go func() {
			<-runner.Stop().Done()
			jobs.Wait()
			close(idle)
		}()
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
