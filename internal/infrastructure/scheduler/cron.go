package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/acsclub/clubnews/internal/ports"
)

// JobFunc is one scheduled run. It returns a short human-readable detail
// string for the run log instead of printing ad hoc.
type JobFunc func(ctx context.Context) (string, error)

// JobResult is the recorded outcome of the most recent run of a job.
type JobResult struct {
	Name     string        `json:"name"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Detail   string        `json:"detail,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type job struct {
	name string
	spec string
	fn   JobFunc
}

// Cron runs named recurring jobs on cron expressions in a fixed timezone.
// A failing run is recorded and logged but never deregisters its job.
type Cron struct {
	location *time.Location
	logger   *slog.Logger

	mu      sync.Mutex
	jobs    []job
	runner  *cron.Cron
	results map[string]JobResult
	started bool
}

var _ ports.Scheduler = (*Cron)(nil)

// New builds an inactive scheduler for the given timezone.
func New(location *time.Location, logger *slog.Logger) *Cron {
	if location == nil {
		location = time.UTC
	}
	return &Cron{
		location: location,
		logger:   logger,
		results:  map[string]JobResult{},
	}
}

// Register adds a named job. Registration before Start is the expected use;
// registering while running activates the job on the next Start.
func (c *Cron) Register(name, spec string, fn JobFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs = append(c.jobs, job{name: name, spec: spec, fn: fn})
}

// Start activates all registered jobs. Invalid cron expressions fail fast.
func (c *Cron) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	runner := cron.New(cron.WithLocation(c.location))
	for _, j := range c.jobs {
		j := j
		if _, err := runner.AddFunc(j.spec, func() { c.run(j) }); err != nil {
			return fmt.Errorf("register job %s (%q): %w", j.name, j.spec, err)
		}
		if c.logger != nil {
			c.logger.Info("job scheduled", "job", j.name, "schedule", j.spec, "tz", c.location.String())
		}
	}

	runner.Start()
	c.runner = runner
	c.started = true
	return nil
}

// Stop deactivates and clears all jobs.
func (c *Cron) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runner != nil {
		ctx := c.runner.Stop()
		// Let in-flight runs finish before declaring the scheduler stopped.
		<-ctx.Done()
		c.runner = nil
	}
	c.jobs = nil
	c.started = false
}

// Status lists every registered job for operational visibility.
func (c *Cron) Status() []ports.JobStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	statuses := make([]ports.JobStatus, 0, len(c.jobs))
	for _, j := range c.jobs {
		statuses = append(statuses, ports.JobStatus{
			Name:     j.name,
			Schedule: j.spec,
			Active:   c.started,
		})
	}
	return statuses
}

// Results returns the last recorded outcome per job, keyed by job name.
func (c *Cron) Results() map[string]JobResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]JobResult, len(c.results))
	for name, result := range c.results {
		out[name] = result
	}
	return out
}

func (c *Cron) run(j job) {
	started := time.Now()
	result := JobResult{Name: j.name, Started: started}

	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Error = fmt.Sprintf("panic: %v", r)
			}
		}()
		detail, err := j.fn(context.Background())
		result.Detail = detail
		if err != nil {
			result.Error = err.Error()
		}
	}()
	result.Duration = time.Since(started)

	c.mu.Lock()
	c.results[j.name] = result
	c.mu.Unlock()

	if c.logger == nil {
		return
	}
	if result.Error != "" {
		c.logger.Error("scheduled job failed",
			"job", j.name, "duration", result.Duration, "error", result.Error)
		return
	}
	c.logger.Info("scheduled job completed",
		"job", j.name, "duration", result.Duration, "detail", result.Detail)
}
