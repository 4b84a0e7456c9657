// File path: internal/poll/poller.go

// Package poll refreshes the active tenant's build-job set on a fixed
// interval, feeding the reconciler's working snapshot. Ticks are
// single-flight: an interval firing while a fetch is in flight is skipped,
// not queued. Stopping is immediate — a stale tick never applies its result
// after the poller moved on to another tenant or shut down.
package poll

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/chatforge/kbcore/internal/common"
	"github.com/chatforge/kbcore/internal/ledger"
)

const (
	defaultInterval = 5 * time.Second
	defaultTimeout  = 10 * time.Second
)

// JobLister is the read slice of the ledger the poller consumes.
type JobLister interface {
	ListJobs(ctx context.Context, tenantID string) ([]ledger.BuildJob, error)
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the polling interval. Values under a second are rounded
// up by the scheduler.
func WithInterval(interval time.Duration) Option {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithTimeout bounds a single fetch.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Poller) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithRefreshFunc registers a callback invoked with each fresh snapshot.
func WithRefreshFunc(fn func(tenantID string, jobs []ledger.BuildJob)) Option {
	return func(p *Poller) {
		p.onRefresh = fn
	}
}

// Poller owns the background refresh lifecycle for one active tenant at a
// time.
type Poller struct {
	jobs      JobLister
	interval  time.Duration
	timeout   time.Duration
	onRefresh func(tenantID string, jobs []ledger.BuildJob)

	mu         sync.Mutex
	runner     *cron.Cron
	tenantID   string
	generation uint64
	snapshot   []ledger.BuildJob
}

// New constructs a stopped Poller.
func New(jobs JobLister, opts ...Option) (*Poller, error) {
	if jobs == nil {
		return nil, errors.New("job lister required")
	}
	p := &Poller{
		jobs:     jobs,
		interval: defaultInterval,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Start begins polling for the given tenant, replacing any previous run. The
// first fetch is issued immediately rather than one interval out.
func (p *Poller) Start(tenantID string) error {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return errors.New("tenant id required")
	}
	p.mu.Lock()
	p.stopLocked()
	p.generation++
	gen := p.generation
	p.tenantID = tenantID
	p.snapshot = nil
	// The immediate first fetch and the scheduled ticks share one wrapped
	// job, so the skip-if-still-running guard covers both: a first fetch
	// outlasting an interval makes that interval's tick a no-op instead of
	// a second concurrent fetch.
	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{})).Then(cron.FuncJob(func() {
		p.tick(gen, tenantID)
	}))
	runner := cron.New()
	runner.Schedule(cron.Every(p.interval), job)
	p.runner = runner
	runner.Start()
	p.mu.Unlock()

	go job.Run()
	common.Logger().Info("poll: started", "tenant", tenantID, "interval", p.interval)
	return nil
}

// Stop cancels polling. Any in-flight fetch completes but its result is
// discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.generation++
	p.stopLocked()
	p.tenantID = ""
	p.snapshot = nil
	p.mu.Unlock()
}

func (p *Poller) stopLocked() {
	if p.runner != nil {
		p.runner.Stop()
		p.runner = nil
	}
}

// Tenant returns the tenant currently being polled, if any.
func (p *Poller) Tenant() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tenantID
}

// Snapshot returns a copy of the most recent job set.
func (p *Poller) Snapshot() []ledger.BuildJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snapshot) == 0 {
		return nil
	}
	out := make([]ledger.BuildJob, len(p.snapshot))
	copy(out, p.snapshot)
	return out
}

// Refresh runs one fetch synchronously outside the schedule. User actions use
// it to update the view right after a mutation instead of waiting for the
// next tick.
func (p *Poller) Refresh(ctx context.Context) ([]ledger.BuildJob, error) {
	p.mu.Lock()
	gen := p.generation
	tenantID := p.tenantID
	p.mu.Unlock()
	if tenantID == "" {
		return nil, errors.New("poller not started")
	}
	jobs, err := p.jobs.ListJobs(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	p.apply(gen, tenantID, jobs)
	return jobs, nil
}

func (p *Poller) tick(gen uint64, tenantID string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	jobs, err := p.jobs.ListJobs(ctx, tenantID)
	if err != nil {
		// Transient fetch failures are swallowed; the next tick retries.
		common.Logger().Warn("poll: fetch failed", "tenant", tenantID, "error", err)
		return
	}
	p.apply(gen, tenantID, jobs)
}

func (p *Poller) apply(gen uint64, tenantID string, jobs []ledger.BuildJob) {
	p.mu.Lock()
	if p.generation != gen {
		p.mu.Unlock()
		common.Logger().Debug("poll: stale result discarded", "tenant", tenantID)
		return
	}
	p.snapshot = jobs
	onRefresh := p.onRefresh
	p.mu.Unlock()
	if onRefresh != nil {
		onRefresh(tenantID, jobs)
	}
}

// cronLogger adapts the common slog logger to the cron.Logger interface so
// skipped ticks surface in the shared log history.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	common.Logger().Debug("poll: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{"error", err}, keysAndValues...)
	common.Logger().Warn("poll: "+msg, args...)
}

var _ cron.Logger = cronLogger{}
