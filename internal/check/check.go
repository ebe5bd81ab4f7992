package check

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/httpdwatch/httpdwatch/internal/fetch"
	"github.com/httpdwatch/httpdwatch/internal/rate"
	"github.com/httpdwatch/httpdwatch/internal/scoreboard"
	"github.com/httpdwatch/httpdwatch/internal/threshold"
)

// bootstrapWait guarantees at least one second elapses between the bootstrap
// sample and the measured sample, so the rate divisor is never degenerate.
const bootstrapWait = time.Second

// TagTimeout marks a fetch that failed specifically by exceeding its
// deadline, as opposed to any other transport failure.
const TagTimeout = "timeout"

// Fetcher retrieves the raw status page body.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// Store loads and saves the prior sample by check identity.
type Store interface {
	Load(key string) (rate.Stored, bool, error)
	Save(key string, sample rate.Stored) error
}

// Result is the final outcome of one invocation.
type Result struct {
	// Status is the severity handed to the renderer.
	Status threshold.Severity

	// Summary is the single-line human-readable outcome.
	Summary string

	// Tag distinguishes failure classes; TagTimeout for deadline expiry,
	// empty otherwise.
	Tag string

	// Metrics holds the derived metrics plus raw counters for machine
	// consumption. Nil when the check failed before computing anything.
	Metrics map[string]float64
}

// Runner executes the check pipeline. Now and Sleep default to the real
// clock; tests inject both.
type Runner struct {
	Fetcher Fetcher
	Store   Store

	// Key is the check identity the prior sample is stored under.
	Key string

	// Rules is the compiled threshold configuration.
	Rules []threshold.Rule

	Now   func() time.Time
	Sleep func(time.Duration)
}

// Run performs one complete check. It never returns an error: every failure
// mode maps to a terminal Result so the caller always has exactly one
// verdict to render.
func (r *Runner) Run(ctx context.Context) Result {
	cur, res, ok := r.observe(ctx)
	if !ok {
		return res
	}
	now := r.now()

	prior, found, err := r.Store.Load(r.Key)
	if err != nil {
		// A corrupt or unreadable entry is recoverable: fall through to the
		// bootstrap path and rebuild the sample from scratch.
		slog.Warn("check: loading prior sample failed, bootstrapping", "err", err)
		found = false
	}

	if !found {
		slog.Debug("check: cold start, bootstrapping prior sample")
		prior = rate.Stored{
			CapturedAt:    float64(now.UnixNano()) / float64(time.Second),
			TotalRequests: cur.TotalRequests,
			TotalBytes:    cur.TotalBytes,
		}
		if err := r.Store.Save(r.Key, prior); err != nil {
			slog.Warn("check: persisting bootstrap sample failed", "err", err)
		}
		r.sleep(bootstrapWait)

		// Second observation; its failures are terminal exactly like the
		// first's.
		cur, res, ok = r.observe(ctx)
		if !ok {
			return res
		}
		now = r.now()
	}

	metrics, next := rate.Compute(prior, cur, now)

	// Persist before evaluating so a threshold bug can never corrupt the
	// state the next run depends on. A persistence failure must not eat the
	// verdict either — surface it and carry on.
	var note string
	if err := r.Store.Save(r.Key, next); err != nil {
		slog.Warn("check: persisting sample failed", "key", r.Key, "err", err)
		note = " [state not saved: " + collapse(err.Error()) + "]"
	}

	v := threshold.Evaluate(named(metrics, cur), r.Rules)
	return Result{
		Status:  v.Status,
		Summary: v.Summary + note,
		Metrics: v.Metrics,
	}
}

// observe performs one fetch+decode cycle. ok is false when the returned
// Result is terminal.
func (r *Runner) observe(ctx context.Context) (*scoreboard.Sample, Result, bool) {
	body, err := r.Fetcher.Fetch(ctx)
	if err != nil {
		if errors.Is(err, fetch.ErrTimeout) {
			slog.Warn("check: fetch timed out", "err", err)
			return nil, Result{
				Status:  threshold.Critical,
				Summary: collapse(err.Error()),
				Tag:     TagTimeout,
			}, false
		}
		slog.Warn("check: fetch failed", "err", err)
		return nil, Result{
			Status:  threshold.Critical,
			Summary: collapse(err.Error()),
		}, false
	}

	sample, err := scoreboard.Decode(body)
	if err != nil {
		slog.Warn("check: undecodable status body", "err", err)
		return nil, Result{
			Status:  threshold.Unknown,
			Summary: scoreboard.ErrUnparseable.Error(),
		}, false
	}
	return sample, Result{}, true
}

// named maps the derived metrics onto their threshold keys and appends the
// raw counters for machine consumption.
func named(m rate.Metrics, cur *scoreboard.Sample) map[string]float64 {
	out := map[string]float64{
		threshold.KeyIdleWorker: m.IdleWorkers,
		threshold.KeyReqPerSec:  m.RequestsPerSecond,
		threshold.KeyBytPerReq:  m.BytesPerRequest,
		threshold.KeyBytPerSec:  m.BytesPerSecond,

		"total_accesses": float64(cur.TotalRequests),
		"total_bytes":    float64(cur.TotalBytes),
		"busyworkers":    float64(cur.BusyWorkers),
	}
	for state, n := range cur.WorkerStates {
		out["workers_"+state] = float64(n)
	}
	return out
}

// collapse folds an error message onto a single line for plugin output.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) sleep(d time.Duration) {
	if r.Sleep != nil {
		r.Sleep(d)
		return
	}
	time.Sleep(d)
}
