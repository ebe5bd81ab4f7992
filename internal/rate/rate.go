package rate

import (
	"time"

	"github.com/httpdwatch/httpdwatch/internal/scoreboard"
)

// Stored is the persisted subset of a sample: the two cumulative counters and
// the moment they were observed. It is what the state store round-trips
// between invocations.
type Stored struct {
	// CapturedAt is a unix timestamp with fractional seconds.
	CapturedAt float64 `json:"captured_at"`

	TotalRequests uint64 `json:"total_requests"`
	TotalBytes    uint64 `json:"total_bytes"`
}

// Metrics is the derived output consumed by the threshold engine. Values are
// kept at full precision; rendering rounds to three decimals.
type Metrics struct {
	IdleWorkers       float64
	RequestsPerSecond float64
	BytesPerSecond    float64
	BytesPerRequest   float64
}

// Compute derives rate metrics from the prior stored sample and the current
// decoded sample, and returns the Stored value to persist for the next run.
//
// Callers must guarantee a prior sample exists — on a cold start the
// orchestrator bootstraps one first. Two guards apply:
//
//   - Counter reset: when the prior request counter exceeds the current one
//     the service restarted and zeroed its counters; the prior is treated as
//     zero so rates stay non-negative instead of wrapping.
//   - Zero traffic: when the current request counter is zero all derived
//     rates are zero, which also keeps the bytes-per-request division safe.
//
// The returned Stored always carries the raw current counters, even after a
// reset — the zeroed prior is an effective value for this computation only.
func Compute(prior Stored, current *scoreboard.Sample, now time.Time) (Metrics, Stored) {
	next := Stored{
		CapturedAt:    unixSeconds(now),
		TotalRequests: current.TotalRequests,
		TotalBytes:    current.TotalBytes,
	}

	m := Metrics{IdleWorkers: float64(current.IdleWorkers)}

	if current.TotalRequests == 0 {
		return m, next
	}

	effective := prior
	if prior.TotalRequests > current.TotalRequests {
		effective.TotalRequests = 0
		effective.TotalBytes = 0
	}
	if effective.TotalBytes > current.TotalBytes {
		// Byte counter regressed without a request-counter reset. Clamp so
		// the unsigned subtraction below cannot wrap.
		effective.TotalBytes = current.TotalBytes
	}

	// Floor the elapsed time at one second so two samples landing in the
	// same instant cannot divide by zero.
	delta := unixSeconds(now) - prior.CapturedAt
	if delta < 1 {
		delta = 1
	}

	m.RequestsPerSecond = float64(current.TotalRequests-effective.TotalRequests) / delta
	m.BytesPerSecond = float64(current.TotalBytes-effective.TotalBytes) / delta
	m.BytesPerRequest = float64(current.TotalBytes) / float64(current.TotalRequests)
	return m, next
}

// unixSeconds converts t to a unix timestamp with fractional seconds.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
