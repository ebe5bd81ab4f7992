package rate

import (
	"math"
	"testing"
	"time"

	"github.com/httpdwatch/httpdwatch/internal/scoreboard"
)

// baseTime is a fixed reference point so all test timings are deterministic.
var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// tick returns baseTime advanced by n seconds.
func tick(n int) time.Time {
	return baseTime.Add(time.Duration(n) * time.Second)
}

// stored builds a Stored sample captured n seconds after baseTime.
func stored(n int, requests, bytes uint64) Stored {
	return Stored{
		CapturedAt:    unixSeconds(tick(n)),
		TotalRequests: requests,
		TotalBytes:    bytes,
	}
}

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// --- Normal delta computation ---

func TestCompute_Rates(t *testing.T) {
	// 60 seconds between samples, 300 new requests, 100 kB of new traffic.
	prior := stored(0, 700, 400*1024)
	cur := &scoreboard.Sample{
		TotalRequests: 1000,
		TotalBytes:    500 * 1024,
		BusyWorkers:   3,
		IdleWorkers:   7,
	}

	m, next := Compute(prior, cur, tick(60))

	if !almostEqual(m.RequestsPerSecond, 5.0, 0.0001) {
		t.Errorf("RequestsPerSecond = %.4f, want 5.0000", m.RequestsPerSecond)
	}
	wantBPS := float64(100*1024) / 60
	if !almostEqual(m.BytesPerSecond, wantBPS, 0.0001) {
		t.Errorf("BytesPerSecond = %.4f, want %.4f", m.BytesPerSecond, wantBPS)
	}
	wantBPR := float64(500*1024) / 1000
	if !almostEqual(m.BytesPerRequest, wantBPR, 0.0001) {
		t.Errorf("BytesPerRequest = %.4f, want %.4f", m.BytesPerRequest, wantBPR)
	}
	if m.IdleWorkers != 7 {
		t.Errorf("IdleWorkers = %.0f, want 7", m.IdleWorkers)
	}

	if next.TotalRequests != 1000 || next.TotalBytes != 500*1024 {
		t.Errorf("next sample = %+v, want raw current counters", next)
	}
	if !almostEqual(next.CapturedAt, unixSeconds(tick(60)), 0.0001) {
		t.Errorf("next.CapturedAt = %f, want %f", next.CapturedAt, unixSeconds(tick(60)))
	}
}

// --- Counter reset ---

func TestCompute_CounterReset(t *testing.T) {
	// Service restarted: current counters far below the prior ones.
	prior := stored(0, 700, 400*1024)
	cur := &scoreboard.Sample{TotalRequests: 50, TotalBytes: 10 * 1024}

	m, next := Compute(prior, cur, tick(60))

	// Effective prior is zero, so the rate is 50/60, never negative.
	if !almostEqual(m.RequestsPerSecond, 50.0/60.0, 0.0001) {
		t.Errorf("RequestsPerSecond after reset = %.4f, want %.4f", m.RequestsPerSecond, 50.0/60.0)
	}
	if m.RequestsPerSecond < 0 || m.BytesPerSecond < 0 {
		t.Errorf("rates after reset must be non-negative, got %+v", m)
	}

	// The raw current values are persisted, not the zeroed effective prior.
	if next.TotalRequests != 50 || next.TotalBytes != 10*1024 {
		t.Errorf("next sample after reset = %+v, want raw current counters", next)
	}
}

func TestCompute_ByteCounterRegression(t *testing.T) {
	// Bytes regressed while requests kept climbing (32-bit kbyte wrap).
	prior := stored(0, 100, 1 << 30)
	cur := &scoreboard.Sample{TotalRequests: 200, TotalBytes: 1024}

	m, _ := Compute(prior, cur, tick(10))
	if m.BytesPerSecond != 0 {
		t.Errorf("BytesPerSecond with regressed bytes = %.4f, want 0", m.BytesPerSecond)
	}
	if m.RequestsPerSecond != 10 {
		t.Errorf("RequestsPerSecond = %.4f, want 10", m.RequestsPerSecond)
	}
}

// --- Zero-traffic guard ---

func TestCompute_ZeroTraffic(t *testing.T) {
	priors := []Stored{
		stored(0, 0, 0),
		stored(0, 700, 400*1024), // even with nonzero prior
	}
	for _, prior := range priors {
		cur := &scoreboard.Sample{TotalRequests: 0, TotalBytes: 0, IdleWorkers: 5}
		m, next := Compute(prior, cur, tick(60))
		if m.RequestsPerSecond != 0 || m.BytesPerSecond != 0 || m.BytesPerRequest != 0 {
			t.Errorf("zero-traffic rates = %+v, want all zero", m)
		}
		if m.IdleWorkers != 5 {
			t.Errorf("IdleWorkers = %.0f, want 5", m.IdleWorkers)
		}
		if next.TotalRequests != 0 {
			t.Errorf("next.TotalRequests = %d, want 0", next.TotalRequests)
		}
	}
}

// --- Elapsed-time floor ---

func TestCompute_DeltaFlooredToOneSecond(t *testing.T) {
	prior := stored(0, 100, 1024)
	cur := &scoreboard.Sample{TotalRequests: 160, TotalBytes: 2048}

	// Same instant: delta would be 0, floored to 1s.
	m, _ := Compute(prior, cur, tick(0))
	if !almostEqual(m.RequestsPerSecond, 60, 0.0001) {
		t.Errorf("RequestsPerSecond with zero elapsed = %.4f, want 60 (1s floor)", m.RequestsPerSecond)
	}

	// Sub-second elapsed also floors to 1s.
	m, _ = Compute(prior, cur, baseTime.Add(200*time.Millisecond))
	if !almostEqual(m.RequestsPerSecond, 60, 0.0001) {
		t.Errorf("RequestsPerSecond with 200ms elapsed = %.4f, want 60 (1s floor)", m.RequestsPerSecond)
	}
}

func TestUnixSeconds_Fractional(t *testing.T) {
	ts := baseTime.Add(1500 * time.Millisecond)
	got := unixSeconds(ts)
	want := float64(baseTime.Unix()) + 1.5
	if !almostEqual(got, want, 0.0001) {
		t.Errorf("unixSeconds = %f, want %f", got, want)
	}
}
