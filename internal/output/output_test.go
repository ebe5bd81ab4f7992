package output

import (
	"strings"
	"testing"

	"github.com/httpdwatch/httpdwatch/internal/check"
	"github.com/httpdwatch/httpdwatch/internal/threshold"
)

func sampleResult() check.Result {
	return check.Result{
		Status:  threshold.Warning,
		Summary: "idleworker: 7.000 (WARNING lt 10), reqpersec: 5.000, bytperreq: 512.000bytes, bytpersec: 1706.667bytes",
		Metrics: map[string]float64{
			threshold.KeyIdleWorker: 7,
			threshold.KeyReqPerSec:  5,
			threshold.KeyBytPerReq:  512,
			threshold.KeyBytPerSec:  1706.667,
			"total_accesses":        1000,
			"busyworkers":           3,
			"workers_waiting":       7,
		},
	}
}

// --- Exit codes ---

func TestExitCode(t *testing.T) {
	tests := []struct {
		sev  threshold.Severity
		want int
	}{
		{threshold.OK, 0},
		{threshold.Warning, 1},
		{threshold.Critical, 2},
		{threshold.Unknown, 3},
		{threshold.Severity(42), 3}, // anything out of range degrades to UNKNOWN
	}
	for _, tc := range tests {
		if got := ExitCode(tc.sev); got != tc.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tc.sev, got, tc.want)
		}
	}
}

// --- Nagios rendering ---

func TestNagios_LineShape(t *testing.T) {
	rules := []threshold.Rule{
		{Metric: threshold.KeyIdleWorker, Op: "lt", Bound: 10, Severity: threshold.Warning},
		{Metric: threshold.KeyIdleWorker, Op: "lt", Bound: 2, Severity: threshold.Critical},
	}
	line := Nagios(sampleResult(), rules)

	if !strings.HasPrefix(line, "WARNING - idleworker: 7.000") {
		t.Errorf("line = %q, want WARNING prefix with summary", line)
	}
	if strings.Count(line, "|") != 1 {
		t.Fatalf("line = %q, want exactly one perfdata separator", line)
	}
	perf := strings.SplitN(line, "|", 2)[1]
	if !strings.Contains(perf, "idleworker=7.000;10;2;0") {
		t.Errorf("perfdata = %q, want idleworker with warn/crit bounds", perf)
	}
	if !strings.Contains(perf, "bytperreq=512.000B;;;0") {
		t.Errorf("perfdata = %q, want byte unit and empty bounds for bytperreq", perf)
	}
}

func TestNagios_TerminalFailureHasNoPerfdata(t *testing.T) {
	res := check.Result{
		Status:  threshold.Critical,
		Summary: "fetch: timeout: context deadline exceeded",
		Tag:     check.TagTimeout,
	}
	line := Nagios(res, nil)

	if line != "CRITICAL - fetch: timeout: context deadline exceeded" {
		t.Errorf("line = %q", line)
	}
	if strings.Contains(line, "|") {
		t.Errorf("terminal failure line must not carry perfdata: %q", line)
	}
}

func TestNagios_UnknownParse(t *testing.T) {
	res := check.Result{Status: threshold.Unknown, Summary: "unable to parse content"}
	if got := Nagios(res, nil); got != "UNKNOWN - unable to parse content" {
		t.Errorf("line = %q", got)
	}
}

// --- Prometheus rendering ---

func TestProm_Exposition(t *testing.T) {
	text, err := Prom(sampleResult())
	if err != nil {
		t.Fatalf("Prom() error = %v", err)
	}

	wantLines := []string{
		"httpd_check_status 1",
		"httpd_idle_workers 7",
		"httpd_requests_per_second 5",
		"httpd_accesses_total 1000",
		"httpd_busy_workers 3",
		"httpd_workers_waiting 7",
	}
	for _, want := range wantLines {
		if !strings.Contains(text, want) {
			t.Errorf("exposition missing %q:\n%s", want, text)
		}
	}
	if !strings.Contains(text, "# TYPE httpd_idle_workers gauge") {
		t.Errorf("exposition missing TYPE line:\n%s", text)
	}
}

func TestProm_TerminalFailureStillExportsStatus(t *testing.T) {
	res := check.Result{Status: threshold.Unknown, Summary: "unable to parse content"}
	text, err := Prom(res)
	if err != nil {
		t.Fatalf("Prom() error = %v", err)
	}
	if !strings.Contains(text, "httpd_check_status 3") {
		t.Errorf("exposition = %q, want httpd_check_status 3", text)
	}
}

func TestProm_Deterministic(t *testing.T) {
	first, err := Prom(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		got, err := Prom(sampleResult())
		if err != nil {
			t.Fatal(err)
		}
		if got != first {
			t.Fatalf("exposition differs across runs:\n%s\nvs\n%s", got, first)
		}
	}
}
