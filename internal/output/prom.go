package output

import (
	"fmt"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/httpdwatch/httpdwatch/internal/check"
	"github.com/httpdwatch/httpdwatch/internal/threshold"
)

// Prometheus metric names for the declared check metrics.
var promNames = map[string]string{
	threshold.KeyIdleWorker: "httpd_idle_workers",
	threshold.KeyReqPerSec:  "httpd_requests_per_second",
	threshold.KeyBytPerReq:  "httpd_bytes_per_request",
	threshold.KeyBytPerSec:  "httpd_bytes_per_second",
	"total_accesses":        "httpd_accesses_total",
	"total_bytes":           "httpd_sent_bytes_total",
	"busyworkers":           "httpd_busy_workers",
}

// Prom renders the result as a Prometheus text exposition, suitable for the
// node_exporter textfile collector. The check verdict itself is exported as
// httpd_check_status with the 0/1/2/3 severity value, so a terminal failure
// still produces a scrapeable document.
func Prom(res check.Result) (string, error) {
	fams := []*dto.MetricFamily{
		gauge("httpd_check_status", "Check verdict: 0 OK, 1 warning, 2 critical, 3 unknown.",
			float64(ExitCode(res.Status))),
	}

	// Alphabetical key order keeps the exposition byte-stable across runs.
	keys := make([]string, 0, len(res.Metrics))
	for k := range res.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name, ok := promNames[k]
		if !ok {
			if state, found := strings.CutPrefix(k, "workers_"); found {
				name = "httpd_workers_" + state
			} else {
				continue
			}
		}
		fams = append(fams, gauge(name, "", res.Metrics[k]))
	}

	var b strings.Builder
	enc := expfmt.NewEncoder(&b, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range fams {
		if err := enc.Encode(mf); err != nil {
			return "", fmt.Errorf("output: encode %s: %w", mf.GetName(), err)
		}
	}
	return b.String(), nil
}

// gauge builds a single-sample gauge MetricFamily.
func gauge(name, help string, value float64) *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: strPtr(name),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{
			{Gauge: &dto.Gauge{Value: float64Ptr(value)}},
		},
	}
	if help != "" {
		mf.Help = strPtr(help)
	}
	return mf
}

func strPtr(s string) *string       { return &s }
func float64Ptr(v float64) *float64 { return &v }
