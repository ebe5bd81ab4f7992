package output

import (
	"fmt"
	"strings"

	"github.com/httpdwatch/httpdwatch/internal/check"
	"github.com/httpdwatch/httpdwatch/internal/threshold"
)

// ExitCode maps a severity to the conventional plugin exit code:
// 0 OK, 1 WARNING, 2 CRITICAL, 3 UNKNOWN.
func ExitCode(s threshold.Severity) int {
	if s < threshold.OK || s > threshold.Unknown {
		return int(threshold.Unknown)
	}
	return int(s)
}

// Nagios renders the single-line plugin output:
//
//	WARNING - idleworker: 7.000 (WARNING lt 10), ... | idleworker=7.000;10;;0 ...
//
// Perfdata is emitted only when metrics were computed; terminal failures
// produce just the status and summary.
func Nagios(res check.Result, rules []threshold.Rule) string {
	var b strings.Builder
	b.WriteString(res.Status.String())
	b.WriteString(" - ")
	b.WriteString(res.Summary)

	if res.Metrics != nil {
		b.WriteString(" | ")
		b.WriteString(perfdata(res.Metrics, rules))
	}
	return b.String()
}

// perfdata renders 'label'=value[UOM];[warn];[crit];[min] tokens for the
// declared metrics, in display order. The warn/crit slots carry the first
// configured bound per severity so graphing tools can draw the thresholds.
func perfdata(metrics map[string]float64, rules []threshold.Rule) string {
	tokens := make([]string, 0, len(threshold.DisplayOrder))
	for _, key := range threshold.DisplayOrder {
		uom := ""
		if threshold.Unit(key) == "bytes" {
			uom = "B"
		}
		tokens = append(tokens, fmt.Sprintf("%s=%.3f%s;%s;%s;0",
			key, metrics[key], uom,
			bound(rules, key, threshold.Warning),
			bound(rules, key, threshold.Critical)))
	}
	return strings.Join(tokens, " ")
}

// bound returns the first configured bound for the metric at the given
// severity, or "" when none is set.
func bound(rules []threshold.Rule, key string, sev threshold.Severity) string {
	for _, r := range rules {
		if r.Metric == key && r.Severity == sev {
			return fmt.Sprintf("%g", r.Bound)
		}
	}
	return ""
}
