package threshold

import (
	"fmt"
	"strconv"
	"strings"
)

// Severity is the classified outcome of a check, ordered so that a numeric
// maximum picks the worse verdict. The values double as Nagios exit codes.
type Severity int

const (
	OK Severity = iota
	Warning
	Critical
	Unknown
)

// String returns the conventional upper-case monitoring label.
func (s Severity) String() string {
	switch s {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// The declared metric keys. Rules may only reference these.
const (
	KeyIdleWorker = "idleworker"
	KeyReqPerSec  = "reqpersec"
	KeyBytPerReq  = "bytperreq"
	KeyBytPerSec  = "bytpersec"
)

// DisplayOrder fixes the order metrics appear in summaries and perfdata.
var DisplayOrder = []string{KeyIdleWorker, KeyReqPerSec, KeyBytPerReq, KeyBytPerSec}

// units maps metric keys to their display unit suffix. Keys without an entry
// are unitless.
var units = map[string]string{
	KeyBytPerReq: "bytes",
	KeyBytPerSec: "bytes",
}

// Unit returns the display unit for a metric key, or "" if it has none.
func Unit(key string) string {
	return units[key]
}

// IsMetric reports whether key is one of the declared metric keys.
func IsMetric(key string) bool {
	for _, k := range DisplayOrder {
		if k == key {
			return true
		}
	}
	return false
}

// Rule is one comparison clause: the named metric is tested with Op against
// Bound, and a match contributes Severity to the verdict.
type Rule struct {
	Metric   string
	Op       string // lt | le | eq | ne | ge | gt
	Bound    float64
	Severity Severity
}

// String renders the rule in its configuration form.
func (r Rule) String() string {
	return fmt.Sprintf("%s:%s:%g", r.Metric, r.Op, r.Bound)
}

func validOp(op string) bool {
	switch op {
	case "lt", "le", "eq", "ne", "ge", "gt":
		return true
	}
	return false
}

// ParseRule parses a <metric>:<operator>:<bound> rule string. Unknown metric
// keys, operators, and malformed bounds are configuration errors — callers
// reject them before any fetch happens.
func ParseRule(spec string, sev Severity) (Rule, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return Rule{}, fmt.Errorf("threshold: rule %q: want <metric>:<operator>:<bound>", spec)
	}
	metric, op, bound := parts[0], parts[1], parts[2]

	if !IsMetric(metric) {
		return Rule{}, fmt.Errorf("threshold: rule %q: unknown metric %q (valid: %s)",
			spec, metric, strings.Join(DisplayOrder, ", "))
	}
	if !validOp(op) {
		return Rule{}, fmt.Errorf("threshold: rule %q: unknown operator %q (valid: lt, le, eq, ne, ge, gt)", spec, op)
	}
	v, err := strconv.ParseFloat(bound, 64)
	if err != nil {
		return Rule{}, fmt.Errorf("threshold: rule %q: bound %q is not a number", spec, bound)
	}

	return Rule{Metric: metric, Op: op, Bound: v, Severity: sev}, nil
}

// ParseRules parses a list of rule strings sharing one severity.
func ParseRules(specs []string, sev Severity) ([]Rule, error) {
	out := make([]Rule, 0, len(specs))
	for _, spec := range specs {
		r, err := ParseRule(spec, sev)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Verdict is the final classified outcome.
type Verdict struct {
	// Status is the maximum severity across all evaluated metrics.
	Status Severity

	// Summary lists every metric in display order with its value, noting the
	// rule that fired when one did. Identical inputs produce identical text.
	Summary string

	// Metrics echoes the evaluated values (plus any extra keys the caller
	// passed through) for machine consumption.
	Metrics map[string]float64
}

// Evaluate classifies metrics against rules.
//
// Each metric in DisplayOrder is tested against its matching rules,
// CRITICAL before WARNING so the worse severity wins when both match.
// Metrics with no matching rule contribute OK and still appear in the
// summary — operators see every tracked value, not just the ones that
// tripped. Keys in metrics outside DisplayOrder are carried into
// Verdict.Metrics untouched.
func Evaluate(metrics map[string]float64, rules []Rule) Verdict {
	v := Verdict{Metrics: make(map[string]float64, len(metrics))}
	for k, val := range metrics {
		v.Metrics[k] = val
	}

	parts := make([]string, 0, len(DisplayOrder))
	for _, key := range DisplayOrder {
		value := metrics[key]
		part := fmt.Sprintf("%s: %.3f%s", key, value, units[key])

		if r, ok := match(key, value, rules); ok {
			part += fmt.Sprintf(" (%s %s %g)", r.Severity, r.Op, r.Bound)
			if r.Severity > v.Status {
				v.Status = r.Severity
			}
		}
		parts = append(parts, part)
	}

	v.Summary = strings.Join(parts, ", ")
	return v
}

// match returns the first rule that fires for the metric, testing all
// CRITICAL rules before any WARNING rule.
func match(key string, value float64, rules []Rule) (Rule, bool) {
	for _, sev := range []Severity{Critical, Warning} {
		for _, r := range rules {
			if r.Metric != key || r.Severity != sev {
				continue
			}
			if compare(value, r.Op, r.Bound) {
				return r, true
			}
		}
	}
	return Rule{}, false
}

// compare applies a named comparison operator.
func compare(v float64, op string, bound float64) bool {
	switch op {
	case "lt":
		return v < bound
	case "le":
		return v <= bound
	case "eq":
		return v == bound
	case "ne":
		return v != bound
	case "ge":
		return v >= bound
	case "gt":
		return v > bound
	default:
		return false
	}
}
