// Package threshold evaluates named numeric metrics against operator rules
// and produces a severity verdict with a reproducible one-line summary.
//
// Rules are written <metric>:<operator>:<bound> with operators lt, le, eq,
// ne, ge, gt, and are supplied separately for WARNING and CRITICAL severity.
// For a given metric CRITICAL rules are tested first so the worse severity
// wins ties; across metrics the verdict is the maximum severity. The engine
// itself never returns UNKNOWN — that status is reserved for upstream fetch
// and parse failures.
package threshold
