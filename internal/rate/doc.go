// Package rate derives per-second traffic rates from two point-in-time
// samples of httpd's cumulative counters, handling counter resets across
// service restarts.
package rate
