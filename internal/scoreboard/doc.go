// Package scoreboard decodes the machine-readable Apache mod_status page
// (?auto format) into cumulative counters and a per-state worker histogram.
//
// The page carries four labeled cumulative fields (Total Accesses,
// Total kBytes, BusyWorkers, IdleWorkers) followed by a Scoreboard line with
// one character per worker slot. Decode is tolerant of arbitrary whitespace
// and field casing but requires the fields in that order; anything else is
// ErrUnparseable.
package scoreboard
