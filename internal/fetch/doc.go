// Package fetch retrieves the raw status page over HTTP(S) with basic auth,
// optional Host-header override, an IPv6 preference, and a hard deadline.
// Timeouts unwrap to ErrTimeout so callers can tag them distinctly from
// other transport failures. A single failed attempt is terminal — the
// invoking scheduler owns retry cadence.
package fetch
