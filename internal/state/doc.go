// Package state persists the last-seen sample between invocations in a
// bbolt key-value file, keyed by check identity. A missing key is a normal
// cold start, not an error.
package state
