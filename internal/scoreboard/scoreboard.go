package scoreboard

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrUnparseable is returned when the status body does not match the expected
// structure. Callers surface it as an UNKNOWN check result, not CRITICAL —
// it means the check is pointed at the wrong thing, not that the service is
// unhealthy.
var ErrUnparseable = errors.New("unable to parse content")

// Worker-state names keyed by their scoreboard symbol.
//
// The vocabulary is fixed by mod_status:
//
//	_  waiting for connection     C  closing connection
//	S  starting up                L  logging
//	R  reading request            G  gracefully finishing
//	W  sending reply              I  idle cleanup
//	K  keepalive read             .  open slot
//	D  DNS lookup
var stateNames = map[byte]string{
	'_': "waiting",
	'S': "startup",
	'R': "reading_request",
	'W': "sending_reply",
	'K': "keepalive",
	'D': "dns_lookup",
	'C': "closing_connection",
	'L': "logging",
	'G': "graceful_finish",
	'I': "idle_cleanup",
	'.': "open_slot",
}

// States returns the fixed vocabulary of worker-state names.
func States() []string {
	out := make([]string, 0, len(stateNames))
	for _, name := range stateNames {
		out = append(out, name)
	}
	return out
}

// Sample is one decoded snapshot of the status page.
type Sample struct {
	// TotalRequests is the cumulative request count since httpd started.
	TotalRequests uint64

	// TotalBytes is the cumulative traffic in bytes. The status page reports
	// kilobytes; Decode normalizes to bytes.
	TotalBytes uint64

	// BusyWorkers and IdleWorkers are the labeled worker counts from the page.
	BusyWorkers int
	IdleWorkers int

	// WorkerStates holds the scoreboard histogram. Every vocabulary state is
	// present, zero-filled when unseen. Newlines and characters outside the
	// vocabulary are excluded.
	WorkerStates map[string]int
}

// statusRe matches the four leading cumulative fields in fixed order,
// case-insensitively, then captures the remainder of the Scoreboard line
// through end of body. (?s) lets the scoreboard span line breaks — large
// worker pools wrap.
var statusRe = regexp.MustCompile(
	`(?is)total accesses:\s*(\d+).*?total kbytes:\s*(\d+).*?busyworkers:\s*(\d+).*?idleworkers:\s*(\d+).*?scoreboard:[ \t]*(.*)$`)

// Decode parses the raw text body of a mod_status page into a Sample.
func Decode(body string) (*Sample, error) {
	m := statusRe.FindStringSubmatch(body)
	if m == nil {
		return nil, ErrUnparseable
	}

	accesses, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("scoreboard: total accesses %q: %w", m[1], ErrUnparseable)
	}
	kbytes, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("scoreboard: total kbytes %q: %w", m[2], ErrUnparseable)
	}
	busy, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, fmt.Errorf("scoreboard: busyworkers %q: %w", m[3], ErrUnparseable)
	}
	idle, err := strconv.Atoi(m[4])
	if err != nil {
		return nil, fmt.Errorf("scoreboard: idleworkers %q: %w", m[4], ErrUnparseable)
	}

	return &Sample{
		TotalRequests: accesses,
		TotalBytes:    kbytes * 1024,
		BusyWorkers:   busy,
		IdleWorkers:   idle,
		WorkerStates:  histogram(m[5]),
	}, nil
}

// histogram counts scoreboard characters into the fixed-vocabulary state map.
// Every state is present in the output even at zero. Newlines are skipped,
// as is anything outside the vocabulary.
func histogram(board string) map[string]int {
	h := make(map[string]int, len(stateNames))
	for _, name := range stateNames {
		h[name] = 0
	}
	for i := 0; i < len(board); i++ {
		if name, ok := stateNames[board[i]]; ok {
			h[name]++
		}
	}
	return h
}
