// Package check sequences one invocation: fetch → decode → load prior
// sample → compute rates → persist → evaluate thresholds. Any stage failure
// short-circuits to a terminal result: CRITICAL for transport failures (with
// a distinct timeout tag), UNKNOWN for an unparseable body. On a cold start
// the runner bootstraps a prior sample with an extra fetch so rate metrics
// always have two observations to work from.
package check
