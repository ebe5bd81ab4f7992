// Package output renders a check result for the invoking monitoring system:
// a Nagios plugin line with perfdata and the conventional 0/1/2/3 exit code,
// or a Prometheus text exposition for textfile-collector pipelines.
package output
