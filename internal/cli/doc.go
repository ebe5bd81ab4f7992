// Package cli wires flags, config file, logging, and the check pipeline into
// the httpdwatch command. Configuration errors never touch the network: they
// render as UNKNOWN before any fetch.
package cli
