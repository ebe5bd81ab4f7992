// Package config holds the immutable per-invocation check configuration.
//
// A Config can come from an optional YAML file (Load), from CLI flags, or
// both with flags winning. Validate compiles the threshold rule strings and
// rejects bad rules before any network traffic happens. Identity derives the
// stable state-store key for this check so successive invocations against
// the same target share one prior sample.
//
// The basic-auth password is never stored in the config; auth.password_env
// names an environment variable and the value is resolved at use time.
package config
