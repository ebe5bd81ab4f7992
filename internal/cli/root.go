package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/httpdwatch/httpdwatch/internal/check"
	"github.com/httpdwatch/httpdwatch/internal/config"
	"github.com/httpdwatch/httpdwatch/internal/fetch"
	"github.com/httpdwatch/httpdwatch/internal/output"
	"github.com/httpdwatch/httpdwatch/internal/state"
	"github.com/httpdwatch/httpdwatch/internal/threshold"
)

// Execute runs the httpdwatch command and returns the process exit code:
// the verdict's 0/1/2/3 on a completed check, UNKNOWN's 3 on configuration
// or setup failure.
func Execute() int {
	code := output.ExitCode(threshold.Unknown)
	cmd := newRootCommand(&code)
	if err := cmd.Execute(); err != nil {
		// Setup failures (bad flag, bad config, unopenable state file) get
		// the same one-line, machine-consumed output shape as a verdict.
		fmt.Printf("UNKNOWN - %v\n", err)
		return output.ExitCode(threshold.Unknown)
	}
	return code
}

func newRootCommand(exitCode *int) *cobra.Command {
	var (
		configPath string
		cfg        = config.Default()
	)

	cmd := &cobra.Command{
		Use:   "httpdwatch",
		Short: "Nagios-style health check for Apache httpd mod_status",
		Long: `httpdwatch polls an httpd server-status page, derives request and traffic
rates against the sample persisted by the previous invocation, classifies the
result against warning/critical threshold rules, and prints one plugin line.

Threshold rules take the form <metric>:<operator>:<bound>, with metrics
idleworker, reqpersec, bytperreq, bytpersec and operators lt, le, eq, ne,
ge, gt. Example:

  httpdwatch -H web01 -w idleworker:lt:10 -c idleworker:lt:2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			merged, err := mergeConfig(cmd, cfg, configPath)
			if err != nil {
				return err
			}
			setupLogging(merged.Verbose)
			return run(cmd.Context(), cmd.OutOrStdout(), merged, exitCode)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfg.Host, "host", "H", "", "address to connect to (name, IPv4, or IPv6 literal)")
	f.IntVarP(&cfg.Port, "port", "p", 0, "port (default 80, or 443 with --ssl)")
	f.StringVarP(&cfg.Path, "path", "u", config.DefaultPath, "status page location, query included")
	f.BoolVarP(&cfg.SSL, "ssl", "S", false, "connect over https")
	f.StringVar(&cfg.VHost, "vhost", "", "Host header override for virtual-host probing")
	f.StringVar(&cfg.Auth.Username, "user", "", "basic auth username")
	f.StringVar(&cfg.Auth.PasswordEnv, "password-env", "", "environment variable holding the basic auth password")
	f.BoolVarP(&cfg.InsecureSkipVerify, "insecure", "k", false, "skip TLS certificate verification")
	f.BoolVarP(&cfg.IPv6, "ipv6", "6", false, "dial over IPv6 only")
	f.IntVarP(&cfg.Timeout, "timeout", "t", config.DefaultTimeoutSeconds, "fetch timeout in seconds")
	f.StringArrayVarP(&cfg.Thresholds.Warning, "warning", "w", nil, "warning rule <metric>:<operator>:<bound> (repeatable)")
	f.StringArrayVarP(&cfg.Thresholds.Critical, "critical", "c", nil, "critical rule <metric>:<operator>:<bound> (repeatable)")
	f.StringVar(&cfg.StateFile, "state-file", config.DefaultStateFile(), "bbolt file holding the prior sample")
	f.StringVar(&cfg.Format, "format", config.DefaultFormat, "output format: nagios | prom")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug logging on stderr")
	f.StringVarP(&configPath, "config", "f", "", "YAML config file; flags override its values")

	return cmd
}

// mergeConfig resolves the effective configuration: file values where given,
// overridden by any flag the operator actually set, then validated.
func mergeConfig(cmd *cobra.Command, flags *config.Config, configPath string) (*config.Config, error) {
	cfg := flags
	if configPath != "" {
		fileCfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		overlayFlags(cmd, fileCfg, flags)
		cfg = fileCfg
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overlayFlags copies explicitly-set flag values over the file config.
func overlayFlags(cmd *cobra.Command, dst, flags *config.Config) {
	set := func(name string) bool { return cmd.Flags().Changed(name) }

	if set("host") {
		dst.Host = flags.Host
	}
	if set("port") {
		dst.Port = flags.Port
	}
	if set("path") {
		dst.Path = flags.Path
	}
	if set("ssl") {
		dst.SSL = flags.SSL
	}
	if set("vhost") {
		dst.VHost = flags.VHost
	}
	if set("user") {
		dst.Auth.Username = flags.Auth.Username
	}
	if set("password-env") {
		dst.Auth.PasswordEnv = flags.Auth.PasswordEnv
	}
	if set("insecure") {
		dst.InsecureSkipVerify = flags.InsecureSkipVerify
	}
	if set("ipv6") {
		dst.IPv6 = flags.IPv6
	}
	if set("timeout") {
		dst.Timeout = flags.Timeout
	}
	if set("warning") {
		dst.Thresholds.Warning = flags.Thresholds.Warning
	}
	if set("critical") {
		dst.Thresholds.Critical = flags.Thresholds.Critical
	}
	if set("state-file") {
		dst.StateFile = flags.StateFile
	}
	if set("format") {
		dst.Format = flags.Format
	}
	if set("verbose") {
		dst.Verbose = flags.Verbose
	}
}

// setupLogging sends structured logs to stderr — stdout belongs to the
// monitoring pipeline.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// run executes one check and prints the rendered result to out.
func run(ctx context.Context, out io.Writer, cfg *config.Config, exitCode *int) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := state.Open(cfg.StateFile)
	if err != nil {
		return err
	}
	defer store.Close()

	client := fetch.New(fetch.Options{
		Scheme:             cfg.Scheme(),
		Host:               cfg.Host,
		Port:               cfg.Port,
		Path:               cfg.Path,
		HostHeader:         cfg.VHost,
		Username:           cfg.Auth.Username,
		Password:           cfg.Auth.Password(),
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		PreferIPv6:         cfg.IPv6,
		Timeout:            cfg.FetchTimeout(),
	})
	slog.Debug("check starting", "url", client.URL(), "identity", cfg.Identity())

	runner := &check.Runner{
		Fetcher: client,
		Store:   store,
		Key:     cfg.Identity(),
		Rules:   cfg.Rules(),
	}
	res := runner.Run(ctx)
	slog.Debug("check finished", "status", res.Status.String(), "tag", res.Tag)

	switch cfg.Format {
	case "prom":
		text, err := output.Prom(res)
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
	default:
		fmt.Fprintln(out, output.Nagios(res, cfg.Rules()))
	}

	*exitCode = output.ExitCode(res.Status)
	return nil
}
