package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dshills/bindkit/internal/config"
	"github.com/dshills/bindkit/internal/dump"
	"github.com/dshills/bindkit/internal/logging"
	"github.com/dshills/bindkit/internal/metrics"
)

// cli is the state shared by every subcommand. It is filled in after flags
// are parsed.
type cli struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	logLevel   string
	logFormat  string
	output     string
	noColor    bool

	cfg      *config.Config
	log      *logging.Logger
	dumper   *dump.Dumper
	metrics  *metrics.Metrics
	registry *prometheus.Registry
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:   "bindkit",
		Short: "Inspect and exercise property bindings",
		Long: highlight("bindkit [global options] <command> [args]") + "\n\n" +
			"bindkit drives the binding engine from the command line: it evaluates\n" +
			"property paths and expressions against documents and runs a headless\n" +
			"demonstration of two-way bindings, watches and actions.\n",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "Path to a TOML or YAML configuration file")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&c.logFormat, "log-format", "", "Log format (text, json)")
	flags.StringVarP(&c.output, "output", "o", "", "Dump format (json, yaml)")
	flags.BoolVar(&c.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(
		newVersionCommand(c),
		newEvalCommand(c),
		newDemoCommand(c),
	)
	return cmd
}

func (c *cli) setup(cmd *cobra.Command) error {
	if _, ok := os.LookupEnv("NO_COLOR"); ok || c.noColor {
		color.NoColor = true
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	if c.output != "" {
		cfg.Dump.Format = strings.ToLower(c.output)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	c.log = logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: logging.Format(cfg.Log.Format),
		Output: c.errOut,
		Name:   cmd.Root().Name(),
	})
	c.dumper = dump.New(
		dump.WithFormat(dump.Format(cfg.Dump.Format)),
		dump.WithIndent(cfg.Dump.Indent),
		dump.WithColor(cfg.Dump.Color && !color.NoColor),
		dump.WithRedact(cfg.Dump.Redact...),
	)
	if cfg.Metrics.Enabled {
		c.metrics = metrics.New(cfg.Metrics.Namespace)
		c.registry = prometheus.NewRegistry()
		c.metrics.MustRegister(c.registry)
	}
	return nil
}

// event prints a colored "kind: message" line.
func (c *cli) event(kind string, format string, args ...any) {
	label := color.New(color.FgCyan, color.Bold).Sprint(kind)
	fmt.Fprintf(c.out, "%s: %s\n", label, fmt.Sprintf(format, args...))
}

func highlight(format string, a ...any) string {
	return color.RGB(50, 108, 229).Sprintf(format, a...)
}
