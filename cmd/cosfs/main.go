// Command cosfs browses and manipulates a COS/S3 object store as a
// hierarchical filesystem.
//
// Usage:
//
//	cosfs [global flags] <command> [flags] [args]
//
// Run "cosfs help" for the list of commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/marmos91/cosfs/internal/logger"
	"github.com/marmos91/cosfs/pkg/config"
	"github.com/marmos91/cosfs/pkg/metrics"
)

// globalOptions are the flags accepted before the command name.
type globalOptions struct {
	configPath string
	logLevel   string
	endpoint   string
	storeType  string
	stats      bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one CLI invocation and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opts globalOptions
	flags := pflag.NewFlagSet("cosfs", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default: $XDG_CONFIG_HOME/cosfs/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	flags.StringVar(&opts.endpoint, "endpoint", "", "Store endpoint override (default: config, then $COS_ENDPOINT)")
	flags.StringVar(&opts.storeType, "store", "", "Store type override (s3, memory)")
	flags.BoolVar(&opts.stats, "stats", false, "Print store and cache metrics to stderr on exit")
	flags.Usage = func() { printUsage(stderr, flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if flags.NArg() == 0 {
		printUsage(stderr, flags)
		return 2
	}

	name, cmdArgs := flags.Arg(0), flags.Args()[1:]
	if name == "help" {
		printUsage(stdout, flags)
		return 0
	}

	if name == "init" {
		if err := runInit(opts, cmdArgs, stdout, stderr); err != nil {
			_, _ = fmt.Fprintf(stderr, "cosfs: init: %v\n", err)
			return 1
		}
		return 0
	}

	cmd, ok := lookupCommand(name)
	if !ok {
		_, _ = fmt.Fprintf(stderr, "cosfs: unknown command %q\n\n", name)
		printUsage(stderr, flags)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, opts, cmd, cmdArgs, stdin, stdout, stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "cosfs: %s: %v\n", name, err)
		return 1
	}
	return 0
}

// execute loads the configuration, builds the filesystem and runs cmd.
func execute(ctx context.Context, opts globalOptions, cmd *command, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	closer, err := configureLogging(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	m := config.InitializeMetrics(cfg)
	if m.Server != nil {
		serverCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := m.Server.Start(serverCtx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	fs, err := config.CreateFileSystem(ctx, cfg, m)
	if err != nil {
		return err
	}

	a := &app{fs: fs, stdin: stdin, stdout: stdout, stderr: stderr}
	runErr := cmd.run(ctx, a, args)

	if opts.stats {
		cs := fs.CacheStats()
		_, _ = fmt.Fprintf(stderr, "# listing cache: entries=%d hits=%d misses=%d evictions=%d invalidations=%d\n",
			cs.Entries, cs.Hits, cs.Misses, cs.Evictions, cs.Invalidations)
		if err := metrics.WriteStats(stderr); err != nil {
			logger.Warn("Failed to write stats: %v", err)
		}
	}

	return runErr
}

// applyOverrides applies global flags on top of the loaded configuration.
func applyOverrides(cfg *config.Config, opts globalOptions) {
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.endpoint != "" {
		cfg.Store.Endpoint = opts.endpoint
	}
	if opts.storeType != "" {
		cfg.Store.Type = opts.storeType
	}
	if opts.stats {
		cfg.Metrics.Enabled = true
	}
	config.ApplyDefaults(cfg)
}

// configureLogging applies the logging section. The returned closer
// releases the log file, if any.
func configureLogging(cfg config.LoggingConfig) (io.Closer, error) {
	logger.SetLevel(cfg.Level)
	logger.SetFormat(cfg.Format)
	closer, err := logger.SetOutput(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to configure log output: %w", err)
	}
	return closer, nil
}

// runInit writes a default configuration file.
func runInit(opts globalOptions, args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("init", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	force := flags.BoolP("force", "f", false, "Overwrite an existing config file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	path := opts.configPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Configuration written to %s\n", path)
	return nil
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	_, _ = fmt.Fprintln(w, "Usage: cosfs [global flags] <command> [flags] [args]")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Commands:")
	_, _ = fmt.Fprintf(w, "  %-8s %s\n", "init", "Write a default configuration file")
	for _, c := range commands {
		_, _ = fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Global flags:")
	_, _ = fmt.Fprint(w, flags.FlagUsages())
}
