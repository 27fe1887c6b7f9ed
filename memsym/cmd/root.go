// Package cmd provides the command-line interface for memsym.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/memsym/cpu"
	"github.com/sarchlab/memsym/mem/vm/tlb"
	"github.com/sarchlab/memsym/simulation"
)

// Exit codes of the command.
const (
	ExitOK    = 0
	ExitUsage = 1
	ExitHalt  = 2
)

type options struct {
	dbName      string
	monitor     bool
	monitorPort int
	openBrowser bool
	logLevel    string
	tlbSets     int
	tlbWays     int
}

// rootCmd represents the base command when called without any subcommands
var rootCmd *cobra.Command

func newRootCmd(o *options) *cobra.Command {
	c := &cobra.Command{
		Use:   "memsym <FIFO|LRU> <input-trace> <output-trace>",
		Short: "memsym runs an instruction trace through a simulated TLB.",
		Long: `memsym interprets an instruction trace against a simulated ` +
			`virtual memory system with a TLB and per-process page tables, ` +
			`and writes what every instruction did to the output trace.`,
		Args:          cobra.ExactArgs(3),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd.Context(), cmd.ErrOrStderr(), o, args)
		},
	}

	flags := c.Flags()
	flags.StringVar(&o.dbName, "db", os.Getenv("MEMSYM_DB"),
		"record the run into <name>.sqlite3")
	flags.BoolVar(&o.monitor, "monitor", false,
		"serve the final state over HTTP until interrupted")
	flags.IntVar(&o.monitorPort, "monitor-port", envInt("MEMSYM_MONITOR_PORT"),
		"port of the monitoring server, 0 for any free port")
	flags.BoolVar(&o.openBrowser, "open-browser", false,
		"open the monitoring page in a browser")
	flags.StringVar(&o.logLevel, "log-level", envOr("MEMSYM_LOG_LEVEL", "info"),
		"diagnostics level: debug, info, warn, or error")
	flags.IntVar(&o.tlbSets, "tlb-sets", 1, "number of TLB sets")
	flags.IntVar(&o.tlbWays, "tlb-ways", 8, "number of TLB ways per set")

	return c
}

func init() {
	// A missing .env file is fine; the environment is used as is.
	_ = godotenv.Load()

	rootCmd = newRootCmd(&options{})
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return fallback
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}

	return v
}

// errUsage marks errors that happen before any instruction runs.
var errUsage = errors.New("invalid invocation")

func run(ctx context.Context, stderr io.Writer, o *options, args []string) error {
	logger := newLogger(stderr, o.logLevel)

	policy, err := tlb.ParsePolicy(args[0])
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	if o.tlbSets < 1 || o.tlbWays < 1 {
		return fmt.Errorf("%w: the TLB needs at least one set and one way",
			errUsage)
	}

	if o.openBrowser && !o.monitor {
		return fmt.Errorf("%w: --open-browser requires --monitor", errUsage)
	}

	input, err := os.Open(args[1])
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	defer input.Close()

	output, err := os.Create(args[2])
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	defer output.Close()

	b := simulation.MakeBuilder().
		WithOutput(output).
		WithLogger(logger).
		WithPolicy(policy).
		WithTLBGeometry(o.tlbSets, o.tlbWays)

	if o.dbName != "" {
		b = b.WithDataRecording(o.dbName)
	}

	if o.monitor {
		b = b.WithMonitoring(o.monitorPort)
		if o.openBrowser {
			b = b.WithBrowser()
		}
	}

	s, err := b.Build()
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	runErr := s.Run(input)

	if err := s.Terminate(); err != nil {
		logger.Error("cannot close the database", "error", err)
	}

	if o.monitor {
		if ctx == nil {
			ctx = context.Background()
		}

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("serving the final state, press Ctrl-C to exit")

		if err := s.Serve(sigCtx); err != nil {
			logger.Error("monitor stopped", "error", err)
		}
	}

	return runErr
}

// exitCode maps the result of a run to the process exit code.
func exitCode(err error) int {
	var haltErr *cpu.HaltError

	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &haltErr):
		return ExitHalt
	default:
		return ExitUsage
	}
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	err := rootCmd.Execute()

	var haltErr *cpu.HaltError
	if err != nil && !errors.As(err, &haltErr) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}

	atexit.Exit(exitCode(err))
}
