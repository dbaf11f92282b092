package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

type Runner struct {
	Version string
	Now     func() time.Time
	Stdout  io.Writer
	Stderr  io.Writer
}

type rootOptions struct {
	logLevel  string
	logFormat string
}

func (r Runner) Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.RunContext(ctx, args)
}

// RunContext executes one command line and returns the process exit code.
func (r Runner) RunContext(ctx context.Context, args []string) int {
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}
	if r.Stderr == nil {
		r.Stderr = os.Stderr
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	// Logs and "-" progress events share stderr from several goroutines.
	r.Stderr = &syncWriter{w: r.Stderr}

	root := r.newRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var ce *CliError
	if !errors.As(err, &ce) {
		// Anything cobra rejects on its own (unknown command or flag) is a
		// usage error.
		ce = usageError(err.Error())
	}
	fmt.Fprintf(r.Stderr, "%s: %s\n", ce.Code, ce.Message)
	if ce.Exit == exitUsage {
		cmd := root
		if c, _, findErr := root.Find(args); findErr == nil && c != nil {
			cmd = c
		}
		fmt.Fprint(r.Stderr, cmd.UsageString())
	}
	return ce.Exit
}

func (r Runner) newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	prod := &productionOptions{}

	root := &cobra.Command{
		Use:   "dcprod -c <steering> -o <output> -e <evtio_extractor>",
		Short: "Run a direct Cherenkov CORSIKA production",
		Long: `dcprod lays out a fresh output directory, copies the steering file and the
CORSIKA installation into it, and runs CORSIKA followed by the eventio
extractor once per (nucleus, run) on a pool of workers.`,
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(opts.logLevel, opts.logFormat, r.Stderr)
			if err != nil {
				return usageError(err.Error())
			}
			defer func() { _ = log.Sync() }()
			return r.runProduction(cmd, prod, log)
		},
	}
	root.SetOut(r.Stdout)
	root.SetErr(r.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err.Error())
	})
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	pf.StringVar(&opts.logFormat, "log-format", "console", "log format: console|json")

	prod.bind(root)

	root.AddCommand(r.newInitCmd())
	root.AddCommand(r.newDoctorCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), r.Version)
		},
	})
	return root
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError(fmt.Sprintf("%s: unexpected argument %q", cmd.Name(), args[0]))
	}
	return nil
}

func (r Runner) writeJSON(v any) error {
	enc := json.NewEncoder(r.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return &CliError{Code: codeIO, Message: "failed to encode json", Exit: exitFailed}
	}
	return nil
}

func requireFlag(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return usageError(fmt.Sprintf("missing required flag --%s", name))
	}
	return nil
}
