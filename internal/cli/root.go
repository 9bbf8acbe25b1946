// Package cli implements the runnerguard command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/runnerguard/runnerguard/internal/catalog"
	"github.com/runnerguard/runnerguard/internal/observability"
	"github.com/runnerguard/runnerguard/internal/observability/logging"
	"github.com/runnerguard/runnerguard/internal/observability/metrics"
	otelobs "github.com/runnerguard/runnerguard/internal/observability/otel"
	"github.com/runnerguard/runnerguard/internal/observability/receipt"
	"github.com/runnerguard/runnerguard/internal/version"
	"github.com/spf13/cobra"
)

// EnvProfile names the profile when --profile is empty
const EnvProfile = "RUNNERGUARD_PROFILE"

// ErrBlocked is returned when any resource has a blocking violation
var ErrBlocked = errors.New("policy check failed")

// app holds per-invocation state shared by every command
type app struct {
	logFormat       string
	logLevel        string
	logOutput       string
	otelEnabled     bool
	otelEndpoint    string
	otelProtocol    string
	otelInsecure    bool
	metricsTextfile string
	receiptPath     string
	receiptMode     string

	args     []string
	logger   logging.Logger
	handle   *otelobs.Handle
	recorder *metrics.Recorder
	receipts receipt.Writer
}

// Execute runs the CLI with os.Args and exits non-zero on failure
func Execute() {
	os.Exit(Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// Run executes one invocation and returns the process exit code
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{args: args}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "runnerguard",
		Short: "Policy engine for GitHub Actions Runner Controller fleets",
		Long: `runnerguard evaluates ARC runner scale sets against security, compliance,
performance, cost, operations and networking rules, scores fleet compliance
and applies safe additive fixes.`,
		Version:           version.String(),
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.logFormat, "log-format", logging.FormatPretty, "Log format: pretty, jsonl or off")
	flags.StringVar(&a.logLevel, "log-level", logging.LevelWarn, "Minimum log level: debug, info, warn or error")
	flags.StringVar(&a.logOutput, "log-output", "stderr", "Log destination: stderr, stdout or a file path")
	flags.BoolVar(&a.otelEnabled, "otel", false, "Export OpenTelemetry traces")
	flags.StringVar(&a.otelEndpoint, "otel-endpoint", "", "OTLP endpoint (default from OTEL_EXPORTER_OTLP_ENDPOINT)")
	flags.StringVar(&a.otelProtocol, "otel-protocol", otelobs.ProtocolHTTP, "OTLP protocol: otlphttp or otlpgrpc")
	flags.BoolVar(&a.otelInsecure, "otel-insecure", false, "Disable TLS for the OTLP exporter")
	flags.StringVar(&a.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file on exit")
	flags.StringVar(&a.receiptPath, "receipt", "", "Write an audit receipt for the run to this file")
	flags.StringVar(&a.receiptMode, "receipt-mode", string(receipt.ModeOverwrite), "Receipt write mode: overwrite or append (JSONL)")

	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newReportCmd(a))
	root.AddCommand(newRulesCmd(a))
	root.AddCommand(newProfilesCmd())
	return root
}

// setup attaches the op id, logger, tracer and receipt writer to the command context
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	ctx := withArgs(observability.WithOpID(cmd.Context()), a.args)

	logger, err := logging.NewLogger(logging.Config{
		Format: a.logFormat,
		Level:  a.logLevel,
		Output: a.logOutput,
		OpID:   observability.OpID(ctx),
	})
	if err != nil {
		return fmt.Errorf("invalid logging flags: %w", err)
	}
	a.logger = logger
	ctx = logging.WithLogger(ctx, logger)

	if a.otelEnabled {
		cfg := otelobs.DefaultConfig()
		cfg.Enabled = true
		cfg.Endpoint = a.otelEndpoint
		cfg.Protocol = a.otelProtocol
		cfg.Insecure = a.otelInsecure
		cfg.CatalogVersion = catalog.Version
		cfg.CatalogRules = len(catalog.IDs())
		cfg.Profile = requestedProfile(cmd)
		h, err := otelobs.Init(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.handle = h
		ctx = otelobs.WithHandle(ctx, h)
	}

	if a.receiptPath != "" {
		mode, err := receipt.ParseMode(a.receiptMode)
		if err != nil {
			return err
		}
		w, err := receipt.NewWriter(a.receiptPath, mode)
		if err != nil {
			return err
		}
		a.receipts = w
		ctx = receipt.WithWriter(ctx, w)
	}

	a.recorder = metrics.NewRecorder()
	cmd.SetContext(ctx)
	return nil
}

// requestedProfile is the profile named by --profile or the environment. Detection and
// configuration files resolve the final profile later, so this may be empty.
func requestedProfile(cmd *cobra.Command) string {
	if f := cmd.Flags().Lookup("profile"); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	return os.Getenv(EnvProfile)
}

// close flushes traces, metrics and receipts. It runs even when the command failed.
func (a *app) close() error {
	var errs []error
	if a.handle != nil && a.handle.Shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.handle.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush traces: %w", err))
		}
	}
	if a.metricsTextfile != "" && a.recorder != nil {
		if err := a.recorder.WriteTextfile(a.metricsTextfile); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	if a.receipts != nil {
		if err := a.receipts.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close receipt: %w", err))
		}
	}
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
