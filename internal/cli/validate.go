package cli

import (
	"context"
	"fmt"

	"github.com/runnerguard/runnerguard/internal/manifest"
	"github.com/runnerguard/runnerguard/internal/models"
	"github.com/runnerguard/runnerguard/internal/observability/receipt"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

type validateOptions struct {
	policyFlags
	file   string
	format string
	fix    bool
	out    string
}

func newValidateCmd(a *app) *cobra.Command {
	opts := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate -f <manifests>",
		Short: "Evaluate runner manifests against the active policy",
		Long: `Evaluates every object in the manifest file against the resolved rule table.

Fails when any resource has a violation at or above the blocking severity.
With --fix, fixable violations are remediated additively and the fixed
manifests are written to --out; the outcome reflects the fixed resources.

Examples:
  runnerguard validate -f runners.yaml --profile production
  runnerguard validate -f runners.yaml --env "HIPAA healthcare production" --format json
  runnerguard validate -f runners.yaml --config policy.yaml --fix --out fixed.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Manifest file (YAML or JSON, multi-document); - for stdin")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&opts.fix, "fix", false, "Apply automatic remediations")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write fixed manifests to this file (with --fix)")
	_ = cmd.MarkFlagRequired("file")
	opts.register(cmd)
	return cmd
}

func (a *app) runValidate(cmd *cobra.Command, opts *validateOptions) error {
	return instrument(cmd.Context(), "validate", func(ctx context.Context) (string, error) {
		if err := checkFormat(opts.format); err != nil {
			return "fail", err
		}
		if opts.out != "" && !opts.fix {
			return "fail", fmt.Errorf("--out requires --fix")
		}

		receipt.Record(ctx, receipt.WithManifest(opts.file), receipt.WithConfig(opts.configFile))
		objs, err := manifest.Load(opts.file)
		if err != nil {
			return "fail", err
		}
		engine, warnings, err := a.engine(ctx, &opts.policyFlags, cmd.ErrOrStderr())
		if err != nil {
			return "fail", err
		}

		results, err := engine.EvaluateAll(ctx, objs)
		if err != nil {
			return "fail", err
		}

		var fixes []*models.AutoFixResult
		fixed := objs
		if opts.fix {
			fixes = make([]*models.AutoFixResult, len(objs))
			fixed = make([]*unstructured.Unstructured, len(objs))
			for i, obj := range objs {
				fr := engine.AutoFix(obj, results[i].All())
				fixes[i] = &fr
				fixed[i] = fr.FixedResource
				results[i] = engine.EvaluateResource(fr.FixedResource, "")
			}
			if opts.out != "" {
				if err := manifest.WriteFile(opts.out, fixed); err != nil {
					return "fail", err
				}
			}
			receipt.Record(ctx, receipt.WithAutoFix(autoFixSummary(fixes, opts.out)))
		}

		report := engine.GenerateComplianceReport(results, "")
		out := BuildValidateResult(engine.Table(), results, fixes, report, warnings)
		receipt.Record(ctx, receipt.WithEvaluation(evaluationSummary(engine.Table(), out.Outcome, fixed, results, report)))
		if err := render(cmd, opts.format, out, func() string { return FormatTextOutput(out) }); err != nil {
			return "fail", err
		}

		if out.Outcome == OutcomeFail {
			return "blocked", ErrBlocked
		}
		return "success", nil
	})
}

func checkFormat(format string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format: %s (use text or json)", format)
	}
	return nil
}

// render writes v as JSON, or the text form
func render(cmd *cobra.Command, format string, v interface{}, text func() string) error {
	if format == "json" {
		data, err := FormatJSONOutput(v)
		if err != nil {
			return fmt.Errorf("failed to format JSON output: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), text())
	return nil
}
