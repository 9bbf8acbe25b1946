package cli

import (
	"context"

	"github.com/runnerguard/runnerguard/internal/manifest"
	"github.com/runnerguard/runnerguard/internal/observability/receipt"
	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

type reportOptions struct {
	policyFlags
	file      string
	namespace string
	format    string
}

func newReportCmd(a *app) *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report -f <manifests>",
		Short: "Score fleet compliance",
		Long: `Evaluates the manifests and prints the overall compliance score, violation
tallies and recommendations. --namespace limits the report to one namespace.

Examples:
  runnerguard report -f fleet.yaml --profile enterprise
  runnerguard report -f fleet.yaml --namespace arc-runners --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReport(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Manifest file (YAML or JSON, multi-document); - for stdin")
	cmd.Flags().StringVarP(&opts.namespace, "namespace", "n", "", "Only score resources in this namespace")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	_ = cmd.MarkFlagRequired("file")
	opts.register(cmd)
	return cmd
}

func (a *app) runReport(cmd *cobra.Command, opts *reportOptions) error {
	return instrument(cmd.Context(), "report", func(ctx context.Context) (string, error) {
		if err := checkFormat(opts.format); err != nil {
			return "fail", err
		}
		receipt.Record(ctx, receipt.WithManifest(opts.file), receipt.WithConfig(opts.configFile))
		objs, err := manifest.Load(opts.file)
		if err != nil {
			return "fail", err
		}
		objs = inNamespace(objs, opts.namespace)

		engine, _, err := a.engine(ctx, &opts.policyFlags, cmd.ErrOrStderr())
		if err != nil {
			return "fail", err
		}
		results, err := engine.EvaluateAll(ctx, objs)
		if err != nil {
			return "fail", err
		}

		report := engine.GenerateComplianceReport(results, opts.namespace)
		receipt.Record(ctx, receipt.WithEvaluation(evaluationSummary(engine.Table(), "", objs, results, report)))
		if err := render(cmd, opts.format, report, func() string { return FormatReportText(report) }); err != nil {
			return "fail", err
		}
		return "success", nil
	})
}

func inNamespace(objs []*unstructured.Unstructured, namespace string) []*unstructured.Unstructured {
	if namespace == "" {
		return objs
	}
	var out []*unstructured.Unstructured
	for _, obj := range objs {
		if obj.GetNamespace() == namespace {
			out = append(out, obj)
		}
	}
	return out
}
