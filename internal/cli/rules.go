package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/runnerguard/runnerguard/internal/digest"
	"github.com/runnerguard/runnerguard/internal/models"
	"github.com/spf13/cobra"
)

// RuleOutput is one row of rules list
type RuleOutput struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category models.Category `json:"category"`
	Severity models.Severity `json:"severity"`
	Enabled  bool            `json:"enabled"`
	AutoFix  bool            `json:"autoFix"`
	Custom   bool            `json:"custom,omitempty"`
}

type rulesOptions struct {
	policyFlags
	category string
	format   string
}

func newRulesCmd(a *app) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the effective rule table",
	}

	opts := &rulesOptions{}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List rules with their resolved severity and auto-fix setting",
		Long: `Lists built-in and custom rules as resolved for the selected profile and configuration.

Examples:
  runnerguard rules list
  runnerguard rules list --category security --profile fedramp-high`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRulesList(cmd, opts)
		},
	}
	listCmd.Flags().StringVar(&opts.category, "category", "", "Only list rules in this category")
	listCmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	opts.register(listCmd)

	rulesCmd.AddCommand(listCmd)
	return rulesCmd
}

func (a *app) runRulesList(cmd *cobra.Command, opts *rulesOptions) error {
	return instrument(cmd.Context(), "rules.list", func(ctx context.Context) (string, error) {
		if err := checkFormat(opts.format); err != nil {
			return "fail", err
		}
		if opts.category != "" && !models.Category(strings.ToLower(opts.category)).Valid() {
			return "fail", fmt.Errorf("unknown category %q", opts.category)
		}

		engine, _, err := a.engine(ctx, &opts.policyFlags, cmd.ErrOrStderr())
		if err != nil {
			return "fail", err
		}

		table := engine.Table()
		rows := []RuleOutput{}
		for _, rule := range engine.ListRules(opts.category) {
			er, _ := table.Get(rule.ID)
			rows = append(rows, RuleOutput{
				ID:       rule.ID,
				Name:     rule.Name,
				Category: rule.Category,
				Severity: er.Severity,
				Enabled:  rule.Enabled,
				AutoFix:  er.AutoFix,
				Custom:   er.Custom,
			})
		}

		text := func() string {
			sum, _ := digest.Table(table)
			return formatRules(table.Profile(), sum, rows)
		}
		if err := render(cmd, opts.format, rows, text); err != nil {
			return "fail", err
		}
		return "success", nil
	})
}

func formatRules(profile, tableDigest string, rows []RuleOutput) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Profile: %s\n", profile))
	if tableDigest != "" {
		sb.WriteString(fmt.Sprintf("Rule table: %s\n", tableDigest))
	}
	sb.WriteString("\n")

	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tSEVERITY\tENABLED\tAUTOFIX\tNAME")
	for _, r := range rows {
		name := r.Name
		if r.Custom {
			name += " (custom)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Category, r.Severity, yesNo(r.Enabled), yesNo(r.AutoFix), name)
	}
	_ = w.Flush()
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
