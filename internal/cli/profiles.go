package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/runnerguard/runnerguard/internal/models"
	"github.com/runnerguard/runnerguard/internal/profile"
	"github.com/spf13/cobra"
)

// ProfileOutput is one row of profiles list
type ProfileOutput struct {
	Name        string                                     `json:"name"`
	Description string                                     `json:"description"`
	Enforcement map[models.Category]models.EnforcementMode `json:"enforcement"`
	Parameters  map[string]float64                         `json:"parameters,omitempty"`
}

// DetectOutput result of profiles detect
type DetectOutput struct {
	Query   string `json:"query"`
	Profile string `json:"profile"`
	Group   string `json:"group,omitempty"`
}

func newProfilesCmd() *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "Environment profiles",
	}

	var listFormat string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List built-in environment profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return instrument(cmd.Context(), "profiles.list", func(ctx context.Context) (string, error) {
				return runProfilesList(cmd, listFormat)
			})
		},
	}
	listCmd.Flags().StringVar(&listFormat, "format", "text", "Output format: text or json")

	var detectFormat string
	detectCmd := &cobra.Command{
		Use:   `detect "<environment description>"`,
		Short: "Detect the profile for a free-text environment description",
		Long: `Matches compliance, industry, infrastructure and generic keywords in order
and prints the first matching profile, or the default profile.

Example:
  runnerguard profiles detect "HIPAA healthcare production"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return instrument(cmd.Context(), "profiles.detect", func(ctx context.Context) (string, error) {
				return runProfilesDetect(cmd, strings.Join(args, " "), detectFormat)
			})
		},
	}
	detectCmd.Flags().StringVar(&detectFormat, "format", "text", "Output format: text or json")

	profilesCmd.AddCommand(listCmd, detectCmd)
	return profilesCmd
}

func runProfilesList(cmd *cobra.Command, format string) (string, error) {
	if err := checkFormat(format); err != nil {
		return "fail", err
	}
	rows := []ProfileOutput{}
	for _, p := range profile.List() {
		rows = append(rows, ProfileOutput{
			Name:        p.Name,
			Description: p.Description,
			Enforcement: p.Enforcement,
			Parameters:  p.Parameters,
		})
	}
	if err := render(cmd, format, rows, func() string { return formatProfiles(rows) }); err != nil {
		return "fail", err
	}
	return "success", nil
}

func formatProfiles(rows []ProfileOutput) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tENFORCEMENT\tDESCRIPTION")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, enforcementSummary(r.Enforcement), r.Description)
	}
	_ = w.Flush()
	return sb.String()
}

// enforcementSummary renders "security=strict,cost=advisory" in category order
func enforcementSummary(m map[models.Category]models.EnforcementMode) string {
	if len(m) == 0 {
		return "defaults"
	}
	var parts []string
	for _, cat := range models.Categories {
		if mode, ok := m[cat]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", cat, mode))
		}
	}
	return strings.Join(parts, ",")
}

func runProfilesDetect(cmd *cobra.Command, query, format string) (string, error) {
	if err := checkFormat(format); err != nil {
		return "fail", err
	}
	name, group := profile.DetectWithGroup(query)
	out := DetectOutput{Query: query, Profile: name, Group: group}
	err := render(cmd, format, out, func() string {
		if group == "" {
			return fmt.Sprintf("%s (no keyword matched, using default)\n", name)
		}
		return fmt.Sprintf("%s (matched %s keywords)\n", name, group)
	})
	if err != nil {
		return "fail", err
	}
	return "success", nil
}
