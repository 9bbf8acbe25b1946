package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/runnerguard/runnerguard/internal/config"
	"github.com/runnerguard/runnerguard/internal/models"
	"github.com/runnerguard/runnerguard/internal/observability/logging"
	"github.com/runnerguard/runnerguard/internal/policy"
	"github.com/spf13/cobra"
)

// policyFlags select the configuration shared by validate and report
type policyFlags struct {
	configFile   string
	profile      string
	environment  string
	strictConfig bool
	workers      int
}

func (p *policyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&p.configFile, "config", "c", "", "Policy configuration file (JSON or YAML)")
	cmd.Flags().StringVarP(&p.profile, "profile", "p", "", "Environment profile (default $"+EnvProfile+")")
	cmd.Flags().StringVar(&p.environment, "env", "", `Free-text environment description used to detect a profile, e.g. "HIPAA healthcare production"`)
	cmd.Flags().BoolVar(&p.strictConfig, "strict-config", false, "Fail on an invalid configuration instead of falling back to built-in defaults")
	cmd.Flags().IntVar(&p.workers, "workers", 0, "Concurrent evaluations (default GOMAXPROCS)")
}

// configuration merges the file with flag and environment overrides
func (p *policyFlags) configuration() (*models.PolicyConfiguration, error) {
	cfg := &models.PolicyConfiguration{}
	if p.configFile != "" {
		loaded, err := config.Load(p.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	switch {
	case p.profile != "":
		cfg.Profile = p.profile
	case cfg.Profile == "" && os.Getenv(EnvProfile) != "":
		cfg.Profile = os.Getenv(EnvProfile)
	}
	if p.environment != "" {
		cfg.Environment = p.environment
	}
	return cfg, nil
}

// engine builds a policy engine. Invalid configuration falls back to built-in defaults
// with a warning unless --strict-config is set.
func (a *app) engine(ctx context.Context, p *policyFlags, stderr io.Writer) (*policy.Engine, []string, error) {
	log := logging.From(ctx)
	e, err := policy.NewEngine(
		policy.WithLogger(log),
		policy.WithMetrics(a.recorder),
		policy.WithWorkers(p.workers),
	)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := p.configuration()
	if err == nil {
		var warnings []string
		warnings, err = e.ApplyConfiguration(cfg)
		if err == nil {
			return e, warnings, nil
		}
	}

	if p.strictConfig {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	warning := fmt.Sprintf("configuration ignored, using built-in defaults: %v", err)
	fmt.Fprintf(stderr, "%sWarning:%s %s\n", colorYellow, colorReset, warning)
	return e, []string{warning}, nil
}
