// Package catalog holds the built-in runner fleet governance rules.
package catalog

import (
	"sort"

	"github.com/runnerguard/runnerguard/internal/models"
)

// Version of the built-in rule set
const Version = "2024.3"

// KindAutoscalingRunnerSet is the ARC scale set resource
const KindAutoscalingRunnerSet = "AutoscalingRunnerSet"

const (
	podSpec    = "spec.template.spec"
	containers = podSpec + ".containers[]"
)

// dindPresent matches resources whose runner pods embed Docker-in-Docker
var dindPresent = []models.Condition{
	models.AnyOf{Conditions: []models.Condition{
		withAny(models.Matches(containers+".image", `(^|/)docker:([^@]*-)?dind`)),
		models.FieldEquals{Path: "spec.containerMode.type", Value: "dind", Match: models.MatchAll},
	}},
}

const dindReason = "Docker-in-Docker sidecar requires privileged mode; switch containerMode to kubernetes or use a rootless builder"

func withAny(c models.FieldMatches) models.FieldMatches {
	c.Match = models.MatchAny
	return c
}

var kinds = []string{KindAutoscalingRunnerSet}

func builtin() []models.PolicyRule {
	return []models.PolicyRule{
		{
			ID:              "arc-sec-001",
			Name:            "Runner containers run as non-root",
			Description:     "Every runner container declares a securityContext with runAsNonRoot enabled.",
			Category:        models.CategorySecurity,
			DefaultSeverity: models.SeverityHigh,
			Message:         "Runner container must set securityContext.runAsNonRoot",
			Conditions: []models.Condition{
				models.FieldExists{Path: containers + ".securityContext"},
				models.FieldEquals{Path: containers + ".securityContext.runAsNonRoot", Value: true},
			},
			Remediation: &models.Action{
				Kind: models.ActionInjectSecurityContext,
				Patches: []models.PatchTemplate{
					{Path: containers + ".securityContext", Value: map[string]interface{}{
						"runAsNonRoot": true,
						"runAsUser":    int64(1000),
					}},
					{Path: podSpec + ".securityContext", Value: map[string]interface{}{
						"fsGroup": int64(1000),
					}},
				},
				UnfixableWhen: dindPresent,
				Reason:        dindReason,
			},
		},
		{
			ID:              "arc-sec-002",
			Name:            "Privileged mode disabled",
			Description:     "Runner containers explicitly disable privileged mode.",
			Category:        models.CategorySecurity,
			DefaultSeverity: models.SeverityCritical,
			Message:         "Runner container must set securityContext.privileged to false",
			Conditions: []models.Condition{
				models.FieldEquals{Path: containers + ".securityContext.privileged", Value: false},
			},
			Remediation: &models.Action{
				Kind: models.ActionDisablePrivileged,
				Patches: []models.PatchTemplate{
					{Path: containers + ".securityContext", Value: map[string]interface{}{"privileged": false}},
				},
				UnfixableWhen: dindPresent,
				Reason:        dindReason,
			},
		},
		{
			ID:              "arc-sec-003",
			Name:            "Privilege escalation disabled",
			Description:     "Runner containers set allowPrivilegeEscalation to false.",
			Category:        models.CategorySecurity,
			DefaultSeverity: models.SeverityHigh,
			Message:         "Runner container must set securityContext.allowPrivilegeEscalation to false",
			Conditions: []models.Condition{
				models.FieldEquals{Path: containers + ".securityContext.allowPrivilegeEscalation", Value: false},
			},
			Remediation: &models.Action{
				Kind: models.ActionDisableEscalation,
				Patches: []models.PatchTemplate{
					{Path: containers + ".securityContext", Value: map[string]interface{}{"allowPrivilegeEscalation": false}},
				},
				UnfixableWhen: dindPresent,
				Reason:        dindReason,
			},
		},
		{
			ID:              "arc-sec-004",
			Name:            "Read-only root filesystem",
			Description:     "Runner containers mount their root filesystem read-only; work directories use volumes.",
			Category:        models.CategorySecurity,
			DefaultSeverity: models.SeverityMedium,
			Message:         "Runner container should set securityContext.readOnlyRootFilesystem",
			Conditions: []models.Condition{
				models.FieldEquals{Path: containers + ".securityContext.readOnlyRootFilesystem", Value: true},
			},
		},
		{
			ID:              "arc-sec-005",
			Name:            "Linux capabilities dropped",
			Description:     "Runner containers drop all Linux capabilities they do not need.",
			Category:        models.CategorySecurity,
			DefaultSeverity: models.SeverityMedium,
			Message:         "Runner container must drop Linux capabilities",
			Conditions: []models.Condition{
				models.FieldExists{Path: containers + ".securityContext.capabilities.drop"},
			},
			Remediation: &models.Action{
				Kind: models.ActionDropCapabilities,
				Patches: []models.PatchTemplate{
					{Path: containers + ".securityContext", Value: map[string]interface{}{
						"capabilities": map[string]interface{}{"drop": []interface{}{"ALL"}},
					}},
				},
				UnfixableWhen: dindPresent,
				Reason:        dindReason,
			},
		},
		{
			ID:              "arc-sec-006",
			Name:            "GitHub credentials from a secret",
			Description:     "The scale set references GitHub App or PAT credentials through a Kubernetes secret.",
			Category:        models.CategorySecurity,
			DefaultSeverity: models.SeverityCritical,
			Message:         "githubConfigSecret must reference a Kubernetes secret",
			Conditions: []models.Condition{
				models.FieldExists{Path: "spec.githubConfigSecret"},
			},
		},
		{
			ID:              "arc-comp-001",
			Name:            "Container resource limits",
			Description:     "Runner containers declare CPU and memory limits.",
			Category:        models.CategoryCompliance,
			DefaultSeverity: models.SeverityHigh,
			Message:         "Runner container must declare resources.limits",
			Conditions: []models.Condition{
				models.FieldExists{Path: containers + ".resources.limits"},
			},
			Remediation: &models.Action{
				Kind: models.ActionInjectResourceLimits,
				Patches: []models.PatchTemplate{
					{Path: containers + ".resources", Value: map[string]interface{}{
						"limits": map[string]interface{}{"cpu": "2", "memory": "4Gi"},
					}},
				},
			},
		},
		{
			ID:              "arc-comp-002",
			Name:            "Owner label",
			Description:     "The scale set carries an owner label for audit attribution.",
			Category:        models.CategoryCompliance,
			DefaultSeverity: models.SeverityLow,
			Message:         "metadata.labels.owner must identify the owning team",
			Conditions: []models.Condition{
				models.FieldExists{Path: "metadata.labels.owner"},
			},
		},
		{
			ID:              "arc-comp-003",
			Name:            "Runner group assigned",
			Description:     "Runners register into an explicit runner group instead of Default.",
			Category:        models.CategoryCompliance,
			DefaultSeverity: models.SeverityMedium,
			Message:         "spec.runnerGroup must name a runner group",
			Conditions: []models.Condition{
				models.FieldExists{Path: "spec.runnerGroup"},
			},
		},
		{
			ID:              "arc-comp-004",
			Name:            "GitHub configuration over HTTPS",
			Description:     "The GitHub configuration URL uses HTTPS.",
			Category:        models.CategoryCompliance,
			DefaultSeverity: models.SeverityHigh,
			Message:         "githubConfigUrl must use https",
			Conditions: []models.Condition{
				models.Matches("spec.githubConfigUrl", `^https://`),
			},
		},
		{
			ID:              "arc-perf-001",
			Name:            "Container resource requests",
			Description:     "Runner containers declare CPU and memory requests so the scheduler can place them.",
			Category:        models.CategoryPerformance,
			DefaultSeverity: models.SeverityMedium,
			Message:         "Runner container should declare resources.requests",
			Conditions: []models.Condition{
				models.FieldExists{Path: containers + ".resources.requests"},
			},
			Remediation: &models.Action{
				Kind: models.ActionInjectResourceRequest,
				Patches: []models.PatchTemplate{
					{Path: containers + ".resources", Value: map[string]interface{}{
						"requests": map[string]interface{}{"cpu": "500m", "memory": "1Gi"},
					}},
				},
			},
		},
		{
			ID:              "arc-perf-002",
			Name:            "Warm runner pool",
			Description:     "minRunners keeps idle runners available to absorb job bursts.",
			Category:        models.CategoryPerformance,
			DefaultSeverity: models.SeverityLow,
			Message:         "spec.minRunners is below the configured warm pool size",
			Conditions: []models.Condition{
				models.FieldCompare{Path: "spec.minRunners", Op: models.OpGTE, Value: 1, Param: "minRunners"},
			},
		},
		{
			ID:              "arc-cost-001",
			Name:            "Maximum runners bounded",
			Description:     "maxRunners caps how far the scale set can grow.",
			Category:        models.CategoryCost,
			DefaultSeverity: models.SeverityMedium,
			Message:         "spec.maxRunners must be set",
			Conditions: []models.Condition{
				models.FieldExists{Path: "spec.maxRunners"},
			},
			Remediation: &models.Action{
				Kind: models.ActionSetMaxRunners,
				Patches: []models.PatchTemplate{
					{Path: "spec", Value: map[string]interface{}{"maxRunners": int64(10)}},
				},
			},
		},
		{
			ID:              "arc-cost-002",
			Name:            "Maximum runners below ceiling",
			Description:     "maxRunners stays below the organization's runner ceiling.",
			Category:        models.CategoryCost,
			DefaultSeverity: models.SeverityLow,
			Message:         "spec.maxRunners exceeds the runner ceiling",
			Conditions: []models.Condition{
				models.FieldCompare{Path: "spec.maxRunners", Op: models.OpLT, Value: 101, Param: "maxRunnersCeiling"},
			},
		},
		{
			ID:              "arc-ops-001",
			Name:            "Pinned runner images",
			Description:     "Runner images reference a version tag or digest, never latest.",
			Category:        models.CategoryOperations,
			DefaultSeverity: models.SeverityHigh,
			Message:         "Runner image must be pinned to a version tag or digest",
			Conditions: []models.Condition{
				models.ImagePinned{Path: containers + ".image"},
			},
		},
		{
			ID:              "arc-ops-002",
			Name:            "Image pull policy declared",
			Description:     "Runner containers declare an image pull policy.",
			Category:        models.CategoryOperations,
			DefaultSeverity: models.SeverityLow,
			Message:         "Runner container should set imagePullPolicy",
			Conditions: []models.Condition{
				models.FieldOneOf{Path: containers + ".imagePullPolicy", Values: []interface{}{"IfNotPresent", "Always"}},
			},
			Remediation: &models.Action{
				Kind: models.ActionSetImagePullPolicy,
				Patches: []models.PatchTemplate{
					{Path: containers, Value: map[string]interface{}{"imagePullPolicy": "IfNotPresent"}},
				},
			},
		},
		{
			ID:              "arc-net-001",
			Name:            "Cluster DNS policy",
			Description:     "Runner pods resolve names through cluster DNS.",
			Category:        models.CategoryNetworking,
			DefaultSeverity: models.SeverityMedium,
			Message:         "Runner pod dnsPolicy should be ClusterFirst",
			Conditions: []models.Condition{
				models.FieldEquals{Path: podSpec + ".dnsPolicy", Value: "ClusterFirst"},
			},
			Remediation: &models.Action{
				Kind: models.ActionSetDNSPolicy,
				Patches: []models.PatchTemplate{
					{Path: podSpec, Value: map[string]interface{}{"dnsPolicy": "ClusterFirst"}},
				},
			},
		},
		{
			ID:              "arc-net-002",
			Name:            "Host networking disabled",
			Description:     "Runner pods do not share the node network namespace.",
			Category:        models.CategoryNetworking,
			DefaultSeverity: models.SeverityHigh,
			Message:         "Runner pod must not enable hostNetwork",
			Conditions: []models.Condition{
				models.FieldNotEquals{Path: podSpec + ".hostNetwork", Value: true},
			},
		},
	}
}

// rules is built once; Builtin hands out copies
var rules = func() []models.PolicyRule {
	list := builtin()
	for i := range list {
		list[i].Enabled = true
		list[i].Scope = models.ScopeResource
		list[i].Kinds = kinds
	}
	sort.Slice(list, func(a, b int) bool { return list[a].ID < list[b].ID })
	return list
}()

// Builtin returns the built-in rules ordered by id. The result is safe to modify.
func Builtin() []models.PolicyRule {
	out := make([]models.PolicyRule, len(rules))
	for i, r := range rules {
		out[i] = Clone(r)
	}
	return out
}

// Get a built-in rule by id
func Get(id string) (models.PolicyRule, bool) {
	for _, r := range rules {
		if r.ID == id {
			return Clone(r), true
		}
	}
	return models.PolicyRule{}, false
}

// IDs of the built-in rules
func IDs() []string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}

// Clone copies slices and the remediation so callers never share catalog state
func Clone(r models.PolicyRule) models.PolicyRule {
	r.Kinds = append([]string(nil), r.Kinds...)
	r.Conditions = append([]models.Condition(nil), r.Conditions...)
	if r.Remediation != nil {
		action := *r.Remediation
		action.Patches = append([]models.PatchTemplate(nil), action.Patches...)
		action.UnfixableWhen = append([]models.Condition(nil), action.UnfixableWhen...)
		r.Remediation = &action
	}
	return r
}
