package profile

import (
	"strings"
	"unicode"
)

type keywordGroup struct {
	name  string
	rules []keywordRule
}

type keywordRule struct {
	profile  string
	keywords []string
}

// detection order: compliance frameworks, industries, infrastructure, generic environments.
// Within a group the first listed profile with a hit wins, so specific entries precede broad ones.
var keywordTable = []keywordGroup{
	{
		name: "compliance",
		rules: []keywordRule{
			{"fedramp-high", []string{"fedramp high", "fedramp-high", "il5", "impact level 5"}},
			{"fedramp-moderate", []string{"fedramp moderate", "fedramp-moderate", "il4"}},
			{"fedramp", []string{"fedramp", "fisma", "nist 800-53"}},
			{"hipaa", []string{"hipaa", "phi", "hitech"}},
			{"pci-dss", []string{"pci-dss", "pci dss", "pci", "cardholder"}},
			{"sox", []string{"sox", "sarbanes-oxley", "sarbanes oxley"}},
			{"gdpr", []string{"gdpr", "personal data", "data protection"}},
		},
	},
	{
		name: "industry",
		rules: []keywordRule{
			{"financial", []string{"bank", "banking", "fintech", "finance", "financial", "trading", "payments"}},
			{"healthcare", []string{"healthcare", "health", "hospital", "medical", "clinic", "patient"}},
			{"government", []string{"government", "gov", "federal", "agency", "public sector", "defense"}},
			{"education", []string{"education", "university", "school", "campus", "student", "academic"}},
			{"aiml", []string{"ai", "ml", "ai/ml", "machine learning", "gpu", "training", "llm", "model training"}},
			{"research", []string{"research", "lab", "laboratory", "science", "experiment"}},
		},
	},
	{
		name: "infrastructure",
		rules: []keywordRule{
			{"air-gapped", []string{"air-gapped", "air gapped", "airgapped", "disconnected", "offline"}},
			{"zero-trust", []string{"zero-trust", "zero trust", "zerotrust"}},
			{"high-security", []string{"high-security", "high security", "hardened", "classified"}},
			{"multi-tenant", []string{"multi-tenant", "multi tenant", "multitenant", "shared cluster", "tenants"}},
			{"edge", []string{"edge", "retail store", "branch office"}},
			{"iot", []string{"iot", "internet of things", "devices", "firmware"}},
			{"embedded", []string{"embedded", "microcontroller", "rtos"}},
		},
	},
	{
		name: "generic",
		rules: []keywordRule{
			{"production", []string{"production", "prod", "live", "customer-facing"}},
			{"staging", []string{"staging", "stage", "pre-production", "preprod", "uat", "qa"}},
			{"enterprise", []string{"enterprise", "corporate", "large organization"}},
			{"startup", []string{"startup", "start-up", "small team", "mvp"}},
			{"development", []string{"development", "dev", "sandbox", "local", "test", "testing"}},
		},
	},
}

// Detect maps a free-text environment description to a profile id. No hit yields Default.
func Detect(query string) string {
	name, _ := DetectWithGroup(query)
	return name
}

// DetectWithGroup also reports which keyword group matched ("" for the fallback)
func DetectWithGroup(query string) (string, string) {
	q := " " + normalize(query) + " "
	if strings.TrimSpace(q) == "" {
		return Default, ""
	}
	for _, group := range keywordTable {
		for _, rule := range group.rules {
			for _, kw := range rule.keywords {
				if strings.Contains(q, " "+normalize(kw)+" ") {
					return rule.profile, group.name
				}
			}
		}
	}
	return Default, ""
}

// normalize lower-cases and collapses everything but letters, digits, '-' and '/' into single spaces
func normalize(s string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '/' {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
