// Package receipt writes audit evidence for each policy run.
package receipt

// SchemaVersion of the receipt document
const SchemaVersion = "1.0"

// Receipt records one command invocation
type Receipt struct {
	SchemaVersion string             `json:"schema_version"`
	OpID          string             `json:"op_id"`
	TsStart       string             `json:"ts_start"`
	TsEnd         string             `json:"ts_end"`
	Command       string             `json:"command"`
	Args          []string           `json:"args"`
	ArgsRedacted  bool               `json:"args_redacted,omitempty"`
	Result        Result             `json:"result"`
	Manifest      *FileRef           `json:"manifest,omitempty"`
	Config        *FileRef           `json:"config,omitempty"`
	Evaluation    *EvaluationSummary `json:"evaluation,omitempty"`
	AutoFix       *AutoFixSummary    `json:"autofix,omitempty"`
}

// Result status is success, blocked or fail
type Result struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// FileRef identifies an input file by content
type FileRef struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256,omitempty"`
}

// EvaluationSummary of a validate or report run
type EvaluationSummary struct {
	Profile           string         `json:"profile"`
	BlockOn           string         `json:"block_on,omitempty"`
	Outcome           string         `json:"outcome,omitempty"`
	Resources         int            `json:"resources"`
	OverallCompliance int            `json:"overall_compliance"`
	BySeverity        map[string]int `json:"by_severity,omitempty"`
	RulesHit          []RuleHit      `json:"rules_hit,omitempty"`
	// RuleTableDigest fingerprints the enforced policy
	RuleTableDigest string `json:"rule_table_digest,omitempty"`
	// ResourceDigests maps namespace/name to the digest of the evaluated object
	ResourceDigests map[string]string `json:"resource_digests,omitempty"`
}

// RuleHit counts the resources a rule failed on
type RuleHit struct {
	RuleID    string `json:"rule_id"`
	Category  string `json:"category"`
	Severity  string `json:"severity"`
	Resources int    `json:"resources"`
}

// AutoFixSummary totals remediation across resources
type AutoFixSummary struct {
	Fixed  int      `json:"fixed"`
	Failed int      `json:"failed"`
	Rules  []string `json:"rules,omitempty"`
	Output string   `json:"output,omitempty"`
}
