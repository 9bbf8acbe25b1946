package models

// PolicyConfiguration from the caller's policy file
type PolicyConfiguration struct {
	Organization  Organization                 `json:"organization"`
	Profile       string                       `json:"profile,omitempty"`
	Environment   string                       `json:"environment,omitempty"` // free text, used for profile detection
	Global        GlobalSettings               `json:"global"`
	Parameters    map[string]float64           `json:"parameters,omitempty"`
	Categories    map[Category]CategorySetting `json:"categories,omitempty"`
	RuleOverrides map[string]RuleOverride      `json:"ruleOverrides,omitempty"`
	CustomRules   []RuleSpec                   `json:"customRules,omitempty"`
}

// Organization metadata
type Organization struct {
	Name    string `json:"name,omitempty"`
	Team    string `json:"team,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// GlobalSettings apply to every category
type GlobalSettings struct {
	Enforcement EnforcementMode `json:"enforcement,omitempty"`
	AutoFix     *bool           `json:"autoFix,omitempty"`
	BlockOn     Severity        `json:"blockOn,omitempty"` // blocking threshold, default high
}

// CategorySetting enforcement for one category
type CategorySetting struct {
	Enforcement EnforcementMode `json:"enforcement"`
	Comment     string          `json:"comment,omitempty"`
}

// RuleOverride single-rule fields, highest precedence
type RuleOverride struct {
	Enabled  *bool     `json:"enabled,omitempty"`
	Severity *Severity `json:"severity,omitempty"`
	AutoFix  *bool     `json:"autoFix,omitempty"`
	Comment  string    `json:"comment,omitempty"`
}
