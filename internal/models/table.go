package models

// EffectiveRule is one fully resolved rule
type EffectiveRule struct {
	Rule     PolicyRule
	Severity Severity
	AutoFix  bool
	Custom   bool
	Comment  string
}

// Enabled shortcut
func (r EffectiveRule) Enabled() bool {
	return r.Rule.Enabled
}

// EffectiveRuleTable is immutable after construction. Re-resolving configuration builds a new table.
type EffectiveRuleTable struct {
	profile  string
	blockOn  Severity
	warnings []string
	order    []string
	rules    map[string]EffectiveRule
}

// NewEffectiveRuleTable keeps rule order as given
func NewEffectiveRuleTable(profile string, blockOn Severity, rules []EffectiveRule, warnings []string) *EffectiveRuleTable {
	if !blockOn.Valid() {
		blockOn = SeverityHigh
	}
	t := &EffectiveRuleTable{
		profile:  profile,
		blockOn:  blockOn,
		warnings: append([]string(nil), warnings...),
		order:    make([]string, 0, len(rules)),
		rules:    make(map[string]EffectiveRule, len(rules)),
	}
	for _, r := range rules {
		if _, dup := t.rules[r.Rule.ID]; dup {
			continue
		}
		t.order = append(t.order, r.Rule.ID)
		t.rules[r.Rule.ID] = r
	}
	return t
}

// Profile the table was resolved with
func (t *EffectiveRuleTable) Profile() string {
	return t.profile
}

// BlockOn severity threshold
func (t *EffectiveRuleTable) BlockOn() Severity {
	return t.blockOn
}

// Warnings raised during resolution
func (t *EffectiveRuleTable) Warnings() []string {
	return append([]string(nil), t.warnings...)
}

// Get rule by id
func (t *EffectiveRuleTable) Get(id string) (EffectiveRule, bool) {
	r, ok := t.rules[id]
	return r, ok
}

// Rules in table order
func (t *EffectiveRuleTable) Rules() []EffectiveRule {
	out := make([]EffectiveRule, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rules[id])
	}
	return out
}

// Len of table
func (t *EffectiveRuleTable) Len() int {
	return len(t.order)
}
