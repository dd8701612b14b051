package types

// ValidationError describes one failed check against a record or a batch.
// Field is empty for cross-field, aggregate and batch-level errors; Fields
// then lists every field the check read.
type ValidationError struct {
	Field         string    `json:"field,omitempty"`
	Fields        []string  `json:"fields,omitempty"`
	Type          ErrorType `json:"errorType"`
	Severity      Severity  `json:"severity"`
	Message       string    `json:"message"`
	SuggestedFix  string    `json:"suggestedFix,omitempty"`
	ActualValue   any       `json:"actualValue,omitempty"`
	ExpectedValue any       `json:"expectedValue,omitempty"`
	RuleID        string    `json:"ruleId,omitempty"`
	Row           int       `json:"row,omitempty"`
	RecordID      string    `json:"recordId,omitempty"`
}

// ImplicatedFields returns the fields this error touches: Field when set,
// otherwise Fields.
func (e ValidationError) ImplicatedFields() []string {
	if e.Field != "" {
		return []string{e.Field}
	}
	return e.Fields
}
