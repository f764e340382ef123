package schema

import (
	"fmt"
	"strings"

	"roas/internal/table"
)

// Missing returns the names in required that t's header lacks, in the order
// given. An empty result means the table passes.
func Missing(t table.Table, required []string) []string {
	var out []string
	for _, col := range required {
		if !t.Has(col) {
			out = append(out, col)
		}
	}
	return out
}

// TableIssue lists the missing columns of one table, spelled as the input
// files spell them.
type TableIssue struct {
	Table   string
	Missing []string
}

// ValidationError reports every table that failed its column contract.
type ValidationError struct {
	Issues []TableIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, iss := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: missing columns [%s]", iss.Table, strings.Join(iss.Missing, ", ")))
	}
	return "schema validation failed: " + strings.Join(parts, "; ")
}

// MissingFor returns the missing columns reported for table, or nil.
func (e *ValidationError) MissingFor(name string) []string {
	for _, iss := range e.Issues {
		if iss.Table == name {
			return iss.Missing
		}
	}
	return nil
}

// ValidateAll checks every table against its contract before returning, so a
// caller sees all problems at once. Tables are checked in TableNames order;
// names without a contract are ignored. The result is nil when all pass.
func ValidateAll(tables map[string]table.Table) *ValidationError {
	var issues []TableIssue
	for _, name := range TableNames {
		t, ok := tables[name]
		if !ok {
			continue
		}
		c, _ := ContractFor(name)
		if miss := Missing(t, c.Required()); len(miss) > 0 {
			for i, col := range miss {
				miss[i] = c.Label(col)
			}
			issues = append(issues, TableIssue{Table: name, Missing: miss})
		}
	}
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}
