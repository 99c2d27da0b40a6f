package taxonomy

import (
	"encoding/json"
	"fmt"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a per-line or per-record problem found while parsing,
// loading or rendering. None of them stop the operation.
type Diagnostic struct {
	Severity Severity
	Line     int
	NodeID   string
	Err      error
}

func (d Diagnostic) String() string {
	s := string(d.Severity)
	if d.Line > 0 {
		s += fmt.Sprintf(" line %d", d.Line)
	}
	if d.NodeID != "" {
		s += " [" + d.NodeID + "]"
	}
	return s + ": " + d.message()
}

func (d Diagnostic) message() string {
	if d.Err == nil {
		return ""
	}
	return d.Err.Error()
}

// MarshalJSON renders the error as its message.
func (d Diagnostic) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Severity Severity `json:"severity"`
		Line     int      `json:"line,omitempty"`
		NodeID   string   `json:"node_id,omitempty"`
		Message  string   `json:"message"`
	}{d.Severity, d.Line, d.NodeID, d.message()})
}

// Diagnostics collects diagnostics in the order they were found.
type Diagnostics struct {
	Items []Diagnostic `json:"items,omitempty"`
}

// AddWarning records a warning.
func (d *Diagnostics) AddWarning(line int, nodeID string, err error) {
	d.Items = append(d.Items, Diagnostic{Severity: SeverityWarning, Line: line, NodeID: nodeID, Err: err})
}

// AddError records an error.
func (d *Diagnostics) AddError(line int, nodeID string, err error) {
	d.Items = append(d.Items, Diagnostic{Severity: SeverityError, Line: line, NodeID: nodeID, Err: err})
}

// Merge appends all diagnostics of other.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Items = append(d.Items, other.Items...)
}

// Warnings returns the warnings.
func (d Diagnostics) Warnings() []Diagnostic {
	return d.filter(SeverityWarning)
}

// Errors returns the errors.
func (d Diagnostics) Errors() []Diagnostic {
	return d.filter(SeverityError)
}

// HasErrors reports whether any error was recorded.
func (d Diagnostics) HasErrors() bool {
	for _, it := range d.Items {
		if it.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Len is the number of diagnostics.
func (d Diagnostics) Len() int {
	return len(d.Items)
}

func (d Diagnostics) filter(s Severity) []Diagnostic {
	var out []Diagnostic
	for _, it := range d.Items {
		if it.Severity == s {
			out = append(out, it)
		}
	}
	return out
}
