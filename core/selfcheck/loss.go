package selfcheck

// LossClass represents the fidelity of a canonical rendering against its source.
type LossClass string

// Loss class constants, from most to least fidelity.
const (
	// LossL0 indicates the rendering is byte-for-byte the source.
	LossL0 LossClass = "L0"

	// LossL1 indicates only canonicalizations: comma spacing, parent lines
	// rewritten to parent names, property order and blank separators.
	LossL1 LossClass = "L1"

	// LossL2 indicates the rendering parses to a different taxonomy.
	LossL2 LossClass = "L2"
)

// IsValid returns true if the loss class is valid.
func (l LossClass) IsValid() bool {
	return l.Level() >= 0
}

// Level returns the numeric level (0-2) of the loss class.
func (l LossClass) Level() int {
	switch l {
	case LossL0:
		return 0
	case LossL1:
		return 1
	case LossL2:
		return 2
	default:
		return -1
	}
}

// Difference describes a node the rendering did not carry over intact.
type Difference struct {
	NodeID string `json:"node_id"`
	// Kind is "missing", "extra" or "changed".
	Kind string `json:"kind"`
	Line int    `json:"line,omitempty"`
}

// LossReport documents the fidelity of a canonical rendering.
type LossReport struct {
	Source      string       `json:"source"`
	LossClass   LossClass    `json:"loss_class"`
	ChangedLines int         `json:"changed_lines"`
	Differences []Difference `json:"differences,omitempty"`
	Warnings    []string     `json:"warnings,omitempty"`
}

// HasLoss returns true if the rendering was not byte-identical.
func (r *LossReport) HasLoss() bool {
	return len(r.Differences) > 0 || r.LossClass.Level() > 0
}

// LossBudget defines acceptable loss thresholds for a rendering.
type LossBudget struct {
	// MaxLossClass is the maximum acceptable loss class.
	MaxLossClass LossClass `json:"max_loss_class"`

	// MaxDifferences is the maximum number of node differences allowed (0 = any).
	MaxDifferences int `json:"max_differences,omitempty"`
}

// NewLossBudget creates a budget allowing up to the specified loss class.
func NewLossBudget(maxClass LossClass) *LossBudget {
	return &LossBudget{MaxLossClass: maxClass}
}

// LosslessOnly creates a budget that only allows byte-identical renderings.
func LosslessOnly() *LossBudget {
	return &LossBudget{MaxLossClass: LossL0}
}

// SemanticallyLossless creates a budget allowing canonicalizations.
func SemanticallyLossless() *LossBudget {
	return &LossBudget{MaxLossClass: LossL1}
}

// IsWithinBudget checks if a loss report is within the budget constraints.
func (b *LossBudget) IsWithinBudget(report *LossReport) bool {
	return b.Check(report).WithinBudget
}

// LossBudgetResult describes the result of checking a loss report against a budget.
type LossBudgetResult struct {
	WithinBudget    bool      `json:"within_budget"`
	ActualLossClass LossClass `json:"actual_loss_class"`
	MaxAllowedClass LossClass `json:"max_allowed_class"`
	DifferenceCount int       `json:"difference_count"`
	Violations      []string  `json:"violations,omitempty"`
}

// Check performs a detailed check and returns a result.
func (b *LossBudget) Check(report *LossReport) *LossBudgetResult {
	result := &LossBudgetResult{
		MaxAllowedClass: b.MaxLossClass,
		WithinBudget:    true,
	}
	if report == nil {
		result.ActualLossClass = LossL0
		return result
	}

	result.ActualLossClass = report.LossClass
	result.DifferenceCount = len(report.Differences)

	if report.LossClass.Level() > b.MaxLossClass.Level() {
		result.WithinBudget = false
		result.Violations = append(result.Violations,
			"loss class "+string(report.LossClass)+" exceeds budget "+string(b.MaxLossClass))
	}
	if b.MaxDifferences > 0 && len(report.Differences) > b.MaxDifferences {
		result.WithinBudget = false
		result.Violations = append(result.Violations, "difference count exceeds budget")
	}
	return result
}
