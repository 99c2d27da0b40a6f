// Package selfcheck runs round-trip checks over taxonomy files: it parses a
// source, renders it back canonically and as a patch, and reports how much
// of the source survived.
package selfcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/FocuswithJustin/taxonomist/core/cache"
	"github.com/FocuswithJustin/taxonomist/core/cas"
	"github.com/FocuswithJustin/taxonomist/core/graph"
	"github.com/FocuswithJustin/taxonomist/core/parser"
	"github.com/FocuswithJustin/taxonomist/core/patcher"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
	"github.com/FocuswithJustin/taxonomist/core/unparser"
)

// Version is the report format version.
const Version = "1.0.0"

// Status values for reports.
const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// Check types.
const (
	CheckParseClean          = "PARSE_CLEAN"
	CheckCanonicalFidelity   = "CANONICAL_FIDELITY"
	CheckCanonicalIdempotent = "CANONICAL_IDEMPOTENT"
	CheckPatchIdentity       = "PATCH_IDENTITY"
)

// Report is the output of a self-check run over one source.
type Report struct {
	ReportVersion string        `json:"report_version"`
	CreatedAt     string        `json:"created_at"`
	Source        string        `json:"source"`
	SourceKey     string        `json:"source_key"`
	Results       []CheckResult `json:"results"`
	Loss          *LossReport   `json:"loss,omitempty"`
	Status        string        `json:"status"`
}

// CheckResult is the result of a single check.
type CheckResult struct {
	CheckType string      `json:"check_type"`
	Label     string      `json:"label"`
	Pass      bool        `json:"pass"`
	Expected  *HashInfo   `json:"expected,omitempty"`
	Actual    *HashInfo   `json:"actual,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

// HashInfo contains hash information for comparison.
type HashInfo struct {
	Blake3 string `json:"blake3,omitempty"`
}

func hashOf(text string) *HashInfo {
	return &HashInfo{Blake3: cas.KeyString(text)}
}

// ToJSON serializes the report to JSON.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Hash returns the BLAKE3 hash of the report.
func (r *Report) Hash() string {
	data, _ := json.Marshal(r)
	return cas.Key(data)
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	return r.Status == StatusPass
}

// RunFile runs the checks over a file.
func RunFile(ctx context.Context, path string, budget *LossBudget) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Run(ctx, path, string(data), budget)
}

// Run runs the checks over source text. A nil budget allows canonicalizations.
func Run(ctx context.Context, name, text string, budget *LossBudget) (*Report, error) {
	if budget == nil {
		budget = SemanticallyLossless()
	}
	tax, err := parse(ctx, name, text)
	if err != nil {
		return nil, err
	}

	store := graph.NewMemoryStore()
	if _, err := graph.Load(ctx, store, tax, "selfcheck"); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	canonical, err := unparser.RenderStore(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("canonical render: %w", err)
	}
	patched, err := patcher.RenderStore(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("patch render: %w", err)
	}
	loss, err := Compare(ctx, tax, canonical.Text)
	if err != nil {
		return nil, err
	}

	var results []CheckResult
	results = append(results, CheckResult{
		CheckType: CheckParseClean,
		Label:     "parse without errors",
		Pass:      !tax.Diagnostics.HasErrors(),
		Details:   tax.Diagnostics.Items,
	})

	budgetResult := budget.Check(loss)
	results = append(results, CheckResult{
		CheckType: CheckCanonicalFidelity,
		Label:     "canonical rendering within loss budget",
		Pass:      budgetResult.WithinBudget,
		Expected:  hashOf(text),
		Actual:    hashOf(canonical.Text),
		Details:   budgetResult,
	})

	again, err := renderText(ctx, name, canonical.Text)
	if err != nil {
		return nil, err
	}
	results = append(results, CheckResult{
		CheckType: CheckCanonicalIdempotent,
		Label:     "canonical rendering is a fixed point",
		Pass:      again == canonical.Text,
		Expected:  hashOf(canonical.Text),
		Actual:    hashOf(again),
	})

	results = append(results, CheckResult{
		CheckType: CheckPatchIdentity,
		Label:     "patch rendering without changes is the source",
		Pass:      patched.Text == text,
		Expected:  hashOf(text),
		Actual:    hashOf(patched.Text),
		Details:   patched.Edits,
	})

	status := StatusPass
	for _, r := range results {
		if !r.Pass {
			status = StatusFail
		}
	}
	return &Report{
		ReportVersion: Version,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		Source:        name,
		SourceKey:     tax.SourceKey,
		Results:       results,
		Loss:          loss,
		Status:        status,
	}, nil
}

func renderText(ctx context.Context, name, text string) (string, error) {
	tax, err := parse(ctx, name, text)
	if err != nil {
		return "", err
	}
	store := graph.NewMemoryStore()
	if _, err := graph.Load(ctx, store, tax, "selfcheck"); err != nil {
		return "", err
	}
	res, err := unparser.RenderStore(ctx, store)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// parsed holds the sources seen by this process. A lossless canonical
// rendering is the source itself, so its re-parse is served from here.
var (
	parsed   = cache.NewTaxonomies(cache.DefaultConfig())
	inflight singleflight.Group
)

func parse(ctx context.Context, name, text string) (*taxonomy.Taxonomy, error) {
	if tax, ok := parsed.Get(name, text); ok {
		return tax, nil
	}
	v, err, _ := inflight.Do(cache.Key(name, text), func() (any, error) {
		tax, err := parser.ParseBytes(name, []byte(text), parser.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		parsed.Put(tax)
		return tax, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*taxonomy.Taxonomy), nil
}

// Compare classifies a rendering of tax. It is L0 when the rendering is the
// source, L1 when it parses back to the same nodes once parent refs are
// resolved, blank lines ignored and properties sorted, and L2 otherwise.
func Compare(ctx context.Context, tax *taxonomy.Taxonomy, rendered string) (*LossReport, error) {
	report := &LossReport{Source: tax.SourceName, LossClass: LossL0}
	report.ChangedLines = changedLines(tax.Source, rendered)
	if rendered == tax.Source {
		return report, nil
	}

	back, err := parse(ctx, tax.SourceName, rendered)
	if err != nil {
		return nil, err
	}
	for _, d := range back.Diagnostics.Items {
		report.Warnings = append(report.Warnings, d.String())
	}

	want, got := digests(tax), digests(back)
	for _, n := range tax.Nodes() {
		g, ok := got[n.ID]
		switch {
		case !ok:
			report.Differences = append(report.Differences, Difference{NodeID: n.ID, Kind: "missing", Line: n.SrcPosition})
		case g != want[n.ID]:
			report.Differences = append(report.Differences, Difference{NodeID: n.ID, Kind: "changed", Line: n.SrcPosition})
		}
	}
	for _, n := range back.Nodes() {
		if _, ok := want[n.ID]; !ok {
			report.Differences = append(report.Differences, Difference{NodeID: n.ID, Kind: "extra", Line: n.SrcPosition})
		}
	}

	report.LossClass = LossL1
	if len(report.Differences) > 0 {
		report.LossClass = LossL2
	}
	return report, nil
}

// digests fingerprints the part of every node a canonical rendering must keep.
func digests(tax *taxonomy.Taxonomy) map[string]string {
	index := graph.TagIndex(tax.Entries)
	out := make(map[string]string)
	for _, n := range tax.Nodes() {
		c := n.Clone()
		c.SrcPosition, c.SrcLines, c.Before = 0, nil, ""
		for i, ref := range c.ParentTags {
			if id, ok := index[ref]; ok {
				c.ParentTags[i] = id
			}
		}
		var kept []string
		for _, l := range c.PrecedingLines {
			if strings.TrimSpace(l) != "" {
				kept = append(kept, l)
			}
		}
		c.PrecedingLines = kept
		c.Properties = c.SortedProperties()
		out[c.ID] = cas.Fingerprint(c)
	}
	return out
}

// changedLines counts the lines that differ position by position.
func changedLines(a, b string) int {
	la, lb := strings.Split(a, "\n"), strings.Split(b, "\n")
	n := max(len(la), len(lb))
	changed := 0
	for i := 0; i < n; i++ {
		if i >= len(la) || i >= len(lb) || la[i] != lb[i] {
			changed++
		}
	}
	return changed
}
