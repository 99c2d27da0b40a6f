// Command taxonomist parses taxonomy text files into a graph database and
// renders them back, either canonically or as a minimal patch of the source.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/taxonomist/core/graph"
	"github.com/FocuswithJustin/taxonomist/core/graphdb"
	"github.com/FocuswithJustin/taxonomist/core/normalize"
	"github.com/FocuswithJustin/taxonomist/core/parser"
	"github.com/FocuswithJustin/taxonomist/core/patcher"
	"github.com/FocuswithJustin/taxonomist/core/selfcheck"
	"github.com/FocuswithJustin/taxonomist/core/sqlite"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
	"github.com/FocuswithJustin/taxonomist/core/unparser"
	"github.com/FocuswithJustin/taxonomist/internal/config"
	"github.com/FocuswithJustin/taxonomist/internal/logging"
	"github.com/FocuswithJustin/taxonomist/internal/watch"
)

const version = "0.1.0"

// Globals are the flags shared by every command.
type Globals struct {
	Config    string `name:"config" short:"c" help:"Configuration file" type:"path"`
	DB        string `name:"db" help:"Graph database path (overrides config)" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level: debug, info, warn, error"`
	LogFormat string `name:"log-format" help:"Log format: text, json"`
}

// CLI defines the command-line interface for taxonomist.
var CLI struct {
	Globals

	Parse         ParseCmd         `cmd:"" help:"Parse a taxonomy file and report what it holds"`
	Import        ImportCmd        `cmd:"" help:"Import taxonomy files into the graph database"`
	Export        ExportCmd        `cmd:"" help:"Render a project back to taxonomy text"`
	Diff          DiffCmd          `cmd:"" help:"Show the patch of a project against its source as a unified diff"`
	DetectChanges DetectChangesCmd `cmd:"" name:"detect-changes" help:"Mark nodes edited outside taxonomist as modified"`
	Projects      ProjectsCmd      `cmd:"" help:"List the projects in the graph database"`
	Check         CheckCmd         `cmd:"" help:"Run round-trip self-checks over taxonomy files"`
	Normalize     NormalizeCmd     `cmd:"" help:"Normalize a tag the way entry ids are built"`
	Version       VersionCmd       `cmd:"" help:"Print version information"`
}

// runContext is bound into every command's Run.
type runContext struct {
	ctx context.Context
	cfg *config.Config
	out io.Writer
}

func newRunContext(g *Globals, out io.Writer) (*runContext, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.DB != "" {
		cfg.Database = g.DB
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Log.Format = g.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.InitLogging()
	return &runContext{ctx: context.Background(), cfg: cfg, out: out}, nil
}

func (rc *runContext) open(project string) (*graphdb.DB, error) {
	db, err := graphdb.Open(rc.ctx, rc.cfg.Database, project)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph database: %w", err)
	}
	return db, nil
}

// ParseCmd parses a file without storing it.
type ParseCmd struct {
	Path string `arg:"" help:"Taxonomy file" type:"existingfile"`
	JSON bool   `name:"json" help:"Print the parsed taxonomy as JSON"`
	Flat bool   `help:"With --json, print nodes in the flat tags_<lang>/prop_<name>_<lang> form"`
}

func (c *ParseCmd) Run(rc *runContext) error {
	tax, err := parser.Parse(c.Path, parser.WithContext(rc.ctx))
	if err != nil {
		return err
	}
	if c.JSON {
		var v any = tax
		if c.Flat {
			flat := make([]map[string]any, 0, len(tax.Entries)+len(tax.Others))
			for _, n := range tax.Nodes() {
				flat = append(flat, n.Flatten())
			}
			v = flat
		}
		enc := json.NewEncoder(rc.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	fmt.Fprintf(rc.out, "Parsed: %s\n", c.Path)
	fmt.Fprintf(rc.out, "  Entries: %d\n", len(tax.Entries))
	fmt.Fprintf(rc.out, "  Other nodes: %d\n", len(tax.Others))
	fmt.Fprintf(rc.out, "  Warnings: %d\n", len(tax.Diagnostics.Warnings()))
	fmt.Fprintf(rc.out, "  Errors: %d\n", len(tax.Diagnostics.Errors()))
	fmt.Fprintf(rc.out, "  BLAKE3: %s\n", tax.SourceKey)
	for _, d := range tax.Diagnostics.Items {
		fmt.Fprintf(rc.out, "  %s\n", d)
	}
	return nil
}

// ImportCmd parses files concurrently and loads each into its own project.
type ImportCmd struct {
	Paths   []string `arg:"" help:"Taxonomy files" type:"existingfile"`
	Project string   `help:"Project name (single file only; defaults to the file name)"`
}

func (c *ImportCmd) Run(rc *runContext) error {
	if c.Project != "" && len(c.Paths) > 1 {
		return fmt.Errorf("--project needs exactly one file, got %d", len(c.Paths))
	}

	parsed := make([]*taxonomy.Taxonomy, len(c.Paths))
	g, ctx := errgroup.WithContext(rc.ctx)
	g.SetLimit(rc.cfg.Import.Concurrency)
	for i, path := range c.Paths {
		g.Go(func() error {
			tax, err := parser.Parse(path, parser.WithContext(ctx))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			parsed[i] = tax
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// SQLite takes one writer at a time, so loading stays sequential.
	for i, tax := range parsed {
		project := c.Project
		if project == "" {
			project = projectName(c.Paths[i])
		}
		if err := importOne(rc, project, tax); err != nil {
			return fmt.Errorf("%s: %w", c.Paths[i], err)
		}
	}
	return nil
}

func importOne(rc *runContext, project string, tax *taxonomy.Taxonomy) error {
	db, err := rc.open(project)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Reset(rc.ctx); err != nil {
		return err
	}
	diags, err := graph.Load(rc.ctx, db, tax, project)
	if err != nil {
		return err
	}
	diags.Merge(tax.Diagnostics)
	fmt.Fprintf(rc.out, "Imported: %s -> %s (%d entries, %d warnings, %d errors)\n",
		tax.SourceName, project, len(tax.Entries), len(diags.Warnings()), len(diags.Errors()))
	return nil
}

func projectName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ExportCmd renders a project.
type ExportCmd struct {
	Project string `required:"" help:"Project name"`
	Mode    string `help:"Render mode: canonical or patch (defaults to config)"`
	Out     string `help:"Output path (defaults to stdout)" type:"path"`
}

func (c *ExportCmd) Run(rc *runContext) error {
	mode := strings.ToLower(c.Mode)
	if mode == "" {
		mode = rc.cfg.Render.Mode
	}
	if mode != config.ModeCanonical && mode != config.ModePatch {
		return fmt.Errorf("unknown render mode %q", mode)
	}
	db, err := rc.open(c.Project)
	if err != nil {
		return err
	}
	defer db.Close()

	var text string
	switch mode {
	case config.ModeCanonical:
		res, err := unparser.RenderStore(rc.ctx, db)
		if err != nil {
			return err
		}
		text = res.Text
	case config.ModePatch:
		res, err := patcher.RenderStore(rc.ctx, db)
		if err != nil {
			return err
		}
		text = res.Text
	}

	if c.Out == "" {
		_, err = io.WriteString(rc.out, text)
		return err
	}
	if err := os.WriteFile(c.Out, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Out, err)
	}
	fmt.Fprintf(rc.out, "Exported: %s (%s)\n", c.Out, mode)
	return nil
}

// DiffCmd prints the patch rendering of a project as a unified diff.
type DiffCmd struct {
	Project string `required:"" help:"Project name"`
}

func (c *DiffCmd) Run(rc *runContext) error {
	db, err := rc.open(c.Project)
	if err != nil {
		return err
	}
	defer db.Close()

	var meta graph.Meta
	err = db.View(rc.ctx, func(r graph.Reader) error {
		meta, err = r.Meta()
		return err
	})
	if err != nil {
		return err
	}
	res, err := patcher.RenderStore(rc.ctx, db)
	if err != nil {
		return err
	}
	name := filepath.Base(meta.SourceName)
	out, err := res.UnifiedDiff("a/"+name, "b/"+name)
	if err != nil {
		return err
	}
	_, err = io.WriteString(rc.out, out)
	return err
}

// DetectChangesCmd flags nodes whose content drifted from their import.
type DetectChangesCmd struct {
	Project string `required:"" help:"Project name"`
}

func (c *DetectChangesCmd) Run(rc *runContext) error {
	db, err := rc.open(c.Project)
	if err != nil {
		return err
	}
	defer db.Close()
	marked, err := graph.DetectChanges(rc.ctx, db)
	if err != nil {
		return err
	}
	for _, id := range marked {
		fmt.Fprintf(rc.out, "modified: %s\n", id)
	}
	return nil
}

// ProjectsCmd lists the projects.
type ProjectsCmd struct{}

func (c *ProjectsCmd) Run(rc *runContext) error {
	names, err := graphdb.ListProjects(rc.ctx, rc.cfg.Database)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(rc.out, n)
	}
	return nil
}

// CheckCmd runs self-checks.
type CheckCmd struct {
	Paths   []string `arg:"" help:"Taxonomy files" type:"existingfile"`
	MaxLoss string   `name:"max-loss" help:"Highest acceptable loss class" enum:"L0,L1,L2" default:"L1"`
	JSON    bool     `name:"json" help:"Print full reports as JSON"`
	Watch   bool     `help:"Re-run the checks whenever a file changes"`
}

func (c *CheckCmd) Run(rc *runContext) error {
	if !c.Watch {
		return c.check(rc, c.Paths)
	}
	w, err := watch.New(c.Paths)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := c.check(rc, c.Paths); err != nil {
		logging.Warn("self-check failed", "error", err)
	}
	ctx, stop := signal.NotifyContext(rc.ctx, os.Interrupt)
	defer stop()
	return w.Run(ctx, watch.DefaultDebounce, func(changed []string) {
		if err := c.check(rc, changed); err != nil {
			logging.Warn("self-check failed", "error", err)
		}
	})
}

func (c *CheckCmd) check(rc *runContext, paths []string) error {
	budget := selfcheck.NewLossBudget(selfcheck.LossClass(c.MaxLoss))
	reports := make([]*selfcheck.Report, len(paths))

	g, ctx := errgroup.WithContext(rc.ctx)
	g.SetLimit(rc.cfg.Import.Concurrency)
	for i, path := range paths {
		g.Go(func() error {
			r, err := selfcheck.RunFile(ctx, path, budget)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if !r.Passed() {
			failed++
		}
		if c.JSON {
			data, err := r.ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(rc.out, string(data))
			continue
		}
		fmt.Fprintf(rc.out, "%s: %s (%s)\n", r.Source, r.Status, r.Loss.LossClass)
		for _, res := range r.Results {
			if !res.Pass {
				fmt.Fprintf(rc.out, "  FAIL %s: %s\n", res.CheckType, res.Label)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d self-checks failed", failed, len(reports))
	}
	return nil
}

// NormalizeCmd prints the normalized form of a text.
type NormalizeCmd struct {
	Text      string   `arg:"" help:"Text to normalize"`
	Lang      string   `help:"Language code" default:"default"`
	Stopwords []string `help:"Stopwords to drop (comma separated)" sep:","`
}

func (c *NormalizeCmd) Run(rc *runContext) error {
	lang := normalize.LangKey(c.Lang)
	sw := normalize.Stopwords{}
	sw.Add(lang, c.Stopwords...)
	fmt.Fprintln(rc.out, normalize.Text(c.Text, lang, normalize.WithStopwords(sw)))
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(rc *runContext) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(rc.out, "taxonomist version %s (sqlite: %s, %s)\n", version, info.DriverType, info.Package)
	return nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("taxonomist"),
		kong.Description("Taxonomy text compiler: parse to a graph, render back canonically or as a patch"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	rc, err := newRunContext(&CLI.Globals, os.Stdout)
	kctx.FatalIfErrorf(err)
	logging.Debug("taxonomist starting", "command", kctx.Command(), "database", rc.cfg.Database)
	err = kctx.Run(rc)
	kctx.FatalIfErrorf(err)
}
