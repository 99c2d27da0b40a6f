package graphdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FocuswithJustin/taxonomist/core/cas"
	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
	"github.com/FocuswithJustin/taxonomist/core/graph"
	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
)

type dbTx struct {
	ctx      context.Context
	tx       *sql.Tx
	project  string
	writable bool
}

func (t *dbTx) checkWritable() error {
	if !t.writable {
		return taxerrors.NewUnsupported("write", "read-only transaction")
	}
	return nil
}

func (t *dbTx) exec(query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, query, append([]any{t.project}, args...)...)
}

func (t *dbTx) reset() error {
	for _, table := range []string{"child_links", "ordering_links", "nodes", "original_texts"} {
		if _, err := t.exec(`DELETE FROM `+table+` WHERE project = ?`); err != nil {
			return fmt.Errorf("graphdb: reset %s: %w", table, err)
		}
	}
	_, err := t.exec(`UPDATE projects SET source_name = '', source_key = '', import_id = '', imported_at = '' WHERE name = ?`)
	return err
}

func (t *dbTx) Meta() (graph.Meta, error) {
	m := graph.Meta{Project: t.project}
	var at string
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT source_name, source_key, import_id, imported_at FROM projects WHERE name = ?`, t.project,
	).Scan(&m.SourceName, &m.SourceKey, &m.ImportID, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return m, taxerrors.NewNotFound("project", t.project)
	}
	if err != nil {
		return m, fmt.Errorf("graphdb: read meta: %w", err)
	}
	if at != "" {
		if m.ImportedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return m, fmt.Errorf("graphdb: imported_at: %w", err)
		}
	}
	return m, nil
}

const nodeColumns = `id, type, seq, src_position, src_lines, status, body`

type nodeRow struct {
	node *taxonomy.Node
	seq  int
}

func scanNode(scan func(...any) error) (nodeRow, error) {
	var (
		id, typ, lines, status, body string
		seq, pos                     int
	)
	if err := scan(&id, &typ, &seq, &pos, &lines, &status, &body); err != nil {
		return nodeRow{}, err
	}
	n, err := decodeNode(id, typ, pos, lines, status, body)
	return nodeRow{node: n, seq: seq}, err
}

// decodeNode rebuilds a node from its columns. The body carries the content;
// position, ranges and status live in their own columns.
func decodeNode(id, typ string, pos int, lines, status, body string) (*taxonomy.Node, error) {
	n := &taxonomy.Node{}
	if err := json.Unmarshal([]byte(body), n); err != nil {
		return nil, &taxerrors.ParseError{Format: "node body", Path: id, Message: err.Error(), Err: err}
	}
	t, err := taxonomy.ParseNodeType(typ)
	if err != nil {
		return nil, err
	}
	n.ID, n.Type, n.SrcPosition, n.Status = id, t, pos, taxonomy.Status(status)
	if lines != "" {
		if n.SrcLines, err = taxonomy.ParseLineRanges(lines); err != nil {
			return nil, taxerrors.Wrapf(err, "graphdb: node %s", id)
		}
	}
	return n, nil
}

func encodeNode(n *taxonomy.Node) (string, error) {
	c := n.Clone()
	c.SrcPosition, c.SrcLines, c.Status = 0, nil, taxonomy.StatusUnchanged
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (t *dbTx) Node(id string) (*taxonomy.Node, error) {
	row := t.tx.QueryRowContext(t.ctx, `SELECT `+nodeColumns+` FROM nodes WHERE project = ? AND id = ?`, t.project, id)
	r, err := scanNode(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, taxerrors.NewNotFound("node", id)
	}
	if err != nil {
		return nil, err
	}
	return r.node, nil
}

func (t *dbTx) NodesWithParents(f graph.Filter) ([]graph.NodeWithParents, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE project = ?`
	args := []any{t.project}
	if len(f.Statuses) > 0 {
		query += ` AND status IN (` + placeholders(len(f.Statuses)) + `)`
		for _, s := range f.Statuses {
			args = append(args, string(s))
		}
	}
	if len(f.Types) > 0 {
		query += ` AND type IN (` + placeholders(len(f.Types)) + `)`
		for _, typ := range f.Types {
			args = append(args, string(typ))
		}
	}
	query += ` ORDER BY src_position = 0, src_position, seq`

	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("graphdb: query nodes: %w", err)
	}
	var out []graph.NodeWithParents
	for rows.Next() {
		r, err := scanNode(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, graph.NodeWithParents{Node: r.node})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		parents, err := t.parentsOf(out[i].Node.ID)
		if err != nil {
			return nil, err
		}
		out[i].Parents = parents
	}
	return out, nil
}

func (t *dbTx) parentsOf(childID string) ([]*taxonomy.Node, error) {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT n.id, n.type, n.seq, n.src_position, n.src_lines, n.status, n.body
		FROM child_links l JOIN nodes n ON n.project = l.project AND n.id = l.parent_id
		WHERE l.project = ? AND l.child_id = ?
		ORDER BY l.position, l.rowid`, t.project, childID)
	if err != nil {
		return nil, fmt.Errorf("graphdb: query parents: %w", err)
	}
	defer rows.Close()
	var out []*taxonomy.Node
	for rows.Next() {
		r, err := scanNode(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r.node)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func (t *dbTx) OrderingLinks() ([]taxonomy.OrderingLink, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT before_id, id FROM ordering_links WHERE project = ? ORDER BY rowid`, t.project)
	if err != nil {
		return nil, fmt.Errorf("graphdb: query ordering links: %w", err)
	}
	defer rows.Close()
	var out []taxonomy.OrderingLink
	for rows.Next() {
		var l taxonomy.OrderingLink
		if err := rows.Scan(&l.BeforeID, &l.ID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *dbTx) ChildLinks() ([]taxonomy.ChildLink, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT parent_id, child_id, position FROM child_links WHERE project = ? ORDER BY rowid`, t.project)
	if err != nil {
		return nil, fmt.Errorf("graphdb: query child links: %w", err)
	}
	defer rows.Close()
	var out []taxonomy.ChildLink
	for rows.Next() {
		var l taxonomy.ChildLink
		if err := rows.Scan(&l.ParentID, &l.ChildID, &l.Position); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *dbTx) Fingerprints() (map[string]string, error) {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT id, fingerprint FROM nodes WHERE project = ?`, t.project)
	if err != nil {
		return nil, fmt.Errorf("graphdb: query fingerprints: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, fp string
		if err := rows.Scan(&id, &fp); err != nil {
			return nil, err
		}
		out[id] = fp
	}
	return out, rows.Err()
}

func (t *dbTx) SetMeta(m graph.Meta) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	at := ""
	if !m.ImportedAt.IsZero() {
		at = m.ImportedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO projects (name, source_name, source_key, import_id, imported_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET source_name = excluded.source_name, source_key = excluded.source_key,
			import_id = excluded.import_id, imported_at = excluded.imported_at`,
		t.project, m.SourceName, m.SourceKey, m.ImportID, at)
	if err != nil {
		return fmt.Errorf("graphdb: save meta: %w", err)
	}
	return nil
}

func (t *dbTx) nextSeq() (int, error) {
	var seq int
	err := t.tx.QueryRowContext(t.ctx, `SELECT COALESCE(MAX(seq), 0) FROM nodes WHERE project = ?`, t.project).Scan(&seq)
	return seq, err
}

func (t *dbTx) exists(id string) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(t.ctx, `SELECT 1 FROM nodes WHERE project = ? AND id = ?`, t.project, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (t *dbTx) CreateNodes(nodes []*taxonomy.Node, typ taxonomy.NodeType) (int, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	seq, err := t.nextSeq()
	if err != nil {
		return 0, fmt.Errorf("graphdb: next seq: %w", err)
	}
	stmt, err := t.tx.PrepareContext(t.ctx, `
		INSERT INTO nodes (project, id, type, seq, src_position, src_lines, status, fingerprint, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	created := 0
	for _, n := range nodes {
		dup, err := t.exists(n.ID)
		if err != nil {
			return created, err
		}
		if dup {
			return created, &taxerrors.ValidationError{Field: "id", Message: "node " + n.ID + " already exists", Err: taxerrors.ErrAlreadyExists}
		}
		c := n.Clone()
		c.Type = typ
		body, err := encodeNode(c)
		if err != nil {
			return created, err
		}
		seq++
		if _, err := stmt.ExecContext(t.ctx, t.project, c.ID, string(typ), seq, c.SrcPosition,
			taxonomy.FormatLineRanges(c.SrcLines), string(c.Status), cas.Fingerprint(c), body); err != nil {
			return created, fmt.Errorf("graphdb: insert node %s: %w", c.ID, err)
		}
		created++
	}
	return created, nil
}

func (t *dbTx) bothExist(a, b string) (bool, error) {
	for _, id := range []string{a, b} {
		ok, err := t.exists(id)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (t *dbTx) CreateOrderingLinks(links []taxonomy.OrderingLink) (int, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	created := 0
	for _, l := range links {
		ok, err := t.bothExist(l.BeforeID, l.ID)
		if err != nil {
			return created, err
		}
		if !ok {
			continue
		}
		res, err := t.exec(`INSERT OR IGNORE INTO ordering_links (project, before_id, id) VALUES (?, ?, ?)`, l.BeforeID, l.ID)
		if err != nil {
			return created, fmt.Errorf("graphdb: insert ordering link: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
		}
	}
	return created, nil
}

func (t *dbTx) CreateChildLinks(links []taxonomy.ChildLink) (int, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	created := 0
	for _, l := range links {
		ok, err := t.bothExist(l.ParentID, l.ChildID)
		if err != nil {
			return created, err
		}
		if !ok {
			continue
		}
		if _, err := t.exec(`INSERT INTO child_links (project, parent_id, child_id, position) VALUES (?, ?, ?, ?)`,
			l.ParentID, l.ChildID, l.Position); err != nil {
			return created, fmt.Errorf("graphdb: insert child link: %w", err)
		}
		created++
	}
	return created, nil
}

func (t *dbTx) UpdateNode(n *taxonomy.Node) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	body, err := encodeNode(n)
	if err != nil {
		return err
	}
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE nodes SET src_position = ?, src_lines = ?, status = ?, body = ?
		WHERE project = ? AND id = ?`,
		n.SrcPosition, taxonomy.FormatLineRanges(n.SrcLines), string(n.Status), body, t.project, n.ID)
	if err != nil {
		return fmt.Errorf("graphdb: update node %s: %w", n.ID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return taxerrors.NewNotFound("node", n.ID)
	}
	return nil
}

func (t *dbTx) RemoveOrderingLink(beforeID, id string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	res, err := t.exec(`DELETE FROM ordering_links WHERE project = ? AND before_id = ? AND id = ?`, beforeID, id)
	if err != nil {
		return fmt.Errorf("graphdb: remove ordering link: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return taxerrors.NewNotFound("ordering link", beforeID+" -> "+id)
	}
	return nil
}

func (t *dbTx) RemoveChildLinks(childID string) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if _, err := t.exec(`DELETE FROM child_links WHERE project = ? AND child_id = ?`, childID); err != nil {
		return fmt.Errorf("graphdb: remove child links: %w", err)
	}
	return nil
}
