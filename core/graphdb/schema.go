package graphdb

// schemaVersion is bumped whenever the statements below change shape.
const schemaVersion = 1

const schema = `
	CREATE TABLE IF NOT EXISTS schema_info (
		version INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS projects (
		name TEXT PRIMARY KEY,
		source_name TEXT NOT NULL DEFAULT '',
		source_key TEXT NOT NULL DEFAULT '',
		import_id TEXT NOT NULL DEFAULT '',
		imported_at TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS nodes (
		project TEXT NOT NULL,
		id TEXT NOT NULL,
		type TEXT NOT NULL,
		seq INTEGER NOT NULL,
		src_position INTEGER NOT NULL DEFAULT 0,
		src_lines TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		fingerprint TEXT NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (project, id),
		FOREIGN KEY (project) REFERENCES projects(name) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_nodes_status ON nodes(project, status);
	CREATE TABLE IF NOT EXISTS ordering_links (
		project TEXT NOT NULL,
		before_id TEXT NOT NULL,
		id TEXT NOT NULL,
		PRIMARY KEY (project, before_id, id),
		FOREIGN KEY (project, before_id) REFERENCES nodes(project, id) ON DELETE CASCADE,
		FOREIGN KEY (project, id) REFERENCES nodes(project, id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS child_links (
		project TEXT NOT NULL,
		parent_id TEXT NOT NULL,
		child_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		FOREIGN KEY (project, parent_id) REFERENCES nodes(project, id) ON DELETE CASCADE,
		FOREIGN KEY (project, child_id) REFERENCES nodes(project, id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_child_links_child ON child_links(project, child_id, position);
	CREATE TABLE IF NOT EXISTS original_texts (
		project TEXT NOT NULL,
		key TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (project, key),
		FOREIGN KEY (project) REFERENCES projects(name) ON DELETE CASCADE
	);
`
