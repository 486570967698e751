// Package store provides the embedded-SQL persistence layer: schema
// migrations, the advisory-lock accessor, checksum integrity, and one-shot
// legacy JSON import. Every engine (task, lifecycle, session) reads and
// writes through this package's DB and Accessor.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection, following the teacher's
// internal/db/sqlite.go DB shape.
type DB struct {
	*sql.DB
	path string
}

// Open opens or creates the project's SQLite database at dbPath, enabling
// WAL mode and foreign keys, then applies any missing migrations.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	sqlDB.SetMaxOpenConns(1) // single writable connection per spec §5.

	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	d := &DB{DB: sqlDB, path: dbPath}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return d, nil
}

// Path returns the underlying database file path.
func (d *DB) Path() string { return d.path }

// Close closes the database connection.
func (d *DB) Close() error { return d.DB.Close() }

func (d *DB) migrate() error {
	if _, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var version int
	row := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&version); err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration1Core},
		{2, migration2Archive},
		{3, migration3Sessions},
		{4, migration4Lifecycle},
		{5, migration5Decisions},
		{6, migration6Manifest},
		{7, migration7Observability},
		{8, migration8Tags},
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := d.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: begin: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: record version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", m.version, err)
		}
	}
	return nil
}

// Migration 1: tasks, sequence, _meta (checksum + advisory lock row),
// status_registry. Grounded on the teacher's migration1 (tickets +
// ticket_history tables, check-constraint-free status column mirrored by
// a registry table per spec §3).
const migration1Core = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	priority TEXT NOT NULL DEFAULT 'medium',
	type TEXT NOT NULL DEFAULT 'task',
	phase TEXT,
	parent_id TEXT REFERENCES tasks(id),
	depends_json TEXT NOT NULL DEFAULT '[]',
	labels_json TEXT NOT NULL DEFAULT '[]',
	notes TEXT,
	files_json TEXT NOT NULL DEFAULT '[]',
	acceptance_json TEXT NOT NULL DEFAULT '[]',
	size TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	completed_at DATETIME,
	cancelled_at DATETIME,
	blocked_by TEXT,
	verification_json TEXT NOT NULL DEFAULT '{}',
	epic_lifecycle TEXT
);

CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_type ON tasks(type);

CREATE TABLE IF NOT EXISTS _sequence (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	counter INTEGER NOT NULL DEFAULT 0,
	last_id TEXT,
	checksum TEXT
);
INSERT OR IGNORE INTO _sequence (id, counter, last_id, checksum) VALUES (1, 0, '', '');

CREATE TABLE IF NOT EXISTS _meta (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	checksum TEXT NOT NULL DEFAULT '',
	schema_version INTEGER NOT NULL DEFAULT 1,
	locked_by TEXT,
	locked_at DATETIME,
	active_session TEXT
);
INSERT OR IGNORE INTO _meta (id, checksum, schema_version) VALUES (1, '', 1);

CREATE TABLE IF NOT EXISTS status_registry (
	entity TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (entity, value)
);
INSERT OR IGNORE INTO status_registry (entity, value) VALUES
	('task.status', 'pending'), ('task.status', 'active'), ('task.status', 'blocked'),
	('task.status', 'done'), ('task.status', 'cancelled'),
	('task.priority', 'low'), ('task.priority', 'medium'), ('task.priority', 'high'), ('task.priority', 'critical'),
	('task.type', 'epic'), ('task.type', 'task'), ('task.type', 'subtask'), ('task.type', 'bug'),
	('task.size', 'small'), ('task.size', 'medium'), ('task.size', 'large');
`

// Migration 2: archived tasks.
const migration2Archive = `
CREATE TABLE IF NOT EXISTS archived_tasks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	status TEXT NOT NULL,
	priority TEXT NOT NULL,
	type TEXT NOT NULL,
	phase TEXT,
	parent_id TEXT,
	depends_json TEXT NOT NULL DEFAULT '[]',
	labels_json TEXT NOT NULL DEFAULT '[]',
	notes TEXT,
	files_json TEXT NOT NULL DEFAULT '[]',
	acceptance_json TEXT NOT NULL DEFAULT '[]',
	size TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	completed_at DATETIME,
	cancelled_at DATETIME,
	blocked_by TEXT,
	verification_json TEXT NOT NULL DEFAULT '{}',
	epic_lifecycle TEXT,
	archive_source TEXT NOT NULL,
	archived_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_archived_tasks_status ON archived_tasks(status);
`

// Migration 3: sessions.
const migration3Sessions = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL DEFAULT 'active',
	scope_type TEXT NOT NULL,
	scope_root_task_id TEXT NOT NULL,
	scope_include_descendants INTEGER NOT NULL DEFAULT 1,
	task_work_id TEXT,
	started_at DATETIME NOT NULL,
	ended_at DATETIME,
	suspended_at DATETIME,
	resume_count INTEGER NOT NULL DEFAULT 0,
	suspend_count INTEGER NOT NULL DEFAULT 0,
	stats_json TEXT NOT NULL DEFAULT '{}',
	agent_identifier TEXT,
	previous_session_id TEXT,
	next_session_id TEXT,
	handoff_json TEXT,
	debrief_json TEXT,
	handoff_consumed_at DATETIME,
	handoff_consumed_by TEXT,
	grade_mode INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_scope ON sessions(scope_type, scope_root_task_id);
`

// Migration 4: lifecycle pipeline tables.
const migration4Lifecycle = `
CREATE TABLE IF NOT EXISTS lifecycle_pipelines (
	id TEXT PRIMARY KEY,
	epic_id TEXT NOT NULL REFERENCES tasks(id),
	status TEXT NOT NULL DEFAULT 'active',
	current_stage_id TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lifecycle_pipelines_epic ON lifecycle_pipelines(epic_id);

CREATE TABLE IF NOT EXISTS lifecycle_stages (
	id TEXT PRIMARY KEY,
	pipeline_id TEXT NOT NULL REFERENCES lifecycle_pipelines(id),
	stage_name TEXT NOT NULL,
	seq INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	started_at DATETIME,
	completed_at DATETIME,
	skip_reason TEXT,
	notes_json TEXT,
	metadata_json TEXT,
	output_file TEXT,
	provenance_chain_json TEXT
);
CREATE INDEX IF NOT EXISTS idx_lifecycle_stages_pipeline ON lifecycle_stages(pipeline_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_lifecycle_stages_pipeline_stage ON lifecycle_stages(pipeline_id, stage_name);

CREATE TABLE IF NOT EXISTS lifecycle_transitions (
	id TEXT PRIMARY KEY,
	pipeline_id TEXT NOT NULL REFERENCES lifecycle_pipelines(id),
	from_stage_id TEXT,
	to_stage_id TEXT,
	transition_type TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lifecycle_transitions_pipeline ON lifecycle_transitions(pipeline_id);

CREATE TABLE IF NOT EXISTS lifecycle_gate_results (
	id TEXT PRIMARY KEY,
	stage_id TEXT NOT NULL REFERENCES lifecycle_stages(id),
	gate_name TEXT NOT NULL,
	result TEXT NOT NULL,
	enforcement_mode TEXT NOT NULL,
	message TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lifecycle_gate_results_stage ON lifecycle_gate_results(stage_id);

CREATE TABLE IF NOT EXISTS lifecycle_evidence (
	id TEXT PRIMARY KEY,
	stage_id TEXT NOT NULL REFERENCES lifecycle_stages(id),
	evidence_type TEXT NOT NULL,
	uri TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lifecycle_evidence_stage ON lifecycle_evidence(stage_id);
`

// Migration 5: decisions.
const migration5Decisions = `
CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	pipeline_id TEXT REFERENCES lifecycle_pipelines(id),
	status TEXT NOT NULL DEFAULT 'proposed',
	consensus_manifest_id TEXT,
	supersedes_id TEXT,
	superseded_by_id TEXT,
	content TEXT,
	context TEXT,
	rationale TEXT,
	consequences_json TEXT,
	accepted_by TEXT,
	accepted_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decisions_status ON decisions(status);
CREATE INDEX IF NOT EXISTS idx_decisions_pipeline ON decisions(pipeline_id);

CREATE TABLE IF NOT EXISTS decision_evidence (
	id TEXT PRIMARY KEY,
	decision_id TEXT NOT NULL REFERENCES decisions(id),
	evidence_type TEXT NOT NULL,
	ref_id TEXT,
	uri TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decision_evidence_decision ON decision_evidence(decision_id);

CREATE TABLE IF NOT EXISTS task_decisions (
	task_id TEXT NOT NULL REFERENCES tasks(id),
	decision_id TEXT NOT NULL REFERENCES decisions(id),
	relationship TEXT NOT NULL DEFAULT 'implements',
	needs_review INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (task_id, decision_id)
);
CREATE INDEX IF NOT EXISTS idx_task_decisions_decision ON task_decisions(decision_id);
`

// Migration 6: document manifest.
const migration6Manifest = `
CREATE TABLE IF NOT EXISTS manifest (
	id TEXT PRIMARY KEY,
	file_path TEXT NOT NULL,
	title TEXT,
	date DATETIME,
	status TEXT,
	agent_type TEXT,
	topics_json TEXT,
	key_findings_json TEXT,
	actionable INTEGER NOT NULL DEFAULT 0,
	needs_followup_json TEXT,
	linked_tasks_json TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_manifest_agent_type ON manifest(agent_type);
`

// Migration 7: audit, compliance, token usage.
const migration7Observability = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id TEXT PRIMARY KEY,
	operation TEXT NOT NULL,
	entity_type TEXT,
	entity_id TEXT,
	session_id TEXT,
	agent_id TEXT,
	params_digest TEXT,
	payload_json TEXT,
	outcome TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs(entity_type, entity_id);
CREATE INDEX IF NOT EXISTS idx_audit_logs_session ON audit_logs(session_id);
CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at);

CREATE TABLE IF NOT EXISTS compliance (
	id TEXT PRIMARY KEY,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	score REAL NOT NULL,
	violations_json TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_compliance_entity ON compliance(entity_type, entity_id);

CREATE TABLE IF NOT EXISTS token_usage (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	amount INTEGER NOT NULL,
	kind TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_token_usage_session ON token_usage(session_id);
`

// Migration 8: tags (kept from the teacher's migration11, repointed at
// tasks instead of tickets).
const migration8Tags = `
CREATE TABLE IF NOT EXISTS tags (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	type TEXT NOT NULL DEFAULT 'tag',
	color TEXT DEFAULT '#6366f1',
	description TEXT
);

CREATE TABLE IF NOT EXISTS task_tags (
	task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (task_id, tag_id)
);
CREATE INDEX IF NOT EXISTS idx_task_tags_task ON task_tags(task_id);
CREATE INDEX IF NOT EXISTS idx_task_tags_tag ON task_tags(tag_id);
`
