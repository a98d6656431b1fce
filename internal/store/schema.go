package store

import (
	"database/sql"
	"fmt"
)

// schema is applied on every open. All statements are idempotent so a
// workspace store can be reopened by newer builds without a migration
// step.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS product_context (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		content TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS active_context (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		content TEXT NOT NULL
	)`,
	`INSERT OR IGNORE INTO product_context (id, content) VALUES (1, '{}')`,
	`INSERT OR IGNORE INTO active_context (id, content) VALUES (1, '{}')`,

	`CREATE TABLE IF NOT EXISTS product_context_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		version INTEGER NOT NULL,
		content TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS active_context_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		version INTEGER NOT NULL,
		content TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp_created DATETIME NOT NULL,
		timestamp_updated DATETIME NOT NULL,
		summary TEXT NOT NULL,
		rationale TEXT,
		implementation_details TEXT,
		tags TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions (timestamp_created)`,

	`CREATE TABLE IF NOT EXISTS progress_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp_created DATETIME NOT NULL,
		timestamp_updated DATETIME NOT NULL,
		status TEXT NOT NULL,
		description TEXT NOT NULL,
		parent_id INTEGER REFERENCES progress_entries(id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_progress_created ON progress_entries (timestamp_created)`,

	`CREATE TABLE IF NOT EXISTS system_patterns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp_created DATETIME NOT NULL,
		timestamp_updated DATETIME NOT NULL,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		tags TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS custom_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp_created DATETIME NOT NULL,
		timestamp_updated DATETIME NOT NULL,
		category TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		tags TEXT,
		UNIQUE (category, key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_custom_data_category ON custom_data (category)`,

	`CREATE TABLE IF NOT EXISTS context_links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		source_item_type TEXT NOT NULL,
		source_item_id TEXT NOT NULL,
		target_item_type TEXT NOT NULL,
		target_item_id TEXT NOT NULL,
		relationship_type TEXT NOT NULL,
		description TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_links_source ON context_links (source_item_type, source_item_id)`,
	`CREATE INDEX IF NOT EXISTS idx_links_target ON context_links (target_item_type, target_item_id)`,

	// Full-text indexes over decisions and custom data. External
	// content tables keep the FTS shadow in lockstep via triggers.
	`CREATE VIRTUAL TABLE IF NOT EXISTS decisions_fts USING fts5(
		summary, rationale, implementation_details, tags,
		content='decisions', content_rowid='id'
	)`,
	`CREATE TRIGGER IF NOT EXISTS decisions_ai AFTER INSERT ON decisions BEGIN
		INSERT INTO decisions_fts (rowid, summary, rationale, implementation_details, tags)
		VALUES (new.id, new.summary, new.rationale, new.implementation_details, new.tags);
	END`,
	`CREATE TRIGGER IF NOT EXISTS decisions_ad AFTER DELETE ON decisions BEGIN
		INSERT INTO decisions_fts (decisions_fts, rowid, summary, rationale, implementation_details, tags)
		VALUES ('delete', old.id, old.summary, old.rationale, old.implementation_details, old.tags);
	END`,
	`CREATE TRIGGER IF NOT EXISTS decisions_au AFTER UPDATE ON decisions BEGIN
		INSERT INTO decisions_fts (decisions_fts, rowid, summary, rationale, implementation_details, tags)
		VALUES ('delete', old.id, old.summary, old.rationale, old.implementation_details, old.tags);
		INSERT INTO decisions_fts (rowid, summary, rationale, implementation_details, tags)
		VALUES (new.id, new.summary, new.rationale, new.implementation_details, new.tags);
	END`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS custom_data_fts USING fts5(
		category, key, value,
		content='custom_data', content_rowid='id'
	)`,
	`CREATE TRIGGER IF NOT EXISTS custom_data_ai AFTER INSERT ON custom_data BEGIN
		INSERT INTO custom_data_fts (rowid, category, key, value)
		VALUES (new.id, new.category, new.key, new.value);
	END`,
	`CREATE TRIGGER IF NOT EXISTS custom_data_ad AFTER DELETE ON custom_data BEGIN
		INSERT INTO custom_data_fts (custom_data_fts, rowid, category, key, value)
		VALUES ('delete', old.id, old.category, old.key, old.value);
	END`,
	`CREATE TRIGGER IF NOT EXISTS custom_data_au AFTER UPDATE ON custom_data BEGIN
		INSERT INTO custom_data_fts (custom_data_fts, rowid, category, key, value)
		VALUES ('delete', old.id, old.category, old.key, old.value);
		INSERT INTO custom_data_fts (rowid, category, key, value)
		VALUES (new.id, new.category, new.key, new.value);
	END`,
}

func migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
