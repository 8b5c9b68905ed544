package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create consultations and exchanges",
		SQL: `
			CREATE TABLE consultations (
				id              TEXT PRIMARY KEY,
				first_question  TEXT NOT NULL DEFAULT '',
				step            TEXT NOT NULL,
				answers         INTEGER NOT NULL DEFAULT 0,
				created_at      TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at      TEXT NOT NULL DEFAULT (datetime('now')),
				ended_at        TEXT,
				end_reason      TEXT
			);

			CREATE INDEX idx_consultations_created ON consultations (created_at);

			CREATE TABLE exchanges (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id   TEXT NOT NULL REFERENCES consultations(id) ON DELETE CASCADE,
				seq          INTEGER NOT NULL DEFAULT 0,
				answer       TEXT NOT NULL,
				reply        TEXT NOT NULL DEFAULT '',
				step         TEXT NOT NULL DEFAULT '',
				error_code   TEXT NOT NULL DEFAULT '',
				error        TEXT NOT NULL DEFAULT '',
				duration_ms  INTEGER NOT NULL DEFAULT 0,
				created_at   TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_exchanges_session ON exchanges (session_id, id);
		`,
	},
	{
		Version: 2,
		Name:    "index exchanges with FTS5",
		SQL: `
			CREATE VIRTUAL TABLE exchanges_fts USING fts5(
				answer,
				reply,
				content='exchanges',
				content_rowid='id'
			);

			CREATE TRIGGER exchanges_ai AFTER INSERT ON exchanges BEGIN
				INSERT INTO exchanges_fts(rowid, answer, reply)
				VALUES (new.id, new.answer, new.reply);
			END;

			CREATE TRIGGER exchanges_ad AFTER DELETE ON exchanges BEGIN
				INSERT INTO exchanges_fts(exchanges_fts, rowid, answer, reply)
				VALUES ('delete', old.id, old.answer, old.reply);
			END;
		`,
	},
}
