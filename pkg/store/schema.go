package store

import "strings"

// schemaTemplate is shared by SQLite and PostgreSQL; column types are substituted per dialect
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	currency TEXT NOT NULL DEFAULT 'USD',
	created_at {{TIME}} NOT NULL,
	updated_at {{TIME}} NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	token_hash TEXT NOT NULL,
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	created_at {{TIME}} NOT NULL,
	expires_at {{TIME}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);

CREATE TABLE IF NOT EXISTS lumber (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at {{TIME}} NOT NULL,
	updated_at {{TIME}} NOT NULL,
	deleted_at {{TIME}},
	species TEXT NOT NULL,
	grade TEXT NOT NULL DEFAULT '',
	width {{REAL}} NOT NULL,
	thickness {{REAL}} NOT NULL,
	length {{REAL}} NOT NULL,
	length_unit TEXT NOT NULL DEFAULT 'in',
	quantity INTEGER NOT NULL DEFAULT 0,
	price_per_board_foot {{REAL}} NOT NULL DEFAULT 0,
	supplier TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS finishes (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at {{TIME}} NOT NULL,
	updated_at {{TIME}} NOT NULL,
	deleted_at {{TIME}},
	name TEXT NOT NULL,
	brand TEXT NOT NULL DEFAULT '',
	finish_type TEXT NOT NULL DEFAULT 'other',
	volume {{REAL}} NOT NULL DEFAULT 0,
	volume_unit TEXT NOT NULL DEFAULT '',
	price {{REAL}} NOT NULL DEFAULT 0,
	quantity INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sheet_goods (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at {{TIME}} NOT NULL,
	updated_at {{TIME}} NOT NULL,
	deleted_at {{TIME}},
	name TEXT NOT NULL,
	material TEXT NOT NULL DEFAULT 'other',
	width {{REAL}} NOT NULL DEFAULT 0,
	length {{REAL}} NOT NULL DEFAULT 0,
	thickness {{REAL}} NOT NULL DEFAULT 0,
	price {{REAL}} NOT NULL DEFAULT 0,
	quantity INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS consumables (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at {{TIME}} NOT NULL,
	updated_at {{TIME}} NOT NULL,
	deleted_at {{TIME}},
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT 'other',
	package_price {{REAL}} NOT NULL DEFAULT 0,
	package_quantity {{REAL}} NOT NULL DEFAULT 1,
	unit TEXT NOT NULL DEFAULT 'pcs',
	quantity {{REAL}} NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS tools (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at {{TIME}} NOT NULL,
	updated_at {{TIME}} NOT NULL,
	deleted_at {{TIME}},
	name TEXT NOT NULL,
	brand TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	purchase_price {{REAL}} NOT NULL DEFAULT 0,
	purchase_date {{TIME}},
	tool_condition TEXT NOT NULL DEFAULT 'good',
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at {{TIME}} NOT NULL,
	updated_at {{TIME}} NOT NULL,
	deleted_at {{TIME}},
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'planned',
	client_name TEXT NOT NULL DEFAULT '',
	labor_hours {{REAL}} NOT NULL DEFAULT 0,
	hourly_rate {{REAL}} NOT NULL DEFAULT 0,
	misc_cost {{REAL}} NOT NULL DEFAULT 0,
	sale_price {{REAL}} NOT NULL DEFAULT 0,
	start_date {{TIME}},
	due_date {{TIME}},
	completed_at {{TIME}},
	share_token TEXT UNIQUE,
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS project_items (
	project_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	item_id TEXT NOT NULL,
	quantity {{REAL}} NOT NULL DEFAULT 0,
	percentage {{REAL}} NOT NULL DEFAULT 0,
	sort_order INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (project_id, kind, item_id)
);

CREATE INDEX IF NOT EXISTS idx_project_items_item ON project_items(kind, item_id);
CREATE INDEX IF NOT EXISTS idx_lumber_user ON lumber(user_id, deleted_at);
CREATE INDEX IF NOT EXISTS idx_finishes_user ON finishes(user_id, deleted_at);
CREATE INDEX IF NOT EXISTS idx_sheet_goods_user ON sheet_goods(user_id, deleted_at);
CREATE INDEX IF NOT EXISTS idx_consumables_user ON consumables(user_id, deleted_at);
CREATE INDEX IF NOT EXISTS idx_tools_user ON tools(user_id, deleted_at);
CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id, deleted_at);
`

func schemaFor(postgres bool) string {
	r := strings.NewReplacer("{{TIME}}", "DATETIME", "{{REAL}}", "REAL")
	if postgres {
		r = strings.NewReplacer("{{TIME}}", "TIMESTAMPTZ", "{{REAL}}", "DOUBLE PRECISION")
	}
	return r.Replace(schemaTemplate)
}
