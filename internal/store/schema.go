package store

// Schema is applied on every open. CREATE TABLE IF NOT EXISTS keeps it
// idempotent for existing databases.
const Schema = `
CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	sender_id TEXT NOT NULL,
	recipient_id TEXT,
	title TEXT,
	message TEXT,
	type TEXT NOT NULL DEFAULT 'custom',
	priority TEXT NOT NULL DEFAULT 'medium',
	abstract TEXT DEFAULT '',
	response_requested BOOLEAN NOT NULL DEFAULT 0,
	response_type TEXT,
	response_default TEXT,
	response_options TEXT DEFAULT '[]',
	timeout_seconds INTEGER NOT NULL DEFAULT 0,
	state TEXT NOT NULL DEFAULT 'created',
	response_value TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	delivered_at DATETIME,
	responded_at DATETIME,
	expires_at DATETIME,
	deleted_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_notifications_state ON notifications(state);
CREATE INDEX IF NOT EXISTS idx_notifications_expiry ON notifications(state, expires_at);
CREATE INDEX IF NOT EXISTS idx_notifications_sender ON notifications(sender_id);

CREATE TABLE IF NOT EXISTS decisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	notification_id TEXT NOT NULL,
	domain TEXT,
	category TEXT,
	question TEXT,
	action TEXT NOT NULL,
	decision_value TEXT,
	confidence REAL NOT NULL DEFAULT 0,
	trust_level INTEGER NOT NULL DEFAULT 1,
	reason TEXT,
	requires_ratification BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_decisions_notification ON decisions(notification_id);
CREATE INDEX IF NOT EXISTS idx_decisions_action ON decisions(action);

CREATE TABLE IF NOT EXISTS ratifications (
	ratification_id TEXT PRIMARY KEY,
	notification_id TEXT NOT NULL,
	category TEXT,
	proposed_value TEXT,
	sender TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	resolved_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_ratifications_status ON ratifications(status);
`
