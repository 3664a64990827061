package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	avatar_url TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS boards (
	id                     TEXT PRIMARY KEY,
	owner_id               TEXT NOT NULL UNIQUE REFERENCES profiles(id) ON DELETE CASCADE,
	name                   TEXT NOT NULL,
	visibility             TEXT NOT NULL DEFAULT 'private',
	sprint_capacity_points INTEGER NOT NULL DEFAULT 20 CHECK (sprint_capacity_points >= 0),
	created_at             DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS lanes (
	id         TEXT PRIMARY KEY,
	board_id   TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	position   INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	UNIQUE (board_id, position)
);

CREATE TABLE IF NOT EXISTS tasks (
	id              TEXT PRIMARY KEY,
	board_id        TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
	lane_id         TEXT REFERENCES lanes(id) ON DELETE SET NULL,
	title           TEXT NOT NULL,
	description     TEXT,
	assignee_id     TEXT REFERENCES profiles(id) ON DELETE SET NULL,
	estimate_points INTEGER NOT NULL CHECK (estimate_points IN (1, 2, 3, 5, 8, 13)),
	is_private      INTEGER NOT NULL DEFAULT 0,
	creator_id      TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS user_connections (
	id          TEXT PRIMARY KEY,
	user1_id    TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	user2_id    TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	status      TEXT NOT NULL DEFAULT 'pending',
	invited_by  TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	accepted_at DATETIME,
	CHECK (user1_id < user2_id),
	UNIQUE (user1_id, user2_id)
);

CREATE TABLE IF NOT EXISTS invites (
	id            TEXT PRIMARY KEY,
	board_id      TEXT NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
	invited_email TEXT NOT NULL,
	inviter_id    TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	token         TEXT NOT NULL UNIQUE,
	status        TEXT NOT NULL DEFAULT 'pending',
	expires_at    DATETIME NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lanes_board ON lanes(board_id, position);
CREATE INDEX IF NOT EXISTS idx_tasks_board ON tasks(board_id, position);
CREATE INDEX IF NOT EXISTS idx_tasks_creator ON tasks(creator_id);
CREATE INDEX IF NOT EXISTS idx_invites_inviter ON invites(inviter_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
