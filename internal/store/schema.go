package store

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	passcode TEXT UNIQUE NOT NULL,
	role TEXT DEFAULT 'user',
	created_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	updated_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	is_deleted INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	user_id TEXT,
	name TEXT NOT NULL,
	description TEXT,
	created_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	updated_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	is_deleted INTEGER DEFAULT 0,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS videos (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	title TEXT NOT NULL,
	filename TEXT NOT NULL,
	source_url TEXT,
	duration REAL,
	width INTEGER,
	height INTEGER,
	size_bytes INTEGER,
	is_clip INTEGER DEFAULT 0,
	parent_video_id TEXT,
	created_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	updated_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	is_deleted INTEGER DEFAULT 0,
	FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
	FOREIGN KEY (parent_video_id) REFERENCES videos(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	priority INTEGER DEFAULT 0,
	project_id TEXT,
	video_id TEXT,
	input_data TEXT,
	output_data TEXT,
	progress INTEGER DEFAULT 0,
	error_message TEXT,
	retry_count INTEGER DEFAULT 0,
	max_retries INTEGER DEFAULT 3,
	created_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	started_at TEXT,
	completed_at TEXT,
	updated_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
	FOREIGN KEY (video_id) REFERENCES videos(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS captions (
	id TEXT PRIMARY KEY,
	video_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	language TEXT DEFAULT 'en',
	format TEXT DEFAULT 'srt',
	style TEXT,
	created_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	updated_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
	is_deleted INTEGER DEFAULT 0,
	FOREIGN KEY (video_id) REFERENCES videos(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	description TEXT,
	updated_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE TABLE IF NOT EXISTS metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE INDEX IF NOT EXISTS idx_users_passcode ON users(passcode);
CREATE INDEX IF NOT EXISTS idx_projects_user_id ON projects(user_id);
CREATE INDEX IF NOT EXISTS idx_projects_is_deleted ON projects(is_deleted);
CREATE INDEX IF NOT EXISTS idx_videos_project_id ON videos(project_id);
CREATE INDEX IF NOT EXISTS idx_videos_is_deleted ON videos(is_deleted);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_type ON jobs(type);
CREATE INDEX IF NOT EXISTS idx_jobs_priority ON jobs(priority DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_project_id ON jobs(project_id);
CREATE INDEX IF NOT EXISTS idx_jobs_video_id ON jobs(video_id);
CREATE INDEX IF NOT EXISTS idx_captions_video_id ON captions(video_id);

CREATE TRIGGER IF NOT EXISTS update_users_timestamp
	AFTER UPDATE ON users
BEGIN
	UPDATE users SET updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE id = NEW.id;
END;

CREATE TRIGGER IF NOT EXISTS update_projects_timestamp
	AFTER UPDATE ON projects
BEGIN
	UPDATE projects SET updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE id = NEW.id;
END;

CREATE TRIGGER IF NOT EXISTS update_videos_timestamp
	AFTER UPDATE ON videos
BEGIN
	UPDATE videos SET updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE id = NEW.id;
END;

CREATE TRIGGER IF NOT EXISTS update_jobs_timestamp
	AFTER UPDATE ON jobs
BEGIN
	UPDATE jobs SET updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE id = NEW.id;
END;

CREATE TRIGGER IF NOT EXISTS update_captions_timestamp
	AFTER UPDATE ON captions
BEGIN
	UPDATE captions SET updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now') WHERE id = NEW.id;
END;
`
