package store

const Schema = `
CREATE TABLE IF NOT EXISTS tracks (
	uri TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	artist_name TEXT NOT NULL DEFAULT '',
	artist_uri TEXT NOT NULL DEFAULT '',
	artist_pop INTEGER NOT NULL DEFAULT 0,
	artist_genres TEXT,  -- JSON array
	album TEXT NOT NULL DEFAULT '',
	track_pop INTEGER NOT NULL DEFAULT 0,

	-- Audio analysis
	danceability REAL NOT NULL DEFAULT 0,
	energy REAL NOT NULL DEFAULT 0,
	key INTEGER NOT NULL DEFAULT 0,
	loudness REAL NOT NULL DEFAULT 0,
	mode INTEGER NOT NULL DEFAULT 0,
	speechiness REAL NOT NULL DEFAULT 0,
	acousticness REAL NOT NULL DEFAULT 0,
	instrumentalness REAL NOT NULL DEFAULT 0,
	liveness REAL NOT NULL DEFAULT 0,
	valence REAL NOT NULL DEFAULT 0,
	tempo REAL NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	time_signature INTEGER NOT NULL DEFAULT 0,

	playlist_name TEXT NOT NULL DEFAULT '',

	-- Timestamps
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tracks_playlist_name ON tracks(playlist_name);
CREATE INDEX IF NOT EXISTS idx_tracks_artist_uri ON tracks(artist_uri);

CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	playlist_name TEXT NOT NULL,
	playlist_url TEXT NOT NULL,
	playlist_id TEXT NOT NULL,
	status TEXT NOT NULL,
	weights TEXT,  -- JSON array
	track_count INTEGER NOT NULL DEFAULT 0,
	candidate_count INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at);

CREATE TABLE IF NOT EXISTS submission_tracks (
	submission_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	uri TEXT NOT NULL,
	PRIMARY KEY (submission_id, position),
	FOREIGN KEY (submission_id) REFERENCES submissions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS recommendations (
	submission_id TEXT NOT NULL,
	rank INTEGER NOT NULL,
	uri TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	artist TEXT NOT NULL DEFAULT '',
	album TEXT NOT NULL DEFAULT '',
	score REAL NOT NULL,
	PRIMARY KEY (submission_id, rank),
	FOREIGN KEY (submission_id) REFERENCES submissions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS dataset_growth (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	time TEXT NOT NULL,
	track_count INTEGER NOT NULL,
	recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	data BLOB,
	expires_at DATETIME
);
`
