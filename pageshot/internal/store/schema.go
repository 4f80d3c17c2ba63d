package store

// Schema contains the DDL for the capture tables.
const Schema = `
-- Finished captures: metadata plus the encoded composite
CREATE TABLE IF NOT EXISTS captures (
    id              TEXT PRIMARY KEY,
    url             TEXT NOT NULL,
    title           TEXT NOT NULL DEFAULT '',
    width           INTEGER NOT NULL,
    height          INTEGER NOT NULL,
    viewport_height INTEGER NOT NULL,
    tiles           INTEGER NOT NULL,
    format          TEXT NOT NULL,
    mime            TEXT NOT NULL,
    digest          TEXT NOT NULL,
    size            INTEGER NOT NULL,
    content         TEXT NOT NULL DEFAULT '',
    markdown        TEXT NOT NULL DEFAULT '',
    elapsed_ms      INTEGER NOT NULL DEFAULT 0,
    image           BLOB NOT NULL,
    created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_captures_created ON captures(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_captures_url ON captures(url);
CREATE INDEX IF NOT EXISTS idx_captures_digest ON captures(digest);

-- Capture attempts, successful or not
CREATE TABLE IF NOT EXISTS capture_events (
    id          TEXT PRIMARY KEY,
    capture_id  TEXT REFERENCES captures(id) ON DELETE SET NULL,
    url         TEXT NOT NULL,
    action      TEXT NOT NULL,
    success     INTEGER NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_capture ON capture_events(capture_id);
CREATE INDEX IF NOT EXISTS idx_events_created ON capture_events(created_at DESC);
`
