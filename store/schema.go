package store

// Schema contains the complete DDL for the canvas tables.
const Schema = `
-- Editing sessions: one serialized history record per session key
CREATE TABLE IF NOT EXISTS canvas_sessions (
    session_key TEXT PRIMARY KEY,
    data        BLOB NOT NULL,
    size        INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL
);

-- Source documents imported for local editing
CREATE TABLE IF NOT EXISTS documents (
    id         TEXT PRIMARY KEY,
    title      TEXT NOT NULL DEFAULT '',
    html       TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Element id to stable id bindings reported after hydration and unlock
CREATE TABLE IF NOT EXISTS element_mappings (
    document_id TEXT NOT NULL,
    element_id  TEXT NOT NULL,
    stable_id   TEXT NOT NULL,
    mode        TEXT NOT NULL,
    updated_at  INTEGER NOT NULL,
    PRIMARY KEY (document_id, element_id)
);
CREATE INDEX IF NOT EXISTS idx_mappings_stable ON element_mappings(document_id, stable_id);
`
