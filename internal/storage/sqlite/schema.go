package sqlite

const schema = `
-- One row per error signature; payload is the diagnosis as JSON
CREATE TABLE IF NOT EXISTS triage_cache (
    sig TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_triage_cache_updated_at ON triage_cache(updated_at);
`
