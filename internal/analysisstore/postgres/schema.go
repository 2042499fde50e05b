package postgres

// Schema is the DDL for the analyses table, stable per the spec: id,
// symbol, timeframe, timestamp, trend, support, resistance, momentum,
// bias, price, full record, with a unique index on (symbol, timeframe,
// timestamp) and supporting indexes for freshness queries.
const Schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id               BIGSERIAL PRIMARY KEY,
	correlation_id   UUID NOT NULL,
	symbol           TEXT NOT NULL,
	timeframe        TEXT NOT NULL,
	ts               TIMESTAMPTZ NOT NULL,
	trend            TEXT,
	structure        TEXT,
	support          JSONB,
	resistance       JSONB,
	momentum         TEXT,
	momentum_condition TEXT,
	volume_trend     TEXT,
	candlestick_pattern TEXT,
	bias             TEXT,
	reasoning        TEXT,
	key_levels       TEXT,
	price            DOUBLE PRECISION,
	perception_confidence DOUBLE PRECISION,
	perception_completeness DOUBLE PRECISION,
	perception_conflicts INTEGER,
	critical_conflict BOOLEAN,
	validation_warnings JSONB,
	full_record      JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(symbol, timeframe, ts)
);

CREATE INDEX IF NOT EXISTS idx_analyses_symbol_ts ON analyses (symbol, ts DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_ts ON analyses (ts DESC);

CREATE TABLE IF NOT EXISTS scenario_resolutions (
	analysis_id BIGINT PRIMARY KEY REFERENCES analyses(id),
	scenario    TEXT NOT NULL,
	ts          TIMESTAMPTZ NOT NULL,
	notes       TEXT
);
`
