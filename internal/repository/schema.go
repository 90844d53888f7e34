package repository

// Schema for the durable tier. Every mutable entity is upserted by its
// cache key into a ReplacingMergeTree versioned by updated_at; the
// full document is stored as JSON next to the indexed columns the
// query surface filters on. Append-only entities (candles, signals,
// pattern candles) use plain MergeTree.
func SchemaStatements(database string) []string {
	return []string{
		`CREATE DATABASE IF NOT EXISTS ` + database,

		`CREATE TABLE IF NOT EXISTS ` + database + `.candles (
			symbol String,
			timeframe String,
			ts DateTime64(3),
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			volume Float64
		) ENGINE = ReplacingMergeTree
		ORDER BY (symbol, timeframe, ts)`,

		`CREATE TABLE IF NOT EXISTS ` + database + `.market_snapshots (
			cache_key String,
			trade_date String,
			symbol String,
			timeframe String,
			updated_at DateTime64(3),
			doc String
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY cache_key`,

		`CREATE TABLE IF NOT EXISTS ` + database + `.risk_states (
			cache_key String,
			trade_date String,
			symbol String,
			config_id String,
			user_id String,
			eligible UInt8,
			updated_at DateTime64(3),
			doc String
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY cache_key`,

		`CREATE TABLE IF NOT EXISTS ` + database + `.risk_configurations (
			id String,
			user_id String,
			start_trade_date String,
			end_trade_date String,
			created_at DateTime64(3),
			doc String
		) ENGINE = ReplacingMergeTree(created_at)
		ORDER BY id`,

		`CREATE TABLE IF NOT EXISTS ` + database + `.orders (
			id Int64,
			dedup_key String,
			symbol String,
			user_id String,
			algo String,
			phase String,
			placed_at DateTime64(3),
			updated_at DateTime64(3),
			doc String
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY id`,

		`CREATE TABLE IF NOT EXISTS ` + database + `.trade_signals (
			id String,
			symbol String,
			algo String,
			direction String,
			requested_at DateTime64(3),
			doc String
		) ENGINE = MergeTree
		ORDER BY (symbol, requested_at)`,

		`CREATE TABLE IF NOT EXISTS ` + database + `.pattern_candles (
			symbol String,
			algo String,
			identified_at DateTime64(3),
			candle_ts DateTime64(3),
			doc String
		) ENGINE = MergeTree
		ORDER BY (symbol, algo, candle_ts)`,
	}
}
