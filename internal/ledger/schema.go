package ledger

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	ticket INTEGER PRIMARY KEY,
	opened_at INTEGER NOT NULL,
	closed_at INTEGER,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	entry_price REAL NOT NULL,
	close_price REAL,
	profit REAL,
	sl REAL NOT NULL,
	tp REAL NOT NULL,
	volume REAL NOT NULL,
	risk_money REAL NOT NULL,
	status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_closed_at ON trades(closed_at);

CREATE TABLE IF NOT EXISTS pending_submissions (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	phase TEXT NOT NULL,
	direction TEXT NOT NULL,
	volume REAL NOT NULL,
	price REAL NOT NULL,
	sl REAL NOT NULL,
	tp REAL NOT NULL,
	risk_money REAL NOT NULL,
	created_at INTEGER NOT NULL
);
`
