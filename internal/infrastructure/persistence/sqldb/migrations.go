package sqldb

import "context"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		organization_id INTEGER NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		remote_profile_id TEXT,
		remote_merchant_key TEXT,
		primary_payment_method_id TEXT
	);`,

	`CREATE TABLE IF NOT EXISTS payment_methods (
		id TEXT PRIMARY KEY,
		organization_id INTEGER NOT NULL,
		customer_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		masked_number TEXT NOT NULL,
		brand TEXT NOT NULL DEFAULT '',
		expires_at DATETIME NOT NULL,
		is_primary INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		organization_id INTEGER NOT NULL,
		customer_id INTEGER NOT NULL,
		site_id INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		subtotal INTEGER NOT NULL DEFAULT 0,
		discount INTEGER NOT NULL DEFAULT 0,
		tax INTEGER NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		amount_due INTEGER NOT NULL DEFAULT 0,
		payment_applied INTEGER NOT NULL DEFAULT 0,
		refund_total INTEGER NOT NULL DEFAULT 0,
		store_credit_applied INTEGER NOT NULL DEFAULT 0,
		charge_attempts INTEGER NOT NULL DEFAULT 0,
		charge_failure_log TEXT NOT NULL DEFAULT '[]',
		comp_reason TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS transaction_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		transaction_id TEXT NOT NULL,
		sku TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		unit_price INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		fulfilled_quantity INTEGER NOT NULL DEFAULT 0,
		returned_quantity INTEGER NOT NULL DEFAULT 0,
		credit_eligible INTEGER NOT NULL DEFAULT 0
	);`,

	`CREATE INDEX IF NOT EXISTS idx_transaction_items_transaction
		ON transaction_items (transaction_id);`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		organization_id INTEGER NOT NULL,
		transaction_id TEXT NOT NULL,
		type TEXT NOT NULL,
		remote_auth_code TEXT NOT NULL DEFAULT '',
		remote_transaction_id TEXT NOT NULL DEFAULT '',
		remote_status TEXT,
		amount INTEGER NOT NULL,
		last_four TEXT NOT NULL DEFAULT '',
		payment_profile_id TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`,

	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_transaction
		ON ledger_entries (transaction_id, created_at);`,

	`CREATE TABLE IF NOT EXISTS store_credit_movements (
		id TEXT PRIMARY KEY,
		customer_id INTEGER NOT NULL,
		site_id INTEGER,
		transaction_id TEXT NOT NULL DEFAULT '',
		amount INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		payload BLOB NOT NULL,
		published INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		id BIGINT PRIMARY KEY AUTO_INCREMENT,
		organization_id BIGINT NOT NULL,
		email VARCHAR(255) NOT NULL DEFAULT '',
		first_name VARCHAR(255) NOT NULL DEFAULT '',
		last_name VARCHAR(255) NOT NULL DEFAULT '',
		remote_profile_id VARCHAR(64) NULL,
		remote_merchant_key VARCHAR(64) NULL,
		primary_payment_method_id VARCHAR(64) NULL,
		INDEX idx_customers_organization (organization_id)
	) ENGINE=InnoDB;`,

	`CREATE TABLE IF NOT EXISTS payment_methods (
		id VARCHAR(64) PRIMARY KEY,
		organization_id BIGINT NOT NULL,
		customer_id BIGINT NOT NULL,
		kind VARCHAR(32) NOT NULL,
		masked_number VARCHAR(32) NOT NULL,
		brand VARCHAR(32) NOT NULL DEFAULT '',
		expires_at DATETIME(6) NOT NULL,
		is_primary BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_payment_methods_customer (customer_id)
	) ENGINE=InnoDB;`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id VARCHAR(64) PRIMARY KEY,
		organization_id BIGINT NOT NULL,
		customer_id BIGINT NOT NULL,
		site_id BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(32) NOT NULL,
		note TEXT NOT NULL,
		subtotal BIGINT NOT NULL DEFAULT 0,
		discount BIGINT NOT NULL DEFAULT 0,
		tax BIGINT NOT NULL DEFAULT 0,
		total BIGINT NOT NULL DEFAULT 0,
		amount_due BIGINT NOT NULL DEFAULT 0,
		payment_applied BIGINT NOT NULL DEFAULT 0,
		refund_total BIGINT NOT NULL DEFAULT 0,
		store_credit_applied BIGINT NOT NULL DEFAULT 0,
		charge_attempts INT NOT NULL DEFAULT 0,
		charge_failure_log TEXT NOT NULL,
		comp_reason VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL
	) ENGINE=InnoDB;`,

	`CREATE TABLE IF NOT EXISTS transaction_items (
		id BIGINT PRIMARY KEY AUTO_INCREMENT,
		transaction_id VARCHAR(64) NOT NULL,
		sku VARCHAR(64) NOT NULL,
		description VARCHAR(255) NOT NULL DEFAULT '',
		unit_price BIGINT NOT NULL,
		quantity INT NOT NULL,
		fulfilled_quantity INT NOT NULL DEFAULT 0,
		returned_quantity INT NOT NULL DEFAULT 0,
		credit_eligible BOOLEAN NOT NULL DEFAULT FALSE,
		INDEX idx_transaction_items_transaction (transaction_id)
	) ENGINE=InnoDB;`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id VARCHAR(64) PRIMARY KEY,
		organization_id BIGINT NOT NULL,
		transaction_id VARCHAR(64) NOT NULL,
		type VARCHAR(64) NOT NULL,
		remote_auth_code VARCHAR(32) NOT NULL DEFAULT '',
		remote_transaction_id VARCHAR(64) NOT NULL DEFAULT '',
		remote_status VARCHAR(64) NULL,
		amount BIGINT NOT NULL,
		last_four VARCHAR(4) NOT NULL DEFAULT '',
		payment_profile_id VARCHAR(64) NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX idx_ledger_entries_transaction (transaction_id, created_at),
		INDEX idx_ledger_entries_updated (updated_at)
	) ENGINE=InnoDB;`,

	`CREATE TABLE IF NOT EXISTS store_credit_movements (
		id VARCHAR(64) PRIMARY KEY,
		customer_id BIGINT NOT NULL,
		site_id BIGINT NULL,
		transaction_id VARCHAR(64) NOT NULL DEFAULT '',
		amount BIGINT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_store_credit_customer (customer_id)
	) ENGINE=InnoDB;`,

	`CREATE TABLE IF NOT EXISTS outbox_events (
		id VARCHAR(64) PRIMARY KEY,
		event_type VARCHAR(64) NOT NULL,
		payload BLOB NOT NULL,
		published BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_outbox_unpublished (published, created_at)
	) ENGINE=InnoDB;`,
}

func RunMigrations(ctx context.Context, db *DB) error {
	stmts := sqliteSchema
	if db.Driver == DriverMySQL {
		stmts = mysqlSchema
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
