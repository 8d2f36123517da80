package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/cgtfolio/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		security TEXT NOT NULL,
		name TEXT,
		trade_date TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity TEXT NOT NULL,
		price TEXT NOT NULL,
		currency TEXT NOT NULL,
		commission TEXT NOT NULL,
		fx_rate TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		raw_text TEXT,
		source TEXT NOT NULL,
		upload_id TEXT,
		hash_id TEXT NOT NULL,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, hash_id)
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}

	migrateTransactionsTable()

	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.", "databasePath", databasePath)
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateTransactionsTable adds columns introduced after the first release
// to existing databases. sqlite has no ADD COLUMN IF NOT EXISTS, so column
// presence is checked via PRAGMA first.
func migrateTransactionsTable() {
	rows, err := DB.Query("PRAGMA table_info(transactions)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for transactions", "error", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for transactions", "error", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err := rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for transactions", "error", err)
		}
		return
	}

	if !columnExists["upload_id"] {
		if _, err := DB.Exec("ALTER TABLE transactions ADD COLUMN upload_id TEXT"); err != nil {
			logger.L.Error("Error adding 'upload_id' column to 'transactions' table", "error", err)
		} else {
			logger.L.Info("Added 'upload_id' column to 'transactions' table")
		}
	}
	if !columnExists["name"] {
		if _, err := DB.Exec("ALTER TABLE transactions ADD COLUMN name TEXT"); err != nil {
			logger.L.Error("Error adding 'name' column to 'transactions' table", "error", err)
		} else {
			logger.L.Info("Added 'name' column to 'transactions' table")
		}
	}
}
