// Package postgres implements the store contracts over PostgreSQL.
package postgres

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL and applies pool settings. The single *sql.DB
// is constructed once at process start and injected everywhere it is needed.
func Open(connStr string, maxOpenConns, maxIdleConns, connMaxLifetimeMin int) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(time.Duration(connMaxLifetimeMin) * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: unable to connect: %w", err)
	}

	log.Println("[DB] Connected successfully")
	return db, nil
}

// RunMigrations executes the schema file to initialize the database. The
// schema is idempotent (CREATE ... IF NOT EXISTS throughout).
func RunMigrations(db *sql.DB, schemaPath string) error {
	content, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("postgres: read migration file %s: %w", schemaPath, err)
	}
	if _, err := db.Exec(string(content)); err != nil {
		return fmt.Errorf("postgres: execute %s: %w", schemaPath, err)
	}
	return nil
}
