// Package db provides store connections and schema migration.
package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds a MySQL DSN for connecting to a shared coordination database.
func DSN(user, host string, port int, database string) string {
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true", user, host, port, database)
}

// Connect opens a GORM connection to a MySQL coordination database.
func Connect(user, host string, port int, database string) (*gorm.DB, error) {
	dsn := DSN(user, host, port, database)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", host, port, database, err)
	}
	return db, nil
}

// ConnectSQLite opens a GORM connection to a local SQLite database file.
// Use ":memory:" for an ephemeral store.
func ConnectSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
	}
	return db, nil
}
