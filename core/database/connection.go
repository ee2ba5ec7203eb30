package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the price database from a URI. A postgres:// scheme
// selects Postgres; anything else is treated as an SQLite file path, which
// is the default deployment.
func NewDatabase(uri string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	isSQLite := true

	switch {
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		dialector = postgres.Open(uri)
		isSQLite = false
	case uri == "":
		return nil, fmt.Errorf("database URI cannot be blank")
	default:
		dsn := strings.TrimPrefix(uri, "file:")
		dialector = sqlite.Open(fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", dsn))
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database (%s): %w", uri, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}

	if isSQLite {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetMaxIdleConns(10)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
