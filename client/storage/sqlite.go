package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tkrehbiel/distrolace/client/telemetry"
)

// Database is the durable client-side store. It outlives restarts of the
// terminal client the way browser local storage outlives a page reload.
type Database interface {
	Open() error
	Close()
	Settings
	Nodes
	Syndicated
}

// sqliteDatabase is a Database backed by a sqlite file
type sqliteDatabase struct {
	connection string
	db         *gorm.DB
	sqldb      *sql.DB
}

// sqlLog routes gorm's complaints into telemetry
type sqlLog struct{}

func (sqlLog) Printf(format string, args ...any) {
	telemetry.Log("sql: "+format, args...)
}

func (s *sqliteDatabase) Open() error {
	s.Close()
	db, err := gorm.Open(sqlite.Open(s.connection), &gorm.Config{
		Logger: logger.New(sqlLog{}, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.connection, err)
	}
	sqldb, err := db.DB()
	if err != nil {
		return err
	}
	// sqlite allows one writer; a single connection also keeps an
	// in-memory database alive between calls
	sqldb.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Setting{}, &RemoteNode{}, &SyndicatedItem{}); err != nil {
		sqldb.Close()
		return fmt.Errorf("migrating %s: %w", s.connection, err)
	}
	s.db, s.sqldb = db, sqldb
	telemetry.Trace("opened database %s", s.connection)
	return nil
}

func (s *sqliteDatabase) Close() {
	if s.sqldb == nil {
		return
	}
	if err := s.sqldb.Close(); err != nil {
		telemetry.Error(err, "closing database %s", s.connection)
	}
	s.db, s.sqldb = nil, nil
}

func (s *sqliteDatabase) ready() error {
	if s.db == nil {
		return fmt.Errorf("database %s has not been opened", s.connection)
	}
	return nil
}

// NewDatabase returns an unopened sqlite Database; connection is a file
// name or a sqlite URI
func NewDatabase(connection string) Database {
	return &sqliteDatabase{connection: connection}
}
