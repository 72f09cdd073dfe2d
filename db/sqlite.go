package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	libsql "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/termfx/gglang/internal/config"
	"github.com/termfx/gglang/models"
)

// Open connects the build log for a project and runs migrations. The
// DSN resolution order is: explicit override (--log or GG_BUILD_LOG),
// then the project file's build_log setting. Resolving to nothing
// means the build log is disabled, which is an error for callers that
// got this far.
func Open(project *config.Project, overrideDSN string, verbose bool) (*gorm.DB, error) {
	dsn := ResolveDSN(project, overrideDSN)
	if dsn == "" {
		return nil, fmt.Errorf("no build log configured (set build_log in %s, --log, or GG_BUILD_LOG)", config.ProjectFileName)
	}

	dialector, cleanup, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if verbose {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	gdb, err := gorm.Open(dialector, cfg)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, fmt.Errorf("opening build log %s: %w", dsn, err)
	}

	// Local logs are written once per build and read concurrently by
	// `gg log`; WAL keeps readers from blocking the writer.
	if !isRemote(dsn) {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Exec("PRAGMA foreign_keys = ON")
			sqlDB.Exec("PRAGMA journal_mode = WAL")
		}
	}

	if err := Migrate(gdb); err != nil {
		return nil, fmt.Errorf("migrating build log: %w", err)
	}
	return gdb, nil
}

// ResolveDSN picks the build-log location without opening it.
func ResolveDSN(project *config.Project, overrideDSN string) string {
	if overrideDSN != "" {
		return overrideDSN
	}
	if project != nil {
		return project.BuildLog
	}
	return ""
}

// dialectorFor builds the gorm dialector: local paths open file-backed
// sqlite (creating the parent directory), remote URLs go through the
// libsql connector. cleanup closes the remote connection when the open
// fails afterwards.
func dialectorFor(dsn string) (gorm.Dialector, func(), error) {
	if !isRemote(dsn) {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating build log directory: %w", err)
			}
		}
		return sqlite.Open(dsn), nil, nil
	}

	var opts []libsql.Option
	if token := os.Getenv("GG_LIBSQL_AUTH_TOKEN"); token != "" {
		opts = append(opts, libsql.WithAuthToken(token))
	}
	connector, err := libsql.NewConnector(dsn, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("creating libsql connector: %w", err)
	}
	conn := sql.OpenDB(connector)
	return sqlite.New(sqlite.Config{
		DriverName: "libsql",
		Conn:       conn,
		DSN:        dsn,
	}), func() { _ = conn.Close() }, nil
}

// isRemote reports whether the DSN is a shared remote log rather than
// a local file.
func isRemote(dsn string) bool {
	for _, scheme := range []string{"libsql://", "https://", "http://", "wss://"} {
		if strings.HasPrefix(dsn, scheme) {
			return true
		}
	}
	return false
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.CompileRun{},
		&models.DiagnosticRecord{},
	)
}

// RecordRun persists a compile run with its diagnostics.
func RecordRun(db *gorm.DB, run *models.CompileRun) error {
	if err := db.Create(run).Error; err != nil {
		return fmt.Errorf("recording compile run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func RecentRuns(db *gorm.DB, limit int) ([]models.CompileRun, error) {
	var runs []models.CompileRun
	err := db.Preload("Diagnostics").
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("loading compile runs: %w", err)
	}
	return runs, nil
}
