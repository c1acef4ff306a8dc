// Package database provides SQLite connectivity for the dimmer's journal.
//
// This package manages:
//   - Database connection with WAL mode and a busy timeout
//   - Schema migrations from an embedded filesystem
//   - Connection lifecycle and health checks
//
// The database is optional. When enabled it holds the light change journal
// used to restore the last state after a restart.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql.
package database
