package models

import (
	"gorm.io/gorm"
)

// Migrate runs the schema migration plus the raw indexes AutoMigrate cannot
// express. The partial unique index is the storage-level guarantee behind
// "at most one active ban per player" — the application check alone would
// leave a race window between two concurrent bans.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&BanRecord{},
		&Tournament{},
		&TournamentPlayer{},
		&Match{},
		&PlayerMirror{},
		&OutboxTask{},
	); err != nil {
		return err
	}

	// Supported by both PostgreSQL and the SQLite test database.
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_ban_records_one_active ON ban_records (player_id) WHERE is_active`,
	).Error
}
