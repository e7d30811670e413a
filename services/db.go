package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate takes a row lock so mutations on the same entity key
// serialize. The SQLite test database has no row locks — its single-writer
// lock serializes transactions instead, and the partial unique indexes
// remain the backstop.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
