package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WithRowLock adds a FOR UPDATE clause on dialects that support it.
// SQLite serializes writers itself and rejects the syntax.
func WithRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
