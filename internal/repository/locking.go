package repository

import (
    "gorm.io/gorm"
    "gorm.io/gorm/clause"
)

// lockRow takes a row lock on the record of m with the given id for the
// rest of tx.  Check-then-insert sequences on child rows serialize on
// it.  SQLite has no row locks; its driver drops the clause and relies
// on the database-wide write lock instead.
func lockRow(tx *gorm.DB, m any, id uint64) error {
    err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
        Select("id").First(m, id).Error
    return notFound(err)
}
