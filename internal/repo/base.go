package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Base is embedded by every domain repository. The handle may be the pool or
// a transaction; repositories never begin transactions themselves.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB scopes the handle to ctx. A nil ctx returns the handle untouched.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// ForUpdate row-locks what the query selects until the transaction ends.
// SQLite ignores the clause and serializes writers at the database level.
func (b Base) ForUpdate(ctx context.Context) *gorm.DB {
	return b.DB(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

// First loads the first T matching query, in primary key order.
func First[T any](db *gorm.DB, query any, args ...any) (*T, error) {
	var out T
	if err := db.Where(query, args...).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// Exists reports whether any T matches query without loading it.
func Exists[T any](db *gorm.DB, query any, args ...any) (bool, error) {
	var count int64
	if err := db.Model(new(T)).Where(query, args...).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsNotFound reports a missing row anywhere in err's chain.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
