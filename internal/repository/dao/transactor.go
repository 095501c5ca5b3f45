package dao

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

type txKey struct{}

// Transactor runs functions inside a database transaction. DAOs called with
// the context handed to fn join that transaction.
type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{
		db: db,
	}
}

// WithTx commits when fn returns nil and rolls back otherwise. Calls nested
// inside an open transaction reuse it.
func (t *Transactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// AdvisoryLock takes a transaction-scoped Postgres advisory lock on key. It
// is released on commit or rollback.
func (t *Transactor) AdvisoryLock(ctx context.Context, key string) error {
	return conn(ctx, t.db).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}

func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}

	return db.WithContext(ctx)
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == constraint
}

func dateArg(t time.Time) string {
	return t.Format(domain.DateLayout)
}
