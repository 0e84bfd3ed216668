// Package core provides bulk statement building and the execution adapter
// that runs built statements on a database/sql connection pool.
package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/coregx/bulkupsert/internal/cache"
	"github.com/coregx/bulkupsert/internal/dialects"
	"github.com/coregx/bulkupsert/internal/logger"
	"github.com/coregx/bulkupsert/internal/security"
	"github.com/coregx/bulkupsert/internal/tracer"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// DB runs bulk statements on a *sql.DB. It does not manage the pool or
// transactions beyond what the caller hands it.
type DB struct {
	sqlDB       *sql.DB
	driverName  string
	dialect     dialects.Dialect
	stmtCache   *cache.StmtCache
	logger      logger.Logger
	sanitizer   *logger.Sanitizer
	tracer      tracer.Tracer
	auditor     *security.Auditor
	hook        StatementHook
	builderOpts []BuilderOption
	owned       bool
}

// Option is a functional option for configuring DB.
type Option func(*DB)

// WithLogger sets the execution logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(db *DB) {
		if l != nil {
			db.logger = l
		}
	}
}

// WithTracer sets the tracer used for execution spans.
func WithTracer(t tracer.Tracer) Option {
	return func(db *DB) {
		if t != nil {
			db.tracer = t
		}
	}
}

// WithSanitizer sets the sanitizer applied to logged parameters.
func WithSanitizer(s *logger.Sanitizer) Option {
	return func(db *DB) {
		if s != nil {
			db.sanitizer = s
		}
	}
}

// WithStmtCacheCapacity sets the prepared statement cache capacity.
func WithStmtCacheCapacity(capacity int) Option {
	return func(db *DB) {
		db.stmtCache = cache.NewStmtCacheWithCapacity(capacity)
	}
}

// WithStatementHook registers a hook called after every execution.
func WithStatementHook(hook StatementHook) Option {
	return func(db *DB) {
		db.hook = hook
	}
}

// WithAuditor audits executed and rejected statements.
func WithAuditor(a *security.Auditor) Option {
	return func(db *DB) {
		db.auditor = a
	}
}

// WithBuilderOptions applies opts to every builder created by DB.Builder,
// before the per-call options.
func WithBuilderOptions(opts ...BuilderOption) Option {
	return func(db *DB) {
		db.builderOpts = append(db.builderOpts, opts...)
	}
}

// WrapDB wraps an existing *sql.DB. The dialect is resolved from
// driverName; Close leaves sqlDB open.
func WrapDB(sqlDB *sql.DB, driverName string, opts ...Option) (*DB, error) {
	if sqlDB == nil {
		return nil, errors.New("bulkupsert: nil *sql.DB")
	}
	dialect, err := dialects.GetDialect(driverName)
	if err != nil {
		return nil, err
	}

	db := &DB{
		sqlDB:      sqlDB,
		driverName: driverName,
		dialect:    dialect,
		stmtCache:  cache.NewStmtCache(),
		logger:     &logger.NoopLogger{},
		sanitizer:  logger.NewSanitizer(nil),
		tracer:     &tracer.NoopTracer{},
	}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Open opens a connection pool with database/sql and wraps it. The
// returned DB owns the pool and closes it on Close.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	if _, err := dialects.GetDialect(driverName); err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	db, err := WrapDB(sqlDB, driverName, opts...)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	db.owned = true
	return db, nil
}

// OpenMySQL opens a MySQL pool from a driver config.
func OpenMySQL(cfg *mysql.Config, opts ...Option) (*DB, error) {
	if cfg == nil {
		cfg = mysql.NewConfig()
	}
	return Open("mysql", cfg.FormatDSN(), opts...)
}

// Close drops cached statements and, if DB opened the pool, closes it.
func (db *DB) Close() error {
	db.stmtCache.Clear()
	if !db.owned {
		return nil
	}
	return db.sqlDB.Close()
}

// Dialect returns the dialect resolved from the driver name.
func (db *DB) Dialect() dialects.Dialect {
	return db.dialect
}

// SQLDB returns the underlying connection pool.
func (db *DB) SQLDB() *sql.DB {
	return db.sqlDB
}

// CacheStats returns prepared statement cache statistics.
func (db *DB) CacheStats() cache.Stats {
	return db.stmtCache.Stats()
}

// Builder returns a statement builder for meta using DB's dialect, the
// options from WithBuilderOptions, then opts.
func (db *DB) Builder(meta TableMetadata, opts ...BuilderOption) *Builder {
	all := make([]BuilderOption, 0, len(db.builderOpts)+len(opts)+1)
	all = append(all, WithDialect(db.dialect))
	all = append(all, db.builderOpts...)
	all = append(all, opts...)
	return NewBuilder(meta, all...)
}

// Exec runs stmt on the pool and returns the affected row count.
func (db *DB) Exec(ctx context.Context, stmt *Statement) (int64, error) {
	return db.execute(ctx, nil, stmt)
}

// ExecTx runs stmt inside tx. The statement cache is bypassed.
func (db *DB) ExecTx(ctx context.Context, tx *sql.Tx, stmt *Statement) (int64, error) {
	if tx == nil {
		return 0, errors.New("bulkupsert: nil transaction")
	}
	return db.execute(ctx, tx, stmt)
}

// ExecAll runs stmts in order and returns the summed affected rows. It
// stops at the first failure; earlier statements are not undone.
func (db *DB) ExecAll(ctx context.Context, stmts []*Statement) (int64, error) {
	var total int64
	for i, stmt := range stmts {
		n, err := db.execute(ctx, nil, stmt)
		total += n
		if err != nil {
			return total, fmt.Errorf("statement %d of %d: %w", i+1, len(stmts), err)
		}
	}
	return total, nil
}

// Upsert builds and runs INSERT ... ON DUPLICATE KEY UPDATE for input,
// split into as many statements as the dialect's parameter limit needs.
func (db *DB) Upsert(ctx context.Context, meta TableMetadata, input any, update ...UpdateColumn) (int64, error) {
	return db.buildAndExec(ctx, KindUpsert, meta, input, update)
}

// InsertIgnore builds and runs INSERT IGNORE INTO for input.
func (db *DB) InsertIgnore(ctx context.Context, meta TableMetadata, input any) (int64, error) {
	return db.buildAndExec(ctx, KindInsertIgnore, meta, input, nil)
}

// Replace builds and runs REPLACE INTO for input.
func (db *DB) Replace(ctx context.Context, meta TableMetadata, input any) (int64, error) {
	return db.buildAndExec(ctx, KindReplace, meta, input, nil)
}

func (db *DB) buildAndExec(ctx context.Context, kind Kind, meta TableMetadata, input any, update []UpdateColumn) (int64, error) {
	b := db.Builder(meta)
	stmts, err := b.BuildChunks(kind, input, update...)
	if err != nil {
		if errors.Is(err, ErrUnsafeFragment) {
			db.auditor.LogRejected(ctx, kind.String(), b.Table(), err)
		}
		return 0, err
	}
	return db.ExecAll(ctx, stmts)
}

// IsDuplicateKey reports whether err is a MySQL duplicate entry error.
func IsDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
