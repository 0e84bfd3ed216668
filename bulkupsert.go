// Package bulkupsert builds bulk insert-or-update statements for MySQL-family
// databases (INSERT ... ON DUPLICATE KEY UPDATE, INSERT IGNORE, REPLACE INTO)
// from in-memory rows, and optionally runs them through database/sql with
// prepared statement caching, masked logging, and OpenTelemetry tracing.
package bulkupsert

import (
	"github.com/coregx/bulkupsert/internal/cache"
	"github.com/coregx/bulkupsert/internal/core"
	"github.com/coregx/bulkupsert/internal/dialects"
	"github.com/coregx/bulkupsert/internal/logger"
	"github.com/coregx/bulkupsert/internal/security"
	"github.com/coregx/bulkupsert/internal/tracer"
)

type (
	// DB runs built statements on a *sql.DB.
	DB = core.DB
	// Option is a functional option for configuring DB.
	Option = core.Option

	// Builder builds bulk statements for one table.
	Builder = core.Builder
	// BuilderOption configures a Builder.
	BuilderOption = core.BuilderOption
	// Statement is built SQL text with its bound parameters.
	Statement = core.Statement
	// Kind identifies the statement variant.
	Kind = core.Kind

	// Row is an ordered list of named values.
	Row = core.Row
	// Column is one named value of a Row.
	Column = core.Column
	// Batch is the set of rows written by one statement.
	Batch = core.Batch
	// Raw is a SQL expression inlined instead of bound.
	Raw = core.Raw
	// UpdateColumn is one entry of the ON DUPLICATE KEY UPDATE clause.
	UpdateColumn = core.UpdateColumn
	// ColumnSet is a set of column names.
	ColumnSet = core.ColumnSet

	// TableMetadata describes the target table.
	TableMetadata = core.TableMetadata
	// StaticTable is a fixed TableMetadata value.
	StaticTable = core.StaticTable

	// StatementEvent is passed to a StatementHook after execution.
	StatementEvent = core.StatementEvent
	// StatementHook is invoked after each statement execution.
	StatementHook = core.StatementHook

	// Dialect describes the target database.
	Dialect = dialects.Dialect
	// Logger is the logging interface used by DB and Builder.
	Logger = logger.Logger
	// Sanitizer masks sensitive parameters before logging.
	Sanitizer = logger.Sanitizer
	// Tracer starts execution spans.
	Tracer = tracer.Tracer
	// Validator checks inlined SQL fragments.
	Validator = security.Validator
	// Auditor writes audit events for executed statements.
	Auditor = security.Auditor
	// AuditLevel selects which writes are audited.
	AuditLevel = security.AuditLevel
	// CacheStats holds prepared statement cache metrics.
	CacheStats = cache.Stats
)

// Statement kinds.
const (
	KindUpsert       = core.KindUpsert
	KindInsertIgnore = core.KindInsertIgnore
	KindReplace      = core.KindReplace
)

// Audit levels.
const (
	AuditNone     = security.AuditNone
	AuditFailures = security.AuditFailures
	AuditWrites   = security.AuditWrites
)

// Errors.
var (
	ErrEmptyInput         = core.ErrEmptyInput
	ErrEmptyRow           = core.ErrEmptyRow
	ErrInvalidShape       = core.ErrInvalidShape
	ErrMissingPrimaryKey  = core.ErrMissingPrimaryKey
	ErrColumnMismatch     = core.ErrColumnMismatch
	ErrTooManyParams      = core.ErrTooManyParams
	ErrUnsafeFragment     = core.ErrUnsafeFragment
	ErrUnsupportedDialect = core.ErrUnsupportedDialect
)

// Re-export core functions.
var (
	Open      = core.Open
	OpenMySQL = core.OpenMySQL
	WrapDB    = core.WrapDB

	WithLogger            = core.WithLogger
	WithTracer            = core.WithTracer
	WithSanitizer         = core.WithSanitizer
	WithStmtCacheCapacity = core.WithStmtCacheCapacity
	WithStatementHook     = core.WithStatementHook
	WithAuditor           = core.WithAuditor
	WithBuilderOptions    = core.WithBuilderOptions

	NewBuilder            = core.NewBuilder
	WithDialect           = core.WithDialect
	WithDialectName       = core.WithDialectName
	WithRequirePrimaryKey = core.WithRequirePrimaryKey
	WithUnescapedColumns  = core.WithUnescapedColumns
	WithValidator         = core.WithValidator
	WithBuilderLogger     = core.WithBuilderLogger

	NewRow        = core.NewRow
	RowFromMap    = core.RowFromMap
	RowFromStruct = core.RowFromStruct
	NewColumnSet  = core.NewColumnSet
	Col           = core.Col
	Cols          = core.Cols
	Assign        = core.Assign

	Table           = core.Table
	TableWithPrefix = core.TableWithPrefix
	ModelMetadata   = core.ModelMetadata

	NormalizeBatch       = core.NormalizeBatch
	FirstRow             = core.FirstRow
	ChunkBatch           = core.ChunkBatch
	ColumnList           = core.ColumnList
	PlaceholderGroups    = core.PlaceholderGroups
	FlattenParameters    = core.FlattenParameters
	UpdateAssignments    = core.UpdateAssignments
	BuildUpsertSQL       = core.BuildUpsertSQL
	BuildInsertIgnoreSQL = core.BuildInsertIgnoreSQL
	BuildReplaceSQL      = core.BuildReplaceSQL
	RequirePrimaryKey    = core.RequirePrimaryKey

	IsDuplicateKey = core.IsDuplicateKey

	GetDialect      = dialects.GetDialect
	RegisterDialect = dialects.RegisterDialect

	NewSlogAdapter = logger.NewSlogAdapter
	NewTextLogger  = logger.NewTextLogger
	NewSanitizer   = logger.NewSanitizer

	NewOtelTracer = tracer.NewOtelTracer
	GlobalTracer  = tracer.Global

	NewValidator  = security.NewValidator
	WithStrict    = security.WithStrict
	WithPatterns  = security.WithPatterns
	NewAuditor    = security.NewAuditor
	WithUser      = security.WithUser
	WithRequestID = security.WithRequestID
)
