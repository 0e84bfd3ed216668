package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coregx/bulkupsert/internal/dialects"
	"github.com/coregx/bulkupsert/internal/logger"
	"github.com/coregx/bulkupsert/internal/security"
)

// Kind identifies one of the three bulk statement variants.
type Kind int

const (
	// KindUpsert is INSERT ... ON DUPLICATE KEY UPDATE.
	KindUpsert Kind = iota
	// KindInsertIgnore is INSERT IGNORE INTO.
	KindInsertIgnore
	// KindReplace is REPLACE INTO.
	KindReplace
)

// String returns upsert, insert_ignore or replace.
func (k Kind) String() string {
	switch k {
	case KindUpsert:
		return "upsert"
	case KindInsertIgnore:
		return "insert_ignore"
	case KindReplace:
		return "replace"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

func (k Kind) verb() string {
	switch k {
	case KindInsertIgnore:
		return "INSERT IGNORE INTO "
	case KindReplace:
		return "REPLACE INTO "
	default:
		return "INSERT INTO "
	}
}

// UpdateColumn is one entry of the ON DUPLICATE KEY UPDATE clause.
type UpdateColumn struct {
	Column string
	// Expr is the verbatim right-hand side of an assignment entry. It is
	// not escaped.
	Expr   string
	assign bool
}

// Col is a positional entry: `col` = VALUES(`col`).
func Col(name string) UpdateColumn {
	return UpdateColumn{Column: name}
}

// Cols returns a positional entry per name.
func Cols(names ...string) []UpdateColumn {
	out := make([]UpdateColumn, len(names))
	for i, n := range names {
		out[i] = Col(n)
	}
	return out
}

// Assign is an assignment entry rendered verbatim as "column = expr",
// e.g. Assign("hits", "hits + VALUES(hits)").
func Assign(column, expr string) UpdateColumn {
	return UpdateColumn{Column: column, Expr: expr, assign: true}
}

// IsAssignment reports whether u renders as "column = expr".
func (u UpdateColumn) IsAssignment() bool {
	return u.assign
}

// ColumnSet is a set of column names.
type ColumnSet map[string]struct{}

// NewColumnSet returns a set holding cols.
func NewColumnSet(cols ...string) ColumnSet {
	s := make(ColumnSet, len(cols))
	for _, c := range cols {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set. A nil set is empty.
func (s ColumnSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// layout is a batch validated against its first row, with every row's
// values arranged in first-row column order.
type layout struct {
	columns []string
	cells   [][]any
}

func newLayout(batch Batch) (*layout, error) {
	first, err := FirstRow(batch)
	if err != nil {
		return nil, err
	}
	if len(first) == 0 {
		return nil, ErrEmptyRow
	}

	columns := first.Columns()
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, dup := index[name]; dup {
			return nil, WrapError(ErrInvalidShape, fmt.Sprintf("duplicate column %q in row 0", name))
		}
		index[name] = i
	}

	l := &layout{columns: columns, cells: make([][]any, len(batch))}
	for i, row := range batch {
		cells, err := alignRow(row, columns, index)
		if err != nil {
			return nil, WrapError(ErrColumnMismatch, fmt.Sprintf("row %d has columns %v, want %v: %v", i, row.Columns(), columns, err))
		}
		l.cells[i] = cells
	}
	return l, nil
}

// alignRow returns row's values in the order of columns. Rows in the same
// order as the first row take the fast path.
func alignRow(row Row, columns []string, index map[string]int) ([]any, error) {
	if len(row) != len(columns) {
		return nil, fmt.Errorf("%d columns instead of %d", len(row), len(columns))
	}

	cells := make([]any, len(columns))
	ordered := true
	for j, c := range row {
		if c.Name != columns[j] {
			ordered = false
			break
		}
		cells[j] = c.Value
	}
	if ordered {
		return cells, nil
	}

	seen := make([]bool, len(columns))
	for _, c := range row {
		j, ok := index[c.Name]
		if !ok {
			return nil, fmt.Errorf("unexpected column %q", c.Name)
		}
		if seen[j] {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[j] = true
		cells[j] = c.Value
	}
	return cells, nil
}

// rendered is the VALUES section of a statement and the parameters bound
// to it, kept together so they cannot drift apart.
type rendered struct {
	groups       string
	params       []any
	paramColumns []string
	inlined      []string
}

func render(l *layout, unescaped ColumnSet) rendered {
	r := rendered{
		params:       make([]any, 0, len(l.cells)*len(l.columns)),
		paramColumns: make([]string, 0, len(l.cells)*len(l.columns)),
	}

	var sb strings.Builder
	sb.Grow(len(l.cells) * (2*len(l.columns) + 3))
	for i, cells := range l.cells {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j, v := range cells {
			if j > 0 {
				sb.WriteByte(',')
			}
			col := l.columns[j]
			if text, ok := inlineText(col, v, unescaped); ok {
				sb.WriteString(text)
				r.inlined = append(r.inlined, text)
				continue
			}
			sb.WriteByte('?')
			r.params = append(r.params, v)
			r.paramColumns = append(r.paramColumns, col)
		}
		sb.WriteByte(')')
	}
	r.groups = sb.String()
	return r
}

// inlineText returns the literal text of a cell that is not bound: every
// cell of an unescaped column and every Raw value.
func inlineText(col string, v any, unescaped ColumnSet) (string, bool) {
	if raw, ok := v.(Raw); ok {
		return string(raw), true
	}
	if !unescaped.Has(col) {
		return "", false
	}

	switch val := v.(type) {
	case nil:
		return "NULL", true
	case string:
		return val, true
	case []byte:
		return string(val), true
	case bool:
		if val {
			return "1", true
		}
		return "0", true
	default:
		return fmt.Sprint(val), true
	}
}

// ColumnList renders the quoted, comma-joined column names of row, e.g.
// `id`,`email`,`name`.
func ColumnList(row Row, d dialects.Dialect) (string, error) {
	if len(row) == 0 {
		return "", ErrEmptyRow
	}
	return quotedColumns(row.Columns(), orDefault(d)), nil
}

// orDefault returns d, or the MySQL dialect when d is nil.
func orDefault(d dialects.Dialect) dialects.Dialect {
	if d == nil {
		return &dialects.MySQLDialect{}
	}
	return d
}

func quotedColumns(columns []string, d dialects.Dialect) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ",")
}

// PlaceholderGroups renders one parenthesized group per row, e.g.
// (?,?,?), (?,?,?). Cells of unescaped columns and Raw values are inlined.
func PlaceholderGroups(batch Batch, unescaped ColumnSet) (string, error) {
	l, err := newLayout(batch)
	if err != nil {
		return "", err
	}
	return render(l, unescaped).groups, nil
}

// FlattenParameters returns the bound values of batch in row-major,
// first-row column order. It is positionally aligned with the ? tokens of
// PlaceholderGroups for the same arguments.
func FlattenParameters(batch Batch, unescaped ColumnSet) ([]any, error) {
	l, err := newLayout(batch)
	if err != nil {
		return nil, err
	}
	return render(l, unescaped).params, nil
}

// UpdateAssignments renders the ON DUPLICATE KEY UPDATE assignments. When
// update is empty every column is updated from its inserted value.
func UpdateAssignments(columns []string, update []UpdateColumn, d dialects.Dialect) string {
	if len(update) == 0 {
		update = Cols(columns...)
	}
	d = orDefault(d)

	out := make([]string, len(update))
	for i, u := range update {
		if u.assign {
			out[i] = u.Column + " = " + u.Expr
			continue
		}
		q := d.QuoteIdentifier(u.Column)
		out[i] = q + " = VALUES(" + q + ")"
	}
	return strings.Join(out, ", ")
}

func assemble(kind Kind, table string, l *layout, groups string, update []UpdateColumn, d dialects.Dialect) string {
	d = orDefault(d)
	var sb strings.Builder
	sb.WriteString(kind.verb())
	sb.WriteString(d.QuoteIdentifier(table))
	sb.WriteByte('(')
	sb.WriteString(quotedColumns(l.columns, d))
	sb.WriteString(") VALUES\n")
	sb.WriteString(groups)

	if kind != KindUpsert {
		return sb.String()
	}

	sb.WriteByte('\n')
	if !d.SupportsUpsert() {
		return sb.String()
	}
	sb.WriteString("ON DUPLICATE KEY UPDATE ")
	sb.WriteString(UpdateAssignments(l.columns, update, d))
	return sb.String()
}

// BuildUpsertSQL renders
//
//	INSERT INTO `table`(`a`,`b`) VALUES
//	(?,?), (?,?)
//	ON DUPLICATE KEY UPDATE `a` = VALUES(`a`), `b` = VALUES(`b`)
//
// For a dialect without upsert support the statement ends after the
// VALUES groups and their trailing newline: a plain INSERT.
func BuildUpsertSQL(batch Batch, table string, update []UpdateColumn, unescaped ColumnSet, d dialects.Dialect) (string, error) {
	l, err := newLayout(batch)
	if err != nil {
		return "", err
	}
	return assemble(KindUpsert, table, l, render(l, unescaped).groups, update, d), nil
}

// BuildInsertIgnoreSQL renders INSERT IGNORE INTO `table`(...) VALUES\n(...).
func BuildInsertIgnoreSQL(batch Batch, table string, d dialects.Dialect) (string, error) {
	l, err := newLayout(batch)
	if err != nil {
		return "", err
	}
	return assemble(KindInsertIgnore, table, l, render(l, nil).groups, nil, d), nil
}

// BuildReplaceSQL renders REPLACE INTO `table`(...) VALUES\n(...).
func BuildReplaceSQL(batch Batch, table string, d dialects.Dialect) (string, error) {
	l, err := newLayout(batch)
	if err != nil {
		return "", err
	}
	return assemble(KindReplace, table, l, render(l, nil).groups, nil, d), nil
}

// RequirePrimaryKey fails with ErrMissingPrimaryKey unless the first row
// contains primaryKey. Later rows are not inspected; column mismatches are
// caught by the layout validation instead.
func RequirePrimaryKey(batch Batch, primaryKey string) error {
	first, err := FirstRow(batch)
	if err != nil {
		return err
	}
	if primaryKey == "" {
		return WrapError(ErrMissingPrimaryKey, "no primary key configured")
	}
	if !first.Has(primaryKey) {
		return WrapError(ErrMissingPrimaryKey, fmt.Sprintf("%q not in %v", primaryKey, first.Columns()))
	}
	return nil
}

// Builder builds bulk statements for one table. It is immutable after
// NewBuilder and safe for concurrent use.
type Builder struct {
	meta      TableMetadata
	dialect   dialects.Dialect
	requirePK bool
	unescaped ColumnSet
	validator *security.Validator
	logger    logger.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithDialect sets the target dialect. The default is MySQL; nil is ignored.
func WithDialect(d dialects.Dialect) BuilderOption {
	return func(b *Builder) {
		if d != nil {
			b.dialect = d
		}
	}
}

// WithDialectName sets the dialect by registry name. It panics on an
// unknown name.
func WithDialectName(name string) BuilderOption {
	return func(b *Builder) {
		b.dialect = dialects.MustGetDialect(name)
	}
}

// WithRequirePrimaryKey enables strict mode: every statement's first row
// must contain the table's primary key column.
func WithRequirePrimaryKey(require bool) BuilderOption {
	return func(b *Builder) {
		b.requirePK = require
	}
}

// WithUnescapedColumns inlines the values of cols into upsert statements
// instead of binding them. Values must be trusted SQL, e.g. NOW().
func WithUnescapedColumns(cols ...string) BuilderOption {
	return func(b *Builder) {
		for _, c := range cols {
			b.unescaped[c] = struct{}{}
		}
	}
}

// WithValidator checks every inlined fragment before a statement is
// returned.
func WithValidator(v *security.Validator) BuilderOption {
	return func(b *Builder) {
		b.validator = v
	}
}

// WithBuilderLogger sets the logger for build events (debug level).
func WithBuilderLogger(l logger.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder creates a builder for the table described by meta.
func NewBuilder(meta TableMetadata, opts ...BuilderOption) *Builder {
	b := &Builder{
		meta:      meta,
		dialect:   &dialects.MySQLDialect{},
		unescaped: make(ColumnSet),
		logger:    &logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dialect returns the builder's dialect.
func (b *Builder) Dialect() dialects.Dialect {
	return b.dialect
}

// Table returns the prefixed table name statements are built for.
func (b *Builder) Table() string {
	return FullTableName(b.meta)
}

// Upsert builds INSERT ... ON DUPLICATE KEY UPDATE for input. With no
// update entries every column is updated.
func (b *Builder) Upsert(input any, update ...UpdateColumn) (*Statement, error) {
	return b.Build(KindUpsert, input, update...)
}

// InsertIgnore builds INSERT IGNORE INTO for input.
func (b *Builder) InsertIgnore(input any) (*Statement, error) {
	return b.Build(KindInsertIgnore, input)
}

// Replace builds REPLACE INTO for input.
func (b *Builder) Replace(input any) (*Statement, error) {
	return b.Build(KindReplace, input)
}

// Build builds a statement of the given kind. update is ignored for
// KindInsertIgnore and KindReplace.
func (b *Builder) Build(kind Kind, input any, update ...UpdateColumn) (*Statement, error) {
	batch, err := NormalizeBatch(input)
	if err != nil {
		return nil, b.fail(kind, err)
	}
	return b.buildBatch(kind, batch, update)
}

// BuildChunks builds as many statements as needed so that none exceeds
// the dialect's bind parameter limit.
func (b *Builder) BuildChunks(kind Kind, input any, update ...UpdateColumn) ([]*Statement, error) {
	batch, err := NormalizeBatch(input)
	if err != nil {
		return nil, b.fail(kind, err)
	}
	first, err := FirstRow(batch)
	if err != nil {
		return nil, b.fail(kind, err)
	}

	chunks := ChunkBatch(batch, b.MaxRowsPerStatement(len(first)))
	stmts := make([]*Statement, 0, len(chunks))
	for _, chunk := range chunks {
		stmt, err := b.buildBatch(kind, chunk, update)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// MaxRowsPerStatement returns how many rows of the given width fit in one
// statement under the dialect's parameter limit.
func (b *Builder) MaxRowsPerStatement(columns int) int {
	if columns <= 0 {
		return 0
	}
	return max(1, b.dialect.MaxPlaceholders()/columns)
}

func (b *Builder) buildBatch(kind Kind, batch Batch, update []UpdateColumn) (*Statement, error) {
	if b.requirePK {
		if err := RequirePrimaryKey(batch, b.meta.PrimaryKey()); err != nil {
			return nil, b.fail(kind, err)
		}
	}

	l, err := newLayout(batch)
	if err != nil {
		return nil, b.fail(kind, err)
	}

	var unescaped ColumnSet
	if kind == KindUpsert {
		unescaped = b.unescaped
	} else {
		update = nil
	}
	r := render(l, unescaped)

	if err := b.validate(kind, r, update); err != nil {
		return nil, b.fail(kind, err)
	}

	if limit := b.dialect.MaxPlaceholders(); len(r.params) > limit {
		return nil, b.fail(kind, WrapError(ErrTooManyParams,
			fmt.Sprintf("%d parameters, %s allows %d", len(r.params), b.dialect.Name(), limit)))
	}

	table := b.Table()
	stmt := &Statement{
		sql:          assemble(kind, table, l, r.groups, update, b.dialect),
		params:       r.params,
		paramColumns: r.paramColumns,
		kind:         kind,
		table:        table,
		rows:         len(batch),
		dialect:      b.dialect.Name(),
	}

	b.logger.Debug("statement built",
		"kind", kind.String(),
		"table", table,
		"rows", stmt.rows,
		"params", len(stmt.params),
		"dialect", stmt.dialect,
	)
	return stmt, nil
}

func (b *Builder) validate(kind Kind, r rendered, update []UpdateColumn) error {
	if b.validator == nil {
		return nil
	}
	if err := b.validator.ValidateFragments(r.inlined); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsafeFragment, err)
	}
	if kind != KindUpsert || !b.dialect.SupportsUpsert() {
		return nil
	}
	for _, u := range update {
		if !u.assign {
			continue
		}
		if err := b.validator.ValidateFragment(u.Expr); err != nil {
			return fmt.Errorf("%w: %w", ErrUnsafeFragment, err)
		}
	}
	return nil
}

func (b *Builder) fail(kind Kind, err error) error {
	b.logger.Debug("statement rejected",
		"kind", kind.String(),
		"table", b.Table(),
		"error", err,
	)
	return err
}
