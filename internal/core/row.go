package core

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/coregx/bulkupsert/internal/util"
)

// Column is one named value of a Row.
type Column struct {
	Name  string
	Value any
}

// Row is an ordered mapping from column name to value. The first row of a
// batch defines the column list and column order of the statement.
type Row []Column

// Batch is the set of rows written by a single statement.
type Batch []Row

// Raw is a SQL expression that is inlined into the statement text instead
// of being bound as a parameter, e.g. Raw("NOW()").
type Raw string

// NewRow builds a Row from alternating name/value pairs:
//
//	NewRow("id", 1, "email", "a@x.com", "created_at", Raw("NOW()"))
//
// It panics on an odd number of arguments or a non-string name, like
// fmt-style helpers that take key-value pairs.
func NewRow(pairs ...any) Row {
	if len(pairs)%2 != 0 {
		panic("NewRow: odd number of arguments")
	}
	row := make(Row, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("NewRow: column name at position %d is %T, not string", i, pairs[i]))
		}
		row = append(row, Column{Name: name, Value: pairs[i+1]})
	}
	return row
}

// RowFromMap converts a map into a Row with keys in sorted order, so the
// generated SQL is deterministic.
func RowFromMap(m map[string]any) Row {
	keys := getKeys(m)
	row := make(Row, len(keys))
	for i, k := range keys {
		row[i] = Column{Name: k, Value: m[k]}
	}
	return row
}

// RowFromStruct converts a tagged struct (or pointer to one) into a Row in
// field declaration order. See util.StructColumns for the tag rules.
func RowFromStruct(v any) (Row, error) {
	names, values, err := util.StructColumns(v)
	if err != nil {
		return nil, WrapError(ErrInvalidShape, err.Error())
	}
	row := make(Row, len(names))
	for i := range names {
		row[i] = Column{Name: names[i], Value: values[i]}
	}
	return row, nil
}

// Columns returns the column names in order.
func (r Row) Columns() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return names
}

// Get returns the value of the named column.
func (r Row) Get(name string) (any, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// Has reports whether the row contains the named column.
func (r Row) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// getKeys returns sorted map keys for deterministic SQL generation.
func getKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NormalizeBatch turns caller input into a Batch. A single row-shaped value
// (Row, map[string]any, struct) becomes a one-element batch. Accepted
// shapes:
//
//   - Row, Batch, []Row
//   - map[string]any, []map[string]any
//   - a struct or *struct, or a slice of them
//   - any other slice whose elements are each a Row, []Column,
//     map[string]any or struct, e.g. []any decoded from JSON
//
// Empty input fails with ErrEmptyInput; anything that is not row-shaped
// (scalars, []any of scalars, nil) fails with ErrInvalidShape.
//
//nolint:cyclop,gocyclo // one case per accepted input shape
func NormalizeBatch(input any) (Batch, error) {
	switch in := input.(type) {
	case nil:
		return nil, WrapError(ErrInvalidShape, "nil input")
	case Row:
		if len(in) == 0 {
			return nil, ErrEmptyInput
		}
		return Batch{in}, nil
	case Batch:
		if len(in) == 0 {
			return nil, ErrEmptyInput
		}
		return in, nil
	case []Row:
		if len(in) == 0 {
			return nil, ErrEmptyInput
		}
		return Batch(in), nil
	case []Column:
		return NormalizeBatch(Row(in))
	case map[string]any:
		if len(in) == 0 {
			return nil, ErrEmptyInput
		}
		return Batch{RowFromMap(in)}, nil
	case []map[string]any:
		if len(in) == 0 {
			return nil, ErrEmptyInput
		}
		batch := make(Batch, len(in))
		for i, m := range in {
			batch[i] = RowFromMap(m)
		}
		return batch, nil
	}

	if util.IsStruct(input) {
		row, err := RowFromStruct(input)
		if err != nil {
			return nil, err
		}
		return Batch{row}, nil
	}

	v := reflect.ValueOf(input)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, WrapError(ErrInvalidShape, fmt.Sprintf("%T is not row-shaped", input))
	}
	if v.Len() == 0 {
		return nil, ErrEmptyInput
	}

	batch := make(Batch, v.Len())
	for i := 0; i < v.Len(); i++ {
		row, err := rowFromElement(i, v.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		batch[i] = row
	}
	return batch, nil
}

// rowFromElement converts one element of a positional list, such as the
// []any of objects produced by json.Unmarshal, into a Row.
func rowFromElement(i int, elem any) (Row, error) {
	switch e := elem.(type) {
	case Row:
		return e, nil
	case []Column:
		return Row(e), nil
	case map[string]any:
		return RowFromMap(e), nil
	}
	if !util.IsStruct(elem) {
		return nil, WrapError(ErrInvalidShape, fmt.Sprintf("element %d is %T, not a row", i, elem))
	}
	return RowFromStruct(elem)
}

// FirstRow returns the row that defines the statement's column list.
func FirstRow(batch Batch) (Row, error) {
	if len(batch) == 0 {
		return nil, WrapError(ErrInvalidShape, "empty batch")
	}
	if batch[0] == nil {
		return nil, WrapError(ErrInvalidShape, "first row is not a row")
	}
	return batch[0], nil
}

// ChunkBatch splits batch into consecutive batches of at most size rows.
// A size <= 0 returns the batch unchanged as a single chunk.
func ChunkBatch(batch Batch, size int) []Batch {
	if size <= 0 || len(batch) <= size {
		return []Batch{batch}
	}
	chunks := make([]Batch, 0, (len(batch)+size-1)/size)
	for start := 0; start < len(batch); start += size {
		end := min(start+size, len(batch))
		chunks = append(chunks, batch[start:end])
	}
	return chunks
}
