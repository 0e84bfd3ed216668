package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	ID        int64     `db:"id,pk"`
	Email     string    `db:"email"`
	Password  string    `db:"password_hash"`
	Internal  string    `db:"-"`
	CreatedAt time.Time // created_at
	note      string
}

func TestNewRow(t *testing.T) {
	row := NewRow("id", 1, "email", "a@x.com")
	assert.Equal(t, []string{"id", "email"}, row.Columns())

	v, ok := row.Get("email")
	assert.True(t, ok)
	assert.Equal(t, "a@x.com", v)
	assert.True(t, row.Has("id"))
	assert.False(t, row.Has("name"))

	assert.Panics(t, func() { NewRow("id") })
	assert.Panics(t, func() { NewRow(1, "id") })
}

func TestRowFromMap_SortedKeys(t *testing.T) {
	row := RowFromMap(map[string]any{"name": "A", "id": 1, "email": "a"})
	assert.Equal(t, []string{"email", "id", "name"}, row.Columns())
}

func TestRowFromStruct(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	row, err := RowFromStruct(&account{ID: 7, Email: "a@x.com", Password: "h", Internal: "x", CreatedAt: created, note: "n"})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "email", "password_hash", "created_at"}, row.Columns())
	v, _ := row.Get("created_at")
	assert.Equal(t, created, v)

	_, err = RowFromStruct(42)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestNormalizeBatch(t *testing.T) {
	tests := []struct {
		name string
		in   any
		rows int
		cols []string
	}{
		{name: "single row", in: NewRow("id", 1), rows: 1, cols: []string{"id"}},
		{name: "batch", in: Batch{NewRow("id", 1), NewRow("id", 2)}, rows: 2, cols: []string{"id"}},
		{name: "row slice", in: []Row{NewRow("id", 1)}, rows: 1, cols: []string{"id"}},
		{name: "column slice", in: []Column{{Name: "id", Value: 1}}, rows: 1, cols: []string{"id"}},
		{name: "map", in: map[string]any{"b": 1, "a": 2}, rows: 1, cols: []string{"a", "b"}},
		{name: "map slice", in: []map[string]any{{"id": 1}, {"id": 2}}, rows: 2, cols: []string{"id"}},
		{name: "struct", in: account{ID: 1}, rows: 1, cols: []string{"id", "email", "password_hash", "created_at"}},
		{name: "struct pointer", in: &account{ID: 1}, rows: 1, cols: []string{"id", "email", "password_hash", "created_at"}},
		{name: "struct slice", in: []account{{ID: 1}, {ID: 2}}, rows: 2, cols: []string{"id", "email", "password_hash", "created_at"}},
		{name: "struct pointer slice", in: []*account{{ID: 1}}, rows: 1, cols: []string{"id", "email", "password_hash", "created_at"}},
		{name: "list of maps", in: []any{map[string]any{"id": 1}, map[string]any{"id": 2}}, rows: 2, cols: []string{"id"}},
		{name: "list of rows", in: []any{NewRow("id", 1, "email", "a@x.com")}, rows: 1, cols: []string{"id", "email"}},
		{name: "list of column slices", in: []any{[]Column{{Name: "id", Value: 1}}}, rows: 1, cols: []string{"id"}},
		{name: "mixed list", in: []any{NewRow("id", 1), map[string]any{"id": 2}}, rows: 2, cols: []string{"id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := NormalizeBatch(tt.in)
			require.NoError(t, err)
			assert.Len(t, batch, tt.rows)
			assert.Equal(t, tt.cols, batch[0].Columns())
		})
	}
}

func TestNormalizeBatch_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want error
	}{
		{name: "nil", in: nil, want: ErrInvalidShape},
		{name: "empty row", in: Row{}, want: ErrEmptyInput},
		{name: "empty batch", in: Batch{}, want: ErrEmptyInput},
		{name: "empty row slice", in: []Row{}, want: ErrEmptyInput},
		{name: "empty map", in: map[string]any{}, want: ErrEmptyInput},
		{name: "empty map slice", in: []map[string]any{}, want: ErrEmptyInput},
		{name: "empty struct slice", in: []account{}, want: ErrEmptyInput},
		{name: "string", in: "id=1", want: ErrInvalidShape},
		{name: "int", in: 1, want: ErrInvalidShape},
		{name: "scalar slice", in: []any{1, "a"}, want: ErrInvalidShape},
		{name: "map list with scalar", in: []any{map[string]any{"id": 1}, 2}, want: ErrInvalidShape},
		{name: "nil struct pointer", in: []*account{nil}, want: ErrInvalidShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeBatch(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNormalizeBatch_DecodedJSON(t *testing.T) {
	var decoded any
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"email":"a@x.com"},{"email":"b@x.com","id":2}]`), &decoded))

	batch, err := NormalizeBatch(decoded)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, []string{"email", "id"}, batch[0].Columns())
	v, _ := batch[1].Get("email")
	assert.Equal(t, "b@x.com", v)
}

func TestFirstRow(t *testing.T) {
	row, err := FirstRow(Batch{NewRow("id", 1), NewRow("id", 2)})
	require.NoError(t, err)
	v, _ := row.Get("id")
	assert.Equal(t, 1, v)

	_, err = FirstRow(nil)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestChunkBatch(t *testing.T) {
	batch := Batch{NewRow("id", 1), NewRow("id", 2), NewRow("id", 3), NewRow("id", 4), NewRow("id", 5)}

	chunks := ChunkBatch(batch, 2)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[1], 2)
	assert.Len(t, chunks[2], 1)

	assert.Len(t, ChunkBatch(batch, 0), 1)
	assert.Len(t, ChunkBatch(batch, 10), 1)
}
