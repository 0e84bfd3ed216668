package core

import (
	"reflect"

	"github.com/coregx/bulkupsert/internal/util"
)

// TableMetadata is the capability the builder needs from a model: where
// the rows go and which column identifies them. It is resolved by the
// caller before any statement is built.
type TableMetadata interface {
	TableName() string
	TablePrefix() string
	PrimaryKey() string
}

// TableModel defines an interface for models that provide custom table names.
type TableModel interface {
	TableName() string
}

// PrimaryKeyModel can be implemented by models whose primary key column
// is not discoverable from struct tags.
type PrimaryKeyModel interface {
	PrimaryKey() string
}

// StaticTable is a fixed TableMetadata value.
type StaticTable struct {
	Name   string
	Prefix string
	Key    string
}

// Table returns metadata for an unprefixed table whose primary key is "id".
func Table(name string) StaticTable {
	return StaticTable{Name: name, Key: "id"}
}

// TableWithPrefix returns metadata for a prefixed table, e.g. prefix "wp_"
// and name "users" target `wp_users`.
func TableWithPrefix(prefix, name, primaryKey string) StaticTable {
	return StaticTable{Name: name, Prefix: prefix, Key: primaryKey}
}

// TableName returns the unprefixed table name.
func (t StaticTable) TableName() string { return t.Name }

// TablePrefix returns the table prefix.
func (t StaticTable) TablePrefix() string { return t.Prefix }

// PrimaryKey returns the primary key column.
func (t StaticTable) PrimaryKey() string { return t.Key }

// FullTableName concatenates prefix and name verbatim.
func FullTableName(meta TableMetadata) string {
	return meta.TablePrefix() + meta.TableName()
}

// ModelMetadata derives TableMetadata from a struct model.
//
// The table name comes from a TableName() method, or is the snake_case
// struct name. The primary key comes from a PrimaryKey() method, a
// db:"col,pk" tag, or an ID field; it is left empty when none is found.
func ModelMetadata(model any, prefix string) StaticTable {
	meta := StaticTable{Name: GetTableName(model), Prefix: prefix}

	if pm, ok := model.(PrimaryKeyModel); ok {
		meta.Key = pm.PrimaryKey()
		return meta
	}
	t := reflect.TypeOf(model)
	if t != nil && t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t == nil {
		return meta
	}
	if pk, err := util.PrimaryKeyColumn(t); err == nil {
		meta.Key = pk
	}
	return meta
}

// GetTableName extracts the database table name from a model struct or interface.
func GetTableName(model any) string {
	if tm, ok := model.(TableModel); ok {
		return tm.TableName()
	}

	t := reflect.TypeOf(model)
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() == reflect.Slice {
		elem := t.Elem()
		for elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}
		return GetTableName(reflect.New(elem).Interface())
	}

	return util.SnakeCase(t.Name())
}
