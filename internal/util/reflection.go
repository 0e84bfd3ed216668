// Package util provides the reflection helpers that turn tagged structs into
// ordered rows and locate their primary key column.
package util

import (
	"errors"
	"reflect"
	"strings"
	"unicode"
)

// ErrNotStruct is returned when a value is neither a struct nor a non-nil
// pointer to one.
var ErrNotStruct = errors.New("not a struct")

// parseDBTag parses db tag to extract column name and pk flag.
//
// Supported formats:
//   - "pk"           -> column="pk", isPK=true (legacy single PK)
//   - "column"       -> column="column", isPK=false
//   - "column,pk"    -> column="column", isPK=true
//   - "-"            -> column="-", isPK=false (skip field)
func parseDBTag(tag string) (column string, isPK bool) {
	parts := strings.Split(tag, ",")
	column = strings.TrimSpace(parts[0])

	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "pk" {
			isPK = true
			break
		}
	}

	if column == "pk" {
		isPK = true
	}

	return column, isPK
}

// Indirect dereferences pointers until it reaches a struct value.
func Indirect(data any) (reflect.Value, error) {
	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, errors.New("nil pointer")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, ErrNotStruct
	}
	return v, nil
}

// IsStruct reports whether data is a struct or a non-nil pointer to one.
func IsStruct(data any) bool {
	_, err := Indirect(data)
	return err == nil
}

// StructColumns converts a struct into column names and values in field
// declaration order, which becomes the column order of the statement.
//
// Rules:
//   - Unexported fields are skipped.
//   - db:"-" fields are skipped.
//   - db:"column_name" or db:"column_name,pk" maps to column_name.
//   - Fields without db tag use SnakeCase(field name).
//   - Untagged embedded structs are flattened in place.
//   - Zero values are included.
func StructColumns(data any) (names []string, values []any, err error) {
	v, err := Indirect(data)
	if err != nil {
		return nil, nil, err
	}
	names, values = appendStructColumns(v, names, values)
	return names, values, nil
}

func appendStructColumns(v reflect.Value, names []string, values []any) ([]string, []any) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, hasTag := field.Tag.Lookup("db")

		if field.Anonymous && !hasTag && field.Type.Kind() == reflect.Struct {
			names, values = appendStructColumns(v.Field(i), names, values)
			continue
		}
		if !field.IsExported() {
			continue
		}

		column := SnakeCase(field.Name)
		if hasTag {
			column, _ = parseDBTag(tag)
			if column == "-" {
				continue
			}
		}

		names = append(names, column)
		values = append(values, v.Field(i).Interface())
	}
	return names, values
}

// PrimaryKeyColumn returns the primary key column of a struct type.
//
// Priority:
//  1. Field tagged db:"pk" or db:"column,pk" (first in declaration order)
//  2. Field named "ID"
//  3. Field named "Id"
func PrimaryKeyColumn(t reflect.Type) (string, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return "", ErrNotStruct
	}

	fallback := ""
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		column := SnakeCase(field.Name)
		if tag, ok := field.Tag.Lookup("db"); ok {
			var isPK bool
			column, isPK = parseDBTag(tag)
			if column == "-" {
				continue
			}
			if isPK {
				return column, nil
			}
		}

		if field.Name == "ID" || (field.Name == "Id" && fallback == "") {
			fallback = column
		}
	}

	if fallback != "" {
		return fallback, nil
	}
	return "", errors.New("no primary key field in " + t.Name())
}

// SnakeCase converts a Go identifier to snake_case: UserID -> user_id,
// HTTPServer -> http_server.
func SnakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
