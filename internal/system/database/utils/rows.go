// Package utils holds helpers for reading query rows and composing dynamic SQL.
package utils

import (
	"errors"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

// StringValue reads a text column. Missing or NULL columns yield "".
func StringValue(row map[string]interface{}, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

// NullableString reads a text column, returning nil for NULL.
func NullableString(row map[string]interface{}, key string) *string {
	switch row[key].(type) {
	case string, []byte:
		s := StringValue(row, key)
		return &s
	default:
		return nil
	}
}

// Int64Value reads an integer column. The MySQL text protocol returns numbers as strings, so both are accepted.
func Int64Value(row map[string]interface{}, key string) int64 {
	switch v := row[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	default:
		return 0
	}
}

// NullableInt64 reads an integer column, returning nil for NULL.
func NullableInt64(row map[string]interface{}, key string) *int64 {
	if row[key] == nil {
		return nil
	}
	n := Int64Value(row, key)
	return &n
}

// BoolValue reads a TINYINT(1) column.
func BoolValue(row map[string]interface{}, key string) bool {
	if b, ok := row[key].(bool); ok {
		return b
	}
	return Int64Value(row, key) != 0
}

// IsDuplicateKeyError reports whether err wraps a MySQL unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
