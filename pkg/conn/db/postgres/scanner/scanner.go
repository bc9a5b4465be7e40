// Package scanner maps pgx rows into Go values.
//
// Columns are mapped into struct fields by
//
//  1. a field tagged `sql:"column_name"`,
//  2. or a field named exactly as the column,
//  3. or a field named as the CamelCase form of the column ("tracking_code" -> "TrackingCode").
//
// Primitive types, time.Time and []byte are scanned from single column rows.
//
// Example:
//
//	type Event struct {
//		Code   string `sql:"tracking_code"`
//		Status string
//	}
//
//	events, err := scanner.New[Event]().QueryAll(
//		ctx, conn, `select "tracking_code", "status" from "tracking_event"`,
//	)
package scanner

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

type Queryer interface {
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
}

// ErrNoRows is returned from QueryOne when no rows are found.
var ErrNoRows = pgx.ErrNoRows

type Scanner[T any] interface {
	// ScanAll reads all rows and closes them.
	ScanAll(pgx.Rows) ([]T, error)

	// QueryAll sends query and reads all rows in the response.
	QueryAll(ctx context.Context, conn Queryer, sql string, args ...interface{}) ([]T, error)

	// QueryOne is QueryAll which expects a row at least.
	//
	// When the query returns no rows, it returns ErrNoRows.
	// When it returns more, rows other than the first are discarded.
	QueryOne(ctx context.Context, conn Queryer, sql string, args ...interface{}) (T, error)
}

func New[T any]() Scanner[T] {
	t := reflect.TypeOf(*new(T))
	if isSingleColumn(t) {
		return &scanner[T]{single: true}
	}

	byName := map[string][]int{}
	byTag := map[string][]int{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		byName[f.Name] = f.Index
		if tag, ok := f.Tag.Lookup("sql"); ok && tag != "-" {
			byTag[tag] = f.Index
		}
	}
	return &scanner[T]{byName: byName, byTag: byTag}
}

func isSingleColumn(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t {
	case reflect.TypeOf(time.Time{}), reflect.TypeOf([]byte{}):
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	}
	return false
}

type scanner[T any] struct {
	single bool
	byName map[string][]int
	byTag  map[string][]int
}

func camel(col string) string {
	b := new(strings.Builder)
	for _, word := range strings.Split(col, "_") {
		if word == "" {
			b.WriteString("_")
			continue
		}
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	return b.String()
}

func (s *scanner[T]) fieldFor(col string) ([]int, bool) {
	if idx, ok := s.byTag[col]; ok {
		return idx, true
	}
	if idx, ok := s.byName[col]; ok {
		return idx, true
	}
	idx, ok := s.byName[camel(col)]
	return idx, ok
}

func (s *scanner[T]) ScanAll(rows pgx.Rows) ([]T, error) {
	defer rows.Close()

	cols := rows.FieldDescriptions()
	if s.single && len(cols) != 1 {
		return nil, fmt.Errorf("%d columns are given for %T, want 1", len(cols), *new(T))
	}

	indices := make([][]int, len(cols))
	if !s.single {
		for nth, fd := range cols {
			idx, ok := s.fieldFor(string(fd.Name))
			if !ok {
				return nil, fmt.Errorf(
					`no field for column "%s" (%s) in %T`,
					fd.Name, typeName(fd.DataTypeOID), *new(T),
				)
			}
			indices[nth] = idx
		}
	}

	ret := []T{}
	for rows.Next() {
		elem := new(T)
		v := reflect.ValueOf(elem).Elem()

		dest := make([]interface{}, len(cols))
		if s.single {
			dest[0] = elem
		} else {
			for nth, idx := range indices {
				dest[nth] = v.FieldByIndex(idx).Addr().Interface()
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		ret = append(ret, *elem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *scanner[T]) QueryAll(ctx context.Context, conn Queryer, sql string, args ...interface{}) ([]T, error) {
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return s.ScanAll(rows)
}

func (s *scanner[T]) QueryOne(ctx context.Context, conn Queryer, sql string, args ...interface{}) (T, error) {
	all, err := s.QueryAll(ctx, conn, sql, args...)
	if err != nil {
		return *new(T), err
	}
	if len(all) == 0 {
		return *new(T), ErrNoRows
	}
	return all[0], nil
}

var connInfo = pgtype.NewConnInfo()

func typeName(oid uint32) string {
	if dt, ok := connInfo.DataTypeForOID(oid); ok {
		return dt.Name
	}
	return fmt.Sprintf("oid %d", oid)
}

// IsNoRows reports whether err means "no rows found".
func IsNoRows(err error) bool {
	return errors.Is(err, ErrNoRows)
}
