// Package marshal converts Go values to and from column types.
package marshal

import (
	"github.com/jackc/pgtype"
)

// JSONB encodes v as a jsonb parameter.
func JSONB(v any) (pgtype.JSONB, error) {
	j := pgtype.JSONB{}
	if err := j.Set(v); err != nil {
		return pgtype.JSONB{}, err
	}
	return j, nil
}

// Strings converts string-like values (like enum values) into a text[] parameter.
func Strings[S ~string](values []S) []string {
	ret := make([]string, 0, len(values))
	for _, v := range values {
		ret = append(ret, string(v))
	}
	return ret
}

// FromStrings is the reverse of Strings.
func FromStrings[S ~string](values []string) []S {
	ret := make([]S, 0, len(values))
	for _, v := range values {
		ret = append(ret, S(v))
	}
	return ret
}
