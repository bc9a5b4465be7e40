// Package rfctime exchanges timestamps as RFC3339 strings.
package rfctime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Format of RFC3339 date-time with numeric offset, never "Z".
const Format = "2006-01-02T15:04:05.999-07:00"

// DateFormat is for calendar days, like estimated deliveries and due dates.
const DateFormat = time.DateOnly

// Brasilia is the time offset of Brasília (UTC-3, no daylight saving time).
//
// Timestamps without offsets are read in this zone.
var Brasilia = time.FixedZone("BRT", -3*60*60)

type RFC3339 time.Time

func New(t time.Time) RFC3339 {
	return RFC3339(t)
}

// Ref is New for optional timestamps. nil stays nil.
func Ref(t *time.Time) *RFC3339 {
	if t == nil {
		return nil
	}
	r := RFC3339(*t)
	return &r
}

func (t RFC3339) Time() time.Time {
	return time.Time(t)
}

func (t RFC3339) Equal(other RFC3339) bool {
	return t.Time().Equal(other.Time())
}

func (t RFC3339) String() string {
	return t.Time().Format(Format)
}

// Parse reads a full RFC3339 date-time.
func Parse(s string) (RFC3339, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return RFC3339{}, err
	}
	return RFC3339(t), nil
}

// ParseLoose reads RFC3339 date-time, also in abbreviated forms
// ("2024-03-01T10:00", "2024-03-01 10:00:00", "2024-03-01").
//
// Forms without offset are in Brasilia.
func ParseLoose(s string) (RFC3339, error) {
	for _, f := range []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02T15:04Z07:00",
	} {
		if t, err := time.Parse(f, s); err == nil {
			return RFC3339(t), nil
		}
	}
	for _, f := range []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		DateFormat,
	} {
		if t, err := time.ParseInLocation(f, s, Brasilia); err == nil {
			return RFC3339(t), nil
		}
	}
	return RFC3339{}, fmt.Errorf("not a timestamp: %q", s)
}

// Date formats the calendar day of t in Brasilia.
func Date(t time.Time) string {
	return t.In(Brasilia).Format(DateFormat)
}

func (t RFC3339) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON accepts the forms of ParseLoose. null is left as it is.
func (t *RFC3339) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	r, err := ParseLoose(s)
	if err != nil {
		return err
	}
	*t = r
	return nil
}
