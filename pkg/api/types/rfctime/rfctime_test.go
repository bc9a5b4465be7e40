package rfctime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/api/types/rfctime"
)

func TestParseLoose(t *testing.T) {
	theory := func(s string, want time.Time) func(*testing.T) {
		return func(t *testing.T) {
			got, err := rfctime.ParseLoose(s)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Time().Equal(want) {
				t.Errorf("ParseLoose(%q) = %s, want %s", s, got, want)
			}
		}
	}

	t.Run("full", theory(
		"2024-03-01T10:20:30.5+07:00",
		time.Date(2024, 3, 1, 3, 20, 30, 500_000_000, time.UTC),
	))
	t.Run("Z", theory("2024-03-01T10:20:30Z", time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)))
	t.Run("without offset", theory("2024-03-01 10:20:30", time.Date(2024, 3, 1, 13, 20, 30, 0, time.UTC)))
	t.Run("minutes", theory("2024-03-01T10:20", time.Date(2024, 3, 1, 13, 20, 0, 0, time.UTC)))
	t.Run("date only", theory("2024-03-01", time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)))

	if _, err := rfctime.ParseLoose("01/03/2024"); err == nil {
		t.Error("unexpected success")
	}
}

func TestJSON(t *testing.T) {
	type doc struct {
		At    rfctime.RFC3339  `json:"at"`
		Maybe *rfctime.RFC3339 `json:"maybe"`
	}

	d := doc{}
	if err := json.Unmarshal([]byte(`{"at":"2024-03-01T10:00:00-03:00","maybe":null}`), &d); err != nil {
		t.Fatal(err)
	}
	if d.Maybe != nil {
		t.Errorf("maybe = %s", d.Maybe)
	}

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"at":"2024-03-01T10:00:00-03:00","maybe":null}`; string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
}

func TestDate(t *testing.T) {
	at := time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC)
	if got := rfctime.Date(at); got != "2024-03-01" {
		t.Errorf("Date = %s", got)
	}
}
