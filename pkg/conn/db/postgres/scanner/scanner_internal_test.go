package scanner

import "testing"

func TestCamel(t *testing.T) {
	for when, then := range map[string]string{
		"id":                 "Id",
		"tracking_code":      "TrackingCode",
		"next_attempt_at":    "NextAttemptAt",
		"double__underscore": "Double_Underscore",
	} {
		if actual := camel(when); actual != then {
			t.Errorf("camel(%s) = %s, want %s", when, actual, then)
		}
	}
}

func TestFieldFor(t *testing.T) {
	type Row struct {
		Id           string
		TrackingCode string
		Cents        int64 `sql:"total_cents"`
		hidden       string
	}
	s := New[Row]().(*scanner[Row])

	for col, want := range map[string]bool{
		"id":            true,
		"tracking_code": true,
		"total_cents":   true,
		"hidden":        false,
		"nothing":       false,
	} {
		if _, ok := s.fieldFor(col); ok != want {
			t.Errorf("fieldFor(%s): found = %v, want %v", col, ok, want)
		}
	}
	_ = Row{}.hidden
}

func TestNew_single(t *testing.T) {
	if s := New[string]().(*scanner[string]); !s.single {
		t.Error("string should be scanned from a single column")
	}
	if s := New[struct{ A int }]().(*scanner[struct{ A int }]); s.single {
		t.Error("struct should not be scanned from a single column")
	}
}
