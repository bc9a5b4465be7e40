package try_test

import (
	"errors"
	"testing"

	"github.com/confixenvios/confixenvios-sub003/pkg/utils/try"
)

type fataler struct {
	fatal  [][]any
	helper int
}

func (f *fataler) Fatal(args ...any) {
	f.fatal = append(f.fatal, args)
}

func (f *fataler) Helper() {
	f.helper += 1
}

func TestTry(t *testing.T) {
	t.Run("when it has a value, it returns the value without calling Fatal", func(t *testing.T) {
		f := &fataler{}
		if got := try.To(42, nil).OrFatal(f); got != 42 {
			t.Errorf("OrFatal() = %d, want 42", got)
		}
		if len(f.fatal) != 0 || f.helper != 0 {
			t.Errorf("Fatal/Helper called unexpectedly: %+v", f)
		}
		if got := try.To(42, nil).OrDefault(7); got != 42 {
			t.Errorf("OrDefault() = %d, want 42", got)
		}
	})

	t.Run("when it has an error, it calls Helper and Fatal", func(t *testing.T) {
		expected := errors.New("fake error")
		f := &fataler{}
		if got := try.To(42, expected).OrFatal(f); got != 0 {
			t.Errorf("OrFatal() = %d, want zero value", got)
		}
		if len(f.fatal) != 1 || f.fatal[0][0] != expected {
			t.Errorf("Fatal is not called with the error: %+v", f.fatal)
		}
		if f.helper != 1 {
			t.Errorf("Helper is called %d times, want 1", f.helper)
		}
		if got := try.To(42, expected).OrDefault(7); got != 7 {
			t.Errorf("OrDefault() = %d, want 7", got)
		}
		if _, err := try.To(42, expected).Get(); !errors.Is(err, expected) {
			t.Errorf("Get() error = %v, want %v", err, expected)
		}
	})
}
