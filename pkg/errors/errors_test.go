package errors_test

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	xe "github.com/confixenvios/confixenvios-sub003/pkg/errors"
)

var errDeclined = errors.New("card declined")

func charge() error {
	return xe.Wrap(fmt.Errorf("charging: %w", errDeclined))
}

func TestWrap(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)

	t.Run("it marks the caller", func(t *testing.T) {
		err := charge()

		var marked *xe.ErrWithCaller
		if !errors.As(err, &marked) {
			t.Fatalf("not marked: %v", err)
		}
		if marked.File() != thisFile {
			t.Errorf("file: (actual, expected) = (%s, %s)", marked.File(), thisFile)
		}
		if !strings.HasSuffix(marked.Func(), ".charge") {
			t.Errorf("func: %s", marked.Func())
		}
		if marked.Line() <= 0 {
			t.Errorf("line: %d", marked.Line())
		}
	})

	for name, testcase := range map[string]struct {
		err      error
		contains []string
	}{
		"New": {
			err:      xe.New("no pricing table"),
			contains: []string{thisFile, "<- no pricing table"},
		},
		"Wrap keeps the chain": {
			err:      charge(),
			contains: []string{"charge", "<- charging: card declined"},
		},
		"WrapWithNote": {
			err:      xe.WrapWithNote("while committing", errDeclined),
			contains: []string{"(while committing) <- card declined"},
		},
		"Errorf": {
			err:      xe.Errorf("payment %s: %w", "pay_1", errDeclined),
			contains: []string{"<- payment pay_1: card declined"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			msg := testcase.err.Error()
			for _, c := range testcase.contains {
				if !strings.Contains(msg, c) {
					t.Errorf("%q does not contain %q", msg, c)
				}
			}
		})
	}

	t.Run("it supports errors.Is", func(t *testing.T) {
		if err := xe.Wrap(xe.WrapWithNote("retry", charge())); !errors.Is(err, errDeclined) {
			t.Errorf("lost the cause: %v", err)
		}
	})

	t.Run("it keeps nil as nil", func(t *testing.T) {
		if err := xe.Wrap(nil); err != nil {
			t.Errorf("Wrap(nil) = %v", err)
		}
		if err := xe.WrapWithNote("note", nil); err != nil {
			t.Errorf("WrapWithNote(nil) = %v", err)
		}
	})
}
