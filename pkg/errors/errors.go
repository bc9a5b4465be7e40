// Package errors provides an error wrapper which remembers where it is created.
//
// Usage:
//
//	if err := tx.Commit(ctx); err != nil {
//		return xe.Wrap(err)
//	}
//
// The message of a wrapped error looks like
//
//	@ pkg.Func "file.go" l42 (note) <- original message
//
// Replace `<-` with a newline to read it as a stack of marks.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

type ErrWithCaller struct {
	file     string
	line     int
	funcname string
	note     string
	err      error
}

func (e *ErrWithCaller) File() string {
	return e.file
}

func (e *ErrWithCaller) Line() int {
	return e.line
}

func (e *ErrWithCaller) Func() string {
	return e.funcname
}

func (e *ErrWithCaller) Error() string {
	mark := fmt.Sprintf(`@ %s "%s" l%d`, e.funcname, e.file, e.line)
	if e.note != "" {
		mark += " (" + e.note + ")"
	}
	return mark + " <- " + e.err.Error()
}

func (e *ErrWithCaller) Unwrap() error {
	return e.err
}

// New creates a new error with the caller's location.
func New(text string) error {
	return mark("", errors.New(text), 1)
}

// Wrap marks err with the caller's location.
//
// Wrap(nil) is nil, so it can be used on a return path unconditionally.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return mark("", err, 1)
}

// WrapWithNote is Wrap with a short human readable note.
func WrapWithNote(note string, err error) error {
	if err == nil {
		return nil
	}
	return mark(note, err, 1)
}

// Errorf is fmt.Errorf, marked with the caller's location.
func Errorf(format string, args ...any) error {
	return mark("", fmt.Errorf(format, args...), 1)
}

func mark(note string, err error, depth int) error {
	pc, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		file = "?"
		line = -1
	}
	funcname := "(unknown func)"
	if fn := runtime.FuncForPC(pc); fn != nil {
		funcname = fn.Name()
	}

	return &ErrWithCaller{
		funcname: funcname,
		file:     file,
		line:     line,
		note:     note,
		err:      err,
	}
}
