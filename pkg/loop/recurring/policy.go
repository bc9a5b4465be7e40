// Package recurring decides how a loop continues after each task run.
package recurring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/loop"
)

// Task is a loop body which reports whether it did some work.
//
// The bool return is true when the task processed something in this run,
// so more backlog may remain. Otherwise false.
type Task[T any] func(context.Context, T) (T, bool, error)

// Applied converts the task into loop.Task, deciding what comes next by p.
func (rt Task[T]) Applied(p Policy) loop.Task[T] {
	return func(ctx context.Context, t T) (T, loop.Next) {
		v, worked, err := rt(ctx, t)
		return v, p.Next(worked, err)
	}
}

// Policy tells a loop what to do after a task run.
type Policy interface {
	Next(worked bool, err error) loop.Next
	String() string
}

// ParsePolicy parses "forever[:COOLDOWN]" or "backlog".
func ParsePolicy(s string) (Policy, error) {
	name, param, hasParam := strings.Cut(s, ":")
	switch name {
	case "forever":
		if param == "" {
			return Forever(0), nil
		}
		cooldown, err := time.ParseDuration(param)
		if err != nil {
			return nil, fmt.Errorf(`%s: bad COOLDOWN for "forever:COOLDOWN": %w`, s, err)
		}
		if cooldown < 0 {
			return nil, fmt.Errorf(`%s: COOLDOWN should not be negative`, s)
		}
		return Forever(cooldown), nil
	case "backlog":
		if hasParam {
			return nil, fmt.Errorf(`%s: "backlog" takes no parameters`, s)
		}
		return Backlog(), nil
	default:
		return nil, fmt.Errorf("unknown policy: %q (forever[:COOLDOWN] or backlog)", s)
	}
}

type forever time.Duration

// Forever continues immediately while there is work, and waits cooldown otherwise.
func Forever(cooldown time.Duration) Policy {
	return forever(cooldown)
}

func (f forever) String() string {
	return "forever:" + time.Duration(f).String()
}

func (f forever) Next(worked bool, _ error) loop.Next {
	if worked {
		return loop.Continue(0)
	}
	return loop.Continue(time.Duration(f))
}

type backlog struct{}

// Backlog continues while there is work, and breaks without error when the backlog is empty.
func Backlog() Policy {
	return backlog{}
}

func (backlog) String() string {
	return "backlog"
}

func (backlog) Next(worked bool, _ error) loop.Next {
	if worked {
		return loop.Continue(0)
	}
	return loop.Break(nil)
}

type untilError struct {
	base Policy
}

// UntilError breaks with the error when a task run fails, and follows base otherwise.
func UntilError(base Policy) Policy {
	return untilError{base: base}
}

func (u untilError) String() string {
	return u.base.String() + " (until error)"
}

func (u untilError) Next(worked bool, err error) loop.Next {
	if err != nil {
		return loop.Break(err)
	}
	return u.base.Next(worked, nil)
}
