package recurring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/confixenvios/confixenvios-sub003/pkg/loop"
	"github.com/confixenvios/confixenvios-sub003/pkg/loop/recurring"
)

func TestParsePolicy(t *testing.T) {
	for name, testcase := range map[string]struct {
		when    string
		then    recurring.Policy
		wantErr bool
	}{
		"forever": {
			when: "forever",
			then: recurring.Forever(0),
		},
		"forever with cooldown": {
			when: "forever:3s",
			then: recurring.Forever(3 * time.Second),
		},
		"forever with broken cooldown": {
			when:    "forever:someday",
			wantErr: true,
		},
		"forever with negative cooldown": {
			when:    "forever:-1s",
			wantErr: true,
		},
		"backlog": {
			when: "backlog",
			then: recurring.Backlog(),
		},
		"backlog with parameter": {
			when:    "backlog:1s",
			wantErr: true,
		},
		"empty": {
			when:    "",
			wantErr: true,
		},
		"unknown": {
			when:    "sometimes",
			wantErr: true,
		},
	} {
		t.Run(name, func(t *testing.T) {
			actual, err := recurring.ParsePolicy(testcase.when)
			if testcase.wantErr {
				if err == nil {
					t.Fatalf("expected error, but got %v", actual)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if actual != testcase.then {
				t.Errorf("unmatch: (actual, expected) = (%v, %v)", actual, testcase.then)
			}
		})
	}
}

func TestPolicy_Next(t *testing.T) {
	fakeErr := errors.New("fake")

	type when struct {
		policy recurring.Policy
		worked bool
		err    error
	}
	theory := func(when when, then loop.Next) func(*testing.T) {
		return func(t *testing.T) {
			actual := when.policy.Next(when.worked, when.err)
			if actual.String() != then.String() {
				t.Errorf("unmatch: (actual, expected) = (%s, %s)", actual, then)
			}
		}
	}

	t.Run("forever continues without wait when worked", theory(
		when{policy: recurring.Forever(time.Minute), worked: true},
		loop.Continue(0),
	))
	t.Run("forever waits cooldown when idle", theory(
		when{policy: recurring.Forever(time.Minute)},
		loop.Continue(time.Minute),
	))
	t.Run("backlog breaks when idle", theory(
		when{policy: recurring.Backlog()},
		loop.Break(nil),
	))
	t.Run("until error breaks with error", theory(
		when{policy: recurring.UntilError(recurring.Forever(0)), worked: true, err: fakeErr},
		loop.Break(fakeErr),
	))
	t.Run("until error follows base policy without error", theory(
		when{policy: recurring.UntilError(recurring.Backlog()), worked: true},
		loop.Continue(0),
	))
}

func TestTask_Applied(t *testing.T) {
	task := recurring.Task[int](func(_ context.Context, v int) (int, bool, error) {
		return v + 1, v+1 < 5, nil
	})

	got, err := loop.Start(context.Background(), 0, task.Applied(recurring.Backlog()))
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("got %d, want 5", got)
	}
}
