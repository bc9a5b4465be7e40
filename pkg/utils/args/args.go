// Package args adapts parser functions into flag.Value.
//
//	policy := args.Parser(recurring.ParsePolicy)
//	flag.Var(policy, "policy", "loop policy")
package args

type Adapter[T interface{ String() string }] struct {
	value  T
	parser func(string) (T, error)
	isSet  bool
}

func (a *Adapter[T]) String() string {
	if !a.isSet {
		return ""
	}
	return a.value.String()
}

func (a *Adapter[T]) Set(s string) error {
	v, err := a.parser(s)
	if err != nil {
		return err
	}
	a.value, a.isSet = v, true
	return nil
}

// Value returns the parsed value, or the default when the flag is not given.
func (a *Adapter[T]) Value() T {
	return a.value
}

func (a *Adapter[T]) IsSet() bool {
	return a.isSet
}

func Parser[T interface{ String() string }](parser func(string) (T, error)) *Adapter[T] {
	return &Adapter[T]{parser: parser}
}

// ParserWithDefault is Parser which holds d until Set is called.
func ParserWithDefault[T interface{ String() string }](parser func(string) (T, error), d T) *Adapter[T] {
	return &Adapter[T]{parser: parser, value: d}
}
