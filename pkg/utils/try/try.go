// Package try turns (value, error) pairs into a single value.
//
// It is mainly for tests and for main functions:
//
//	conf := try.To(configs.Load(path)).OrFatal(logger)
package try

// something has method `Fatal`, like *testing.T or *log.Logger.
type Fataler interface {
	Fatal(...any)
}

// Either holds a value or an error.
type Either[T any] interface {
	// Get returns the pair back.
	Get() (T, error)

	// OrFatal returns the value, or calls ftl.Fatal(err).
	//
	// If ftl has "Helper()" (like *testing.T), it is called before Fatal.
	OrFatal(ftl Fataler) T

	// OrDefault returns the value, or d when it holds an error.
	OrDefault(d T) T
}

func To[T any](v T, err error) Either[T] {
	return either[T]{value: v, err: err}
}

type either[T any] struct {
	value T
	err   error
}

func (e either[T]) Get() (T, error) {
	if e.err != nil {
		return *new(T), e.err
	}
	return e.value, nil
}

func (e either[T]) OrDefault(d T) T {
	if e.err != nil {
		return d
	}
	return e.value
}

func (e either[T]) OrFatal(ftl Fataler) T {
	if e.err == nil {
		return e.value
	}
	if h, ok := ftl.(interface{ Helper() }); ok {
		h.Helper()
	}
	ftl.Fatal(e.err)
	return *new(T)
}
