// Package mocks provides hand-written mocks of pkg/db interfaces for tests.
//
// Each mock has Impl, functions to be called, and Calls, arguments passed.
// Calling a method without Impl panics.
package mocks

type CallLog[T any] []T

// Times returns how many times the method is called.
func (c CallLog[T]) Times() int {
	return len(c)
}

func notImplemented() {
	panic("it should not be called")
}
