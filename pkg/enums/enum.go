package enums

import (
	"fmt"
	"slices"
)

// closedSet is the full list of values of one string enum.
type closedSet[T ~string] struct {
	label  string
	values []T
}

func newClosedSet[T ~string](label string, values ...T) closedSet[T] {
	return closedSet[T]{label: label, values: values}
}

func (s closedSet[T]) has(v T) bool {
	return slices.Contains(s.values, v)
}

func (s closedSet[T]) parse(raw string) (T, error) {
	if v := T(raw); s.has(v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", s.label, raw)
}
