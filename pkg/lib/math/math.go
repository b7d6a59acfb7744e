package math

import "golang.org/x/exp/constraints"

// Number is a type constraint that permits any numeric type.
type Number interface {
	constraints.Integer | constraints.Float
}

// Max returns the larger of the provided values.
func Max[T constraints.Ordered](a T, b ...T) T {
	largest := a
	for _, value := range b {
		if value > largest {
			largest = value
		}
	}
	return largest
}

// Min returns the smaller of the provided values.
func Min[T constraints.Ordered](a T, b ...T) T {
	smallest := a
	for _, value := range b {
		if value < smallest {
			smallest = value
		}
	}
	return smallest
}
