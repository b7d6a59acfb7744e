package validate

import "fmt"

// NotBlank checks if the provided string is not empty.
// It returns an error if the string is empty, using the provided message and arguments.
func NotBlank(s string, msg string, args ...any) error {
	if s == "" {
		return createError(msg, args...)
	}
	return nil
}

// IsNotNil checks if the provided value is not nil.
func IsNotNil(value any, msg string, args ...any) error {
	if value == nil {
		return createError(msg, args...)
	}
	return nil
}

// True checks that the provided condition holds.
func True(condition bool, msg string, args ...any) error {
	if !condition {
		return createError(msg, args...)
	}
	return nil
}

func createError(msg string, args ...any) error {
	return fmt.Errorf(msg, args...)
}
