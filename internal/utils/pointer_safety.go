// Package utils holds small generic helpers shared across packages.
package utils

// Value dereferences v, returning the zero value when v is nil. Useful for
// optional wire fields modelled as pointers.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
