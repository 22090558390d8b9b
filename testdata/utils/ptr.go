package utils

// Ptr returns a pointer to v; keeps test fixtures readable.
func Ptr[T any](v T) *T {
	return &v
}
