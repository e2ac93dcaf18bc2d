package util

// Coa returns fallback when v is the zero value.
func Coa[T comparable](v, fallback T) T {
	if v == *new(T) {
		return fallback
	}
	return v
}

// Ptr returns a pointer to v. Useful for optional fields where nil means
// "never derived" rather than "empty".
func Ptr[T any](v T) *T {
	return &v
}
