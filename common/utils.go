package common

// Coalesce picks the first non-zero value, letting zero-valued staging
// fields fall through to their defaults.
//
// Returns:
//   - T: the first non-zero value, or the zero value when every input is zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
