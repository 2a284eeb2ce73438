package strx

// Coalesce returns v if it is not the zero value, otherwise d.
func Coalesce[T comparable](v, d T) T {
	var zero T
	if v == zero {
		return d
	}
	return v
}
