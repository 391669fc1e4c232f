package functional

// Map applies fn to every element of in and returns the results.
func Map[T, U any](in []T, fn func(T) U) []U {
	out := make([]U, len(in))
	for i := range in {
		out[i] = fn(in[i])
	}
	return out
}

// Filter returns the elements of in for which keep returns true.
func Filter[T any](in []T, keep func(T) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
