package format

// Alignment utilities. Every section of a region starts on a boundary that
// matches its word width; the data region starts on the format's data
// alignment.

// IsPow2 reports whether n is a positive power of two.
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}
