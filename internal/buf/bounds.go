package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative ints, returning ok = false when
// the product would overflow int or either operand is negative.
// Table and region sizes are always count * width, so signed operands are rejected.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// AlignUpSafe rounds n up to the next multiple of align, which must be a power
// of two. ok is false when the rounded value would overflow int.
func AlignUpSafe(n, align int) (int, bool) {
	if n < 0 || align <= 0 || align&(align-1) != 0 {
		return 0, false
	}
	end, ok := AddOverflowSafe(n, align-1)
	if !ok {
		return 0, false
	}
	return end &^ (align - 1), true
}

// CheckTableBounds validates that count words of width bytes fit in a buffer
// of bufLen bytes starting at offset. Returns the end offset if valid, or an
// error describing the specific failure (overflow or out of bounds).
//
//	end, err := buf.CheckTableBounds(len(region), sparseOff, capacity, 4)
//	if err != nil {
//	    return fmt.Errorf("sparse table: %w", err)
//	}
func CheckTableBounds(bufLen, offset, count, width int) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative offset: %d", offset)
	}
	if count < 0 {
		return 0, fmt.Errorf("negative count: %d", count)
	}
	if width < 0 {
		return 0, fmt.Errorf("negative width: %d", width)
	}

	size, ok := MulOverflowSafe(count, width)
	if !ok {
		return 0, fmt.Errorf("overflow: count=%d * width=%d", count, width)
	}
	end, ok := AddOverflowSafe(offset, size)
	if !ok {
		return 0, fmt.Errorf("overflow: offset=%d + size=%d", offset, size)
	}
	if end > bufLen {
		return 0, fmt.Errorf("bounds: end=%d > len=%d", end, bufLen)
	}
	return end, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
