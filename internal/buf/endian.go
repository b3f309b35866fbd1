// Package buf contains bounds and endian helpers for reading region images.
package buf

import "encoding/binary"

// U16LE reads a little-endian uint16 from b. Returns 0 when b is too short.
func U16LE(b []byte) uint16 {
	if len(b) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// U32LE reads a little-endian uint32 from b. Returns 0 when b is too short.
func U32LE(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// U64LE reads a little-endian uint64 from b. Returns 0 when b is too short.
func U64LE(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// UintLE reads a little-endian unsigned word of width bytes (1, 2, 4 or 8)
// from b, widened to uint64. Returns 0 for other widths or short input.
func UintLE(b []byte, width int) uint64 {
	switch width {
	case 1:
		if len(b) < 1 {
			return 0
		}
		return uint64(b[0])
	case 2:
		return uint64(U16LE(b))
	case 4:
		return uint64(U32LE(b))
	case 8:
		return U64LE(b)
	default:
		return 0
	}
}
