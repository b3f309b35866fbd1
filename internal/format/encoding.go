package format

import "encoding/binary"

// Little-endian field access. Regions are shared with foreign callers, so the
// byte order is fixed regardless of the host.

// PutU32 writes a uint32 value to the buffer at the specified offset in little-endian format.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// ReadU32 reads a uint32 value from the buffer at the specified offset in little-endian format.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// PutWord writes v as a little-endian word of width w at off, truncating to
// the width.
func PutWord(b []byte, off int, w Width, v uint64) {
	switch w {
	case Width16:
		binary.LittleEndian.PutUint16(b[off:off+2], uint16(v))
	case Width32:
		binary.LittleEndian.PutUint32(b[off:off+4], uint32(v))
	case Width64:
		binary.LittleEndian.PutUint64(b[off:off+8], v)
	default:
		panic("format: unsupported word width")
	}
}

// ReadWord reads a little-endian word of width w at off.
func ReadWord(b []byte, off int, w Width) uint64 {
	switch w {
	case Width16:
		return uint64(binary.LittleEndian.Uint16(b[off : off+2]))
	case Width32:
		return uint64(binary.LittleEndian.Uint32(b[off : off+4]))
	case Width64:
		return binary.LittleEndian.Uint64(b[off : off+8])
	default:
		panic("format: unsupported word width")
	}
}

// MaxWord is the largest value a word of width w can hold.
func MaxWord(w Width) uint64 {
	if w >= Width64 {
		return ^uint64(0)
	}
	return 1<<uint(w.Bits()) - 1
}

// FreeTag is the bit that marks a sparse entry as free-list linkage rather
// than a dense slot index.
func FreeTag(w Width) uint64 {
	return 1 << uint(w.Bits()-1)
}

// NilLink is the link value (below the free tag) that terminates the free list.
func NilLink(w Width) uint64 {
	return FreeTag(w) - 1
}

// RetiredLink is the link value stored for an id withdrawn by the Retire
// policy. It is never a valid id, so retired ids are recognized in O(1).
func RetiredLink(w Width) uint64 {
	return FreeTag(w) - 2
}
