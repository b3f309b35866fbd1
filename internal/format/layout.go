package format

import (
	"fmt"
	"math"

	"github.com/joshuapare/slotkit/internal/buf"
)

// Format is the persisted shape of a region: word widths, data alignment and
// saturation policy. The zero value selects 32-bit index and generation
// words, word-aligned data and the Retire policy.
type Format struct {
	// IndexWidth is the width of sparse and reverse table words: Width16 or
	// Width32. The top bit is the free tag, so Width16 caps capacity at 32766.
	IndexWidth Width
	// GenerationWidth is the width of generation counters: Width16, Width32 or Width64.
	GenerationWidth Width
	// DataAlign is the alignment of the data region and of the total size.
	// Must be a power of two no larger than MaxDataAlign. Zero means DefaultDataAlign.
	DataAlign int
	// Saturation decides what Remove does when a generation is at its ceiling.
	Saturation SaturationPolicy
}

// Normalize fills defaults and validates the format.
func (f Format) Normalize() (Format, error) {
	if f.IndexWidth == 0 {
		f.IndexWidth = Width32
	}
	if f.GenerationWidth == 0 {
		f.GenerationWidth = Width32
	}
	if f.DataAlign == 0 {
		f.DataAlign = DefaultDataAlign
	}
	switch f.IndexWidth {
	case Width16, Width32:
	default:
		return Format{}, fmt.Errorf("index width %d: %w", f.IndexWidth, ErrUnsupported)
	}
	switch f.GenerationWidth {
	case Width16, Width32, Width64:
	default:
		return Format{}, fmt.Errorf("generation width %d: %w", f.GenerationWidth, ErrUnsupported)
	}
	if !IsPow2(f.DataAlign) || f.DataAlign > MaxDataAlign {
		return Format{}, fmt.Errorf("data alignment %d: %w", f.DataAlign, ErrUnsupported)
	}
	switch f.Saturation {
	case Retire, Wrap:
	default:
		return Format{}, fmt.Errorf("saturation policy %d: %w", f.Saturation, ErrUnsupported)
	}
	return f, nil
}

// MaxCapacity returns the largest capacity addressable with index width w.
// The top bit of each sparse word is the free tag, and the two largest link
// values below it are reserved for NilLink and RetiredLink.
func MaxCapacity(w Width) int {
	limit := RetiredLink(w)
	if limit > math.MaxInt {
		return math.MaxInt
	}
	return int(limit)
}

// Layout holds the byte offsets of every section of a region.
type Layout struct {
	Format

	Capacity    int
	ElementSize int

	GenerationOff int
	SparseOff     int
	ReverseOff    int
	DataOff       int

	// Size is the exact number of bytes the region must have.
	Size int
}

// Compute lays out a region for capacity elements of elementSize bytes.
//
// Capacity-driven overflows (too many ids for the index width, or table
// offsets past the range of int) report ErrCapacityOverflow; overflows in the
// data region or the total size report ErrSizeOverflow.
func Compute(capacity, elementSize int, f Format) (Layout, error) {
	f, err := f.Normalize()
	if err != nil {
		return Layout{}, err
	}
	if capacity < 0 {
		return Layout{}, fmt.Errorf("capacity %d: %w", capacity, ErrInvalidArgument)
	}
	if elementSize < 0 {
		return Layout{}, fmt.Errorf("element size %d: %w", elementSize, ErrInvalidArgument)
	}
	if capacity > MaxCapacity(f.IndexWidth) {
		return Layout{}, fmt.Errorf("capacity %d exceeds %d for %d-bit ids: %w",
			capacity, MaxCapacity(f.IndexWidth), f.IndexWidth.Bits(), ErrCapacityOverflow)
	}
	if uint64(elementSize) > math.MaxUint32 {
		return Layout{}, fmt.Errorf("element size %d: %w", elementSize, ErrSizeOverflow)
	}

	l := Layout{Format: f, Capacity: capacity, ElementSize: elementSize}
	gw, iw := int(f.GenerationWidth), int(f.IndexWidth)

	var ok bool
	if l.GenerationOff, ok = buf.AlignUpSafe(HeaderSize, gw); !ok {
		return Layout{}, ErrCapacityOverflow
	}
	if l.SparseOff, ok = nextSection(l.GenerationOff, capacity, gw, iw); !ok {
		return Layout{}, fmt.Errorf("sparse table offset: %w", ErrCapacityOverflow)
	}
	if l.ReverseOff, ok = nextSection(l.SparseOff, capacity, iw, iw); !ok {
		return Layout{}, fmt.Errorf("reverse table offset: %w", ErrCapacityOverflow)
	}
	if l.DataOff, ok = nextSection(l.ReverseOff, capacity, iw, f.DataAlign); !ok {
		return Layout{}, fmt.Errorf("data region offset: %w", ErrCapacityOverflow)
	}
	if l.Size, ok = nextSection(l.DataOff, capacity, elementSize, f.DataAlign); !ok {
		return Layout{}, fmt.Errorf("data region of %d x %d bytes: %w", capacity, elementSize, ErrSizeOverflow)
	}
	return l, nil
}

// nextSection returns the aligned offset following a section of count words
// of width bytes starting at off.
func nextSection(off, count, width, align int) (int, bool) {
	size, ok := buf.MulOverflowSafe(count, width)
	if !ok {
		return 0, false
	}
	end, ok := buf.AddOverflowSafe(off, size)
	if !ok {
		return 0, false
	}
	return buf.AlignUpSafe(end, align)
}

// GenerationAt returns the byte offset of the generation word for id.
func (l Layout) GenerationAt(id int) int {
	return l.GenerationOff + id*int(l.GenerationWidth)
}

// SparseAt returns the byte offset of the sparse word for id.
func (l Layout) SparseAt(id int) int {
	return l.SparseOff + id*int(l.IndexWidth)
}

// ReverseAt returns the byte offset of the reverse word for a dense slot.
func (l Layout) ReverseAt(slot int) int {
	return l.ReverseOff + slot*int(l.IndexWidth)
}

// DataAt returns the byte offset of the payload in a dense slot.
func (l Layout) DataAt(slot int) int {
	return l.DataOff + slot*l.ElementSize
}

// Alignment is the base address alignment a foreign host should give the
// region so every section meets its natural alignment.
func (l Layout) Alignment() int {
	a := l.DataAlign
	if w := int(l.GenerationWidth); w > a {
		a = w
	}
	if w := int(l.IndexWidth); w > a {
		a = w
	}
	return a
}

// Open decodes the header of b, recomputes its layout and checks that b is
// exactly the layout size.
func Open(b []byte) (Layout, Header, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Layout{}, Header{}, err
	}
	f := h.Format()
	if f.IndexWidth == 0 || f.GenerationWidth == 0 || f.DataAlign == 0 {
		return Layout{}, Header{}, fmt.Errorf("header: zero width or alignment: %w", ErrUnsupported)
	}
	capacity, ok := toInt(h.Capacity)
	if !ok {
		return Layout{}, Header{}, fmt.Errorf("header capacity %d: %w", h.Capacity, ErrCapacityOverflow)
	}
	elementSize, ok := toInt(h.ElementSize)
	if !ok {
		return Layout{}, Header{}, fmt.Errorf("header element size %d: %w", h.ElementSize, ErrSizeOverflow)
	}
	l, err := Compute(capacity, elementSize, f)
	if err != nil {
		return Layout{}, Header{}, fmt.Errorf("header: %w", err)
	}
	if len(b) != l.Size {
		return Layout{}, Header{}, fmt.Errorf("region is %d bytes, layout needs %d: %w", len(b), l.Size, ErrBufferSize)
	}
	return l, h, nil
}

func toInt(v uint32) (int, bool) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, false
	}
	return int(v), true
}
