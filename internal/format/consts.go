// Package format describes the raw memory layout of a slot map region: the
// fixed header, the generation, sparse and reverse tables, and the data
// region. It is allocation-free and independent from the public API so the
// engine, the verifier and foreign-call shims all agree on one layout.
package format

// Signature is the four-byte signature at the start of every region.
//
//	0x00  's' 'l' 'm' 'p'
var Signature = []byte{'s', 'l', 'm', 'p'}

// Header layout (little-endian):
//
//	Offset  Size  Field
//	0x00    4     's' 'l' 'm' 'p'
//	0x04    1     layout version
//	0x05    1     index word width (bytes)
//	0x06    1     generation word width (bytes)
//	0x07    1     flags
//	0x08    4     capacity
//	0x0C    4     element size
//	0x10    4     live count
//	0x14    4     free-list head (NilID when empty)
//	0x18    4     retired id count
//	0x1C    4     data region alignment
const (
	HeaderSize = 0x20

	SignatureOffset       = 0x00
	SignatureSize         = 4
	VersionOffset         = 0x04
	IndexWidthOffset      = 0x05
	GenerationWidthOffset = 0x06
	FlagsOffset           = 0x07
	CapacityOffset        = 0x08
	ElementSizeOffset     = 0x0C
	CountOffset           = 0x10
	FreeHeadOffset        = 0x14
	RetiredOffset         = 0x18
	DataAlignOffset       = 0x1C
)

const (
	// LayoutVersion is the only header version this package reads or writes.
	LayoutVersion = 1

	// FlagWrap selects the Wrap saturation policy. When clear, ids whose
	// generation reaches its ceiling are retired.
	FlagWrap = 0x01

	// NilID marks an empty free list in the header's free_head field.
	NilID = 0xFFFFFFFF

	// DefaultDataAlign is the data region alignment used when a Format leaves
	// it unset: one machine word on every supported platform.
	DefaultDataAlign = 8

	// MaxDataAlign bounds the data region alignment to one page.
	MaxDataAlign = 4096
)

// Width is the size in bytes of an index or generation word.
type Width uint8

const (
	Width16 Width = 2
	Width32 Width = 4
	Width64 Width = 8
)

// Bits returns the width in bits.
func (w Width) Bits() int { return int(w) * 8 }

// SaturationPolicy decides what happens when an id is removed while its
// generation is already at the largest value the generation word can hold.
type SaturationPolicy uint8

const (
	// Retire withdraws the id permanently: it is never pushed back onto the
	// free list, so no stale handle can ever alias a new element.
	Retire SaturationPolicy = iota
	// Wrap resets the generation to zero and reuses the id.
	Wrap
)

func (p SaturationPolicy) String() string {
	switch p {
	case Retire:
		return "retire"
	case Wrap:
		return "wrap"
	default:
		return "unknown"
	}
}
