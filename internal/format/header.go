package format

import (
	"bytes"
	"fmt"

	"github.com/joshuapare/slotkit/internal/buf"
)

// Header is the decoded fixed-size record at the start of a region.
type Header struct {
	Version         uint8
	IndexWidth      Width
	GenerationWidth Width
	Flags           uint8
	Capacity        uint32
	ElementSize     uint32
	Count           uint32
	FreeHead        uint32
	Retired         uint32
	DataAlign       uint32
}

// NewHeader returns the header Init writes for an empty region.
func NewHeader(l Layout) Header {
	h := Header{
		Version:         LayoutVersion,
		IndexWidth:      l.IndexWidth,
		GenerationWidth: l.GenerationWidth,
		Capacity:        uint32(l.Capacity),
		ElementSize:     uint32(l.ElementSize),
		FreeHead:        NilID,
		DataAlign:       uint32(l.DataAlign),
	}
	if l.Saturation == Wrap {
		h.Flags |= FlagWrap
	}
	if l.Capacity > 0 {
		h.FreeHead = 0
	}
	return h
}

// DecodeHeader validates the signature and version and extracts the header fields.
func DecodeHeader(b []byte) (Header, error) {
	if !buf.Has(b, 0, HeaderSize) {
		return Header{}, fmt.Errorf("header: %w", ErrTruncated)
	}
	if sig, _ := buf.Slice(b, SignatureOffset, SignatureSize); !bytes.Equal(sig, Signature) {
		return Header{}, fmt.Errorf("header: %w", ErrSignatureMismatch)
	}
	h := Header{
		Version:         b[VersionOffset],
		IndexWidth:      Width(b[IndexWidthOffset]),
		GenerationWidth: Width(b[GenerationWidthOffset]),
		Flags:           b[FlagsOffset],
		Capacity:        buf.U32LE(b[CapacityOffset:]),
		ElementSize:     buf.U32LE(b[ElementSizeOffset:]),
		Count:           buf.U32LE(b[CountOffset:]),
		FreeHead:        buf.U32LE(b[FreeHeadOffset:]),
		Retired:         buf.U32LE(b[RetiredOffset:]),
		DataAlign:       buf.U32LE(b[DataAlignOffset:]),
	}
	if h.Version != LayoutVersion {
		return Header{}, fmt.Errorf("header version %d: %w", h.Version, ErrUnsupported)
	}
	if h.Flags&^FlagWrap != 0 {
		return Header{}, fmt.Errorf("header flags 0x%02X: %w", h.Flags, ErrUnsupported)
	}
	return h, nil
}

// Encode writes h into the first HeaderSize bytes of b.
func (h Header) Encode(b []byte) {
	copy(b[SignatureOffset:], Signature)
	b[VersionOffset] = h.Version
	b[IndexWidthOffset] = byte(h.IndexWidth)
	b[GenerationWidthOffset] = byte(h.GenerationWidth)
	b[FlagsOffset] = h.Flags
	PutU32(b, CapacityOffset, h.Capacity)
	PutU32(b, ElementSizeOffset, h.ElementSize)
	PutU32(b, CountOffset, h.Count)
	PutU32(b, FreeHeadOffset, h.FreeHead)
	PutU32(b, RetiredOffset, h.Retired)
	PutU32(b, DataAlignOffset, h.DataAlign)
}

// Format returns the persisted format described by the header.
func (h Header) Format() Format {
	f := Format{
		IndexWidth:      h.IndexWidth,
		GenerationWidth: h.GenerationWidth,
		DataAlign:       int(h.DataAlign),
	}
	if h.Flags&FlagWrap != 0 {
		f.Saturation = Wrap
	}
	return f
}
