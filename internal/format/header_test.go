package format

import (
	"errors"
	"testing"
)

func TestHeaderEncodeDecode(t *testing.T) {
	l, err := Compute(4, 12, Format{IndexWidth: Width16, GenerationWidth: Width64, Saturation: Wrap})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	b := make([]byte, l.Size)
	h := NewHeader(l)
	h.Count = 2
	h.Retired = 1
	h.Encode(b)

	got, err := DecodeHeader(b)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if got != h {
		t.Fatalf("header mismatch:\n got %+v\nwant %+v", got, h)
	}
	if got.Format() != l.Format {
		t.Fatalf("format mismatch: %+v vs %+v", got.Format(), l.Format)
	}
	if string(b[:4]) != "slmp" {
		t.Fatalf("signature not written: %q", b[:4])
	}
	if ReadU32(b, CapacityOffset) != 4 || ReadU32(b, ElementSizeOffset) != 12 {
		t.Fatalf("header fields at wrong offsets: % x", b[:HeaderSize])
	}
}

func TestNewHeaderFreeHead(t *testing.T) {
	l, _ := Compute(0, 4, Format{})
	if NewHeader(l).FreeHead != NilID {
		t.Fatalf("empty capacity should start with an empty free list")
	}
	l, _ = Compute(1, 4, Format{})
	if NewHeader(l).FreeHead != 0 {
		t.Fatalf("free list should start at id 0")
	}
}

func TestDecodeHeaderErrors(t *testing.T) {
	l, _ := Compute(2, 4, Format{})
	b := make([]byte, l.Size)
	NewHeader(l).Encode(b)

	if _, err := DecodeHeader(b[:10]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected truncation error, got %v", err)
	}

	bad := append([]byte(nil), b...)
	copy(bad, "XXXX")
	if _, err := DecodeHeader(bad); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected signature error, got %v", err)
	}

	bad = append([]byte(nil), b...)
	bad[VersionOffset] = 9
	if _, err := DecodeHeader(bad); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected version error, got %v", err)
	}

	bad = append([]byte(nil), b...)
	bad[FlagsOffset] = 0x80
	if _, err := DecodeHeader(bad); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected flags error, got %v", err)
	}
}

func TestOpen(t *testing.T) {
	l, _ := Compute(3, 4, Format{})
	b := make([]byte, l.Size)
	NewHeader(l).Encode(b)

	got, h, err := Open(b)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != l || h.Capacity != 3 {
		t.Fatalf("Open mismatch: %+v %+v", got, h)
	}

	if _, _, err := Open(append(b, 0)); !errors.Is(err, ErrBufferSize) {
		t.Fatalf("expected buffer size error, got %v", err)
	}

	bad := append([]byte(nil), b...)
	bad[IndexWidthOffset] = 3
	if _, _, err := Open(bad); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected unsupported width, got %v", err)
	}
}
