package region

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/joshuapare/slotkit/internal/format"
	"github.com/joshuapare/slotkit/internal/mmfile"
	"github.com/joshuapare/slotkit/slotmap"
)

// Kind identifies where a region's bytes live.
type Kind uint8

const (
	Heap Kind = iota
	Anonymous
	Shared
	Image
)

func (k Kind) String() string {
	switch k {
	case Heap:
		return "heap"
	case Anonymous:
		return "anonymous"
	case Shared:
		return "shared"
	case Image:
		return "image"
	default:
		return "unknown"
	}
}

var (
	// ErrClosed is returned when using a region after Close.
	ErrClosed = errors.New("region: closed")
	// ErrInvalidSize is returned for a non-positive region size.
	ErrInvalidSize = errors.New("region: invalid size")
	// ErrAlignment is returned for an alignment that is not a power of two.
	ErrAlignment = errors.New("region: alignment must be a power of two")
)

// Region owns a block of memory sized for one slot map.
type Region struct {
	data    []byte
	kind    Kind
	path    string
	closed  atomic.Bool
	release func() error
}

// New allocates size zeroed bytes on the Go heap with the base address
// aligned to align.
func New(size, align int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if !format.IsPow2(align) {
		return nil, fmt.Errorf("%w: %d", ErrAlignment, align)
	}
	return &Region{data: allocAligned(size, align), kind: Heap}, nil
}

// NewAnon maps size zeroed bytes of anonymous memory outside the Go heap.
// The base is page aligned.
func NewAnon(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	data, release, err := mmfile.MapAnon(size)
	if err != nil {
		return nil, fmt.Errorf("region: map anonymous: %w", err)
	}
	return &Region{data: data, kind: Anonymous, release: release}, nil
}

// Create maps the file at path read-write and shared, resizing it to size
// bytes. Existing contents within size are kept.
func Create(path string, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	data, release, err := mmfile.MapShared(path, size)
	if err != nil {
		return nil, fmt.Errorf("region: map %s: %w", path, err)
	}
	return &Region{data: data, kind: Shared, path: path, release: release}, nil
}

// Load maps an existing region image read-only.
func Load(path string) (*Region, error) {
	data, release, err := mmfile.Map(path)
	if err != nil {
		return nil, fmt.Errorf("region: map %s: %w", path, err)
	}
	return &Region{data: data, kind: Image, path: path, release: release}, nil
}

// ForLayout allocates a heap region of l.Size bytes aligned for l.
func ForLayout(l slotmap.Layout) (*Region, error) {
	return New(l.Size, l.Alignment())
}

// Bytes returns the region memory, or nil once closed.
func (r *Region) Bytes() []byte {
	if r.closed.Load() {
		return nil
	}
	return r.data
}

// Len returns the region size in bytes.
func (r *Region) Len() int { return len(r.data) }

// Kind reports where the region lives.
func (r *Region) Kind() Kind { return r.kind }

// Path returns the backing file for Shared and Image regions.
func (r *Region) Path() string { return r.path }

// Writable reports whether the region may be mutated.
func (r *Region) Writable() bool { return r.kind != Image }

// Sync flushes a Shared region to its file. Other kinds have nothing to flush.
func (r *Region) Sync() error {
	if r.closed.Load() {
		return ErrClosed
	}
	if r.kind != Shared {
		return nil
	}
	return mmfile.Sync(r.data)
}

// Close releases the region. It is idempotent.
func (r *Region) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	var err error
	if r.release != nil {
		err = r.release()
	}
	r.data = nil
	return err
}

// IsAligned reports whether the first byte of b sits on an align boundary.
func IsAligned(b []byte, align int) bool {
	if len(b) == 0 || !format.IsPow2(align) {
		return false
	}
	return uintptr(unsafe.Pointer(&b[0]))&uintptr(align-1) == 0
}

func allocAligned(size, align int) []byte {
	// Over-allocate so the start can shift up to align-1 bytes.
	raw := make([]byte, size+align-1)
	addr := uintptr(unsafe.Pointer(&raw[0])) //nolint:gosec // unsafe is required for memory alignment
	offset := int((uintptr(align) - addr&uintptr(align-1)) & uintptr(align-1))
	return raw[offset : offset+size : offset+size]
}
