package slotmap

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/slotkit/internal/format"
)

// Handle identifies one element independent of its dense position.
type Handle struct {
	ID         uint32
	Generation uint64
}

func (h Handle) String() string {
	return fmt.Sprintf("%d@%d", h.ID, h.Generation)
}

// Map is a view over an initialized region. All state lives in the region;
// the view only caches the decoded layout, so several views over the same
// bytes stay coherent and a relocated region is picked up with Open.
type Map struct {
	b   []byte
	l   format.Layout
	log *slog.Logger

	freeTag     uint64
	nilLink     uint64
	retiredLink uint64
	maxGen      uint64
}

// LayoutSize returns the exact region size for capacity elements of
// elementSize bytes in format f. Call it before allocating the region.
func LayoutSize(capacity, elementSize int, f Format) (int, error) {
	l, err := format.Compute(capacity, elementSize, f)
	if err != nil {
		return 0, err
	}
	return l.Size, nil
}

// ComputeLayout returns every section offset for the given shape.
func ComputeLayout(capacity, elementSize int, f Format) (Layout, error) {
	return format.Compute(capacity, elementSize, f)
}

// Init writes an empty map into region, which must be exactly
// LayoutSize(capacity, elementSize, opts.Format) bytes. The header and all
// three tables are overwritten; the data region is left untouched.
// Ids 0..capacity-1 are queued on the free list in ascending order.
func Init(region []byte, capacity, elementSize int, opts *Options) (*Map, error) {
	var f Format
	if opts != nil {
		f = opts.Format
		if opts.RequireCapacity && capacity == 0 {
			return nil, ErrZeroCapacity
		}
	}
	l, err := format.Compute(capacity, elementSize, f)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if len(region) != l.Size {
		return nil, fmt.Errorf("init: region is %d bytes, layout needs %d: %w", len(region), l.Size, ErrBufferSize)
	}

	format.NewHeader(l).Encode(region)
	clear(region[format.HeaderSize:l.DataOff])

	m := newMap(region, l, opts.logger())
	for id := 0; id < capacity; id++ {
		next := uint64(id + 1)
		if id == capacity-1 {
			next = m.nilLink
		}
		format.PutWord(region, l.SparseAt(id), l.IndexWidth, m.freeTag|next)
	}

	m.log.Debug("slotmap initialized",
		"capacity", capacity,
		"element_size", elementSize,
		"index_bits", l.IndexWidth.Bits(),
		"generation_bits", l.GenerationWidth.Bits(),
		"saturation", l.Saturation.String(),
		"size", l.Size,
	)
	return m, nil
}

// Open attaches to a region previously written by Init, possibly at another
// address. Only opts.Logger is used; the format comes from the header.
func Open(region []byte, opts *Options) (*Map, error) {
	l, h, err := format.Open(region)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if h.Count > h.Capacity {
		return nil, fmt.Errorf("open: count %d exceeds capacity %d: %w", h.Count, h.Capacity, ErrCorrupt)
	}
	if h.Retired > h.Capacity-h.Count {
		return nil, fmt.Errorf("open: retired %d exceeds free ids %d: %w", h.Retired, h.Capacity-h.Count, ErrCorrupt)
	}
	if h.FreeHead != format.NilID && h.FreeHead >= h.Capacity {
		return nil, fmt.Errorf("open: free head %d out of range: %w", h.FreeHead, ErrCorrupt)
	}

	m := newMap(region, l, opts.logger())
	m.log.Debug("slotmap opened", "capacity", h.Capacity, "count", h.Count, "retired", h.Retired)
	return m, nil
}

func newMap(b []byte, l format.Layout, log *slog.Logger) *Map {
	return &Map{
		b:           b,
		l:           l,
		log:         log,
		freeTag:     format.FreeTag(l.IndexWidth),
		nilLink:     format.NilLink(l.IndexWidth),
		retiredLink: format.RetiredLink(l.IndexWidth),
		maxGen:      format.MaxWord(l.GenerationWidth),
	}
}

// Len returns the number of live elements.
func (m *Map) Len() int { return int(m.count()) }

// Cap returns the fixed capacity.
func (m *Map) Cap() int { return m.l.Capacity }

// ElementSize returns the payload size of every element.
func (m *Map) ElementSize() int { return m.l.ElementSize }

// Retired returns how many ids were withdrawn by the Retire policy.
func (m *Map) Retired() int { return int(format.ReadU32(m.b, format.RetiredOffset)) }

// Available returns how many more elements Allocate can hand out.
func (m *Map) Available() int { return m.l.Capacity - m.Len() - m.Retired() }

// Format returns the persisted format of the region.
func (m *Map) Format() Format { return m.l.Format }

// Layout returns the section offsets of the region.
func (m *Map) Layout() Layout { return m.l }

// Bytes returns the underlying region.
func (m *Map) Bytes() []byte { return m.b }

func (m *Map) count() uint32         { return format.ReadU32(m.b, format.CountOffset) }
func (m *Map) setCount(n uint32)     { format.PutU32(m.b, format.CountOffset, n) }
func (m *Map) freeHead() uint32      { return format.ReadU32(m.b, format.FreeHeadOffset) }
func (m *Map) setFreeHead(id uint32) { format.PutU32(m.b, format.FreeHeadOffset, id) }

func (m *Map) generation(id uint32) uint64 {
	return format.ReadWord(m.b, m.l.GenerationAt(int(id)), m.l.GenerationWidth)
}

func (m *Map) setGeneration(id uint32, g uint64) {
	format.PutWord(m.b, m.l.GenerationAt(int(id)), m.l.GenerationWidth, g)
}

func (m *Map) sparse(id uint32) uint64 {
	return format.ReadWord(m.b, m.l.SparseAt(int(id)), m.l.IndexWidth)
}

func (m *Map) setSparse(id uint32, v uint64) {
	format.PutWord(m.b, m.l.SparseAt(int(id)), m.l.IndexWidth, v)
}

func (m *Map) reverse(slot uint32) uint32 {
	return uint32(format.ReadWord(m.b, m.l.ReverseAt(int(slot)), m.l.IndexWidth))
}

func (m *Map) setReverse(slot, id uint32) {
	format.PutWord(m.b, m.l.ReverseAt(int(slot)), m.l.IndexWidth, uint64(id))
}

func (m *Map) data(slot uint32) []byte {
	off := m.l.DataAt(int(slot))
	return m.b[off : off+m.l.ElementSize : off+m.l.ElementSize]
}

// link converts a header free_head value into a sparse-word link.
func (m *Map) link(id uint32) uint64 {
	if id == format.NilID {
		return m.nilLink
	}
	return uint64(id)
}
