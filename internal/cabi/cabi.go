// Package cabi maps the slot map API onto the flat, status-code surface used
// by foreign callers. Every call takes the whole region and re-opens it from
// its header, so a host may move the region between calls.
package cabi

import (
	"errors"
	"math"

	"github.com/joshuapare/slotkit/slotmap"
)

// Status is the integer result of a foreign call. Zero is success; failures
// are negative.
type Status int32

const (
	OK               Status = 0
	Full             Status = -1
	InvalidID        Status = -2
	StaleHandle      Status = -3
	CapacityOverflow Status = -4
	SizeOverflow     Status = -5
	ZeroCapacity     Status = -6
	BufferSize       Status = -7
	Corrupt          Status = -8
	InvalidArgument  Status = -9
)

var statusNames = map[Status]string{
	OK:               "ok",
	Full:             "full",
	InvalidID:        "invalid id",
	StaleHandle:      "stale handle",
	CapacityOverflow: "capacity overflow",
	SizeOverflow:     "size overflow",
	ZeroCapacity:     "zero capacity",
	BufferSize:       "buffer size",
	Corrupt:          "corrupt region",
	InvalidArgument:  "invalid argument",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown status"
}

// StatusOf converts an error from package slotmap into a Status.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, slotmap.ErrFull):
		return Full
	case errors.Is(err, slotmap.ErrInvalidID):
		return InvalidID
	case errors.Is(err, slotmap.ErrStaleHandle):
		return StaleHandle
	case errors.Is(err, slotmap.ErrCapacityOverflow):
		return CapacityOverflow
	case errors.Is(err, slotmap.ErrSizeOverflow):
		return SizeOverflow
	case errors.Is(err, slotmap.ErrZeroCapacity):
		return ZeroCapacity
	case errors.Is(err, slotmap.ErrBufferSize):
		return BufferSize
	case errors.Is(err, slotmap.ErrInvalidArgument), errors.Is(err, slotmap.ErrPayloadSize):
		return InvalidArgument
	default:
		// Signature, version, width and structural failures.
		return Corrupt
	}
}

// Config is the flat form of slotmap.Format plus the zero-capacity switch.
// Zero fields select the defaults.
type Config struct {
	IndexWidth      uint8
	GenerationWidth uint8
	DataAlign       uint32
	Wrap            bool
	RequireCapacity bool
}

func (c Config) format() slotmap.Format {
	f := slotmap.Format{
		IndexWidth:      slotmap.Width(c.IndexWidth),
		GenerationWidth: slotmap.Width(c.GenerationWidth),
		DataAlign:       int(c.DataAlign),
	}
	if c.Wrap {
		f.Saturation = slotmap.Wrap
	}
	return f
}

func toInt(v uint64) (int, bool) {
	if v > math.MaxInt {
		return 0, false
	}
	return int(v), true
}

// LayoutSize returns the region size for the shape, or a negative Status.
func LayoutSize(capacity, elementSize uint64, c Config) int64 {
	n, ok := toInt(capacity)
	if !ok {
		return int64(CapacityOverflow)
	}
	es, ok := toInt(elementSize)
	if !ok {
		return int64(SizeOverflow)
	}
	if c.RequireCapacity && n == 0 {
		return int64(ZeroCapacity)
	}
	size, err := slotmap.LayoutSize(n, es, c.format())
	if err != nil {
		return int64(shapeStatus(err))
	}
	return int64(size)
}

// Init writes an empty map into region.
func Init(region []byte, capacity, elementSize uint64, c Config) Status {
	n, ok := toInt(capacity)
	if !ok {
		return CapacityOverflow
	}
	es, ok := toInt(elementSize)
	if !ok {
		return SizeOverflow
	}
	_, err := slotmap.Init(region, n, es, &slotmap.Options{
		Format:          c.format(),
		RequireCapacity: c.RequireCapacity,
	})
	return shapeStatus(err)
}

// shapeStatus reports an unsupported width or alignment requested by the
// caller as a bad argument rather than a damaged region.
func shapeStatus(err error) Status {
	if errors.Is(err, slotmap.ErrUnsupported) {
		return InvalidArgument
	}
	return StatusOf(err)
}

// Allocate reserves an id and returns its handle.
func Allocate(region []byte) (uint32, uint64, Status) {
	m, err := slotmap.Open(region, nil)
	if err != nil {
		return 0, 0, StatusOf(err)
	}
	h, err := m.Allocate()
	if err != nil {
		return 0, 0, StatusOf(err)
	}
	return h.ID, h.Generation, OK
}

// Insert copies src into the element owned by (id, generation).
func Insert(region []byte, id uint32, generation uint64, src []byte) Status {
	m, err := slotmap.Open(region, nil)
	if err != nil {
		return StatusOf(err)
	}
	return StatusOf(m.Insert(slotmap.Handle{ID: id, Generation: generation}, src))
}

// Remove deletes the element owned by (id, generation).
func Remove(region []byte, id uint32, generation uint64) Status {
	m, err := slotmap.Open(region, nil)
	if err != nil {
		return StatusOf(err)
	}
	return StatusOf(m.Remove(slotmap.Handle{ID: id, Generation: generation}))
}

// IsAlive reports whether (id, generation) names a live element. An
// unreadable region holds nothing alive.
func IsAlive(region []byte, id uint32, generation uint64) bool {
	m, err := slotmap.Open(region, nil)
	if err != nil {
		return false
	}
	return m.IsAlive(slotmap.Handle{ID: id, Generation: generation})
}

// Get returns the element bytes owned by (id, generation), aliasing region.
func Get(region []byte, id uint32, generation uint64) ([]byte, Status) {
	m, err := slotmap.Open(region, nil)
	if err != nil {
		return nil, StatusOf(err)
	}
	b, err := m.Get(slotmap.Handle{ID: id, Generation: generation})
	return b, StatusOf(err)
}

// Count returns the number of live elements, or a negative Status.
func Count(region []byte) int64 {
	m, err := slotmap.Open(region, nil)
	if err != nil {
		return int64(StatusOf(err))
	}
	return int64(m.Len())
}

// Clear removes every element.
func Clear(region []byte) Status {
	m, err := slotmap.Open(region, nil)
	if err != nil {
		return StatusOf(err)
	}
	return StatusOf(m.Clear())
}

// Check runs the invariant verifier over region.
func Check(region []byte) Status {
	m, err := slotmap.Open(region, nil)
	if err != nil {
		return StatusOf(err)
	}
	if m.Check() != nil {
		return Corrupt
	}
	return OK
}
