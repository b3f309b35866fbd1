package slotmap

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slotkit/internal/format"
)

func newTestMap(t *testing.T, capacity, elementSize int, opts *Options) *Map {
	t.Helper()
	var f Format
	if opts != nil {
		f = opts.Format
	}
	size, err := LayoutSize(capacity, elementSize, f)
	require.NoError(t, err)
	m, err := Init(make([]byte, size), capacity, elementSize, opts)
	require.NoError(t, err)
	require.NoError(t, m.Check())
	return m
}

func u32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func TestInit_Fresh(t *testing.T) {
	m := newTestMap(t, 5, 8, nil)

	require.Equal(t, 0, m.Len())
	require.Equal(t, 5, m.Cap())
	require.Equal(t, 8, m.ElementSize())
	require.Equal(t, 0, m.Retired())
	require.Equal(t, 5, m.Available())
	require.Equal(t, Width32, m.Format().IndexWidth)
	require.Equal(t, Width32, m.Format().GenerationWidth)
	require.Equal(t, Retire, m.Format().Saturation)

	// Every id is free and starts at generation 0.
	for id := uint32(0); id < 5; id++ {
		require.Equal(t, uint64(0), m.generation(id))
		require.False(t, m.IsAlive(Handle{ID: id}))
	}
	require.Equal(t, uint32(0), m.freeHead())
}

func TestInit_BufferSize(t *testing.T) {
	size, err := LayoutSize(4, 4, Format{})
	require.NoError(t, err)

	for _, n := range []int{0, size - 1, size + 1} {
		_, err := Init(make([]byte, n), 4, 4, nil)
		require.ErrorIs(t, err, ErrBufferSize, "len %d", n)
	}
}

func TestInit_ZeroCapacity(t *testing.T) {
	m := newTestMap(t, 0, 4, nil)
	_, err := m.Allocate()
	require.ErrorIs(t, err, ErrFull)
	require.False(t, m.IsAlive(Handle{}))

	size, err := LayoutSize(0, 4, Format{})
	require.NoError(t, err)
	_, err = Init(make([]byte, size), 0, 4, &Options{RequireCapacity: true})
	require.ErrorIs(t, err, ErrZeroCapacity)
}

func TestInit_InvalidShape(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		elemSize int
		f        Format
		want     error
	}{
		{"negative capacity", -1, 4, Format{}, ErrInvalidArgument},
		{"negative element size", 4, -1, Format{}, ErrInvalidArgument},
		{"capacity over 16-bit ids", 32767, 4, Format{IndexWidth: Width16}, ErrCapacityOverflow},
		{"8-byte ids", 4, 4, Format{IndexWidth: Width64}, ErrUnsupported},
		{"odd alignment", 4, 4, Format{DataAlign: 12}, ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LayoutSize(tt.capacity, tt.elemSize, tt.f)
			require.ErrorIs(t, err, tt.want)
			_, err = Init(make([]byte, 64), tt.capacity, tt.elemSize, &Options{Format: tt.f})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestScenario_SwapRemoveAndReuse(t *testing.T) {
	m := newTestMap(t, 3, 4, nil)

	a, err := m.Allocate()
	require.NoError(t, err)
	b, err := m.Allocate()
	require.NoError(t, err)
	c, err := m.Allocate()
	require.NoError(t, err)
	require.Equal(t, Handle{ID: 0}, a)
	require.Equal(t, Handle{ID: 1}, b)
	require.Equal(t, Handle{ID: 2}, c)

	for i, h := range []Handle{a, b, c} {
		slot, err := m.Slot(h)
		require.NoError(t, err)
		require.Equal(t, i, slot)
	}

	require.NoError(t, m.Insert(a, u32(0xAAAA)))
	require.NoError(t, m.Insert(b, u32(0xBBBB)))
	require.NoError(t, m.Insert(c, u32(0xCCCC)))

	_, err = m.Allocate()
	require.ErrorIs(t, err, ErrFull)

	require.NoError(t, m.Remove(b))
	require.NoError(t, m.Check())
	require.Equal(t, 2, m.Len())

	slot, err := m.Slot(c)
	require.NoError(t, err)
	require.Equal(t, 1, slot)
	got, err := m.Get(c)
	require.NoError(t, err)
	require.Equal(t, u32(0xCCCC), got)

	require.True(t, m.IsAlive(a))
	require.True(t, m.IsAlive(c))
	require.False(t, m.IsAlive(b))

	d, err := m.Allocate()
	require.NoError(t, err)
	require.Equal(t, Handle{ID: 1, Generation: 1}, d)
	require.False(t, m.IsAlive(b))
	require.True(t, m.IsAlive(d))

	slot, err = m.Slot(d)
	require.NoError(t, err)
	require.Equal(t, 2, slot)
	require.NoError(t, m.Check())
}

func TestInsert_Idempotent(t *testing.T) {
	m := newTestMap(t, 4, 4, nil)
	h, err := m.Allocate()
	require.NoError(t, err)
	_, err = m.Allocate()
	require.NoError(t, err)

	tables := func() []byte {
		return append([]byte(nil), m.b[:m.l.DataOff]...)
	}
	before := tables()
	for i := uint32(0); i < 3; i++ {
		require.NoError(t, m.Insert(h, u32(i)))
		require.Equal(t, before, tables())
	}
	got, err := m.Get(h)
	require.NoError(t, err)
	require.Equal(t, u32(2), got)
	require.Equal(t, 2, m.Len())
}

func TestInsert_Errors(t *testing.T) {
	m := newTestMap(t, 2, 4, nil)
	h, err := m.Allocate()
	require.NoError(t, err)

	require.ErrorIs(t, m.Insert(h, []byte{1, 2, 3}), ErrPayloadSize)
	require.ErrorIs(t, m.Insert(h, []byte{1, 2, 3, 4, 5}), ErrPayloadSize)
	require.ErrorIs(t, m.Insert(Handle{ID: 2}, u32(1)), ErrInvalidID)
	require.ErrorIs(t, m.Insert(Handle{ID: 1}, u32(1)), ErrStaleHandle)
	require.ErrorIs(t, m.Insert(Handle{ID: 0, Generation: 1}, u32(1)), ErrStaleHandle)
	// The handle is checked before the payload.
	require.ErrorIs(t, m.Insert(Handle{ID: 9}, nil), ErrInvalidID)
}

func TestRemove_Errors(t *testing.T) {
	m := newTestMap(t, 2, 4, nil)
	h, err := m.Allocate()
	require.NoError(t, err)

	require.ErrorIs(t, m.Remove(Handle{ID: 5}), ErrInvalidID)
	require.ErrorIs(t, m.Remove(Handle{ID: 1}), ErrStaleHandle)
	require.NoError(t, m.Remove(h))
	require.ErrorIs(t, m.Remove(h), ErrStaleHandle)
	require.Equal(t, 0, m.Len())
	require.NoError(t, m.Check())
}

func TestRemove_LastSlot(t *testing.T) {
	m := newTestMap(t, 3, 4, nil)
	a, _ := m.Allocate()
	b, _ := m.Allocate()
	require.NoError(t, m.Insert(a, u32(1)))
	require.NoError(t, m.Insert(b, u32(2)))

	require.NoError(t, m.Remove(b))
	got, err := m.Get(a)
	require.NoError(t, err)
	require.Equal(t, u32(1), got)
	slot, err := m.Slot(a)
	require.NoError(t, err)
	require.Equal(t, 0, slot)
	require.NoError(t, m.Check())
}

func TestAllocate_LIFOReuse(t *testing.T) {
	m := newTestMap(t, 8, 0, nil)
	var hs []Handle
	for i := 0; i < 8; i++ {
		h, err := m.Allocate()
		require.NoError(t, err)
		require.Equal(t, uint32(i), h.ID)
		hs = append(hs, h)
	}

	require.NoError(t, m.Remove(hs[2]))
	require.NoError(t, m.Remove(hs[6]))
	require.NoError(t, m.Remove(hs[4]))

	for _, want := range []uint32{4, 6, 2} {
		h, err := m.Allocate()
		require.NoError(t, err)
		require.Equal(t, want, h.ID)
		require.Equal(t, uint64(1), h.Generation)
	}
	_, err := m.Allocate()
	require.ErrorIs(t, err, ErrFull)
	require.NoError(t, m.Check())
}

func TestAllocate_FullLeavesRegionUntouched(t *testing.T) {
	m := newTestMap(t, 2, 4, nil)
	_, _ = m.Allocate()
	_, _ = m.Allocate()

	before := append([]byte(nil), m.b...)
	_, err := m.Allocate()
	require.ErrorIs(t, err, ErrFull)
	require.Equal(t, before, m.b)
}

func TestSaturation_Retire(t *testing.T) {
	for _, gw := range []Width{Width16, Width32, Width64} {
		t.Run(fmt.Sprintf("gen%d", gw.Bits()), func(t *testing.T) {
			m := newTestMap(t, 2, 4, &Options{Format: Format{GenerationWidth: gw}})
			ceiling := format.MaxWord(gw)
			m.setGeneration(0, ceiling)

			h, err := m.Allocate()
			require.NoError(t, err)
			require.Equal(t, Handle{ID: 0, Generation: ceiling}, h)
			require.NoError(t, m.Remove(h))

			require.Equal(t, 1, m.Retired())
			require.Equal(t, 1, m.Available())
			require.Equal(t, ceiling, m.generation(0))
			require.False(t, m.IsAlive(h))
			require.NoError(t, m.Check())

			// Id 0 never comes back.
			h1, err := m.Allocate()
			require.NoError(t, err)
			require.Equal(t, uint32(1), h1.ID)
			_, err = m.Allocate()
			require.ErrorIs(t, err, ErrFull)

			require.NoError(t, m.Remove(h1))
			require.NoError(t, m.Clear())
			require.Equal(t, 1, m.Retired())
			require.NoError(t, m.Check())
			h2, err := m.Allocate()
			require.NoError(t, err)
			require.Equal(t, uint32(1), h2.ID)
			_, err = m.Allocate()
			require.ErrorIs(t, err, ErrFull)
		})
	}
}

func TestSaturation_Wrap(t *testing.T) {
	m := newTestMap(t, 1, 4, &Options{Format: Format{GenerationWidth: Width16, Saturation: Wrap}})
	m.setGeneration(0, 0xFFFF)

	h, err := m.Allocate()
	require.NoError(t, err)
	require.Equal(t, uint64(0xFFFF), h.Generation)
	require.NoError(t, m.Remove(h))
	require.Equal(t, 0, m.Retired())

	h2, err := m.Allocate()
	require.NoError(t, err)
	require.Equal(t, Handle{ID: 0, Generation: 0}, h2)
	require.False(t, m.IsAlive(h))
	require.NoError(t, m.Check())
}

func TestSaturation_RetireLogsWarning(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	m := newTestMap(t, 1, 4, &Options{Format: Format{GenerationWidth: Width16}, Logger: logger})
	m.setGeneration(0, 0xFFFF)

	h, err := m.Allocate()
	require.NoError(t, err)
	require.NoError(t, m.Remove(h))
	require.Contains(t, logs.String(), "retired")
	require.Contains(t, logs.String(), "id=0")
}

func TestClear(t *testing.T) {
	m := newTestMap(t, 4, 4, nil)
	var hs []Handle
	for i := 0; i < 3; i++ {
		h, err := m.Allocate()
		require.NoError(t, err)
		hs = append(hs, h)
	}
	require.NoError(t, m.Remove(hs[0]))

	require.NoError(t, m.Clear())
	require.Equal(t, 0, m.Len())
	require.Equal(t, 4, m.Available())
	require.NoError(t, m.Check())
	for _, h := range hs {
		require.False(t, m.IsAlive(h))
	}

	// Free list is rebuilt ascending; cleared ids come back a generation later.
	want := []Handle{{0, 1}, {1, 1}, {2, 1}, {3, 0}}
	for _, w := range want {
		h, err := m.Allocate()
		require.NoError(t, err)
		require.Equal(t, w, h)
	}
}

func TestIteration(t *testing.T) {
	m := newTestMap(t, 4, 4, nil)
	var hs []Handle
	for i := uint32(0); i < 4; i++ {
		h, err := m.Allocate()
		require.NoError(t, err)
		require.NoError(t, m.Insert(h, u32(i*10)))
		hs = append(hs, h)
	}
	require.NoError(t, m.Remove(hs[1]))

	// Slot 1 now holds id 3.
	var ids []uint32
	var vals []byte
	for h, v := range m.All() {
		require.True(t, m.IsAlive(h))
		ids = append(ids, h.ID)
		vals = append(vals, v...)
	}
	require.Equal(t, []uint32{0, 3, 2}, ids)
	require.Equal(t, vals, m.Values())
	require.Len(t, m.Values(), 3*4)

	id, err := m.IDAt(1)
	require.NoError(t, err)
	require.Equal(t, uint32(3), id)
	h, err := m.HandleAt(1)
	require.NoError(t, err)
	require.Equal(t, hs[3], h)

	_, err = m.IDAt(3)
	require.ErrorIs(t, err, ErrSlotRange)
	_, err = m.HandleAt(-1)
	require.ErrorIs(t, err, ErrSlotRange)

	n := 0
	for range m.All() {
		n++
		break
	}
	require.Equal(t, 1, n)
}

func TestOpen_Relocated(t *testing.T) {
	m := newTestMap(t, 4, 4, &Options{Format: Format{IndexWidth: Width16, GenerationWidth: Width64, DataAlign: 32}})
	a, _ := m.Allocate()
	b, _ := m.Allocate()
	require.NoError(t, m.Insert(a, u32(7)))
	require.NoError(t, m.Insert(b, u32(9)))
	require.NoError(t, m.Remove(a))

	moved := append([]byte(nil), m.Bytes()...)
	clear(m.Bytes())

	m2, err := Open(moved, nil)
	require.NoError(t, err)
	require.Equal(t, Width16, m2.Format().IndexWidth)
	require.Equal(t, Width64, m2.Format().GenerationWidth)
	require.Equal(t, 1, m2.Len())
	require.False(t, m2.IsAlive(a))
	got, err := m2.Get(b)
	require.NoError(t, err)
	require.Equal(t, u32(9), got)

	h, err := m2.Allocate()
	require.NoError(t, err)
	require.Equal(t, Handle{ID: 0, Generation: 1}, h)
	require.NoError(t, m2.Check())
}

func TestOpen_Errors(t *testing.T) {
	m := newTestMap(t, 4, 4, nil)

	_, err := Open(m.Bytes()[:10], nil)
	require.ErrorIs(t, err, format.ErrTruncated)

	_, err = Open(m.Bytes()[:m.Layout().Size-8], nil)
	require.ErrorIs(t, err, ErrBufferSize)

	bad := append([]byte(nil), m.Bytes()...)
	copy(bad, "nope")
	_, err = Open(bad, nil)
	require.ErrorIs(t, err, ErrSignatureMismatch)

	bad = append([]byte(nil), m.Bytes()...)
	format.PutU32(bad, format.CountOffset, 5)
	_, err = Open(bad, nil)
	require.ErrorIs(t, err, ErrCorrupt)

	bad = append([]byte(nil), m.Bytes()...)
	format.PutU32(bad, format.FreeHeadOffset, 4)
	_, err = Open(bad, nil)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestAllocate_CorruptFreeList(t *testing.T) {
	m := newTestMap(t, 2, 4, nil)
	// A free head without the free tag means the region was damaged.
	m.setSparse(0, 1)
	_, err := m.Allocate()
	require.ErrorIs(t, err, ErrCorrupt)
}

// newDamagedMap returns a 3-slot map with ids 0..2 live and the given dense
// slot's reverse entry pointing far outside the tables.
func newDamagedMap(t *testing.T, slot int) (*Map, []Handle) {
	t.Helper()
	m := newTestMap(t, 3, 4, nil)
	var hs []Handle
	for i := uint32(0); i < 3; i++ {
		h, err := m.Allocate()
		require.NoError(t, err)
		require.NoError(t, m.Insert(h, u32(i)))
		hs = append(hs, h)
	}
	format.PutWord(m.b, m.l.ReverseAt(slot), m.l.IndexWidth, 0x7000000)
	return m, hs
}

func TestRemove_CorruptReverse(t *testing.T) {
	m, hs := newDamagedMap(t, 2)
	before := append([]byte(nil), m.b...)

	require.ErrorIs(t, m.Remove(hs[0]), ErrCorrupt)
	require.Equal(t, before, m.b)

	// A reopened view rejects it the same way.
	m2, err := Open(m.Bytes(), nil)
	require.NoError(t, err)
	require.ErrorIs(t, m2.Remove(hs[0]), ErrCorrupt)
	require.Equal(t, before, m.b)

	// Removing the last slot does not read the damaged entry's target.
	require.NoError(t, m.Remove(hs[2]))
}

func TestRemove_ReverseDisagreesWithSparse(t *testing.T) {
	m := newTestMap(t, 3, 4, nil)
	a, _ := m.Allocate()
	_, _ = m.Allocate()
	_, _ = m.Allocate()
	// Slot 2 claims id 0, whose sparse entry says slot 0.
	m.setReverse(2, a.ID)
	before := append([]byte(nil), m.b...)

	require.ErrorIs(t, m.Remove(Handle{ID: 1}), ErrCorrupt)
	require.Equal(t, before, m.b)
}

func TestRemove_CountBeyondCapacity(t *testing.T) {
	m := newTestMap(t, 2, 4, nil)
	h, err := m.Allocate()
	require.NoError(t, err)
	m.setCount(9)

	require.ErrorIs(t, m.Remove(h), ErrCorrupt)
	require.ErrorIs(t, m.Clear(), ErrCorrupt)
	require.Nil(t, m.Values())
	_, err = m.IDAt(0)
	require.ErrorIs(t, err, ErrCorrupt)
	for range m.All() {
		t.Fatal("iterated a region with a corrupt count")
	}
}

func TestClear_CorruptReverse(t *testing.T) {
	m, hs := newDamagedMap(t, 0)
	before := append([]byte(nil), m.b...)

	require.ErrorIs(t, m.Clear(), ErrCorrupt)
	require.Equal(t, before, m.b)
	require.True(t, m.IsAlive(hs[1]))
}

func TestDenseAccess_CorruptReverse(t *testing.T) {
	m, _ := newDamagedMap(t, 1)

	id, err := m.IDAt(0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), id)

	_, err = m.IDAt(1)
	require.ErrorIs(t, err, ErrCorrupt)
	_, err = m.HandleAt(1)
	require.ErrorIs(t, err, ErrCorrupt)

	// Iteration stops at the damaged slot.
	var ids []uint32
	for h := range m.All() {
		ids = append(ids, h.ID)
	}
	require.Equal(t, []uint32{0}, ids)
	require.Error(t, m.Check())
}

func TestHandle_String(t *testing.T) {
	require.Equal(t, "3@7", Handle{ID: 3, Generation: 7}.String())
}
