package slotmap

import "iter"

// lookup validates h and returns its dense slot. It reads only the header,
// the generation table and the sparse table.
func (m *Map) lookup(h Handle) (uint32, error) {
	if uint64(h.ID) >= uint64(m.l.Capacity) {
		return 0, ErrInvalidID
	}
	s := m.sparse(h.ID)
	if s&m.freeTag != 0 || m.generation(h.ID) != h.Generation {
		return 0, ErrStaleHandle
	}
	if s >= uint64(m.count()) || s >= uint64(m.l.Capacity) {
		return 0, ErrCorrupt
	}
	return uint32(s), nil
}

// liveCount returns the header count, or ErrCorrupt when it exceeds capacity.
func (m *Map) liveCount() (uint32, error) {
	n := m.count()
	if uint64(n) > uint64(m.l.Capacity) {
		return 0, ErrCorrupt
	}
	return n, nil
}

// owner returns the id stored in Reverse[slot] after checking that it is in
// range and that its sparse entry points back at slot.
func (m *Map) owner(slot uint32) (uint32, error) {
	id := m.reverse(slot)
	if uint64(id) >= uint64(m.l.Capacity) || m.sparse(id) != uint64(slot) {
		return 0, ErrCorrupt
	}
	return id, nil
}

// IsAlive reports whether h refers to a live element. It never fails: an
// out-of-range id is simply not alive.
func (m *Map) IsAlive(h Handle) bool {
	_, err := m.lookup(h)
	return err == nil
}

// Get returns the element bytes owned by h. The slice aliases the region and
// is only meaningful until the next Remove or Clear moves elements around.
func (m *Map) Get(h Handle) ([]byte, error) {
	slot, err := m.lookup(h)
	if err != nil {
		return nil, err
	}
	return m.data(slot), nil
}

// Slot returns the dense slot currently holding h's element.
func (m *Map) Slot(h Handle) (int, error) {
	slot, err := m.lookup(h)
	if err != nil {
		return 0, err
	}
	return int(slot), nil
}

// IDAt returns the id owning dense slot.
func (m *Map) IDAt(slot int) (uint32, error) {
	n, err := m.liveCount()
	if err != nil {
		return 0, err
	}
	if slot < 0 || slot >= int(n) {
		return 0, ErrSlotRange
	}
	return m.owner(uint32(slot))
}

// HandleAt returns the full handle of the element in dense slot.
func (m *Map) HandleAt(slot int) (Handle, error) {
	id, err := m.IDAt(slot)
	if err != nil {
		return Handle{}, err
	}
	return Handle{ID: id, Generation: m.generation(id)}, nil
}

// Values returns the live prefix of the data region: Len() payloads packed
// back to back in dense order. A count beyond capacity yields nil.
func (m *Map) Values() []byte {
	n, err := m.liveCount()
	if err != nil {
		return nil
	}
	end := m.l.DataAt(int(n))
	return m.b[m.l.DataOff:end:end]
}

// All iterates live elements in dense order. Mutating the map during
// iteration is not supported. Iteration stops early at the first slot whose
// tables disagree; Check reports why.
func (m *Map) All() iter.Seq2[Handle, []byte] {
	return func(yield func(Handle, []byte) bool) {
		n, err := m.liveCount()
		if err != nil {
			return
		}
		for slot := uint32(0); slot < n; slot++ {
			id, err := m.owner(slot)
			if err != nil {
				return
			}
			if !yield(Handle{ID: id, Generation: m.generation(id)}, m.data(slot)) {
				return
			}
		}
	}
}
