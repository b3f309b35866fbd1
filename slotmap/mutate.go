package slotmap

import (
	"github.com/joshuapare/slotkit/internal/format"
)

// Insert copies src into the element owned by h. src must be exactly
// ElementSize bytes. Overwriting an element is allowed and leaves every table
// unchanged.
func (m *Map) Insert(h Handle, src []byte) error {
	slot, err := m.lookup(h)
	if err != nil {
		return err
	}
	if len(src) != m.l.ElementSize {
		return ErrPayloadSize
	}
	copy(m.data(slot), src)
	return nil
}

// Remove deletes the element owned by h with a swap-remove: the last dense
// element moves into the vacated slot so the live range stays gapless. The
// id then returns to the free list with its generation advanced, unless the
// generation is already at its ceiling under the Retire policy, in which case
// the id is withdrawn for good.
//
// Returns ErrCorrupt without writing anything when the last dense slot does
// not map back to a live id.
func (m *Map) Remove(h Handle) error {
	slot, err := m.lookup(h)
	if err != nil {
		return err
	}
	count, err := m.liveCount()
	if err != nil {
		return err
	}

	last := count - 1
	if slot != last {
		moved, err := m.owner(last)
		if err != nil {
			return err
		}
		copy(m.data(slot), m.data(last))
		m.setSparse(moved, uint64(slot))
		m.setReverse(slot, moved)
	}
	m.setCount(last)
	if m.advance(h.ID) {
		m.setSparse(h.ID, m.freeTag|m.link(m.freeHead()))
		m.setFreeHead(h.ID)
	}
	return nil
}

// advance moves the generation of a just-freed id forward. It reports false
// when the id was retired instead and must not be reused.
func (m *Map) advance(id uint32) bool {
	g := m.generation(id)
	if g == m.maxGen {
		if m.l.Saturation == format.Retire {
			m.setSparse(id, m.freeTag|m.retiredLink)
			retired := format.ReadU32(m.b, format.RetiredOffset) + 1
			format.PutU32(m.b, format.RetiredOffset, retired)
			m.log.Warn("slotmap id retired at generation ceiling",
				"id", id,
				"generation", g,
				"retired", retired,
			)
			return false
		}
		g = 0
	} else {
		g++
	}
	m.setGeneration(id, g)
	return true
}

// Clear removes every live element in O(capacity). Live ids have their
// generations advanced exactly as Remove would, so no handle issued before
// the clear validates afterwards. The free list is rebuilt in ascending id
// order from every id that is not retired.
//
// Every dense slot is validated before anything is written, so a corrupt
// region is returned as ErrCorrupt and left as it was.
func (m *Map) Clear() error {
	count, err := m.liveCount()
	if err != nil {
		return err
	}
	ids := make([]uint32, count)
	for slot := range count {
		if ids[slot], err = m.owner(slot); err != nil {
			return err
		}
	}
	for _, id := range ids {
		m.advance(id)
	}
	m.setCount(0)

	head := uint32(format.NilID)
	for id := m.l.Capacity - 1; id >= 0; id-- {
		uid := uint32(id)
		if m.sparse(uid) == m.freeTag|m.retiredLink {
			continue
		}
		m.setSparse(uid, m.freeTag|m.link(head))
		head = uid
	}
	m.setFreeHead(head)
	m.log.Debug("slotmap cleared", "dropped", count, "retired", m.Retired())
	return nil
}
