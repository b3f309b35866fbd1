package slotmap

import "github.com/joshuapare/slotkit/internal/format"

// Allocate pops the most recently freed id and appends it to the dense range.
// The returned handle carries the id's current generation: zero on first use,
// otherwise the value its last removal advanced it to. The payload at the new
// dense slot is unspecified until Insert.
//
// Returns ErrFull without touching the region when no id is free.
func (m *Map) Allocate() (Handle, error) {
	head := m.freeHead()
	if head == format.NilID {
		m.log.Debug("slotmap allocate on full map", "capacity", m.l.Capacity, "retired", m.Retired())
		return Handle{}, ErrFull
	}

	count := m.count()
	if head >= uint32(m.l.Capacity) || count >= uint32(m.l.Capacity) {
		return Handle{}, ErrCorrupt
	}
	link := m.sparse(head)
	if link&m.freeTag == 0 {
		return Handle{}, ErrCorrupt
	}
	next := link &^ m.freeTag
	if next != m.nilLink && next >= uint64(m.l.Capacity) {
		return Handle{}, ErrCorrupt
	}

	if next == m.nilLink {
		m.setFreeHead(format.NilID)
	} else {
		m.setFreeHead(uint32(next))
	}
	m.setSparse(head, uint64(count))
	m.setReverse(count, head)
	m.setCount(count + 1)

	return Handle{ID: head, Generation: m.generation(head)}, nil
}
