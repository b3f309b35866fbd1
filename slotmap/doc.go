// Package slotmap implements a fixed-capacity, generation-validated dense
// collection that lives entirely inside a caller-supplied byte region.
//
// # Overview
//
// The caller sizes a region with LayoutSize, hands it to Init once, and then
// drives it through a *Map view. The map never allocates, never grows and
// keeps every piece of state inside the region, so the same bytes can be
// shared with code in other languages or moved between calls.
//
//	size, err := slotmap.LayoutSize(1024, 16, slotmap.Format{})
//	if err != nil {
//	    return err
//	}
//	region := make([]byte, size)
//	m, err := slotmap.Init(region, 1024, 16, nil)
//	if err != nil {
//	    return err
//	}
//
//	h, err := m.Allocate()
//	if err != nil {
//	    return err // ErrFull
//	}
//	err = m.Insert(h, payload) // exactly ElementSize bytes
//
//	for h, v := range m.All() {
//	    // dense, gapless iteration
//	}
//
//	err = m.Remove(h) // swap-remove; h is stale from here on
//
// # Memory Layout
//
//	[ Header (32B) | Generation[cap] | Sparse[cap] | Reverse[cap] | Data[cap*elem] ]
//
// Each section starts aligned to its word width; the data region and the
// total size are aligned to Format.DataAlign. See internal/format for the
// exact header offsets.
//
// # Handles
//
// A Handle is an (id, generation) pair. It is valid while the id is allocated
// and its generation matches the generation table. Remove advances the
// generation, so every handle issued before the removal becomes stale, even
// after the id is handed out again.
//
// Sparse words double as free-list links: the top bit tags a free id and the
// remaining bits hold the next free id. The free list is LIFO, so the most
// recently removed id is reused first.
//
// # Generation Saturation
//
// When an id is removed with its generation already at the largest value the
// generation word holds, the Retire policy (default) withdraws the id for the
// rest of the region's life and the Wrap policy restarts it at zero.
//
// # Thread Safety
//
// Maps are not thread-safe. Callers must serialize mutating calls; IsAlive
// may run concurrently with other readers only when no mutation is in flight.
//
// # Relocation
//
// The region stores offsets only. A region copied or moved to another
// address is reopened with Open and every outstanding handle stays valid.
package slotmap
