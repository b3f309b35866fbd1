// Package region provides backing memory for slot maps.
//
// A slot map never allocates: the caller hands it a region of exactly
// slotmap.LayoutSize bytes. This package supplies such regions from four
// sources:
//
//   - New: a Go heap buffer whose base address is aligned to a power of two
//   - NewAnon: anonymous memory mapped outside the Go heap
//   - Create: a file mapped read-write and shared, so the map persists
//   - Load: an existing region image mapped read-only, for inspection
//
// Example:
//
//	l, _ := slotmap.ComputeLayout(1024, 16, slotmap.Format{})
//	r, err := region.ForLayout(l)
//	if err != nil { ... }
//	defer r.Close()
//
//	m, err := slotmap.Init(r.Bytes(), 1024, 16, nil)
//
// Bytes must not be used after Close. Regions returned by Load are mapped
// read-only where the platform supports it; mutating them faults.
package region
