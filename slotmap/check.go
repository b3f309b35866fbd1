package slotmap

import "github.com/joshuapare/slotkit/slotmap/verify"

// Check runs the full invariant verifier over the region. It is O(capacity)
// and meant for tests, debugging and tooling rather than hot paths.
func (m *Map) Check() error {
	return verify.Invariants(m.b)
}
