// Package verify checks the structural invariants of a slot map region.
// It reads raw bytes only, so it can validate regions written by foreign
// callers as well as by package slotmap.
package verify

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/joshuapare/slotkit/internal/buf"
	"github.com/joshuapare/slotkit/internal/format"
)

// ValidationError describes the first invariant a region violates.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying format error for header failures.
func (e *ValidationError) Unwrap() error {
	if err, ok := e.Details["cause"].(error); ok {
		return err
	}
	return nil
}

// region is a decoded region under verification.
type region struct {
	b []byte
	l format.Layout
	h format.Header

	freeTag     uint64
	nilLink     uint64
	retiredLink uint64
	maxGen      uint64
}

// Invariants validates every region invariant in one call and returns the
// first failure, or nil if the region is consistent.
func Invariants(b []byte) error {
	r, err := decode(b)
	if err != nil {
		return err
	}
	live, err := r.denseTables()
	if err != nil {
		return err
	}
	free, err := r.freeList(live)
	if err != nil {
		return err
	}
	return r.retired(live, free)
}

// Header validates the header and the region length only.
func Header(b []byte) error {
	_, err := decode(b)
	return err
}

func decode(b []byte) (*region, error) {
	l, h, err := format.Open(b)
	if err != nil {
		verr := &ValidationError{
			Type:    "Header",
			Message: err.Error(),
			Offset:  -1,
			Details: map[string]interface{}{"cause": err},
		}
		if errors.Is(err, format.ErrSignatureMismatch) {
			verr.Offset = format.SignatureOffset
		}
		return nil, verr
	}
	if h.Count > h.Capacity {
		return nil, &ValidationError{
			Type:    "Header",
			Message: fmt.Sprintf("count %d exceeds capacity %d", h.Count, h.Capacity),
			Offset:  format.CountOffset,
		}
	}
	if h.Retired > h.Capacity-h.Count {
		return nil, &ValidationError{
			Type:    "Header",
			Message: fmt.Sprintf("retired %d exceeds the %d ids not in use", h.Retired, h.Capacity-h.Count),
			Offset:  format.RetiredOffset,
		}
	}
	for _, t := range []struct {
		name          string
		off, n, width int
	}{
		{"generation table", l.GenerationOff, l.Capacity, int(l.GenerationWidth)},
		{"sparse table", l.SparseOff, l.Capacity, int(l.IndexWidth)},
		{"reverse table", l.ReverseOff, l.Capacity, int(l.IndexWidth)},
		{"data region", l.DataOff, l.Capacity, l.ElementSize},
	} {
		if _, err := buf.CheckTableBounds(len(b), t.off, t.n, t.width); err != nil {
			return nil, &ValidationError{
				Type:    "Layout",
				Message: fmt.Sprintf("%s: %v", t.name, err),
				Offset:  t.off,
			}
		}
	}
	return &region{
		b:           b,
		l:           l,
		h:           h,
		freeTag:     format.FreeTag(l.IndexWidth),
		nilLink:     format.NilLink(l.IndexWidth),
		retiredLink: format.RetiredLink(l.IndexWidth),
		maxGen:      format.MaxWord(l.GenerationWidth),
	}, nil
}

// Word reads go through buf so a damaged region can never panic the checker.

func (r *region) word(off int, w format.Width) uint64 {
	b, _ := buf.Slice(r.b, off, int(w))
	return buf.UintLE(b, int(w))
}

func (r *region) sparse(id uint32) uint64 {
	return r.word(r.l.SparseAt(int(id)), r.l.IndexWidth)
}

func (r *region) generation(id uint32) uint64 {
	return r.word(r.l.GenerationAt(int(id)), r.l.GenerationWidth)
}

// denseTables checks that Reverse and Sparse agree on every live slot and
// returns the set of live ids.
func (r *region) denseTables() (*roaring.Bitmap, error) {
	live := roaring.New()
	capacity := r.h.Capacity
	for slot := uint32(0); slot < r.h.Count; slot++ {
		off := r.l.ReverseAt(int(slot))
		id64 := r.word(off, r.l.IndexWidth)
		if id64 >= uint64(capacity) {
			return nil, &ValidationError{
				Type:    "ReverseTable",
				Message: fmt.Sprintf("slot %d maps to id %d outside capacity %d", slot, id64, capacity),
				Offset:  off,
			}
		}
		id := uint32(id64)
		if !live.CheckedAdd(id) {
			return nil, &ValidationError{
				Type:    "ReverseTable",
				Message: fmt.Sprintf("id %d owns more than one dense slot", id),
				Offset:  off,
			}
		}
		s := r.sparse(id)
		if s&r.freeTag != 0 {
			return nil, &ValidationError{
				Type:    "SparseTable",
				Message: fmt.Sprintf("live id %d is tagged free", id),
				Offset:  r.l.SparseAt(int(id)),
			}
		}
		if s != uint64(slot) {
			return nil, &ValidationError{
				Type:    "SparseTable",
				Message: fmt.Sprintf("id %d points at slot %d, reverse table says %d", id, s, slot),
				Offset:  r.l.SparseAt(int(id)),
				Details: map[string]interface{}{"sparse": s, "slot": slot},
			}
		}
	}
	return live, nil
}

// freeList walks the free list from the header's head and returns the set of
// ids on it.
func (r *region) freeList(live *roaring.Bitmap) (*roaring.Bitmap, error) {
	free := roaring.New()
	capacity := r.h.Capacity
	cur := r.h.FreeHead
	for cur != format.NilID {
		if cur >= capacity {
			return nil, &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("link to id %d outside capacity %d", cur, capacity),
				Offset:  -1,
			}
		}
		off := r.l.SparseAt(int(cur))
		if live.Contains(cur) {
			return nil, &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("live id %d is on the free list", cur),
				Offset:  off,
			}
		}
		if !free.CheckedAdd(cur) {
			return nil, &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("id %d appears twice (cycle)", cur),
				Offset:  off,
			}
		}
		s := r.sparse(cur)
		if s&r.freeTag == 0 {
			return nil, &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("free id %d is missing the free tag", cur),
				Offset:  off,
			}
		}
		next := s &^ r.freeTag
		if next == r.nilLink {
			break
		}
		if next >= uint64(capacity) {
			return nil, &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("id %d links to %d outside capacity %d", cur, next, capacity),
				Offset:  off,
			}
		}
		cur = uint32(next)
	}

	want := uint64(capacity - r.h.Count - r.h.Retired)
	if got := free.GetCardinality(); got != want {
		return nil, &ValidationError{
			Type:    "FreeList",
			Message: fmt.Sprintf("free list holds %d ids, expected %d", got, want),
			Offset:  format.FreeHeadOffset,
			Details: map[string]interface{}{
				"capacity": capacity,
				"count":    r.h.Count,
				"retired":  r.h.Retired,
			},
		}
	}
	return free, nil
}

// retired checks every id that is neither live nor free: it must be marked
// retired, sit at the generation ceiling, and the tally must match the header.
func (r *region) retired(live, free *roaring.Bitmap) error {
	var tally uint32
	for id := uint32(0); id < r.h.Capacity; id++ {
		if live.Contains(id) || free.Contains(id) {
			continue
		}
		off := r.l.SparseAt(int(id))
		if r.sparse(id) != r.freeTag|r.retiredLink {
			return &ValidationError{
				Type:    "Retired",
				Message: fmt.Sprintf("id %d is neither live, free nor retired", id),
				Offset:  off,
			}
		}
		if r.l.Saturation != format.Retire {
			return &ValidationError{
				Type:    "Retired",
				Message: fmt.Sprintf("id %d retired under the %s policy", id, r.l.Saturation),
				Offset:  off,
			}
		}
		if g := r.generation(id); g != r.maxGen {
			return &ValidationError{
				Type:    "Retired",
				Message: fmt.Sprintf("retired id %d has generation %d below ceiling %d", id, g, r.maxGen),
				Offset:  r.l.GenerationAt(int(id)),
			}
		}
		tally++
	}
	if tally != r.h.Retired {
		return &ValidationError{
			Type:    "Retired",
			Message: fmt.Sprintf("header counts %d retired ids, found %d", r.h.Retired, tally),
			Offset:  format.RetiredOffset,
		}
	}
	return nil
}
