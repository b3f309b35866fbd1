package slotmap

import (
	"errors"

	"github.com/joshuapare/slotkit/internal/format"
)

var (
	// ErrFull indicates Allocate found no free id.
	ErrFull = errors.New("slotmap: full")

	// ErrInvalidID indicates a handle whose id is outside [0, capacity).
	ErrInvalidID = errors.New("slotmap: invalid id")

	// ErrStaleHandle indicates a handle whose id is free or whose generation
	// no longer matches.
	ErrStaleHandle = errors.New("slotmap: stale handle")

	// ErrZeroCapacity indicates Init was asked for zero slots with Options.RequireCapacity set.
	ErrZeroCapacity = errors.New("slotmap: zero capacity")

	// ErrPayloadSize indicates an Insert source whose length differs from the element size.
	ErrPayloadSize = errors.New("slotmap: payload size mismatch")

	// ErrSlotRange indicates a dense slot outside [0, Len()).
	ErrSlotRange = errors.New("slotmap: dense slot out of range")

	// ErrCorrupt indicates region state that violates a structural invariant.
	ErrCorrupt = errors.New("slotmap: corrupt region")
)

// Layout errors are shared with internal/format so errors.Is works on either.
var (
	ErrCapacityOverflow  = format.ErrCapacityOverflow
	ErrSizeOverflow      = format.ErrSizeOverflow
	ErrBufferSize        = format.ErrBufferSize
	ErrSignatureMismatch = format.ErrSignatureMismatch
	ErrUnsupported       = format.ErrUnsupported
	ErrInvalidArgument   = format.ErrInvalidArgument
)
