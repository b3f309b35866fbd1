package slotmap

import (
	"io"
	"log/slog"

	"github.com/joshuapare/slotkit/internal/format"
)

// Format is the persisted shape of a region (word widths, data alignment,
// saturation policy). The zero value selects 32-bit ids, 32-bit generations,
// 8-byte data alignment and the Retire policy.
type Format = format.Format

// Layout holds the byte offsets of every section of a region.
type Layout = format.Layout

// Width is the size in bytes of an index or generation word.
type Width = format.Width

// SaturationPolicy decides what Remove does when a generation is at its ceiling.
type SaturationPolicy = format.SaturationPolicy

// Word widths and saturation policies (re-exported for convenience).
const (
	Width16 = format.Width16
	Width32 = format.Width32
	Width64 = format.Width64

	Retire = format.Retire
	Wrap   = format.Wrap
)

// Options controls Init and Open.
type Options struct {
	// Format selects the layout Init writes. Open ignores it and reads the
	// format from the region header.
	Format Format

	// RequireCapacity makes Init reject capacity 0 with ErrZeroCapacity.
	// Without it a zero-capacity region is valid and every Allocate fails.
	RequireCapacity bool

	// Logger receives lifecycle events (init, open, full, retire, clear).
	// Nothing is logged per element operation. Nil discards all output.
	Logger *slog.Logger
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func (o *Options) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return discardLogger
	}
	return o.Logger
}
