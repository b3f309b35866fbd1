package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/slotkit/internal/format"
	"github.com/joshuapare/slotkit/slotmap"
)

// shapeFlags are the flags shared by every command that lays out a region.
type shapeFlags struct {
	capacity        int
	elementSize     int
	indexBits       int
	generationBits  int
	dataAlign       int
	wrap            bool
	requireCapacity bool
}

var layoutShape shapeFlags

func (s *shapeFlags) register(cmd *cobra.Command, defaultCapacity int) {
	cmd.Flags().IntVarP(&s.capacity, "capacity", "c", defaultCapacity, "Number of ids in the region")
	cmd.Flags().IntVarP(&s.elementSize, "element-size", "e", 16, "Payload size of each element in bytes")
	cmd.Flags().IntVar(&s.indexBits, "index-bits", 32, "Index word width in bits (16 or 32)")
	cmd.Flags().IntVar(&s.generationBits, "generation-bits", 32, "Generation word width in bits (16, 32 or 64)")
	cmd.Flags().IntVar(&s.dataAlign, "data-align", format.DefaultDataAlign, "Data region alignment in bytes (power of two)")
	cmd.Flags().BoolVar(&s.wrap, "wrap", false, "Wrap saturated generations to zero instead of retiring the id")
	cmd.Flags().BoolVar(&s.requireCapacity, "require-capacity", false, "Reject a zero capacity")
}

func (s *shapeFlags) format() (slotmap.Format, error) {
	f := slotmap.Format{DataAlign: s.dataAlign}
	var err error
	if f.IndexWidth, err = bitsToWidth("index-bits", s.indexBits); err != nil {
		return slotmap.Format{}, err
	}
	if f.GenerationWidth, err = bitsToWidth("generation-bits", s.generationBits); err != nil {
		return slotmap.Format{}, err
	}
	if s.wrap {
		f.Saturation = slotmap.Wrap
	}
	return f, nil
}

func (s *shapeFlags) options() (*slotmap.Options, error) {
	f, err := s.format()
	if err != nil {
		return nil, err
	}
	return &slotmap.Options{Format: f, RequireCapacity: s.requireCapacity, Logger: logger}, nil
}

func bitsToWidth(flag string, bits int) (slotmap.Width, error) {
	if bits%8 != 0 || bits <= 0 || bits > 64 {
		return 0, fmt.Errorf("--%s: %d is not a whole number of bytes", flag, bits)
	}
	return slotmap.Width(bits / 8), nil
}

// layoutReport is the JSON form of a computed layout.
type layoutReport struct {
	Capacity        int          `json:"capacity"`
	ElementSize     int          `json:"element_size"`
	IndexBits       int          `json:"index_bits"`
	GenerationBits  int          `json:"generation_bits"`
	DataAlign       int          `json:"data_align"`
	Saturation      string       `json:"saturation"`
	Alignment       int          `json:"base_alignment"`
	Size            int          `json:"size"`
	MaxCapacity     int          `json:"max_capacity"`
	Sections        []sectionRow `json:"sections"`
	GenerationLimit uint64       `json:"generation_limit"`
}

type sectionRow struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
	Size   int    `json:"size"`
}

func newLayoutReport(l slotmap.Layout) layoutReport {
	return layoutReport{
		Capacity:        l.Capacity,
		ElementSize:     l.ElementSize,
		IndexBits:       l.IndexWidth.Bits(),
		GenerationBits:  l.GenerationWidth.Bits(),
		DataAlign:       l.DataAlign,
		Saturation:      l.Saturation.String(),
		Alignment:       l.Alignment(),
		Size:            l.Size,
		MaxCapacity:     format.MaxCapacity(l.IndexWidth),
		GenerationLimit: format.MaxWord(l.GenerationWidth),
		Sections: []sectionRow{
			{"header", 0, format.HeaderSize},
			{"generation", l.GenerationOff, l.Capacity * int(l.GenerationWidth)},
			{"sparse", l.SparseOff, l.Capacity * int(l.IndexWidth)},
			{"reverse", l.ReverseOff, l.Capacity * int(l.IndexWidth)},
			{"data", l.DataOff, l.Capacity * l.ElementSize},
		},
	}
}

func init() {
	cmd := newLayoutCmd()
	layoutShape.register(cmd, 1024)
	rootCmd.AddCommand(cmd)
}

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Compute the region layout for a capacity and element size",
		Long: `The layout command computes the exact region size and the offset of every
section for the given shape, without allocating anything.

Example:
  slotctl layout --capacity 4096 --element-size 24
  slotctl layout -c 1000 -e 8 --index-bits 16 --generation-bits 64 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLayout()
		},
	}
	return cmd
}

func runLayout() error {
	opts, err := layoutShape.options()
	if err != nil {
		return err
	}
	if opts.RequireCapacity && layoutShape.capacity == 0 {
		return fmt.Errorf("failed to compute layout: %w", slotmap.ErrZeroCapacity)
	}
	l, err := slotmap.ComputeLayout(layoutShape.capacity, layoutShape.elementSize, opts.Format)
	if err != nil {
		return fmt.Errorf("failed to compute layout: %w", err)
	}
	report := newLayoutReport(l)

	if jsonOut {
		return printJSON(report)
	}

	printInfo("\nRegion Layout:\n")
	printInfo("  Capacity: %s (max %s)\n", num(report.Capacity), num(report.MaxCapacity))
	printInfo("  Element size: %s\n", bytesLabel(report.ElementSize))
	printInfo("  Words: %d-bit index, %d-bit generation\n", report.IndexBits, report.GenerationBits)
	printInfo("  Saturation: %s at generation %s\n", report.Saturation, num(report.GenerationLimit))
	printInfo("\n  %-12s %12s %14s\n", "Section", "Offset", "Size")
	for _, s := range report.Sections {
		printInfo("  %-12s %12s %14s\n", s.Name, num(s.Offset), num(s.Size))
	}
	printInfo("\n  Total: %s\n", bytesLabel(report.Size))
	printInfo("  Base alignment: %d\n", report.Alignment)
	return nil
}
