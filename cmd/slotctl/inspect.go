package main

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/slotkit/pkg/region"
	"github.com/joshuapare/slotkit/slotmap"
	"github.com/joshuapare/slotkit/slotmap/verify"
)

var (
	inspectTables   bool
	inspectMaxBytes int
)

func init() {
	cmd := newInspectCmd()
	cmd.Flags().BoolVarP(&inspectTables, "tables", "t", false, "List every live element in dense order")
	cmd.Flags().IntVar(&inspectMaxBytes, "max-bytes", 16, "Payload bytes to show per element with --tables")
	rootCmd.AddCommand(cmd)
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <image>",
		Short: "Print a region header and validate its invariants",
		Long: `The inspect command maps a region image read-only, prints its header and
runs the full invariant checker. It exits non-zero if the region is invalid.

Example:
  slotctl inspect items.slmp
  slotctl inspect items.slmp --tables --max-bytes 8
  slotctl inspect items.slmp --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args)
		},
	}
	return cmd
}

type inspectReport struct {
	Image     string         `json:"image"`
	Layout    layoutReport   `json:"layout"`
	Count     int            `json:"count"`
	Retired   int            `json:"retired"`
	Available int            `json:"available"`
	Valid     bool           `json:"valid"`
	Problem   string         `json:"problem,omitempty"`
	Offset    *int           `json:"problem_offset,omitempty"`
	Elements  []elementEntry `json:"elements,omitempty"`
}

type elementEntry struct {
	Slot       int    `json:"slot"`
	ID         uint32 `json:"id"`
	Generation uint64 `json:"generation"`
	Payload    string `json:"payload"`
}

func runInspect(args []string) error {
	path := args[0]
	if inspectMaxBytes < 0 {
		return fmt.Errorf("--max-bytes must be at least 0, got %d", inspectMaxBytes)
	}

	printVerbose("Mapping image: %s\n", path)
	r, err := region.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	defer r.Close()

	m, err := slotmap.Open(r.Bytes(), &slotmap.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to open region: %w", err)
	}

	report := inspectReport{
		Image:     path,
		Layout:    newLayoutReport(m.Layout()),
		Count:     m.Len(),
		Retired:   m.Retired(),
		Available: m.Available(),
		Valid:     true,
	}

	checkErr := m.Check()
	if checkErr != nil {
		report.Valid = false
		report.Problem = checkErr.Error()
		var verr *verify.ValidationError
		if errors.As(checkErr, &verr) && verr.Offset >= 0 {
			off := verr.Offset
			report.Offset = &off
		}
		logger.Warn("region failed validation", "image", path, "error", checkErr)
	}

	// A corrupt region cannot be walked safely.
	if inspectTables && report.Valid {
		for h, v := range m.All() {
			slot, _ := m.Slot(h)
			report.Elements = append(report.Elements, elementEntry{
				Slot:       slot,
				ID:         h.ID,
				Generation: h.Generation,
				Payload:    hex.EncodeToString(v[:min(len(v), inspectMaxBytes)]),
			})
		}
	}

	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
		return invalidErr(checkErr)
	}

	l := report.Layout
	printInfo("\nRegion Information:\n")
	printInfo("  Image: %s\n", path)
	printInfo("  Size: %s\n", bytesLabel(l.Size))
	printInfo("  Words: %d-bit index, %d-bit generation\n", l.IndexBits, l.GenerationBits)
	printInfo("  Data alignment: %d\n", l.DataAlign)
	printInfo("  Saturation: %s\n", l.Saturation)
	printInfo("  Capacity: %s\n", num(l.Capacity))
	printInfo("  Element size: %s\n", bytesLabel(l.ElementSize))
	printInfo("  Live: %s\n", num(report.Count))
	printInfo("  Retired: %s\n", num(report.Retired))
	printInfo("  Available: %s\n", num(report.Available))

	if inspectTables && report.Valid {
		printInfo("\n  %8s %10s %12s  %s\n", "Slot", "ID", "Generation", "Payload")
		for _, e := range report.Elements {
			printInfo("  %8d %10d %12d  %s\n", e.Slot, e.ID, e.Generation, e.Payload)
		}
	}

	printInfo("\nValidation:\n")
	if report.Valid {
		printInfo("  ✓ Invariants hold\n")
	} else {
		printInfo("  ✗ %s\n", report.Problem)
	}
	return invalidErr(checkErr)
}

func invalidErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("region is invalid: %w", err)
}
