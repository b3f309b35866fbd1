package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/slotkit/pkg/region"
	"github.com/joshuapare/slotkit/slotmap"
)

var (
	createShape shapeFlags
	createForce bool
)

func init() {
	cmd := newCreateCmd()
	createShape.register(cmd, 1024)
	cmd.Flags().BoolVarP(&createForce, "force", "f", false, "Overwrite an existing image")
	rootCmd.AddCommand(cmd)
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <image>",
		Short: "Write an empty region image to a file",
		Long: `The create command sizes a region for the given shape, maps the file
read-write and initializes an empty slot map in it.

Example:
  slotctl create items.slmp --capacity 4096 --element-size 32
  slotctl create small.slmp -c 100 -e 8 --index-bits 16 --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args)
		},
	}
	return cmd
}

func runCreate(args []string) error {
	path := args[0]

	opts, err := createShape.options()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !createForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	size, err := slotmap.LayoutSize(createShape.capacity, createShape.elementSize, opts.Format)
	if err != nil {
		return fmt.Errorf("failed to compute layout: %w", err)
	}

	printVerbose("Mapping %s (%s)\n", path, bytesLabel(size))
	r, err := region.Create(path, size)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	defer r.Close()

	m, err := slotmap.Init(r.Bytes(), createShape.capacity, createShape.elementSize, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize region: %w", err)
	}
	if err := r.Sync(); err != nil {
		return fmt.Errorf("failed to flush image: %w", err)
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"image":  path,
			"size":   size,
			"layout": newLayoutReport(m.Layout()),
		})
	}
	printInfo("Created %s: capacity %s, element size %s, %s\n",
		path, num(m.Cap()), bytesLabel(m.ElementSize()), bytesLabel(size))
	return nil
}
