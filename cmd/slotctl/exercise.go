package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/slotkit/pkg/region"
	"github.com/joshuapare/slotkit/slotmap"
)

var (
	exerciseShape      shapeFlags
	exerciseOps        int
	exerciseSeed       int64
	exerciseWorkers    int
	exerciseCheckEvery int
	exerciseOut        string
)

func init() {
	cmd := newExerciseCmd()
	exerciseShape.register(cmd, 1024)
	cmd.Flags().IntVarP(&exerciseOps, "ops", "n", 100000, "Operations per worker")
	cmd.Flags().Int64Var(&exerciseSeed, "seed", 1, "Random seed (worker i uses seed+i)")
	cmd.Flags().IntVarP(&exerciseWorkers, "workers", "w", 1, "Independent regions driven in parallel")
	cmd.Flags().IntVar(&exerciseCheckEvery, "check-every", 1000, "Verify invariants every N operations (0 = only at the end)")
	cmd.Flags().StringVarP(&exerciseOut, "out", "o", "", "Back worker 0's region with this file instead of anonymous memory")
	rootCmd.AddCommand(cmd)
}

func newExerciseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exercise",
		Short: "Drive random allocate/insert/remove cycles and verify invariants",
		Long: `The exercise command runs a seeded random workload against one or more
independent regions and checks every invariant as it goes. Each worker owns
its region; nothing is shared between goroutines.

Example:
  slotctl exercise --capacity 256 --ops 1000000
  slotctl exercise -c 64 -e 8 --generation-bits 16 --workers 4 --seed 7
  slotctl exercise -c 128 --out run.slmp && slotctl inspect run.slmp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExercise(cmd.Context())
		},
	}
	return cmd
}

// workerStats counts what one worker did.
type workerStats struct {
	Worker    int `json:"worker"`
	Allocated int `json:"allocated"`
	Removed   int `json:"removed"`
	Full      int `json:"full"`
	Reads     int `json:"reads"`
	Checks    int `json:"checks"`
	Live      int `json:"live"`
	Retired   int `json:"retired"`
}

type exerciseReport struct {
	Workers    []workerStats `json:"workers"`
	Total      workerStats   `json:"total"`
	Ops        int           `json:"ops_per_worker"`
	Elapsed    string        `json:"elapsed"`
	RegionSize int           `json:"region_size"`
}

func runExercise(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if exerciseWorkers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}
	if exerciseOps < 0 {
		return fmt.Errorf("--ops must not be negative")
	}
	opts, err := exerciseShape.options()
	if err != nil {
		return err
	}
	size, err := slotmap.LayoutSize(exerciseShape.capacity, exerciseShape.elementSize, opts.Format)
	if err != nil {
		return fmt.Errorf("failed to compute layout: %w", err)
	}

	printVerbose("Running %d worker(s), %s ops each, region %s\n", exerciseWorkers, num(exerciseOps), bytesLabel(size))

	stats := make([]workerStats, exerciseWorkers)
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := range exerciseWorkers {
		g.Go(func() error {
			r, err := newExerciseRegion(i, size)
			if err != nil {
				return err
			}
			defer r.Close()

			st, err := exerciseRegion(ctx, r.Bytes(), opts, exerciseSeed+int64(i))
			st.Worker = i
			stats[i] = st
			if err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			return r.Sync()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	report := exerciseReport{
		Workers:    stats,
		Ops:        exerciseOps,
		Elapsed:    time.Since(start).Round(time.Millisecond).String(),
		RegionSize: size,
	}
	for _, st := range stats {
		report.Total.Allocated += st.Allocated
		report.Total.Removed += st.Removed
		report.Total.Full += st.Full
		report.Total.Reads += st.Reads
		report.Total.Checks += st.Checks
		report.Total.Live += st.Live
		report.Total.Retired += st.Retired
	}
	report.Total.Worker = -1

	if jsonOut {
		return printJSON(report)
	}

	printInfo("\nExercise Results:\n")
	printInfo("  Workers: %d x %s ops in %s\n", exerciseWorkers, num(exerciseOps), report.Elapsed)
	printInfo("  Region: %s each\n", bytesLabel(size))
	printInfo("  Allocated: %s\n", num(report.Total.Allocated))
	printInfo("  Removed: %s\n", num(report.Total.Removed))
	printInfo("  Full: %s\n", num(report.Total.Full))
	printInfo("  Reads: %s\n", num(report.Total.Reads))
	printInfo("  Live: %s\n", num(report.Total.Live))
	printInfo("  Retired: %s\n", num(report.Total.Retired))
	printInfo("  Invariant checks: %s passed\n", num(report.Total.Checks))
	if exerciseOut != "" {
		printInfo("  Worker 0 region written to %s\n", exerciseOut)
	}
	return nil
}

func newExerciseRegion(worker, size int) (*region.Region, error) {
	if worker == 0 && exerciseOut != "" {
		return region.Create(exerciseOut, size)
	}
	return region.NewAnon(size)
}

// exerciseRegion initializes b and runs exerciseOps random operations on it.
func exerciseRegion(ctx context.Context, b []byte, opts *slotmap.Options, seed int64) (workerStats, error) {
	var st workerStats
	m, err := slotmap.Init(b, exerciseShape.capacity, exerciseShape.elementSize, opts)
	if err != nil {
		return st, err
	}

	rng := rand.New(rand.NewSource(seed))
	live := make([]slotmap.Handle, 0, m.Cap())
	payload := make([]byte, m.ElementSize())

	for i := range exerciseOps {
		if i&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return st, err
			}
		}

		switch op := rng.Intn(10); {
		case op < 5:
			h, err := m.Allocate()
			if errors.Is(err, slotmap.ErrFull) {
				st.Full++
				break
			}
			if err != nil {
				return st, fmt.Errorf("op %d: allocate: %w", i, err)
			}
			fillPayload(payload, h)
			if err := m.Insert(h, payload); err != nil {
				return st, fmt.Errorf("op %d: insert %s: %w", i, h, err)
			}
			live = append(live, h)
			st.Allocated++

		case op < 9:
			if len(live) == 0 {
				break
			}
			j := rng.Intn(len(live))
			h := live[j]
			if err := m.Remove(h); err != nil {
				return st, fmt.Errorf("op %d: remove %s: %w", i, h, err)
			}
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
			if m.IsAlive(h) {
				return st, fmt.Errorf("op %d: %s alive after remove", i, h)
			}
			st.Removed++

		default:
			if len(live) == 0 {
				break
			}
			h := live[rng.Intn(len(live))]
			got, err := m.Get(h)
			if err != nil {
				return st, fmt.Errorf("op %d: get %s: %w", i, h, err)
			}
			fillPayload(payload, h)
			if !bytes.Equal(got, payload) {
				return st, fmt.Errorf("op %d: payload of %s was overwritten", i, h)
			}
			st.Reads++
		}

		if exerciseCheckEvery > 0 && (i+1)%exerciseCheckEvery == 0 {
			if err := m.Check(); err != nil {
				return st, fmt.Errorf("op %d: %w", i, err)
			}
			st.Checks++
		}
	}

	if err := m.Check(); err != nil {
		return st, err
	}
	st.Checks++
	if m.Len() != len(live) {
		return st, fmt.Errorf("map holds %d elements, workload tracked %d", m.Len(), len(live))
	}
	st.Live = m.Len()
	st.Retired = m.Retired()
	logger.Debug("exercise worker finished", "seed", seed, "live", st.Live, "retired", st.Retired)
	return st, nil
}

// fillPayload writes a pattern derived from h, so a read can tell whether an
// element still holds its own bytes.
func fillPayload(dst []byte, h slotmap.Handle) {
	var word [8]byte
	binary.LittleEndian.PutUint64(word[:], uint64(h.ID)<<40^h.Generation*0x9E3779B97F4A7C15)
	for i := range dst {
		dst[i] = word[i&7] ^ byte(i)
	}
}
