package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ppusim/internal/bus"
	"ppusim/internal/memory"
	"ppusim/internal/ppu"
	"ppusim/internal/ppusim"
)

var (
	stressWorkers   int
	stressCycles    int
	stressDots      int
	stressAllocator string
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Construct and release cores from many goroutines",
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := newBaseAllocator(stressAllocator)
		if err != nil {
			return err
		}
		start := time.Now()
		alloc, err := stress(cmd.Context(), base, stressWorkers, stressCycles, stressDots)
		logrus.WithFields(logrus.Fields{
			"allocator": stressAllocator,
			"workers":   stressWorkers,
			"cycles":    stressCycles,
			"allocated": alloc.Allocated(),
			"freed":     alloc.Freed(),
			"elapsed":   time.Since(start).Round(time.Millisecond),
		}).Info("stress finished")
		return err
	},
}

// stress runs workers goroutines, each constructing and releasing cycles
// cores and stepping each one dots pixel clocks in between. It fails when
// any construction fails or the allocation counts disagree at the end.
func stress(ctx context.Context, base ppusim.Allocator, workers, cycles, dots int) (*ppusim.CountingAllocator, error) {
	alloc := ppusim.NewCountingAllocator(base)
	lc := ppusim.New(alloc)
	revisions := ppu.Revisions()

	// only warnings from the per-core buses
	quiet := logrus.New()
	quiet.SetLevel(logrus.WarnLevel)
	log := logrus.NewEntry(quiet)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < cycles; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				rev := revisions[(w+i)%len(revisions)]
				if err := cycle(lc, rev, dots, log); err != nil {
					return fmt.Errorf("worker %d cycle %d (%s): %w", w, i, rev, err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return alloc, err
	}
	if alloc.Allocated() != alloc.Freed() {
		return alloc, fmt.Errorf("leak: %d cores allocated, %d freed", alloc.Allocated(), alloc.Freed())
	}
	return alloc, nil
}

func cycle(lc *ppusim.Lifecycle, rev ppu.Revision, dots int, log *logrus.Entry) error {
	if dots == 0 {
		return lc.With(rev, false, true, func(*ppu.Core) error { return nil })
	}
	b, err := bus.New(lc, bus.Options{Revision: rev, VideoGeneration: true}, memory.NewVRAM(nil, memory.MirrorVertical), log)
	if err != nil {
		return err
	}
	defer b.Close()
	b.Reset()
	b.StepDots(dots)
	return nil
}

func init() {
	stressCmd.Flags().IntVarP(&stressWorkers, "workers", "w", 8, "Concurrent goroutines")
	stressCmd.Flags().IntVarP(&stressCycles, "cycles", "n", 1000, "Construct/release cycles per goroutine")
	stressCmd.Flags().IntVar(&stressDots, "dots", 0, "Pixel clocks to run on each core before releasing it")
	stressCmd.Flags().StringVar(&stressAllocator, "allocator", "heap", "Base allocator (heap, c)")
}
