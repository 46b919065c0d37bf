package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/born-ml/labkit/internal/config"
	"github.com/born-ml/labkit/internal/logging"
	"github.com/born-ml/labkit/internal/parallel"
	"github.com/born-ml/labkit/internal/tensor"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// summary describes a segmentation result.
type summary struct {
	Cells      int
	Failed     int
	Foreground int
	MeanInside float64
}

func runSegment(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("segment", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	size := fs.String("size", "512,512", "image extent, comma separated")
	cell := fs.String("cell", "", "cell size, comma separated (overrides config)")
	workers := fs.Int("workers", 0, "worker count (overrides config)")
	threshold := fs.Int("threshold", -1, "foreground threshold 0-255 (overrides config)")
	progress := fs.Bool("progress", false, "print progress to stdout")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *cell != "" {
		cs, err := parseInts(*cell)
		if err != nil {
			return fmt.Errorf("-cell: %w", err)
		}
		cfg.CellSize = cs
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	if *threshold >= 0 {
		if *threshold > 255 {
			return fmt.Errorf("-threshold %d out of range", *threshold)
		}
		cfg.Threshold = uint8(*threshold)
	}
	if *progress {
		cfg.ShowProgress = true
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}

	extent, err := parseInts(*size)
	if err != nil {
		return fmt.Errorf("-size: %w", err)
	}
	img, err := syntheticImage(tensor.Shape(extent), cfg.Workers)
	if err != nil {
		return err
	}

	var sink parallel.ProgressSink
	if cfg.ShowProgress {
		sink = parallel.WriterSink(stdout)
	}
	sum, err := segment(ctx, img, cfg, sink, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "cells=%d failed=%d foreground=%d mean_inside=%.2f\n",
		sum.Cells, sum.Failed, sum.Foreground, sum.MeanInside)
	return nil
}

// segment thresholds img into a foreground mask, one task per cell.
func segment(ctx context.Context, img *tensor.Array[uint8], cfg *config.Config, sink parallel.ProgressSink, logger logrus.FieldLogger) (*summary, error) {
	mask, err := tensor.New[uint8](img.Shape())
	if err != nil {
		return nil, err
	}

	tasks, err := parallel.Chunk(mask, cfg.CellSize, func(view *tensor.Array[uint8]) error {
		src, err := img.View(view.Bounds())
		if err != nil {
			return err
		}
		view.Apply(func(coords []int, _ uint8) uint8 {
			if src.At(coords...) >= cfg.Threshold {
				return 1
			}
			return 0
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if sink != nil {
		tasks = parallel.WithProgress(tasks, sink)
	}

	logger.WithFields(logrus.Fields{
		"extent":  img.Shape(),
		"cells":   len(tasks),
		"workers": cfg.Workers,
	}).Debug("segmenting")

	pool := parallel.NewWorkerPool(cfg.Workers)
	report := parallel.Execute(ctx, pool, tasks, parallel.WithLogger(logger))
	pool.Close()
	if report.Interrupted {
		return nil, report.Err()
	}

	sum := &summary{Cells: report.Total, Failed: len(report.Failed())}
	if err := summarize(ctx, img, mask, sum); err != nil {
		return nil, err
	}
	return sum, nil
}

// summarize counts foreground elements and their mean intensity concurrently.
func summarize(ctx context.Context, img, mask *tensor.Array[uint8], sum *summary) error {
	g, _ := errgroup.WithContext(ctx)

	var foreground int
	g.Go(func() error {
		mask.Each(func(_ []int, v uint8) {
			foreground += int(v)
		})
		return nil
	})

	var inside, total int
	g.Go(func() error {
		img.Each(func(coords []int, v uint8) {
			if mask.At(coords...) == 1 {
				inside++
				total += int(v)
			}
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	sum.Foreground = foreground
	if inside > 0 {
		sum.MeanInside = float64(total) / float64(inside)
	}
	return nil
}

// syntheticImage builds a diagonal gradient with a bright square in the
// middle, generating the rows of the first dimension in parallel.
func syntheticImage(extent tensor.Shape, workers int) (*tensor.Array[uint8], error) {
	img, err := tensor.New[uint8](extent)
	if err != nil {
		return nil, err
	}
	if len(extent) == 0 || extent.IsEmpty() {
		return img, nil
	}

	span := 0
	for _, e := range extent {
		span += e - 1
	}
	span = max(span, 1)

	cfg := parallel.Config{Enabled: workers > 1, NumWorkers: workers, MinChunkSize: 1}
	parallel.For(extent[0], func(i int) {
		lo := make([]int, len(extent))
		hi := make([]int, len(extent))
		lo[0], hi[0] = i, i
		for d := 1; d < len(extent); d++ {
			hi[d] = extent[d] - 1
		}
		row, err := img.View(tensor.Interval{Min: lo, Max: hi})
		if err != nil {
			panic(err) // Row bounds are derived from the extent.
		}
		origin := row.Origin()
		row.Apply(func(coords []int, _ uint8) uint8 {
			pos := 0
			central := true
			for d, c := range coords {
				abs := c + origin[d]
				pos += abs
				if abs < extent[d]/4 || abs >= extent[d]*3/4 {
					central = false
				}
			}
			if central {
				return 255
			}
			return uint8(pos * 200 / span)
		})
	}, cfg)
	return img, nil
}

func parseInts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
