package pipeline

import (
	"context"
	"fmt"

	"github.com/cosnicolaou/fastqflow/pkg/demux"
	"github.com/cosnicolaou/fastqflow/pkg/fastq"
	"github.com/cosnicolaou/fastqflow/pkg/report"
	"golang.org/x/sync/errgroup"
)

// channelCapacity is the bounded hand-off capacity between pipeline
// stages (spec.md §5: "on the order of 2-50 blocks" to provide
// backpressure).
const channelCapacity = 8

// Config wires together everything pipeline.Run needs: the input
// streams, the step list (already report-expanded), the worker count,
// and the already-opened output sets. Callers (package config / cmd) are
// responsible for performing report-expansion and building OutputSets
// before calling Run; Run opens the input files itself.
type Config struct {
	Shape InputShape

	R1 []FileSpec
	R2 []FileSpec
	I1 []FileSpec
	I2 []FileSpec

	Interleaved bool
	BlockSize   int
	ThreadCount int

	OutputPrefix string
	OutputDir    string

	Steps      []Step
	Sets       []*OutputSet
	ProgressCh chan<- Progress
	Collector  *report.Collector
}

// Run executes the full pipeline: per-stream readers, the combiner, the
// planned stages, and the output writer, joining every goroutine and
// returning the first error encountered (spec.md §7: the main thread
// joins all worker threads and collects panics/errors).
func Run(ctx context.Context, cfg Config) error {
	for _, step := range cfg.Steps {
		if err := step.Validate(cfg.Shape, cfg.Steps); err != nil {
			return fmt.Errorf("configuration error: step %q: %w", step.Name(), err)
		}
	}

	entries := make([]StepEntry, len(cfg.Steps))
	var demuxInfo *demux.Info
	for i, step := range cfg.Steps {
		entries[i] = StepEntry{Step: step, OrigIndex: i, DemuxInfo: demuxInfo}
		newInfo, err := step.Init(cfg.Shape, cfg.OutputPrefix, cfg.OutputDir, demuxInfo)
		if err != nil {
			return fmt.Errorf("step %q: init: %w", step.Name(), err)
		}
		if newInfo != nil {
			if demuxInfo != nil {
				return fmt.Errorf("configuration error: more than one demultiplex step in the program")
			}
			demuxInfo = newInfo
		}
	}

	stages := Plan(entries)
	term := &TerminationFlag{}

	g, gctx := errgroup.WithContext(ctx)

	r1Ch := make(chan *fastq.Block, channelCapacity)
	var r2Ch, i1Ch, i2Ch chan *fastq.Block
	if cfg.Shape.HasRead2 {
		r2Ch = make(chan *fastq.Block, channelCapacity)
	}
	if cfg.Shape.HasIndex1 {
		i1Ch = make(chan *fastq.Block, channelCapacity)
	}
	if cfg.Shape.HasIndex2 {
		i2Ch = make(chan *fastq.Block, channelCapacity)
	}

	readerStopped := make(chan struct{})

	if cfg.Interleaved {
		g.Go(func() error { return ReadInterleaved(cfg.R1, cfg.BlockSize, r1Ch, r2Ch, readerStopped) })
	} else {
		g.Go(func() error { return ReadStream(fastq.Read1, cfg.R1, cfg.BlockSize, r1Ch, readerStopped) })
		if cfg.Shape.HasRead2 {
			g.Go(func() error { return ReadStream(fastq.Read2, cfg.R2, cfg.BlockSize, r2Ch, readerStopped) })
		}
	}
	if cfg.Shape.HasIndex1 {
		g.Go(func() error { return ReadStream(fastq.Index1, cfg.I1, cfg.BlockSize, i1Ch, readerStopped) })
	}
	if cfg.Shape.HasIndex2 {
		g.Go(func() error { return ReadStream(fastq.Index2, cfg.I2, cfg.BlockSize, i2Ch, readerStopped) })
	}

	combinerOut := make(chan *CombinedBlock, channelCapacity)
	combinerOutStopped := make(chan struct{})
	combiner := &Combiner{R1: r1Ch, R2: r2Ch, I1: i1Ch, I2: i2Ch, ReaderStopped: readerStopped}
	g.Go(func() error { return combiner.Run(gctx, combinerOut, combinerOutStopped, term) })

	// chans[i] is the input to stage i (chans[0] == combinerOut);
	// chans[len(stages)] is the writer's input.
	chans := make([]chan *CombinedBlock, len(stages)+1)
	chans[0] = combinerOut
	for i := 1; i <= len(stages); i++ {
		chans[i] = make(chan *CombinedBlock, channelCapacity)
	}
	// stopped[i] is closed by stage i when it will no longer read
	// chans[i]; the producer of chans[i] (the combiner, for i==0, or
	// stage i-1) selects on it as its outStopped.
	stopped := make([]chan struct{}, len(stages))
	for i := range stopped {
		stopped[i] = make(chan struct{})
	}
	if len(stopped) > 0 {
		stopped[0] = combinerOutStopped
	}
	neverStopped := make(chan struct{}) // never closed: the writer never stops early

	for i, stage := range stages {
		i, stage := i, stage
		in := chans[i]
		out := chans[i+1]
		inStopped := stopped[i]
		var outStopped <-chan struct{} = neverStopped
		if i+1 < len(stages) {
			outStopped = stopped[i+1]
		}

		if stage.NeedsSerial {
			g.Go(func() error {
				return RunSerialStage(stage.Entries, in, inStopped, out, outStopped, term, cfg.OutputPrefix, cfg.OutputDir, cfg.Collector, stage.CanTerminate)
			})
		} else {
			workers := cfg.ThreadCount
			if workers < 1 {
				workers = 1
			}
			perWorker := make([][]StepEntry, workers)
			for w := range perWorker {
				perWorker[w] = cloneEntries(stage.Entries)
			}
			g.Go(func() error {
				return RunParallelStage(workers, perWorker, in, inStopped, out, outStopped, term)
			})
		}
	}

	writer := &Writer{Sets: cfg.Sets, ProgressCh: cfg.ProgressCh}
	g.Go(func() error { return writer.Run(chans[len(stages)]) })

	return g.Wait()
}

// cloneEntries returns an independent copy of entries, with each entry's
// Step replaced by an independent clone (spec.md §5: "a parallel stage
// replicates each step instance per worker by value").
func cloneEntries(entries []StepEntry) []StepEntry {
	out := make([]StepEntry, len(entries))
	for i, e := range entries {
		out[i] = StepEntry{Step: e.Step.Clone(), OrigIndex: e.OrigIndex, DemuxInfo: e.DemuxInfo}
	}
	return out
}
