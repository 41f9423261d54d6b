package config

import (
	"github.com/cosnicolaou/fastqflow/pkg/demux"
	"github.com/cosnicolaou/fastqflow/pkg/fastq"
	"github.com/cosnicolaou/fastqflow/pkg/iohelpers"
	"github.com/cosnicolaou/fastqflow/pkg/pipeline"
	"github.com/cosnicolaou/fastqflow/pkg/report"
	"github.com/cosnicolaou/fastqflow/pkg/steps"
)

// Run is an assembled, ready-to-execute pipeline run: the pipeline.Config
// plus the collector the caller (cmd/fastqflow) hands off to report
// assembly, together with its own run id, once pipeline.Run returns.
type Run struct {
	Pipeline  pipeline.Config
	Collector *report.Collector
}

// BuildRun validates c, constructs every configured step, opens the
// configured output targets, and wires a pipeline.Config ready for
// pipeline.Run. The caller owns closing nothing further: pipeline.Run's
// Writer closes every OutputTarget itself.
func BuildRun(c *Config, progressCh chan<- pipeline.Progress) (*Run, error) {
	if err := c.Check(); err != nil {
		return nil, err
	}

	inputFormat, err := iohelpers.ParseFormat(c.Input.Format)
	if err != nil {
		return nil, err
	}

	builtSteps, err := c.BuildSteps()
	if err != nil {
		return nil, err
	}

	collector := report.NewCollector()

	sets, err := buildOutputSets(c, builtSteps)
	if err != nil {
		return nil, err
	}

	run := &Run{
		Pipeline: pipeline.Config{
			Shape:        c.Shape(),
			R1:           fileSpecs(c.Input.Read1, inputFormat),
			R2:           fileSpecs(c.Input.Read2, inputFormat),
			I1:           fileSpecs(c.Input.Index1, inputFormat),
			I2:           fileSpecs(c.Input.Index2, inputFormat),
			Interleaved:  c.Input.Interleaved,
			BlockSize:    c.Options.BlockSize,
			ThreadCount:  c.Options.ThreadCount,
			OutputPrefix: outputPrefix(c.Output),
			OutputDir:    outputDir(c.Output),
			Steps:        builtSteps,
			Sets:         sets,
			ProgressCh:   progressCh,
			Collector:    collector,
		},
		Collector: collector,
	}
	return run, nil
}

func outputPrefix(o *Output) string {
	if o == nil {
		return ""
	}
	return o.Prefix
}

func outputDir(o *Output) string {
	if o == nil {
		return ""
	}
	return o.Directory
}

// demultiplexTags returns the tag table a configured Demultiplex step
// will produce, or nil if none is configured (the single-output-set
// case).
func demultiplexTags(built []pipeline.Step) *demux.Info {
	for _, s := range built {
		dm, ok := s.(*steps.Demultiplex)
		if !ok {
			continue
		}
		specs := make([]demux.BarcodeSpec, len(dm.Barcodes))
		for i, b := range dm.Barcodes {
			specs[i] = demux.BarcodeSpec{Key: []byte(b.Sequence), Name: b.Name}
		}
		info, err := demux.NewInfo(specs, dm.OutputUnmatched, dm.MaxHammingDistance)
		if err != nil {
			return nil
		}
		return info
	}
	return nil
}

// buildOutputSets opens one OutputSet per demultiplex tag (or a single
// global set when no demultiplex step is configured), per spec.md §6.2
// and §4.8.
func buildOutputSets(c *Config, built []pipeline.Step) ([]*pipeline.OutputSet, error) {
	if c.Output == nil {
		return nil, nil
	}
	format, err := iohelpers.ParseFormat(c.Output.Format)
	if err != nil {
		return nil, err
	}
	bufCap := c.Output.BufferSize
	if bufCap == 0 {
		bufCap = 64 * 1024
	}

	info := demultiplexTags(built)
	var tagList []uint16
	hasTag := info != nil
	if hasTag {
		tagList = info.Tags()
	} else {
		tagList = []uint16{0}
	}

	sets := make([]*pipeline.OutputSet, 0, len(tagList))
	for _, tag := range tagList {
		infix := ""
		if hasTag {
			infix = info.Name(tag)
		}
		set := &pipeline.OutputSet{Tag: tag, HasTag: hasTag, Interleaved: c.Output.Interleave}
		paths := OutputPaths(c.Output, format, infix)
		if c.Output.Interleave {
			path := interleavedOutputPath(c.Output, format, infix)
			target, err := pipeline.NewOutputTarget(fastq.Read1, pathOrStdout(c.Output, path), format, c.Output.CompressionLevel, bufCap, c.Output.OutputHash)
			if err != nil {
				return nil, err
			}
			set.Shared = target
		} else {
			set.Targets = make(map[fastq.Stream]*pipeline.OutputTarget)
			var streams []fastq.Stream
			if c.Output.wantsStream(c.Output.OutputR1, true) {
				streams = append(streams, fastq.Read1)
			}
			if len(c.Input.Read2) > 0 && c.Output.wantsStream(c.Output.OutputR2, true) {
				streams = append(streams, fastq.Read2)
			}
			if len(c.Input.Index1) > 0 && c.Output.wantsStream(c.Output.OutputI1, c.Output.KeepIndex) {
				streams = append(streams, fastq.Index1)
			}
			if len(c.Input.Index2) > 0 && c.Output.wantsStream(c.Output.OutputI2, c.Output.KeepIndex) {
				streams = append(streams, fastq.Index2)
			}
			for _, stream := range streams {
				target, err := pipeline.NewOutputTarget(stream, pathOrStdout(c.Output, paths[stream]), format, c.Output.CompressionLevel, bufCap, c.Output.OutputHash)
				if err != nil {
					return nil, err
				}
				set.Targets[stream] = target
			}
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func pathOrStdout(o *Output, path string) string {
	if o.Stdout {
		return ""
	}
	return path
}
