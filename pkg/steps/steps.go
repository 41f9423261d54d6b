// Package steps implements the Step contract (pipeline.Step) and the
// concrete transformations a configured program may use: trimming and
// editing, filtering, demultiplexing, validation and reporting, grounded
// on original_source/src/transformations*.rs. No step here extracts
// tags; the edit steps rewrite the locations of tags already present.
package steps

import (
	"errors"

	"github.com/cosnicolaou/fastqflow/pkg/fastq"
	"github.com/cosnicolaou/fastqflow/pkg/pipeline"
	"github.com/cosnicolaou/fastqflow/pkg/tags"
)

var (
	errMismatch = errors.New("seq and qual must be the same length")
	errNoRead2  = errors.New("read2 is not defined in the input section, but used by this step")
)

// streamFor maps a tags.Target to the fastq.Stream it names.
func streamFor(t tags.Target) fastq.Stream {
	switch t {
	case tags.TargetR1:
		return fastq.Read1
	case tags.TargetR2:
		return fastq.Read2
	case tags.TargetI1:
		return fastq.Index1
	case tags.TargetI2:
		return fastq.Index2
	default:
		return fastq.Read1
	}
}

// blockFor returns the sub-block of b for the given stream, or nil.
func blockFor(b *pipeline.CombinedBlock, stream fastq.Stream) *fastq.Block {
	switch stream {
	case fastq.Read1:
		return b.R1
	case fastq.Read2:
		return b.R2
	case fastq.Index1:
		return b.I1
	case fastq.Index2:
		return b.I2
	default:
		return nil
	}
}

// verifyTarget rejects a step configured against a stream this run's
// input shape does not provide (grounded on original_source's
// transformations.rs verify_target).
func verifyTarget(target tags.Target, shape pipeline.InputShape) error {
	switch target {
	case tags.TargetR2:
		if !shape.HasRead2 {
			return errors.New("read2 is not defined in the input section, but used by a step")
		}
	case tags.TargetI1:
		if !shape.HasIndex1 {
			return errors.New("index1 is not defined in the input section, but used by a step")
		}
	case tags.TargetI2:
		if !shape.HasIndex2 {
			return errors.New("index2 is not defined in the input section, but used by a step")
		}
	}
	return nil
}

// eachRecord calls fn for every record of the target stream in b. It is
// the generalization of the original's apply_in_place_wrapped helper:
// one place that resolves "which sub-block does this target name" so
// individual steps never switch on Target themselves.
func eachRecord(b *pipeline.CombinedBlock, target tags.Target, fn func(i int, rec *fastq.Record)) {
	blk := blockFor(b, streamFor(target))
	if blk == nil {
		return
	}
	for i := range blk.Records {
		fn(i, &blk.Records[i])
	}
}
