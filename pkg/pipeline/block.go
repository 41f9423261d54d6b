// Package pipeline implements the CORE of fastqflow: the block-oriented
// streaming model, the combiner, the stage planner, the ordered
// concurrent stage workers, the step-trait contract, and the output
// writer's reorder/emit/report-assembly. It is the direct generalization
// of the teacher package's worker-pool + heap-reassembly decompressor
// (see DESIGN.md) onto a four-stream, step-programmable domain.
package pipeline

import (
	"fmt"

	"github.com/cosnicolaou/fastqflow/pkg/fastq"
	"github.com/cosnicolaou/fastqflow/pkg/tags"
)

// InputShape records which of the four streams are present for this
// run, queried by steps during Validate/Init.
type InputShape struct {
	HasRead2  bool
	HasIndex1 bool
	HasIndex2 bool
}

// Has reports whether the given stream is present in this run.
func (s InputShape) Has(stream fastq.Stream) bool {
	switch stream {
	case fastq.Read1:
		return true
	case fastq.Read2:
		return s.HasRead2
	case fastq.Index1:
		return s.HasIndex1
	case fastq.Index2:
		return s.HasIndex2
	default:
		return false
	}
}

// CombinedBlock is the unit of work moving through the stages: up to
// four index-aligned sub-blocks, an optional tag store, and an optional
// per-record routing key assigned by the demultiplex step.
type CombinedBlock struct {
	SeqNo uint64

	R1 *fastq.Block
	R2 *fastq.Block
	I1 *fastq.Block
	I2 *fastq.Block

	Tags       tags.Store
	OutputTags []uint16 // nil until a demultiplex step has run
	Terminal   bool
}

// Len returns the record count of this combined block, as determined by
// R1 (present in every combined block).
func (b *CombinedBlock) Len() int {
	if b.R1 == nil {
		return 0
	}
	return len(b.R1.Records)
}

// CheckAlignment asserts the cross-stream length invariant (spec.md §8):
// every present sub-block has the same record count as R1.
func (b *CombinedBlock) CheckAlignment() error {
	n := b.Len()
	for name, blk := range map[string]*fastq.Block{"read2": b.R2, "index1": b.I1, "index2": b.I2} {
		if blk == nil {
			continue
		}
		if len(blk.Records) != n {
			return fmt.Errorf("invariant violation: %s block has %d records, read1 has %d", name, len(blk.Records), n)
		}
	}
	if b.Tags != nil {
		b.Tags.EnsureLen(n)
	}
	if b.OutputTags != nil && len(b.OutputTags) != n {
		return fmt.Errorf("invariant violation: output_tags has %d entries, read1 has %d", len(b.OutputTags), n)
	}
	return nil
}

// FilterMask applies keep (len == b.Len()) to every present sub-block,
// the tag store, and OutputTags in lockstep, per spec.md §4.6/§9's
// "centralize mutation through helpers" guidance: this is the single
// place any step shrinks a combined block, so the cross-stream alignment
// and tag-length invariants can never be violated piecemeal.
func (b *CombinedBlock) FilterMask(keep []bool) {
	filterBlock := func(blk *fastq.Block) *fastq.Block {
		if blk == nil {
			return nil
		}
		out := blk.Records[:0]
		for i, k := range keep {
			if k {
				out = append(out, blk.Records[i])
			}
		}
		blk.Records = out
		return blk
	}
	b.R1 = filterBlock(b.R1)
	b.R2 = filterBlock(b.R2)
	b.I1 = filterBlock(b.I1)
	b.I2 = filterBlock(b.I2)
	if b.Tags != nil {
		b.Tags.FilterMask(keep)
	}
	if b.OutputTags != nil {
		out := b.OutputTags[:0]
		for i, k := range keep {
			if k {
				out = append(out, b.OutputTags[i])
			}
		}
		b.OutputTags = out
	}
}

// Clone returns a shallow-ish copy of the block suitable for independent
// mutation by a parallel worker's step chain (each worker owns its own
// copy of the stage's steps by value; blocks themselves are not shared
// across workers once handed off, so no stage or step of the pipeline
// calls it; it is for callers that need to branch a block).
func (b *CombinedBlock) Clone() *CombinedBlock {
	cp := &CombinedBlock{SeqNo: b.SeqNo, Terminal: b.Terminal}
	cloneBlock := func(blk *fastq.Block) *fastq.Block {
		if blk == nil {
			return nil
		}
		recs := make([]fastq.Record, len(blk.Records))
		copy(recs, blk.Records)
		return &fastq.Block{Records: recs, Terminal: blk.Terminal}
	}
	cp.R1 = cloneBlock(b.R1)
	cp.R2 = cloneBlock(b.R2)
	cp.I1 = cloneBlock(b.I1)
	cp.I2 = cloneBlock(b.I2)
	cp.Tags = b.Tags.Clone()
	if b.OutputTags != nil {
		cp.OutputTags = append([]uint16(nil), b.OutputTags...)
	}
	return cp
}
