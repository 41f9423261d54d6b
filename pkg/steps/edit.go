package steps

import (
	"github.com/cosnicolaou/fastqflow/pkg/demux"
	"github.com/cosnicolaou/fastqflow/pkg/fastq"
	"github.com/cosnicolaou/fastqflow/pkg/pipeline"
	"github.com/cosnicolaou/fastqflow/pkg/tags"
)

// rewriteCutLocations adjusts or drops tag hit locations on target after
// a structural edit (cut/prefix) shifts or shortens its sequence: delta
// maps a hit's (start, length) to its new start, and a hit for which
// delta reports false is removed rather than left dangling (spec.md §4.6
// location coherence). The hit's length is kept.
func rewriteCutLocations(blockTags map[string][]tags.Entry, target tags.Target, delta func(start, length int) (int, bool)) {
	for _, entries := range blockTags {
		tags.RewriteLocations(entries, target, func(h tags.Hit) tags.RewriteOutcome {
			newStart, ok := delta(h.Location.Start, h.Location.Len)
			if !ok {
				return tags.RewriteOutcome{Kind: tags.Remove}
			}
			return tags.RewriteOutcome{Kind: tags.New, Region: tags.HitRegion{Target: target, Start: newStart, Len: h.Location.Len}}
		})
	}
}

// CutStart removes the first N bases (and qualities) from every record of
// Target.
type CutStart struct {
	pipeline.BaseStep
	N      int
	Target tags.Target
}

func NewCutStart(n int, target tags.Target) *CutStart { return &CutStart{N: n, Target: target} }

func (c *CutStart) Name() string        { return "CutStart" }
func (c *CutStart) Clone() pipeline.Step { cp := *c; return &cp }

func (c *CutStart) Validate(shape pipeline.InputShape, _ []pipeline.Step) error {
	return verifyTarget(c.Target, shape)
}

func (c *CutStart) Apply(block *pipeline.CombinedBlock, _ *demux.Info) (bool, error) {
	eachRecord(block, c.Target, func(_ int, rec *fastq.Record) {
		cutStart(rec, c.N)
	})
	if block.Tags != nil {
		rewriteCutLocations(block.Tags, c.Target, func(start, length int) (int, bool) {
			if start+length <= c.N {
				return 0, false
			}
			if start < c.N {
				return 0, true
			}
			return start - c.N, true
		})
	}
	return true, nil
}

func cutStart(rec *fastq.Record, n int) {
	if n >= len(rec.Seq) {
		rec.Seq = rec.Seq[:0]
		rec.Qual = rec.Qual[:0]
		return
	}
	rec.Seq = rec.Seq[n:]
	rec.Qual = rec.Qual[n:]
}

// CutEnd removes the last N bases (and qualities) from every record of
// Target.
type CutEnd struct {
	pipeline.BaseStep
	N      int
	Target tags.Target
}

func NewCutEnd(n int, target tags.Target) *CutEnd { return &CutEnd{N: n, Target: target} }

func (c *CutEnd) Name() string        { return "CutEnd" }
func (c *CutEnd) Clone() pipeline.Step { cp := *c; return &cp }

func (c *CutEnd) Validate(shape pipeline.InputShape, _ []pipeline.Step) error {
	return verifyTarget(c.Target, shape)
}

func (c *CutEnd) Apply(block *pipeline.CombinedBlock, _ *demux.Info) (bool, error) {
	blk := blockFor(block, streamFor(c.Target))
	if blk == nil {
		return true, nil
	}
	newLens := make([]int, len(blk.Records))
	for i := range blk.Records {
		rec := &blk.Records[i]
		keep := len(rec.Seq) - c.N
		if keep < 0 {
			keep = 0
		}
		rec.Seq = rec.Seq[:keep]
		rec.Qual = rec.Qual[:keep]
		newLens[i] = keep
	}
	if block.Tags != nil {
		for _, entries := range block.Tags {
			for i, entry := range entries {
				if i >= len(newLens) || len(entry) == 0 {
					continue
				}
				newLen := newLens[i]
				anyRemoved := false
				for j, h := range entry {
					if h.Location == nil || h.Location.Target != c.Target {
						continue
					}
					if h.Location.Start+h.Location.Len > newLen {
						entry[j] = tags.Hit{Sequence: h.Sequence, Location: nil}
						anyRemoved = true
					}
				}
				if anyRemoved {
					for j := range entry {
						entry[j].Location = nil
					}
				}
				entries[i] = entry
			}
		}
	}
	return true, nil
}

// MaxLen truncates every record of Target to at most N bases, dropping
// any tag hit location that falls (even partially) past the new end.
type MaxLen struct {
	pipeline.BaseStep
	N      int
	Target tags.Target
}

func NewMaxLen(n int, target tags.Target) *MaxLen { return &MaxLen{N: n, Target: target} }

func (m *MaxLen) Name() string        { return "MaxLen" }
func (m *MaxLen) Clone() pipeline.Step { cp := *m; return &cp }

func (m *MaxLen) Validate(shape pipeline.InputShape, _ []pipeline.Step) error {
	return verifyTarget(m.Target, shape)
}

func (m *MaxLen) Apply(block *pipeline.CombinedBlock, _ *demux.Info) (bool, error) {
	blk := blockFor(block, streamFor(m.Target))
	if blk == nil {
		return true, nil
	}
	for i := range blk.Records {
		rec := &blk.Records[i]
		if len(rec.Seq) > m.N {
			rec.Seq = rec.Seq[:m.N]
			rec.Qual = rec.Qual[:m.N]
		}
	}
	if block.Tags != nil {
		rewriteCutLocations(block.Tags, m.Target, func(start, length int) (int, bool) {
			if start+length > m.N {
				return 0, false
			}
			return start, true
		})
	}
	return true, nil
}

// Prefix prepends a fixed sequence and quality string to every record of
// Target, shifting any existing tag hit location on that stream by the
// inserted length.
type Prefix struct {
	pipeline.BaseStep
	Target tags.Target
	Seq    []byte
	Qual   []byte
}

func NewPrefix(target tags.Target, seq, qual []byte) *Prefix {
	return &Prefix{Target: target, Seq: seq, Qual: qual}
}

func (p *Prefix) Name() string        { return "Prefix" }
func (p *Prefix) Clone() pipeline.Step { cp := *p; return &cp }

func (p *Prefix) Validate(shape pipeline.InputShape, _ []pipeline.Step) error {
	if err := verifyTarget(p.Target, shape); err != nil {
		return err
	}
	if len(p.Seq) != len(p.Qual) {
		return errMismatch
	}
	return nil
}

func (p *Prefix) Apply(block *pipeline.CombinedBlock, _ *demux.Info) (bool, error) {
	eachRecord(block, p.Target, func(_ int, rec *fastq.Record) {
		rec.Seq = append(append([]byte(nil), p.Seq...), rec.Seq...)
		rec.Qual = append(append([]byte(nil), p.Qual...), rec.Qual...)
	})
	if block.Tags != nil {
		delta := len(p.Seq)
		rewriteCutLocations(block.Tags, p.Target, func(start, length int) (int, bool) {
			return start + delta, true
		})
	}
	return true, nil
}

// SwapR1R2 exchanges the read1 and read2 sub-blocks (and any tag hit
// locations that refer to them), for protocols where the biological
// read1/read2 assignment needs correcting after the fact.
type SwapR1R2 struct {
	pipeline.BaseStep
}

func NewSwapR1R2() *SwapR1R2 { return &SwapR1R2{} }

func (s *SwapR1R2) Name() string        { return "SwapR1R2" }
func (s *SwapR1R2) Clone() pipeline.Step { cp := *s; return &cp }

func (s *SwapR1R2) Validate(shape pipeline.InputShape, _ []pipeline.Step) error {
	if !shape.HasRead2 {
		return errNoRead2
	}
	return nil
}

func (s *SwapR1R2) Apply(block *pipeline.CombinedBlock, _ *demux.Info) (bool, error) {
	block.R1, block.R2 = block.R2, block.R1
	for _, entries := range block.Tags {
		for i, entry := range entries {
			for j, h := range entry {
				if h.Location == nil {
					continue
				}
				switch h.Location.Target {
				case tags.TargetR1:
					h.Location.Target = tags.TargetR2
				case tags.TargetR2:
					h.Location.Target = tags.TargetR1
				}
				entry[j] = h
			}
			entries[i] = entry
		}
	}
	return true, nil
}
