package pipeline

import (
	"container/heap"
	"fmt"
	"os"

	"github.com/cosnicolaou/fastqflow/pkg/fastq"
	"github.com/cosnicolaou/fastqflow/pkg/iohelpers"
)

// OutputTarget is one file (or stdout) a writer appends FASTQ bytes to:
// one per configured output stream within an output set, or a single
// shared target when emitting interleaved.
type OutputTarget struct {
	Stream fastq.Stream // ignored when Interleaved is true
	path   string
	file   *os.File
	compW  interface {
		Write([]byte) (int, error)
		Close() error
	}
	hasher   *iohelpers.HashingWriter
	buf      []byte
	bufCap   int
	hashSide bool
}

// NewOutputTarget opens path, wraps it with the configured compression
// and (optionally) a hashing sink, per spec.md §4.8/§6.
func NewOutputTarget(stream fastq.Stream, path string, format iohelpers.Format, level, bufCap int, hash bool) (*OutputTarget, error) {
	var f *os.File
	var err error
	if path == "" {
		f = os.Stdout
	} else {
		f, err = os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("creating output %q: %w", path, err)
		}
	}
	compW, err := iohelpers.NewCompressWriter(format, f, level)
	if err != nil {
		return nil, err
	}
	t := &OutputTarget{Stream: stream, path: path, file: f, compW: compW, bufCap: bufCap, hashSide: hash}
	if hash {
		t.hasher = iohelpers.NewHashingWriter(compW)
	}
	t.buf = make([]byte, 0, bufCap+4096)
	return t, nil
}

func (t *OutputTarget) sink() interface{ Write([]byte) (int, error) } {
	if t.hasher != nil {
		return t.hasher
	}
	return t.compW
}

// Append adds rec's four-line form to the target's buffer, flushing when
// the configured output buffer size is exceeded.
func (t *OutputTarget) Append(rec fastq.Record) error {
	t.buf = fastq.AppendRecord(t.buf, rec)
	if len(t.buf) >= t.bufCap {
		return t.flush()
	}
	return nil
}

func (t *OutputTarget) flush() error {
	if len(t.buf) == 0 {
		return nil
	}
	if _, err := t.sink().Write(t.buf); err != nil {
		return err
	}
	t.buf = t.buf[:0]
	return nil
}

// Close flushes remaining buffered bytes, closes the compressor and
// underlying file, and writes a sibling .sha256 hash file if enabled.
func (t *OutputTarget) Close() error {
	if err := t.flush(); err != nil {
		return err
	}
	if err := t.compW.Close(); err != nil {
		return err
	}
	if t.file != os.Stdout {
		if err := t.file.Close(); err != nil {
			return err
		}
	}
	if t.hasher != nil {
		sidecar := t.path + ".sha256"
		return os.WriteFile(sidecar, []byte(t.hasher.SumHex()+"\n"), 0o644)
	}
	return nil
}

// OutputSet is one set of output files: the global set when no
// demultiplex step ran, or one set per demultiplex output tag.
type OutputSet struct {
	Tag         uint16
	HasTag      bool // false for the non-demultiplexed global set
	Interleaved bool
	Targets     map[fastq.Stream]*OutputTarget
	Shared      *OutputTarget // used when Interleaved is true
}

func (s *OutputSet) matches(outputTags []uint16, i int) bool {
	if !s.HasTag {
		return true
	}
	return outputTags[i] == s.Tag
}

// writeBlock appends this block's matching records to every configured
// target in the set.
func (s *OutputSet) writeBlock(b *CombinedBlock) error {
	if s.Interleaved {
		if b.R1 == nil || b.R2 == nil {
			return fmt.Errorf("interleaved output requires both read1 and read2")
		}
		if len(b.R1.Records) != len(b.R2.Records) {
			return fmt.Errorf("invariant violation: interleaved emission requires equal R1/R2 cardinality")
		}
		for i := range b.R1.Records {
			if !s.matches(b.OutputTags, i) {
				continue
			}
			if err := s.Shared.Append(b.R1.Records[i]); err != nil {
				return err
			}
			if err := s.Shared.Append(b.R2.Records[i]); err != nil {
				return err
			}
		}
		return nil
	}
	streamBlocks := map[fastq.Stream]*fastq.Block{
		fastq.Read1: b.R1, fastq.Read2: b.R2, fastq.Index1: b.I1, fastq.Index2: b.I2,
	}
	for stream, target := range s.Targets {
		blk := streamBlocks[stream]
		if blk == nil {
			continue
		}
		for i, rec := range blk.Records {
			if !s.matches(b.OutputTags, i) {
				continue
			}
			if err := target.Append(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every target in the set.
func (s *OutputSet) Close() error {
	if s.Interleaved {
		return s.Shared.Close()
	}
	for _, t := range s.Targets {
		if err := t.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Writer reassembles the final stage's output in strictly ascending
// sequence-number order (the same contiguous-successor policy as a
// serial stage worker, spec.md §4.8) and emits bytes to every output
// set.
type Writer struct {
	Sets       []*OutputSet
	ProgressCh chan<- Progress
}

// Run drains in until closed, writing blocks to every output set in
// order, then closes every set.
func (w *Writer) Run(in <-chan *CombinedBlock) error {
	h := &pendingHeap{}
	heap.Init(h)
	lastForwarded := uint64(0)

	for blk := range in {
		heap.Push(h, blk)
		for h.Len() > 0 && (*h)[0].SeqNo == lastForwarded+1 {
			next := heap.Pop(h).(*CombinedBlock)
			lastForwarded++
			for _, set := range w.Sets {
				if err := set.writeBlock(next); err != nil {
					return err
				}
			}
			if w.ProgressCh != nil {
				w.ProgressCh <- Progress{BlockSeqNo: next.SeqNo, Records: next.Len()}
			}
		}
	}
	for _, set := range w.Sets {
		if err := set.Close(); err != nil {
			return err
		}
	}
	return nil
}
