package pipeline

import (
	"context"
	"fmt"

	"github.com/cosnicolaou/fastqflow/pkg/fastq"
)

// Combiner zips up to four per-stream block channels into combined
// blocks, assigning a 1-based, strictly increasing sequence number to
// each (spec.md §4.2). R2/I1/I2 are nil when that stream is absent from
// this run.
type Combiner struct {
	R1 <-chan *fastq.Block
	R2 <-chan *fastq.Block
	I1 <-chan *fastq.Block
	I2 <-chan *fastq.Block

	// ReaderStopped is closed once Run returns, in both the normal and
	// early-termination case, telling the (possibly still-running)
	// reader goroutines feeding R1/R2/I1/I2 to stop producing rather
	// than block forever on a send nobody will read (see sendOrStop in
	// reader.go).
	ReaderStopped chan struct{}
}

// Run reads from the configured input channels until R1 closes, sending
// one CombinedBlock per tuple to out, then closes out. If R1 yields a
// block but a required optional stream's channel closes first, Run
// returns a fatal error. outStopped, when closed, means the downstream
// stage will no longer read out; Run then stops and sets term, per the
// same cooperative-termination protocol as a stage worker (spec.md
// §4.9).
func (c *Combiner) Run(ctx context.Context, out chan<- *CombinedBlock, outStopped <-chan struct{}, term *TerminationFlag) error {
	defer close(out)
	defer close(c.ReaderStopped)
	seqNo := uint64(1)
	for {
		r1, ok := <-c.R1
		if !ok {
			return nil
		}
		cb := &CombinedBlock{SeqNo: seqNo, R1: r1, Terminal: r1.Terminal}
		seqNo++

		if c.R2 != nil {
			r2, ok := <-c.R2
			if !ok {
				return fmt.Errorf("combiner: read1 produced block %d but read2 stream closed", cb.SeqNo)
			}
			cb.R2 = r2
		}
		if c.I1 != nil {
			i1, ok := <-c.I1
			if !ok {
				return fmt.Errorf("combiner: read1 produced block %d but index1 stream closed", cb.SeqNo)
			}
			cb.I1 = i1
		}
		if c.I2 != nil {
			i2, ok := <-c.I2
			if !ok {
				return fmt.Errorf("combiner: read1 produced block %d but index2 stream closed", cb.SeqNo)
			}
			cb.I2 = i2
		}
		if err := cb.CheckAlignment(); err != nil {
			return err
		}

		select {
		case out <- cb:
		case <-ctx.Done():
			term.Set()
			return nil
		case <-outStopped:
			term.Set()
			return nil
		}
	}
}
