package pipeline

import (
	"context"
	"testing"

	"github.com/cosnicolaou/fastqflow/pkg/fastq"
)

func TestCombinerAssignsIncreasingSeqNumbers(t *testing.T) {
	r1 := make(chan *fastq.Block, 2)
	r1 <- &fastq.Block{Records: recordsN(2)}
	r1 <- &fastq.Block{Records: recordsN(2), Terminal: true}
	close(r1)

	c := &Combiner{R1: r1, ReaderStopped: make(chan struct{})}
	out := make(chan *CombinedBlock, 2)
	outStopped := make(chan struct{})
	if err := c.Run(context.Background(), out, outStopped, &TerminationFlag{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var got []*CombinedBlock
	for cb := range out {
		got = append(got, cb)
	}
	if len(got) != 2 {
		t.Fatalf("got %d combined blocks, want 2", len(got))
	}
	if got[0].SeqNo != 1 || got[1].SeqNo != 2 {
		t.Fatalf("SeqNo = %d, %d, want 1, 2", got[0].SeqNo, got[1].SeqNo)
	}
	if got[0].Terminal || !got[1].Terminal {
		t.Fatalf("Terminal flags = %v, %v, want false, true", got[0].Terminal, got[1].Terminal)
	}
	select {
	case <-c.ReaderStopped:
	default:
		t.Fatal("Run must close ReaderStopped before returning")
	}
}

func TestCombinerZipsAllConfiguredStreams(t *testing.T) {
	r1 := make(chan *fastq.Block, 1)
	r2 := make(chan *fastq.Block, 1)
	i1 := make(chan *fastq.Block, 1)
	r1 <- &fastq.Block{Records: recordsN(2), Terminal: true}
	r2 <- &fastq.Block{Records: recordsN(2), Terminal: true}
	i1 <- &fastq.Block{Records: recordsN(2), Terminal: true}
	close(r1)
	close(r2)
	close(i1)

	c := &Combiner{R1: r1, R2: r2, I1: i1, ReaderStopped: make(chan struct{})}
	out := make(chan *CombinedBlock, 1)
	if err := c.Run(context.Background(), out, make(chan struct{}), &TerminationFlag{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	cb := <-out
	if cb.R1 == nil || cb.R2 == nil || cb.I1 == nil || cb.I2 != nil {
		t.Fatalf("CombinedBlock = %+v, want R1/R2/I1 set and I2 nil", cb)
	}
}

func TestCombinerFailsWhenOptionalStreamClosesEarly(t *testing.T) {
	r1 := make(chan *fastq.Block, 1)
	r2 := make(chan *fastq.Block)
	r1 <- &fastq.Block{Records: recordsN(1), Terminal: true}
	close(r1)
	close(r2)

	c := &Combiner{R1: r1, R2: r2, ReaderStopped: make(chan struct{})}
	out := make(chan *CombinedBlock, 1)
	err := c.Run(context.Background(), out, make(chan struct{}), &TerminationFlag{})
	if err == nil {
		t.Fatal("expected an error when read2 closes before read1 is exhausted")
	}
}

func TestCombinerFailsOnMisalignedBlocks(t *testing.T) {
	r1 := make(chan *fastq.Block, 1)
	r2 := make(chan *fastq.Block, 1)
	r1 <- &fastq.Block{Records: recordsN(2), Terminal: true}
	r2 <- &fastq.Block{Records: recordsN(3), Terminal: true}
	close(r1)
	close(r2)

	c := &Combiner{R1: r1, R2: r2, ReaderStopped: make(chan struct{})}
	out := make(chan *CombinedBlock, 1)
	err := c.Run(context.Background(), out, make(chan struct{}), &TerminationFlag{})
	if err == nil {
		t.Fatal("expected an alignment error for mismatched record counts")
	}
}

func TestCombinerStopsAndSetsTerminationWhenOutStoppedCloses(t *testing.T) {
	r1 := make(chan *fastq.Block, 1)
	r1 <- &fastq.Block{Records: recordsN(1)}
	// Intentionally leave r1 open and unclosed beyond this first block: the
	// downstream stage closing outStopped must make Run return before
	// ever consuming a second block.

	outStopped := make(chan struct{})
	close(outStopped)
	c := &Combiner{R1: r1, ReaderStopped: make(chan struct{})}
	out := make(chan *CombinedBlock) // unbuffered and never read, forcing the select
	term := &TerminationFlag{}
	if err := c.Run(context.Background(), out, outStopped, term); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !term.IsSet() {
		t.Fatal("Run must set the termination flag when outStopped fires")
	}
}
