package pipeline

import (
	"testing"

	"github.com/cosnicolaou/fastqflow/pkg/fastq"
)

func recordsN(n int) []fastq.Record {
	out := make([]fastq.Record, n)
	for i := range out {
		out[i] = fastq.Record{Name: []byte("r"), Seq: []byte("ACGT"), Qual: []byte("IIII")}
	}
	return out
}

func TestCombinedBlockLen(t *testing.T) {
	b := &CombinedBlock{R1: &fastq.Block{Records: recordsN(3)}}
	if got := b.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	if got := (&CombinedBlock{}).Len(); got != 0 {
		t.Fatalf("Len() with no R1 = %d, want 0", got)
	}
}

func TestCheckAlignmentAcceptsAlignedBlock(t *testing.T) {
	b := &CombinedBlock{
		R1: &fastq.Block{Records: recordsN(2)},
		R2: &fastq.Block{Records: recordsN(2)},
	}
	if err := b.CheckAlignment(); err != nil {
		t.Fatalf("CheckAlignment: %v", err)
	}
}

func TestCheckAlignmentRejectsMismatch(t *testing.T) {
	b := &CombinedBlock{
		R1: &fastq.Block{Records: recordsN(2)},
		R2: &fastq.Block{Records: recordsN(3)},
	}
	if err := b.CheckAlignment(); err == nil {
		t.Fatal("expected an alignment error between read1 and read2")
	}
}

func TestFilterMaskShrinksEveryPresentStream(t *testing.T) {
	b := &CombinedBlock{
		R1:         &fastq.Block{Records: recordsN(3)},
		R2:         &fastq.Block{Records: recordsN(3)},
		OutputTags: []uint16{0, 1, 2},
	}
	b.FilterMask([]bool{true, false, true})
	if len(b.R1.Records) != 2 || len(b.R2.Records) != 2 {
		t.Fatalf("FilterMask left R1=%d R2=%d records, want 2/2", len(b.R1.Records), len(b.R2.Records))
	}
	if len(b.OutputTags) != 2 || b.OutputTags[0] != 0 || b.OutputTags[1] != 2 {
		t.Fatalf("FilterMask on OutputTags = %v, want [0 2]", b.OutputTags)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := &CombinedBlock{R1: &fastq.Block{Records: recordsN(2)}, OutputTags: []uint16{1, 2}}
	c := b.Clone()
	c.R1.Records[0].Name = []byte("changed")
	c.OutputTags[0] = 99
	if string(b.R1.Records[0].Name) != "r" {
		t.Fatal("Clone shares the R1 record backing array with the original")
	}
	if b.OutputTags[0] != 1 {
		t.Fatal("Clone shares the OutputTags backing array with the original")
	}
}

func TestInputShapeHas(t *testing.T) {
	shape := InputShape{HasRead2: true, HasIndex1: false, HasIndex2: true}
	cases := []struct {
		stream fastq.Stream
		want   bool
	}{
		{fastq.Read1, true},
		{fastq.Read2, true},
		{fastq.Index1, false},
		{fastq.Index2, true},
	}
	for _, tc := range cases {
		if got := shape.Has(tc.stream); got != tc.want {
			t.Errorf("Has(%v) = %v, want %v", tc.stream, got, tc.want)
		}
	}
}
