package steps

import (
	"fmt"

	"github.com/cosnicolaou/fastqflow/pkg/fastq"
	"github.com/cosnicolaou/fastqflow/pkg/pipeline"
)

// namedBlock builds a CombinedBlock of n read1 (and, if withR2, read2)
// records named r0..r<n-1>, for assertions keyed on which names survive
// a filtering step.
func namedBlock(n int, withR2 bool) *pipeline.CombinedBlock {
	r1 := make([]fastq.Record, n)
	for i := range r1 {
		r1[i] = fastq.Record{Name: []byte(indexName(i)), Seq: []byte(fmt.Sprintf("ACGT%d", i)), Qual: []byte("IIII")}
	}
	b := &pipeline.CombinedBlock{R1: &fastq.Block{Records: r1}}
	if withR2 {
		r2 := make([]fastq.Record, n)
		for i := range r2 {
			r2[i] = fastq.Record{Name: []byte(indexName(i)), Seq: []byte(fmt.Sprintf("TTTT%d", i)), Qual: []byte("JJJJ")}
		}
		b.R2 = &fastq.Block{Records: r2}
	}
	return b
}

func indexName(i int) string {
	return fmt.Sprintf("r%d", i)
}

func names(b *pipeline.CombinedBlock) []string {
	out := make([]string, len(b.R1.Records))
	for i, r := range b.R1.Records {
		out[i] = string(r.Name)
	}
	return out
}
