package steps

import (
	"testing"

	"github.com/cosnicolaou/fastqflow/pkg/demux"
	"github.com/cosnicolaou/fastqflow/pkg/fastq"
	"github.com/cosnicolaou/fastqflow/pkg/pipeline"
)

func TestExpandReportsSharesOneNumberPerReport(t *testing.T) {
	steps := []pipeline.Step{
		NewHead(10),
		&Report{Label: "basic", Count: true, LengthDistribution: true},
		&Report{Label: "dup", DuplicateCount: true},
	}
	expanded := ExpandReports(steps)
	// Head, reportCount, reportLengthDistribution, reportDuplicateCount.
	if len(expanded) != 4 {
		t.Fatalf("got %d expanded steps, want 4: %+v", len(expanded), expanded)
	}
	rc, ok := expanded[1].(*reportCount)
	if !ok {
		t.Fatalf("expanded[1] = %T, want *reportCount", expanded[1])
	}
	rl, ok := expanded[2].(*reportLengthDistribution)
	if !ok {
		t.Fatalf("expanded[2] = %T, want *reportLengthDistribution", expanded[2])
	}
	if rc.number != rl.number {
		t.Fatalf("reportCount.number=%d reportLengthDistribution.number=%d, want equal (same Report)", rc.number, rl.number)
	}
	rd, ok := expanded[3].(*reportDuplicateCount)
	if !ok {
		t.Fatalf("expanded[3] = %T, want *reportDuplicateCount", expanded[3])
	}
	if rd.number == rc.number {
		t.Fatal("a different Report config must get a distinct report number")
	}
}

func TestExpandReportsPassesNonReportStepsThrough(t *testing.T) {
	head := NewHead(5)
	expanded := ExpandReports([]pipeline.Step{head})
	if len(expanded) != 1 || expanded[0] != pipeline.Step(head) {
		t.Fatalf("ExpandReports should pass a non-Report step through unchanged: %+v", expanded)
	}
}

func TestReportCountWithoutDemultiplex(t *testing.T) {
	r := &reportCount{number: 0, label: "basic"}
	if _, err := r.Init(pipeline.InputShape{}, "", "", nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	block := namedBlock(5, false)
	if _, err := r.Apply(block, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	frag, err := r.Finalize("", "", nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if frag.Data["molecule_count"] != uint64(5) {
		t.Fatalf("Data = %+v, want molecule_count=5", frag.Data)
	}
}

func TestReportCountByDemultiplexTag(t *testing.T) {
	r := &reportCount{number: 0, label: "basic"}
	if _, err := r.Init(pipeline.InputShape{}, "", "", nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	block := namedBlock(3, false)
	block.OutputTags = []uint16{1, 1, 0}
	if _, err := r.Apply(block, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	info, err := demux.NewInfo([]demux.BarcodeSpec{{Key: []byte("AAAA"), Name: "sample1"}}, true, 0)
	if err != nil {
		t.Fatalf("NewInfo: %v", err)
	}
	frag, err := r.Finalize("", "", info)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	byName, ok := frag.Data["by_barcode"].(map[string]any)
	if !ok {
		t.Fatalf("Data = %+v, want a by_barcode map", frag.Data)
	}
	sample1, ok := byName["sample1"].(map[string]any)
	if !ok || sample1["molecule_count"] != uint64(2) {
		t.Fatalf("by_barcode[sample1] = %+v, want molecule_count=2", byName["sample1"])
	}
}

func TestReportLengthDistributionHistograms(t *testing.T) {
	r := &reportLengthDistribution{number: 0, label: "basic"}
	block := &pipeline.CombinedBlock{R1: &fastq.Block{Records: []fastq.Record{
		{Seq: []byte("ACGT")},
		{Seq: []byte("AC")},
		{Seq: []byte("ACGT")},
	}}}
	if _, err := r.Apply(block, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(r.r1) != 5 || r.r1[4] != 2 || r.r1[2] != 1 {
		t.Fatalf("r1 histogram = %v, want length-4 count 2 and length-2 count 1", r.r1)
	}
}

func TestReportDuplicateCountDoesNotRemoveRecords(t *testing.T) {
	r := &reportDuplicateCount{number: 0, label: "dup"}
	if _, err := r.Init(pipeline.InputShape{}, "", "", nil); err != nil {
		t.Fatalf("Init: %v", err)
	}
	block := namedBlock(3, false)
	block.R1.Records[1].Seq = append([]byte(nil), block.R1.Records[0].Seq...)
	before := len(block.R1.Records)
	if _, err := r.Apply(block, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(block.R1.Records) != before {
		t.Fatalf("reportDuplicateCount must not remove records: got %d, want %d", len(block.R1.Records), before)
	}
	if r.seen != 3 || r.duplicate != 1 {
		t.Fatalf("seen=%d duplicate=%d, want seen=3 duplicate=1", r.seen, r.duplicate)
	}
}

func TestReportBaseStatisticsCountsBasesAndQuality(t *testing.T) {
	r := &reportBaseStatistics{number: 0, label: "basic"}
	block := &pipeline.CombinedBlock{R1: &fastq.Block{Records: []fastq.Record{
		{Seq: []byte("ACGT"), Qual: []byte("!~~~")},
	}}}
	if _, err := r.Apply(block, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	frag, err := r.Finalize("", "", nil)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	stats := frag.Data["base_statistics"].(map[string]any)
	if stats["total_bases"] != uint64(4) {
		t.Fatalf("total_bases = %v, want 4", stats["total_bases"])
	}
	if stats["gc_bases"] != uint64(2) {
		t.Fatalf("gc_bases = %v, want 2 (C and G)", stats["gc_bases"])
	}
	// '!' = 33 (Q0), '~' = 126 (well above Q30); 3 of 4 bases are Q30+.
	if stats["q30_bases"] != uint64(3) {
		t.Fatalf("q30_bases = %v, want 3", stats["q30_bases"])
	}
}
