package config

import (
	"testing"

	"github.com/cosnicolaou/fastqflow/pkg/fastq"
)

func TestBuildRunSingleOutputSetWithoutDemultiplex(t *testing.T) {
	cfg := &Config{
		Input:  Input{Read1: []string{"a_R1.fastq"}},
		Output: &Output{Prefix: "run", Directory: t.TempDir()},
	}
	run, err := BuildRun(cfg, nil)
	if err != nil {
		t.Fatalf("BuildRun: %v", err)
	}
	if len(run.Pipeline.Sets) != 1 {
		t.Fatalf("got %d output sets, want 1 (no demultiplex step configured)", len(run.Pipeline.Sets))
	}
	if run.Pipeline.Sets[0].HasTag {
		t.Fatal("a run without a Demultiplex step should not tag its single output set")
	}
}

func TestBuildRunOneOutputSetPerDemultiplexTag(t *testing.T) {
	cfg := &Config{
		Input:  Input{Read1: []string{"a_R1.fastq"}, Index1: []string{"a_I1.fastq"}},
		Output: &Output{Prefix: "run", Directory: t.TempDir()},
		Steps: []Step{{
			Action:          "Demultiplex",
			Regions:         []Region{{Source: "index1", Start: 0, Length: 4}},
			Barcodes:        []Barcode{{Sequence: "AAAA", Name: "sample1"}, {Sequence: "CCCC", Name: "sample2"}},
			OutputUnmatched: true,
		}},
	}
	run, err := BuildRun(cfg, nil)
	if err != nil {
		t.Fatalf("BuildRun: %v", err)
	}
	// sample1, sample2, unmatched.
	if len(run.Pipeline.Sets) != 3 {
		t.Fatalf("got %d output sets, want 3", len(run.Pipeline.Sets))
	}
	for _, set := range run.Pipeline.Sets {
		if !set.HasTag {
			t.Fatal("every output set should be tagged when a Demultiplex step is configured")
		}
	}
}

func TestBuildRunRejectsInvalidConfig(t *testing.T) {
	cfg := &Config{} // no input.read1
	if _, err := BuildRun(cfg, nil); err == nil {
		t.Fatal("expected BuildRun to reject a config that fails Check")
	}
}

func TestBuildRunOutputR1FalseDisablesRead1OutputOnly(t *testing.T) {
	disabled := false
	cfg := &Config{
		Input:  Input{Read1: []string{"a_R1.fastq"}, Read2: []string{"a_R2.fastq"}},
		Output: &Output{Prefix: "run", Directory: t.TempDir(), OutputR1: &disabled},
	}
	run, err := BuildRun(cfg, nil)
	if err != nil {
		t.Fatalf("BuildRun: %v", err)
	}
	set := run.Pipeline.Sets[0]
	if _, ok := set.Targets[fastq.Read1]; ok {
		t.Fatal("read1 output should be disabled when output.output_r1 = false")
	}
	if _, ok := set.Targets[fastq.Read2]; !ok {
		t.Fatal("read2 output should remain enabled: only output_r1 was disabled")
	}
}

func TestBuildRunOutputI1TrueOverridesKeepIndexFalse(t *testing.T) {
	enabled := true
	cfg := &Config{
		Input:  Input{Read1: []string{"a_R1.fastq"}, Index1: []string{"a_I1.fastq"}},
		Output: &Output{Prefix: "run", Directory: t.TempDir(), OutputI1: &enabled},
	}
	run, err := BuildRun(cfg, nil)
	if err != nil {
		t.Fatalf("BuildRun: %v", err)
	}
	set := run.Pipeline.Sets[0]
	if _, ok := set.Targets[fastq.Index1]; !ok {
		t.Fatal("output_i1 = true should enable index1 output even though keep_index is unset")
	}
}

func TestBuildRunOmitsIndexStreamsUnlessKeepIndex(t *testing.T) {
	cfg := &Config{
		Input:  Input{Read1: []string{"a_R1.fastq"}, Index1: []string{"a_I1.fastq"}},
		Output: &Output{Prefix: "run", Directory: t.TempDir()},
	}
	run, err := BuildRun(cfg, nil)
	if err != nil {
		t.Fatalf("BuildRun: %v", err)
	}
	set := run.Pipeline.Sets[0]
	if _, ok := set.Targets[fastq.Index1]; ok {
		t.Fatal("index1 should not get its own output target unless output.keep_index is set")
	}
	cfg.Output.KeepIndex = true
	run, err = BuildRun(cfg, nil)
	if err != nil {
		t.Fatalf("BuildRun with keep_index: %v", err)
	}
	set = run.Pipeline.Sets[0]
	if _, ok := set.Targets[fastq.Index1]; !ok {
		t.Fatal("index1 should get its own output target once output.keep_index is set")
	}
}
