package report

import (
	"strings"
	"testing"
)

func TestAssembleMergesFragmentsByNumber(t *testing.T) {
	c := NewCollector()
	c.Add(Fragment{Number: 0, Label: "duplicates", Data: map[string]any{"seen": 10.0}})
	c.Add(Fragment{Number: 0, Label: "duplicates", Data: map[string]any{"dropped": 3.0}})
	c.Add(Fragment{Number: 1, Label: "counts", Data: map[string]any{"total": 7.0}})

	assembled := c.Assemble("run-1")
	if assembled.RunID != "run-1" {
		t.Fatalf("RunID = %q, want run-1", assembled.RunID)
	}
	dup, ok := assembled.Reports["duplicates"].(map[string]any)
	if !ok {
		t.Fatalf("missing duplicates report: %+v", assembled.Reports)
	}
	if dup["seen"] != 10.0 || dup["dropped"] != 3.0 {
		t.Fatalf("duplicates report = %+v, want seen=10 dropped=3", dup)
	}
	counts, ok := assembled.Reports["counts"].(map[string]any)
	if !ok || counts["total"] != 7.0 {
		t.Fatalf("counts report = %+v, want total=7", assembled.Reports["counts"])
	}
}

func TestAssembleLabelsUnlabeledReportsByNumber(t *testing.T) {
	c := NewCollector()
	c.Add(Fragment{Number: 2, Data: map[string]any{"x": 1.0}})
	assembled := c.Assemble("run-2")
	if _, ok := assembled.Reports["report_2"]; !ok {
		t.Fatalf("expected a synthesized \"report_2\" label, got %+v", assembled.Reports)
	}
}

func TestMergeIntoRecursesOnNestedMaps(t *testing.T) {
	dst := map[string]any{
		"positions": map[string]any{"0": map[string]any{"A": 1.0}},
	}
	src := map[string]any{
		"positions": map[string]any{"0": map[string]any{"C": 2.0}, "1": map[string]any{"A": 3.0}},
	}
	mergeInto(dst, src)
	pos, _ := dst["positions"].(map[string]any)
	p0, _ := pos["0"].(map[string]any)
	if p0["A"] != 1.0 || p0["C"] != 2.0 {
		t.Fatalf("position 0 merge = %+v, want A=1 C=2", p0)
	}
	if _, ok := pos["1"]; !ok {
		t.Fatalf("position 1 from src missing entirely: %+v", pos)
	}
}

func TestAssembledMarshalJSONIsIndented(t *testing.T) {
	c := NewCollector()
	c.Add(Fragment{Number: 0, Label: "counts", Data: map[string]any{"total": 1.0}})
	assembled := c.Assemble("run-3")
	got, err := assembled.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if !strings.Contains(string(got), "run-3") || !strings.Contains(string(got), "\n  ") {
		t.Fatalf("MarshalJSON output not indented or missing run id: %s", got)
	}
}

func TestRenderHTMLEmbedsJSONPayload(t *testing.T) {
	c := NewCollector()
	c.Add(Fragment{Number: 0, Label: "counts", Data: map[string]any{"total": 1.0}})
	assembled := c.Assemble("run-4")
	got, err := RenderHTML(assembled)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if !strings.Contains(string(got), "run-4") || !strings.Contains(string(got), "<pre") {
		t.Fatalf("RenderHTML output missing run id or <pre> payload: %s", got)
	}
}

func TestCollectorAddIsSafeForConcurrentFinalizeCalls(t *testing.T) {
	c := NewCollector()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			c.Add(Fragment{Number: n, Data: map[string]any{"n": n}})
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assembled := c.Assemble("run-5")
	if len(assembled.Reports) != 8 {
		t.Fatalf("got %d reports, want 8", len(assembled.Reports))
	}
}
