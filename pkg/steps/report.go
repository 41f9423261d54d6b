package steps

import (
	"github.com/cosnicolaou/fastqflow/pkg/demux"
	"github.com/cosnicolaou/fastqflow/pkg/pipeline"
	"github.com/cosnicolaou/fastqflow/pkg/report"
	"github.com/cosnicolaou/fastqflow/pkg/tags"
)

// Report is the user-facing configuration for one named report: which
// sub-statistics it contributes. It is never run directly — ExpandReports
// replaces each Report with its enabled internal sub-steps before the
// stage planner ever sees it (grounded on original_source's Report,
// whose own apply/init panic with "should be expanded into individual
// parts before").
type Report struct {
	pipeline.BaseStep
	Label              string
	Count              bool
	BaseStatistics     bool
	LengthDistribution bool
	DuplicateCount     bool
}

func (r *Report) Name() string        { return "Report" }
func (r *Report) Clone() pipeline.Step { cp := *r; return &cp }

func (r *Report) Apply(*pipeline.CombinedBlock, *demux.Info) (bool, error) {
	panic("Report must be expanded via ExpandReports before the pipeline runs")
}

// ExpandReports replaces every *Report in steps with its configured
// sub-steps, all sharing that Report's position as their report number
// so the collector's dictionary-union groups them back together under
// one label (spec.md §4.3). Non-Report steps pass through unchanged.
func ExpandReports(steps []pipeline.Step) []pipeline.Step {
	out := make([]pipeline.Step, 0, len(steps))
	number := 0
	for _, s := range steps {
		r, ok := s.(*Report)
		if !ok {
			out = append(out, s)
			continue
		}
		n := number
		number++
		if r.Count {
			out = append(out, &reportCount{number: n, label: r.Label})
		}
		if r.LengthDistribution {
			out = append(out, &reportLengthDistribution{number: n, label: r.Label})
		}
		if r.DuplicateCount {
			out = append(out, &reportDuplicateCount{number: n, label: r.Label})
		}
		if r.BaseStatistics {
			out = append(out, &reportBaseStatistics{number: n, label: r.Label})
		}
	}
	return out
}

// reportCount counts molecules seen, broken down by demultiplex output
// tag when a demultiplex step precedes it.
type reportCount struct {
	pipeline.BaseStep
	number int
	label  string

	byTag map[uint16]uint64
}

func (r *reportCount) Name() string            { return "ReportCount" }
func (r *reportCount) Clone() pipeline.Step     { cp := *r; cp.byTag = nil; return &cp }
func (r *reportCount) NeedsSerial() bool        { return true }
func (r *reportCount) MustRunToCompletion() bool { return true }
func (r *reportCount) NewStage() bool           { return true }

func (r *reportCount) Init(pipeline.InputShape, string, string, *demux.Info) (*demux.Info, error) {
	r.byTag = make(map[uint16]uint64)
	return nil, nil
}

func (r *reportCount) Apply(block *pipeline.CombinedBlock, demuxInfo *demux.Info) (bool, error) {
	if block.OutputTags == nil {
		r.byTag[0] += uint64(block.Len())
		return true, nil
	}
	for _, tag := range block.OutputTags {
		r.byTag[tag]++
	}
	return true, nil
}

func (r *reportCount) Finalize(_, _ string, demuxInfo *demux.Info) (*report.Fragment, error) {
	data := map[string]any{}
	if demuxInfo == nil {
		data["molecule_count"] = r.byTag[0]
	} else {
		byName := map[string]any{}
		for _, tag := range demuxInfo.Tags() {
			byName[demuxInfo.Name(tag)] = map[string]any{"molecule_count": r.byTag[tag]}
		}
		data["by_barcode"] = byName
	}
	return &report.Fragment{Number: r.number, Label: r.label, Data: data}, nil
}

// reportLengthDistribution histograms read1 (and read2, if present)
// record lengths.
type reportLengthDistribution struct {
	pipeline.BaseStep
	number int
	label  string

	r1, r2 []uint64
}

func (r *reportLengthDistribution) Name() string            { return "ReportLengthDistribution" }
func (r *reportLengthDistribution) NeedsSerial() bool        { return true }
func (r *reportLengthDistribution) MustRunToCompletion() bool { return true }
func (r *reportLengthDistribution) NewStage() bool           { return true }
func (r *reportLengthDistribution) Clone() pipeline.Step {
	cp := *r
	cp.r1, cp.r2 = nil, nil
	return &cp
}

func bump(hist []uint64, length int) []uint64 {
	if length >= len(hist) {
		grown := make([]uint64, length+1)
		copy(grown, hist)
		hist = grown
	}
	hist[length]++
	return hist
}

func (r *reportLengthDistribution) Apply(block *pipeline.CombinedBlock, _ *demux.Info) (bool, error) {
	if block.R1 != nil {
		for _, rec := range block.R1.Records {
			r.r1 = bump(r.r1, len(rec.Seq))
		}
	}
	if block.R2 != nil {
		for _, rec := range block.R2.Records {
			r.r2 = bump(r.r2, len(rec.Seq))
		}
	}
	return true, nil
}

func (r *reportLengthDistribution) Finalize(string, string, *demux.Info) (*report.Fragment, error) {
	data := map[string]any{"read1": r.r1}
	if r.r2 != nil {
		data["read2"] = r.r2
	}
	return &report.Fragment{Number: r.number, Label: r.label, Data: map[string]any{"length_distribution": data}}, nil
}

// reportDuplicateCount reports how many read1 sequences would be removed
// by a read1-keyed FilterDuplicates, without actually removing them (a
// read-only Bloom-filter pass, for inspecting duplication rate before
// committing to a filtering step).
type reportDuplicateCount struct {
	pipeline.BaseStep
	number int
	label  string

	filter          *dedupFilter
	seen, duplicate uint64
}

func (r *reportDuplicateCount) Name() string            { return "ReportDuplicateCount" }
func (r *reportDuplicateCount) NeedsSerial() bool        { return true }
func (r *reportDuplicateCount) MustRunToCompletion() bool { return true }
func (r *reportDuplicateCount) NewStage() bool           { return true }
func (r *reportDuplicateCount) Clone() pipeline.Step     { cp := *r; cp.filter = nil; return &cp }

func (r *reportDuplicateCount) Init(pipeline.InputShape, string, string, *demux.Info) (*demux.Info, error) {
	r.filter = newDedupFilter(1_000_000, 0.001, 0)
	return nil, nil
}

func (r *reportDuplicateCount) Apply(block *pipeline.CombinedBlock, _ *demux.Info) (bool, error) {
	n := block.Len()
	for i := 0; i < n; i++ {
		key := dedupKey(block, i, tags.TargetR1)
		r.seen++
		if r.filter.testAndAdd(key) {
			r.duplicate++
		}
	}
	return true, nil
}

func (r *reportDuplicateCount) Finalize(string, string, *demux.Info) (*report.Fragment, error) {
	return &report.Fragment{Number: r.number, Label: r.label, Data: map[string]any{
		"duplicate_count": map[string]any{"seen": r.seen, "duplicate": r.duplicate},
	}}, nil
}

// reportBaseStatistics aggregates per-position base composition and
// Q20/Q30 quality counts over read1.
type reportBaseStatistics struct {
	pipeline.BaseStep
	number int
	label  string

	totalBases        uint64
	q20Bases          uint64
	q30Bases          uint64
	perPositionCounts [][5]uint64 // A C G T N
}

func (r *reportBaseStatistics) Name() string            { return "ReportBaseStatistics" }
func (r *reportBaseStatistics) NeedsSerial() bool        { return true }
func (r *reportBaseStatistics) MustRunToCompletion() bool { return true }
func (r *reportBaseStatistics) NewStage() bool           { return true }
func (r *reportBaseStatistics) Clone() pipeline.Step {
	cp := *r
	cp.perPositionCounts = nil
	return &cp
}

func baseIndex(b byte) int {
	switch b {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't':
		return 3
	default:
		return 4
	}
}

func (r *reportBaseStatistics) Apply(block *pipeline.CombinedBlock, _ *demux.Info) (bool, error) {
	if block.R1 == nil {
		return true, nil
	}
	for _, rec := range block.R1.Records {
		for i, b := range rec.Seq {
			if i >= len(r.perPositionCounts) {
				r.perPositionCounts = append(r.perPositionCounts, [5]uint64{})
			}
			r.perPositionCounts[i][baseIndex(b)]++
			r.totalBases++
		}
		for _, q := range rec.Qual {
			if q >= 33+20 {
				r.q20Bases++
				if q >= 33+30 {
					r.q30Bases++
				}
			}
		}
	}
	return true, nil
}

func (r *reportBaseStatistics) Finalize(string, string, *demux.Info) (*report.Fragment, error) {
	a := make([]uint64, len(r.perPositionCounts))
	c := make([]uint64, len(r.perPositionCounts))
	g := make([]uint64, len(r.perPositionCounts))
	t := make([]uint64, len(r.perPositionCounts))
	n := make([]uint64, len(r.perPositionCounts))
	var gcBases uint64
	for i, counts := range r.perPositionCounts {
		a[i], c[i], g[i], t[i], n[i] = counts[0], counts[1], counts[2], counts[3], counts[4]
		gcBases += counts[1] + counts[2]
	}
	return &report.Fragment{Number: r.number, Label: r.label, Data: map[string]any{
		"base_statistics": map[string]any{
			"total_bases": r.totalBases,
			"q20_bases":   r.q20Bases,
			"q30_bases":   r.q30Bases,
			"gc_bases":    gcBases,
			"per_position_counts": map[string]any{
				"a": a, "c": c, "g": g, "t": t, "n": n,
			},
		},
	}}, nil
}
