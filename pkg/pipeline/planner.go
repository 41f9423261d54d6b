package pipeline

import (
	"github.com/cosnicolaou/fastqflow/pkg/demux"
)

// StepEntry binds a step to the demultiplex info it should observe at
// apply-time: nil for every step before the (at most one) demultiplex
// step's Init runs, and the resolved *demux.Info for every step from
// that point on (spec.md §4.7: "Prior steps see Demultiplexed::No").
type StepEntry struct {
	Step      Step
	OrigIndex int
	DemuxInfo *demux.Info
}

// Stage is a maximal contiguous run of steps with identical parallelism
// class and no explicit new-stage boundary (spec.md §4.3/Glossary).
type Stage struct {
	Entries      []StepEntry
	NeedsSerial  bool
	CanTerminate bool
}

// Plan partitions steps (already bound to their resolved demux info via
// StepEntry) into stages, preserving original step order within and
// across stages.
func Plan(entries []StepEntry) []Stage {
	var stages []Stage
	for _, e := range entries {
		boundary := len(stages) == 0 ||
			e.Step.NeedsSerial() != stages[len(stages)-1].NeedsSerial ||
			e.Step.NewStage()
		if boundary {
			stages = append(stages, Stage{NeedsSerial: e.Step.NeedsSerial(), CanTerminate: true})
		}
		cur := &stages[len(stages)-1]
		cur.Entries = append(cur.Entries, e)
		if e.Step.MustRunToCompletion() {
			cur.CanTerminate = false
		}
	}
	return stages
}
