package pipeline

import (
	"fmt"

	"github.com/cosnicolaou/fastqflow/pkg/report"
)

// applyEntries runs every step of a stage over block in order. It
// returns the continue flag (false only legal for a serial stage) and
// any fatal error (an invariant violation, per spec.md §7, is fatal).
//
// canTerminate is the stage's Stage.CanTerminate: when false, some
// sibling step in this same stage has MustRunToCompletion()==true and
// must observe every remaining record regardless of another step's
// cutoff request, so a continue=false here is ignored rather than
// short-circuiting the rest of the stage's steps.
func applyEntries(entries []StepEntry, block *CombinedBlock, canTerminate bool) (bool, error) {
	cont := true
	for _, e := range entries {
		c, err := e.Step.Apply(block, e.DemuxInfo)
		if err != nil {
			return false, fmt.Errorf("step %q: %w", e.Step.Name(), err)
		}
		if err := block.CheckAlignment(); err != nil {
			return false, fmt.Errorf("step %q: %w", e.Step.Name(), err)
		}
		if !c {
			if !canTerminate {
				continue
			}
			return false, nil
		}
	}
	return cont, nil
}

// finalizeEntries calls Finalize once on each entry's step, collecting
// any returned report fragment into collector. Called exactly once per
// step instance, on the serial worker hosting it (spec.md §4.4).
func finalizeEntries(entries []StepEntry, outputPrefix, outputDir string, collector *report.Collector) error {
	for _, e := range entries {
		frag, err := e.Step.Finalize(outputPrefix, outputDir, e.DemuxInfo)
		if err != nil {
			return fmt.Errorf("finalize %q: %w", e.Step.Name(), err)
		}
		if frag != nil {
			collector.Add(*frag)
		}
	}
	return nil
}

// stageTransmits is the AND of TransmitsPrematureTermination over a
// stage's member steps: if any member is a drain, the whole stage drains
// rather than propagating a downstream stall upstream (spec.md §4.9).
func stageTransmits(entries []StepEntry) bool {
	for _, e := range entries {
		if !e.Step.TransmitsPrematureTermination() {
			return false
		}
	}
	return true
}
