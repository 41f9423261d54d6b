package pipeline

import (
	"container/heap"

	"github.com/cosnicolaou/fastqflow/pkg/report"
)

// pendingHeap orders buffered blocks by sequence number, the same
// container/heap-based reassembly structure as the teacher's blockHeap
// in parallel.go, generalized from bzip2 blockDesc to CombinedBlock.
type pendingHeap []*CombinedBlock

func (h pendingHeap) Len() int            { return len(h) }
func (h pendingHeap) Less(i, j int) bool  { return h[i].SeqNo < h[j].SeqNo }
func (h pendingHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pendingHeap) Push(x interface{}) { *h = append(*h, x.(*CombinedBlock)) }
func (h *pendingHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// RunSerialStage runs exactly one worker for a serial stage. It buffers
// blocks received out of order (the previous stage may have been
// parallel) and processes them strictly in sequence-number order,
// starting at 1, forwarding a contiguous run and stopping only at a gap
// (spec.md §4.4). The stage's steps therefore observe blocks in the
// order their sequence numbers imply, the ordering guarantee serial
// steps rely on for counting, deduplication, sampling and reporting.
// canTerminate is this stage's Stage.CanTerminate (false when a member
// step's MustRunToCompletion forbids honoring another member's cutoff
// request); it is threaded straight into applyEntries.
func RunSerialStage(entries []StepEntry, in <-chan *CombinedBlock, inStopped chan<- struct{}, out chan<- *CombinedBlock, outStopped <-chan struct{}, term *TerminationFlag, outputPrefix, outputDir string, collector *report.Collector, canTerminate bool) error {
	h := &pendingHeap{}
	heap.Init(h)
	lastForwarded := uint64(0)
	draining := false
	transmits := stageTransmits(entries)

	finishUp := func() error {
		if err := finalizeEntries(entries, outputPrefix, outputDir, collector); err != nil {
			return err
		}
		close(out)
		return nil
	}

	terminate := func(blk *CombinedBlock) error {
		term.Set()
		if !draining {
			select {
			case out <- blk:
			case <-outStopped:
			}
		}
		return finishUp()
	}

	for {
		blk, ok := <-in
		if !ok {
			close(inStopped)
			return finishUp()
		}
		heap.Push(h, blk)

		for h.Len() > 0 && (*h)[0].SeqNo == lastForwarded+1 {
			next := heap.Pop(h).(*CombinedBlock)
			lastForwarded++

			cont, err := applyEntries(entries, next, canTerminate)
			if err != nil {
				close(inStopped)
				return err
			}
			if !cont {
				close(inStopped)
				return terminate(next)
			}
			if draining {
				continue
			}
			select {
			case out <- next:
			case <-outStopped:
				term.Set()
				if transmits {
					close(inStopped)
					return finishUp()
				}
				draining = true
			}
		}
	}
}
