package pipeline

import (
	"sync"
)

// RunParallelStage runs a parallel stage with workerCount goroutines,
// each receiving from in, applying the stage's steps (each worker's
// entries slice must already be an independent clone, see cloneEntries),
// and forwarding to out. Because steps here are pure with respect to
// cross-record state, blocks may be forwarded out of sequence-number
// order (spec.md §4.4); the downstream consumer restores order.
//
// outStopped, when closed, tells every worker that the downstream
// consumer will not receive any more blocks; workers stop sending and
// (if the stage transmits premature termination) stop receiving too.
// inStopped is closed exactly once, after every worker has exited, to
// tell the upstream producer the same thing in the other direction.
func RunParallelStage(workerCount int, perWorkerEntries [][]StepEntry, in <-chan *CombinedBlock, inStopped chan<- struct{}, out chan<- *CombinedBlock, outStopped <-chan struct{}, term *TerminationFlag) error {
	var wg sync.WaitGroup
	errs := make(chan error, workerCount)
	transmits := stageTransmits(perWorkerEntries[0])

	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		entries := perWorkerEntries[w]
		go func() {
			defer wg.Done()
			errs <- parallelWorkerLoop(entries, in, out, outStopped, term, transmits)
		}()
	}
	wg.Wait()
	close(out)
	close(inStopped)
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func parallelWorkerLoop(entries []StepEntry, in <-chan *CombinedBlock, out chan<- *CombinedBlock, outStopped <-chan struct{}, term *TerminationFlag, transmits bool) error {
	draining := false
	for {
		blk, ok := <-in
		if !ok {
			return nil
		}
		// canTerminate is irrelevant to a parallel stage: no parallel step
		// may ever request a cutoff (asserted below), so there is nothing
		// for a sibling MustRunToCompletion step to be protected from.
		cont, err := applyEntries(entries, blk, true)
		if err != nil {
			return err
		}
		if !cont {
			// Assertion from spec.md §4.9 point 4: non-serial stages may
			// never return continue=false.
			panic("pipeline: a parallel stage step returned continue=false, which is only legal in a serial stage")
		}
		if draining {
			continue
		}
		select {
		case out <- blk:
		case <-outStopped:
			term.Set()
			if transmits {
				return nil
			}
			draining = true
		}
	}
}
