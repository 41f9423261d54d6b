package pipeline

import "sync/atomic"

// TerminationFlag is the shared cooperative cancellation signal of
// spec.md §4.9/§5: set on early stop (a serial step's cutoff) or on a
// fatal send failure, consulted by any thread that observes a channel
// close so it can distinguish planned shutdown from unexpected loss.
type TerminationFlag struct {
	flag atomic.Bool
}

// Set marks the flag, idempotently.
func (f *TerminationFlag) Set() { f.flag.Store(true) }

// IsSet reports whether the flag has been set.
func (f *TerminationFlag) IsSet() bool { return f.flag.Load() }
