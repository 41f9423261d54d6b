package pipeline

import (
	"github.com/cosnicolaou/fastqflow/pkg/demux"
	"github.com/cosnicolaou/fastqflow/pkg/report"
)

// Step is the behavioral interface every transformation implements
// (spec.md §4.5). Worker threads in a parallel stage each hold their own
// clone of a step instance (spec.md §5: "a parallel stage replicates
// each step instance per worker by value"); Clone must return an
// independent copy suitable for that.
type Step interface {
	// Name identifies the step kind for error messages and report
	// labeling ("Head", "FilterDuplicates", ...).
	Name() string

	// Clone returns an independent copy of this step for use by another
	// worker. Steps with no per-record mutable state may return
	// themselves.
	Clone() Step

	// Validate performs pre-run static checks against the input shape
	// and the full ordered step list (so a
	// step can see what runs before/after it, e.g. "does a demultiplex
	// step precede me").
	Validate(shape InputShape, allSteps []Step) error

	// Init runs once before the pipeline starts. It may have side
	// effects (opening files). At most one step in the whole program may
	// return a non-nil demux.Info, and only before any downstream step
	// observes one.
	Init(shape InputShape, outputPrefix, outputDir string, demuxInfo *demux.Info) (*demux.Info, error)

	// Apply is the hot path: it may mutate block in place (shrink via
	// FilterMask, overwrite fields, set OutputTags, add/remove tags) but
	// must preserve cross-stream alignment and the tag-length invariant.
	// The returned bool is the continue flag (false signals premature
	// termination demand; only legal from a step whose NeedsSerial is
	// true, see spec.md §4.9).
	Apply(block *CombinedBlock, demuxInfo *demux.Info) (bool, error)

	// Finalize runs once at end-of-stream, on the serial worker hosting
	// this step, and may contribute a report fragment.
	Finalize(outputPrefix, outputDir string, demuxInfo *demux.Info) (*report.Fragment, error)

	// SetsTag returns the tag name this step extracts, if any.
	SetsTag() (string, bool)
	// RemovesTag returns the tag name this step removes, if any.
	RemovesTag() (string, bool)
	// UsesTags returns the tag names this step reads.
	UsesTags() []string
	// TagProvidesLocation reports whether the tag this step sets carries
	// hit locations.
	TagProvidesLocation() bool
	// TagRequiresLocation reports whether this step requires the tags it
	// uses to carry locations.
	TagRequiresLocation() bool

	// NeedsSerial reports whether this step must observe every record,
	// in order, on a single worker (counting, deduplication, sampling,
	// reporting, termination-driving steps).
	NeedsSerial() bool
	// NewStage forces a stage boundary before this step regardless of
	// parallelism class.
	NewStage() bool
	// MustRunToCompletion reports whether early termination must not
	// skip this step's stage.
	MustRunToCompletion() bool
	// TransmitsPrematureTermination reports whether this step's stage,
	// on observing its input channel close under termination, should
	// propagate the closure upstream (true) or drain upstream input
	// and discard it (false, a "drain" stage shielding counters/reports
	// that must observe every record).
	TransmitsPrematureTermination() bool
}

// Demultiplexer is implemented by the (at most one) step that produces a
// demux.Info during Init; the demultiplex step's own Validate uses this
// to enforce "at most one demultiplex step".
type Demultiplexer interface {
	Step
	IsDemultiplexStep() bool
}

// BaseStep supplies the common no-op implementations of the
// introspection predicates and Finalize, so concrete steps only override
// what differs from the zero value — mirroring the teacher's
// functional-options pattern of giving every knob a sensible default.
type BaseStep struct{}

func (BaseStep) Finalize(string, string, *demux.Info) (*report.Fragment, error) { return nil, nil }
func (BaseStep) SetsTag() (string, bool)                                        { return "", false }
func (BaseStep) RemovesTag() (string, bool)                                     { return "", false }
func (BaseStep) UsesTags() []string                                             { return nil }
func (BaseStep) TagProvidesLocation() bool                                      { return false }
func (BaseStep) TagRequiresLocation() bool                                      { return false }
func (BaseStep) NeedsSerial() bool                                              { return false }
func (BaseStep) NewStage() bool                                                 { return false }
func (BaseStep) MustRunToCompletion() bool                                      { return false }
func (BaseStep) TransmitsPrematureTermination() bool                            { return true }
func (BaseStep) Validate(InputShape, []Step) error                             { return nil }
func (BaseStep) Init(InputShape, string, string, *demux.Info) (*demux.Info, error) {
	return nil, nil
}
