// Package tags implements the per-record metadata annotation subsystem
// threaded through the pipeline: named tag vectors carried alongside a
// combined block, location-coherent rewriting when a step edits a
// target stream's sequence, and the filter-all-parallel mask helper
// that keeps every sub-block and every tag vector in lockstep.
package tags

import "fmt"

// Target names the stream a HitRegion refers to.
type Target int

const (
	TargetR1 Target = iota
	TargetR2
	TargetI1
	TargetI2
)

// String renders the target name. The original source code's "Rndex1/2"
// misspelling (spec.md Design Notes) is not reproduced here.
func (t Target) String() string {
	switch t {
	case TargetR1:
		return "R1"
	case TargetR2:
		return "R2"
	case TargetI1:
		return "Index1"
	case TargetI2:
		return "Index2"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// HitRegion locates a Hit's bytes within one of the four streams.
type HitRegion struct {
	Target Target
	Start  int
	Len    int
}

// Hit is one extracted value for a tag on a single record, optionally
// located in one of the input streams.
type Hit struct {
	Sequence []byte
	Location *HitRegion // nil: hit has no (or no longer has a) location
}

// Entry is a record's tag slot: either empty (nil) or a non-empty
// ordered list of hits.
type Entry []Hit

// Store maps tag name to a per-record slice of Entry, always of length
// equal to the owning block's record count.
type Store map[string][]Entry

// Clone returns a deep-enough copy of s for use after a block split:
// each tag's entry slice is copied, the hits inside are shared.
// CombinedBlock.Clone uses it.
func (s Store) Clone() Store {
	if s == nil {
		return nil
	}
	out := make(Store, len(s))
	for name, entries := range s {
		cp := make([]Entry, len(entries))
		copy(cp, entries)
		out[name] = cp
	}
	return out
}

// EnsureLen panics if any tag vector's length does not match n, the
// invariant checked after every step (spec.md §8: "For every tag name
// present, the tag's per-record vector length equals the block's record
// count after every step").
func (s Store) EnsureLen(n int) {
	for name, entries := range s {
		if len(entries) != n {
			panic(fmt.Sprintf("tag %q has %d entries, want %d", name, len(entries), n))
		}
	}
}

// FilterMask shrinks every tag vector in s to the records where keep[i]
// is true, in lockstep with however the caller is filtering the
// read sub-blocks themselves. This is the "filter-all-parallel"
// invariant from spec.md §4.6: a tag vector is never filtered alone.
func (s Store) FilterMask(keep []bool) {
	for name, entries := range s {
		out := entries[:0]
		for i, k := range keep {
			if k {
				out = append(out, entries[i])
			}
		}
		s[name] = out
	}
}

// RewriteOutcome is the result of a location-rewrite callback applied to
// one Hit when a step edits the sequence of a target stream.
type RewriteOutcome struct {
	Kind     RewriteKind
	Region   HitRegion // valid when Kind is New or NewWithSeq
	Sequence []byte    // valid when Kind is NewWithSeq
}

// RewriteKind discriminates the four rewrite outcomes named in
// spec.md's Design Notes.
type RewriteKind int

const (
	Keep RewriteKind = iota
	Remove
	New
	NewWithSeq
)

// RewriteCallback computes the outcome for a single hit whose location
// lies on the stream being edited.
type RewriteCallback func(h Hit) RewriteOutcome

// RewriteLocations applies cb to every hit in entries whose Location
// targets the stream being edited, enforcing location coherence: if any
// hit in a record becomes Remove, every hit for that record (for this
// tag) loses its location, never a mix of Some/None within one record
// (spec.md §3, §4.6).
func RewriteLocations(entries []Entry, target Target, cb RewriteCallback) {
	for i, entry := range entries {
		if len(entry) == 0 {
			continue
		}
		touches := false
		for _, h := range entry {
			if h.Location != nil && h.Location.Target == target {
				touches = true
				break
			}
		}
		if !touches {
			continue
		}
		anyRemoved := false
		rewritten := make(Entry, len(entry))
		for j, h := range entry {
			if h.Location == nil || h.Location.Target != target {
				rewritten[j] = h
				continue
			}
			out := cb(h)
			switch out.Kind {
			case Keep:
				rewritten[j] = h
			case Remove:
				anyRemoved = true
				rewritten[j] = Hit{Sequence: h.Sequence, Location: nil}
			case New:
				region := out.Region
				rewritten[j] = Hit{Sequence: h.Sequence, Location: &region}
			case NewWithSeq:
				region := out.Region
				rewritten[j] = Hit{Sequence: out.Sequence, Location: &region}
			}
		}
		if anyRemoved {
			for j := range rewritten {
				rewritten[j].Location = nil
			}
		}
		entries[i] = rewritten
	}
}
