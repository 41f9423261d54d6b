// Package demux implements the demultiplex fan-out: the immutable
// barcode-to-tag table produced by at most one step's init, and the
// IUPAC-aware matching rules applied in that step's apply.
package demux

import (
	"fmt"
	"sort"
)

// UnmatchedTag is the reserved output tag for records that match no
// configured barcode.
const UnmatchedTag = 0

// ReservedName is the barcode name forbidden as a user-configured infix;
// it is reserved for unmatched records.
const ReservedName = "unmatched"

// Info is the immutable barcode table computed by one demultiplex
// step's init and shared read-only across workers thereafter.
type Info struct {
	// barcodes maps the exact lookup key (concatenated region bytes, no
	// separator) to a tag id.
	barcodes map[string]uint16
	// ordered preserves configuration order, since the Hamming fallback
	// rules accept the *first* barcode within the threshold.
	ordered []BarcodeSpec
	// names maps tag id to the output infix (barcode name).
	names []string
	// hasIUPAC is true if any configured barcode contains an ambiguity
	// code, enabling the IUPAC-aware Hamming fallback.
	hasIUPAC         bool
	includeUnmatched bool
	maxHamming       int
}

// BarcodeSpec is one configured barcode → output name pair.
type BarcodeSpec struct {
	Key  []byte // the raw barcode bytes (concatenated region sequence)
	Name string
}

// NewInfo builds an Info from the configured barcode list. It validates
// that output infixes (including the synthesized "unmatched") are
// pairwise distinct and that no user infix equals ReservedName.
func NewInfo(specs []BarcodeSpec, includeUnmatched bool, maxHammingDistance int) (*Info, error) {
	info := &Info{
		barcodes:         make(map[string]uint16, len(specs)),
		names:            make([]string, len(specs)+1),
		includeUnmatched: includeUnmatched,
		maxHamming:       maxHammingDistance,
	}
	info.names[UnmatchedTag] = ReservedName

	seen := make(map[string]bool, len(specs)+1)
	seen[ReservedName] = true
	for i, spec := range specs {
		if spec.Name == ReservedName {
			return nil, fmt.Errorf("barcode output infix %q is reserved for unmatched records", spec.Name)
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("barcode output infixes must be distinct: %q is used more than once", spec.Name)
		}
		seen[spec.Name] = true

		tag := uint16(i + 1)
		key := string(spec.Key)
		if _, exists := info.barcodes[key]; exists {
			return nil, fmt.Errorf("duplicate barcode sequence %q", key)
		}
		info.barcodes[key] = tag
		info.ordered = append(info.ordered, spec)
		info.names[tag] = spec.Name
		if hasAmbiguity(spec.Key) {
			info.hasIUPAC = true
		}
	}
	return info, nil
}

// Tags returns the sorted list of all tag ids that should have an output
// file set opened: all configured barcodes, plus 0 iff include_unmatched.
func (info *Info) Tags() []uint16 {
	tags := make([]uint16, 0, len(info.names))
	for tag := range info.names {
		t := uint16(tag)
		if t == UnmatchedTag && !info.includeUnmatched {
			continue
		}
		if t != UnmatchedTag || info.includeUnmatched {
			tags = append(tags, t)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Name returns the output infix for tag.
func (info *Info) Name(tag uint16) string {
	if int(tag) < len(info.names) {
		return info.names[tag]
	}
	return ReservedName
}

// Match implements the barcode matching rule of spec.md §4.7: exact
// lookup, then (if any barcode has IUPAC ambiguity) IUPAC-aware Hamming,
// then (if maxHamming > 0) plain Hamming, else unmatched.
func (info *Info) Match(key []byte) uint16 {
	if tag, ok := info.barcodes[string(key)]; ok {
		return tag
	}
	if info.hasIUPAC {
		if tag, ok := info.bestIUPACMatch(key); ok {
			return tag
		}
	}
	if info.maxHamming > 0 {
		if tag, ok := info.bestPlainMatch(key); ok {
			return tag
		}
	}
	return UnmatchedTag
}

func (info *Info) bestIUPACMatch(key []byte) (uint16, bool) {
	for i, spec := range info.ordered {
		if !hasAmbiguity(spec.Key) {
			continue
		}
		if len(spec.Key) != len(key) {
			continue
		}
		if iupacHamming(spec.Key, key) <= info.maxHamming {
			return uint16(i + 1), true
		}
	}
	return 0, false
}

func (info *Info) bestPlainMatch(key []byte) (uint16, bool) {
	for i, spec := range info.ordered {
		if len(spec.Key) != len(key) {
			continue
		}
		if plainHamming(spec.Key, key) <= info.maxHamming {
			return uint16(i + 1), true
		}
	}
	return 0, false
}

func plainHamming(a, b []byte) int {
	d := 0
	for i := range a {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}
