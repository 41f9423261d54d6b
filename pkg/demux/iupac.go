package demux

// iupacSets maps an uppercase IUPAC ambiguity code to the set of
// unambiguous bases it matches, grounded on original_source/src/dna.rs.
var iupacSets = map[byte]string{
	'A': "A",
	'C': "C",
	'G': "G",
	'T': "T",
	'R': "AG",
	'Y': "CT",
	'S': "GC",
	'W': "AT",
	'K': "GT",
	'M': "AC",
	'B': "CGT",
	'D': "AGT",
	'H': "ACT",
	'V': "ACG",
	'N': "ACGT",
}

func toUpper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

func isAmbiguous(b byte) bool {
	u := toUpper(b)
	return u == 'N' || (iupacSets[u] != "" && len(iupacSets[u]) > 1)
}

func hasAmbiguity(seq []byte) bool {
	for _, b := range seq {
		if isAmbiguous(b) {
			return true
		}
	}
	return false
}

// iupacMatch reports whether query byte q is consistent with reference
// IUPAC code ref, per spec.md §4.7: N matches anything; a reference
// ambiguity code matches any of its unambiguous bases; a query base that
// is itself ambiguous is compared byte-equal only; any other mismatch
// costs 1 (handled by the caller, not here).
func iupacMatch(ref, q byte) bool {
	ru, qu := toUpper(ref), toUpper(q)
	if ru == 'N' {
		return true
	}
	if isAmbiguous(qu) {
		// Case-sensitive: an ambiguous query only matches an identical
		// ambiguity code, not a differently-cased one (original_source/src/dna.rs,
		// test_iupac_hamming_distance: ref 'K' vs query 'k' must mismatch).
		return ref == q
	}
	set, ok := iupacSets[ru]
	if !ok {
		return ru == qu
	}
	for i := 0; i < len(set); i++ {
		if set[i] == qu {
			return true
		}
	}
	return false
}

// iupacHamming computes the IUPAC-aware Hamming distance between a
// reference barcode (possibly containing ambiguity codes) and a query
// key of equal length.
func iupacHamming(ref, query []byte) int {
	d := 0
	for i := range ref {
		if !iupacMatch(ref[i], query[i]) {
			d++
		}
	}
	return d
}
