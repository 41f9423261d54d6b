package demux

import "testing"

func TestHasAmbiguity(t *testing.T) {
	if hasAmbiguity([]byte("ACGT")) {
		t.Fatal("ACGT has no ambiguity codes")
	}
	if !hasAmbiguity([]byte("ACRT")) {
		t.Fatal("ACRT contains R, an ambiguity code")
	}
	if !hasAmbiguity([]byte("ACNT")) {
		t.Fatal("ACNT contains N, an ambiguity code")
	}
}

func TestIUPACMatch(t *testing.T) {
	cases := []struct {
		ref, q byte
		want   bool
	}{
		{'N', 'A', true},
		{'A', 'N', false},
		{'R', 'A', true},
		{'R', 'G', true},
		{'R', 'C', false},
		{'A', 'A', true},
		{'A', 'C', false},
	}
	for _, tc := range cases {
		if got := iupacMatch(tc.ref, tc.q); got != tc.want {
			t.Errorf("iupacMatch(%q, %q) = %v, want %v", tc.ref, tc.q, got, tc.want)
		}
	}
}

func TestIUPACHamming(t *testing.T) {
	if got := iupacHamming([]byte("NRAC"), []byte("TGAC")); got != 0 {
		t.Fatalf("iupacHamming(NRAC, TGAC) = %d, want 0", got)
	}
	if got := iupacHamming([]byte("AAAA"), []byte("AACA")); got != 1 {
		t.Fatalf("iupacHamming(AAAA, AACA) = %d, want 1", got)
	}
}

// TestIUPACHammingAmbiguousVsAmbiguousIsCaseSensitive mirrors
// original_source/src/dna.rs's test_iupac_hamming_distance: an ambiguity
// code in the query only matches an identically-cased ambiguity code in
// the reference, so a lower-cased query base mismatches even though the
// letters agree.
func TestIUPACHammingAmbiguousVsAmbiguousIsCaseSensitive(t *testing.T) {
	if got := iupacHamming([]byte("AGKC"), []byte("agkc")); got != 1 {
		t.Fatalf("iupacHamming(AGKC, agkc) = %d, want 1 (K vs k must mismatch)", got)
	}
	if got := iupacMatch('K', 'k'); got {
		t.Fatal("iupacMatch('K', 'k') = true, want false: ambiguous-vs-ambiguous must be case-sensitive")
	}
	if got := iupacMatch('K', 'K'); !got {
		t.Fatal("iupacMatch('K', 'K') = false, want true: identical ambiguity codes must match")
	}
}
