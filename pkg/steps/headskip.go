package steps

import (
	"github.com/cosnicolaou/fastqflow/pkg/demux"
	"github.com/cosnicolaou/fastqflow/pkg/pipeline"
)

// Head keeps only the first N records across the whole run and then
// demands termination, like SkipThenHead once its window is full
// (grounded on original_source/src/transformations.rs' Head).
type Head struct {
	pipeline.BaseStep
	N int

	soFar int
}

func NewHead(n int) *Head { return &Head{N: n} }

func (h *Head) Name() string         { return "Head" }
func (h *Head) Clone() pipeline.Step { cp := *h; return &cp }
func (h *Head) NeedsSerial() bool    { return true }

func (h *Head) Apply(block *pipeline.CombinedBlock, _ *demux.Info) (bool, error) {
	remaining := h.N - h.soFar
	if remaining <= 0 {
		truncate(block, 0)
		return false, nil
	}
	n := block.Len()
	if remaining < n {
		truncate(block, remaining)
		n = remaining
	}
	h.soFar += n
	return h.soFar < h.N, nil
}

// Skip discards the first N records across the whole run, then passes
// every subsequent record through unchanged.
type Skip struct {
	pipeline.BaseStep
	N int

	soFar int
}

func NewSkip(n int) *Skip { return &Skip{N: n} }

func (s *Skip) Name() string         { return "Skip" }
func (s *Skip) Clone() pipeline.Step { cp := *s; return &cp }
func (s *Skip) NeedsSerial() bool    { return true }

func (s *Skip) Apply(block *pipeline.CombinedBlock, _ *demux.Info) (bool, error) {
	remaining := s.N - s.soFar
	if remaining <= 0 {
		return true, nil
	}
	n := block.Len()
	if remaining >= n {
		s.soFar += n
		truncate(block, 0)
		return true, nil
	}
	keep := make([]bool, n)
	for i := remaining; i < n; i++ {
		keep[i] = true
	}
	s.soFar += remaining
	block.FilterMask(keep)
	return true, nil
}

// SkipThenHead composes Skip(skip) followed by Head(n) as a single step,
// for configurations expressing "a window of records starting at
// offset" in one step.
type SkipThenHead struct {
	pipeline.BaseStep
	Skip int
	N    int

	skipped int
	taken   int
}

func NewSkipThenHead(skip, n int) *SkipThenHead { return &SkipThenHead{Skip: skip, N: n} }

func (s *SkipThenHead) Name() string         { return "SkipThenHead" }
func (s *SkipThenHead) Clone() pipeline.Step { cp := *s; return &cp }
func (s *SkipThenHead) NeedsSerial() bool    { return true }

func (s *SkipThenHead) Apply(block *pipeline.CombinedBlock, _ *demux.Info) (bool, error) {
	n := block.Len()
	start := 0
	if s.skipped < s.Skip {
		remaining := s.Skip - s.skipped
		if remaining >= n {
			s.skipped += n
			truncate(block, 0)
			return true, nil
		}
		start = remaining
		s.skipped += remaining
	}

	keep := make([]bool, n)
	stillWant := s.N - s.taken
	taken := 0
	for i := start; i < n && taken < stillWant; i++ {
		keep[i] = true
		taken++
	}
	s.taken += taken
	block.FilterMask(keep)
	return s.taken < s.N, nil
}

// truncate shrinks block to its first n records via FilterMask, a small
// convenience for the two all-or-nothing-prefix cases above.
func truncate(block *pipeline.CombinedBlock, n int) {
	total := block.Len()
	keep := make([]bool, total)
	for i := 0; i < n && i < total; i++ {
		keep[i] = true
	}
	block.FilterMask(keep)
}
