package pipeline

// Progress is sent on an optional channel as the output writer emits
// blocks in order, mirroring the teacher's pbzip2.Progress reassembly
// notifications (parallel.go); cmd/fastqflow renders these with a
// progress bar.
type Progress struct {
	BlockSeqNo uint64
	Records    int
}
