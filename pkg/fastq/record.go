// Package fastq defines the record and block types shared across the
// pipeline, and the lexer/codec interface used to read and write the
// FASTQ wire format. Concrete FASTQ parsing lives in this package; the
// adapters that pick a compression codec for the underlying byte stream
// live in package iohelpers.
package fastq

import "fmt"

// Stream names one of the (up to) four parallel read streams a pipeline
// run may carry.
type Stream int

const (
	Read1 Stream = iota
	Read2
	Index1
	Index2
)

// String renders the stream name used in error messages
// ("read1"/"read2"/"index1"/"index2"); output file names use their own
// short stream tokens.
func (s Stream) String() string {
	switch s {
	case Read1:
		return "read1"
	case Read2:
		return "read2"
	case Index1:
		return "index1"
	case Index2:
		return "index2"
	default:
		return fmt.Sprintf("stream(%d)", int(s))
	}
}

// Record is a single sequence record. Name, Seq and Qual are owned byte
// slices; len(Seq) must equal len(Qual) and neither may contain a newline.
type Record struct {
	Name []byte
	Seq  []byte
	Qual []byte
}

// Clone returns a deep copy of r, used when a step must retain the
// pre-edit state (e.g. to recover a trimmed-off suffix for a tag).
func (r Record) Clone() Record {
	return Record{
		Name: append([]byte(nil), r.Name...),
		Seq:  append([]byte(nil), r.Seq...),
		Qual: append([]byte(nil), r.Qual...),
	}
}

// Validate checks the record's length invariant.
func (r Record) Validate() error {
	if len(r.Seq) != len(r.Qual) {
		return fmt.Errorf("sequence/quality length mismatch: %d != %d for record %q", len(r.Seq), len(r.Qual), r.Name)
	}
	return nil
}

// Block is a contiguous ordered run of records from a single stream.
// Terminal marks the final block of a stream (possibly short).
type Block struct {
	Records  []Record
	Terminal bool
}

// Len returns the number of records in the block.
func (b *Block) Len() int { return len(b.Records) }
