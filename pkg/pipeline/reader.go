package pipeline

import (
	"fmt"
	"io"
	"os"

	"github.com/cosnicolaou/fastqflow/pkg/fastq"
	"github.com/cosnicolaou/fastqflow/pkg/iohelpers"
)

// FileSpec names one input file and the compression format it was
// written with.
type FileSpec struct {
	Path   string
	Format iohelpers.Format
}

// sendOrStop sends blk on out unless stopped is closed first, in which
// case it reports false so the caller can stop producing. stopped is
// closed by the combiner once it no longer needs this stream (because a
// downstream stage decided to terminate early and nothing drains this
// far upstream); without this a reader would otherwise block forever on
// a send nobody will ever receive.
func sendOrStop(out chan<- *fastq.Block, blk *fastq.Block, stopped <-chan struct{}) bool {
	select {
	case out <- blk:
		return true
	case <-stopped:
		return false
	}
}

// ReadStream concatenates the given files in order and emits blocks of
// up to blockSize records on out, then closes out. The final block is
// marked Terminal (it may be short, including empty when the input is
// an exact multiple of blockSize). Parse and I/O errors are returned
// with stream named, per spec.md §4.1.
func ReadStream(stream fastq.Stream, files []FileSpec, blockSize int, out chan<- *fastq.Block, stopped <-chan struct{}) error {
	defer close(out)
	if len(files) == 0 {
		sendOrStop(out, &fastq.Block{Terminal: true}, stopped)
		return nil
	}

	pending := make([]fastq.Record, 0, blockSize)
	flush := func(terminal bool) bool {
		blk := &fastq.Block{Records: pending, Terminal: terminal}
		ok := sendOrStop(out, blk, stopped)
		pending = make([]fastq.Record, 0, blockSize)
		return ok
	}

	for fi, fs := range files {
		f, err := os.Open(fs.Path)
		if err != nil {
			return fmt.Errorf("%s: opening %q: %w", stream, fs.Path, err)
		}
		rdCloser, err := iohelpers.NewDecompressReader(fs.Format, f)
		if err != nil {
			f.Close()
			return fmt.Errorf("%s: %q: %w", stream, fs.Path, err)
		}
		rd := fastq.NewReader(rdCloser, stream, fs.Path)
		for {
			rec, err := rd.ReadRecord()
			if err == io.EOF {
				break
			}
			if err != nil {
				rdCloser.Close()
				f.Close()
				return err
			}
			pending = append(pending, rec)
			if len(pending) == blockSize {
				if !flush(false) {
					rdCloser.Close()
					f.Close()
					return nil
				}
			}
		}
		rdCloser.Close()
		f.Close()
		if fi == len(files)-1 {
			flush(true)
		}
	}
	return nil
}

// ReadInterleaved parses a single physical file carrying R1/R2 in
// alternation, splitting even records to r1Out and odd records to
// r2Out. blockSize must be even (enforced by configuration validation,
// spec.md §6).
func ReadInterleaved(files []FileSpec, blockSize int, r1Out, r2Out chan<- *fastq.Block, stopped <-chan struct{}) error {
	defer close(r1Out)
	defer close(r2Out)
	if blockSize%2 != 0 {
		return fmt.Errorf("interleaved input requires an even block size, got %d", blockSize)
	}
	half := blockSize / 2

	r1Pending := make([]fastq.Record, 0, half)
	r2Pending := make([]fastq.Record, 0, half)
	flush := func(terminal bool) bool {
		ok := sendOrStop(r1Out, &fastq.Block{Records: r1Pending, Terminal: terminal}, stopped)
		ok = sendOrStop(r2Out, &fastq.Block{Records: r2Pending, Terminal: terminal}, stopped) && ok
		r1Pending = make([]fastq.Record, 0, half)
		r2Pending = make([]fastq.Record, 0, half)
		return ok
	}

	idx := 0
	for fi, fs := range files {
		f, err := os.Open(fs.Path)
		if err != nil {
			return fmt.Errorf("read1: opening %q: %w", fs.Path, err)
		}
		rdCloser, err := iohelpers.NewDecompressReader(fs.Format, f)
		if err != nil {
			f.Close()
			return fmt.Errorf("read1: %q: %w", fs.Path, err)
		}
		rd := fastq.NewReader(rdCloser, fastq.Read1, fs.Path)
		for {
			rec, err := rd.ReadRecord()
			if err == io.EOF {
				break
			}
			if err != nil {
				rdCloser.Close()
				f.Close()
				return err
			}
			if idx%2 == 0 {
				r1Pending = append(r1Pending, rec)
			} else {
				r2Pending = append(r2Pending, rec)
			}
			idx++
			if len(r1Pending) == half && len(r2Pending) == half {
				if !flush(false) {
					rdCloser.Close()
					f.Close()
					return nil
				}
			}
		}
		rdCloser.Close()
		f.Close()
		if fi == len(files)-1 {
			flush(true)
		}
	}
	return nil
}
