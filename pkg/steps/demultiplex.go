package steps

import (
	"fmt"

	"github.com/cosnicolaou/fastqflow/pkg/demux"
	"github.com/cosnicolaou/fastqflow/pkg/pipeline"
	"github.com/cosnicolaou/fastqflow/pkg/tags"
)

// Region names one slice of one input stream contributing bytes to the
// barcode lookup key (grounded on original_source's RegionDefinition).
type Region struct {
	Target tags.Target
	Start  int
	Len    int
}

// Barcode is one configured barcode sequence and its output infix.
type Barcode struct {
	Sequence string
	Name     string
}

// Demultiplex computes a per-record output tag from one or more region
// extractions matched against a configured barcode table, exactly once
// per run (grounded on original_source/src/transformations/demultiplex.rs).
type Demultiplex struct {
	pipeline.BaseStep
	Regions            []Region
	Barcodes           []Barcode
	MaxHammingDistance int
	OutputUnmatched    bool

	info *demux.Info
}

func NewDemultiplex(regions []Region, barcodes []Barcode, maxHamming int, outputUnmatched bool) *Demultiplex {
	return &Demultiplex{Regions: regions, Barcodes: barcodes, MaxHammingDistance: maxHamming, OutputUnmatched: outputUnmatched}
}

func (d *Demultiplex) Name() string         { return "Demultiplex" }
func (d *Demultiplex) Clone() pipeline.Step { cp := *d; return &cp }
func (d *Demultiplex) IsDemultiplexStep() bool { return true }

func (d *Demultiplex) Validate(shape pipeline.InputShape, allSteps []pipeline.Step) error {
	if len(d.Regions) == 0 {
		return fmt.Errorf("demultiplex requires at least one region")
	}
	for _, r := range d.Regions {
		if err := verifyTarget(r.Target, shape); err != nil {
			return err
		}
	}
	count := 0
	for _, s := range allSteps {
		if dm, ok := s.(pipeline.Demultiplexer); ok && dm.IsDemultiplexStep() {
			count++
		}
	}
	if count > 1 {
		return fmt.Errorf("only one level of demultiplexing is supported")
	}
	regionLen := 0
	for _, r := range d.Regions {
		regionLen += r.Len
	}
	for _, b := range d.Barcodes {
		if len(b.Sequence) != regionLen {
			return fmt.Errorf("barcode length %d doesn't match sum of region lengths (%d): %q", len(b.Sequence), regionLen, b.Name)
		}
	}
	return nil
}

func (d *Demultiplex) Init(_ pipeline.InputShape, _, _ string, existing *demux.Info) (*demux.Info, error) {
	specs := make([]demux.BarcodeSpec, len(d.Barcodes))
	for i, b := range d.Barcodes {
		specs[i] = demux.BarcodeSpec{Key: []byte(b.Sequence), Name: b.Name}
	}
	info, err := demux.NewInfo(specs, d.OutputUnmatched, d.MaxHammingDistance)
	if err != nil {
		return nil, err
	}
	d.info = info
	return info, nil
}

// extractKey concatenates the configured regions' bytes from block at
// record index i into a single lookup key.
func (d *Demultiplex) extractKey(block *pipeline.CombinedBlock, i int) []byte {
	var key []byte
	for _, r := range d.Regions {
		blk := blockFor(block, streamFor(r.Target))
		if blk == nil || i >= len(blk.Records) {
			continue
		}
		seq := blk.Records[i].Seq
		start := r.Start
		end := start + r.Len
		if start > len(seq) {
			start = len(seq)
		}
		if end > len(seq) {
			end = len(seq)
		}
		key = append(key, seq[start:end]...)
	}
	return key
}

func (d *Demultiplex) Apply(block *pipeline.CombinedBlock, demuxInfo *demux.Info) (bool, error) {
	if demuxInfo == nil {
		demuxInfo = d.info
	}
	n := block.Len()
	outputTags := make([]uint16, n)
	for i := 0; i < n; i++ {
		key := d.extractKey(block, i)
		outputTags[i] = demuxInfo.Match(key)
	}
	block.OutputTags = outputTags
	return true, nil
}
