package steps

import (
	"fmt"

	"github.com/cosnicolaou/fastqflow/pkg/demux"
	"github.com/cosnicolaou/fastqflow/pkg/fastq"
	"github.com/cosnicolaou/fastqflow/pkg/pipeline"
	"github.com/cosnicolaou/fastqflow/pkg/tags"
)

// ValidateSeq fails the run on the first record of Target whose sequence
// contains a byte outside Allowed, naming the offending record (grounded
// on original_source/src/transformations/validation.rs).
type ValidateSeq struct {
	pipeline.BaseStep
	Allowed []byte
	Target  tags.Target

	allowedSet [256]bool
}

func NewValidateSeq(allowed []byte, target tags.Target) *ValidateSeq {
	v := &ValidateSeq{Allowed: allowed, Target: target}
	for _, b := range allowed {
		v.allowedSet[b] = true
	}
	return v
}

func (v *ValidateSeq) Name() string        { return "ValidateSeq" }
func (v *ValidateSeq) Clone() pipeline.Step { cp := *v; return &cp }

func (v *ValidateSeq) Validate(shape pipeline.InputShape, _ []pipeline.Step) error {
	return verifyTarget(v.Target, shape)
}

func (v *ValidateSeq) Apply(block *pipeline.CombinedBlock, _ *demux.Info) (bool, error) {
	var offense error
	eachRecord(block, v.Target, func(_ int, rec *fastq.Record) {
		if offense != nil {
			return
		}
		for _, b := range rec.Seq {
			if !v.allowedSet[b] {
				offense = fmt.Errorf("invalid base found in sequence: %q %q", rec.Name, rec.Seq)
				return
			}
		}
	})
	if offense != nil {
		return false, offense
	}
	return true, nil
}

// ValidatePhred fails the run on the first record of Target whose quality
// string contains a byte outside the Phred+33 range 33..=74 ("!".."J"),
// naming the offending record.
type ValidatePhred struct {
	pipeline.BaseStep
	Target tags.Target
}

func NewValidatePhred(target tags.Target) *ValidatePhred {
	return &ValidatePhred{Target: target}
}

func (v *ValidatePhred) Name() string        { return "ValidatePhred" }
func (v *ValidatePhred) Clone() pipeline.Step { cp := *v; return &cp }

func (v *ValidatePhred) Validate(shape pipeline.InputShape, _ []pipeline.Step) error {
	return verifyTarget(v.Target, shape)
}

func (v *ValidatePhred) Apply(block *pipeline.CombinedBlock, _ *demux.Info) (bool, error) {
	var offense error
	eachRecord(block, v.Target, func(_ int, rec *fastq.Record) {
		if offense != nil {
			return
		}
		for _, q := range rec.Qual {
			if q < 33 || q > 74 {
				offense = fmt.Errorf("invalid phred quality found, expected 33..=74 (!..J): %q %q", rec.Name, rec.Qual)
				return
			}
		}
	})
	if offense != nil {
		return false, offense
	}
	return true, nil
}
