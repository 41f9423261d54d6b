package steps

import (
	"math/rand"
	"time"

	"github.com/cosnicolaou/fastqflow/pkg/demux"
	"github.com/cosnicolaou/fastqflow/pkg/pipeline"
)

// InternalDelay sleeps a random jitter within [0, Max) per block before
// passing it through unchanged. It exists only to let tests exercise
// out-of-order arrival at a serial stage's reassembly heap; no
// configuration surface reaches it (pkg/config never constructs one).
type InternalDelay struct {
	pipeline.BaseStep
	Max time.Duration

	rnd *rand.Rand
}

func NewInternalDelay(max time.Duration, seed int64) *InternalDelay {
	return &InternalDelay{Max: max, rnd: rand.New(rand.NewSource(seed))}
}

func (d *InternalDelay) Name() string        { return "InternalDelay" }
func (d *InternalDelay) Clone() pipeline.Step { cp := *d; return &cp }

func (d *InternalDelay) Apply(block *pipeline.CombinedBlock, _ *demux.Info) (bool, error) {
	if d.Max > 0 {
		time.Sleep(time.Duration(d.rnd.Int63n(int64(d.Max))))
	}
	return true, nil
}
