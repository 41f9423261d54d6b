// Package config decodes and validates the TOML program description
// (spec.md §6) and builds the pipeline.Config run ready to execute:
// resolving input/output file lists, compression formats, and
// dispatching each configured transform into a concrete pkg/steps
// instance, grounded on original_source/src/config.rs and
// src/config/mod.rs.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cosnicolaou/fastqflow/pkg/fastq"
	"github.com/cosnicolaou/fastqflow/pkg/iohelpers"
	"github.com/cosnicolaou/fastqflow/pkg/pipeline"
	"github.com/cosnicolaou/fastqflow/pkg/steps"
	"github.com/cosnicolaou/fastqflow/pkg/tags"
	"github.com/pelletier/go-toml/v2"
)

// Input names the input files for each stream, per spec.md §6.1.
type Input struct {
	Read1       []string `toml:"read1"`
	Read2       []string `toml:"read2"`
	Index1      []string `toml:"index1"`
	Index2      []string `toml:"index2"`
	Interleaved bool     `toml:"interleaved"`
	Format      string   `toml:"format"` // applies to every input file: raw/gzip/zstd
}

// Output names the output files and their shape, per spec.md §6.2.
type Output struct {
	Prefix           string `toml:"prefix"`
	Directory        string `toml:"directory"`
	Suffix           string `toml:"suffix"`
	Format           string `toml:"format"`
	CompressionLevel int    `toml:"compression_level"`
	BufferSize       int    `toml:"buffer_size"`
	Stdout           bool   `toml:"stdout"`
	Interleave       bool   `toml:"interleave"`
	KeepIndex        bool   `toml:"keep_index"`
	OutputHash       bool   `toml:"output_hash"`

	// Per-stream output enable flags (spec.md §6: "per-stream
	// output_r1/r2/i1/i2 enable flags"). Nil means "unset": the stream
	// follows its historical default (read1/read2 always emitted when
	// present, index1/index2 gated by KeepIndex) rather than being
	// forced on or off.
	OutputR1 *bool `toml:"output_r1"`
	OutputR2 *bool `toml:"output_r2"`
	OutputI1 *bool `toml:"output_i1"`
	OutputI2 *bool `toml:"output_i2"`
}

// wantsStream reports whether a stream should get its own output target:
// the output_* flag when set, otherwise defaultWant (the historical
// behavior). Whether the input provides the stream is checked by the
// caller.
func (o *Output) wantsStream(flag *bool, defaultWant bool) bool {
	if flag != nil {
		return *flag
	}
	return defaultWant
}

// Options carries the run's ambient tunables, per spec.md §6.3.
type Options struct {
	ThreadCount          int  `toml:"thread_count"`
	BlockSize            int  `toml:"block_size"`
	BufferSize           int  `toml:"buffer_size"`
	AcceptDuplicateFiles bool `toml:"accept_duplicate_files"`
}

func (o Options) withDefaults() Options {
	if o.ThreadCount == 0 {
		o.ThreadCount = 10
	}
	if o.BlockSize == 0 {
		o.BlockSize = 10000
	}
	if o.BufferSize == 0 {
		o.BufferSize = 100 * 1024
	}
	return o
}

// Region is one slice of one input stream feeding a region-based step
// (Demultiplex), mirroring RegionDefinition.
type Region struct {
	Source string `toml:"source"`
	Start  int    `toml:"start"`
	Length int    `toml:"length"`
}

// Barcode is one configured demultiplex barcode.
type Barcode struct {
	Sequence string `toml:"sequence"`
	Name     string `toml:"name"`
}

// Step is the flat, tagged-union decode target for one [[transform]]
// table: Action discriminates which fields apply, mirroring the
// serde(tag = "action") enum in the original configuration format.
type Step struct {
	Action string `toml:"action"`

	N      int    `toml:"n"`
	Skip   int    `toml:"skip"`
	Target string `toml:"target"`

	Allowed string `toml:"allowed"`

	Seq  string `toml:"seq"`
	Qual string `toml:"qual"`

	// Report
	Label              string `toml:"label"`
	Count              bool   `toml:"count"`
	BaseStatistics     bool   `toml:"base_statistics"`
	LengthDistribution bool   `toml:"length_distribution"`
	DuplicateCount     bool   `toml:"duplicate_count"`

	// FilterDuplicates
	ExpectedRecords   int     `toml:"expected_records"`
	FalsePositiveRate float64 `toml:"false_positive_rate"`
	Seed              int64   `toml:"seed"`

	// Demultiplex
	Regions            []Region  `toml:"regions"`
	Barcodes           []Barcode `toml:"barcodes"`
	MaxHammingDistance int       `toml:"max_hamming_distance"`
	OutputUnmatched    bool      `toml:"output_unmatched"`
}

// Config is the decoded, not-yet-validated TOML program description.
type Config struct {
	Input   Input    `toml:"input"`
	Output  *Output  `toml:"output"`
	Options Options  `toml:"options"`
	Steps   []Step   `toml:"transform"`
}

// Parse decodes a TOML document into a Config and applies field
// defaults (but does not validate cross-field constraints; call Check
// for that).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	cfg.Options = cfg.Options.withDefaults()
	return &cfg, nil
}

// ParseFile reads and parses the TOML file at path.
func ParseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration %q: %w", path, err)
	}
	return Parse(data)
}

// Check validates cross-field constraints not expressible as a single
// field's shape (spec.md §6.4, grounded on original_source's
// Config::check): duplicate filenames, read2/index consistency,
// interleave/stdout requirements.
func (c *Config) Check() error {
	n := len(c.Input.Read1)
	if n == 0 {
		return fmt.Errorf("input.read1 must name at least one file")
	}
	seen := make(map[string]bool, n*2)
	checkDistinct := func(files []string, label string) error {
		if c.Options.AcceptDuplicateFiles {
			return nil
		}
		for _, f := range files {
			if seen[f] {
				return fmt.Errorf("repeated filename %q in %s; set options.accept_duplicate_files = true to ignore", f, label)
			}
			seen[f] = true
		}
		return nil
	}
	if err := checkDistinct(c.Input.Read1, "input.read1"); err != nil {
		return err
	}

	if len(c.Input.Read2) > 0 {
		if c.Input.Interleaved {
			return fmt.Errorf("if input.interleaved is set, input.read2 must not be set")
		}
		if len(c.Input.Read2) != n {
			return fmt.Errorf("number of read2 files must equal number of read1 files")
		}
		if err := checkDistinct(c.Input.Read2, "input.read2"); err != nil {
			return err
		}
	} else if c.Output != nil && c.Output.Interleave {
		return fmt.Errorf("output.interleave requires input.read2 to be specified")
	}

	if len(c.Input.Index2) > 0 && len(c.Input.Index1) == 0 {
		return fmt.Errorf("input.index2 requires input.index1 to also be specified")
	}
	if len(c.Input.Index1) > 0 {
		if len(c.Input.Index1) != n {
			return fmt.Errorf("number of index1 files must equal number of read1 files")
		}
		if err := checkDistinct(c.Input.Index1, "input.index1"); err != nil {
			return err
		}
	}
	if len(c.Input.Index2) > 0 {
		if len(c.Input.Index2) != n {
			return fmt.Errorf("number of index2 files must equal number of read1 files")
		}
		if err := checkDistinct(c.Input.Index2, "input.index2"); err != nil {
			return err
		}
	}

	if c.Input.Interleaved && c.Options.BlockSize%2 != 0 {
		return fmt.Errorf("options.block_size must be even when input.interleaved is set")
	}

	labels := make(map[string]bool)
	for _, t := range c.Steps {
		if t.Action == "Report" {
			if labels[t.Label] {
				return fmt.Errorf("report labels must be distinct: duplicated %q", t.Label)
			}
			labels[t.Label] = true
		}
	}

	if c.Output != nil && c.Output.Stdout {
		c.Output.Format = "raw"
		c.Output.Interleave = len(c.Input.Read2) > 0
	}

	return nil
}

func parseTarget(s string) (tags.Target, error) {
	switch s {
	case "read1", "Read1", "":
		return tags.TargetR1, nil
	case "read2", "Read2":
		return tags.TargetR2, nil
	case "index1", "Index1":
		return tags.TargetI1, nil
	case "index2", "Index2":
		return tags.TargetI2, nil
	default:
		return 0, fmt.Errorf("unknown target %q", s)
	}
}

// BuildSteps dispatches each configured transform into its concrete
// pkg/steps instance, then expands Report steps into their sub-steps.
func (c *Config) BuildSteps() ([]pipeline.Step, error) {
	out := make([]pipeline.Step, 0, len(c.Steps))
	for _, t := range c.Steps {
		step, err := buildStep(t)
		if err != nil {
			return nil, fmt.Errorf("transform %q: %w", t.Action, err)
		}
		out = append(out, step)
	}
	return steps.ExpandReports(out), nil
}

func buildStep(t Step) (pipeline.Step, error) {
	switch t.Action {
	case "Head":
		return steps.NewHead(t.N), nil
	case "Skip":
		return steps.NewSkip(t.N), nil
	case "SkipThenHead":
		return steps.NewSkipThenHead(t.Skip, t.N), nil
	case "CutStart":
		target, err := parseTarget(t.Target)
		if err != nil {
			return nil, err
		}
		return steps.NewCutStart(t.N, target), nil
	case "CutEnd":
		target, err := parseTarget(t.Target)
		if err != nil {
			return nil, err
		}
		return steps.NewCutEnd(t.N, target), nil
	case "MaxLen":
		target, err := parseTarget(t.Target)
		if err != nil {
			return nil, err
		}
		return steps.NewMaxLen(t.N, target), nil
	case "Prefix":
		target, err := parseTarget(t.Target)
		if err != nil {
			return nil, err
		}
		return steps.NewPrefix(target, []byte(t.Seq), []byte(t.Qual)), nil
	case "SwapR1R2":
		return steps.NewSwapR1R2(), nil
	case "ValidateSeq":
		target, err := parseTarget(t.Target)
		if err != nil {
			return nil, err
		}
		return steps.NewValidateSeq([]byte(t.Allowed), target), nil
	case "ValidatePhred":
		target, err := parseTarget(t.Target)
		if err != nil {
			return nil, err
		}
		return steps.NewValidatePhred(target), nil
	case "FilterDuplicates":
		target, err := parseTarget(t.Target)
		if err != nil {
			return nil, err
		}
		return steps.NewFilterDuplicates(uint(t.ExpectedRecords), t.FalsePositiveRate, target, t.Seed), nil
	case "Demultiplex":
		regions := make([]steps.Region, len(t.Regions))
		for i, r := range t.Regions {
			target, err := parseTarget(r.Source)
			if err != nil {
				return nil, err
			}
			regions[i] = steps.Region{Target: target, Start: r.Start, Len: r.Length}
		}
		barcodes := make([]steps.Barcode, len(t.Barcodes))
		for i, b := range t.Barcodes {
			barcodes[i] = steps.Barcode{Sequence: b.Sequence, Name: b.Name}
		}
		return steps.NewDemultiplex(regions, barcodes, t.MaxHammingDistance, t.OutputUnmatched), nil
	case "Report":
		return &steps.Report{
			Label:              t.Label,
			Count:              t.Count,
			BaseStatistics:     t.BaseStatistics,
			LengthDistribution: t.LengthDistribution,
			DuplicateCount:     t.DuplicateCount,
		}, nil
	default:
		return nil, fmt.Errorf("unknown transform action %q", t.Action)
	}
}

// Shape derives the pipeline.InputShape this configuration declares.
func (c *Config) Shape() pipeline.InputShape {
	return pipeline.InputShape{
		HasRead2:  len(c.Input.Read2) > 0,
		HasIndex1: len(c.Input.Index1) > 0,
		HasIndex2: len(c.Input.Index2) > 0,
	}
}

// fileSpecs pairs each path in files with the configured input format.
func fileSpecs(files []string, format iohelpers.Format) []pipeline.FileSpec {
	out := make([]pipeline.FileSpec, len(files))
	for i, f := range files {
		out[i] = pipeline.FileSpec{Path: f, Format: format}
	}
	return out
}

// OutputPaths computes the per-stream output file path for one output
// tag's infix (empty for the non-demultiplexed run), joining the
// configured suffix without introducing a double dot (spec.md Design
// Notes: no-leading-dot suffix defaulting).
func OutputPaths(out *Output, format iohelpers.Format, infix string) map[fastq.Stream]string {
	suffix := out.Suffix
	if suffix == "" {
		suffix = format.DefaultSuffix()
	}
	name := func(stream string) string {
		n := out.Prefix
		if infix != "" {
			n += "_" + infix
		}
		n += "_" + stream
		if suffix != "" {
			n += "." + suffix
		}
		return filepath.Join(out.Directory, n)
	}
	return map[fastq.Stream]string{
		fastq.Read1:  name("1"),
		fastq.Read2:  name("2"),
		fastq.Index1: name("i1"),
		fastq.Index2: name("i2"),
	}
}

// interleavedOutputPath computes the single shared output path for an
// interleaved output set, carrying the "interleaved" stream token
// (spec.md §6: "stream ∈ {1, 2, i1, i2, interleaved}").
func interleavedOutputPath(out *Output, format iohelpers.Format, infix string) string {
	suffix := out.Suffix
	if suffix == "" {
		suffix = format.DefaultSuffix()
	}
	n := out.Prefix
	if infix != "" {
		n += "_" + infix
	}
	n += "_interleaved"
	if suffix != "" {
		n += "." + suffix
	}
	return filepath.Join(out.Directory, n)
}
