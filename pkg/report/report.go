// Package report collects report fragments emitted by steps' Finalize
// calls, merges fragments sharing a report number, and assembles the
// final JSON and HTML reports (spec.md §4.3, §4.8).
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
	"sync"
)

// Fragment is one report sub-step's contribution: a JSON-like object,
// tagged with the report number it belongs to and the user-facing label
// for that number.
type Fragment struct {
	Number int
	Label  string
	Data   map[string]any
}

// Collector is the mutex-protected, append-only list of fragments
// accumulated across every serial worker's finalize calls.
type Collector struct {
	mu        sync.Mutex
	fragments []Fragment
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector { return &Collector{} }

// Add appends f. Safe for concurrent use by multiple serial workers'
// finalize calls; the fragments are read once, by Assemble, after the
// run ends.
func (c *Collector) Add(f Fragment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fragments = append(c.fragments, f)
}

// mergeInto dictionary-unions src into dst; on key conflict the two
// values are merged recursively if both are maps, otherwise src wins.
func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		existing, ok := dst[k]
		if !ok {
			dst[k] = v
			continue
		}
		existingMap, eok := existing.(map[string]any)
		srcMap, sok := v.(map[string]any)
		if eok && sok {
			mergeInto(existingMap, srcMap)
			continue
		}
		dst[k] = v
	}
}

// Assembled is the final report: a run identifier, and one merged
// object per report number, keyed by its user label.
type Assembled struct {
	RunID   string         `json:"run_id"`
	Reports map[string]any `json:"reports"`
}

// Assemble groups the collected fragments by report number, merges each
// group's data via dictionary-union, and returns the result keyed by
// user label. runID is typically a uuid.New().String() stamped by the
// caller (cmd/fastqflow) for cross-log-line correlation.
func (c *Collector) Assemble(runID string) Assembled {
	c.mu.Lock()
	defer c.mu.Unlock()

	byNumber := make(map[int]*Fragment)
	var numbers []int
	for _, f := range c.fragments {
		if existing, ok := byNumber[f.Number]; ok {
			mergeInto(existing.Data, f.Data)
			continue
		}
		cp := Fragment{Number: f.Number, Label: f.Label, Data: make(map[string]any, len(f.Data))}
		mergeInto(cp.Data, f.Data)
		byNumber[f.Number] = &cp
		numbers = append(numbers, f.Number)
	}
	sort.Ints(numbers)

	out := Assembled{RunID: runID, Reports: make(map[string]any, len(numbers))}
	for _, n := range numbers {
		frag := byNumber[n]
		label := frag.Label
		if label == "" {
			label = fmt.Sprintf("report_%d", n)
		}
		out.Reports[label] = frag.Data
	}
	return out
}

// MarshalJSON renders the assembled report as indented JSON.
func (a Assembled) MarshalJSON() ([]byte, error) {
	type alias Assembled
	return json.MarshalIndent(alias(a), "", "  ")
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>fastqflow report</title></head>
<body>
<h1>fastqflow report {{.RunID}}</h1>
<pre id="report-json">{{.JSON}}</pre>
</body>
</html>
`

var tmpl = template.Must(template.New("report").Parse(htmlTemplate))

// RenderHTML substitutes the JSON payload into the report template.
func RenderHTML(a Assembled) ([]byte, error) {
	payload, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		RunID string
		JSON  string
	}{RunID: a.RunID, JSON: string(payload)})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
