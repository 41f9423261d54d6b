package main

import (
	"os"
	"path/filepath"

	"github.com/cosnicolaou/fastqflow/pkg/config"
	"github.com/cosnicolaou/fastqflow/pkg/report"
)

// writeReports renders the assembled report as JSON and HTML next to the
// configured output prefix (spec.md §4.3: "a JSON report and an HTML
// report sharing the same assembled data").
func writeReports(cfg *config.Config, assembled report.Assembled) error {
	if cfg.Output == nil {
		return nil
	}
	base := filepath.Join(cfg.Output.Directory, cfg.Output.Prefix+"_report")

	jsonBytes, err := assembled.MarshalJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(base+".json", jsonBytes, 0o644); err != nil {
		return err
	}

	htmlBytes, err := report.RenderHTML(assembled)
	if err != nil {
		return err
	}
	return os.WriteFile(base+".html", htmlBytes, 0o644)
}
