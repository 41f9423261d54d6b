// Command fastqflow runs a configured FASTQ preprocessing program: read
// one or more input streams, apply a sequence of transforms, and emit
// one or more output streams plus a JSON/HTML report.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "fastqflow",
		Short:         "Stream-process FASTQ files through a configured sequence of transforms",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.AddCommand(newRunCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fastqflow:", err)
		os.Exit(1)
	}
}
