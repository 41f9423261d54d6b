package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cosnicolaou/fastqflow/pkg/config"
	"github.com/cosnicolaou/fastqflow/pkg/pipeline"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runFlags struct {
	configPath string
	verbose    bool
	noProgress bool
}

func newRunCommand() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a program described by a TOML configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMain(cmd, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "path to the TOML configuration file (required)")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose (debug-level) logging")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "disable the progress bar")
	cmd.MarkFlagRequired("config")
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func runMain(cmd *cobra.Command, flags *runFlags) error {
	logger, err := newLogger(flags.verbose)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	runID := uuid.New().String()
	logger = logger.With(zap.String("run_id", runID))

	cfg, err := config.ParseFile(flags.configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progressCh := make(chan pipeline.Progress, 16)
	run, err := config.BuildRun(cfg, progressCh)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var bar *progressbar.ProgressBar
	if !flags.noProgress {
		bar = progressbar.NewOptions64(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetPredictTime(false))
		bar.RenderBlank()
	}
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for p := range progressCh {
			logger.Debug("block written", zap.Uint64("seq_no", p.BlockSeqNo), zap.Int("records", p.Records))
			if bar != nil {
				bar.Add(p.Records)
			}
		}
	}()

	logger.Info("starting run", zap.String("config", flags.configPath))
	runErr := pipeline.Run(ctx, run.Pipeline)
	close(progressCh)
	<-progressDone
	if bar != nil {
		fmt.Fprintln(os.Stderr)
	}
	if runErr != nil {
		logger.Error("run failed", zap.Error(runErr))
		return runErr
	}

	assembled := run.Collector.Assemble(runID)
	if err := writeReports(cfg, assembled); err != nil {
		logger.Error("writing report", zap.Error(err))
		return err
	}

	logger.Info("run complete")
	return nil
}
