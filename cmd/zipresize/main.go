package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"zip-resizer/internal/domain"
	"zip-resizer/internal/ingest"
	"zip-resizer/internal/jobs"
	"zip-resizer/internal/logging"
	"zip-resizer/internal/options"
	"zip-resizer/internal/queue"
	"zip-resizer/internal/resize"
)

var errJobsFailed = errors.New("one or more archives failed")

type flags struct {
	raw       domain.RawOptions
	outputDir string
	output    string
	logLevel  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:          "zipresize [flags] <zip>...",
		Short:        "Resize the images inside zip archives",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(f.logLevel, true)
			return run(cmd.Context(), f, args)
		},
	}

	cmd.Flags().StringVar(&f.raw.MaxWidth, "max-width", "", "maximum image width in pixels")
	cmd.Flags().StringVar(&f.raw.MaxHeight, "max-height", "", "maximum image height in pixels")
	cmd.Flags().StringVar(&f.raw.Quality, "quality", "", "JPEG quality (0-100, default 80)")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "directory for resized archives (default: next to input)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output path (single input only)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "log level")
	return cmd
}

func run(ctx context.Context, f flags, args []string) error {
	resolved := options.Resolve(f.raw)
	engine := resize.NewEngine(f.outputDir)

	if f.output != "" {
		if len(args) != 1 {
			return fmt.Errorf("--output needs exactly one input, got %d", len(args))
		}
		opts, err := resize.NewOptions(&resolved)
		if err != nil {
			return err
		}
		if err := engine.ProcessFile(ctx, args[0], f.output, opts); err != nil {
			log.Error().Str("path", args[0]).Err(err).Msg("resize failed")
			return err
		}
		log.Info().Str("path", args[0]).Str("output", f.output).Msg("archive resized")
		return nil
	}

	registry := queue.NewRegistry(nil)
	gateway := ingest.NewGateway(registry, nil)
	if added := gateway.Add(args); added == 0 {
		return fmt.Errorf("no .zip archives among %d arguments", len(args))
	}

	orchestrator := jobs.NewOrchestrator(registry, engine, func() domain.ProcessingOptions {
		return resolved
	}, nil)
	orchestrator.Run(ctx)

	list := registry.All()
	for _, job := range list {
		if job.Status == domain.JobStatusDone {
			fmt.Printf("%s\t%s\t%s\n", job.Status, job.Path, engine.OutputPath(job.Path))
			continue
		}
		fmt.Printf("%s\t%s\n", job.Status, job.Path)
	}

	summary := jobs.Summarize(list)
	log.Info().Int("done", summary.Done).Int("failed", summary.Failed).Msg("batch finished")
	if summary.Failed > 0 {
		return errJobsFailed
	}
	return nil
}
