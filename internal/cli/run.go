package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crowdit/radscribe/internal/audio"
	"github.com/crowdit/radscribe/internal/format"
	"github.com/crowdit/radscribe/internal/source"
	"github.com/crowdit/radscribe/internal/transcribe"
	"github.com/crowdit/radscribe/internal/worker"
)

var runSourceID string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the transcription polling loop",
	Long: `Run the polling loop: discover new dictations from all enabled sources,
transcribe their audio and format the transcripts. Runs until interrupted.

Examples:
  radscribe run                    # All enabled sources
  radscribe run --source karisma1  # A single source`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runSourceID, "source", "", "restrict to a single source id")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transcriber := transcribe.NewClient(transcribe.ClientConfig{
		APIKey:   cfg.DeepgramAPIKey,
		BaseURL:  cfg.DeepgramBaseURL,
		Model:    cfg.DeepgramModel,
		Language: cfg.DeepgramLanguage,
	}, logger)

	formatter := format.NewFormatter(format.NewCache(st, logger), logger)

	svc := worker.New(
		cfg,
		st,
		source.NewRegistry(logger),
		audio.NewResolver(logger),
		transcriber,
		formatter,
		logger,
	)
	svc.OnlySource = runSourceID

	return svc.Run(ctx)
}
