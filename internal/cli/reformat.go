package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crowdit/radscribe/internal/audio"
	"github.com/crowdit/radscribe/internal/format"
	"github.com/crowdit/radscribe/internal/source"
	"github.com/crowdit/radscribe/internal/worker"
)

var reformatLimit int

var reformatCmd = &cobra.Command{
	Use:   "reformat <source-id>",
	Short: "Re-run the formatter over completed items",
	Long: `Re-run the report formatter over every complete work item for a source,
without re-transcribing. Use after correction rules or doctor profiles
have changed.

Examples:
  radscribe reformat karisma1
  radscribe reformat visage1 --limit 100`,
	Args: cobra.ExactArgs(1),
	RunE: runReformat,
}

func init() {
	reformatCmd.Flags().IntVar(&reformatLimit, "limit", 10000, "maximum items to reformat")
	rootCmd.AddCommand(reformatCmd)
}

func runReformat(cmd *cobra.Command, args []string) error {
	sourceID := args[0]

	formatter := format.NewFormatter(format.NewCache(st, logger), logger)
	svc := worker.New(cfg, st, source.NewRegistry(logger), audio.NewResolver(logger), nil, formatter, logger)

	updated, err := svc.Reformat(cmd.Context(), sourceID, reformatLimit)
	if err != nil {
		return fmt.Errorf("reformat %s: %w", sourceID, err)
	}
	fmt.Printf("Reformatted %d items for %s\n", updated, sourceID)
	return nil
}
