package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crowdit/radscribe/internal/models"
	"github.com/crowdit/radscribe/internal/source"
)

var statusCheck bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-source work item counts and watermarks",
	Long: `Show work item counts by status and the discovery watermark for each
enabled source.

With --check, also connect to each source database and report table counts.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusCheck, "check", false, "check source database connectivity")
	rootCmd.AddCommand(statusCmd)
}

var statusColumns = []models.Status{
	models.StatusPending,
	models.StatusTranscribing,
	models.StatusComplete,
	models.StatusFailed,
	models.StatusSkipped,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sources, err := cfg.EnabledSources()
	if err != nil {
		return fmt.Errorf("load source configs: %w", err)
	}
	if len(sources) == 0 {
		fmt.Println("No enabled sources")
		return nil
	}

	fmt.Printf("%-12s %-9s %-8s %-12s %-9s %-7s %-8s %s\n",
		"SOURCE", "KIND", "PENDING", "TRANSCRIBING", "COMPLETE", "FAILED", "SKIPPED", "WATERMARK")

	registry := source.NewRegistry(logger)
	for _, src := range sources {
		counts, err := st.CountByStatus(ctx, src.ID)
		if err != nil {
			return fmt.Errorf("count items for %s: %w", src.ID, err)
		}
		wm, err := st.Watermark(ctx, src.ID)
		if err != nil {
			return fmt.Errorf("read watermark for %s: %w", src.ID, err)
		}
		fmt.Printf("%-12s %-9s %-8d %-12d %-9d %-7d %-8d %d\n",
			src.ID, src.Kind,
			counts[statusColumns[0]], counts[statusColumns[1]], counts[statusColumns[2]],
			counts[statusColumns[3]], counts[statusColumns[4]],
			wm.LastSeenID)

		if statusCheck {
			printConnectivity(ctx, registry, src)
		}
	}
	return nil
}

func printConnectivity(ctx context.Context, registry *source.Registry, src models.SourceConfig) {
	adapter, err := registry.For(src.Kind)
	if err != nil {
		fmt.Printf("  connectivity: %v\n", err)
		return
	}
	counts, err := adapter.CheckConnectivity(ctx, src)
	if err != nil {
		fmt.Printf("  connectivity: FAILED: %v\n", err)
		return
	}
	fmt.Println("  connectivity: ok")
	for table, n := range counts {
		fmt.Printf("    %s: %d\n", table, n)
	}
}
