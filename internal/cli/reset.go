package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/crowdit/radscribe/internal/store"
)

var resetCmd = &cobra.Command{
	Use:   "reset <source-id> <record-id>",
	Short: "Reset a failed or skipped work item back to pending",
	Long: `Reset moves a failed or skipped work item back to pending so the next
poll cycle retries it. Items in other statuses cannot be reset.

Examples:
  radscribe reset karisma1 48213`,
	Args: cobra.ExactArgs(2),
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	sourceID := args[0]
	recordID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid record id %q: %w", args[1], err)
	}

	err = st.Reset(cmd.Context(), sourceID, recordID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("no work item for %s/%d", sourceID, recordID)
	case errors.Is(err, store.ErrNotResettable):
		return fmt.Errorf("work item %s/%d is not failed or skipped", sourceID, recordID)
	case err != nil:
		return fmt.Errorf("reset %s/%d: %w", sourceID, recordID, err)
	}

	fmt.Printf("Reset %s/%d to pending\n", sourceID, recordID)
	return nil
}
