package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"qapi/internal/format"
)

func init() {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "View archived runs",
		Run:   runHistoryList,
	}

	historyCmd.Flags().IntP("limit", "n", 10, "Number of runs to show")

	showCmd := &cobra.Command{
		Use:   "show <id or index>",
		Short: "Show full details of an archived run",
		Args:  cobra.ExactArgs(1),
		Run:   runHistoryShow,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the run archive",
		Run:   runHistoryClear,
	}

	historyCmd.AddCommand(showCmd, clearCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) {
	_, archive := mustSession()
	if archive == nil {
		format.PrintError("Run archive is unavailable")
		os.Exit(1)
	}
	defer archive.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := archive.LoadRuns(0)
	if err != nil {
		format.PrintError(fmt.Sprintf("Failed to load runs: %v", err))
		os.Exit(1)
	}
	format.PrintArchivedRuns(runs, limit)
}

func runHistoryShow(cmd *cobra.Command, args []string) {
	_, archive := mustSession()
	if archive == nil {
		format.PrintError("Run archive is unavailable")
		os.Exit(1)
	}
	defer archive.Close()

	identifier := args[0]

	// Try to interpret as 1-based index first
	if index, err := strconv.Atoi(identifier); err == nil {
		runs, err := archive.LoadRuns(0)
		if err != nil {
			format.PrintError(fmt.Sprintf("Failed to load runs: %v", err))
			os.Exit(1)
		}
		if index > 0 && index <= len(runs) {
			format.PrintArchivedRunDetail(&runs[index-1])
			return
		}
	}

	run, err := archive.GetRun(identifier)
	if err != nil {
		format.PrintError(fmt.Sprintf("Failed to load run: %v", err))
		os.Exit(1)
	}
	if run == nil {
		format.PrintError(fmt.Sprintf("Run not found: %s", identifier))
		os.Exit(1)
	}
	format.PrintArchivedRunDetail(run)
}

func runHistoryClear(cmd *cobra.Command, args []string) {
	_, archive := mustSession()
	if archive == nil {
		format.PrintError("Run archive is unavailable")
		os.Exit(1)
	}
	defer archive.Close()

	if err := archive.ClearRuns(); err != nil {
		format.PrintError(fmt.Sprintf("Failed to clear runs: %v", err))
		os.Exit(1)
	}
	format.PrintSuccess("Run archive cleared")
}
