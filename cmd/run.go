package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qapi/internal/format"
	"qapi/internal/model"
)

func init() {
	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "Execute a preset and show the response",
		Long: `Execute a preset by id or name. With no argument the first preset in
the library runs. WebSocket presets cannot be run; use "qapi ws connect".`,
		Args: cobra.MaximumNArgs(1),
		Run:  runRun,
	}
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) {
	session, archive := mustSession()
	if archive != nil {
		defer archive.Close()
	}

	ref := ""
	if len(args) == 1 {
		ref = args[0]
	} else if active, ok := session.Active(); ok {
		ref = active.ID
	}

	preset, ok := session.Preset(ref)
	if !ok {
		format.PrintError(fmt.Sprintf("Preset not found: %s", ref))
		os.Exit(1)
	}

	if preset.Type == model.TypeWebSocket {
		format.PrintError("WebSocket presets are connected, not run. Try: qapi ws connect " + preset.ID)
		os.Exit(1)
	}

	rec := session.Run(context.Background(), preset.ID, false)
	if rec == nil {
		format.PrintError(fmt.Sprintf("Preset %q has no URL", preset.Name))
		os.Exit(1)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	format.PrintRecord(rec, verbose)

	if !rec.OK {
		os.Exit(1)
	}
}
