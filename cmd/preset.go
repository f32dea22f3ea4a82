package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qapi/internal/format"
	"qapi/internal/model"
)

func init() {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage the saved request library",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all presets",
		Run:   runPresetList,
	}

	showCmd := &cobra.Command{
		Use:   "show <preset>",
		Short: "Show full details of a preset",
		Args:  cobra.ExactArgs(1),
		Run:   runPresetShow,
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new preset from the REST template",
		Run:   runPresetAdd,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <preset>",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		Run:   runPresetDelete,
	}

	useCmd := &cobra.Command{
		Use:   "use <preset>",
		Short: "Select the active preset",
		Args:  cobra.ExactArgs(1),
		Run:   runPresetUse,
	}

	setCmd := &cobra.Command{
		Use:   "set <preset>",
		Short: "Edit preset fields",
		Long: `Edit one or more fields of a preset. Every change persists the full
library immediately.

Examples:
  qapi preset set my-request --url https://api.example.com/users
  qapi preset set my-request --type GraphQL --graphql-query 'query { me { id } }'
  qapi preset set my-request --include-bearer=false`,
		Args: cobra.ExactArgs(1),
		Run:  runPresetSet,
	}
	setCmd.Flags().String("name", "", "Display name")
	setCmd.Flags().String("type", "", "Preset type: REST, GraphQL, or WebSocket")
	setCmd.Flags().String("method", "", "HTTP method (REST only)")
	setCmd.Flags().String("url", "", "Endpoint URL")
	setCmd.Flags().String("headers", "", "Headers as a JSON object")
	setCmd.Flags().String("query", "", "Query params, newline-delimited key=value")
	setCmd.Flags().String("body", "", "Raw request body")
	setCmd.Flags().String("graphql-query", "", "GraphQL query document")
	setCmd.Flags().String("graphql-variables", "", "GraphQL variables as a JSON object")
	setCmd.Flags().String("ws-message", "", "WebSocket message to send")
	setCmd.Flags().Bool("include-bearer", true, "Attach the global bearer token")
	setCmd.Flags().Bool("include-api-key", false, "Attach the global API key")

	presetCmd.AddCommand(listCmd, showCmd, addCmd, deleteCmd, useCmd, setCmd)
	rootCmd.AddCommand(presetCmd)
}

func runPresetList(cmd *cobra.Command, args []string) {
	session, archive := mustSession()
	if archive != nil {
		defer archive.Close()
	}

	activeID := ""
	if active, ok := session.Active(); ok {
		activeID = active.ID
	}
	format.PrintPresetList(session.Presets(), activeID)
}

func runPresetShow(cmd *cobra.Command, args []string) {
	session, archive := mustSession()
	if archive != nil {
		defer archive.Close()
	}

	preset, ok := session.Preset(args[0])
	if !ok {
		format.PrintError(fmt.Sprintf("Preset not found: %s", args[0]))
		os.Exit(1)
	}
	format.PrintPresetDetail(preset)
}

func runPresetAdd(cmd *cobra.Command, args []string) {
	session, archive := mustSession()
	if archive != nil {
		defer archive.Close()
	}

	preset, err := session.AddPreset()
	if err != nil {
		format.PrintError(fmt.Sprintf("Failed to add preset: %v", err))
		os.Exit(1)
	}
	format.PrintSuccess(fmt.Sprintf("Added preset %s (%s)", preset.Name, preset.ID))
}

func runPresetDelete(cmd *cobra.Command, args []string) {
	session, archive := mustSession()
	if archive != nil {
		defer archive.Close()
	}

	if err := session.DeletePreset(args[0]); err != nil {
		format.PrintError(fmt.Sprintf("Failed to delete preset: %v", err))
		os.Exit(1)
	}
	format.PrintSuccess("Preset deleted")
}

func runPresetUse(cmd *cobra.Command, args []string) {
	session, archive := mustSession()
	if archive != nil {
		defer archive.Close()
	}

	if err := session.SetActive(args[0]); err != nil {
		format.PrintError(fmt.Sprintf("Failed to select preset: %v", err))
		os.Exit(1)
	}
	active, _ := session.Active()
	format.PrintSuccess(fmt.Sprintf("Active preset: %s", active.Name))
}

func runPresetSet(cmd *cobra.Command, args []string) {
	session, archive := mustSession()
	if archive != nil {
		defer archive.Close()
	}

	flags := cmd.Flags()
	updated, err := session.UpdatePreset(args[0], func(p *model.Preset) {
		if flags.Changed("name") {
			p.Name, _ = flags.GetString("name")
		}
		if flags.Changed("type") {
			value, _ := flags.GetString("type")
			p.Type = model.PresetType(value)
		}
		if flags.Changed("method") {
			p.Method, _ = flags.GetString("method")
		}
		if flags.Changed("url") {
			p.URL, _ = flags.GetString("url")
		}
		if flags.Changed("headers") {
			p.Headers, _ = flags.GetString("headers")
		}
		if flags.Changed("query") {
			p.Query, _ = flags.GetString("query")
		}
		if flags.Changed("body") {
			p.Body, _ = flags.GetString("body")
		}
		if flags.Changed("graphql-query") {
			p.GraphQLQuery, _ = flags.GetString("graphql-query")
		}
		if flags.Changed("graphql-variables") {
			p.GraphQLVariables, _ = flags.GetString("graphql-variables")
		}
		if flags.Changed("ws-message") {
			p.WSMessage, _ = flags.GetString("ws-message")
		}
		if flags.Changed("include-bearer") {
			value, _ := flags.GetBool("include-bearer")
			p.IncludeBearer = &value
		}
		if flags.Changed("include-api-key") {
			value, _ := flags.GetBool("include-api-key")
			p.IncludeAPIKey = &value
		}
	})
	if err != nil {
		format.PrintError(fmt.Sprintf("Failed to update preset: %v", err))
		os.Exit(1)
	}
	format.PrintSuccess(fmt.Sprintf("Updated preset %s", updated.Name))
}
