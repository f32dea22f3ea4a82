package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qapi/internal/format"
	"qapi/internal/model"
)

func init() {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the shared auth config",
		Long: `Manage the bearer token and API key shared by all presets. Whether a
preset attaches them is controlled per preset (see "qapi preset set").`,
	}

	bearerCmd := &cobra.Command{
		Use:   "bearer <token>",
		Short: "Set the bearer token (empty string clears it)",
		Args:  cobra.ExactArgs(1),
		Run:   runAuthBearer,
	}

	apiKeyCmd := &cobra.Command{
		Use:   "api-key <value>",
		Short: "Set the API key value",
		Args:  cobra.ExactArgs(1),
		Run:   runAuthAPIKey,
	}
	apiKeyCmd.Flags().String("header", "", "Header name to carry the key (default x-api-key)")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the configured auth (secrets redacted)",
		Run:   runAuthShow,
	}

	authCmd.AddCommand(bearerCmd, apiKeyCmd, showCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthBearer(cmd *cobra.Command, args []string) {
	session, archive := mustSession()
	if archive != nil {
		defer archive.Close()
	}

	err := session.SetAuth(func(auth *model.AuthConfig) {
		auth.BearerToken = args[0]
	})
	if err != nil {
		format.PrintError(fmt.Sprintf("Failed to save auth: %v", err))
		os.Exit(1)
	}
	if args[0] == "" {
		format.PrintSuccess("Bearer token cleared")
		return
	}
	format.PrintSuccess("Bearer token set")
}

func runAuthAPIKey(cmd *cobra.Command, args []string) {
	session, archive := mustSession()
	if archive != nil {
		defer archive.Close()
	}

	header, _ := cmd.Flags().GetString("header")
	err := session.SetAuth(func(auth *model.AuthConfig) {
		auth.APIKeyValue = args[0]
		if header != "" {
			auth.APIKeyName = header
		}
		if auth.APIKeyName == "" {
			auth.APIKeyName = "x-api-key"
		}
	})
	if err != nil {
		format.PrintError(fmt.Sprintf("Failed to save auth: %v", err))
		os.Exit(1)
	}
	format.PrintSuccess("API key set")
}

func runAuthShow(cmd *cobra.Command, args []string) {
	session, archive := mustSession()
	if archive != nil {
		defer archive.Close()
	}

	auth := session.Auth()
	fmt.Printf("Bearer token: %s\n", redact(auth.BearerToken))
	fmt.Printf("API key header: %s\n", auth.APIKeyName)
	fmt.Printf("API key value: %s\n", redact(auth.APIKeyValue))
}

func redact(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + "****" + secret[len(secret)-2:]
}
