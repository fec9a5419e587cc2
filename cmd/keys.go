package cmd

import (
	"os"
	"strconv"

	"github.com/apigatehq/apigate-cli/client"
	"github.com/apigatehq/apigate-cli/pkg/validation"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// keysCmd groups the subcommands for managing API keys.
func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys on the Apigate server",
	}
	cmd.AddCommand(
		listKeysCmd(),
		createKeyCmd(),
		revokeKeyCmd(),
	)
	return cmd
}

func listKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your API keys",
		Run: func(cmd *cobra.Command, args []string) {
			c, err := newAPIClient()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			keys, err := c.ListKeys(cmd.Context())
			if err != nil {
				cmd.PrintErrln("Error: Failed to list keys:", err)
				return
			}
			if len(keys) == 0 {
				cmd.Println("No API keys found.")
				return
			}
			renderKeyTable(keys)
		},
	}
}

func createKeyCmd() *cobra.Command {
	var label, scopes string
	var expiresInDays int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new API key",
		Long:  "Issue a new API key. The key value is shown exactly once; store it somewhere safe.",
		Run: func(cmd *cobra.Command, args []string) {
			if err := validation.ValidateNonEmptyString("label", label); err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			c, err := newAPIClient()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			key, err := c.CreateKey(cmd.Context(), label, scopes, expiresInDays)
			if err != nil {
				cmd.PrintErrln("Error: Failed to create key:", err)
				return
			}
			cmd.Printf("Created key %d (%s).\n", key.ID, key.Label)
			cmd.Println("Key (shown only once):", key.Key)
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "Label for the new key")
	cmd.Flags().StringVarP(&scopes, "scopes", "s", "", "Space-separated scopes for the new key")
	cmd.Flags().IntVarP(&expiresInDays, "expires-in", "e", 0, "Expiry in days (0 means no expiry)")
	return cmd
}

func revokeKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke [keyID]",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := parseIDArg("key ID", args[0])
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			c, err := newAPIClient()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			if err := c.RevokeKey(cmd.Context(), id); err != nil {
				cmd.PrintErrln("Error: Failed to revoke key:", err)
				return
			}
			cmd.Printf("Revoked key %d.\n", id)
		},
	}
}

func renderKeyTable(keys []client.APIKey) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Label", "Key", "Scopes", "Revoked", "Expires"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)

	for _, key := range keys {
		table.Append([]string{
			strconv.Itoa(key.ID),
			key.Label,
			key.KeyPreview,
			key.Scopes,
			strconv.FormatBool(key.Revoked),
			key.ExpiresAt,
		})
	}
	table.Render()
}
