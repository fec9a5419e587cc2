package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apigatehq/apigate-cli/client"
	"github.com/apigatehq/apigate-cli/pkg/clierr"
	"github.com/apigatehq/apigate-cli/pkg/pool"
	"github.com/apigatehq/apigate-cli/pkg/validation"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// apisCmd groups the subcommands for managing API definitions.
func apisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apis",
		Short: "Manage API definitions on the Apigate server",
	}
	cmd.AddCommand(
		listAPIsCmd(),
		showAPICmd(),
		createAPICmd(),
		deleteAPICmd(),
		exportAPIsCmd(),
	)
	return cmd
}

func listAPIsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all API definitions",
		Run: func(cmd *cobra.Command, args []string) {
			c, err := newAPIClient()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			apis, err := c.ListAPIs(cmd.Context())
			if err != nil {
				cmd.PrintErrln("Error: Failed to list APIs:", err)
				return
			}
			if len(apis) == 0 {
				cmd.Println("No APIs found.")
				return
			}
			renderAPITable(apis)
		},
	}
}

func showAPICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [apiID]",
		Short: "Show a single API definition",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := parseIDArg("API ID", args[0])
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			c, err := newAPIClient()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			api, err := c.GetAPI(cmd.Context(), id)
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
					cmd.PrintErrln("Error:", clierr.New(clierr.NotFound, fmt.Sprintf("API %d not found", id), err))
				} else {
					cmd.PrintErrln("Error: Failed to fetch API:", err)
				}
				return
			}
			cmd.Println("ID:", api.ID)
			cmd.Println("Name:", api.Name)
			cmd.Println("Version:", api.Version)
			if api.Description != "" {
				cmd.Println("Description:", api.Description)
			}
		},
	}
}

func createAPICmd() *cobra.Command {
	var name, version, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new API definition",
		Run: func(cmd *cobra.Command, args []string) {
			if err := validation.ValidateNonEmptyString("name", name); err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			if err := validation.ValidateNonEmptyString("version", version); err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			c, err := newAPIClient()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			created, err := c.CreateAPI(cmd.Context(), client.API{
				Name:        name,
				Version:     version,
				Description: description,
			})
			if err != nil {
				cmd.PrintErrln("Error: Failed to create API:", err)
				return
			}
			cmd.Printf("Created API %q %s with ID %d.\n", created.Name, created.Version, created.ID)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the API")
	cmd.Flags().StringVarP(&version, "version", "v", "", "Version of the API")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the API")
	return cmd
}

func deleteAPICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [apiID]",
		Short: "Delete an API definition",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := parseIDArg("API ID", args[0])
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			c, err := newAPIClient()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			if err := c.DeleteAPI(cmd.Context(), id); err != nil {
				cmd.PrintErrln("Error: Failed to delete API:", err)
				return
			}
			cmd.Printf("Deleted API %d.\n", id)
		},
	}
}

// exportAPIsCmd fetches every API definition concurrently and writes one
// JSON file per API into the output directory.
func exportAPIsCmd() *cobra.Command {
	var outDir string
	var workers int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all API definitions to JSON files",
		Run: func(cmd *cobra.Command, args []string) {
			if err := validation.ValidateWorkerCount(workers); err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			c, err := newAPIClient()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			apis, err := c.ListAPIs(cmd.Context())
			if err != nil {
				cmd.PrintErrln("Error: Failed to list APIs:", err)
				return
			}
			if err := os.MkdirAll(outDir, 0o750); err != nil {
				cmd.PrintErrln("Error: Failed to create output directory:", err)
				return
			}

			errs := pool.Run(cmd.Context(), apis, workers, func(ctx context.Context, api client.API) error {
				full, err := c.GetAPI(ctx, api.ID)
				if err != nil {
					return fmt.Errorf("API %d: %w", api.ID, err)
				}
				data, err := json.MarshalIndent(full, "", "  ")
				if err != nil {
					return fmt.Errorf("API %d: %w", api.ID, err)
				}
				name := fmt.Sprintf("%s-%s.json", sanitizeFileName(full.Name), sanitizeFileName(full.Version))
				return os.WriteFile(filepath.Join(outDir, name), data, 0o640)
			})
			for _, err := range errs {
				log.Error().Err(err).Msg("Export failed for an API")
				cmd.PrintErrln("Error:", err)
			}
			cmd.Printf("Exported %d of %d APIs to %s.\n", len(apis)-len(errs), len(apis), outDir)
		},
	}

	cmd.Flags().StringVarP(&outDir, "dir", "o", "apis-export", "Directory to write the exported files to")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Number of concurrent export workers")
	return cmd
}

func renderAPITable(apis []client.API) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Version", "Description"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)

	for _, api := range apis {
		table.Append([]string{
			strconv.Itoa(api.ID),
			api.Name,
			api.Version,
			api.Description,
		})
	}
	table.Render()
}

func parseIDArg(name, raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	if err := validation.ValidatePositiveID(name, id); err != nil {
		return 0, err
	}
	return id, nil
}

// sanitizeFileName replaces path separators and spaces so API names can be
// used as file names.
func sanitizeFileName(s string) string {
	s = strings.ReplaceAll(s, string(os.PathSeparator), "_")
	s = strings.ReplaceAll(s, "/", "_")
	return strings.ReplaceAll(s, " ", "_")
}
