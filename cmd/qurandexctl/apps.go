package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	qurandex "github.com/maknoon-cloud/qurandex/pkg/sdk"
)

var (
	listCursor string
	listLimit  int
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Manage indexed app entries",
}

var appsGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Fetch one app entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newClient().GetApp(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, app)
	},
}

var appsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete one app entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteApp(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var appsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List app entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		list, err := newClient().ListApps(cmd.Context(), listCursor, listLimit)
		if err != nil {
			return err
		}
		for _, app := range list.Items {
			cmd.Println(app.ID)
		}
		if list.HasMore {
			cmd.Printf("\nmore available, continue with --cursor %s\n", list.NextCursor)
		}
		return nil
	},
}

var appsUpsertCmd = &cobra.Command{
	Use:   "upsert [id] [file.json]",
	Short: "Index one app entry from a JSON file",
	Long: `Reads an app entry from a JSON file, builds its searchable text on
the server, embeds it, and stores it. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var app qurandex.App
		if err := readJSONFile(args[1], &app); err != nil {
			return err
		}
		if err := newClient().UpsertApp(cmd.Context(), args[0], app); err != nil {
			return err
		}
		cmd.Printf("Indexed %s\n", args[0])
		return nil
	},
}

var appsBatchCmd = &cobra.Command{
	Use:   "batch [file.json]",
	Short: "Index app entries in bulk from a JSON file",
	Long: `Reads a JSON array of app entries (each with an "id" field) and
indexes them in one request. Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var apps []qurandex.BatchApp
		if err := readJSONFile(args[0], &apps); err != nil {
			return err
		}

		res, err := newClient().BatchUpsert(cmd.Context(), apps)
		if err != nil {
			return err
		}

		for _, item := range res.Items {
			if item.Error != nil {
				cmd.Printf("%s: FAILED (%s)\n", item.ID, item.Error.Message)
			}
		}
		cmd.Printf("Indexed %d, failed %d\n", res.Succeeded, res.Failed)
		if res.Failed > 0 {
			return fmt.Errorf("%d items failed", res.Failed)
		}
		return nil
	},
}

func init() {
	appsListCmd.Flags().StringVar(&listCursor, "cursor", "", "continue from cursor")
	appsListCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "page size")

	appsCmd.AddCommand(appsGetCmd, appsDeleteCmd, appsListCmd, appsUpsertCmd, appsBatchCmd)
	rootCmd.AddCommand(appsCmd)
}

func readJSONFile(path string, v any) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
