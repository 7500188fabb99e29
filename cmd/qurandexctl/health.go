package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		report, err := newClient().Health(cmd.Context())
		if err != nil {
			return err
		}

		cmd.Printf("status: %s\n", report.Status)
		for component, status := range report.Components {
			cmd.Printf("  %s: %s\n", component, status)
		}
		if report.Status == "down" {
			return fmt.Errorf("service is down")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
