// qurandexctl is a command-line client for a qurandex API server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maknoon-cloud/qurandex/internal/version"
	qurandex "github.com/maknoon-cloud/qurandex/pkg/sdk"
)

var (
	serverAddr string
	apiKey     string
)

var rootCmd = &cobra.Command{
	Use:   "qurandexctl",
	Short: "Client for the qurandex Quran apps search service",
	Long: `qurandexctl talks to a running qurandex API server: hybrid semantic
search over a directory of Quran applications, app entry indexing, and
service health.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print client version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("qurandexctl %s\n", version.String())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", envOr("QURANDEX_ADDR", "http://localhost:8080"),
		"qurandex server address")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("QURANDEX_API_KEY"),
		"API key (Bearer token)")
	rootCmd.AddCommand(versionCmd)
}

func newClient() *qurandex.Client {
	var opts []qurandex.Option
	if apiKey != "" {
		opts = append(opts, qurandex.WithAPIKey(apiKey))
	}
	return qurandex.New(serverAddr, opts...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
