package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	qurandex "github.com/maknoon-cloud/qurandex/pkg/sdk"
)

var (
	searchLimit   int
	searchFilters []string
	searchFacets  bool
	searchRerank  bool
	searchTopK    int
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the apps directory",
	Long: `Runs a hybrid search: semantic vector retrieval with metadata
filtering, quality boosting, and optional LLM reranking.

Filters use type=value pairs and may repeat:

  qurandexctl search "مصحف" -f riwayah=hafs -f features=offline`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringArrayVarP(&searchFilters, "filter", "f", nil, "metadata filter, type=value")
	searchCmd.Flags().BoolVar(&searchFacets, "facets", false, "include facet counts")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "rerank the top candidates with the LLM")
	searchCmd.Flags().IntVar(&searchTopK, "rerank-top-k", 0, "rerank window size (default: server-side)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	filters, err := parseFilters(searchFilters)
	if err != nil {
		return err
	}

	res, err := newClient().Search(cmd.Context(), qurandex.SearchRequest{
		Query:         args[0],
		Filters:       filters,
		Limit:         searchLimit,
		RerankTopK:    searchTopK,
		IncludeFacets: searchFacets,
		Rerank:        searchRerank,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, res)
	}

	if len(res.Items) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results (%s mode):\n\n", res.Mode)
	for i, item := range res.Items {
		cmd.Printf("%2d. %s  score=%.4f boost=%.2f\n", i+1, item.ID, item.CombinedScore, item.MetadataBoost)
		if len(item.MatchReasons) > 0 {
			reasons := make([]string, len(item.MatchReasons))
			for j, r := range item.MatchReasons {
				reasons[j] = r.Type + "=" + r.Value
			}
			cmd.Printf("    matches: %s\n", strings.Join(reasons, ", "))
		}
		if item.AIReasoning != "" {
			cmd.Printf("    reasoning: %s\n", item.AIReasoning)
		}
	}

	if len(res.Facets) > 0 {
		cmd.Println("\nFacets:")
		for facetType, counts := range res.Facets {
			cmd.Printf("  %s:\n", facetType)
			for _, fc := range counts {
				cmd.Printf("    %s (%d)\n", fc.Value, fc.Count)
			}
		}
	}
	return nil
}

func parseFilters(pairs []string) (map[string][]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string][]string)
	for _, pair := range pairs {
		metaType, value, ok := strings.Cut(pair, "=")
		if !ok || metaType == "" || value == "" {
			return nil, fmt.Errorf("invalid filter %q, expected type=value", pair)
		}
		filters[metaType] = append(filters[metaType], value)
	}
	return filters, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
