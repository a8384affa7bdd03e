package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ragdex/internal/domain/search/request"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

var (
	queryUser string
	queryTopK int
	queryDocs []string
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Retrieve the chunks of a user most relevant to a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryUser, "user", "u", "", "owner whose documents are searched (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (0 uses the configured default)")
	queryCmd.Flags().StringSliceVar(&queryDocs, "doc", nil, "restrict to these document ids")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	_ = queryCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	req, err := request.New(queryUser, args[0], queryTopK, queryDocs)
	if err != nil {
		return err
	}

	cfg, logger, _, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	resp, err := a.search.Query(ctx, &req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, &resp)
	}
	outputQueryText(cmd, &resp)
	return nil
}

type queryHit struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	PageStart  int     `json:"page_start"`
	PageEnd    int     `json:"page_end"`
	Score      float64 `json:"score"`
	MatchCount int     `json:"match_count"`
	Excerpt    string  `json:"excerpt"`
}

func outputQueryJSON(cmd *cobra.Command, resp *result.Response) error {
	hits := make([]queryHit, len(resp.Results))
	for i := range resp.Results {
		r := &resp.Results[i]
		h := queryHit{
			DocumentID: r.DocumentID(),
			Filename:   r.Filename(),
			ChunkIndex: r.ChunkIndex(),
			PageStart:  r.PageStart(),
			PageEnd:    r.PageEnd(),
			Score:      r.Score(),
			Excerpt:    r.Excerpt(),
		}
		if s := r.Signals(); s != nil {
			h.MatchCount = s.MatchCount
		}
		hits[i] = h
	}

	data, err := json.MarshalIndent(struct {
		Query   string     `json:"query"`
		Weak    bool       `json:"weak"`
		Results []queryHit `json:"results"`
	}{resp.Query, resp.Weak, hits}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryText(cmd *cobra.Command, resp *result.Response) {
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return
	}
	if resp.Weak {
		cmd.Println("(weak match: no result shares a term with the query)")
	}
	for i := range resp.Results {
		r := &resp.Results[i]
		pages := fmt.Sprintf("p.%d", r.PageStart())
		if r.PageEnd() != r.PageStart() {
			pages = fmt.Sprintf("pp.%d-%d", r.PageStart(), r.PageEnd())
		}
		cmd.Printf("[%d] %s %s (%.3f)\n", i+1, r.Filename(), pages, r.Score())
		cmd.Printf("    %s\n\n", r.Excerpt())
	}
}
