package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	dombatch "github.com/kailas-cloud/ragdex/internal/domain/batch"
	batchuc "github.com/kailas-cloud/ragdex/internal/usecase/batch"
)

var (
	ingestUser string
	ingestID   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Index files for a user",
	Long: `Extracts, chunks and embeds each file synchronously and stores it
under the given user. Re-ingesting a file with the same document id
replaces its chunks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestUser, "user", "u", "", "owner of the documents (required)")
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document id; only valid with a single file")
	_ = ingestCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestID != "" && len(args) > 1 {
		return fmt.Errorf("--id can only be used with a single file")
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

	items := make([]batchuc.Item, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		items = append(items, batchuc.Item{
			ID:       ingestID,
			Filename: filepath.Base(path),
			Content:  data,
		})
	}

	results := a.batch.Upsert(ctx, ingestUser, items)
	for i, r := range results {
		if r.Status() == dombatch.StatusOK {
			cmd.Printf("%s\t%s\t%d chunks\n", args[i], r.ID(), r.Chunks())
			continue
		}
		cmd.Printf("%s\tFAILED\t%v\n", args[i], r.Err())
	}

	sum := dombatch.Summarize(results)
	if !sum.OK() {
		return fmt.Errorf("%d of %d documents failed: %w", sum.Failed, len(results), sum.FirstErr)
	}
	return nil
}
