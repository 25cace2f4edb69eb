package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/journeylog/journeylog-backend/internal/app"
	"github.com/journeylog/journeylog-backend/internal/migrate"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var ids idList
	var dryRun bool
	var limit int
	var batchSize int
	var batchDelayMs int
	flag.Var(&ids, "character-id", "character id to clean (repeatable; default all)")
	flag.BoolVar(&dryRun, "dry-run", false, "report what would be removed without writing")
	flag.IntVar(&limit, "limit", 0, "limit number of documents processed")
	flag.IntVar(&batchSize, "batch-size", 10, "documents processed between delays")
	flag.IntVar(&batchDelayMs, "batch-delay-ms", 500, "pause between batches in milliseconds")
	flag.Parse()

	ctx := context.Background()
	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Shutdown(ctx)

	cleaner := migrate.NewLegacyFieldCleaner(application.Gateway, application.Log, migrate.LegacyFieldOptions{
		Collection: application.Cfg.CharactersCollection,
		IDs:        ids,
		DryRun:     dryRun,
		Limit:      limit,
		BatchSize:  batchSize,
		BatchDelay: time.Duration(batchDelayMs) * time.Millisecond,
	})

	stats, err := cleaner.Run(ctx)
	if err != nil {
		fmt.Printf("cleanup failed: %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(out))
	if stats.Failed > 0 {
		fmt.Printf("completed with %d failed documents\n", stats.Failed)
		os.Exit(1)
	}
	fmt.Printf("done; cleaned=%d skipped=%d\n", stats.Cleaned, stats.SkippedBadDoc)
}
