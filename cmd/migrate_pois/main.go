package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

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
	var concurrency int
	flag.Var(&ids, "character-id", "character id to migrate (repeatable; default all)")
	flag.BoolVar(&dryRun, "dry-run", false, "report what would be migrated without writing")
	flag.IntVar(&limit, "limit", 0, "limit number of characters processed")
	flag.IntVar(&concurrency, "concurrency", 4, "characters migrated in parallel")
	flag.Parse()

	ctx := context.Background()
	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Shutdown(ctx)

	migrator := migrate.NewPOIMigrator(application.Gateway, application.Log, migrate.POIOptions{
		Collection:  application.Cfg.CharactersCollection,
		POISub:      application.Cfg.POISub,
		IDs:         ids,
		DryRun:      dryRun,
		Limit:       limit,
		Concurrency: concurrency,
	})

	stats, err := migrator.Run(ctx)
	if err != nil {
		fmt.Printf("migration failed: %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(out))
	if stats.Failed > 0 {
		fmt.Printf("completed with %d failed characters: %s\n", stats.Failed, strings.Join(stats.FailedIDs, ", "))
		os.Exit(1)
	}
	fmt.Printf("done; migrated=%d skipped=%d\n", stats.Migrated, stats.Skipped)
}
