// Package migrate holds the batch maintenance jobs run by the cmd tools:
// bulk POI subcollection migration and legacy numeric-field cleanup.
package migrate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/journeylog/journeylog-backend/internal/domain"
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
	"github.com/journeylog/journeylog-backend/internal/store"
)

// POIOptions controls a bulk POI migration run.
type POIOptions struct {
	Collection string
	POISub     string
	// IDs restricts the run to specific characters; empty scans the whole
	// collection.
	IDs         []string
	DryRun      bool
	Limit       int
	Concurrency int
}

// POIRunStats aggregates per-character results across a run.
type POIRunStats struct {
	mu sync.Mutex

	Scanned      int      `json:"scanned"`
	Migrated     int      `json:"migrated"`
	Skipped      int      `json:"skipped"`
	Failed       int      `json:"failed"`
	POIsMigrated int      `json:"pois_migrated"`
	POIsSkipped  int      `json:"pois_skipped"`
	POIErrors    int      `json:"poi_errors"`
	FailedIDs    []string `json:"failed_ids,omitempty"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

type POIMigrator struct {
	gw  store.Gateway
	log *logger.Logger
	opt POIOptions
}

func NewPOIMigrator(gw store.Gateway, baseLog *logger.Logger, opt POIOptions) *POIMigrator {
	if opt.Collection == "" {
		opt.Collection = "characters"
	}
	if opt.POISub == "" {
		opt.POISub = "pois"
	}
	if opt.Concurrency < 1 {
		opt.Concurrency = 4
	}
	return &POIMigrator{
		gw:  gw,
		log: baseLog.With("job", "migrate_pois"),
		opt: opt,
	}
}

// Run migrates every targeted character and returns aggregate stats. The
// returned error covers scan failures only; per-character failures are
// counted in the stats so a partial run still reports what it did.
func (m *POIMigrator) Run(ctx context.Context) (*POIRunStats, error) {
	stats := &POIRunStats{Started: time.Now().UTC()}

	ids := m.opt.IDs
	if len(ids) == 0 {
		scanned, err := m.scanIDs(ctx)
		if err != nil {
			return stats, err
		}
		ids = scanned
	}
	if m.opt.Limit > 0 && len(ids) > m.opt.Limit {
		ids = ids[:m.opt.Limit]
	}
	m.log.Info("poi_migration_scan_complete", "candidates", len(ids), "dry_run", m.opt.DryRun)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opt.Concurrency)
	for _, id := range ids {
		characterID := id
		g.Go(func() error {
			m.migrateOne(gctx, characterID, stats)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	stats.Finished = time.Now().UTC()
	m.log.Info("poi_migration_complete",
		"scanned", stats.Scanned,
		"migrated", stats.Migrated,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"pois_migrated", stats.POIsMigrated,
	)
	return stats, nil
}

func (m *POIMigrator) scanIDs(ctx context.Context) ([]string, error) {
	q := store.Query{Path: m.opt.Collection}
	if m.opt.Limit > 0 {
		q.Limit = m.opt.Limit
	}
	recs, err := m.gw.QueryOrdered(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", m.opt.Collection, err)
	}
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (m *POIMigrator) migrateOne(ctx context.Context, characterID string, stats *POIRunStats) {
	stats.mu.Lock()
	stats.Scanned++
	stats.mu.Unlock()

	rec, err := m.gw.GetDocument(ctx, m.opt.Collection, characterID)
	if err != nil {
		m.fail(stats, characterID, err)
		return
	}
	if rec == nil {
		m.log.Warn("poi_migration_character_not_found", "character_id", characterID)
		m.skip(stats)
		return
	}
	embedded, _ := rec.Data["world_pois"].([]interface{})
	if len(embedded) == 0 {
		m.skip(stats)
		return
	}

	if m.opt.DryRun {
		m.log.Info("poi_migration_dry_run",
			"character_id", characterID,
			"embedded_count", len(embedded),
		)
		stats.mu.Lock()
		stats.Migrated++
		stats.POIsMigrated += len(embedded)
		stats.mu.Unlock()
		return
	}

	var migrated, skipped, errCount int
	err = m.gw.RunAtomic(ctx, func(tx store.Tx) error {
		migrated, skipped, errCount = 0, 0, 0
		cur, err := tx.Get(m.opt.Collection, characterID)
		if err != nil {
			return err
		}
		if cur == nil {
			return nil
		}
		pois, _ := cur.Data["world_pois"].([]interface{})
		if len(pois) == 0 {
			return nil
		}
		migrated, skipped, errCount, err = CopyEmbeddedPOIs(tx, m.opt.Collection, m.opt.POISub, characterID, pois)
		return err
	})
	if err != nil {
		m.fail(stats, characterID, err)
		return
	}

	m.log.Info("poi_migration_character_done",
		"character_id", characterID,
		"migrated", migrated,
		"skipped", skipped,
		"errors", errCount,
	)
	stats.mu.Lock()
	stats.Migrated++
	stats.POIsMigrated += migrated
	stats.POIsSkipped += skipped
	stats.POIErrors += errCount
	stats.mu.Unlock()
}

func (m *POIMigrator) skip(stats *POIRunStats) {
	stats.mu.Lock()
	stats.Skipped++
	stats.mu.Unlock()
}

func (m *POIMigrator) fail(stats *POIRunStats, characterID string, err error) {
	m.log.Error("poi_migration_character_failed", "character_id", characterID, "error", err)
	stats.mu.Lock()
	stats.Failed++
	stats.FailedIDs = append(stats.FailedIDs, characterID)
	stats.mu.Unlock()
}

// CopyEmbeddedPOIs copies an embedded world_pois array into the POI
// subcollection inside tx, skipping ids already present, then deletes the
// embedded field. All transaction reads happen before the first write.
func CopyEmbeddedPOIs(tx store.Tx, collection, poiSub, characterID string, embedded []interface{}) (migrated, skipped, errCount int, err error) {
	poiPath := collection + "/" + characterID + "/" + poiSub
	existing, err := tx.Query(store.Query{Path: poiPath})
	if err != nil {
		return 0, 0, 0, err
	}
	existingIDs := make(map[string]bool, len(existing))
	for _, rec := range existing {
		existingIDs[rec.ID] = true
	}

	for _, raw := range embedded {
		entry, _ := raw.(map[string]interface{})
		if entry == nil {
			errCount++
			continue
		}
		poiID, _ := entry["id"].(string)
		if poiID == "" {
			errCount++
			continue
		}
		if existingIDs[poiID] {
			skipped++
			continue
		}
		e, convErr := domain.EmbeddedPOIFromStored(entry)
		if convErr != nil {
			errCount++
			continue
		}
		converted := e.ToPOI()
		if err := tx.Set(poiPath, poiID, domain.POIToStored(&converted)); err != nil {
			return migrated, skipped, errCount, err
		}
		migrated++
	}

	err = tx.Update(collection, characterID, []store.Update{
		{Field: "world_pois", Value: store.DeleteField},
		{Field: "updated_at", Value: store.ServerTimestamp},
	})
	return migrated, skipped, errCount, err
}
