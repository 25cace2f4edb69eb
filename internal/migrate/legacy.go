package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/journeylog/journeylog-backend/internal/domain"
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
	"github.com/journeylog/journeylog-backend/internal/store"
)

// LegacyFieldOptions controls a numeric-field cleanup run.
type LegacyFieldOptions struct {
	Collection string
	IDs        []string
	DryRun     bool
	Limit      int
	// BatchSize documents are processed between BatchDelay pauses so a
	// large run does not hammer the store.
	BatchSize  int
	BatchDelay time.Duration
}

// LegacyFieldStats summarizes a cleanup run.
type LegacyFieldStats struct {
	Processed     int            `json:"processed"`
	Cleaned       int            `json:"cleaned"`
	SkippedBadDoc int            `json:"skipped_bad_doc"`
	Failed        int            `json:"failed"`
	FieldsRemoved map[string]int `json:"fields_removed"`
}

// LegacyFieldCleaner removes deprecated numeric health fields (level,
// experience, hit points and friends) from player_state. Documents whose
// status field is missing or invalid are left untouched for manual review.
type LegacyFieldCleaner struct {
	gw  store.Gateway
	log *logger.Logger
	opt LegacyFieldOptions
}

func NewLegacyFieldCleaner(gw store.Gateway, baseLog *logger.Logger, opt LegacyFieldOptions) *LegacyFieldCleaner {
	if opt.Collection == "" {
		opt.Collection = "characters"
	}
	if opt.BatchSize < 1 {
		opt.BatchSize = 10
	}
	return &LegacyFieldCleaner{
		gw:  gw,
		log: baseLog.With("job", "remove_numeric_health"),
		opt: opt,
	}
}

func (c *LegacyFieldCleaner) Run(ctx context.Context) (*LegacyFieldStats, error) {
	stats := &LegacyFieldStats{FieldsRemoved: map[string]int{}}

	ids := c.opt.IDs
	if len(ids) == 0 {
		q := store.Query{Path: c.opt.Collection}
		if c.opt.Limit > 0 {
			q.Limit = c.opt.Limit
		}
		recs, err := c.gw.QueryOrdered(ctx, q)
		if err != nil {
			return stats, fmt.Errorf("scan %s: %w", c.opt.Collection, err)
		}
		for _, r := range recs {
			ids = append(ids, r.ID)
		}
	}
	if c.opt.Limit > 0 && len(ids) > c.opt.Limit {
		ids = ids[:c.opt.Limit]
	}
	c.log.Info("legacy_cleanup_scan_complete", "candidates", len(ids), "dry_run", c.opt.DryRun)

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Processed++
		if err := c.cleanOne(ctx, id, stats); err != nil {
			stats.Failed++
			c.log.Error("legacy_cleanup_document_failed", "character_id", id, "error", err)
		}
		if (i+1)%c.opt.BatchSize == 0 && i+1 < len(ids) && c.opt.BatchDelay > 0 {
			time.Sleep(c.opt.BatchDelay)
		}
	}

	c.log.Info("legacy_cleanup_complete",
		"processed", stats.Processed,
		"cleaned", stats.Cleaned,
		"skipped_bad_doc", stats.SkippedBadDoc,
		"failed", stats.Failed,
	)
	return stats, nil
}

func (c *LegacyFieldCleaner) cleanOne(ctx context.Context, characterID string, stats *LegacyFieldStats) error {
	rec, err := c.gw.GetDocument(ctx, c.opt.Collection, characterID)
	if err != nil {
		return err
	}
	if rec == nil {
		c.log.Warn("legacy_cleanup_character_not_found", "character_id", characterID)
		return nil
	}

	playerState, _ := rec.Data["player_state"].(map[string]interface{})
	if playerState == nil {
		return nil
	}
	legacy := findLegacyFields(playerState)
	if len(legacy) == 0 {
		return nil
	}

	status, _ := playerState["status"].(string)
	if status == "" || !domain.Status(status).Valid() {
		c.log.Warn("legacy_cleanup_bad_status",
			"character_id", characterID,
			"status", status,
			"legacy_fields", legacy,
		)
		stats.SkippedBadDoc++
		return nil
	}

	if c.opt.DryRun {
		c.log.Info("legacy_cleanup_dry_run", "character_id", characterID, "would_remove", legacy)
	} else {
		updates := make([]store.Update, 0, len(legacy))
		for _, f := range legacy {
			updates = append(updates, store.Update{Field: "player_state." + f, Value: store.DeleteField})
		}
		err := c.gw.RunAtomic(ctx, func(tx store.Tx) error {
			cur, err := tx.Get(c.opt.Collection, characterID)
			if err != nil {
				return err
			}
			if cur == nil {
				return nil
			}
			return tx.Update(c.opt.Collection, characterID, updates)
		})
		if err != nil {
			return err
		}
		c.log.Info("legacy_cleanup_document_cleaned", "character_id", characterID, "removed", legacy)
	}

	stats.Cleaned++
	for _, f := range legacy {
		stats.FieldsRemoved[f]++
	}
	return nil
}

func findLegacyFields(playerState map[string]interface{}) []string {
	var found []string
	for _, f := range domain.DeprecatedPlayerFields {
		if _, ok := playerState[f]; ok {
			found = append(found, f)
		}
	}
	return found
}
