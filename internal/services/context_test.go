package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/journeylog/journeylog-backend/internal/domain"
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
)

func newContextService(gw *fakeGateway) ContextService {
	return NewContextService(gw, logger.NewNop(), DefaultConfig())
}

func defaultOpts() ContextOptions {
	return ContextOptions{
		RecentN:          20,
		IncludeNarrative: true,
		IncludeCombat:    true,
		IncludeQuest:     true,
		IncludePOIs:      false,
	}
}

func TestContextShapeStability(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	svc := newContextService(gw)
	ctx := context.Background()
	owner := strPtr("user123")

	wantKeys := []string{
		"character_id", "player_state", "quest", "has_active_quest",
		"combat", "narrative", "world", "metadata",
	}
	for mask := 0; mask < 16; mask++ {
		opts := ContextOptions{
			RecentN:          20,
			IncludeNarrative: mask&1 != 0,
			IncludeCombat:    mask&2 != 0,
			IncludeQuest:     mask&4 != 0,
			IncludePOIs:      mask&8 != 0,
		}
		resp, err := svc.Get(ctx, charID, owner, opts)
		if err != nil {
			t.Fatalf("flags %04b: %v", mask, err)
		}
		raw, err := json.Marshal(resp)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		for _, key := range wantKeys {
			if _, ok := decoded[key]; !ok {
				t.Fatalf("flags %04b: missing top-level key %q in %s", mask, key, raw)
			}
		}
	}
}

func TestContextReadCounts(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	narrative := newNarrativeService(gw)
	ctx := context.Background()
	owner := strPtr("user123")
	if _, _, err := narrative.Append(ctx, charID, owner, AppendTurnInput{
		PlayerAction: "look", GMResponse: "a quiet road",
	}); err != nil {
		t.Fatalf("seed turn: %v", err)
	}
	svc := newContextService(gw)

	// All optional sections off: exactly one read.
	gw.resetCounters()
	opts := defaultOpts()
	opts.IncludeNarrative = false
	opts.IncludeCombat = false
	opts.IncludeQuest = false
	if _, err := svc.Get(ctx, charID, owner, opts); err != nil {
		t.Fatalf("context: %v", err)
	}
	if gw.reads() != 1 {
		t.Fatalf("reads with all sections off: %d", gw.reads())
	}

	// Narrative on: exactly one more.
	gw.resetCounters()
	opts.IncludeNarrative = true
	if _, err := svc.Get(ctx, charID, owner, opts); err != nil {
		t.Fatalf("context: %v", err)
	}
	if gw.reads() != 2 {
		t.Fatalf("reads with narrative on: %d", gw.reads())
	}

	// Quest and combat come off the root document at no extra cost.
	gw.resetCounters()
	opts.IncludeCombat = true
	opts.IncludeQuest = true
	if _, err := svc.Get(ctx, charID, owner, opts); err != nil {
		t.Fatalf("context: %v", err)
	}
	if gw.reads() != 2 {
		t.Fatalf("reads with combat+quest on: %d", gw.reads())
	}

	// POIs add at most one more read; the embedded fallback reuses the root
	// document rather than issuing a fourth.
	gw.resetCounters()
	opts.IncludePOIs = true
	if _, err := svc.Get(ctx, charID, owner, opts); err != nil {
		t.Fatalf("context: %v", err)
	}
	if gw.reads() != 3 {
		t.Fatalf("reads with pois on: %d", gw.reads())
	}
}

func TestContextRecentNBoundaries(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	svc := newContextService(gw)
	ctx := context.Background()
	owner := strPtr("user123")

	for _, n := range []int{1, 100} {
		opts := defaultOpts()
		opts.RecentN = n
		if _, err := svc.Get(ctx, charID, owner, opts); err != nil {
			t.Fatalf("recent_n=%d rejected: %v", n, err)
		}
	}
	// The bound holds even when narrative is excluded.
	for _, n := range []int{0, 101} {
		opts := defaultOpts()
		opts.RecentN = n
		opts.IncludeNarrative = false
		_, err := svc.Get(ctx, charID, owner, opts)
		wantStatus(t, err, http.StatusBadRequest)
	}
}

func TestContextRequestedVsReturned(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	narrative := newNarrativeService(gw)
	ctx := context.Background()
	owner := strPtr("user123")
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		if _, _, err := narrative.Append(ctx, charID, owner, AppendTurnInput{
			PlayerAction: "step", GMResponse: "onward", Timestamp: &ts,
		}); err != nil {
			t.Fatalf("seed turn %d: %v", i, err)
		}
	}
	svc := newContextService(gw)

	opts := defaultOpts()
	opts.RecentN = 5
	resp, err := svc.Get(ctx, charID, owner, opts)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if resp.Narrative.RequestedN != 5 || resp.Narrative.ReturnedN != 2 {
		t.Fatalf("narrative meta: %+v", resp.Narrative)
	}
	if resp.Metadata.NarrativeRequestedN != 5 {
		t.Fatalf("metadata echo: %+v", resp.Metadata)
	}
}

func TestContextSectionContents(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	ctx := context.Background()
	owner := strPtr("user123")

	quest := &domain.Quest{
		Name: "Find the amulet", Description: "Recover it",
		CompletionState: domain.QuestInProgress,
	}
	if _, err := NewQuestService(gw, logger.NewNop(), DefaultConfig()).Set(ctx, charID, owner, quest); err != nil {
		t.Fatalf("seed quest: %v", err)
	}
	if _, err := newCombatService(gw).Update(ctx, charID, owner, combatWith(
		domain.Enemy{EnemyID: "e1", Name: "Goblin", Status: domain.StatusHealthy},
	)); err != nil {
		t.Fatalf("seed combat: %v", err)
	}
	svc := newContextService(gw)

	resp, err := svc.Get(ctx, charID, owner, defaultOpts())
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if !resp.HasActiveQuest || resp.Quest == nil || resp.Quest.Name != "Find the amulet" {
		t.Fatalf("quest section: %+v has_active=%v", resp.Quest, resp.HasActiveQuest)
	}
	if !resp.Combat.Active || resp.Combat.State == nil {
		t.Fatalf("combat section: %+v", resp.Combat)
	}

	// Disabled flags collapse contents but never drop keys.
	opts := defaultOpts()
	opts.IncludeQuest = false
	opts.IncludeCombat = false
	resp, err = svc.Get(ctx, charID, owner, opts)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if resp.Quest != nil || resp.HasActiveQuest {
		t.Fatalf("quest not neutralized: %+v", resp.Quest)
	}
	if resp.Combat.Active || resp.Combat.State != nil {
		t.Fatalf("combat not neutralized: %+v", resp.Combat)
	}
}

func TestContextPOISampleEmbeddedFallback(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	ctx := context.Background()
	owner := strPtr("user123")

	// Embedded legacy POIs only; subcollection empty.
	doc := gw.docs["characters"][charID]
	doc["world_pois"] = []interface{}{
		map[string]interface{}{"id": "p1", "name": "Old Mill", "description": "ruined"},
		map[string]interface{}{"id": "p2", "name": "Stone Bridge", "description": "mossy"},
	}
	svc := newContextService(gw)

	opts := defaultOpts()
	opts.IncludePOIs = true
	resp, err := svc.Get(ctx, charID, owner, opts)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if len(resp.World.POIsSample) != 2 {
		t.Fatalf("embedded fallback sample: %+v", resp.World.POIsSample)
	}
	if !resp.World.IncludePOIs || resp.World.POIsCap != 3 {
		t.Fatalf("world meta: %+v", resp.World)
	}

	// Flag off: sample list is empty but the section is present.
	opts.IncludePOIs = false
	resp, err = svc.Get(ctx, charID, owner, opts)
	if err != nil {
		t.Fatalf("context: %v", err)
	}
	if len(resp.World.POIsSample) != 0 || resp.World.IncludePOIs {
		t.Fatalf("world section with flag off: %+v", resp.World)
	}
}
