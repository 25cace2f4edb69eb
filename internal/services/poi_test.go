package services

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/journeylog/journeylog-backend/internal/domain"
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
)

func newPOIService(gw *fakeGateway) POIService {
	return NewPOIService(gw, logger.NewNop(), DefaultConfig())
}

func TestCreatePOIMigratesEmbedded(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	svc := newPOIService(gw)
	ctx := context.Background()
	owner := strPtr("user123")

	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	gw.docs["characters"][charID]["world_pois"] = []interface{}{
		map[string]interface{}{"id": "p1", "name": "Old Mill", "description": "ruined", "created_at": created},
		map[string]interface{}{"id": "p2", "name": "Stone Bridge", "description": "mossy", "created_at": created},
		map[string]interface{}{"name": "no id", "description": "broken entry"},
	}

	poi, stats, err := svc.Create(ctx, charID, owner, CreatePOIInput{
		Name: "Dark Cave", Description: "A yawning cave mouth", Tags: []string{"dungeon"},
	})
	if err != nil {
		t.Fatalf("create poi: %v", err)
	}
	if stats == nil {
		t.Fatal("expected migration stats")
	}
	if stats.TotalEmbedded != 3 || stats.Migrated != 2 || len(stats.Errors) != 1 {
		t.Fatalf("migration stats: %+v", stats)
	}

	poiPath := "characters/" + charID + "/pois"
	if _, ok := gw.docs["characters"][charID]["world_pois"]; ok {
		t.Fatal("embedded world_pois not removed")
	}
	for _, id := range []string{"p1", "p2", poi.POIID} {
		if _, ok := gw.docs[poiPath][id]; !ok {
			t.Fatalf("poi %s missing from subcollection", id)
		}
	}
	// Migrated entries keep their original discovery timestamp under the
	// subcollection field name.
	migrated := gw.docs[poiPath]["p1"]
	ts, _ := migrated["timestamp_discovered"].(time.Time)
	if !ts.Equal(created) {
		t.Fatalf("migrated timestamp: %v", migrated["timestamp_discovered"])
	}

	// Re-running create performs no second migration.
	_, stats, err = svc.Create(ctx, charID, owner, CreatePOIInput{
		Name: "Watchtower", Description: "Crumbling stones",
	})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if stats != nil {
		t.Fatalf("unexpected second migration: %+v", stats)
	}
}

func TestCreatePOIMigrationSkipsDuplicates(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	svc := newPOIService(gw)
	ctx := context.Background()
	owner := strPtr("user123")

	poiPath := "characters/" + charID + "/pois"
	gw.seed(poiPath, "p1", map[string]interface{}{
		"poi_id": "p1", "name": "Old Mill", "description": "already migrated",
	})
	gw.docs["characters"][charID]["world_pois"] = []interface{}{
		map[string]interface{}{"id": "p1", "name": "Old Mill", "description": "embedded copy"},
	}

	_, stats, err := svc.Create(ctx, charID, owner, CreatePOIInput{
		Name: "Dark Cave", Description: "A yawning cave mouth",
	})
	if err != nil {
		t.Fatalf("create poi: %v", err)
	}
	if stats == nil || stats.Skipped != 1 || stats.Migrated != 0 {
		t.Fatalf("dedup stats: %+v", stats)
	}
	// The subcollection copy wins.
	if gw.docs[poiPath]["p1"]["description"] != "already migrated" {
		t.Fatalf("duplicate overwrote subcollection copy: %+v", gw.docs[poiPath]["p1"])
	}
}

func TestCreatePOIEnforcesCap(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	svc := newPOIService(gw)
	ctx := context.Background()
	owner := strPtr("user123")

	poiPath := "characters/" + charID + "/pois"
	for i := 0; i < domain.MaxEmbeddedPOIs-1; i++ {
		id := fmt.Sprintf("p%03d", i)
		gw.seed(poiPath, id, map[string]interface{}{
			"poi_id": id, "name": "Site " + id, "description": "seeded",
			"timestamp_discovered": time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		})
	}

	// One slot left: this create fills the collection to the cap.
	if _, _, err := svc.Create(ctx, charID, owner, CreatePOIInput{
		Name: "Last Site", Description: "The final discovery",
	}); err != nil {
		t.Fatalf("create at cap boundary: %v", err)
	}

	_, _, err := svc.Create(ctx, charID, owner, CreatePOIInput{
		Name: "One Too Many", Description: "Should be refused",
	})
	wantStatus(t, err, http.StatusBadRequest)
}

func TestListPOIsFallsBackToEmbedded(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	svc := newPOIService(gw)
	ctx := context.Background()
	owner := strPtr("user123")

	gw.docs["characters"][charID]["world_pois"] = []interface{}{
		map[string]interface{}{"id": "p1", "name": "Old Mill", "description": "ruined"},
	}

	pois, meta, err := svc.List(ctx, charID, owner, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if meta.Source != "embedded" || len(pois) != 1 {
		t.Fatalf("embedded fallback: %+v / %+v", meta, pois)
	}

	// Once the subcollection has entries, it is preferred.
	if _, _, err := svc.Create(ctx, charID, owner, CreatePOIInput{
		Name: "Dark Cave", Description: "A yawning cave mouth",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	pois, meta, err = svc.List(ctx, charID, owner, 10)
	if err != nil {
		t.Fatalf("list after create: %v", err)
	}
	if meta.Source != "subcollection" {
		t.Fatalf("source after migration: %+v", meta)
	}
	if len(pois) != 2 {
		t.Fatalf("poi count after migration: %d", len(pois))
	}
}

func TestPOISummaryProjection(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	svc := newPOIService(gw)
	ctx := context.Background()
	owner := strPtr("user123")

	if _, _, err := svc.Create(ctx, charID, owner, CreatePOIInput{
		Name: "Dark Cave", Description: "A yawning cave mouth", Tags: []string{"dungeon", "dark"},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	summaries, _, err := svc.Summary(ctx, charID, owner, 10)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Name != "Dark Cave" || len(summaries[0].Tags) != 2 {
		t.Fatalf("summaries: %+v", summaries)
	}
}
