package services

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/journeylog/journeylog-backend/internal/domain"
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
)

func newQuestService(gw *fakeGateway) QuestService {
	return NewQuestService(gw, logger.NewNop(), DefaultConfig())
}

func sampleQuest(name string) *domain.Quest {
	return &domain.Quest{
		Name:            name,
		Description:     "A quest",
		Requirements:    []string{"travel north"},
		Rewards:         domain.QuestRewards{Items: []string{"map"}, Currency: map[string]int{"gold": 5}},
		CompletionState: domain.QuestNotStarted,
	}
}

func TestSetQuestRequiresEmptySlot(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	svc := newQuestService(gw)
	ctx := context.Background()
	owner := strPtr("user123")

	stored, err := svc.Set(ctx, charID, owner, sampleQuest("First"))
	if err != nil {
		t.Fatalf("set quest: %v", err)
	}
	if stored.UpdatedAt.IsZero() {
		t.Fatal("updated_at not stamped")
	}

	// Second set without deleting is a conflict.
	_, err = svc.Set(ctx, charID, owner, sampleQuest("Second"))
	wantStatus(t, err, http.StatusConflict)

	// Owner is mandatory for mutation.
	_, err = svc.Set(ctx, charID, nil, sampleQuest("Third"))
	wantStatus(t, err, http.StatusBadRequest)
}

func TestGetQuestNullWhenAbsent(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	svc := newQuestService(gw)
	ctx := context.Background()

	quest, err := svc.Get(ctx, charID, nil)
	if err != nil {
		t.Fatalf("get quest: %v", err)
	}
	if quest != nil {
		t.Fatalf("expected nil quest, got %+v", quest)
	}
}

func TestDeleteQuestArchives(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	svc := newQuestService(gw)
	ctx := context.Background()
	owner := strPtr("user123")

	if _, err := svc.Set(ctx, charID, owner, sampleQuest("First")); err != nil {
		t.Fatalf("set quest: %v", err)
	}
	archived, err := svc.Delete(ctx, charID, owner)
	if err != nil {
		t.Fatalf("delete quest: %v", err)
	}
	if archived.ClearedAt == nil {
		t.Fatal("cleared_at not set on archived quest")
	}

	// The active slot is free again and the archive holds the entry.
	if _, err := svc.Set(ctx, charID, owner, sampleQuest("Second")); err != nil {
		t.Fatalf("set after delete: %v", err)
	}
	rawArchive, _ := gw.docs["characters"][charID]["archived_quests"].([]interface{})
	if len(rawArchive) != 1 {
		t.Fatalf("archive length: %d", len(rawArchive))
	}

	// Clear the second quest too, then deleting an empty slot is a 404.
	if _, err := svc.Delete(ctx, charID, owner); err != nil {
		t.Fatalf("delete second quest: %v", err)
	}
	_, err = svc.Delete(ctx, charID, owner)
	wantStatus(t, err, http.StatusNotFound)
}

func TestDeleteQuestArchiveCap(t *testing.T) {
	gw := newFakeGateway()
	charID := seedCharacter(t, gw)
	svc := newQuestService(gw)
	ctx := context.Background()
	owner := strPtr("user123")

	for i := 0; i < domain.MaxArchivedQuests+5; i++ {
		if _, err := svc.Set(ctx, charID, owner, sampleQuest(fmt.Sprintf("Quest %d", i))); err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
		if _, err := svc.Delete(ctx, charID, owner); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}
	rawArchive, _ := gw.docs["characters"][charID]["archived_quests"].([]interface{})
	if len(rawArchive) != domain.MaxArchivedQuests {
		t.Fatalf("archive length: %d, want %d", len(rawArchive), domain.MaxArchivedQuests)
	}
	// Newest entries survive eviction.
	last, _ := rawArchive[len(rawArchive)-1].(map[string]interface{})
	if last["name"] != fmt.Sprintf("Quest %d", domain.MaxArchivedQuests+4) {
		t.Fatalf("newest archived quest: %v", last["name"])
	}
}
