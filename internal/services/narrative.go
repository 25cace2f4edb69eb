package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/journeylog/journeylog-backend/internal/domain"
	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
	"github.com/journeylog/journeylog-backend/internal/store"
)

type AppendTurnInput struct {
	PlayerAction string
	GMResponse   string
	// Timestamp is optional; when nil the store assigns commit time. Past and
	// future values are both accepted so turns can be backfilled.
	Timestamp *time.Time
	Metadata  map[string]interface{}
}

// NarrativeMeta accompanies narrative reads so consumers can detect
// truncation without a second call.
type NarrativeMeta struct {
	RequestedN     int   `json:"requested_n"`
	ReturnedCount  int   `json:"returned_count"`
	TotalAvailable int64 `json:"total_available"`
}

type NarrativeService interface {
	Append(ctx context.Context, characterID string, owner *string, in AppendTurnInput) (*domain.NarrativeTurn, int64, error)
	Recent(ctx context.Context, characterID string, owner *string, n int, since *time.Time) ([]*domain.NarrativeTurn, NarrativeMeta, error)
}

type narrativeService struct {
	gw  store.Gateway
	log *logger.Logger
	cfg Config
}

func NewNarrativeService(gw store.Gateway, baseLog *logger.Logger, cfg Config) NarrativeService {
	return &narrativeService{
		gw:  gw,
		log: baseLog.With("service", "NarrativeService"),
		cfg: cfg,
	}
}

func (ns *narrativeService) Append(ctx context.Context, characterID string, owner *string, in AppendTurnInput) (*domain.NarrativeTurn, int64, error) {
	characterID, err := NormalizeCharacterID(characterID)
	if err != nil {
		return nil, 0, err
	}
	requester, supplied, err := resolveOwner(owner)
	if err != nil {
		return nil, 0, err
	}
	turn := &domain.NarrativeTurn{
		TurnID:       strings.ToLower(uuid.NewString()),
		PlayerAction: in.PlayerAction,
		GMResponse:   in.GMResponse,
		Metadata:     in.Metadata,
	}
	if err := turn.Validate(); err != nil {
		return nil, 0, err
	}
	if in.Timestamp != nil {
		turn.Timestamp = in.Timestamp.UTC()
	}

	turnPath := ns.cfg.narrativePath(characterID)
	err = ns.gw.RunAtomic(ctx, func(tx store.Tx) error {
		rec, err := tx.Get(ns.cfg.CharactersCollection, characterID)
		if err != nil {
			return err
		}
		if rec == nil {
			return apierr.NotFound(fmt.Sprintf("character with id %q not found", characterID))
		}
		if supplied {
			storedOwner, _ := rec.Data["owner_user_id"].(string)
			if err := checkOwnership(storedOwner, requester); err != nil {
				return err
			}
		}
		data := domain.TurnToStored(turn)
		if in.Timestamp == nil {
			data["timestamp"] = store.ServerTimestamp
		}
		if err := tx.Create(turnPath, turn.TurnID, data); err != nil {
			return err
		}
		return tx.Update(ns.cfg.CharactersCollection, characterID, []store.Update{
			{Field: "updated_at", Value: store.ServerTimestamp},
		})
	})
	if err != nil {
		return nil, 0, err
	}

	// Materialize the server-assigned timestamp, then report the new total
	// via server-side aggregation. Neither can run inside the transaction.
	rec, err := ns.gw.GetDocument(ctx, turnPath, turn.TurnID)
	if err != nil {
		return nil, 0, err
	}
	if rec != nil {
		if stored, err := domain.TurnFromStored(rec.ID, rec.Data); err == nil {
			turn = stored
		}
	}
	total, err := ns.gw.Count(ctx, store.Query{Path: turnPath})
	if err != nil {
		return nil, 0, err
	}
	ns.log.Info("append_narrative_success",
		"character_id", characterID,
		"turn_id", turn.TurnID,
		"total_turns", total,
	)
	return turn, total, nil
}

func (ns *narrativeService) Recent(ctx context.Context, characterID string, owner *string, n int, since *time.Time) ([]*domain.NarrativeTurn, NarrativeMeta, error) {
	var meta NarrativeMeta
	characterID, err := NormalizeCharacterID(characterID)
	if err != nil {
		return nil, meta, err
	}
	if err := domain.ValidateNarrativeN(n, ns.cfg.NarrativeMaxN); err != nil {
		return nil, meta, err
	}
	requester, supplied, err := resolveOwner(owner)
	if err != nil {
		return nil, meta, err
	}
	rec, err := ns.gw.GetDocument(ctx, ns.cfg.CharactersCollection, characterID)
	if err != nil {
		return nil, meta, err
	}
	if rec == nil {
		return nil, meta, apierr.NotFound(fmt.Sprintf("character with id %q not found", characterID))
	}
	if supplied {
		storedOwner, _ := rec.Data["owner_user_id"].(string)
		if err := checkOwnership(storedOwner, requester); err != nil {
			return nil, meta, err
		}
	}

	turnPath := ns.cfg.narrativePath(characterID)
	q := store.Query{
		Path:      turnPath,
		OrderBy:   "timestamp",
		Direction: store.Descending,
		Limit:     n,
	}
	if since != nil {
		q.Filters = append(q.Filters, store.Filter{Field: "timestamp", Op: ">", Value: since.UTC()})
	}
	recs, err := ns.gw.QueryOrdered(ctx, q)
	if err != nil {
		return nil, meta, err
	}
	turns := make([]*domain.NarrativeTurn, 0, len(recs))
	for _, r := range recs {
		turn, err := domain.TurnFromStored(r.ID, r.Data)
		if err != nil {
			return nil, meta, err
		}
		turns = append(turns, turn)
	}
	// The store returns newest-first; consumers read oldest-first.
	reverseTurns(turns)

	total, err := ns.gw.Count(ctx, store.Query{Path: turnPath})
	if err != nil {
		return nil, meta, err
	}
	meta = NarrativeMeta{RequestedN: n, ReturnedCount: len(turns), TotalAvailable: total}
	return turns, meta, nil
}

func reverseTurns(turns []*domain.NarrativeTurn) {
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
}
