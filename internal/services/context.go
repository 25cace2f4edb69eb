package services

import (
	"context"
	"fmt"
	"math/rand"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/journeylog/journeylog-backend/internal/domain"
	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
	"github.com/journeylog/journeylog-backend/internal/store"
)

// ContextOptions selects which sections the aggregate read renders. RecentN
// is validated even when narrative is excluded; it is part of the request
// contract regardless of which sections render.
type ContextOptions struct {
	RecentN          int
	IncludeNarrative bool
	IncludeCombat    bool
	IncludeQuest     bool
	IncludePOIs      bool
}

type ContextNarrative struct {
	RecentTurns []*domain.NarrativeTurn `json:"recent_turns"`
	RequestedN  int                     `json:"requested_n"`
	ReturnedN   int                     `json:"returned_n"`
	MaxN        int                     `json:"max_n"`
}

type ContextWorld struct {
	POIsSample  []domain.POISummary `json:"pois_sample"`
	POIsCap     int                 `json:"pois_cap"`
	IncludePOIs bool                `json:"include_pois"`
}

type ContextMetadata struct {
	NarrativeMaxN       int  `json:"narrative_max_n"`
	NarrativeRequestedN int  `json:"narrative_requested_n"`
	POIsCap             int  `json:"pois_cap"`
	POIsRequested       bool `json:"pois_requested"`
}

// ContextResponse always carries the same top-level keys no matter which
// include flags were set; a disabled section collapses to its neutral value.
// Downstream narrative generation depends on this shape stability.
type ContextResponse struct {
	CharacterID    string             `json:"character_id"`
	PlayerState    domain.PlayerState `json:"player_state"`
	Quest          *domain.Quest      `json:"quest"`
	HasActiveQuest bool               `json:"has_active_quest"`
	Combat         CombatEnvelope     `json:"combat"`
	Narrative      ContextNarrative   `json:"narrative"`
	World          ContextWorld       `json:"world"`
	Metadata       ContextMetadata    `json:"metadata"`
}

type ContextService interface {
	Get(ctx context.Context, characterID string, owner *string, opts ContextOptions) (*ContextResponse, error)
}

type contextService struct {
	gw     store.Gateway
	log    *logger.Logger
	cfg    Config
	tracer trace.Tracer
}

func NewContextService(gw store.Gateway, baseLog *logger.Logger, cfg Config) ContextService {
	return &contextService{
		gw:     gw,
		log:    baseLog.With("service", "ContextService"),
		cfg:    cfg,
		tracer: otel.Tracer("services/context"),
	}
}

// Get assembles the full character context in at most three store reads: the
// root document, an optional narrative query, and an optional POI query. The
// embedded POI fallback reuses the already-loaded root document at zero extra
// read cost.
func (s *contextService) Get(ctx context.Context, characterID string, owner *string, opts ContextOptions) (*ContextResponse, error) {
	ctx, span := s.tracer.Start(ctx, "context.Get")
	defer span.End()

	characterID, err := NormalizeCharacterID(characterID)
	if err != nil {
		return nil, err
	}
	if opts.RecentN < 1 || opts.RecentN > s.cfg.ContextMaxN {
		return nil, apierr.Validation(fmt.Sprintf(
			"recent_n must be between 1 and %d, got %d", s.cfg.ContextMaxN, opts.RecentN))
	}
	requester, supplied, err := resolveOwner(owner)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("character.id", characterID),
		attribute.Int("context.recent_n", opts.RecentN),
		attribute.Bool("context.include_pois", opts.IncludePOIs),
	)

	// Read 1: root document.
	rec, err := s.gw.GetDocument(ctx, s.cfg.CharactersCollection, characterID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apierr.NotFound(fmt.Sprintf("character with id %q not found", characterID))
	}
	doc, err := domain.CharacterFromStored(rec.ID, rec.Data)
	if err != nil {
		return nil, err
	}
	if supplied {
		if err := checkOwnership(doc.OwnerUserID, requester); err != nil {
			return nil, err
		}
	}

	resp := &ContextResponse{
		CharacterID: characterID,
		PlayerState: doc.PlayerState,
		Narrative: ContextNarrative{
			RecentTurns: []*domain.NarrativeTurn{},
			RequestedN:  opts.RecentN,
			MaxN:        s.cfg.ContextMaxN,
		},
		World: ContextWorld{
			POIsSample:  []domain.POISummary{},
			POIsCap:     s.cfg.POISampleCap,
			IncludePOIs: opts.IncludePOIs,
		},
		Metadata: ContextMetadata{
			NarrativeMaxN:       s.cfg.ContextMaxN,
			NarrativeRequestedN: opts.RecentN,
			POIsCap:             s.cfg.POISampleCap,
			POIsRequested:       opts.IncludePOIs,
		},
	}

	// Read 2 (optional): newest-first narrative query, reversed so the
	// consumer reads oldest-first.
	if opts.IncludeNarrative {
		recs, err := s.gw.QueryOrdered(ctx, store.Query{
			Path:      s.cfg.narrativePath(characterID),
			OrderBy:   "timestamp",
			Direction: store.Descending,
			Limit:     opts.RecentN,
		})
		if err != nil {
			return nil, err
		}
		turns := make([]*domain.NarrativeTurn, 0, len(recs))
		for _, r := range recs {
			turn, err := domain.TurnFromStored(r.ID, r.Data)
			if err != nil {
				return nil, err
			}
			turns = append(turns, turn)
		}
		reverseTurns(turns)
		resp.Narrative.RecentTurns = turns
		resp.Narrative.ReturnedN = len(turns)
	}

	// Read 3 (optional): POI sample, with embedded fallback.
	if opts.IncludePOIs {
		sample, err := s.poiSample(ctx, characterID, doc)
		if err != nil {
			return nil, err
		}
		resp.World.POIsSample = sample
	}

	if opts.IncludeQuest {
		resp.Quest = doc.ActiveQuest
		resp.HasActiveQuest = doc.ActiveQuest != nil
	}

	if opts.IncludeCombat {
		if doc.CombatState.IsActive() {
			resp.Combat = CombatEnvelope{Active: true, State: doc.CombatState}
		} else {
			resp.Combat = CombatEnvelope{Active: false, State: nil}
		}
	} else {
		resp.Combat = CombatEnvelope{Active: false, State: nil}
	}

	return resp, nil
}

func (s *contextService) poiSample(ctx context.Context, characterID string, doc *domain.CharacterDocument) ([]domain.POISummary, error) {
	recs, err := s.gw.QueryOrdered(ctx, store.Query{
		Path:      s.cfg.poiPath(characterID),
		OrderBy:   "timestamp_discovered",
		Direction: store.Descending,
		Limit:     s.cfg.POISampleCap,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) > 0 {
		sample := make([]domain.POISummary, 0, len(recs))
		for _, r := range recs {
			p, err := domain.POIFromStored(r.ID, r.Data)
			if err != nil {
				return nil, err
			}
			sample = append(sample, p.Summary())
		}
		return sample, nil
	}
	if !s.cfg.POIEmbeddedFallback || len(doc.WorldPOIs) == 0 {
		return []domain.POISummary{}, nil
	}
	// In-memory random sample of the embedded legacy array.
	indices := rand.Perm(len(doc.WorldPOIs))
	sampleCap := s.cfg.POISampleCap
	if sampleCap > len(indices) {
		sampleCap = len(indices)
	}
	sample := make([]domain.POISummary, 0, sampleCap)
	for _, i := range indices[:sampleCap] {
		p := doc.WorldPOIs[i].ToPOI()
		sample = append(sample, p.Summary())
	}
	return sample, nil
}
