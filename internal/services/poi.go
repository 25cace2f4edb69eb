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

type CreatePOIInput struct {
	Name        string
	Description string
	Tags        []string
	Timestamp   *time.Time
}

// POIMigrationStats reports a copy-on-write migration of the embedded
// world_pois array into the subcollection.
type POIMigrationStats struct {
	TotalEmbedded int      `json:"total_embedded"`
	Migrated      int      `json:"migrated"`
	Skipped       int      `json:"skipped"`
	Errors        []string `json:"errors,omitempty"`
}

type POIMeta struct {
	RequestedN    int    `json:"requested_n"`
	ReturnedCount int    `json:"returned_count"`
	Source        string `json:"source"`
}

type POIService interface {
	// Create writes a POI into the subcollection. If the character still
	// carries an embedded world_pois array, that array is migrated into the
	// subcollection first, inside the same transaction.
	Create(ctx context.Context, characterID string, owner *string, in CreatePOIInput) (*domain.POI, *POIMigrationStats, error)
	List(ctx context.Context, characterID string, owner *string, n int) ([]*domain.POI, POIMeta, error)
	Summary(ctx context.Context, characterID string, owner *string, n int) ([]domain.POISummary, POIMeta, error)
}

type poiService struct {
	gw  store.Gateway
	log *logger.Logger
	cfg Config
}

func NewPOIService(gw store.Gateway, baseLog *logger.Logger, cfg Config) POIService {
	return &poiService{
		gw:  gw,
		log: baseLog.With("service", "POIService"),
		cfg: cfg,
	}
}

func (s *poiService) Create(ctx context.Context, characterID string, owner *string, in CreatePOIInput) (*domain.POI, *POIMigrationStats, error) {
	characterID, err := NormalizeCharacterID(characterID)
	if err != nil {
		return nil, nil, err
	}
	requester, err := requireOwner(owner)
	if err != nil {
		return nil, nil, err
	}
	discovered := time.Now().UTC()
	if in.Timestamp != nil {
		discovered = in.Timestamp.UTC()
	}
	poi := &domain.POI{
		POIID:               strings.ToLower(uuid.NewString()),
		Name:                in.Name,
		Description:         in.Description,
		Tags:                in.Tags,
		Visited:             false,
		TimestampDiscovered: discovered,
	}
	if poi.Tags == nil {
		poi.Tags = []string{}
	}
	if err := poi.Validate(); err != nil {
		return nil, nil, err
	}

	poiPath := s.cfg.poiPath(characterID)
	var stats *POIMigrationStats
	err = s.gw.RunAtomic(ctx, func(tx store.Tx) error {
		stats = nil
		rec, err := tx.Get(s.cfg.CharactersCollection, characterID)
		if err != nil {
			return err
		}
		if rec == nil {
			return apierr.NotFound(fmt.Sprintf("character with id %q not found", characterID))
		}
		storedOwner, _ := rec.Data["owner_user_id"].(string)
		if err := checkOwnership(storedOwner, requester); err != nil {
			return err
		}
		existing, err := tx.Query(store.Query{Path: poiPath})
		if err != nil {
			return err
		}
		existingIDs := make(map[string]bool, len(existing))
		for _, r := range existing {
			existingIDs[r.ID] = true
		}
		embedded, _ := rec.Data["world_pois"].([]interface{})
		if s.cfg.POIMigrationEnabled && len(embedded) > 0 {
			migrated, err := s.migrateEmbedded(tx, characterID, embedded, existingIDs)
			if err != nil {
				return err
			}
			stats = migrated
		}
		total := len(existingIDs) + 1
		if stats != nil {
			total += stats.Migrated
		}
		if total > domain.MaxEmbeddedPOIs {
			return apierr.Validation(fmt.Sprintf(
				"character already has %d points of interest, maximum is %d", total-1, domain.MaxEmbeddedPOIs))
		}
		if err := tx.Set(poiPath, poi.POIID, domain.POIToStored(poi)); err != nil {
			return err
		}
		return tx.Update(s.cfg.CharactersCollection, characterID, []store.Update{
			{Field: "updated_at", Value: store.ServerTimestamp},
		})
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("create_poi_success",
		"character_id", characterID,
		"poi_id", poi.POIID,
		"migration_performed", stats != nil,
	)
	return poi, stats, nil
}

// migrateEmbedded copies embedded POIs into the subcollection, skipping ids
// the caller already found there, then removes the embedded array. The caller
// runs the existence query so all transaction reads precede the first write.
func (s *poiService) migrateEmbedded(tx store.Tx, characterID string, embedded []interface{}, existingIDs map[string]bool) (*POIMigrationStats, error) {
	poiPath := s.cfg.poiPath(characterID)
	stats := &POIMigrationStats{TotalEmbedded: len(embedded)}
	for _, raw := range embedded {
		entry, _ := raw.(map[string]interface{})
		if entry == nil {
			stats.Errors = append(stats.Errors, "embedded poi is not a map")
			continue
		}
		poiID, _ := entry["id"].(string)
		if poiID == "" {
			stats.Errors = append(stats.Errors, "embedded poi missing id field")
			continue
		}
		if existingIDs[poiID] {
			stats.Skipped++
			continue
		}
		e, err := domain.EmbeddedPOIFromStored(entry)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("embedded poi %s: %v", poiID, err))
			continue
		}
		converted := e.ToPOI()
		if err := tx.Set(poiPath, poiID, domain.POIToStored(&converted)); err != nil {
			return nil, err
		}
		stats.Migrated++
	}
	if err := tx.Update(s.cfg.CharactersCollection, characterID, []store.Update{
		{Field: "world_pois", Value: store.DeleteField},
	}); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *poiService) List(ctx context.Context, characterID string, owner *string, n int) ([]*domain.POI, POIMeta, error) {
	var meta POIMeta
	characterID, err := NormalizeCharacterID(characterID)
	if err != nil {
		return nil, meta, err
	}
	if n < 1 || n > s.cfg.POIMaxN {
		return nil, meta, apierr.Validation(fmt.Sprintf("n must be between 1 and %d, got %d", s.cfg.POIMaxN, n))
	}
	requester, supplied, err := resolveOwner(owner)
	if err != nil {
		return nil, meta, err
	}
	rec, err := s.gw.GetDocument(ctx, s.cfg.CharactersCollection, characterID)
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

	pois, source, err := s.loadPOIs(ctx, characterID, rec.Data, n)
	if err != nil {
		return nil, meta, err
	}
	meta = POIMeta{RequestedN: n, ReturnedCount: len(pois), Source: source}
	return pois, meta, nil
}

func (s *poiService) Summary(ctx context.Context, characterID string, owner *string, n int) ([]domain.POISummary, POIMeta, error) {
	pois, meta, err := s.List(ctx, characterID, owner, n)
	if err != nil {
		return nil, meta, err
	}
	summaries := make([]domain.POISummary, 0, len(pois))
	for _, p := range pois {
		summaries = append(summaries, p.Summary())
	}
	return summaries, meta, nil
}

// loadPOIs reads newest-first from the subcollection, falling back to the
// embedded array on the already-loaded root document when the subcollection
// is empty. The fallback costs no extra store read.
func (s *poiService) loadPOIs(ctx context.Context, characterID string, rootData map[string]interface{}, n int) ([]*domain.POI, string, error) {
	recs, err := s.gw.QueryOrdered(ctx, store.Query{
		Path:      s.cfg.poiPath(characterID),
		OrderBy:   "timestamp_discovered",
		Direction: store.Descending,
		Limit:     n,
	})
	if err != nil {
		return nil, "", err
	}
	if len(recs) > 0 {
		pois := make([]*domain.POI, 0, len(recs))
		for _, r := range recs {
			p, err := domain.POIFromStored(r.ID, r.Data)
			if err != nil {
				return nil, "", err
			}
			pois = append(pois, p)
		}
		return pois, "subcollection", nil
	}
	if !s.cfg.POIEmbeddedFallback {
		return []*domain.POI{}, "subcollection", nil
	}
	embedded, _ := rootData["world_pois"].([]interface{})
	pois := make([]*domain.POI, 0, len(embedded))
	for _, raw := range embedded {
		entry, _ := raw.(map[string]interface{})
		if entry == nil {
			continue
		}
		e, err := domain.EmbeddedPOIFromStored(entry)
		if err != nil {
			s.log.Warn("list_pois_malformed_embedded", "character_id", characterID, "error", err)
			continue
		}
		converted := e.ToPOI()
		pois = append(pois, &converted)
		if len(pois) == n {
			break
		}
	}
	return pois, "embedded", nil
}
