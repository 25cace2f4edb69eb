package domain

import (
	"fmt"

	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
)

// The stored field names here are a wire-compatibility contract shared with
// every earlier writer of these documents: identity stores "class", turns
// store "player_action"/"gm_response", subcollection POIs store
// "poi_id"/"timestamp_discovered" while embedded legacy POIs store
// "id"/"created_at". Renaming any of them breaks existing data.

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func asSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

func asInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	default:
		return 0, false
	}
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

// stringSlice tolerates both the store's generic []interface{} and the
// []string our own writers emit.
func stringSlice(v interface{}) []string {
	if s, ok := v.([]string); ok {
		out := make([]string, len(s))
		copy(out, s)
		return out
	}
	raw := asSlice(v)
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// CharacterToStored serializes the aggregate root. Optional sections that are
// absent in memory are omitted rather than written as nulls; equipment and
// inventory are always present, empty lists included. Timestamps are written
// only when set so callers can overlay server-assigned values.
func CharacterToStored(doc *CharacterDocument) map[string]interface{} {
	out := map[string]interface{}{
		"character_id":              doc.CharacterID,
		"owner_user_id":             doc.OwnerUserID,
		"adventure_prompt":          doc.AdventurePrompt,
		"player_state":              PlayerStateToStored(doc.PlayerState),
		"narrative_turns_reference": doc.NarrativeTurnsReference,
		"world_pois_reference":      doc.WorldPOIsReference,
		"schema_version":            doc.SchemaVersion,
	}
	if !doc.CreatedAt.IsZero() {
		out["created_at"] = doc.CreatedAt
	}
	if !doc.UpdatedAt.IsZero() {
		out["updated_at"] = doc.UpdatedAt
	}
	if doc.WorldState != nil {
		out["world_state"] = doc.WorldState
	}
	if doc.ActiveQuest != nil {
		out["active_quest"] = QuestToStored(doc.ActiveQuest)
	}
	if len(doc.ArchivedQuests) > 0 {
		archived := make([]interface{}, 0, len(doc.ArchivedQuests))
		for i := range doc.ArchivedQuests {
			archived = append(archived, QuestToStored(&doc.ArchivedQuests[i]))
		}
		out["archived_quests"] = archived
	}
	if doc.CombatState != nil {
		out["combat_state"] = CombatToStored(doc.CombatState)
	}
	if len(doc.WorldPOIs) > 0 {
		pois := make([]interface{}, 0, len(doc.WorldPOIs))
		for i := range doc.WorldPOIs {
			pois = append(pois, embeddedPOIToStored(doc.WorldPOIs[i]))
		}
		out["world_pois"] = pois
	}
	if doc.AdditionalMetadata != nil {
		out["additional_metadata"] = doc.AdditionalMetadata
	}
	return out
}

// CharacterFromStored rebuilds the aggregate from a raw record. The document
// id wins over any character_id field stored in the body.
func CharacterFromStored(id string, data map[string]interface{}) (*CharacterDocument, error) {
	if data == nil {
		return nil, apierr.Serialization("character document is empty", nil)
	}
	state, err := PlayerStateFromStored(asMap(data["player_state"]))
	if err != nil {
		return nil, err
	}
	createdAt, err := TimestampFromStored(data["created_at"])
	if err != nil {
		return nil, apierr.Serialization("character created_at is invalid", err)
	}
	updatedAt, err := TimestampFromStored(data["updated_at"])
	if err != nil {
		return nil, apierr.Serialization("character updated_at is invalid", err)
	}
	doc := &CharacterDocument{
		CharacterID:             id,
		OwnerUserID:             asString(data["owner_user_id"]),
		AdventurePrompt:         asString(data["adventure_prompt"]),
		PlayerState:             state,
		NarrativeTurnsReference: asString(data["narrative_turns_reference"]),
		WorldPOIsReference:      asString(data["world_pois_reference"]),
		SchemaVersion:           asString(data["schema_version"]),
		CreatedAt:               createdAt,
		UpdatedAt:               updatedAt,
		WorldState:              asMap(data["world_state"]),
		AdditionalMetadata:      asMap(data["additional_metadata"]),
	}
	if doc.NarrativeTurnsReference == "" {
		doc.NarrativeTurnsReference = NarrativeTurnsReference(id)
	}
	if doc.WorldPOIsReference == "" {
		doc.WorldPOIsReference = WorldPOIsReference(id)
	}
	if raw := asMap(data["active_quest"]); raw != nil {
		q, err := QuestFromStored(raw)
		if err != nil {
			return nil, err
		}
		doc.ActiveQuest = q
	}
	for i, raw := range asSlice(data["archived_quests"]) {
		q, err := QuestFromStored(asMap(raw))
		if err != nil {
			return nil, apierr.Serialization(fmt.Sprintf("archived quest %d is invalid", i), err)
		}
		doc.ArchivedQuests = append(doc.ArchivedQuests, *q)
	}
	if raw := asMap(data["combat_state"]); raw != nil {
		c, err := CombatFromStored(raw)
		if err != nil {
			return nil, err
		}
		doc.CombatState = c
	}
	for i, raw := range asSlice(data["world_pois"]) {
		p, err := EmbeddedPOIFromStored(asMap(raw))
		if err != nil {
			return nil, apierr.Serialization(fmt.Sprintf("embedded poi %d is invalid", i), err)
		}
		doc.WorldPOIs = append(doc.WorldPOIs, p)
	}
	return doc, nil
}

// PlayerStateToStored flattens identity and merges the open additional-field
// map back at the player_state level. Deprecated numeric fields never appear
// in output even if a caller smuggled them into AdditionalFields.
func PlayerStateToStored(state PlayerState) map[string]interface{} {
	equipment := make([]interface{}, 0, len(state.Equipment))
	for _, w := range state.Equipment {
		entry := map[string]interface{}{"name": w.Name, "damage": w.Damage}
		if w.SpecialEffects != nil {
			entry["special_effects"] = w.SpecialEffects
		}
		equipment = append(equipment, entry)
	}
	inventory := make([]interface{}, 0, len(state.Inventory))
	for _, it := range state.Inventory {
		entry := map[string]interface{}{"name": it.Name, "quantity": it.Quantity}
		if it.Effect != nil {
			entry["effect"] = it.Effect
		}
		inventory = append(inventory, entry)
	}
	out := map[string]interface{}{
		"identity": map[string]interface{}{
			"name":  state.Identity.Name,
			"race":  state.Identity.Race,
			"class": state.Identity.CharacterClass,
		},
		"status":    string(state.Status),
		"equipment": equipment,
		"inventory": inventory,
		"location":  state.Location.ToStored(),
	}
	for k, v := range state.AdditionalFields {
		if _, reserved := out[k]; reserved {
			continue
		}
		out[k] = v
	}
	for _, k := range DeprecatedPlayerFields {
		delete(out, k)
	}
	return out
}

var playerStateKnownKeys = map[string]bool{
	"identity":  true,
	"status":    true,
	"equipment": true,
	"inventory": true,
	"location":  true,
}

// PlayerStateFromStored tolerates legacy documents: deprecated numeric fields
// are dropped silently, but a missing or invalid status is malformed.
func PlayerStateFromStored(data map[string]interface{}) (PlayerState, error) {
	if data == nil {
		return PlayerState{}, apierr.Serialization("player_state is missing", nil)
	}
	rawStatus, ok := data["status"].(string)
	if !ok || rawStatus == "" {
		return PlayerState{}, apierr.Serialization("player_state is missing status", nil)
	}
	status := Status(rawStatus)
	if !status.Valid() {
		return PlayerState{}, apierr.Serialization(fmt.Sprintf("player_state has invalid status %q", rawStatus), nil)
	}
	identity := asMap(data["identity"])
	state := PlayerState{
		Identity: CharacterIdentity{
			Name:           asString(identity["name"]),
			Race:           asString(identity["race"]),
			CharacterClass: asString(identity["class"]),
		},
		Status:           status,
		Equipment:        []Weapon{},
		Inventory:        []InventoryItem{},
		AdditionalFields: map[string]interface{}{},
	}
	for _, raw := range asSlice(data["equipment"]) {
		m := asMap(raw)
		state.Equipment = append(state.Equipment, Weapon{
			Name:           asString(m["name"]),
			Damage:         m["damage"],
			SpecialEffects: m["special_effects"],
		})
	}
	for _, raw := range asSlice(data["inventory"]) {
		m := asMap(raw)
		qty, _ := asInt(m["quantity"])
		state.Inventory = append(state.Inventory, InventoryItem{
			Name:     asString(m["name"]),
			Quantity: qty,
			Effect:   m["effect"],
		})
	}
	if raw, present := data["location"]; present && raw != nil {
		loc, err := LocationFromStored(raw)
		if err != nil {
			return PlayerState{}, err
		}
		state.Location = loc
	} else {
		state.Location = DefaultLocation()
	}
	deprecated := make(map[string]bool, len(DeprecatedPlayerFields))
	for _, k := range DeprecatedPlayerFields {
		deprecated[k] = true
	}
	for k, v := range data {
		if playerStateKnownKeys[k] || deprecated[k] {
			continue
		}
		state.AdditionalFields[k] = v
	}
	return state, nil
}

func QuestToStored(q *Quest) map[string]interface{} {
	requirements := q.Requirements
	if requirements == nil {
		requirements = []string{}
	}
	items := q.Rewards.Items
	if items == nil {
		items = []string{}
	}
	currency := map[string]interface{}{}
	for k, v := range q.Rewards.Currency {
		currency[k] = v
	}
	rewards := map[string]interface{}{
		"items":    items,
		"currency": currency,
	}
	if q.Rewards.Experience != nil {
		rewards["experience"] = *q.Rewards.Experience
	}
	out := map[string]interface{}{
		"name":             q.Name,
		"description":      q.Description,
		"requirements":     requirements,
		"rewards":          rewards,
		"completion_state": string(q.CompletionState),
	}
	if !q.UpdatedAt.IsZero() {
		out["updated_at"] = q.UpdatedAt
	}
	if q.ClearedAt != nil {
		out["cleared_at"] = *q.ClearedAt
	}
	return out
}

func QuestFromStored(data map[string]interface{}) (*Quest, error) {
	if data == nil {
		return nil, apierr.Serialization("quest record is empty", nil)
	}
	q := &Quest{
		Name:         asString(data["name"]),
		Description:  asString(data["description"]),
		Requirements: stringSlice(data["requirements"]),
	}
	rewards := asMap(data["rewards"])
	q.Rewards.Items = stringSlice(rewards["items"])
	q.Rewards.Currency = map[string]int{}
	for k, v := range asMap(rewards["currency"]) {
		amount, ok := asInt(v)
		if !ok {
			return nil, apierr.Serialization(fmt.Sprintf("quest currency %q has a non-integer amount", k), nil)
		}
		q.Rewards.Currency[k] = amount
	}
	if raw, present := rewards["experience"]; present && raw != nil {
		exp, ok := asInt(raw)
		if !ok {
			return nil, apierr.Serialization("quest experience is not an integer", nil)
		}
		q.Rewards.Experience = &exp
	}
	stateRaw := asString(data["completion_state"])
	if stateRaw == "" {
		q.CompletionState = QuestNotStarted
	} else {
		state, err := ParseCompletionState(stateRaw)
		if err != nil {
			return nil, apierr.Serialization(fmt.Sprintf("quest has invalid completion_state %q", stateRaw), nil)
		}
		q.CompletionState = state
	}
	updatedAt, err := OptionalTimestampFromStored(data["updated_at"])
	if err != nil {
		return nil, apierr.Serialization("quest updated_at is invalid", err)
	}
	if updatedAt != nil {
		q.UpdatedAt = *updatedAt
	}
	clearedAt, err := OptionalTimestampFromStored(data["cleared_at"])
	if err != nil {
		return nil, apierr.Serialization("quest cleared_at is invalid", err)
	}
	q.ClearedAt = clearedAt
	return q, nil
}

func CombatToStored(c *CombatState) map[string]interface{} {
	enemies := make([]interface{}, 0, len(c.Enemies))
	for _, e := range c.Enemies {
		entry := map[string]interface{}{
			"enemy_id": e.EnemyID,
			"name":     e.Name,
			"status":   string(e.Status),
			"traits":   append([]string{}, e.Traits...),
		}
		if e.Weapon != "" {
			entry["weapon"] = e.Weapon
		}
		if e.Metadata != nil {
			entry["metadata"] = e.Metadata
		}
		enemies = append(enemies, entry)
	}
	return map[string]interface{}{
		"combat_id":  c.CombatID,
		"started_at": c.StartedAt,
		"turn":       c.Turn,
		"enemies":    enemies,
	}
}

func CombatFromStored(data map[string]interface{}) (*CombatState, error) {
	if data == nil {
		return nil, apierr.Serialization("combat record is empty", nil)
	}
	startedAt, err := TimestampFromStored(data["started_at"])
	if err != nil {
		return nil, apierr.Serialization("combat started_at is invalid", err)
	}
	turn, ok := asInt(data["turn"])
	if !ok {
		return nil, apierr.Serialization("combat turn is not an integer", nil)
	}
	c := &CombatState{
		CombatID:  asString(data["combat_id"]),
		StartedAt: startedAt,
		Turn:      turn,
		Enemies:   []Enemy{},
	}
	for i, raw := range asSlice(data["enemies"]) {
		m := asMap(raw)
		status, err := ParseStatus(asString(m["status"]))
		if err != nil {
			return nil, apierr.Serialization(fmt.Sprintf("enemy %d has an invalid status", i), nil)
		}
		c.Enemies = append(c.Enemies, Enemy{
			EnemyID:  asString(m["enemy_id"]),
			Name:     asString(m["name"]),
			Status:   status,
			Weapon:   asString(m["weapon"]),
			Traits:   stringSlice(m["traits"]),
			Metadata: asMap(m["metadata"]),
		})
	}
	return c, nil
}

func TurnToStored(t *NarrativeTurn) map[string]interface{} {
	out := map[string]interface{}{
		"turn_id":       t.TurnID,
		"player_action": t.PlayerAction,
		"gm_response":   t.GMResponse,
	}
	if !t.Timestamp.IsZero() {
		out["timestamp"] = t.Timestamp
	}
	if t.TurnNumber != nil {
		out["turn_number"] = *t.TurnNumber
	}
	if t.GameState != nil {
		out["game_state"] = t.GameState
	}
	if t.Metadata != nil {
		out["metadata"] = t.Metadata
	}
	return out
}

// TurnFromStored falls back to the subcollection document id when the body
// carries no turn_id.
func TurnFromStored(docID string, data map[string]interface{}) (*NarrativeTurn, error) {
	if data == nil {
		return nil, apierr.Serialization("narrative turn record is empty", nil)
	}
	ts, err := TimestampFromStored(data["timestamp"])
	if err != nil {
		return nil, apierr.Serialization("narrative turn timestamp is invalid", err)
	}
	t := &NarrativeTurn{
		TurnID:       asString(data["turn_id"]),
		PlayerAction: asString(data["player_action"]),
		GMResponse:   asString(data["gm_response"]),
		Timestamp:    ts,
		GameState:    asMap(data["game_state"]),
		Metadata:     asMap(data["metadata"]),
	}
	if t.TurnID == "" {
		t.TurnID = docID
	}
	if n, ok := asInt(data["turn_number"]); ok {
		t.TurnNumber = &n
	}
	return t, nil
}

func POIToStored(p *POI) map[string]interface{} {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	out := map[string]interface{}{
		"poi_id":      p.POIID,
		"name":        p.Name,
		"description": p.Description,
		"tags":        tags,
		"visited":     p.Visited,
	}
	if p.Type != "" {
		out["type"] = p.Type
	}
	if p.Location != nil {
		out["location"] = p.Location.ToStored()
	}
	if p.Notes != "" {
		out["notes"] = p.Notes
	}
	if !p.TimestampDiscovered.IsZero() {
		out["timestamp_discovered"] = p.TimestampDiscovered
	}
	if p.LastVisited != nil {
		out["last_visited"] = *p.LastVisited
	}
	if p.Metadata != nil {
		out["metadata"] = p.Metadata
	}
	return out
}

func POIFromStored(docID string, data map[string]interface{}) (*POI, error) {
	if data == nil {
		return nil, apierr.Serialization("poi record is empty", nil)
	}
	p := &POI{
		POIID:       asString(data["poi_id"]),
		Name:        asString(data["name"]),
		Description: asString(data["description"]),
		Type:        asString(data["type"]),
		Notes:       asString(data["notes"]),
		Tags:        stringSlice(data["tags"]),
		Visited:     asBool(data["visited"]),
		Metadata:    asMap(data["metadata"]),
	}
	if p.POIID == "" {
		p.POIID = docID
	}
	if raw, present := data["location"]; present && raw != nil {
		loc, err := LocationFromStored(raw)
		if err != nil {
			return nil, err
		}
		p.Location = &loc
	}
	discovered, err := OptionalTimestampFromStored(data["timestamp_discovered"])
	if err != nil {
		return nil, apierr.Serialization("poi timestamp_discovered is invalid", err)
	}
	if discovered != nil {
		p.TimestampDiscovered = *discovered
	}
	lastVisited, err := OptionalTimestampFromStored(data["last_visited"])
	if err != nil {
		return nil, apierr.Serialization("poi last_visited is invalid", err)
	}
	p.LastVisited = lastVisited
	return p, nil
}

func embeddedPOIToStored(e EmbeddedPOI) map[string]interface{} {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	out := map[string]interface{}{
		"id":          e.ID,
		"name":        e.Name,
		"description": e.Description,
		"tags":        tags,
	}
	if e.Location != nil {
		out["location"] = e.Location.ToStored()
	}
	if !e.CreatedAt.IsZero() {
		out["created_at"] = e.CreatedAt
	}
	if e.Metadata != nil {
		out["metadata"] = e.Metadata
	}
	return out
}

func EmbeddedPOIFromStored(data map[string]interface{}) (EmbeddedPOI, error) {
	if data == nil {
		return EmbeddedPOI{}, apierr.Serialization("embedded poi record is empty", nil)
	}
	e := EmbeddedPOI{
		ID:          asString(data["id"]),
		Name:        asString(data["name"]),
		Description: asString(data["description"]),
		Tags:        stringSlice(data["tags"]),
		Metadata:    asMap(data["metadata"]),
	}
	if raw, present := data["location"]; present && raw != nil {
		loc, err := LocationFromStored(raw)
		if err != nil {
			return EmbeddedPOI{}, err
		}
		e.Location = &loc
	}
	createdAt, err := OptionalTimestampFromStored(data["created_at"])
	if err != nil {
		return EmbeddedPOI{}, apierr.Serialization("embedded poi created_at is invalid", err)
	}
	if createdAt != nil {
		e.CreatedAt = *createdAt
	}
	return e, nil
}
