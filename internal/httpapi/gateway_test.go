package httpapi

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/journeylog/journeylog-backend/internal/store"
)

// memGateway is an in-memory store.Gateway backing the end-to-end router
// tests.
type memGateway struct {
	docs map[string]map[string]map[string]interface{} // path -> id -> data
}

func newMemGateway() *memGateway {
	return &memGateway{docs: map[string]map[string]map[string]interface{}{}}
}

func (g *memGateway) seed(path, id string, data map[string]interface{}) {
	if g.docs[path] == nil {
		g.docs[path] = map[string]map[string]interface{}{}
	}
	g.docs[path][id] = cloneMap(data)
}

func (g *memGateway) GetDocument(_ context.Context, path, id string) (*store.Record, error) {
	data, ok := g.docs[path][id]
	if !ok {
		return nil, nil
	}
	return &store.Record{ID: id, Data: cloneMap(data)}, nil
}

func (g *memGateway) QueryOrdered(_ context.Context, q store.Query) ([]store.Record, error) {
	return g.runQuery(q), nil
}

func (g *memGateway) Count(_ context.Context, q store.Query) (int64, error) {
	return int64(len(g.runQuery(store.Query{Path: q.Path, Filters: q.Filters}))), nil
}

func (g *memGateway) RunAtomic(_ context.Context, fn func(tx store.Tx) error) error {
	return fn(&memTx{gw: g})
}

func (g *memGateway) Close() error { return nil }

func (g *memGateway) runQuery(q store.Query) []store.Record {
	var out []store.Record
	for id, data := range g.docs[q.Path] {
		if matchesFilters(data, q.Filters) {
			out = append(out, store.Record{ID: id, Data: cloneMap(data)})
		}
	}
	if q.OrderBy != "" {
		sort.Slice(out, func(i, j int) bool {
			less := lessValue(fieldPath(out[i].Data, q.OrderBy), fieldPath(out[j].Data, q.OrderBy))
			if q.Direction == store.Descending {
				return !less
			}
			return less
		})
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	}
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

type memTx struct {
	gw *memGateway
}

func (t *memTx) Get(path, id string) (*store.Record, error) {
	data, ok := t.gw.docs[path][id]
	if !ok {
		return nil, nil
	}
	return &store.Record{ID: id, Data: cloneMap(data)}, nil
}

func (t *memTx) Query(q store.Query) ([]store.Record, error) {
	return t.gw.runQuery(q), nil
}

func (t *memTx) Create(path, id string, data map[string]interface{}) error {
	if _, exists := t.gw.docs[path][id]; exists {
		return &memErr{"document already exists"}
	}
	t.gw.seed(path, id, stripSentinels(data))
	return nil
}

func (t *memTx) Set(path, id string, data map[string]interface{}) error {
	t.gw.seed(path, id, stripSentinels(data))
	return nil
}

func (t *memTx) Update(path, id string, updates []store.Update) error {
	doc, ok := t.gw.docs[path][id]
	if !ok {
		return &memErr{"document not found"}
	}
	for _, u := range updates {
		applyUpdate(doc, u.Field, u.Value)
	}
	return nil
}

func (t *memTx) Delete(path, id string) error {
	delete(t.gw.docs[path], id)
	return nil
}

type memErr struct{ msg string }

func (e *memErr) Error() string { return e.msg }

func applyUpdate(doc map[string]interface{}, field string, value interface{}) {
	parts := strings.Split(field, ".")
	m := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			m[part] = next
		}
		m = next
	}
	last := parts[len(parts)-1]
	switch value {
	case store.DeleteField:
		delete(m, last)
	case store.ServerTimestamp:
		m[last] = time.Now().UTC()
	default:
		m[last] = resolveSentinels(value)
	}
}

func stripSentinels(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if v == store.DeleteField {
			continue
		}
		out[k] = resolveSentinels(v)
	}
	return out
}

func resolveSentinels(v interface{}) interface{} {
	if v == store.ServerTimestamp {
		return time.Now().UTC()
	}
	switch t := v.(type) {
	case map[string]interface{}:
		return stripSentinels(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = resolveSentinels(e)
		}
		return out
	default:
		return v
	}
}

func matchesFilters(data map[string]interface{}, filters []store.Filter) bool {
	for _, f := range filters {
		val := fieldPath(data, f.Field)
		switch f.Op {
		case "==":
			if val != f.Value {
				return false
			}
		case ">":
			if !lessValue(f.Value, val) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func fieldPath(data map[string]interface{}, path string) interface{} {
	parts := strings.Split(path, ".")
	var cur interface{} = data
	for _, part := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

func lessValue(a, b interface{}) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Before(bt)
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return false
}

func cloneMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
