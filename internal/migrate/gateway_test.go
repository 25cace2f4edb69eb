package migrate

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/journeylog/journeylog-backend/internal/store"
)

// memGateway is a minimal in-memory store.Gateway for job tests.
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
	g.docs[path][id] = copyMap(data)
}

func (g *memGateway) GetDocument(_ context.Context, path, id string) (*store.Record, error) {
	data, ok := g.docs[path][id]
	if !ok {
		return nil, nil
	}
	return &store.Record{ID: id, Data: copyMap(data)}, nil
}

func (g *memGateway) QueryOrdered(_ context.Context, q store.Query) ([]store.Record, error) {
	var out []store.Record
	for id, data := range g.docs[q.Path] {
		out = append(out, store.Record{ID: id, Data: copyMap(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (g *memGateway) Count(_ context.Context, q store.Query) (int64, error) {
	return int64(len(g.docs[q.Path])), nil
}

func (g *memGateway) RunAtomic(_ context.Context, fn func(tx store.Tx) error) error {
	return fn(&memTx{gw: g})
}

func (g *memGateway) Close() error { return nil }

type memTx struct {
	gw *memGateway
}

func (t *memTx) Get(path, id string) (*store.Record, error) {
	data, ok := t.gw.docs[path][id]
	if !ok {
		return nil, nil
	}
	return &store.Record{ID: id, Data: copyMap(data)}, nil
}

func (t *memTx) Query(q store.Query) ([]store.Record, error) {
	g := t.gw
	var out []store.Record
	for id, data := range g.docs[q.Path] {
		out = append(out, store.Record{ID: id, Data: copyMap(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) Create(path, id string, data map[string]interface{}) error {
	t.gw.seed(path, id, data)
	return nil
}

func (t *memTx) Set(path, id string, data map[string]interface{}) error {
	t.gw.seed(path, id, data)
	return nil
}

func (t *memTx) Update(path, id string, updates []store.Update) error {
	doc, ok := t.gw.docs[path][id]
	if !ok {
		return &missingErr{path: path, id: id}
	}
	for _, u := range updates {
		applyFieldUpdate(doc, u.Field, u.Value)
	}
	return nil
}

func (t *memTx) Delete(path, id string) error {
	delete(t.gw.docs[path], id)
	return nil
}

type missingErr struct{ path, id string }

func (e *missingErr) Error() string { return "document not found: " + e.path + "/" + e.id }

func applyFieldUpdate(doc map[string]interface{}, field string, value interface{}) {
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
		m[last] = value
	}
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case map[string]interface{}:
			out[k] = copyMap(t)
		case []interface{}:
			s := make([]interface{}, len(t))
			for i, e := range t {
				if m, ok := e.(map[string]interface{}); ok {
					s[i] = copyMap(m)
				} else {
					s[i] = e
				}
			}
			out[k] = s
		default:
			out[k] = v
		}
	}
	return out
}
