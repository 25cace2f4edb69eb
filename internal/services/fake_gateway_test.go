package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/journeylog/journeylog-backend/internal/store"
)

// fakeGateway is an in-memory store.Gateway for service tests. It counts
// document reads and queries so tests can assert how many reads an
// operation performs.
type fakeGateway struct {
	docs map[string]map[string]map[string]interface{} // path -> id -> data

	getCalls   int
	queryCalls int
	countCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{docs: map[string]map[string]map[string]interface{}{}}
}

func (f *fakeGateway) reads() int { return f.getCalls + f.queryCalls }

func (f *fakeGateway) resetCounters() {
	f.getCalls, f.queryCalls, f.countCalls = 0, 0, 0
}

func (f *fakeGateway) seed(path, id string, data map[string]interface{}) {
	if f.docs[path] == nil {
		f.docs[path] = map[string]map[string]interface{}{}
	}
	f.docs[path][id] = deepCopyMap(data)
}

func (f *fakeGateway) GetDocument(_ context.Context, path, id string) (*store.Record, error) {
	f.getCalls++
	data, ok := f.docs[path][id]
	if !ok {
		return nil, nil
	}
	return &store.Record{ID: id, Data: deepCopyMap(data)}, nil
}

func (f *fakeGateway) QueryOrdered(_ context.Context, q store.Query) ([]store.Record, error) {
	f.queryCalls++
	return f.runQuery(q), nil
}

func (f *fakeGateway) Count(_ context.Context, q store.Query) (int64, error) {
	f.countCalls++
	return int64(len(f.runQuery(store.Query{Path: q.Path, Filters: q.Filters}))), nil
}

func (f *fakeGateway) RunAtomic(_ context.Context, fn func(tx store.Tx) error) error {
	return fn(&fakeTx{gw: f})
}

func (f *fakeGateway) Close() error { return nil }

func (f *fakeGateway) runQuery(q store.Query) []store.Record {
	var out []store.Record
	for id, data := range f.docs[q.Path] {
		if matchesFilters(data, q.Filters) {
			out = append(out, store.Record{ID: id, Data: deepCopyMap(data)})
		}
	}
	if q.OrderBy != "" {
		sort.Slice(out, func(i, j int) bool {
			less := compareValues(lookupPath(out[i].Data, q.OrderBy), lookupPath(out[j].Data, q.OrderBy))
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

type fakeTx struct {
	gw *fakeGateway
}

func (t *fakeTx) Get(path, id string) (*store.Record, error) {
	data, ok := t.gw.docs[path][id]
	if !ok {
		return nil, nil
	}
	return &store.Record{ID: id, Data: deepCopyMap(data)}, nil
}

func (t *fakeTx) Query(q store.Query) ([]store.Record, error) {
	return t.gw.runQuery(q), nil
}

func (t *fakeTx) Create(path, id string, data map[string]interface{}) error {
	if _, exists := t.gw.docs[path][id]; exists {
		return errDocExists
	}
	t.gw.seed(path, id, resolveSentinels(data))
	return nil
}

func (t *fakeTx) Set(path, id string, data map[string]interface{}) error {
	t.gw.seed(path, id, resolveSentinels(data))
	return nil
}

func (t *fakeTx) Update(path, id string, updates []store.Update) error {
	doc, ok := t.gw.docs[path][id]
	if !ok {
		return errDocMissing
	}
	for _, u := range updates {
		applyUpdate(doc, u.Field, u.Value)
	}
	return nil
}

func (t *fakeTx) Delete(path, id string) error {
	delete(t.gw.docs[path], id)
	return nil
}

var (
	errDocExists  = &fakeErr{"document already exists"}
	errDocMissing = &fakeErr{"document not found"}
)

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }

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
	if value == store.DeleteField {
		delete(m, last)
		return
	}
	if value == store.ServerTimestamp {
		m[last] = time.Now().UTC()
		return
	}
	m[last] = resolveValue(value)
}

func resolveSentinels(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if v == store.DeleteField {
			continue
		}
		out[k] = resolveValue(v)
	}
	return out
}

func resolveValue(v interface{}) interface{} {
	if v == store.ServerTimestamp {
		return time.Now().UTC()
	}
	switch t := v.(type) {
	case map[string]interface{}:
		return resolveSentinels(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = resolveValue(e)
		}
		return out
	default:
		return v
	}
}

func matchesFilters(data map[string]interface{}, filters []store.Filter) bool {
	for _, f := range filters {
		val := lookupPath(data, f.Field)
		switch f.Op {
		case "==":
			if val != f.Value {
				return false
			}
		case ">":
			if !compareValues(f.Value, val) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func lookupPath(data map[string]interface{}, path string) interface{} {
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

func compareValues(a, b interface{}) bool {
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

func deepCopyMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
