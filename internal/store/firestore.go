package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/journeylog/journeylog-backend/internal/platform/apierr"
	"github.com/journeylog/journeylog-backend/internal/platform/logger"
)

// FirestoreGateway adapts the Firestore client to the Gateway interface.
type FirestoreGateway struct {
	client *firestore.Client
	log    *logger.Logger
}

func NewFirestoreGateway(ctx context.Context, log *logger.Logger, projectID string, opts ...option.ClientOption) (*FirestoreGateway, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, apierr.Infrastructure("firestore client init failed", err)
	}
	return &FirestoreGateway{client: client, log: log.With("store", "firestore")}, nil
}

func (g *FirestoreGateway) Close() error {
	return g.client.Close()
}

func (g *FirestoreGateway) GetDocument(ctx context.Context, path, id string) (*Record, error) {
	snap, err := g.client.Collection(path).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.Infrastructure(fmt.Sprintf("get %s/%s failed", path, id), err)
	}
	return &Record{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (g *FirestoreGateway) QueryOrdered(ctx context.Context, q Query) ([]Record, error) {
	it := g.buildQuery(q).Documents(ctx)
	defer it.Stop()
	return drain(it, q.Path)
}

func (g *FirestoreGateway) Count(ctx context.Context, q Query) (int64, error) {
	fq := g.buildQuery(q)
	aq := fq.NewAggregationQuery().WithCount("count")
	res, err := aq.Get(ctx)
	if err != nil {
		return 0, apierr.Infrastructure(fmt.Sprintf("count over %s failed", q.Path), err)
	}
	raw, ok := res["count"]
	if !ok {
		return 0, apierr.Infrastructure(fmt.Sprintf("count over %s returned no result", q.Path), nil)
	}
	v, ok := raw.(*firestorepb.Value)
	if !ok {
		return 0, apierr.Infrastructure(fmt.Sprintf("count over %s returned unexpected type %T", q.Path, raw), nil)
	}
	return v.GetIntegerValue(), nil
}

func (g *FirestoreGateway) RunAtomic(ctx context.Context, fn func(tx Tx) error) error {
	err := g.client.RunTransaction(ctx, func(_ context.Context, t *firestore.Transaction) error {
		return fn(&firestoreTx{client: g.client, t: t})
	})
	if err == nil {
		return nil
	}
	if ae := asAPIError(err); ae != nil {
		return ae
	}
	return apierr.Infrastructure("transaction failed", err)
}

func (g *FirestoreGateway) buildQuery(q Query) firestore.Query {
	fq := g.client.Collection(q.Path).Query
	return applyQuery(fq, q)
}

type firestoreTx struct {
	client *firestore.Client
	t      *firestore.Transaction
}

func (tx *firestoreTx) Get(path, id string) (*Record, error) {
	snap, err := tx.t.Get(tx.client.Collection(path).Doc(id))
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.Infrastructure(fmt.Sprintf("tx get %s/%s failed", path, id), err)
	}
	return &Record{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (tx *firestoreTx) Query(q Query) ([]Record, error) {
	fq := applyQuery(tx.client.Collection(q.Path).Query, q)
	it := tx.t.Documents(fq)
	defer it.Stop()
	return drain(it, q.Path)
}

func (tx *firestoreTx) Create(path, id string, data map[string]interface{}) error {
	err := tx.t.Create(tx.client.Collection(path).Doc(id), translateData(data))
	if status.Code(err) == codes.AlreadyExists {
		return apierr.Conflict(fmt.Sprintf("document %s/%s already exists", path, id))
	}
	if err != nil {
		return apierr.Infrastructure(fmt.Sprintf("tx create %s/%s failed", path, id), err)
	}
	return nil
}

func (tx *firestoreTx) Set(path, id string, data map[string]interface{}) error {
	if err := tx.t.Set(tx.client.Collection(path).Doc(id), translateData(data)); err != nil {
		return apierr.Infrastructure(fmt.Sprintf("tx set %s/%s failed", path, id), err)
	}
	return nil
}

func (tx *firestoreTx) Update(path, id string, updates []Update) error {
	fsUpdates := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		fsUpdates = append(fsUpdates, firestore.Update{Path: u.Field, Value: translateValue(u.Value)})
	}
	err := tx.t.Update(tx.client.Collection(path).Doc(id), fsUpdates)
	if status.Code(err) == codes.NotFound {
		return apierr.NotFound(fmt.Sprintf("document %s/%s not found", path, id))
	}
	if err != nil {
		return apierr.Infrastructure(fmt.Sprintf("tx update %s/%s failed", path, id), err)
	}
	return nil
}

func (tx *firestoreTx) Delete(path, id string) error {
	if err := tx.t.Delete(tx.client.Collection(path).Doc(id)); err != nil {
		return apierr.Infrastructure(fmt.Sprintf("tx delete %s/%s failed", path, id), err)
	}
	return nil
}

func applyQuery(fq firestore.Query, q Query) firestore.Query {
	// Where parses dotted field paths, which the uniqueness check over
	// player_state.identity.* relies on.
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, f.Op, f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Direction == Descending {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Offset > 0 {
		fq = fq.Offset(q.Offset)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq
}

func drain(it *firestore.DocumentIterator, path string) ([]Record, error) {
	var out []Record
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, apierr.Infrastructure(fmt.Sprintf("query over %s failed", path), err)
		}
		out = append(out, Record{ID: snap.Ref.ID, Data: snap.Data()})
	}
}

// translateData swaps sentinel values for the driver's own markers. Nested
// maps are walked; DeleteField is only meaningful in updates and is dropped
// from full writes.
func translateData(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if _, isDelete := v.(deleteFieldSentinel); isDelete {
			continue
		}
		out[k] = translateValue(v)
	}
	return out
}

func translateValue(v interface{}) interface{} {
	switch t := v.(type) {
	case serverTimestampSentinel:
		return firestore.ServerTimestamp
	case deleteFieldSentinel:
		return firestore.Delete
	case map[string]interface{}:
		return translateData(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = translateValue(e)
		}
		return out
	default:
		return v
	}
}

func asAPIError(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
