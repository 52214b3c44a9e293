// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/danielhkuo/rentradar/docstore"
)

const (
	connectTimeout = 15 * time.Second
	streamBuffer   = 256
)

// Store implements docstore.Store on a MongoDB database. Subscriptions use
// change streams, which require a replica set or sharded cluster.
type Store struct {
	client *mongo.Client
	db     *mongo.Database

	base context.Context
	stop context.CancelFunc
}

var _ docstore.Store = (*Store)(nil)

// Open connects, pings and ensures the indexes used by the engine's queries.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	dctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	c, err := mongo.Connect(dctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := c.Ping(dctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	base, stop := context.WithCancel(context.Background())
	s := &Store{client: c, db: c.Database(dbName), base: base, stop: stop}
	if err := s.createIndexes(dctx); err != nil {
		slog.Warn("mongo index creation incomplete", "error", err)
	}
	slog.Info("connected to mongo", "db", dbName)
	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		"reports": {
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		},
		"votes": {
			{Keys: bson.D{{Key: "reportId", Value: 1}, {Key: "voterId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"feedback": {
			{Keys: bson.D{{Key: "resolved", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		},
	}
	var errs []string
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			errs = append(errs, coll+": "+err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var raw bson.M
	err := s.col(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, err
	}
	return decode(raw), nil
}

// matchFilter selects the document by id and every Match field.
func matchFilter(id string, cond *docstore.Precondition) bson.M {
	filter := bson.M{"_id": id}
	if cond != nil {
		for k, v := range cond.Match {
			filter[k] = v
		}
	}
	return filter
}

func (s *Store) Put(ctx context.Context, collection, id string, fields docstore.Fields, opts docstore.PutOptions) error {
	c := s.col(collection)
	switch {
	case opts.If != nil && opts.If.MustNotExist:
		doc := expand(fields)
		doc["_id"] = id
		if _, err := c.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return docstore.ErrPreconditionFailed
			}
			return err
		}
		return nil

	case opts.Merge:
		filter := matchFilter(id, opts.If)
		if len(fields) == 0 {
			n, err := c.CountDocuments(ctx, filter)
			if err != nil {
				return err
			}
			if opts.If != nil && n == 0 {
				return docstore.ErrPreconditionFailed
			}
			return nil
		}
		update := bson.M{"$set": bson.M(fields.Clone())}
		res, err := c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(opts.If == nil))
		if err != nil {
			return err
		}
		if opts.If != nil && res.MatchedCount == 0 {
			return docstore.ErrPreconditionFailed
		}
		return nil

	default:
		res, err := c.ReplaceOne(ctx, matchFilter(id, opts.If), expand(fields), options.Replace().SetUpsert(opts.If == nil))
		if err != nil {
			return err
		}
		if opts.If != nil && res.MatchedCount == 0 {
			return docstore.ErrPreconditionFailed
		}
		return nil
	}
}

func (s *Store) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	c := s.col(collection)
	filter := bson.M{"_id": id}
	if delta < 0 {
		filter[field] = bson.M{"$gte": -delta}
	}
	res, err := c.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{field: delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return docstore.ErrNotFound
	}
	return docstore.ErrPreconditionFailed
}

func (s *Store) Delete(ctx context.Context, collection, id string, cond *docstore.Precondition) error {
	c := s.col(collection)
	if cond != nil && cond.MustNotExist {
		n, err := c.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n > 0 {
			return docstore.ErrPreconditionFailed
		}
		return nil
	}
	res, err := c.DeleteOne(ctx, matchFilter(id, cond))
	if err != nil {
		return err
	}
	if cond != nil && res.DeletedCount == 0 {
		return docstore.ErrPreconditionFailed
	}
	return nil
}

var operators = map[docstore.Op]string{
	docstore.OpEq:  "$eq",
	docstore.OpNe:  "$ne",
	docstore.OpLt:  "$lt",
	docstore.OpLte: "$lte",
	docstore.OpGt:  "$gt",
	docstore.OpGte: "$gte",
}

func fieldName(field string) string {
	if field == "id" {
		return "_id"
	}
	return field
}

// buildFilter renders predicates as an $and of single-field comparisons.
func buildFilter(where []docstore.Predicate) (bson.M, error) {
	if len(where) == 0 {
		return bson.M{}, nil
	}
	terms := make(bson.A, 0, len(where))
	for _, p := range where {
		op, ok := operators[p.Op]
		if !ok {
			return nil, fmt.Errorf("unsupported operator %q", p.Op)
		}
		terms = append(terms, bson.M{fieldName(p.Field): bson.M{op: p.Value}})
	}
	return bson.M{"$and": terms}, nil
}

// keyset resumes strictly after the cursor in the given order.
func keyset(order docstore.Order, cur *docstore.Cursor) bson.M {
	op := "$gt"
	if order.Desc {
		op = "$lt"
	}
	field := fieldName(order.Field)
	if field == "_id" {
		return bson.M{"_id": bson.M{op: cur.ID}}
	}
	return bson.M{"$or": bson.A{
		bson.M{field: bson.M{op: cur.Value}},
		bson.M{field: cur.Value, "_id": bson.M{op: cur.ID}},
	}}
}

func sortSpec(order docstore.Order) bson.D {
	dir := 1
	if order.Desc {
		dir = -1
	}
	field := fieldName(order.Field)
	if field == "" || field == "_id" {
		return bson.D{{Key: "_id", Value: dir}}
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}

func (s *Store) Query(ctx context.Context, q docstore.Query) (docstore.Page, error) {
	if q.Limit <= 0 {
		return docstore.Page{}, fmt.Errorf("query %s: limit must be positive", q.Collection)
	}
	filter, err := buildFilter(q.Where)
	if err != nil {
		return docstore.Page{}, err
	}
	if q.After != nil {
		if and, ok := filter["$and"].(bson.A); ok {
			filter["$and"] = append(and, keyset(q.OrderBy, q.After))
		} else {
			filter = bson.M{"$and": bson.A{keyset(q.OrderBy, q.After)}}
		}
	}

	opts := options.Find().SetSort(sortSpec(q.OrderBy)).SetLimit(int64(q.Limit))
	cur, err := s.col(q.Collection).Find(ctx, filter, opts)
	if err != nil {
		return docstore.Page{}, err
	}
	var raws []bson.M
	if err := cur.All(ctx, &raws); err != nil {
		return docstore.Page{}, err
	}

	page := docstore.Page{}
	for _, raw := range raws {
		page.Documents = append(page.Documents, decode(raw))
	}
	if len(page.Documents) == q.Limit {
		last := page.Documents[len(page.Documents)-1]
		page.Next = docstore.CursorFor(last, q.OrderBy)
	}
	return page, nil
}

func (s *Store) Count(ctx context.Context, collection string, where []docstore.Predicate) (int64, error) {
	filter, err := buildFilter(where)
	if err != nil {
		return 0, err
	}
	return s.col(collection).CountDocuments(ctx, filter)
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.M `bson:"fullDocument"`
}

// Subscribe opens a change stream on the collection. Updates are delivered
// as looked-up full documents and filtered with docstore.Matches.
func (s *Store) Subscribe(ctx context.Context, collection string, where []docstore.Predicate) (<-chan docstore.Event, func(), error) {
	sctx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(s.base, cancel)

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := s.col(collection).Watch(sctx, mongo.Pipeline{}, opts)
	if err != nil {
		stopAfter()
		cancel()
		return nil, nil, fmt.Errorf("failed to open change stream: %w", err)
	}

	out := make(chan docstore.Event, streamBuffer)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())
		defer stopAfter()

		for stream.Next(sctx) {
			var ce changeEvent
			if err := stream.Decode(&ce); err != nil {
				slog.Error("failed to decode change event", "collection", collection, "error", err)
				continue
			}
			evt, ok := toEvent(collection, ce, where)
			if !ok {
				continue
			}
			select {
			case out <- evt:
			case <-sctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && sctx.Err() == nil {
			slog.Warn("change stream ended", "collection", collection, "error", err)
		}
	}()
	return out, cancel, nil
}

func toEvent(collection string, ce changeEvent, where []docstore.Predicate) (docstore.Event, bool) {
	switch ce.OperationType {
	case "insert", "update", "replace":
		if ce.FullDocument == nil {
			// The document was deleted before the lookup ran.
			return docstore.Event{}, false
		}
		doc := decode(ce.FullDocument)
		if !docstore.Matches(doc.Fields, where) {
			return docstore.Event{}, false
		}
		return docstore.Event{Kind: docstore.EventPut, Collection: collection, Document: doc}, true
	case "delete":
		return docstore.Event{Kind: docstore.EventDelete, Collection: collection, Document: docstore.Document{ID: ce.DocumentKey.ID}}, true
	}
	return docstore.Event{}, false
}

// Close ends every change stream and disconnects the client.
func (s *Store) Close() error {
	s.stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
