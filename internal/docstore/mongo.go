package docstore

import (
	"context"
	"errors"
	"log"
	"regexp"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	mongoIDField     = "_id"
	mongoParentField = "_parent"
)

// Mongo stores every collection path in the Mongo collection named by its last segment.
// Documents keep their full path in _id and their collection path in _parent.
// Subscriptions use change streams and need a replica set.
type Mongo struct {
	db *mongo.Database
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

func (m *Mongo) collection(collectionPath string) *mongo.Collection {
	return m.db.Collection(lastSegment(collectionPath))
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, readpref.Primary())
}

func (m *Mongo) Get(ctx context.Context, path string) (Document, error) {
	parent, id, err := SplitDocumentPath(path)
	if err != nil {
		return Document{}, wrapError("get", path, err)
	}

	var raw bson.M
	err = m.collection(parent).FindOne(ctx, bson.M{mongoIDField: path}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, wrapError("get", path, ErrNotFound)
	}
	if err != nil {
		return Document{}, wrapError("get", path, err)
	}
	return Document{ID: id, Path: path, Fields: fromMongo(raw)}, nil
}

func (m *Mongo) GetAll(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ValidateCollectionPath(collection); err != nil {
		return nil, wrapError("getAll", collection, err)
	}

	filter := bson.M{mongoParentField: collection}
	for _, f := range q.filters {
		filter[f.Field] = f.Value
	}

	sort := bson.D{}
	if q.orderBy != "" {
		direction := 1
		if q.desc {
			direction = -1
		}
		sort = append(sort, bson.E{Key: q.orderBy, Value: direction})
	}
	sort = append(sort, bson.E{Key: mongoIDField, Value: 1})

	opts := options.Find().SetSort(sort)
	if q.limit > 0 {
		opts.SetLimit(int64(q.limit))
	}

	cursor, err := m.collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapError("getAll", collection, err)
	}
	defer cursor.Close(ctx)

	docs := make([]Document, 0)
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, wrapError("getAll", collection, err)
		}
		path, _ := raw[mongoIDField].(string)
		_, id, err := SplitDocumentPath(path)
		if err != nil {
			continue
		}
		docs = append(docs, Document{ID: id, Path: path, Fields: fromMongo(raw)})
	}
	if err := cursor.Err(); err != nil {
		return nil, wrapError("getAll", collection, err)
	}
	return docs, nil
}

func (m *Mongo) Set(ctx context.Context, path string, fields Fields) error {
	return wrapError("set", path, m.apply(ctx, SetWrite(path, fields)))
}

func (m *Mongo) Create(ctx context.Context, path string, fields Fields) error {
	return wrapError("create", path, m.apply(ctx, CreateWrite(path, fields)))
}

func (m *Mongo) Update(ctx context.Context, path string, fields Fields) error {
	return wrapError("update", path, m.apply(ctx, UpdateWrite(path, fields)))
}

func (m *Mongo) Delete(ctx context.Context, path string) error {
	return wrapError("delete", path, m.apply(ctx, DeleteWrite(path)))
}

func (m *Mongo) apply(ctx context.Context, w Write) error {
	parent, _, err := SplitDocumentPath(w.Path)
	if err != nil {
		return err
	}
	coll := m.collection(parent)
	filter := bson.M{mongoIDField: w.Path}

	switch w.Kind {
	case WriteSet:
		_, err := coll.ReplaceOne(ctx, filter, toMongo(w.Path, parent, w.Fields), options.Replace().SetUpsert(true))
		return err
	case WriteCreate:
		_, err := coll.InsertOne(ctx, toMongo(w.Path, parent, w.Fields))
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return err
	case WriteUpdate:
		res, err := coll.UpdateOne(ctx, filter, mongoUpdate(w.Fields))
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		return nil
	case WriteDelete:
		_, err := coll.DeleteOne(ctx, filter)
		return err
	}
	return errors.New("unknown write kind " + w.Kind.String())
}

// Commit runs the batch in a multi-document transaction.
func (m *Mongo) Commit(ctx context.Context, writes []Write) error {
	session, err := m.db.Client().StartSession()
	if err != nil {
		return wrapError("commit", "", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		for _, w := range writes {
			if err := m.apply(sessCtx, w); err != nil {
				return nil, wrapError(w.Kind.String(), w.Path, err)
			}
		}
		return nil, nil
	})
	return wrapError("commit", "", err)
}

func (m *Mongo) Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (Unsubscribe, error) {
	if err := ValidateCollectionPath(collection); err != nil {
		return nil, wrapError("subscribe", collection, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "documentKey._id", Value: bson.D{
				{Key: "$regex", Value: "^" + regexp.QuoteMeta(collection+"/") + "[^/]+$"},
			}},
		}}},
	}

	// the stream is opened before the first read so no change falls between them
	stream, err := m.collection(collection).Watch(watchCtx, pipeline)
	if err != nil {
		cancel()
		return nil, wrapError("subscribe", collection, err)
	}

	go func() {
		defer stream.Close(context.Background())

		deliver := func() bool {
			docs, err := m.GetAll(watchCtx, collection, Query{})
			if watchCtx.Err() != nil {
				return false
			}
			fn(docs, err)
			return err == nil
		}

		if !deliver() {
			return
		}
		for stream.Next(watchCtx) {
			if !deliver() {
				return
			}
		}
		if err := stream.Err(); err != nil && watchCtx.Err() == nil {
			log.Println("[DOCSTORE] [ERROR] change stream failed:", collection, err)
			fn(nil, wrapError("subscribe", collection, err))
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.db.Client().Disconnect(ctx)
}

func toMongo(path, parent string, fields Fields) bson.M {
	doc := bson.M{}
	now := time.Now().UTC()
	for key, value := range fields {
		switch typed := value.(type) {
		case increment:
			doc[key] = typed.by
		case serverTimestamp:
			doc[key] = now
		default:
			doc[key] = value
		}
	}
	doc[mongoIDField] = path
	doc[mongoParentField] = parent
	return doc
}

func mongoUpdate(fields Fields) bson.M {
	set := bson.M{}
	inc := bson.M{}
	currentDate := bson.M{}
	for key, value := range fields {
		switch typed := value.(type) {
		case increment:
			inc[key] = typed.by
		case serverTimestamp:
			currentDate[key] = true
		default:
			set[key] = value
		}
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	if len(currentDate) > 0 {
		update["$currentDate"] = currentDate
	}
	return update
}

func fromMongo(raw bson.M) Fields {
	delete(raw, mongoIDField)
	delete(raw, mongoParentField)
	return Fields(normalizeMap(raw))
}
