package docstore

import (
	"context"
	"fmt"
	"log"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore maps paths one-to-one onto Cloud Firestore documents and collections.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

// OpenFirestore connects with application default credentials.
func OpenFirestore(ctx context.Context, projectID string) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return NewFirestore(client), nil
}

func (f *Firestore) doc(path string) (*firestore.DocumentRef, error) {
	if _, _, err := SplitDocumentPath(path); err != nil {
		return nil, err
	}
	ref := f.client.Doc(path)
	if ref == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return ref, nil
}

func (f *Firestore) query(collection string, q Query) (firestore.Query, error) {
	if err := ValidateCollectionPath(collection); err != nil {
		return firestore.Query{}, err
	}
	ref := f.client.Collection(collection)
	if ref == nil {
		return firestore.Query{}, fmt.Errorf("%w: %q", ErrInvalidPath, collection)
	}

	query := ref.Query
	for _, flt := range q.filters {
		query = query.Where(flt.Field, "==", flt.Value)
	}
	if q.orderBy != "" {
		direction := firestore.Asc
		if q.desc {
			direction = firestore.Desc
		}
		query = query.OrderBy(q.orderBy, direction)
	} else {
		query = query.OrderBy(firestore.DocumentID, firestore.Asc)
	}
	if q.limit > 0 {
		query = query.Limit(q.limit)
	}
	return query, nil
}

func (f *Firestore) Get(ctx context.Context, path string) (Document, error) {
	ref, err := f.doc(path)
	if err != nil {
		return Document{}, wrapError("get", path, err)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return Document{}, wrapError("get", path, firestoreError(err))
	}
	return fromFirestore(snap), nil
}

func (f *Firestore) GetAll(ctx context.Context, collection string, q Query) ([]Document, error) {
	query, err := f.query(collection, q)
	if err != nil {
		return nil, wrapError("getAll", collection, err)
	}
	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, wrapError("getAll", collection, firestoreError(err))
	}
	return fromFirestoreAll(snaps), nil
}

func (f *Firestore) Set(ctx context.Context, path string, fields Fields) error {
	ref, err := f.doc(path)
	if err != nil {
		return wrapError("set", path, err)
	}
	_, err = ref.Set(ctx, toFirestore(fields))
	return wrapError("set", path, firestoreError(err))
}

func (f *Firestore) Create(ctx context.Context, path string, fields Fields) error {
	ref, err := f.doc(path)
	if err != nil {
		return wrapError("create", path, err)
	}
	_, err = ref.Create(ctx, toFirestore(fields))
	return wrapError("create", path, firestoreError(err))
}

func (f *Firestore) Update(ctx context.Context, path string, fields Fields) error {
	ref, err := f.doc(path)
	if err != nil {
		return wrapError("update", path, err)
	}
	_, err = ref.Update(ctx, firestoreUpdates(fields))
	return wrapError("update", path, firestoreError(err))
}

func (f *Firestore) Delete(ctx context.Context, path string) error {
	ref, err := f.doc(path)
	if err != nil {
		return wrapError("delete", path, err)
	}
	_, err = ref.Delete(ctx)
	return wrapError("delete", path, firestoreError(err))
}

func (f *Firestore) Commit(ctx context.Context, writes []Write) error {
	refs := make([]*firestore.DocumentRef, len(writes))
	for i, w := range writes {
		ref, err := f.doc(w.Path)
		if err != nil {
			return wrapError(w.Kind.String(), w.Path, err)
		}
		refs[i] = ref
	}

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for i, w := range writes {
			var err error
			switch w.Kind {
			case WriteSet:
				err = tx.Set(refs[i], toFirestore(w.Fields))
			case WriteCreate:
				err = tx.Create(refs[i], toFirestore(w.Fields))
			case WriteUpdate:
				err = tx.Update(refs[i], firestoreUpdates(w.Fields))
			case WriteDelete:
				err = tx.Delete(refs[i])
			default:
				err = fmt.Errorf("unknown write kind %d", w.Kind)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	return wrapError("commit", "", firestoreError(err))
}

func (f *Firestore) Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (Unsubscribe, error) {
	query, err := f.query(collection, Query{})
	if err != nil {
		return nil, wrapError("subscribe", collection, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	it := query.Snapshots(watchCtx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if watchCtx.Err() != nil {
				return
			}
			if err != nil {
				log.Println("[DOCSTORE] [ERROR] snapshot listener failed:", collection, err)
				fn(nil, wrapError("subscribe", collection, firestoreError(err)))
				return
			}
			snaps, err := snap.Documents.GetAll()
			if err != nil {
				fn(nil, wrapError("subscribe", collection, firestoreError(err)))
				return
			}
			fn(fromFirestoreAll(snaps), nil)
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (f *Firestore) Close(ctx context.Context) error {
	return f.client.Close()
}

func firestoreError(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	}
	return err
}

func firestoreValue(value any) any {
	switch typed := value.(type) {
	case increment:
		return firestore.Increment(typed.by)
	case serverTimestamp:
		return firestore.ServerTimestamp
	default:
		return normalizeValue(value)
	}
}

func toFirestore(fields Fields) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		out[key] = firestoreValue(value)
	}
	return out
}

func firestoreUpdates(fields Fields) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for key, value := range fields {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{key}, Value: firestoreValue(value)})
	}
	return updates
}

func fromFirestore(snap *firestore.DocumentSnapshot) Document {
	return Document{
		ID:     snap.Ref.ID,
		Path:   relativePath(snap.Ref),
		Fields: Fields(normalizeMap(snap.Data())),
	}
}

func fromFirestoreAll(snaps []*firestore.DocumentSnapshot) []Document {
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, fromFirestore(snap))
	}
	return docs
}

// relativePath strips the projects/.../documents/ prefix Firestore uses in Ref.Path.
func relativePath(ref *firestore.DocumentRef) string {
	segments := []string{ref.ID}
	for coll := ref.Parent; coll != nil; {
		segments = append([]string{coll.ID}, segments...)
		if coll.Parent == nil {
			break
		}
		segments = append([]string{coll.Parent.ID}, segments...)
		coll = coll.Parent.Parent
	}
	return Join(segments...)
}
